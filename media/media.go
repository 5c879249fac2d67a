// Package media lists the photos and videos dropped into the static folders and ranks them.
package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Kind is the media family a post belongs to.
type Kind string

const (
	Photo Kind = "foto"
	Video Kind = "video"
)

var (
	PhotoExts = []string{".jpg", ".jpeg", ".png", ".webp"}
	VideoExts = []string{".mp4", ".webm", ".mov"}
)

// Exts returns the accepted extensions of k.
func (k Kind) Exts() []string {
	switch k {
	case Photo:
		return PhotoExts
	case Video:
		return VideoExts
	}
	return nil
}

// Accepts reports whether filename carries one of the extensions of k, ignoring case.
func (k Kind) Accepts(filename string) bool {
	return hasExt(filename, k.Exts())
}

// ErrInvalidPostID is returned by ParsePostID for anything not shaped like kind:filename.
var ErrInvalidPostID = errors.New("invalid post id")

// PostID joins kind and the base name of filename.
func PostID(kind Kind, filename string) string {
	return string(kind) + ":" + SafeName(filename)
}

// ParsePostID splits a "foto:<name>" or "video:<name>" identifier. Directory parts of the name
// are stripped.
func ParsePostID(id string) (Kind, string, error) {
	prefix, name, ok := strings.Cut(strings.TrimSpace(id), ":")
	if !ok {
		return "", "", ErrInvalidPostID
	}
	kind := Kind(prefix)
	if kind != Photo && kind != Video {
		return "", "", ErrInvalidPostID
	}
	name = SafeName(name)
	if name == "" {
		return "", "", ErrInvalidPostID
	}
	return kind, name, nil
}

// SafeName keeps only the last path element of name, accepting both slash styles.
// It returns "" for names that reduce to nothing or to a directory reference.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// Item is one media file.
type Item struct {
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

// CreatedFunc reports the creation time used for ordering.
type CreatedFunc func(path string, info fs.FileInfo) time.Time

// List scans dir and returns the regular files whose extension is in exts, newest first.
// A missing directory yields an empty list.
func List(dir string, exts []string) ([]Item, error) {
	return ListWith(dir, exts, CreationTime)
}

// ListWith is List with a caller-supplied clock for file creation times.
func ListWith(dir string, exts []string, created CreatedFunc) ([]Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Item{}, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !hasExt(entry.Name(), exts) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info by an external sync.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		items = append(items, Item{
			Filename:  entry.Name(),
			CreatedAt: created(filepath.Join(dir, entry.Name()), info),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func hasExt(name string, exts []string) bool {
	ext := filepath.Ext(name)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Delete removes filename from dir when it is a regular file of kind. It reports whether a file
// was removed; a name with the wrong extension or a missing file is not an error.
func Delete(dir string, kind Kind, filename string) (bool, error) {
	name := SafeName(filename)
	if name == "" || !kind.Accepts(name) {
		return false, nil
	}
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove %s: %w", path, err)
	}
	return true, nil
}

// LikeCounter is the part of the engagement store ranking needs.
type LikeCounter interface {
	LikeCount(ctx context.Context, postID string) (int, error)
}

// Ranked is an item with its like count.
type Ranked struct {
	Item
	Likes int `json:"likes"`
}

// TopByLikes orders items by like count, then by creation time, both descending, and returns
// at most n of them. Every item costs one store query.
func TopByLikes(ctx context.Context, store LikeCounter, kind Kind, items []Item, n int) ([]Ranked, error) {
	ranked := make([]Ranked, 0, len(items))
	for _, it := range items {
		count, err := store.LikeCount(ctx, PostID(kind, it.Filename))
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, Ranked{Item: it, Likes: count})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Likes != ranked[j].Likes {
			return ranked[i].Likes > ranked[j].Likes
		}
		return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}
