package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Orphans returns the post ids whose media file no longer exists in the matching directory.
// Ids that do not parse are reported as orphans too.
func Orphans(postIDs []string, photosDir, videosDir string) ([]string, error) {
	var out []string
	for _, id := range postIDs {
		kind, name, err := ParsePostID(id)
		if err != nil {
			out = append(out, id)
			continue
		}
		dir := photosDir
		if kind == Video {
			dir = videosDir
		}
		_, err = os.Stat(filepath.Join(dir, name))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			out = append(out, id)
		case err != nil:
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
	}
	return out, nil
}
