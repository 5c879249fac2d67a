// Package linelog stores short notices one per line in a plain text file. Lines are kept oldest
// first on disk and shown newest first.
package linelog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// Log is a line-oriented text file. Operations are serialized in-process by mu and across
// processes by an advisory lock on a sibling .lock file.
type Log struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// Open returns the log at path. The file is created on first append.
func Open(path string) *Log {
	return &Log{path: path, lock: flock.New(path + ".lock")}
}

// Path is the backing file.
func (l *Log) Path() string { return l.path }

// ReadLines returns the non-empty trimmed lines of the file, top to bottom.
// A missing file reads as empty.
func (l *Log) ReadLines() ([]string, error) {
	if err := l.acquire(); err != nil {
		return nil, err
	}
	defer l.release()
	return l.readLocked()
}

func (l *Log) readLocked() ([]string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}
	lines := []string{}
	for _, line := range strings.Split(string(data), "\n") {
		if t := strings.TrimSpace(line); t != "" {
			lines = append(lines, t)
		}
	}
	return lines, nil
}

// Clean trims text and folds embedded line breaks into spaces.
func Clean(text string) string {
	text = strings.TrimSpace(text)
	text = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	return strings.TrimSpace(text)
}

// Append adds text as a new last line. Empty text is ignored. Existing lines are never rewritten.
func (l *Log) Append(text string) error {
	text = Clean(text)
	if text == "" {
		return nil
	}
	if err := l.acquire(); err != nil {
		return err
	}
	defer l.release()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	prefix, err := needsNewline(f)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", l.path, err)
	}
	if _, err := f.WriteString(prefix + text + "\n"); err != nil {
		return fmt.Errorf("append %s: %w", l.path, err)
	}
	return nil
}

// needsNewline returns "\n" when the file is non-empty and does not already end in one, so a
// hand-edited file without a trailing newline does not get its last line merged.
func needsNewline(f *os.File) (string, error) {
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.Size() == 0 {
		return "", nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return "", err
	}
	if last[0] == '\n' {
		return "", nil
	}
	return "\n", nil
}

// WriteLines replaces the whole file with lines.
func (l *Log) WriteLines(lines []string) error {
	if err := l.acquire(); err != nil {
		return err
	}
	defer l.release()
	return l.writeLocked(lines)
}

func (l *Log) writeLocked(lines []string) error {
	content := strings.TrimSpace(strings.Join(lines, "\n"))
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(l.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", l.path, err)
	}
	return nil
}

// Newest returns the lines newest first.
func (l *Log) Newest() ([]string, error) {
	lines, err := l.ReadLines()
	if err != nil {
		return nil, err
	}
	return Reverse(lines), nil
}

// DeleteNewest removes the line at position reverseIndex of the newest-first view. It reports
// whether a line was removed; an out-of-range index leaves the file alone.
func (l *Log) DeleteNewest(reverseIndex int) (bool, error) {
	if err := l.acquire(); err != nil {
		return false, err
	}
	defer l.release()

	lines, err := l.readLocked()
	if err != nil {
		return false, err
	}
	idx, ok := RealIndex(len(lines), reverseIndex)
	if !ok {
		return false, nil
	}
	lines = append(lines[:idx], lines[idx+1:]...)
	if err := l.writeLocked(lines); err != nil {
		return false, err
	}
	return true, nil
}

// RealIndex maps a position in the newest-first view of n lines to its position on disk.
func RealIndex(n, reverseIndex int) (int, bool) {
	idx := n - 1 - reverseIndex
	if reverseIndex < 0 || idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

// Reverse returns a reversed copy of lines.
func Reverse(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[len(lines)-1-i] = line
	}
	return out
}

func (l *Log) acquire() error {
	l.mu.Lock()
	if err := l.lock.Lock(); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("lock %s: %w", l.path, err)
	}
	return nil
}

func (l *Log) release() {
	_ = l.lock.Unlock()
	l.mu.Unlock()
}
