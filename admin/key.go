package admin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// LoadKey reads the shared admin password from path. A missing or blank file returns "" and
// leaves the admin surface disabled.
func LoadKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read admin key %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
