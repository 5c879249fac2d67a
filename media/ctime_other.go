//go:build !linux

package media

import (
	"io/fs"
	"time"
)

// CreationTime returns the modification time on platforms without a portable change time.
func CreationTime(_ string, info fs.FileInfo) time.Time {
	return info.ModTime()
}
