//go:build linux

package media

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// CreationTime returns the inode change time, which on Linux is the closest thing to the moment
// the file landed in the folder. It falls back to the modification time.
func CreationTime(path string, info fs.FileInfo) time.Time {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return info.ModTime()
	}
	sec, nsec := st.Ctim.Unix()
	return time.Unix(sec, nsec)
}
