//go:build linux

package adapters

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// CreatedAt prefers the file system birth time and falls back to the
// modification time when the file system does not record it.
func (a CreationTimeAdapter) CreatedAt(installDir string) (time.Time, error) {
	var stat unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, installDir, 0, unix.STATX_BTIME, &stat)
	if err == nil && stat.Mask&unix.STATX_BTIME != 0 {
		return time.Unix(stat.Btime.Sec, int64(stat.Btime.Nsec)), nil
	}
	info, statErr := os.Stat(installDir)
	if statErr != nil {
		return time.Time{}, statErr
	}
	return info.ModTime(), nil
}
