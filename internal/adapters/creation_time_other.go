//go:build !linux

package adapters

import (
	"os"
	"time"
)

func (a CreationTimeAdapter) CreatedAt(installDir string) (time.Time, error) {
	info, err := os.Stat(installDir)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
