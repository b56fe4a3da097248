//go:build !windows

package validation

import (
	"syscall"
)

// availableBytes uses Bavail, the space left to unprivileged users.
func availableBytes(path string) (int64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}
