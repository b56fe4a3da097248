package validation

import (
	"fmt"
	"os"
	"path/filepath"
)

// MinFreeBytes is the free space below which the data directory check warns.
// History rows carry base64 images, so a full disk shows up as failed saves.
const MinFreeBytes int64 = 200 << 20

// FreeSpace returns the bytes available to this process on the filesystem
// holding path. A path that does not exist yet is resolved to its nearest
// existing ancestor.
func FreeSpace(path string) (int64, error) {
	path = filepath.Clean(path)
	for {
		if _, err := os.Stat(path); err == nil {
			break
		}
		parent := filepath.Dir(path)
		if parent == path {
			return 0, fmt.Errorf("no existing ancestor for %s", path)
		}
		path = parent
	}
	return availableBytes(path)
}

// FormatBytes renders n using binary units, e.g. "1.5 GB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
