//go:build !linux && !darwin

package compositefs

import (
	"os"
	"time"
)

// createdTime falls back to the modification time where no creation time is exposed
func createdTime(fi os.FileInfo) time.Time {
	return fi.ModTime()
}
