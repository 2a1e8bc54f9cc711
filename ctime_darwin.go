package compositefs

import (
	"os"
	"syscall"
	"time"
)

// createdTime returns the birth time reported by the filesystem
func createdTime(fi os.FileInfo) time.Time {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return time.Unix(int64(st.Birthtimespec.Sec), int64(st.Birthtimespec.Nsec))
	}
	return fi.ModTime()
}
