package compositefs

import (
	"os"
	"syscall"
	"time"
)

// createdTime returns the inode change time, which is what local filesystems report as creation
func createdTime(fi os.FileInfo) time.Time {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec))
	}
	return fi.ModTime()
}
