package compositefs

import (
	"iter"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// NoMaxDepth disables the depth limit of Walk and Rm
const NoMaxDepth = -1

// File is an open file handle returned by a Filesystem
type File = afero.File

// Filesystem is the capability set every backing filesystem provides.
// Router and Overlay implement it themselves, so they can be nested.
//
// Paths are slash separated and relative to the filesystem root; "" is the root.
// Names returned by Info, Ls and Walk use the same convention.
type Filesystem interface {
	// Name returns the protocol label of the filesystem
	Name() string
	// Fingerprint returns a stable identity; equivalent configurations share it
	Fingerprint() string

	Info(path string) (Entry, error)
	Exists(path string) (bool, error)
	Lexists(path string) (bool, error)
	IsDir(path string) (bool, error)
	IsFile(path string) (bool, error)
	Ls(path string) ([]Entry, error)
	// Walk yields one WalkEntry per directory, top-down. maxDepth 1 only
	// yields path itself; NoMaxDepth walks the whole tree.
	Walk(path string, maxDepth int) iter.Seq2[WalkEntry, error]

	Open(path string) (File, error)
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	Mkdir(path string, createParents bool) error
	Makedirs(path string, existOK bool) error
	Rmdir(path string) error
	RmFile(path string) error
	Rm(path string, recursive bool, maxDepth int) error
	CpFile(src, dst string) error
	Mv(src, dst string) error
	Touch(path string, truncate bool) error
}

// AttrFS is implemented by filesystems that can change file attributes
type AttrFS interface {
	Chmod(path string, mode os.FileMode) error
	Chown(path string, uid, gid int) error
	Chtimes(path string, atime, mtime time.Time) error
}

// cleanPath normalizes a path to the root-relative form used throughout the package
// and never climbs above the root
func cleanPath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// joinPath joins root-relative path elements, skipping empty ones
func joinPath(elem ...string) string {
	return cleanPath(path.Join(elem...))
}

// parentPath returns the parent of p, "" for top-level entries and the root
func parentPath(p string) string {
	p = cleanPath(p)
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}

// pathTree returns every ancestor of p from the root down, ending with p itself
func pathTree(p string) []string {
	p = cleanPath(p)
	if p == "" {
		return nil
	}
	parts := strings.Split(p, "/")
	tree := make([]string, len(parts))
	for i := range parts {
		tree[i] = strings.Join(parts[:i+1], "/")
	}
	return tree
}

// hasPathPrefix reports whether p equals prefix or lies below it
func hasPathPrefix(p, prefix string) bool {
	if prefix == "" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

// isWriteFlag reports whether an open flag requests write access
func isWriteFlag(flag int) bool {
	return flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0
}
