package compositefs

import (
	"io/fs"
	"os"
	"path"
	"time"
)

// EntryType distinguishes files from directories in listings
type EntryType string

const (
	TypeFile      EntryType = "file"
	TypeDirectory EntryType = "directory"
)

// Entry is the metadata record returned by Info and Ls
type Entry struct {
	Name     string      `json:"name" yaml:"name"`
	Size     int64       `json:"size" yaml:"size"`
	Type     EntryType   `json:"type" yaml:"type"`
	Mode     os.FileMode `json:"mode" yaml:"mode"`
	Created  time.Time   `json:"created" yaml:"created"`
	Modified time.Time   `json:"modified" yaml:"modified"`
}

// IsDir reports whether the entry is a directory
func (e Entry) IsDir() bool {
	return e.Type == TypeDirectory
}

// withName returns a copy of the entry carrying a different name
func (e Entry) withName(name string) Entry {
	e.Name = name
	return e
}

// WalkEntry is one directory visited by Walk. Dirs and Files hold base names.
type WalkEntry struct {
	Dir   string
	Dirs  []string
	Files []string
}

// entryFromFileInfo builds an Entry named p from fi
func entryFromFileInfo(p string, fi os.FileInfo) Entry {
	e := Entry{
		Name:     p,
		Size:     fi.Size(),
		Type:     TypeFile,
		Mode:     fi.Mode(),
		Created:  createdTime(fi),
		Modified: fi.ModTime(),
	}
	if fi.IsDir() {
		e.Type = TypeDirectory
		e.Size = 0
	}
	return e
}

// syntheticDir builds the placeholder entry used for mount points and replaced directories
func syntheticDir(name string) Entry {
	return Entry{Name: name, Type: TypeDirectory, Mode: fs.ModeDir | 0o755}
}

// entryInfo exposes an Entry as os.FileInfo
type entryInfo struct {
	e Entry
}

var _ os.FileInfo = entryInfo{}

func (i entryInfo) Name() string {
	if i.e.Name == "" {
		return "/"
	}
	return path.Base(i.e.Name)
}

func (i entryInfo) Size() int64        { return i.e.Size }
func (i entryInfo) ModTime() time.Time { return i.e.Modified }
func (i entryInfo) IsDir() bool        { return i.e.IsDir() }
func (i entryInfo) Sys() any           { return nil }

func (i entryInfo) Mode() os.FileMode {
	if i.e.IsDir() {
		return i.e.Mode | fs.ModeDir
	}
	return i.e.Mode
}
