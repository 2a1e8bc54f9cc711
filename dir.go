package compositefs

import (
	"io"
	"os"
	"path"
)

// mergedDir is the handle returned when an Overlay directory is opened.
// Readdir yields the merged listing of both layers.
type mergedDir struct {
	o       *Overlay
	path    string
	entries []os.FileInfo
	offset  int
	closed  bool
}

var _ File = (*mergedDir)(nil)

func newMergedDir(o *Overlay, p string) (*mergedDir, error) {
	return &mergedDir{o: o, path: p}, nil
}

// Close closes the directory
func (d *mergedDir) Close() error {
	d.closed = true
	return nil
}

func (d *mergedDir) Read(p []byte) (int, error) {
	return 0, d.isDirErr("read")
}

func (d *mergedDir) ReadAt(p []byte, off int64) (int, error) {
	return 0, d.isDirErr("read")
}

func (d *mergedDir) Write(p []byte) (int, error) {
	return 0, d.isDirErr("write")
}

func (d *mergedDir) WriteAt(p []byte, off int64) (int, error) {
	return 0, d.isDirErr("write")
}

func (d *mergedDir) WriteString(s string) (int, error) {
	return 0, d.isDirErr("write")
}

func (d *mergedDir) Truncate(size int64) error {
	return d.isDirErr("truncate")
}

func (d *mergedDir) isDirErr(op string) error {
	return pathError(op, d.path, ErrIsDir)
}

// Seek moves the position within the directory listing
func (d *mergedDir) Seek(offset int64, whence int) (int64, error) {
	if d.closed {
		return 0, os.ErrClosed
	}

	switch whence {
	case io.SeekStart:
		d.offset = int(offset)
	case io.SeekCurrent:
		d.offset += int(offset)
	case io.SeekEnd:
		if err := d.load(); err != nil {
			return 0, err
		}
		d.offset = len(d.entries) + int(offset)
	}
	if d.offset < 0 {
		d.offset = 0
	}
	return int64(d.offset), nil
}

// Name returns the base name of the directory
func (d *mergedDir) Name() string {
	if d.path == "" {
		return "/"
	}
	return path.Base(d.path)
}

// Readdir returns up to count entries, or all remaining ones when count <= 0
func (d *mergedDir) Readdir(count int) ([]os.FileInfo, error) {
	if d.closed {
		return nil, os.ErrClosed
	}
	if err := d.load(); err != nil {
		return nil, err
	}

	if d.offset >= len(d.entries) {
		if count > 0 {
			return nil, io.EOF
		}
		return nil, nil
	}

	end := len(d.entries)
	if count > 0 {
		end = min(d.offset+count, len(d.entries))
	}
	result := d.entries[d.offset:end]
	d.offset = end
	return result, nil
}

// Readdirnames returns the base names Readdir would return
func (d *mergedDir) Readdirnames(count int) ([]string, error) {
	infos, err := d.Readdir(count)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	return names, nil
}

// Stat returns the info of the directory itself
func (d *mergedDir) Stat() (os.FileInfo, error) {
	if d.closed {
		return nil, os.ErrClosed
	}
	e, err := d.o.Info(d.path)
	if err != nil {
		return nil, err
	}
	return entryInfo{e}, nil
}

func (d *mergedDir) Sync() error {
	return nil
}

// load reads the merged listing once per handle
func (d *mergedDir) load() error {
	if d.entries != nil {
		return nil
	}
	entries, err := d.o.Ls(d.path)
	if err != nil {
		return err
	}
	d.entries = make([]os.FileInfo, len(entries))
	for i, e := range entries {
		d.entries[i] = entryInfo{e}
	}
	return nil
}
