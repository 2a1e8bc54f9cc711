package compositefs

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
)

// The helpers in this file are built purely on the Filesystem interface, so
// they carry the routing and overlay policy of whatever filesystem they are given.

// Cat returns the whole content of p
func Cat(fsys Filesystem, p string) ([]byte, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// CatFile returns the bytes of p in [start, end). Negative offsets count back
// from the end of the file and end is clamped to the file size.
func CatFile(fsys Filesystem, p string, start, end int64) ([]byte, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, pathError("cat_file", cleanPath(p), ErrIsDir)
	}
	size := fi.Size()
	if start < 0 {
		start = max(size+start, 0)
	}
	if end < 0 {
		end = max(size+end, 0)
	}
	end = min(end, size)
	if start >= end {
		return []byte{}, nil
	}
	return io.ReadAll(io.NewSectionReader(f, start, end-start))
}

// ReadText returns the content of p as a string
func ReadText(fsys Filesystem, p string) (string, error) {
	data, err := Cat(fsys, p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteText replaces the content of p with s
func WriteText(fsys Filesystem, p, s string) error {
	return Pipe(fsys, p, []byte(s))
}

// Pipe replaces the content of p with data
func Pipe(fsys Filesystem, p string, data []byte) (err error) {
	f, err := fsys.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = f.Write(data)
	return err
}

// Head returns the first n bytes of p
func Head(fsys Filesystem, p string, n int64) ([]byte, error) {
	return CatFile(fsys, p, 0, n)
}

// Tail returns the last n bytes of p
func Tail(fsys Filesystem, p string, n int64) ([]byte, error) {
	size, err := Size(fsys, p)
	if err != nil {
		return nil, err
	}
	return CatFile(fsys, p, max(size-n, 0), size)
}

// ReadBlock returns up to length bytes of p starting at offset
func ReadBlock(fsys Filesystem, p string, offset, length int64) ([]byte, error) {
	return CatFile(fsys, p, offset, offset+length)
}

// Size returns the size of p in bytes
func Size(fsys Filesystem, p string) (int64, error) {
	e, err := fsys.Info(p)
	if err != nil {
		return 0, err
	}
	return e.Size, nil
}

// Created returns the creation time of p, or its modification time when the backend has none
func Created(fsys Filesystem, p string) (time.Time, error) {
	e, err := fsys.Info(p)
	if err != nil {
		return time.Time{}, err
	}
	return e.Created, nil
}

// Modified returns the modification time of p
func Modified(fsys Filesystem, p string) (time.Time, error) {
	e, err := fsys.Info(p)
	if err != nil {
		return time.Time{}, err
	}
	return e.Modified, nil
}

// Checksum returns the hex blake3 digest of the content of p
func Checksum(fsys Filesystem, p string) (string, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", pathError("checksum", cleanPath(p), ErrIsDir)
	}

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Ukey returns a key that changes whenever the metadata of p changes
func Ukey(fsys Filesystem, p string) (string, error) {
	e, err := fsys.Info(p)
	if err != nil {
		return "", err
	}
	return hashStrings(e.Name, fmt.Sprint(e.Size), string(e.Type), fmt.Sprint(e.Modified.UnixNano())), nil
}

// OpenMode opens p using a mode string: r, rb, w, wb, a, ab, r+, x
func OpenMode(fsys Filesystem, p, mode string) (File, error) {
	flag, err := parseMode(mode)
	if err != nil {
		return nil, pathError("open", cleanPath(p), err)
	}
	if flag == os.O_RDONLY {
		return fsys.Open(p)
	}
	return fsys.OpenFile(p, flag, 0o644)
}

func parseMode(mode string) (int, error) {
	switch mode {
	case "", "r", "rb", "rt":
		return os.O_RDONLY, nil
	case "w", "wb", "wt":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case "a", "ab", "at":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case "r+", "rb+", "r+b":
		return os.O_RDWR, nil
	case "w+", "wb+", "w+b":
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
	case "x", "xb":
		return os.O_WRONLY | os.O_CREATE | os.O_EXCL, nil
	}
	return 0, fmt.Errorf("%w: mode %q", ErrInvalidOperation, mode)
}

// getGuard is implemented by filesystems that refuse some download sources
type getGuard interface {
	checkGet(p string) error
}

// GetFile downloads the file rpath to the local path lpath
func GetFile(fsys Filesystem, rpath, lpath string) error {
	isDir, err := fsys.IsDir(rpath)
	if err != nil {
		return err
	}
	if isDir {
		return os.MkdirAll(lpath, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(lpath), 0o755); err != nil {
		return err
	}
	return copyFile(fsys, rpath, NewOsFS(), localPath(lpath), 0o644, 0)
}

// Get downloads rpath to lpath, descending into directories when recursive is set
func Get(fsys Filesystem, rpath, lpath string, recursive bool) error {
	if g, ok := fsys.(getGuard); ok {
		if err := g.checkGet(rpath); err != nil {
			return err
		}
	}
	isDir, err := fsys.IsDir(rpath)
	if err != nil {
		return err
	}
	if !recursive || !isDir {
		return GetFile(fsys, rpath, lpath)
	}

	root := cleanPath(rpath)
	for we, err := range fsys.Walk(root, NoMaxDepth) {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(filepath.FromSlash("/"+root), filepath.FromSlash("/"+we.Dir))
		if err != nil {
			return err
		}
		dir := filepath.Join(lpath, rel)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		for _, name := range we.Files {
			if err := GetFile(fsys, joinPath(we.Dir, name), filepath.Join(dir, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// PutFile uploads the local file lpath to rpath
func PutFile(fsys Filesystem, lpath, rpath string) error {
	fi, err := os.Stat(lpath)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fsys.Makedirs(rpath, true)
	}
	return copyFile(NewOsFS(), localPath(lpath), fsys, rpath, fi.Mode().Perm(), 0)
}

// Put uploads lpath to rpath, descending into directories when recursive is set
func Put(fsys Filesystem, lpath, rpath string, recursive bool) error {
	fi, err := os.Stat(lpath)
	if err != nil {
		return err
	}
	if !recursive || !fi.IsDir() {
		return PutFile(fsys, lpath, rpath)
	}

	return filepath.WalkDir(lpath, func(local string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(lpath, local)
		if err != nil {
			return err
		}
		remote := joinPath(rpath, filepath.ToSlash(rel))
		if d.IsDir() {
			return fsys.Makedirs(remote, true)
		}
		return PutFile(fsys, local, remote)
	})
}

// localPath converts a local path into the root-relative form understood by NewOsFS
func localPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	return filepath.ToSlash(abs)
}
