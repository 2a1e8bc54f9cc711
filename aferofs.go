package compositefs

import (
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
	"sort"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/afero"
)

// instanceSeq numbers anonymous AferoFS instances so each gets a distinct fingerprint
var instanceSeq atomic.Uint64

// AferoFS adapts an afero.Fs to the Filesystem interface
type AferoFS struct {
	fs          afero.Fs
	name        string
	fingerprint string
	autoMkdir   bool
	relative    bool
}

var (
	_ Filesystem = (*AferoFS)(nil)
	_ AttrFS     = (*AferoFS)(nil)
)

// AferoOption is a functional option for configuring AferoFS
type AferoOption func(*AferoFS)

// WithAutoMkdir creates missing parent directories when files are created
func WithAutoMkdir(enabled bool) AferoOption {
	return func(a *AferoFS) {
		a.autoMkdir = enabled
	}
}

// WithFingerprint sets the identity used for same-filesystem comparisons
func WithFingerprint(id string) AferoOption {
	return func(a *AferoFS) {
		a.fingerprint = id
	}
}

// withRelativePaths passes io/fs style paths ("." for the root, no leading slash)
func withRelativePaths() AferoOption {
	return func(a *AferoFS) {
		a.relative = true
	}
}

// NewAferoFS wraps fsys, labelled with the protocol name
func NewAferoFS(name string, fsys afero.Fs, opts ...AferoOption) *AferoFS {
	a := &AferoFS{fs: fsys, name: name}
	for _, opt := range opts {
		opt(a)
	}
	if a.fingerprint == "" {
		a.fingerprint = defaultFingerprint(name, fsys)
	}
	return a
}

// NewOsFS returns the local disk as a Filesystem
func NewOsFS(opts ...AferoOption) *AferoFS {
	return NewAferoFS("file", afero.NewOsFs(), opts...)
}

// NewMemFS returns an empty in-memory Filesystem
func NewMemFS(opts ...AferoOption) *AferoFS {
	return NewAferoFS("memory", afero.NewMemMapFs(), opts...)
}

// NewIOFS returns a read-only Filesystem over an io/fs.FS
func NewIOFS(name string, fsys fs.FS) *AferoFS {
	return NewAferoFS(name, afero.FromIOFS{FS: fsys}, withRelativePaths())
}

// defaultFingerprint identifies the local disk by protocol and anything else by instance
func defaultFingerprint(name string, fsys afero.Fs) string {
	if _, ok := fsys.(*afero.OsFs); ok {
		return hashStrings("file")
	}
	return hashStrings(name, "instance", strconv.FormatUint(instanceSeq.Add(1), 10))
}

// Name returns the protocol label
func (a *AferoFS) Name() string {
	return a.name
}

// Fingerprint returns the filesystem identity
func (a *AferoFS) Fingerprint() string {
	return a.fingerprint
}

// Afero returns the wrapped afero.Fs
func (a *AferoFS) Afero() afero.Fs {
	return a.fs
}

// real maps a root-relative path to the path handed to afero
func (a *AferoFS) real(p string) string {
	p = cleanPath(p)
	if a.relative {
		if p == "" {
			return "."
		}
		return p
	}
	return "/" + p
}

// isNotExist reports whether err means the path is absent, including lookups through a file
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// Info returns the metadata of p
func (a *AferoFS) Info(p string) (Entry, error) {
	p = cleanPath(p)
	fi, err := a.fs.Stat(a.real(p))
	if err != nil {
		return Entry{}, err
	}
	return entryFromFileInfo(p, fi), nil
}

// Exists reports whether p exists
func (a *AferoFS) Exists(p string) (bool, error) {
	_, err := a.fs.Stat(a.real(p))
	if err == nil {
		return true, nil
	}
	if isNotExist(err) {
		return false, nil
	}
	return false, err
}

// IsDir reports whether p is a directory
func (a *AferoFS) IsDir(p string) (bool, error) {
	fi, err := a.fs.Stat(a.real(p))
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return fi.IsDir(), nil
}

// IsFile reports whether p is a regular file
func (a *AferoFS) IsFile(p string) (bool, error) {
	fi, err := a.fs.Stat(a.real(p))
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !fi.IsDir(), nil
}

// Ls lists the directory p, or returns the single entry for a file
func (a *AferoFS) Ls(p string) ([]Entry, error) {
	p = cleanPath(p)
	fi, err := a.fs.Stat(a.real(p))
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []Entry{entryFromFileInfo(p, fi)}, nil
	}

	infos, err := afero.ReadDir(a.fs, a.real(p))
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, entryFromFileInfo(joinPath(p, info.Name()), info))
	}
	return entries, nil
}

// Walk traverses the tree below p
func (a *AferoFS) Walk(p string, maxDepth int) iter.Seq2[WalkEntry, error] {
	return walkByLs(a.Ls, p, maxDepth)
}

// walkByLs builds a top-down walk out of a listing function.
// A missing or non-directory root yields nothing.
func walkByLs(ls func(string) ([]Entry, error), root string, maxDepth int) iter.Seq2[WalkEntry, error] {
	root = cleanPath(root)
	return func(yield func(WalkEntry, error) bool) {
		var walk func(dir string, depth int) bool
		walk = func(dir string, depth int) bool {
			entries, err := ls(dir)
			if err != nil {
				if depth == 1 && isNotExist(err) {
					return true
				}
				return yield(WalkEntry{}, err)
			}
			if depth == 1 && len(entries) == 1 && entries[0].Name == dir && !entries[0].IsDir() {
				return true
			}

			we := WalkEntry{Dir: dir, Dirs: []string{}, Files: []string{}}
			for _, e := range entries {
				if e.IsDir() {
					we.Dirs = append(we.Dirs, baseName(e.Name))
				} else {
					we.Files = append(we.Files, baseName(e.Name))
				}
			}
			sort.Strings(we.Dirs)
			sort.Strings(we.Files)
			if !yield(we, nil) {
				return false
			}

			if maxDepth != NoMaxDepth && depth >= maxDepth {
				return true
			}
			for _, d := range we.Dirs {
				if !walk(joinPath(dir, d), depth+1) {
					return false
				}
			}
			return true
		}
		walk(root, 1)
	}
}

// Open opens p for reading
func (a *AferoFS) Open(p string) (File, error) {
	return a.fs.Open(a.real(p))
}

// OpenFile opens p with the given flags
func (a *AferoFS) OpenFile(p string, flag int, perm os.FileMode) (File, error) {
	p = cleanPath(p)
	if a.autoMkdir && flag&os.O_CREATE != 0 {
		if err := a.fs.MkdirAll(a.real(parentPath(p)), 0o755); err != nil {
			return nil, err
		}
	}
	return a.fs.OpenFile(a.real(p), flag, perm)
}

// Mkdir creates the directory p, and its parents when createParents is set
func (a *AferoFS) Mkdir(p string, createParents bool) error {
	p = cleanPath(p)
	exists, err := a.Exists(p)
	if err != nil {
		return err
	}
	if exists {
		return pathError("mkdir", p, ErrAlreadyExists)
	}
	if createParents {
		return a.fs.MkdirAll(a.real(p), 0o755)
	}
	return a.fs.Mkdir(a.real(p), 0o755)
}

// Makedirs creates p and all missing parents
func (a *AferoFS) Makedirs(p string, existOK bool) error {
	p = cleanPath(p)
	if !existOK {
		exists, err := a.Exists(p)
		if err != nil {
			return err
		}
		if exists {
			return pathError("makedirs", p, ErrAlreadyExists)
		}
	}
	return a.fs.MkdirAll(a.real(p), 0o755)
}

// Rmdir removes the empty directory p
func (a *AferoFS) Rmdir(p string) error {
	p = cleanPath(p)
	if p == "" {
		return pathError("rmdir", p, ErrInvalidOperation)
	}
	fi, err := a.fs.Stat(a.real(p))
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return pathError("rmdir", p, ErrNotDir)
	}
	if err := a.checkEmpty("rmdir", p); err != nil {
		return err
	}
	return a.fs.Remove(a.real(p))
}

// checkEmpty fails with ErrNotEmpty when the directory p has children
func (a *AferoFS) checkEmpty(op, p string) error {
	infos, err := afero.ReadDir(a.fs, a.real(p))
	if err != nil {
		return err
	}
	if len(infos) > 0 {
		return pathError(op, p, ErrNotEmpty)
	}
	return nil
}

// RmFile removes the file p
func (a *AferoFS) RmFile(p string) error {
	p = cleanPath(p)
	fi, err := a.fs.Stat(a.real(p))
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return pathError("rm_file", p, ErrIsDir)
	}
	return a.fs.Remove(a.real(p))
}

// Rm removes p. Directories need recursive unless they are empty.
func (a *AferoFS) Rm(p string, recursive bool, maxDepth int) error {
	p = cleanPath(p)
	fi, err := a.fs.Stat(a.real(p))
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return a.fs.Remove(a.real(p))
	}
	if p == "" {
		return pathError("rm", p, ErrInvalidOperation)
	}
	if !recursive {
		if err := a.checkEmpty("rm", p); err != nil {
			return err
		}
		return a.fs.Remove(a.real(p))
	}
	if maxDepth == NoMaxDepth {
		return a.fs.RemoveAll(a.real(p))
	}
	return a.rmBounded(p, maxDepth)
}

// rmBounded removes files down to maxDepth, then every directory left empty, deepest first
func (a *AferoFS) rmBounded(p string, maxDepth int) error {
	var dirs []string
	for we, err := range a.Walk(p, maxDepth) {
		if err != nil {
			return err
		}
		dirs = append(dirs, we.Dir)
		for _, f := range we.Files {
			if err := a.fs.Remove(a.real(joinPath(we.Dir, f))); err != nil {
				return err
			}
		}
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		infos, err := afero.ReadDir(a.fs, a.real(dirs[i]))
		if err != nil {
			return err
		}
		if len(infos) > 0 {
			continue
		}
		if err := a.fs.Remove(a.real(dirs[i])); err != nil {
			return err
		}
	}
	return nil
}

// CpFile copies the file src to dst within this filesystem
func (a *AferoFS) CpFile(src, dst string) error {
	src, dst = cleanPath(src), cleanPath(dst)
	fi, err := a.fs.Stat(a.real(src))
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return a.Makedirs(dst, true)
	}
	return copyFile(a, src, a, dst, fi.Mode().Perm(), 0)
}

// Mv renames src to dst
func (a *AferoFS) Mv(src, dst string) error {
	src, dst = cleanPath(src), cleanPath(dst)
	if a.autoMkdir {
		if err := a.fs.MkdirAll(a.real(parentPath(dst)), 0o755); err != nil {
			return err
		}
	}
	return a.fs.Rename(a.real(src), a.real(dst))
}

// Touch creates p, or truncates it / bumps its timestamps when it exists
func (a *AferoFS) Touch(p string, truncate bool) error {
	p = cleanPath(p)
	exists, err := a.Exists(p)
	if err != nil {
		return err
	}
	if exists && !truncate {
		now := time.Now()
		return a.fs.Chtimes(a.real(p), now, now)
	}
	f, err := a.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Chmod changes the mode of p
func (a *AferoFS) Chmod(p string, mode os.FileMode) error {
	return a.fs.Chmod(a.real(p), mode)
}

// Chown changes the ownership of p
func (a *AferoFS) Chown(p string, uid, gid int) error {
	return a.fs.Chown(a.real(p), uid, gid)
}

// Chtimes changes the access and modification times of p
func (a *AferoFS) Chtimes(p string, atime, mtime time.Time) error {
	return a.fs.Chtimes(a.real(p), atime, mtime)
}

// copyFile streams src on one filesystem into dst on another. bufSize 0 lets io.Copy pick.
func copyFile(from Filesystem, src string, to Filesystem, dst string, perm os.FileMode, bufSize int) (err error) {
	in, err := from.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := to.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	if bufSize > 0 {
		_, err = io.CopyBuffer(out, in, make([]byte, bufSize))
		return err
	}
	_, err = io.Copy(out, in)
	return err
}

// baseName returns the last element of a root-relative path
func baseName(p string) string {
	p = cleanPath(p)
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}
