package compositefs

import (
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"
	"github.com/spf13/afero"
)

// filer presents a Filesystem as an absfs.Filer
type filer struct {
	fsys Filesystem
}

var (
	_ absfs.Filer     = (*filer)(nil)
	_ absfs.SymLinker = (*filer)(nil)
)

// AbsFS returns an absfs.FileSystem view of fsys. The view keeps its own
// working directory and adds the absfs convenience methods such as Create,
// MkdirAll, RemoveAll and Truncate.
//
// Example:
//
//	overlay, _ := compositefs.NewOverlay(delta, base)
//	view := compositefs.AbsFS(overlay)
//	view.Chdir("/app")
//	f, err := view.Open("config.yml")
func AbsFS(fsys Filesystem) absfs.FileSystem {
	return absfs.ExtendFiler(&filer{fsys: fsys})
}

// AbsSymlinkFS is AbsFS with the absfs symlink calls routed to fsys.
// Filesystems without link support answer Symlink and Readlink with
// ErrUnsupported and Lstat with Stat.
func AbsSymlinkFS(fsys Filesystem) absfs.SymlinkFileSystem {
	return absfs.ExtendSymlinkFiler(&filer{fsys: fsys})
}

// OpenFile implements absfs.Filer
func (a *filer) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	f, err := a.fsys.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return absFile{f}, nil
}

// Open skips the working-directory join; names are already absolute here
func (a *filer) Open(name string) (absfs.File, error) {
	f, err := a.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	return absFile{f}, nil
}

// Mkdir implements absfs.Filer
func (a *filer) Mkdir(name string, perm os.FileMode) error {
	return a.fsys.Mkdir(name, false)
}

// MkdirAll creates name and any missing parents
func (a *filer) MkdirAll(name string, perm os.FileMode) error {
	return a.fsys.Makedirs(name, true)
}

// Remove implements absfs.Filer
func (a *filer) Remove(name string) error {
	isDir, err := a.fsys.IsDir(name)
	if err != nil {
		return err
	}
	if isDir {
		return a.fsys.Rm(name, false, NoMaxDepth)
	}
	return a.fsys.RmFile(name)
}

// RemoveAll removes name and everything below it. A missing name is not an error.
func (a *filer) RemoveAll(name string) error {
	exists, err := a.fsys.Exists(name)
	if err != nil || !exists {
		return err
	}
	return a.fsys.Rm(name, true, NoMaxDepth)
}

// Rename implements absfs.Filer
func (a *filer) Rename(oldpath, newpath string) error {
	return a.fsys.Mv(oldpath, newpath)
}

// Stat implements absfs.Filer
func (a *filer) Stat(name string) (os.FileInfo, error) {
	e, err := a.fsys.Info(name)
	if err != nil {
		return nil, err
	}
	return entryInfo{e}, nil
}

func (a *filer) attrs(op, name string) (AttrFS, error) {
	attrs, ok := a.fsys.(AttrFS)
	if !ok {
		return nil, pathError(op, cleanPath(name), ErrUnsupported)
	}
	return attrs, nil
}

// Chmod implements absfs.Filer
func (a *filer) Chmod(name string, mode os.FileMode) error {
	attrs, err := a.attrs("chmod", name)
	if err != nil {
		return err
	}
	return attrs.Chmod(name, mode)
}

// Chtimes implements absfs.Filer
func (a *filer) Chtimes(name string, atime time.Time, mtime time.Time) error {
	attrs, err := a.attrs("chtimes", name)
	if err != nil {
		return err
	}
	return attrs.Chtimes(name, atime, mtime)
}

// Chown implements absfs.Filer
func (a *filer) Chown(name string, uid, gid int) error {
	attrs, err := a.attrs("chown", name)
	if err != nil {
		return err
	}
	return attrs.Chown(name, uid, gid)
}

// Lstat implements absfs.SymLinker
func (a *filer) Lstat(name string) (os.FileInfo, error) {
	return lstat(a.fsys, cleanPath(name))
}

// Lchown changes the owner of name. Links are followed.
func (a *filer) Lchown(name string, uid, gid int) error {
	return a.Chown(name, uid, gid)
}

// Readlink implements absfs.SymLinker
func (a *filer) Readlink(name string) (string, error) {
	return readlink(a.fsys, cleanPath(name))
}

// Symlink implements absfs.SymLinker
func (a *filer) Symlink(oldname, newname string) error {
	return symlink(a.fsys, oldname, cleanPath(newname))
}

// ReadDir implements absfs.Filer
func (a *filer) ReadDir(name string) ([]fs.DirEntry, error) {
	entries, err := a.fsys.Ls(name)
	if err != nil {
		return nil, err
	}
	if len(entries) == 1 && entries[0].Name == cleanPath(name) && !entries[0].IsDir() {
		return nil, pathError("readdir", cleanPath(name), ErrNotDir)
	}
	out := make([]fs.DirEntry, len(entries))
	for i, e := range entries {
		out[i] = fs.FileInfoToDirEntry(entryInfo{e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// ReadFile implements absfs.Filer
func (a *filer) ReadFile(name string) ([]byte, error) {
	return Cat(a.fsys, name)
}

// Sub implements absfs.Filer
func (a *filer) Sub(dir string) (fs.FS, error) {
	return absfs.FilerToFS(a, dir)
}

// Truncate changes the size of the named file
func (a *filer) Truncate(name string, size int64) (err error) {
	f, err := a.fsys.OpenFile(name, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return f.Truncate(size)
}

// absFile adds ReadDir to an afero file so it satisfies absfs.File
type absFile struct {
	File
}

// ReadDir converts Readdir results to directory entries
func (f absFile) ReadDir(n int) ([]fs.DirEntry, error) {
	infos, err := f.Readdir(n)
	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = fs.FileInfoToDirEntry(info)
	}
	return entries, err
}

// aferoAbs presents an absfs.FileSystem as an afero.Fs so it can back an AferoFS
type aferoAbs struct {
	fs absfs.FileSystem
}

var _ afero.Fs = (*aferoAbs)(nil)

// NewAbsFS wraps an absfs.FileSystem as a backing Filesystem
func NewAbsFS(name string, fsys absfs.FileSystem, opts ...AferoOption) *AferoFS {
	return NewAferoFS(name, &aferoAbs{fs: fsys}, opts...)
}

// NewAbsMemFS returns an empty absfs memfs as a backing Filesystem
func NewAbsMemFS(opts ...AferoOption) (*AferoFS, error) {
	m, err := memfs.NewFS()
	if err != nil {
		return nil, err
	}
	return NewAbsFS("absmem", m, opts...), nil
}

// Name implements afero.Fs
func (a *aferoAbs) Name() string {
	return "absfs"
}

// Create implements afero.Fs
func (a *aferoAbs) Create(name string) (afero.File, error) {
	return a.fs.Create(name)
}

func (a *aferoAbs) Mkdir(name string, perm os.FileMode) error {
	return a.fs.Mkdir(name, perm)
}

func (a *aferoAbs) MkdirAll(name string, perm os.FileMode) error {
	return a.fs.MkdirAll(name, perm)
}

func (a *aferoAbs) Open(name string) (afero.File, error) {
	return a.fs.Open(name)
}

// OpenFile implements afero.Fs
func (a *aferoAbs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	return a.fs.OpenFile(name, flag, perm)
}

func (a *aferoAbs) Remove(name string) error {
	return a.fs.Remove(name)
}

func (a *aferoAbs) RemoveAll(name string) error {
	return a.fs.RemoveAll(name)
}

// Rename implements afero.Fs
func (a *aferoAbs) Rename(oldname, newname string) error {
	return a.fs.Rename(oldname, newname)
}

// Stat implements afero.Fs
func (a *aferoAbs) Stat(name string) (os.FileInfo, error) {
	return a.fs.Stat(name)
}

func (a *aferoAbs) Chmod(name string, mode os.FileMode) error {
	return a.fs.Chmod(name, mode)
}

func (a *aferoAbs) Chown(name string, uid, gid int) error {
	return a.fs.Chown(name, uid, gid)
}

func (a *aferoAbs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return a.fs.Chtimes(name, atime, mtime)
}
