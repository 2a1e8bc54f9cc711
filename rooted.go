package compositefs

import (
	"iter"
	"os"
	"strings"
	"time"
)

// Rooted confines a Filesystem to a sub-path, presenting it as the whole filesystem
type Rooted struct {
	FS   Filesystem
	Root string

	fingerprint string
}

var (
	_ Filesystem = (*Rooted)(nil)
	_ AttrFS     = (*Rooted)(nil)
)

// NewRooted returns fsys confined to root
func NewRooted(fsys Filesystem, root string) *Rooted {
	root = cleanPath(root)
	return &Rooted{
		FS:          fsys,
		Root:        root,
		fingerprint: hashStrings("dir", fsys.Fingerprint(), root),
	}
}

// String returns the wrapped filesystem and root
func (r *Rooted) String() string {
	return r.FS.Name() + ":" + r.Root
}

func (r *Rooted) full(p string) string {
	return joinPath(r.Root, cleanPath(p))
}

// strip converts a name of the wrapped filesystem back to a rooted name
func (r *Rooted) strip(name string) string {
	name = cleanPath(name)
	if r.Root == "" {
		return name
	}
	if name == r.Root {
		return ""
	}
	return strings.TrimPrefix(name, r.Root+"/")
}

// Name returns the protocol label
func (r *Rooted) Name() string {
	return "dir"
}

// Fingerprint identifies the wrapped filesystem and root
func (r *Rooted) Fingerprint() string {
	return r.fingerprint
}

// Info returns the metadata of p with the name made root-relative
func (r *Rooted) Info(p string) (Entry, error) {
	e, err := r.FS.Info(r.full(p))
	if err != nil {
		return Entry{}, err
	}
	return e.withName(r.strip(e.Name)), nil
}

// Exists reports whether p exists below the root
func (r *Rooted) Exists(p string) (bool, error) {
	return r.FS.Exists(r.full(p))
}

// Lexists is Exists without following a final symlink
func (r *Rooted) Lexists(p string) (bool, error) {
	return r.FS.Lexists(r.full(p))
}

// IsDir reports whether p is a directory
func (r *Rooted) IsDir(p string) (bool, error) {
	return r.FS.IsDir(r.full(p))
}

// IsFile reports whether p is a regular file
func (r *Rooted) IsFile(p string) (bool, error) {
	return r.FS.IsFile(r.full(p))
}

// Ls lists p with root-relative names
func (r *Rooted) Ls(p string) ([]Entry, error) {
	entries, err := r.FS.Ls(r.full(p))
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i] = entries[i].withName(r.strip(entries[i].Name))
	}
	return entries, nil
}

// Walk traverses p with root-relative directory names
func (r *Rooted) Walk(p string, maxDepth int) iter.Seq2[WalkEntry, error] {
	inner := r.FS.Walk(r.full(p), maxDepth)
	return func(yield func(WalkEntry, error) bool) {
		for we, err := range inner {
			if err == nil {
				we.Dir = r.strip(we.Dir)
			}
			if !yield(we, err) {
				return
			}
		}
	}
}

// Open opens p for reading
func (r *Rooted) Open(p string) (File, error) {
	return r.FS.Open(r.full(p))
}

// OpenFile opens p below the root
func (r *Rooted) OpenFile(p string, flag int, perm os.FileMode) (File, error) {
	return r.FS.OpenFile(r.full(p), flag, perm)
}

// Mkdir creates the directory p
func (r *Rooted) Mkdir(p string, createParents bool) error {
	return r.FS.Mkdir(r.full(p), createParents)
}

// Makedirs creates p and any missing parents
func (r *Rooted) Makedirs(p string, existOK bool) error {
	return r.FS.Makedirs(r.full(p), existOK)
}

// Rmdir removes the empty directory p. The root itself cannot be removed.
func (r *Rooted) Rmdir(p string) error {
	if cleanPath(p) == "" {
		return pathError("rmdir", "", ErrInvalidOperation)
	}
	return r.FS.Rmdir(r.full(p))
}

// RmFile removes the file p
func (r *Rooted) RmFile(p string) error {
	return r.FS.RmFile(r.full(p))
}

// Rm removes p, recursively when asked
func (r *Rooted) Rm(p string, recursive bool, maxDepth int) error {
	if cleanPath(p) == "" {
		return pathError("rm", "", ErrInvalidOperation)
	}
	return r.FS.Rm(r.full(p), recursive, maxDepth)
}

// CpFile copies src to dst
func (r *Rooted) CpFile(src, dst string) error {
	return r.FS.CpFile(r.full(src), r.full(dst))
}

// Mv renames src to dst
func (r *Rooted) Mv(src, dst string) error {
	return r.FS.Mv(r.full(src), r.full(dst))
}

// Touch creates p or updates its times
func (r *Rooted) Touch(p string, truncate bool) error {
	return r.FS.Touch(r.full(p), truncate)
}

func (r *Rooted) attrs(op, p string) (AttrFS, error) {
	a, ok := r.FS.(AttrFS)
	if !ok {
		return nil, pathError(op, cleanPath(p), ErrUnsupported)
	}
	return a, nil
}

// Chmod changes the mode of p
func (r *Rooted) Chmod(p string, mode os.FileMode) error {
	a, err := r.attrs("chmod", p)
	if err != nil {
		return err
	}
	return a.Chmod(r.full(p), mode)
}

// Chown changes the owner of p
func (r *Rooted) Chown(p string, uid, gid int) error {
	a, err := r.attrs("chown", p)
	if err != nil {
		return err
	}
	return a.Chown(r.full(p), uid, gid)
}

// Chtimes changes the access and modification times of p
func (r *Rooted) Chtimes(p string, atime, mtime time.Time) error {
	a, err := r.attrs("chtimes", p)
	if err != nil {
		return err
	}
	return a.Chtimes(r.full(p), atime, mtime)
}
