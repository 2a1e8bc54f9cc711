package compositefs

import "os"

// LinkFS is implemented by filesystems that can create and read symbolic links
type LinkFS interface {
	Lstat(path string) (os.FileInfo, error)
	Readlink(path string) (string, error)
	Symlink(oldname, newname string) error
}

var (
	_ LinkFS = (*AferoFS)(nil)
	_ LinkFS = (*Rooted)(nil)
	_ LinkFS = (*Router)(nil)
	_ LinkFS = (*Overlay)(nil)
)

// lstat falls back to Info on filesystems without link support
func lstat(fsys Filesystem, p string) (os.FileInfo, error) {
	if l, ok := fsys.(LinkFS); ok {
		return l.Lstat(p)
	}
	e, err := fsys.Info(p)
	if err != nil {
		return nil, err
	}
	return entryInfo{e}, nil
}

func readlink(fsys Filesystem, p string) (string, error) {
	l, ok := fsys.(LinkFS)
	if !ok {
		return "", pathError("readlink", p, ErrUnsupported)
	}
	return l.Readlink(p)
}

func symlink(fsys Filesystem, oldname, newname string) error {
	l, ok := fsys.(LinkFS)
	if !ok {
		return pathError("symlink", newname, ErrUnsupported)
	}
	return l.Symlink(oldname, newname)
}

// Lstat returns the info of p without following a final symlink
func (r *Rooted) Lstat(p string) (os.FileInfo, error) {
	return lstat(r.FS, r.full(p))
}

// Readlink returns the destination of the symlink p. The target is returned as stored.
func (r *Rooted) Readlink(p string) (string, error) {
	return readlink(r.FS, r.full(p))
}

// Symlink creates newname pointing at oldname. oldname is stored verbatim.
func (r *Rooted) Symlink(oldname, newname string) error {
	return symlink(r.FS, oldname, r.full(newname))
}

// Lstat returns the info of p on its mount without following a final symlink
func (r *Router) Lstat(p string) (os.FileInfo, error) {
	if cleanPath(p) == "" {
		return entryInfo{syntheticDir("")}, nil
	}
	m, _, rest, err := r.resolve("lstat", p)
	if err != nil {
		return nil, err
	}
	return lstat(m.fs, rest)
}

// Readlink returns the destination of the symlink p on its mount
func (r *Router) Readlink(p string) (string, error) {
	m, _, rest, err := r.resolve("readlink", p)
	if err != nil {
		return "", err
	}
	return readlink(m.fs, rest)
}

// Symlink creates newname on its mount, subject to the mount's write permission
func (r *Router) Symlink(oldname, newname string) error {
	m, _, rest, err := r.guard("symlink", newname, accessWrite)
	if err != nil {
		return err
	}
	return symlink(m.fs, oldname, rest)
}

// linkLayer returns the layer holding the link p. A link in delta wins;
// a link in base is only visible when no marker hides it.
func (o *Overlay) linkLayer(op, p string) (Filesystem, error) {
	inDelta, err := o.delta.Lexists(p)
	if err != nil {
		return nil, err
	}
	if inDelta {
		return o.delta, nil
	}

	res, err := o.resolve(p)
	if err != nil {
		return nil, err
	}
	if res.where != layerBase || res.mod != modNone {
		return nil, pathError(op, p, ErrNotFound)
	}
	return o.base, nil
}

// Lstat returns the info of p without following a final symlink
func (o *Overlay) Lstat(p string) (os.FileInfo, error) {
	p = cleanPath(p)
	if p == "" {
		e, err := o.Info(p)
		if err != nil {
			return nil, err
		}
		return entryInfo{e}, nil
	}
	fsys, err := o.linkLayer("lstat", p)
	if err != nil {
		return nil, err
	}
	return lstat(fsys, p)
}

// Readlink returns the destination of the symlink p
func (o *Overlay) Readlink(p string) (string, error) {
	p = cleanPath(p)
	fsys, err := o.linkLayer("readlink", p)
	if err != nil {
		return "", err
	}
	return readlink(fsys, p)
}

// Symlink creates newname in delta, reviving a deleted path when needed
func (o *Overlay) Symlink(oldname, newname string) error {
	newname = cleanPath(newname)
	if err := o.prepareDest("symlink", newname); err != nil {
		return err
	}
	return symlink(o.delta, oldname, newname)
}
