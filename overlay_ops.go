package compositefs

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// ensureParent makes the parent of p exist in delta. A logically absent parent
// is created through Makedirs so deleted ancestors are revived correctly.
func (o *Overlay) ensureParent(p string) error {
	parent := parentPath(p)
	if parent == "" {
		return nil
	}
	res, err := o.resolve(parent)
	if err != nil {
		return err
	}
	if !res.exists {
		return o.Makedirs(parent, true)
	}
	if res.where == layerBase {
		return o.delta.Makedirs(parent, true)
	}
	return nil
}

// prepareWrite readies delta for a write to p with the given open flags
func (o *Overlay) prepareWrite(op, p string, flag int) error {
	if p == "" {
		return pathError(op, p, ErrIsDir)
	}
	res, err := o.resolve(p)
	if err != nil {
		return err
	}
	if res.exists && flag&os.O_CREATE != 0 && flag&os.O_EXCL != 0 {
		return pathError(op, p, ErrAlreadyExists)
	}
	if err := o.ensureParent(p); err != nil {
		return err
	}

	marker := p + DeletedSuffix
	resurrected, err := o.delta.Exists(marker)
	if err != nil {
		return err
	}
	if resurrected {
		return o.removeMarker(marker)
	}

	// a partial write to base content needs the current bytes in delta first
	if res.exists && res.where == layerBase && flag&os.O_TRUNC == 0 {
		return o.copyUp(p)
	}
	return nil
}

// prepareMkdir runs before a directory is created in delta. It reports done
// when nothing is left to create. Nothing is changed when the parent of p
// would still be missing and createParents is false.
func (o *Overlay) prepareMkdir(op, p string, existOK, createParents bool) (bool, error) {
	res, err := o.resolve(p)
	if err != nil {
		return false, err
	}
	if res.exists {
		if existOK {
			return true, nil
		}
		return false, pathError(op, p, ErrAlreadyExists)
	}

	switch res.mod {
	case modDeleted:
		if !createParents && res.path != p && res.path != parentPath(p) {
			return false, pathError(op, p, ErrNotFound)
		}
		// revive the deleted ancestor and keep the stale base subtree hidden
		if err := o.delta.Makedirs(res.path, true); err != nil {
			return false, err
		}
		if err := o.removeMarker(res.path + DeletedSuffix); err != nil {
			return false, err
		}
		o.log.WithFields(logrus.Fields{"path": res.path}).Debug("marking replaced")
		if err := o.delta.Makedirs(res.path+ReplacedSuffix, true); err != nil {
			return false, err
		}
		return res.path == p, nil
	case modReplaced:
		return false, nil
	}

	parent := parentPath(p)
	if parent == "" {
		return false, nil
	}
	inBase, err := o.base.IsDir(parent)
	if err != nil {
		return false, err
	}
	if inBase {
		if err := o.delta.Makedirs(parent, true); err != nil {
			return false, err
		}
	}
	return false, nil
}

// Mkdir creates the directory p in delta, reviving a deleted ancestor when needed
func (o *Overlay) Mkdir(p string, createParents bool) error {
	p = cleanPath(p)
	if p == "" {
		return pathError("mkdir", p, ErrAlreadyExists)
	}
	done, err := o.prepareMkdir("mkdir", p, false, createParents)
	if err != nil || done {
		return err
	}
	return o.delta.Mkdir(p, createParents)
}

// Makedirs creates p and any missing parents in delta
func (o *Overlay) Makedirs(p string, existOK bool) error {
	p = cleanPath(p)
	if p == "" {
		if existOK {
			return nil
		}
		return pathError("makedirs", p, ErrAlreadyExists)
	}
	done, err := o.prepareMkdir("makedirs", p, existOK, true)
	if err != nil || done {
		return err
	}
	return o.delta.Makedirs(p, true)
}

// Rmdir removes the directory p and everything below it from the merged view
func (o *Overlay) Rmdir(p string) error {
	p = cleanPath(p)
	if p == "" {
		return pathError("rmdir", p, ErrInvalidOperation)
	}
	fsys, res, err := o.existing("rmdir", p)
	if err != nil {
		return err
	}
	isDir, err := fsys.IsDir(p)
	if err != nil {
		return err
	}
	if !isDir {
		return pathError("rmdir", p, ErrNotDir)
	}

	inBase, err := o.inBase(p)
	if err != nil {
		return err
	}
	if res.where == layerDelta {
		if err := o.delta.Rm(p, true, NoMaxDepth); err != nil {
			return err
		}
	}
	if err := o.removeMarker(p + ReplacedSuffix); err != nil {
		return err
	}
	if !inBase {
		return nil
	}
	o.log.WithFields(logrus.Fields{"path": p}).Debug("marking directory deleted")
	return o.delta.Makedirs(p+DeletedSuffix, true)
}

// RmFile removes the file p. Base files are hidden with a marker.
func (o *Overlay) RmFile(p string) error {
	p = cleanPath(p)
	fsys, res, err := o.existing("rm_file", p)
	if err != nil {
		return err
	}
	isDir, err := fsys.IsDir(p)
	if err != nil {
		return err
	}
	if isDir {
		return pathError("rm_file", p, ErrIsDir)
	}

	if res.where == layerBase {
		return o.touchMarker(p)
	}
	if err := o.delta.RmFile(p); err != nil {
		return err
	}
	return o.shadowBase(p)
}

// inBase reports whether base has p and nothing above p hides it
func (o *Overlay) inBase(p string) (bool, error) {
	res, err := o.resolve(parentPath(p))
	if err != nil {
		return false, err
	}
	if !res.exists || !res.baseVisible() {
		return false, nil
	}
	return o.base.Exists(p)
}

// shadowBase marks p deleted when base still has an entry that would show through
func (o *Overlay) shadowBase(p string) error {
	inBase, err := o.inBase(p)
	if err != nil || !inBase {
		return err
	}
	return o.touchMarker(p)
}

// Rm removes p. A recursive removal of base content hides the whole subtree
// behind one marker on p.
func (o *Overlay) Rm(p string, recursive bool, maxDepth int) error {
	p = cleanPath(p)
	if maxDepth != NoMaxDepth {
		return pathError("rm", p, ErrUnsupported)
	}
	if p == "" {
		return pathError("rm", p, ErrInvalidOperation)
	}
	fsys, res, err := o.existing("rm", p)
	if err != nil {
		return err
	}
	if !recursive {
		isDir, err := fsys.IsDir(p)
		if err != nil {
			return err
		}
		if isDir {
			entries, err := o.Ls(p)
			if err != nil {
				return err
			}
			if len(entries) > 0 {
				return pathError("rm", p, ErrNotEmpty)
			}
		}
	}

	if err := o.removeMarker(p + ReplacedSuffix); err != nil {
		return err
	}
	if res.where == layerBase {
		return o.touchMarker(p)
	}
	if err := o.delta.Rm(p, true, NoMaxDepth); err != nil {
		return err
	}
	return o.shadowBase(p)
}

// prepareDest readies delta for a copy or move landing on dst
func (o *Overlay) prepareDest(op, dst string) error {
	if dst == "" {
		return pathError(op, dst, ErrIsDir)
	}
	if err := o.ensureParent(dst); err != nil {
		return err
	}
	return o.removeMarker(dst + DeletedSuffix)
}

// CpFile copies src to dst. The copy always lands in delta.
func (o *Overlay) CpFile(src, dst string) error {
	src, dst = cleanPath(src), cleanPath(dst)
	fsys, res, err := o.existing("cp_file", src)
	if err != nil {
		return err
	}
	e, err := fsys.Info(src)
	if err != nil {
		return err
	}
	if e.IsDir() {
		return o.Makedirs(dst, true)
	}
	if err := o.prepareDest("cp_file", dst); err != nil {
		return err
	}
	if res.where == layerDelta {
		return o.delta.CpFile(src, dst)
	}
	o.log.WithFields(logrus.Fields{"path": src, "dest": dst}).Debug("copying from base")
	return copyFile(o.base, src, o.delta, dst, e.Mode.Perm(), o.bufSize)
}

// Mv renames src to dst. Content only in base is copied into delta and the
// source hidden with a marker.
func (o *Overlay) Mv(src, dst string) error {
	src, dst = cleanPath(src), cleanPath(dst)
	if src == "" {
		return pathError("mv", src, ErrInvalidOperation)
	}
	fsys, res, err := o.existing("mv", src)
	if err != nil {
		return err
	}
	isDir, err := fsys.IsDir(src)
	if err != nil {
		return err
	}

	inBase, err := o.inBase(src)
	if err != nil {
		return err
	}
	if isDir && inBase {
		// moving merged directories would need a recursive copy across layers
		return pathError("mv", src, ErrUnsupported)
	}

	if res.where == layerDelta {
		if err := o.prepareDest("mv", dst); err != nil {
			return err
		}
		if err := o.delta.Mv(src, dst); err != nil {
			return err
		}
		if inBase {
			return o.touchMarker(src)
		}
		return nil
	}

	if err := o.CpFile(src, dst); err != nil {
		return err
	}
	return o.RmFile(src)
}

// Touch creates p in delta or updates it. Without truncation base content is copied up first.
func (o *Overlay) Touch(p string, truncate bool) error {
	p = cleanPath(p)
	flag := os.O_WRONLY | os.O_CREATE
	if truncate {
		flag |= os.O_TRUNC
	}
	if err := o.prepareWrite("touch", p, flag); err != nil {
		return err
	}
	return o.delta.Touch(p, truncate)
}

// attrs copies p up into delta and returns delta's attribute interface
func (o *Overlay) attrs(op, p string) (AttrFS, error) {
	p = cleanPath(p)
	_, res, err := o.existing(op, p)
	if err != nil {
		return nil, err
	}
	a, ok := o.delta.(AttrFS)
	if !ok {
		return nil, pathError(op, p, ErrUnsupported)
	}
	if res.where == layerBase {
		if err := o.copyUp(p); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Chmod copies p up into delta and changes its mode there
func (o *Overlay) Chmod(p string, mode os.FileMode) error {
	a, err := o.attrs("chmod", p)
	if err != nil {
		return err
	}
	return a.Chmod(p, mode)
}

// Chown copies p up into delta and changes its owner there
func (o *Overlay) Chown(p string, uid, gid int) error {
	a, err := o.attrs("chown", p)
	if err != nil {
		return err
	}
	return a.Chown(p, uid, gid)
}

// Chtimes copies p up into delta and changes its times there
func (o *Overlay) Chtimes(p string, atime, mtime time.Time) error {
	a, err := o.attrs("chtimes", p)
	if err != nil {
		return err
	}
	return a.Chtimes(p, atime, mtime)
}
