package compositefs

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// guard resolves p for a mutation and runs the mount permission check
func (r *Router) guard(op, p string, a access) (*mount, string, string, error) {
	m, key, rest, err := r.resolve(op, p)
	if err != nil {
		return nil, "", "", err
	}
	if err := r.policy.check(m.perms, m.fs, op, key, rest, a); err != nil {
		return nil, "", "", err
	}
	return m, key, rest, nil
}

// guardRemoval is guard for removals, which never apply to the root or a mount point
func (r *Router) guardRemoval(op, p string) (*mount, string, string, error) {
	p = cleanPath(p)
	if p == "" {
		return nil, "", "", pathError(op, p, ErrInvalidOperation)
	}
	m, key, rest, err := r.guard(op, p, accessDelete)
	if err != nil {
		return nil, "", "", err
	}
	if rest == "" && key != "" {
		return nil, "", "", pathError(op, p, ErrInvalidOperation)
	}
	return m, key, rest, nil
}

// OpenFile opens p on its mount. Write flags are checked against the mount permissions.
func (r *Router) OpenFile(p string, flag int, perm os.FileMode) (File, error) {
	if !isWriteFlag(flag) {
		m, _, rest, err := r.resolve("open", p)
		if err != nil {
			return nil, err
		}
		return m.fs.OpenFile(rest, flag, perm)
	}
	m, _, rest, err := r.guard("open", p, accessWrite)
	if err != nil {
		return nil, err
	}
	return m.fs.OpenFile(rest, flag, perm)
}

// Mkdir creates the directory p on its mount
func (r *Router) Mkdir(p string, createParents bool) error {
	if cleanPath(p) == "" {
		return pathError("mkdir", "", ErrAlreadyExists)
	}
	m, _, rest, err := r.guard("mkdir", p, accessCreate)
	if err != nil {
		return err
	}
	return m.fs.Mkdir(rest, createParents)
}

// Makedirs creates p and any missing parents on its mount
func (r *Router) Makedirs(p string, existOK bool) error {
	if cleanPath(p) == "" {
		if existOK {
			return nil
		}
		return pathError("makedirs", "", ErrAlreadyExists)
	}
	m, _, rest, err := r.guard("makedirs", p, accessCreate)
	if err != nil {
		return err
	}
	return m.fs.Makedirs(rest, existOK)
}

// Rmdir removes the directory p. Neither the root nor a mount point can be removed.
func (r *Router) Rmdir(p string) error {
	m, _, rest, err := r.guardRemoval("rmdir", p)
	if err != nil {
		return err
	}
	return m.fs.Rmdir(rest)
}

// RmFile removes the file p on its mount
func (r *Router) RmFile(p string) error {
	m, _, rest, err := r.guardRemoval("rm_file", p)
	if err != nil {
		return err
	}
	return m.fs.RmFile(rest)
}

// Rm removes p. A bounded maxDepth loses the level consumed by the mount key.
func (r *Router) Rm(p string, recursive bool, maxDepth int) error {
	m, key, rest, err := r.guardRemoval("rm", p)
	if err != nil {
		return err
	}
	if maxDepth != NoMaxDepth && key != "" {
		maxDepth = max(maxDepth-1, 1)
	}
	return m.fs.Rm(rest, recursive, maxDepth)
}

// CpFile copies src to dst, delegating when both resolve to the same filesystem
func (r *Router) CpFile(src, dst string) error {
	sm, skey, srest, err := r.resolve("cp_file", src)
	if err != nil {
		return err
	}
	dm, dkey, drest, err := r.guard("cp_file", dst, accessWrite)
	if err != nil {
		return err
	}
	if sm.fs.Fingerprint() == dm.fs.Fingerprint() {
		return sm.fs.CpFile(srest, drest)
	}
	return r.copyAcross(sm, skey, srest, dm, dkey, drest)
}

// copyAcross streams a file between two different mounted filesystems
func (r *Router) copyAcross(sm *mount, skey, srest string, dm *mount, dkey, drest string) error {
	e, err := sm.fs.Info(srest)
	if err != nil {
		return err
	}
	if e.IsDir() {
		return dm.fs.Makedirs(drest, true)
	}
	r.log.WithFields(logrus.Fields{
		"path":  rename(skey, srest),
		"mount": skey,
		"dest":  rename(dkey, drest),
	}).Debug("copying across filesystems")
	return copyFile(sm.fs, srest, dm.fs, drest, e.Mode.Perm(), r.bufSize)
}

// Mv renames src to dst. Across filesystems the file is copied, then the source removed.
func (r *Router) Mv(src, dst string) error {
	sm, skey, srest, err := r.guardRemoval("mv", src)
	if err != nil {
		return err
	}
	dm, dkey, drest, err := r.guard("mv", dst, accessWrite)
	if err != nil {
		return err
	}
	if sm.fs.Fingerprint() == dm.fs.Fingerprint() {
		return sm.fs.Mv(srest, drest)
	}

	isDir, err := sm.fs.IsDir(srest)
	if err != nil {
		return err
	}
	if isDir {
		return pathError("mv", cleanPath(src), ErrUnsupported)
	}
	if err := r.copyAcross(sm, skey, srest, dm, dkey, drest); err != nil {
		return err
	}
	return sm.fs.RmFile(srest)
}

// Touch creates p on its mount or updates its times
func (r *Router) Touch(p string, truncate bool) error {
	m, _, rest, err := r.guard("touch", p, accessWrite)
	if err != nil {
		return err
	}
	return m.fs.Touch(rest, truncate)
}

// attrs resolves p for an attribute change
func (r *Router) attrs(op, p string) (AttrFS, string, error) {
	m, _, rest, err := r.guard(op, p, accessCreate)
	if err != nil {
		return nil, "", err
	}
	a, ok := m.fs.(AttrFS)
	if !ok {
		return nil, "", pathError(op, cleanPath(p), ErrUnsupported)
	}
	return a, rest, nil
}

// Chmod changes the mode of p on its mount
func (r *Router) Chmod(p string, mode os.FileMode) error {
	a, rest, err := r.attrs("chmod", p)
	if err != nil {
		return err
	}
	return a.Chmod(rest, mode)
}

// Chown changes the owner of p on its mount
func (r *Router) Chown(p string, uid, gid int) error {
	a, rest, err := r.attrs("chown", p)
	if err != nil {
		return err
	}
	return a.Chown(rest, uid, gid)
}

// Chtimes changes the times of p on its mount
func (r *Router) Chtimes(p string, atime, mtime time.Time) error {
	a, rest, err := r.attrs("chtimes", p)
	if err != nil {
		return err
	}
	return a.Chtimes(rest, atime, mtime)
}
