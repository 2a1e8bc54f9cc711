package compositefs

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// copyUp copies p from base into delta so it can be modified there
func (o *Overlay) copyUp(p string) error {
	inDelta, err := o.delta.Exists(p)
	if err != nil {
		return err
	}
	if inDelta {
		return nil
	}

	e, err := o.base.Info(p)
	if err != nil {
		return err
	}
	if err := o.ensureParent(p); err != nil {
		return err
	}

	o.log.WithFields(logrus.Fields{"path": p, "type": e.Type}).Debug("copying up")
	if e.IsDir() {
		return o.copyUpDir(p, e)
	}
	return o.copyUpFile(p, e)
}

// copyUpFile copies a regular file into delta
func (o *Overlay) copyUpFile(p string, e Entry) error {
	if err := copyFile(o.base, p, o.delta, p, e.Mode.Perm(), o.bufSize); err != nil {
		return fmt.Errorf("failed to copy up %s: %w", p, err)
	}
	o.preserveAttrs(p, e)
	return nil
}

// copyUpDir creates the directory in delta; its children stay in base
func (o *Overlay) copyUpDir(p string, e Entry) error {
	if err := o.delta.Makedirs(p, true); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", p, err)
	}
	o.preserveAttrs(p, e)
	return nil
}

// preserveAttrs carries mode and modification time over when delta supports it.
// Failures are not fatal.
func (o *Overlay) preserveAttrs(p string, e Entry) {
	a, ok := o.delta.(AttrFS)
	if !ok {
		return
	}
	if err := a.Chmod(p, e.Mode.Perm()); err != nil {
		o.log.WithFields(logrus.Fields{"path": p}).WithError(err).Debug("keeping default mode")
	}
	if err := a.Chtimes(p, e.Modified, e.Modified); err != nil {
		o.log.WithFields(logrus.Fields{"path": p}).WithError(err).Debug("keeping current times")
	}
}
