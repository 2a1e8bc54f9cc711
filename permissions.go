package compositefs

import (
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Permissions restrict what may be done through a mount. Absent flags default to true.
type Permissions struct {
	AllowWrite     bool `yaml:"allow_write" json:"allow_write"`
	AllowOverwrite bool `yaml:"allow_overwrite" json:"allow_overwrite"`
	AllowDelete    bool `yaml:"allow_delete" json:"allow_delete"`
}

// DefaultPermissions allows everything
func DefaultPermissions() Permissions {
	return Permissions{AllowWrite: true, AllowOverwrite: true, AllowDelete: true}
}

// UnmarshalYAML fills unspecified flags with their permissive default
func (p *Permissions) UnmarshalYAML(value *yaml.Node) error {
	type raw Permissions
	r := raw(DefaultPermissions())
	if err := value.Decode(&r); err != nil {
		return err
	}
	*p = Permissions(r)
	return nil
}

// access is the kind of mutation a permission check guards
type access int

const (
	// accessCreate creates directories
	accessCreate access = iota
	// accessWrite creates or modifies file content
	accessWrite
	// accessDelete removes entries, including the source of a move
	accessDelete
)

func (a access) String() string {
	switch a {
	case accessCreate:
		return "create"
	case accessWrite:
		return "write"
	case accessDelete:
		return "delete"
	}
	return "unknown"
}

// policy decides whether a mutation may proceed on a mount
type policy struct {
	enforce bool
	log     logrus.FieldLogger
}

// check returns nil when perms allow the access to p on fsys. A refusal is only
// returned when the policy is enforced; otherwise it is logged and allowed.
func (pl policy) check(perms Permissions, fsys Filesystem, op, key, p string, a access) error {
	reason := ""
	switch a {
	case accessCreate:
		if !perms.AllowWrite {
			reason = "writes disabled"
		}
	case accessWrite:
		if !perms.AllowWrite {
			reason = "writes disabled"
		} else if !perms.AllowOverwrite {
			isFile, err := fsys.IsFile(p)
			if err != nil {
				return err
			}
			if isFile {
				reason = "overwrites disabled"
			}
		}
	case accessDelete:
		if !perms.AllowDelete {
			reason = "deletes disabled"
		}
	}
	if reason == "" {
		return nil
	}

	fields := logrus.Fields{"path": p, "mount": key, "op": op, "access": a.String()}
	if !pl.enforce {
		pl.log.WithFields(fields).Debugf("permission not enforced: %s", reason)
		return nil
	}
	pl.log.WithFields(fields).Debugf("permission denied: %s", reason)
	return pathError(op, joinPath(key, p), ErrPermissionDenied)
}
