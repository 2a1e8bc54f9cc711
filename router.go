package compositefs

import (
	"errors"
	"iter"
	"slices"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultMount is the mount key receiving every path whose first segment matches no other mount
const DefaultMount = "default"

// Mount binds a filesystem to a mount key. A nil Permissions allows everything.
type Mount struct {
	FS          Filesystem
	Permissions *Permissions
}

type mount struct {
	fs    Filesystem
	perms Permissions
}

// Router dispatches every operation to the filesystem mounted under the
// first segment of its path, falling back to the default mount.
type Router struct {
	mounts      map[string]*mount
	keys        []string // sorted, without DefaultMount
	fingerprint string
	factory     *Factory
	policy      policy
	log         logrus.FieldLogger
	bufSize     int
}

var (
	_ Filesystem = (*Router)(nil)
	_ AttrFS     = (*Router)(nil)
	_ getGuard   = (*Router)(nil)
)

// mountIdentity is the canonical form of one mount used for the router fingerprint
type mountIdentity struct {
	Fingerprint string      `cbor:"fingerprint"`
	Permissions Permissions `cbor:"permissions"`
}

// NewRouter builds a Router over mounts. Keys other than DefaultMount must be
// single non-empty path segments.
func NewRouter(mounts map[string]Mount, opts ...Option) (*Router, error) {
	s := newSettings(opts)
	r := &Router{
		mounts:  make(map[string]*mount, len(mounts)),
		policy:  policy{enforce: s.enforcePerms, log: s.log},
		log:     s.log,
		bufSize: s.copyBufferSize,
	}

	identity := make(map[string]mountIdentity, len(mounts))
	for key, m := range mounts {
		if key == "" || strings.Contains(key, "/") {
			return nil, pathError("mount", key, ErrInvalidOperation)
		}
		if m.FS == nil {
			return nil, pathError("mount", key, ErrInvalidOperation)
		}
		perms := DefaultPermissions()
		if m.Permissions != nil {
			perms = *m.Permissions
		}
		r.mounts[key] = &mount{fs: m.FS, perms: perms}
		if key != DefaultMount {
			r.keys = append(r.keys, key)
		}
		identity[key] = mountIdentity{Fingerprint: m.FS.Fingerprint(), Permissions: perms}
	}
	sort.Strings(r.keys)

	fp, err := hashValue(identity)
	if err != nil {
		return nil, err
	}
	r.fingerprint = fp
	return r, nil
}

// Name returns the protocol label
func (r *Router) Name() string {
	return "nested"
}

// Fingerprint identifies the mount configuration
func (r *Router) Fingerprint() string {
	return r.fingerprint
}

// Mounts returns the mount keys in sorted order, DefaultMount last when present
func (r *Router) Mounts() []string {
	keys := slices.Clone(r.keys)
	if _, ok := r.mounts[DefaultMount]; ok {
		keys = append(keys, DefaultMount)
	}
	return keys
}

// Mount returns the filesystem mounted under key
func (r *Router) Mount(key string) (Filesystem, bool) {
	m, ok := r.mounts[key]
	if !ok {
		return nil, false
	}
	return m.fs, true
}

// ClearInstanceCache drops instances cached by the factory that built this router
// and by any nested filesystem that keeps one.
func (r *Router) ClearInstanceCache() {
	if r.factory != nil {
		r.factory.ClearInstanceCache()
	}
	for _, m := range r.mounts {
		if c, ok := m.fs.(interface{ ClearInstanceCache() }); ok {
			c.ClearInstanceCache()
		}
	}
}

// resolve picks the mount for p and the path to hand to it
func (r *Router) resolve(op, p string) (*mount, string, string, error) {
	p = cleanPath(p)
	head, rest, found := strings.Cut(p, "/")
	if !found {
		if m, ok := r.mounts[p]; ok {
			r.trace(p, p, rest)
			return m, p, "", nil
		}
	} else if m, ok := r.mounts[head]; ok {
		r.trace(p, head, rest)
		return m, head, rest, nil
	}

	m, ok := r.mounts[DefaultMount]
	if !ok {
		r.log.WithFields(logrus.Fields{"path": p}).Debug("no mount for path")
		return nil, "", p, pathError(op, p, ErrNoMount)
	}
	r.trace(p, DefaultMount, p)
	return m, "", p, nil
}

func (r *Router) trace(p, key, rest string) {
	r.log.WithFields(logrus.Fields{"path": p, "mount": key, "rest": rest}).Debug("resolved")
}

// rename maps a name of a mounted filesystem back to a router path
func rename(key, name string) string {
	return joinPath(key, name)
}

// Info returns the metadata of p. Names are router-relative.
func (r *Router) Info(p string) (Entry, error) {
	if cleanPath(p) == "" {
		return syntheticDir(""), nil
	}
	m, key, rest, err := r.resolve("info", p)
	if err != nil {
		return Entry{}, err
	}
	e, err := m.fs.Info(rest)
	if err != nil {
		return Entry{}, err
	}
	return e.withName(rename(key, e.Name)), nil
}

// Exists reports whether p exists on its mount. Unmounted paths do not exist.
func (r *Router) Exists(p string) (bool, error) {
	if cleanPath(p) == "" {
		return true, nil
	}
	m, _, rest, err := r.resolve("exists", p)
	if errors.Is(err, ErrNoMount) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.fs.Exists(rest)
}

// Lexists is Exists without following a final symlink
func (r *Router) Lexists(p string) (bool, error) {
	if cleanPath(p) == "" {
		return true, nil
	}
	m, _, rest, err := r.resolve("lexists", p)
	if errors.Is(err, ErrNoMount) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.fs.Lexists(rest)
}

// IsDir reports whether p is a directory. Mount keys are directories.
func (r *Router) IsDir(p string) (bool, error) {
	if cleanPath(p) == "" {
		return true, nil
	}
	m, _, rest, err := r.resolve("isdir", p)
	if err != nil {
		return false, err
	}
	return m.fs.IsDir(rest)
}

// IsFile reports whether p is a regular file
func (r *Router) IsFile(p string) (bool, error) {
	if cleanPath(p) == "" {
		return false, nil
	}
	m, _, rest, err := r.resolve("isfile", p)
	if err != nil {
		return false, err
	}
	return m.fs.IsFile(rest)
}

// Ls lists p. The root lists one directory per mount followed by the root of the default mount.
func (r *Router) Ls(p string) ([]Entry, error) {
	p = cleanPath(p)
	if p == "" {
		entries := make([]Entry, 0, len(r.keys))
		for _, key := range r.keys {
			entries = append(entries, syntheticDir(key))
		}
		if def, ok := r.mounts[DefaultMount]; ok {
			children, err := def.fs.Ls("")
			if err != nil {
				return nil, err
			}
			entries = append(entries, children...)
		}
		return entries, nil
	}

	m, key, rest, err := r.resolve("ls", p)
	if err != nil {
		return nil, err
	}
	entries, err := m.fs.Ls(rest)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i] = entries[i].withName(rename(key, entries[i].Name))
	}
	return entries, nil
}

// Walk traverses p. Walking the root covers the default mount first, then
// every other mount one level down.
func (r *Router) Walk(p string, maxDepth int) iter.Seq2[WalkEntry, error] {
	p = cleanPath(p)
	if p != "" {
		return func(yield func(WalkEntry, error) bool) {
			m, key, rest, err := r.resolve("walk", p)
			if err != nil {
				yield(WalkEntry{}, err)
				return
			}
			for we, err := range m.fs.Walk(rest, maxDepth) {
				if err == nil {
					we.Dir = rename(key, we.Dir)
				}
				if !yield(we, err) {
					return
				}
			}
		}
	}

	return func(yield func(WalkEntry, error) bool) {
		rootSeen := false
		if def, ok := r.mounts[DefaultMount]; ok {
			for we, err := range def.fs.Walk("", maxDepth) {
				if err == nil && we.Dir == "" {
					we.Dirs = append(slices.Clone(we.Dirs), r.keys...)
					sort.Strings(we.Dirs)
					rootSeen = true
				}
				if !yield(we, err) {
					return
				}
			}
		}
		if !rootSeen {
			if !yield(WalkEntry{Dir: "", Dirs: slices.Clone(r.keys), Files: []string{}}, nil) {
				return
			}
		}

		if maxDepth != NoMaxDepth && maxDepth <= 1 {
			return
		}
		childDepth := NoMaxDepth
		if maxDepth != NoMaxDepth {
			childDepth = maxDepth - 1
		}
		for _, key := range r.keys {
			for we, err := range r.mounts[key].fs.Walk("", childDepth) {
				if err == nil {
					we.Dir = rename(key, we.Dir)
				}
				if !yield(we, err) {
					return
				}
			}
		}
	}
}

// Open opens p on its mount for reading
func (r *Router) Open(p string) (File, error) {
	m, _, rest, err := r.resolve("open", p)
	if err != nil {
		return nil, err
	}
	return m.fs.Open(rest)
}

// checkGet refuses downloading the whole router
func (r *Router) checkGet(p string) error {
	if cleanPath(p) == "" {
		return pathError("get", "", ErrInvalidOperation)
	}
	return nil
}
