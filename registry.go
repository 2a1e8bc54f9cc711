package compositefs

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Constructor builds a filesystem for one protocol. Child configurations are
// built through f so they share its registry, cache and options.
type Constructor func(f *Factory, cfg Config) (Filesystem, error)

// Registry maps protocol names to constructors
type Registry struct {
	mu        sync.RWMutex
	protocols map[string]Constructor
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{protocols: make(map[string]Constructor)}
}

// NewDefaultRegistry returns a registry with the built-in protocols:
// file and local (disk), memory, absmem, nested, transparent and overlay, and dir.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister("file", newLocal)
	r.MustRegister("local", newLocal)
	r.MustRegister("memory", newMemory)
	r.MustRegister("absmem", newAbsMem)
	r.MustRegister("nested", newNested)
	r.MustRegister("transparent", newTransparent)
	r.MustRegister("overlay", newTransparent)
	r.MustRegister("dir", newDir)
	return r
}

// Register adds a protocol. Registering a name twice is an error.
func (r *Registry) Register(name string, c Constructor) error {
	if name == "" || c == nil {
		return errors.Wrapf(ErrInvalidOperation, "registering protocol %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.protocols[name]; ok {
		return errors.Wrapf(ErrAlreadyExists, "protocol %q", name)
	}
	r.protocols[name] = c
	return nil
}

// MustRegister is like Register but panics on error
func (r *Registry) MustRegister(name string, c Constructor) {
	if err := r.Register(name, c); err != nil {
		panic(err)
	}
}

// Lookup returns the constructor registered for name
func (r *Registry) Lookup(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.protocols[name]
	return c, ok
}

// Protocols returns the registered protocol names in sorted order
func (r *Registry) Protocols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.protocols))
	for name := range r.protocols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newLocal(f *Factory, cfg Config) (Filesystem, error) {
	return NewOsFS(WithAutoMkdir(cfg.AutoMkdir)), nil
}

func newMemory(f *Factory, cfg Config) (Filesystem, error) {
	return NewMemFS(WithAutoMkdir(cfg.AutoMkdir)), nil
}

func newAbsMem(f *Factory, cfg Config) (Filesystem, error) {
	return NewAbsMemFS(WithAutoMkdir(cfg.AutoMkdir))
}

func newNested(f *Factory, cfg Config) (Filesystem, error) {
	if len(cfg.Mounts) == 0 {
		return nil, errors.Wrap(ErrInvalidOperation, "nested filesystem needs mounts")
	}
	mounts := make(map[string]Mount, len(cfg.Mounts))
	for _, key := range cfg.mountKeys() {
		child := cfg.Mounts[key]
		fsys, err := f.New(child)
		if err != nil {
			return nil, errors.Wrapf(err, "mount %q", key)
		}
		mounts[key] = Mount{FS: fsys, Permissions: child.Permissions}
	}
	r, err := NewRouter(mounts, f.opts...)
	if err != nil {
		return nil, err
	}
	r.factory = f
	return r, nil
}

func newTransparent(f *Factory, cfg Config) (Filesystem, error) {
	if cfg.Delta == nil || cfg.Base == nil {
		return nil, errors.Wrap(ErrInvalidOperation, "transparent filesystem needs delta and base")
	}
	delta, err := f.New(*cfg.Delta)
	if err != nil {
		return nil, errors.Wrap(err, "delta")
	}
	base, err := f.New(*cfg.Base)
	if err != nil {
		return nil, errors.Wrap(err, "base")
	}
	return NewOverlay(delta, base, f.opts...)
}

func newDir(f *Factory, cfg Config) (Filesystem, error) {
	if cfg.Target == nil {
		return nil, errors.Wrap(ErrInvalidOperation, "dir filesystem needs a target")
	}
	target, err := f.New(*cfg.Target)
	if err != nil {
		return nil, errors.Wrap(err, "target")
	}
	return NewRooted(target, cfg.Path), nil
}
