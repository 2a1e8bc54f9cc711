package compositefs

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Factory builds filesystems from Config values
type Factory struct {
	registry *Registry
	cache    *instanceCache
	log      logrus.FieldLogger
	opts     []Option
}

// NewFactory creates a Factory. Without WithRegistry it uses NewDefaultRegistry.
// The options are also applied to every Router and Overlay it builds.
//
// Example:
//
//	f := compositefs.NewFactory(compositefs.WithInstanceCache(time.Minute, 64))
//	fsys, err := f.New(compositefs.Config{Protocol: "memory"})
func NewFactory(opts ...Option) *Factory {
	s := newSettings(opts)
	registry := s.registry
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	return &Factory{
		registry: registry,
		cache:    newInstanceCache(s.cacheEnabled, s.cacheTTL, s.cacheMaxEntries),
		log:      s.log,
		opts:     opts,
	}
}

// Registry returns the protocol registry
func (f *Factory) Registry() *Registry {
	return f.registry
}

// New builds the filesystem described by cfg. A programmatic FS is used as
// given; otherwise Protocol selects the constructor. RelativeToPath wraps the
// result in a Rooted filesystem.
func (f *Factory) New(cfg Config) (Filesystem, error) {
	if cfg.FS == nil && cfg.Protocol == "" {
		return nil, errors.Wrap(ErrInvalidOperation, "either fs or protocol must be provided")
	}

	key, err := cfg.Fingerprint()
	if err != nil {
		return nil, errors.Wrap(err, "fingerprinting config")
	}
	if cached, ok := f.cache.get(key); ok {
		f.log.WithFields(logrus.Fields{"protocol": cfg.Protocol, "fingerprint": key}).Debug("reusing cached filesystem")
		return cached, nil
	}

	fsys := cfg.FS
	if fsys == nil {
		construct, ok := f.registry.Lookup(cfg.Protocol)
		if !ok {
			return nil, errors.Wrapf(ErrUnsupported, "unknown protocol %q", cfg.Protocol)
		}
		fsys, err = construct(f, cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "building %s filesystem", cfg.Protocol)
		}
		f.log.WithFields(logrus.Fields{"protocol": cfg.Protocol, "fingerprint": key}).Debug("built filesystem")
	}

	if cfg.RelativeToPath != "" {
		fsys = NewRooted(fsys, cfg.RelativeToPath)
	}
	if cfg.FS == nil {
		f.cache.put(key, fsys)
	}
	return fsys, nil
}

// ClearInstanceCache drops every cached instance
func (f *Factory) ClearInstanceCache() {
	f.cache.clear()
}

// CacheStats reports the state of the instance cache
func (f *Factory) CacheStats() CacheStats {
	return f.cache.Stats()
}
