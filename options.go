package compositefs

import (
	"time"

	"github.com/sirupsen/logrus"
)

// settings collects the options shared by Router, Overlay and Factory
type settings struct {
	log             logrus.FieldLogger
	enforcePerms    bool
	copyBufferSize  int
	registry        *Registry
	cacheEnabled    bool
	cacheTTL        time.Duration
	cacheMaxEntries int
}

// Option is a functional option for configuring Router, Overlay and Factory
type Option func(*settings)

func newSettings(opts []Option) settings {
	s := settings{
		copyBufferSize: 32 * 1024,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = defaultLogger()
	}
	return s
}

// defaultLogger only lets warnings and errors through
func defaultLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

// WithLogger sets the logger used for debug tracing
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *settings) {
		s.log = log
	}
}

// WithEnforcedPermissions makes mount permissions refuse operations instead of only logging them
func WithEnforcedPermissions() Option {
	return func(s *settings) {
		s.enforcePerms = true
	}
}

// WithCopyBufferSize sets the buffer size used for copy-up and cross-filesystem copies
func WithCopyBufferSize(size int) Option {
	return func(s *settings) {
		if size > 0 {
			s.copyBufferSize = size
		}
	}
}

// WithRegistry sets the protocol registry a Factory resolves configurations against
func WithRegistry(r *Registry) Option {
	return func(s *settings) {
		s.registry = r
	}
}

// WithInstanceCache lets a Factory reuse instances built from equivalent configurations
func WithInstanceCache(ttl time.Duration, maxEntries int) Option {
	return func(s *settings) {
		s.cacheEnabled = true
		s.cacheTTL = ttl
		s.cacheMaxEntries = maxEntries
	}
}
