package compositefs

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config describes a filesystem for Factory.New. Either FS or Protocol must be
// set; FS wins when both are.
//
// Example YAML:
//
//	protocol: nested
//	mounts:
//	  default:
//	    protocol: memory
//	  static:
//	    protocol: transparent
//	    delta: {protocol: memory}
//	    base: {protocol: file, relative_to_path: /srv/static}
//	    nested_permissions: {allow_delete: false}
type Config struct {
	// FS is an already built filesystem. It cannot be set from YAML.
	FS Filesystem `yaml:"-"`

	Protocol string `yaml:"protocol,omitempty"`
	// RelativeToPath confines the produced filesystem to a sub-path
	RelativeToPath string `yaml:"relative_to_path,omitempty"`
	AutoMkdir      bool   `yaml:"auto_mkdir,omitempty"`

	// Permissions apply when this config is mounted in a nested filesystem
	Permissions *Permissions `yaml:"nested_permissions,omitempty"`

	// Mounts configures the nested protocol
	Mounts map[string]Config `yaml:"mounts,omitempty"`

	// Delta and Base configure the transparent protocol
	Delta *Config `yaml:"delta,omitempty"`
	Base  *Config `yaml:"base,omitempty"`

	// Target and Path configure the dir protocol
	Target *Config `yaml:"target,omitempty"`
	Path   string  `yaml:"path,omitempty"`

	// Options holds protocol specific settings
	Options map[string]string `yaml:"options,omitempty"`
}

// UnmarshalYAML accepts transparent_fs as another name for delta
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type raw Config
	var r struct {
		raw           `yaml:",inline"`
		TransparentFS *Config `yaml:"transparent_fs"`
	}
	if err := value.Decode(&r); err != nil {
		return err
	}
	*c = Config(r.raw)
	if c.Delta == nil {
		c.Delta = r.TransparentFS
	}
	return nil
}

// ParseConfig decodes a YAML document into a Config
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parsing filesystem config")
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading filesystem config %s", path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "loading %s", path)
	}
	return cfg, nil
}

// configIdentity is the canonical form of a Config. A programmatic FS is
// represented by its fingerprint.
type configIdentity struct {
	FS             string                    `cbor:"fs,omitempty"`
	Protocol       string                    `cbor:"protocol,omitempty"`
	RelativeToPath string                    `cbor:"relative_to_path,omitempty"`
	AutoMkdir      bool                      `cbor:"auto_mkdir,omitempty"`
	Permissions    *Permissions              `cbor:"permissions,omitempty"`
	Mounts         map[string]configIdentity `cbor:"mounts,omitempty"`
	Delta          *configIdentity           `cbor:"delta,omitempty"`
	Base           *configIdentity           `cbor:"base,omitempty"`
	Target         *configIdentity           `cbor:"target,omitempty"`
	Path           string                    `cbor:"path,omitempty"`
	Options        map[string]string         `cbor:"options,omitempty"`
}

func (c Config) identity() configIdentity {
	id := configIdentity{
		Protocol:       c.Protocol,
		RelativeToPath: cleanPath(c.RelativeToPath),
		AutoMkdir:      c.AutoMkdir,
		Permissions:    c.Permissions,
		Path:           cleanPath(c.Path),
		Options:        c.Options,
	}
	if c.FS != nil {
		id.FS = c.FS.Fingerprint()
	}
	if len(c.Mounts) > 0 {
		id.Mounts = make(map[string]configIdentity, len(c.Mounts))
		for key, m := range c.Mounts {
			id.Mounts[key] = m.identity()
		}
	}
	for _, child := range []struct {
		src *Config
		dst **configIdentity
	}{{c.Delta, &id.Delta}, {c.Base, &id.Base}, {c.Target, &id.Target}} {
		if child.src != nil {
			sub := child.src.identity()
			*child.dst = &sub
		}
	}
	return id
}

// Fingerprint returns a digest that is equal for equivalent configurations
func (c Config) Fingerprint() (string, error) {
	return hashValue(c.identity())
}

// mountKeys returns the configured mount keys in sorted order
func (c Config) mountKeys() []string {
	keys := make([]string, 0, len(c.Mounts))
	for key := range c.Mounts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
