package compositefs

import (
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// DeletedSuffix marks a path removed from the overlay. It is a file for
	// removed files and a directory for removed directories.
	DeletedSuffix = ".deleted"
	// ReplacedSuffix marks a directory whose base content is hidden from there down
	ReplacedSuffix = ".replaced"
)

// Overlay layers a writable delta filesystem over a base filesystem. Every
// mutation lands in delta; removals of base content are recorded as marker
// entries in delta so base is never modified.
type Overlay struct {
	delta       Filesystem
	base        Filesystem
	fingerprint string
	log         logrus.FieldLogger
	bufSize     int
}

var (
	_ Filesystem = (*Overlay)(nil)
	_ AttrFS     = (*Overlay)(nil)
)

// NewOverlay creates an Overlay writing to delta over base
func NewOverlay(delta, base Filesystem, opts ...Option) (*Overlay, error) {
	if delta == nil || base == nil {
		return nil, pathError("overlay", "", ErrInvalidOperation)
	}
	s := newSettings(opts)
	return &Overlay{
		delta:       delta,
		base:        base,
		fingerprint: hashStrings("transparent", delta.Fingerprint(), base.Fingerprint()),
		log:         s.log,
		bufSize:     s.copyBufferSize,
	}, nil
}

// Name returns the protocol label
func (o *Overlay) Name() string {
	return "transparent"
}

// Fingerprint identifies the pair of layers
func (o *Overlay) Fingerprint() string {
	return o.fingerprint
}

// Delta returns the writable layer
func (o *Overlay) Delta() Filesystem {
	return o.delta
}

// Base returns the layer underneath
func (o *Overlay) Base() Filesystem {
	return o.base
}

// ClearInstanceCache forwards to layers that keep an instance cache
func (o *Overlay) ClearInstanceCache() {
	for _, fsys := range []Filesystem{o.delta, o.base} {
		if c, ok := fsys.(interface{ ClearInstanceCache() }); ok {
			c.ClearInstanceCache()
		}
	}
}

type layer int

const (
	layerDelta layer = iota
	layerBase
)

type modification int

const (
	modNone modification = iota
	modDeleted
	modReplaced
)

// resolution describes where a path lives. For modDeleted, path is the
// ancestor carrying the marker.
type resolution struct {
	exists bool
	where  layer
	mod    modification
	path   string
}

// baseVisible reports whether base content may show through at the resolved path
func (r resolution) baseVisible() bool {
	return r.mod != modReplaced
}

// resolve walks the ancestors of p from the root down, consulting delta first
func (o *Overlay) resolve(p string) (resolution, error) {
	p = cleanPath(p)
	if p == "" {
		// the root merges both layers whenever delta has one
		inDelta, err := o.delta.Exists("")
		if err != nil {
			return resolution{}, err
		}
		if inDelta {
			return resolution{exists: true, where: layerDelta, mod: modNone, path: p}, nil
		}
	}
	mod := modNone
	for _, pt := range pathTree(p) {
		inDelta, err := o.delta.Exists(pt)
		if err != nil {
			return resolution{}, err
		}
		if inDelta {
			replaced, err := o.delta.Exists(pt + ReplacedSuffix)
			if err != nil {
				return resolution{}, err
			}
			if replaced {
				mod = modReplaced
			}
			if pt == p {
				return resolution{exists: true, where: layerDelta, mod: mod, path: pt}, nil
			}
			continue
		}

		deleted, err := o.delta.Exists(pt + DeletedSuffix)
		if err != nil {
			return resolution{}, err
		}
		if deleted {
			return resolution{exists: false, where: layerDelta, mod: modDeleted, path: pt}, nil
		}
		replaced, err := o.delta.Exists(pt + ReplacedSuffix)
		if err != nil {
			return resolution{}, err
		}
		if replaced {
			mod = modReplaced
		}
	}

	if mod == modReplaced {
		return resolution{exists: false, where: layerDelta, mod: mod, path: p}, nil
	}
	exists, err := o.base.Exists(p)
	if err != nil {
		return resolution{}, err
	}
	return resolution{exists: exists, where: layerBase, mod: mod, path: p}, nil
}

// leading returns the layer reads of p are served from: delta when it holds
// p or p exists nowhere, base otherwise
func (o *Overlay) leading(p string) (Filesystem, resolution, error) {
	res, err := o.resolve(p)
	if err != nil {
		return nil, res, err
	}
	if res.exists && res.where == layerBase {
		return o.base, res, nil
	}
	return o.delta, res, nil
}

// existing is leading for operations that need p to exist
func (o *Overlay) existing(op, p string) (Filesystem, resolution, error) {
	fsys, res, err := o.leading(p)
	if err != nil {
		return nil, res, err
	}
	if !res.exists {
		return nil, res, pathError(op, cleanPath(p), ErrNotFound)
	}
	return fsys, res, nil
}

// Info returns the metadata of p from the layer that serves it
func (o *Overlay) Info(p string) (Entry, error) {
	fsys, _, err := o.existing("info", p)
	if err != nil {
		return Entry{}, err
	}
	return fsys.Info(p)
}

// Exists reports whether p is visible in the merged view
func (o *Overlay) Exists(p string) (bool, error) {
	res, err := o.resolve(p)
	if err != nil {
		return false, err
	}
	return res.exists, nil
}

// Lexists is Exists, except that dangling symlinks count as present in either layer
func (o *Overlay) Lexists(p string) (bool, error) {
	res, err := o.resolve(p)
	if err != nil || res.exists {
		return res.exists, err
	}
	inDelta, err := o.delta.Lexists(p)
	if err != nil || inDelta {
		return inDelta, err
	}
	if res.where != layerBase {
		return false, nil
	}
	return o.base.Lexists(p)
}

// IsDir reports whether p is a visible directory
func (o *Overlay) IsDir(p string) (bool, error) {
	fsys, res, err := o.leading(p)
	if err != nil || !res.exists {
		return false, err
	}
	return fsys.IsDir(p)
}

// IsFile reports whether p is a visible regular file
func (o *Overlay) IsFile(p string) (bool, error) {
	fsys, res, err := o.leading(p)
	if err != nil || !res.exists {
		return false, err
	}
	return fsys.IsFile(p)
}

// Open opens p for reading. Directories are opened as a merged view of both layers.
func (o *Overlay) Open(p string) (File, error) {
	return o.OpenFile(p, os.O_RDONLY, 0)
}

// OpenFile opens p. Writes always go to delta, after the parent chain has been
// made visible there and any deletion marker for p cleared.
func (o *Overlay) OpenFile(p string, flag int, perm os.FileMode) (File, error) {
	p = cleanPath(p)
	if isWriteFlag(flag) {
		if err := o.prepareWrite("open", p, flag); err != nil {
			return nil, err
		}
		return o.delta.OpenFile(p, flag, perm)
	}

	fsys, _, err := o.existing("open", p)
	if err != nil {
		return nil, err
	}
	isDir, err := fsys.IsDir(p)
	if err != nil {
		return nil, err
	}
	if isDir {
		return newMergedDir(o, p)
	}
	return fsys.OpenFile(p, flag, perm)
}

// isMarker reports whether name carries a marker suffix
func isMarker(name string) bool {
	return strings.HasSuffix(name, DeletedSuffix) || strings.HasSuffix(name, ReplacedSuffix)
}

// underMarker reports whether some element of p is a marker entry
func underMarker(p string) bool {
	for _, part := range strings.Split(cleanPath(p), "/") {
		if isMarker(part) {
			return true
		}
	}
	return false
}

// touchMarker records p as deleted with a marker file
func (o *Overlay) touchMarker(p string) error {
	marker := p + DeletedSuffix
	if err := o.delta.Makedirs(parentPath(marker), true); err != nil {
		return err
	}
	o.log.WithFields(logrus.Fields{"path": p, "marker": marker}).Debug("marking deleted")
	return o.delta.Touch(marker, true)
}

// removeMarker removes a marker entry of either kind if present
func (o *Overlay) removeMarker(marker string) error {
	isDir, err := o.delta.IsDir(marker)
	if err != nil {
		return err
	}
	if isDir {
		o.log.WithFields(logrus.Fields{"marker": marker}).Debug("clearing marker")
		return o.delta.Rm(marker, true, NoMaxDepth)
	}
	isFile, err := o.delta.IsFile(marker)
	if err != nil || !isFile {
		return err
	}
	o.log.WithFields(logrus.Fields{"marker": marker}).Debug("clearing marker")
	return o.delta.RmFile(marker)
}

// Deleted returns the paths currently hidden by deletion markers, sorted
func (o *Overlay) Deleted() ([]string, error) {
	var deleted []string
	for we, err := range o.delta.Walk("", NoMaxDepth) {
		if err != nil {
			return nil, err
		}
		if underMarker(we.Dir) {
			continue
		}
		for _, names := range [][]string{we.Dirs, we.Files} {
			for _, name := range names {
				if strings.HasSuffix(name, DeletedSuffix) {
					deleted = append(deleted, joinPath(we.Dir, strings.TrimSuffix(name, DeletedSuffix)))
				}
			}
		}
	}
	sort.Strings(deleted)
	return deleted, nil
}
