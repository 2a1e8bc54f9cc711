/*
Package compositefs composes filesystems: a Router mounts several filesystems
under top-level path segments, and an Overlay layers a writable delta over a
read-only base with copy-on-write semantics.

# Overview

Every component implements the same Filesystem interface, so routers and
overlays nest freely. Backing filesystems are adapted from afero (local disk,
memory, any io/fs.FS) or from absfs.

Paths are slash separated and relative to the filesystem root, with "" naming
the root. Names returned by Info, Ls and Walk are full paths in the same form,
so they can be passed straight back in.

# Routing

A Router sends each operation to the mount named by the first path segment.
Paths whose first segment matches no mount go to the "default" mount, which
also answers to its own name as a prefix:

	static := compositefs.NewMemFS()
	media := compositefs.NewMemFS()
	r, err := compositefs.NewRouter(map[string]compositefs.Mount{
	    "default": {FS: static},
	    "media":   {FS: media, Permissions: &compositefs.Permissions{AllowWrite: true}},
	})

	compositefs.WriteText(r, "media/logo.png", "...") // media:logo.png
	compositefs.WriteText(r, "index.html", "...")     // static:index.html

Listing the root shows every mount key as a directory next to the root of the
default mount. Copies and moves between mounts stream the content across;
moving a directory between mounts is not supported.

Mount permissions are checked on every mutation. By default a refused
operation is only logged; WithEnforcedPermissions turns refusals into
ErrPermissionDenied.

# Overlay

An Overlay writes every change to delta and never modifies base. Removing base
content leaves a marker in delta:

  - name.deleted hides name. It is a file for removed files and a directory
    for removed directories.
  - name.replaced is a directory marking that base content below name no
    longer shows through, used when a deleted directory is created again.

	delta := compositefs.NewMemFS()
	base := compositefs.NewOsFS()
	o, err := compositefs.NewOverlay(delta, base)

	o.RmFile("etc/motd")        // writes etc/motd.deleted into delta
	o.Exists("etc/motd")        // false
	base.Exists("etc/motd")     // still true

Ls and Walk merge both layers, with delta winning on name clashes. Writing to
a base file without truncating first copies it into delta.

# Configuration

A Factory builds filesystems from Config values, usually loaded from YAML:

	protocol: nested
	mounts:
	  default:
	    protocol: file
	    relative_to_path: /srv/site
	  uploads:
	    protocol: transparent
	    delta: {protocol: memory}
	    base: {protocol: file, relative_to_path: /srv/uploads}
	    nested_permissions: {allow_delete: false}

	cfg, err := compositefs.LoadConfig("fs.yaml")
	fsys, err := compositefs.NewFactory().New(cfg)

Protocols are looked up in a Registry. NewDefaultRegistry provides file,
local, memory, absmem, nested, transparent, overlay and dir. Equivalent
configurations share a fingerprint, which keys the optional instance cache
enabled with WithInstanceCache.

# absfs

AbsFS presents any Filesystem as an absfs.FileSystem with a working directory,
and NewAbsFS turns an absfs.FileSystem into a backing Filesystem.
AbsSymlinkFS adds the absfs symlink calls on top.

# Links

Filesystems that support symbolic links implement LinkFS. Router, Overlay and
Rooted pass links through to the filesystem that holds them; a backing store
without link support returns ErrUnsupported.

# Thread Safety

Router and Overlay hold no mutable state of their own; concurrent use is as
safe as the backing filesystems. Overlay operations touch several entries in
delta and are not atomic with respect to each other.
*/
package compositefs
