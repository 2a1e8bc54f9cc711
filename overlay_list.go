package compositefs

import (
	"iter"
	"maps"
	"slices"
	"sort"
	"strings"
)

// Ls lists p with delta entries taking precedence over base. Deletion markers
// drop base entries and replacement markers stand in for empty directories.
func (o *Overlay) Ls(p string) ([]Entry, error) {
	p = cleanPath(p)
	fsys, res, err := o.existing("ls", p)
	if err != nil {
		return nil, err
	}
	if res.where == layerBase {
		return o.base.Ls(p)
	}
	isDir, err := fsys.IsDir(p)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return o.delta.Ls(p)
	}

	merged := make(map[string]Entry)
	if res.baseVisible() {
		inBase, err := o.base.IsDir(p)
		if err != nil {
			return nil, err
		}
		if inBase {
			entries, err := o.base.Ls(p)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				merged[e.Name] = e
			}
		}
	}

	entries, err := o.delta.Ls(p)
	if err != nil {
		return nil, err
	}
	var live []Entry
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name, DeletedSuffix):
			delete(merged, strings.TrimSuffix(e.Name, DeletedSuffix))
		case strings.HasSuffix(e.Name, ReplacedSuffix):
			name := strings.TrimSuffix(e.Name, ReplacedSuffix)
			merged[name] = syntheticDir(name)
		default:
			live = append(live, e)
		}
	}
	for _, e := range live {
		merged[e.Name] = e
	}

	out := slices.Collect(maps.Values(merged))
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// walkNode is the merged content of one directory during Walk
type walkNode struct {
	dirs  map[string]struct{}
	files map[string]struct{}
}

func newWalkNode() *walkNode {
	return &walkNode{dirs: map[string]struct{}{}, files: map[string]struct{}{}}
}

func (n *walkNode) entry(dir string) WalkEntry {
	dirs := slices.Sorted(maps.Keys(n.dirs))
	files := slices.Sorted(maps.Keys(n.files))
	if dirs == nil {
		dirs = []string{}
	}
	if files == nil {
		files = []string{}
	}
	return WalkEntry{Dir: dir, Dirs: dirs, Files: files}
}

// Walk traverses the merged tree below p. Both layers are walked in full before
// the first entry is yielded.
func (o *Overlay) Walk(p string, maxDepth int) iter.Seq2[WalkEntry, error] {
	p = cleanPath(p)
	return func(yield func(WalkEntry, error) bool) {
		res, err := o.resolve(p)
		if err != nil {
			yield(WalkEntry{}, err)
			return
		}
		if !res.exists {
			return
		}
		if res.where == layerBase {
			for we, err := range o.base.Walk(p, maxDepth) {
				if !yield(we, err) {
					return
				}
			}
			return
		}

		tree := make(map[string]*walkNode)
		if res.baseVisible() {
			for we, err := range o.base.Walk(p, maxDepth) {
				if err != nil {
					yield(WalkEntry{}, err)
					return
				}
				n := newWalkNode()
				for _, d := range we.Dirs {
					n.dirs[d] = struct{}{}
				}
				for _, f := range we.Files {
					n.files[f] = struct{}{}
				}
				tree[we.Dir] = n
			}
		}

		var deltaWalk []WalkEntry
		for we, err := range o.delta.Walk(p, maxDepth) {
			if err != nil {
				yield(WalkEntry{}, err)
				return
			}
			if underMarker(strings.TrimPrefix(we.Dir, p)) {
				continue
			}
			deltaWalk = append(deltaWalk, we)
		}

		// markers hide base subtrees before delta content is folded in
		for _, we := range deltaWalk {
			for _, names := range [][]string{we.Dirs, we.Files} {
				for _, name := range names {
					if !isMarker(name) {
						continue
					}
					target := strings.TrimSuffix(strings.TrimSuffix(name, DeletedSuffix), ReplacedSuffix)
					pruneTree(tree, joinPath(we.Dir, target))
					if strings.HasSuffix(name, DeletedSuffix) {
						if n, ok := tree[we.Dir]; ok {
							delete(n.dirs, target)
							delete(n.files, target)
						}
					}
				}
			}
		}

		for _, we := range deltaWalk {
			n, ok := tree[we.Dir]
			if !ok {
				n = newWalkNode()
				tree[we.Dir] = n
			}
			for _, d := range we.Dirs {
				if !isMarker(d) {
					n.dirs[d] = struct{}{}
				}
			}
			for _, f := range we.Files {
				if !isMarker(f) {
					n.files[f] = struct{}{}
				}
			}
		}

		for _, dir := range slices.Sorted(maps.Keys(tree)) {
			if !yield(tree[dir].entry(dir), nil) {
				return
			}
		}
	}
}

// pruneTree drops every walk node at or below prefix
func pruneTree(tree map[string]*walkNode, prefix string) {
	for dir := range tree {
		if hasPathPrefix(dir, prefix) {
			delete(tree, dir)
		}
	}
}
