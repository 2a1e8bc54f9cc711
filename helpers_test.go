package compositefs

import (
	"sort"
	"testing"
)

// mustWrite writes content to p, creating parents first
func mustWrite(t testing.TB, fsys Filesystem, p, content string) {
	t.Helper()
	if parent := parentPath(p); parent != "" {
		if err := fsys.Makedirs(parent, true); err != nil {
			t.Fatalf("makedirs %s: %v", parent, err)
		}
	}
	if err := WriteText(fsys, p, content); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
}

// mustRead returns the content of p
func mustRead(t testing.TB, fsys Filesystem, p string) string {
	t.Helper()
	s, err := ReadText(fsys, p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return s
}

// mustExist fails unless the existence of p matches want
func mustExist(t testing.TB, fsys Filesystem, p string, want bool) {
	t.Helper()
	got, err := fsys.Exists(p)
	if err != nil {
		t.Fatalf("exists %s: %v", p, err)
	}
	if got != want {
		t.Fatalf("exists %s = %v, want %v", p, got, want)
	}
}

// lsNames returns the sorted names listed at p
func lsNames(t testing.TB, fsys Filesystem, p string) []string {
	t.Helper()
	entries, err := fsys.Ls(p)
	if err != nil {
		t.Fatalf("ls %s: %v", p, err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	sort.Strings(names)
	return names
}

// walkAll collects a whole walk, failing on the first error
func walkAll(t testing.TB, fsys Filesystem, p string, maxDepth int) []WalkEntry {
	t.Helper()
	var out []WalkEntry
	for we, err := range fsys.Walk(p, maxDepth) {
		if err != nil {
			t.Fatalf("walk %s: %v", p, err)
		}
		out = append(out, we)
	}
	return out
}

// walkFiles returns every file path found by a full walk, sorted
func walkFiles(t testing.TB, fsys Filesystem, p string) []string {
	t.Helper()
	var files []string
	for _, we := range walkAll(t, fsys, p, NoMaxDepth) {
		for _, f := range we.Files {
			files = append(files, joinPath(we.Dir, f))
		}
	}
	sort.Strings(files)
	return files
}

// newLayers returns an empty delta and a base holding files
func newLayers(t testing.TB, files map[string]string) (delta, base *AferoFS) {
	t.Helper()
	delta, base = NewMemFS(), NewMemFS()
	for p, content := range files {
		mustWrite(t, base, p, content)
	}
	return delta, base
}

// mustOverlay builds an Overlay, failing the test on error
func mustOverlay(t testing.TB, delta, base Filesystem, opts ...Option) *Overlay {
	t.Helper()
	o, err := NewOverlay(delta, base, opts...)
	if err != nil {
		t.Fatalf("NewOverlay: %v", err)
	}
	return o
}

// mustRouter builds a Router, failing the test on error
func mustRouter(t testing.TB, mounts map[string]Mount, opts ...Option) *Router {
	t.Helper()
	r, err := NewRouter(mounts, opts...)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return r
}
