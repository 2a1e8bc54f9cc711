package compositefs

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// contractTargets builds one empty instance of every Filesystem implementation
func contractTargets(t *testing.T) map[string]func() Filesystem {
	return map[string]func() Filesystem{
		"memory": func() Filesystem { return NewMemFS() },
		"dir": func() Filesystem {
			inner := NewMemFS()
			if err := inner.Makedirs("jail", true); err != nil {
				t.Fatal(err)
			}
			return NewRooted(inner, "jail")
		},
		"transparent": func() Filesystem {
			return mustOverlay(t, NewMemFS(), NewMemFS())
		},
		"nested": func() Filesystem {
			return mustRouter(t, map[string]Mount{DefaultMount: {FS: NewMemFS()}})
		},
	}
}

// TestFilesystemContract runs the same behavioral checks against every implementation
func TestFilesystemContract(t *testing.T) {
	for name, build := range contractTargets(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("write and read", func(t *testing.T) {
				fsys := build()
				mustWrite(t, fsys, "dir/f.txt", "hello")
				if got := mustRead(t, fsys, "dir/f.txt"); got != "hello" {
					t.Errorf("read = %q", got)
				}
				e, err := fsys.Info("dir/f.txt")
				if err != nil {
					t.Fatal(err)
				}
				if e.Name != "dir/f.txt" || e.Size != 5 || e.Type != TypeFile {
					t.Errorf("info = %+v", e)
				}
				if ok, err := fsys.IsFile("dir/f.txt"); err != nil || !ok {
					t.Errorf("IsFile = %v, %v", ok, err)
				}
				if ok, err := fsys.IsDir("dir"); err != nil || !ok {
					t.Errorf("IsDir = %v, %v", ok, err)
				}
				if ok, err := fsys.IsDir("dir/f.txt"); err != nil || ok {
					t.Errorf("IsDir on a file = %v, %v", ok, err)
				}
				mustExist(t, fsys, "missing", false)
				if _, err := fsys.Info("missing"); !errors.Is(err, ErrNotFound) {
					t.Errorf("info missing: got %v", err)
				}
				if _, err := fsys.Open("missing"); !errors.Is(err, ErrNotFound) {
					t.Errorf("open missing: got %v", err)
				}
			})

			t.Run("ls", func(t *testing.T) {
				fsys := build()
				mustWrite(t, fsys, "dir/f.txt", "1")
				mustWrite(t, fsys, "dir/g.txt", "2")
				if err := fsys.Mkdir("dir/sub", false); err != nil {
					t.Fatal(err)
				}
				if diff := cmp.Diff([]string{"dir/f.txt", "dir/g.txt", "dir/sub"}, lsNames(t, fsys, "dir")); diff != "" {
					t.Errorf("ls mismatch (-want +got):\n%s", diff)
				}
				if diff := cmp.Diff([]string{"dir/f.txt"}, lsNames(t, fsys, "dir/f.txt")); diff != "" {
					t.Errorf("ls file mismatch (-want +got):\n%s", diff)
				}
				if _, err := fsys.Ls("nowhere"); !errors.Is(err, ErrNotFound) {
					t.Errorf("ls missing: got %v", err)
				}
			})

			t.Run("mkdir", func(t *testing.T) {
				fsys := build()
				if err := fsys.Mkdir("newdir", false); err != nil {
					t.Fatal(err)
				}
				if err := fsys.Mkdir("newdir", false); !errors.Is(err, ErrAlreadyExists) {
					t.Errorf("mkdir twice: got %v", err)
				}
				for i := 0; i < 2; i++ {
					if err := fsys.Makedirs("a/b/c", true); err != nil {
						t.Fatalf("makedirs #%d: %v", i, err)
					}
				}
				if err := fsys.Makedirs("a/b/c", false); !errors.Is(err, ErrAlreadyExists) {
					t.Errorf("makedirs without existOK: got %v", err)
				}
				if err := fsys.Mkdir("x/y", true); err != nil {
					t.Errorf("mkdir with parents: %v", err)
				}
				if ok, err := fsys.IsDir("x/y"); err != nil || !ok {
					t.Errorf("IsDir(x/y) = %v, %v", ok, err)
				}
			})

			t.Run("remove", func(t *testing.T) {
				fsys := build()
				mustWrite(t, fsys, "f", "x")
				mustWrite(t, fsys, "tree/a/b", "x")
				mustWrite(t, fsys, "tree/c", "x")

				if err := fsys.RmFile("f"); err != nil {
					t.Fatal(err)
				}
				mustExist(t, fsys, "f", false)
				if err := fsys.Rm("tree", false, NoMaxDepth); !errors.Is(err, ErrNotEmpty) {
					t.Errorf("non-recursive rm: got %v", err)
				}
				if err := fsys.Rm("tree", true, NoMaxDepth); err != nil {
					t.Fatal(err)
				}
				mustExist(t, fsys, "tree", false)
				mustExist(t, fsys, "tree/a/b", false)
				if _, err := fsys.Info("tree/c"); !errors.Is(err, ErrNotFound) {
					t.Errorf("info after rm: got %v", err)
				}

				if err := fsys.Mkdir("empty", false); err != nil {
					t.Fatal(err)
				}
				if err := fsys.Rmdir("empty"); err != nil {
					t.Errorf("rmdir: %v", err)
				}
				mustExist(t, fsys, "empty", false)
			})

			t.Run("copy and move", func(t *testing.T) {
				fsys := build()
				mustWrite(t, fsys, "src", "payload")
				if err := fsys.CpFile("src", "dst"); err != nil {
					t.Fatal(err)
				}
				if got := mustRead(t, fsys, "dst"); got != "payload" {
					t.Errorf("copy = %q", got)
				}
				if err := fsys.Mv("dst", "moved"); err != nil {
					t.Fatal(err)
				}
				mustExist(t, fsys, "dst", false)
				if got := mustRead(t, fsys, "moved"); got != "payload" {
					t.Errorf("moved = %q", got)
				}
				sum1, err := Checksum(fsys, "src")
				if err != nil {
					t.Fatal(err)
				}
				sum2, err := Checksum(fsys, "moved")
				if err != nil {
					t.Fatal(err)
				}
				if sum1 != sum2 {
					t.Error("checksums of equal content differ")
				}
			})

			t.Run("touch", func(t *testing.T) {
				fsys := build()
				if err := fsys.Touch("t", true); err != nil {
					t.Fatal(err)
				}
				if size, err := Size(fsys, "t"); err != nil || size != 0 {
					t.Errorf("size = %d, %v", size, err)
				}
				if err := WriteText(fsys, "t", "keep"); err != nil {
					t.Fatal(err)
				}
				if err := fsys.Touch("t", false); err != nil {
					t.Fatal(err)
				}
				if got := mustRead(t, fsys, "t"); got != "keep" {
					t.Errorf("touch lost content: %q", got)
				}
				if err := fsys.Touch("t", true); err != nil {
					t.Fatal(err)
				}
				if got := mustRead(t, fsys, "t"); got != "" {
					t.Errorf("truncating touch = %q", got)
				}
			})

			t.Run("walk", func(t *testing.T) {
				fsys := build()
				mustWrite(t, fsys, "w/1", "")
				mustWrite(t, fsys, "w/a/2", "")
				mustWrite(t, fsys, "w/a/b/3", "")

				want := []WalkEntry{
					{Dir: "w", Dirs: []string{"a"}, Files: []string{"1"}},
					{Dir: "w/a", Dirs: []string{"b"}, Files: []string{"2"}},
					{Dir: "w/a/b", Dirs: []string{}, Files: []string{"3"}},
				}
				if diff := cmp.Diff(want, walkAll(t, fsys, "w", NoMaxDepth)); diff != "" {
					t.Errorf("walk mismatch (-want +got):\n%s", diff)
				}
				if diff := cmp.Diff(want[:2], walkAll(t, fsys, "w", 2)); diff != "" {
					t.Errorf("walk depth 2 mismatch (-want +got):\n%s", diff)
				}
				if got := walkAll(t, fsys, "w/1", NoMaxDepth); len(got) != 0 {
					t.Errorf("walk of a file = %+v", got)
				}
			})
		})
	}
}
