package compositefs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestAferoFingerprints(t *testing.T) {
	if NewOsFS().Fingerprint() != NewOsFS().Fingerprint() {
		t.Error("local disk instances should share a fingerprint")
	}
	if NewMemFS().Fingerprint() == NewMemFS().Fingerprint() {
		t.Error("separate memory filesystems should not share a fingerprint")
	}
	a := NewMemFS(WithFingerprint("shared"))
	b := NewMemFS(WithFingerprint("shared"))
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("WithFingerprint should override the instance identity")
	}
	if got := NewMemFS().Name(); got != "memory" {
		t.Errorf("Name() = %q", got)
	}
}

func TestAferoAutoMkdir(t *testing.T) {
	dir := localPath(t.TempDir())

	plain := NewRooted(NewOsFS(), dir)
	if err := WriteText(plain, "a/b/c.txt", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("write without a parent: got %v", err)
	}

	auto := NewRooted(NewOsFS(WithAutoMkdir(true)), dir)
	if err := WriteText(auto, "a/b/c.txt", "x"); err != nil {
		t.Fatal(err)
	}
	if ok, err := auto.IsDir("a/b"); err != nil || !ok {
		t.Errorf("IsDir(a/b) = %v, %v", ok, err)
	}
	mustWrite(t, auto, "src.txt", "moved")
	if err := auto.Mv("src.txt", "x/y/dst.txt"); err != nil {
		t.Fatal(err)
	}
	if got := mustRead(t, auto, "x/y/dst.txt"); got != "moved" {
		t.Errorf("moved content = %q", got)
	}
}

func TestAferoRemovalErrors(t *testing.T) {
	fsys := NewMemFS()
	mustWrite(t, fsys, "d/f", "x")

	if err := fsys.Rmdir("d"); !errors.Is(err, ErrNotEmpty) {
		t.Errorf("rmdir non-empty: got %v", err)
	}
	if err := fsys.Rmdir("d/f"); !errors.Is(err, ErrNotDir) {
		t.Errorf("rmdir file: got %v", err)
	}
	if err := fsys.RmFile("d"); !errors.Is(err, ErrIsDir) {
		t.Errorf("rm_file directory: got %v", err)
	}
	if err := fsys.Rmdir(""); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("rmdir root: got %v", err)
	}
	if err := fsys.Rm("", true, NoMaxDepth); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("rm root: got %v", err)
	}
	if err := fsys.RmFile("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rm_file missing: got %v", err)
	}
}

func TestAferoBoundedRm(t *testing.T) {
	fsys := NewMemFS()
	mustWrite(t, fsys, "t/1", "")
	mustWrite(t, fsys, "t/a/2", "")
	mustWrite(t, fsys, "t/a/b/3", "")
	mustWrite(t, fsys, "t/c/4", "")

	if err := fsys.Rm("t", true, 2); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"t/a/b/3"}, walkFiles(t, fsys, "")); diff != "" {
		t.Errorf("remaining files (-want +got):\n%s", diff)
	}
	mustExist(t, fsys, "t/c", false)
	mustExist(t, fsys, "t/a/b", true)
}

func TestAferoCpDirectory(t *testing.T) {
	fsys := NewMemFS()
	if err := fsys.Mkdir("src", false); err != nil {
		t.Fatal(err)
	}
	if err := fsys.CpFile("src", "dst"); err != nil {
		t.Fatal(err)
	}
	if ok, err := fsys.IsDir("dst"); err != nil || !ok {
		t.Errorf("copying a directory should create it: %v, %v", ok, err)
	}
}

func TestAferoAttrs(t *testing.T) {
	fsys := NewMemFS()
	mustWrite(t, fsys, "f", "x")

	if err := fsys.Chmod("f", 0o600); err != nil {
		t.Fatal(err)
	}
	e, err := fsys.Info("f")
	if err != nil {
		t.Fatal(err)
	}
	if e.Mode.Perm() != 0o600 {
		t.Errorf("mode = %v", e.Mode)
	}

	when := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := fsys.Chtimes("f", when, when); err != nil {
		t.Fatal(err)
	}
	mod, err := Modified(fsys, "f")
	if err != nil {
		t.Fatal(err)
	}
	if !mod.Equal(when) {
		t.Errorf("modified = %v, want %v", mod, when)
	}
}

func TestAferoLinks(t *testing.T) {
	dir := t.TempDir()
	local := NewRooted(NewOsFS(), localPath(dir))
	disk := NewOsFS()

	target := filepath.Join(dir, "target")
	link := localPath(filepath.Join(dir, "link"))
	if err := disk.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if ok, err := local.Exists("link"); err != nil || ok {
		t.Errorf("dangling link Exists = %v, %v", ok, err)
	}
	if ok, err := local.Lexists("link"); err != nil || !ok {
		t.Errorf("dangling link Lexists = %v, %v", ok, err)
	}
	dest, err := disk.Readlink(link)
	if err != nil || dest != target {
		t.Errorf("Readlink = %q, %v", dest, err)
	}

	if err := os.WriteFile(target, []byte("now here"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := mustRead(t, local, "link"); got != "now here" {
		t.Errorf("read through link = %q", got)
	}

	mem := NewMemFS()
	if err := mem.Symlink("a", "b"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("symlink on memory: got %v", err)
	}
	if _, err := mem.Readlink("b"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("readlink on memory: got %v", err)
	}
}
