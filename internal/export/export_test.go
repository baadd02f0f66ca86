package export

import (
	"os"
	"path/filepath"
	"testing"

	"sforg/internal/logging"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	src := t.TempDir()
	files := map[string]string{
		"classes/Foo.cls":          "public class Foo {}",
		"classes/Foo.cls-meta.xml": "<ApexClass/>",
		"lwc/card/card.js":         "export default class Card {}",
	}
	writeTree(t, src, files)

	a := NewArchiver(logging.NewNop())
	dest := filepath.Join(t.TempDir(), "org1.tar.zst")

	n, err := a.Archive(src, dest)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if n != len(files) {
		t.Errorf("archived %d files, want %d", n, len(files))
	}

	out := t.TempDir()
	m, err := a.Extract(dest, out)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if m != len(files) {
		t.Errorf("extracted %d files, want %d", m, len(files))
	}

	for name, want := range files {
		got, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(name)))
		if err != nil {
			t.Errorf("missing %s: %v", name, err)
			continue
		}
		if string(got) != want {
			t.Errorf("%s content = %q, want %q", name, got, want)
		}
	}
}

func TestArchiveMissingSource(t *testing.T) {
	a := NewArchiver(logging.NewNop())
	if _, err := a.Archive(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "out.tar.zst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
