package compare

import (
	"os"
	"path/filepath"
	"strings"
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

func TestCompareClassifiesChanges(t *testing.T) {
	left := t.TempDir()
	right := t.TempDir()

	writeTree(t, left, map[string]string{
		"classes/Same.cls":    "public class Same {}",
		"classes/Changed.cls": "public class Changed { Integer a; }",
		"classes/Gone.cls":    "public class Gone {}",
	})
	writeTree(t, right, map[string]string{
		"classes/Same.cls":    "public class Same {}",
		"classes/Changed.cls": "public class Changed { Integer b; }",
		"classes/New.cls":     "public class New {}",
	})

	summary, err := NewComparer(logging.NewNop()).Compare(left, right)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if summary.Added != 1 || summary.Removed != 1 || summary.Modified != 1 || summary.Unchanged != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Total() != 3 {
		t.Errorf("Total() = %d, want 3", summary.Total())
	}

	kinds := make(map[string]ChangeKind)
	for _, d := range summary.Diffs {
		kinds[d.Path] = d.Kind
	}
	if kinds["classes/New.cls"] != ChangeAdded {
		t.Errorf("New.cls kind = %s", kinds["classes/New.cls"])
	}
	if kinds["classes/Gone.cls"] != ChangeRemoved {
		t.Errorf("Gone.cls kind = %s", kinds["classes/Gone.cls"])
	}
	if kinds["classes/Changed.cls"] != ChangeModified {
		t.Errorf("Changed.cls kind = %s", kinds["classes/Changed.cls"])
	}
}

func TestComparePatchMarksEdits(t *testing.T) {
	left := t.TempDir()
	right := t.TempDir()
	writeTree(t, left, map[string]string{"f.txt": "alpha\nbeta\n"})
	writeTree(t, right, map[string]string{"f.txt": "alpha\ngamma\n"})

	summary, err := NewComparer(logging.NewNop()).Compare(left, right)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if len(summary.Diffs) != 1 {
		t.Fatalf("diffs = %d, want 1", len(summary.Diffs))
	}
	patch := summary.Diffs[0].Patch
	if !strings.Contains(patch, "-") || !strings.Contains(patch, "+") {
		t.Errorf("patch missing edit markers: %q", patch)
	}
}

func TestCompareIdenticalTrees(t *testing.T) {
	left := t.TempDir()
	right := t.TempDir()
	files := map[string]string{"a.txt": "x", "b/c.txt": "y"}
	writeTree(t, left, files)
	writeTree(t, right, files)

	summary, err := NewComparer(logging.NewNop()).Compare(left, right)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if summary.Total() != 0 || summary.Unchanged != 2 {
		t.Errorf("summary = %+v", summary)
	}
}
