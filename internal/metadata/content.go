package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Content is either a single text payload or a multi-file Bundle.
// Exactly one of Body/Bundle is meaningful; Bundle wins when non-nil.
type Content struct {
	Body   string  `json:"body,omitempty"`
	Bundle *Bundle `json:"bundle,omitempty"`
}

// IsBundle reports whether the content is a multi-file bundle
func (c Content) IsBundle() bool {
	return c.Bundle != nil
}

// IsEmpty reports whether the content carries no data at all
func (c Content) IsEmpty() bool {
	if c.Bundle != nil {
		return len(c.Bundle.Files) == 0
	}
	return c.Body == ""
}

// Bundle is an ordered collection of named files representing one
// logical item. Filenames are unique within a bundle, and MainFile is
// always a key of Files: a fully-failed fetch synthesizes an empty
// placeholder entry for the main file rather than omitting it.
type Bundle struct {
	// Kind tags the bundle flavor, e.g. "lwc" or "aura"
	Kind string `json:"kind"`

	// MainFile names the bundle's primary file
	MainFile string `json:"mainFile"`

	// Files maps filename to text content
	Files map[string]string `json:"files"`

	// order preserves insertion order of filenames
	order []string
}

// NewBundle creates an empty bundle whose main file is pre-seeded with
// empty content so the MainFile invariant holds from the start.
func NewBundle(kind, mainFile string) *Bundle {
	b := &Bundle{
		Kind:     kind,
		MainFile: mainFile,
		Files:    make(map[string]string),
	}
	b.Put(mainFile, "")
	return b
}

// Put adds or replaces a file. Insertion order is kept for new names.
func (b *Bundle) Put(name, content string) {
	if _, exists := b.Files[name]; !exists {
		b.order = append(b.order, name)
	}
	b.Files[name] = content
}

// Names returns the filenames in insertion order
func (b *Bundle) Names() []string {
	names := make([]string, len(b.order))
	copy(names, b.order)
	return names
}

// Main returns the main file's content
func (b *Bundle) Main() string {
	return b.Files[b.MainFile]
}

// WriteDir materializes the bundle under dir, one file per entry
func (b *Bundle) WriteDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for name, content := range b.Files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// ReadBundleDir reads every regular file under dir into a bundle.
// Filenames are relative to dir; mainFile must name one of them unless
// the directory is empty.
func ReadBundleDir(dir, kind, mainFile string) (*Bundle, error) {
	b := &Bundle{
		Kind:     kind,
		MainFile: mainFile,
		Files:    make(map[string]string),
	}

	var names []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(names)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		b.Put(name, string(data))
	}

	return b, nil
}
