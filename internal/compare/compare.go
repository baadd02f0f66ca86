// Package compare diffs two retrieved org trees file by file.
package compare

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"sforg/internal/errors"
	"sforg/internal/logging"
)

// ChangeKind classifies a single file's difference between two trees.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// FileDiff describes one differing file. Patch is a unified-style
// rendering of the change, empty for added/removed files.
type FileDiff struct {
	Path  string     `json:"path" yaml:"path"`
	Kind  ChangeKind `json:"kind" yaml:"kind"`
	Patch string     `json:"patch,omitempty" yaml:"patch,omitempty"`
}

// Summary is the result of comparing two trees.
type Summary struct {
	Added     int        `json:"added" yaml:"added"`
	Removed   int        `json:"removed" yaml:"removed"`
	Modified  int        `json:"modified" yaml:"modified"`
	Unchanged int        `json:"unchanged" yaml:"unchanged"`
	Diffs     []FileDiff `json:"diffs" yaml:"diffs"`
}

// Total returns the number of differing files.
func (s Summary) Total() int {
	return s.Added + s.Removed + s.Modified
}

// Comparer walks two directory trees and reports per-file differences.
type Comparer struct {
	logger *logging.Logger
}

func NewComparer(logger *logging.Logger) *Comparer {
	return &Comparer{logger: logger.Component("compare")}
}

// Compare diffs the trees rooted at leftDir and rightDir. Files present
// only on the left are reported as removed, only on the right as added.
func (c *Comparer) Compare(leftDir, rightDir string) (Summary, error) {
	left, err := listFiles(leftDir)
	if err != nil {
		return Summary{}, err
	}
	right, err := listFiles(rightDir)
	if err != nil {
		return Summary{}, err
	}

	paths := make(map[string]bool, len(left)+len(right))
	for p := range left {
		paths[p] = true
	}
	for p := range right {
		paths[p] = true
	}
	ordered := make([]string, 0, len(paths))
	for p := range paths {
		ordered = append(ordered, p)
	}
	sort.Strings(ordered)

	var summary Summary
	for _, p := range ordered {
		inLeft, inRight := left[p], right[p]
		switch {
		case inLeft && !inRight:
			summary.Removed++
			summary.Diffs = append(summary.Diffs, FileDiff{Path: p, Kind: ChangeRemoved})
		case !inLeft && inRight:
			summary.Added++
			summary.Diffs = append(summary.Diffs, FileDiff{Path: p, Kind: ChangeAdded})
		default:
			patch, changed, err := diffFile(
				filepath.Join(leftDir, filepath.FromSlash(p)),
				filepath.Join(rightDir, filepath.FromSlash(p)))
			if err != nil {
				return Summary{}, err
			}
			if changed {
				summary.Modified++
				summary.Diffs = append(summary.Diffs, FileDiff{Path: p, Kind: ChangeModified, Patch: patch})
			} else {
				summary.Unchanged++
			}
		}
	}

	c.logger.Debug("Compared trees", map[string]interface{}{
		"added":    summary.Added,
		"removed":  summary.Removed,
		"modified": summary.Modified,
	})
	return summary, nil
}

func listFiles(root string) (map[string]bool, error) {
	files := make(map[string]bool)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = true
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.CacheError, "failed to walk source tree", err)
	}
	return files, nil
}

func diffFile(leftPath, rightPath string) (string, bool, error) {
	leftBody, err := os.ReadFile(leftPath)
	if err != nil {
		return "", false, err
	}
	rightBody, err := os.ReadFile(rightPath)
	if err != nil {
		return "", false, err
	}
	if string(leftBody) == string(rightBody) {
		return "", false, nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(leftBody), string(rightBody), true)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return renderPatch(diffs), true, nil
}

// renderPatch produces a compact +/- line rendering of the diff.
func renderPatch(diffs []diffmatchpatch.Diff) string {
	var b strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}
