package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sforg/internal/compare"
)

var (
	compareFormat  string
	comparePatches bool
)

// CompareResponse wraps a tree comparison between two cached orgs.
type CompareResponse struct {
	Left    string          `json:"left" yaml:"left"`
	Right   string          `json:"right" yaml:"right"`
	Summary compare.Summary `json:"summary" yaml:"summary"`
}

func (r *CompareResponse) HumanString() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s vs %s: +%d -%d ~%d (%d unchanged)\n",
		r.Left, r.Right,
		r.Summary.Added, r.Summary.Removed, r.Summary.Modified, r.Summary.Unchanged))
	for _, d := range r.Summary.Diffs {
		b.WriteString(fmt.Sprintf("  %-8s %s\n", d.Kind, d.Path))
		if comparePatches && d.Patch != "" {
			for _, line := range strings.Split(strings.TrimRight(d.Patch, "\n"), "\n") {
				b.WriteString("    " + line + "\n")
			}
		}
	}
	return b.String()
}

var compareCmd = &cobra.Command{
	Use:   "compare <org-a> <org-b>",
	Short: "Diff the cached source of two orgs",
	Long: `Compare the cached source trees of two orgs file by file. Both orgs
must have been retrieved first.`,
	Args: cobra.ExactArgs(2),
	Run:  runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&compareFormat, "format", "human", "Output format (json, yaml, human)")
	compareCmd.Flags().BoolVar(&comparePatches, "patches", false, "Include per-file patches in human output")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) {
	app := mustGetApp()

	leftDir, ok := app.Coordinator.CachedDir(args[0])
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: org %s has no cached source; run retrieve first\n", args[0])
		os.Exit(1)
	}
	rightDir, ok := app.Coordinator.CachedDir(args[1])
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: org %s has no cached source; run retrieve first\n", args[1])
		os.Exit(1)
	}

	summary, err := compare.NewComparer(app.Logger).Compare(leftDir, rightDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error comparing orgs: %v\n", err)
		os.Exit(1)
	}

	printResponse(&CompareResponse{
		Left:    args[0],
		Right:   args[1],
		Summary: summary,
	}, compareFormat)
}
