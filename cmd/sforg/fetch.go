package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sforg/internal/batch"
	"sforg/internal/metadata"
)

var (
	fetchOrg    string
	fetchOrgID  string
	fetchFormat string
	fetchOut    string
	fetchNames  []string
)

// FetchResponse reports what was written where.
type FetchResponse struct {
	Org      string                `json:"org" yaml:"org"`
	OutDir   string                `json:"outDir" yaml:"outDir"`
	Written  []string              `json:"written" yaml:"written"`
	Failures []metadata.Failure    `json:"failures,omitempty" yaml:"failures,omitempty"`
	Stats    batch.ProcessingStats `json:"stats" yaml:"stats"`
}

func (r *FetchResponse) HumanString() string {
	var b strings.Builder
	for _, path := range r.Written {
		b.WriteString(path + "\n")
	}
	for _, f := range r.Failures {
		b.WriteString(fmt.Sprintf("FAILED %s: %s\n", f.Input, f.Error))
	}
	b.WriteString(fmt.Sprintf("\n%d/%d items fetched (%.0f%%) into %s\n",
		r.Stats.Succeeded, r.Stats.TotalItems, r.Stats.SuccessRate, r.OutDir))
	return b.String()
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [types...]",
	Short: "Fetch metadata content into a local directory",
	Long: `Fetch the content of the given types' items and write them under the
output directory. Use --name to restrict the fetch to specific members.`,
	Run: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchOrg, "org", "", "Target org alias (required)")
	fetchCmd.Flags().StringVar(&fetchOrgID, "org-id", "", "Org id (defaults to the alias)")
	fetchCmd.Flags().StringVar(&fetchFormat, "format", "human", "Output format (json, yaml, human)")
	fetchCmd.Flags().StringVar(&fetchOut, "out", "", "Output directory (default ./sforg-out/<org>)")
	fetchCmd.Flags().StringSliceVar(&fetchNames, "name", nil, "Fetch only these member names")
	fetchCmd.MarkFlagRequired("org")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) {
	app := mustGetApp()
	org := orgFromFlags(fetchOrg, fetchOrgID)
	ctx := context.Background()

	if err := app.Executor.CheckInstalled(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	typeNames := args
	if len(typeNames) == 0 {
		typeNames = app.Registry.ListSupportedTypes()
	}

	outDir := fetchOut
	if outDir == "" {
		outDir = filepath.Join(".", "sforg-out", org.ID)
	}

	listed := app.Registry.GetFilesForTypes(ctx, org, typeNames)

	var items []metadata.Item
	for _, ti := range listed.Success {
		for _, item := range ti.Items {
			if wantItem(item) {
				items = append(items, item)
			}
		}
	}

	contents := app.Registry.GetContentForFiles(ctx, org, items)

	resp := &FetchResponse{
		Org:    org.Alias,
		OutDir: outDir,
		Stats:  batch.GetProcessingStats(contents),
	}
	resp.Failures = append(resp.Failures, listed.Failures...)
	resp.Failures = append(resp.Failures, contents.Failures...)

	for _, ic := range contents.Success {
		path, err := writeContent(outDir, ic)
		if err != nil {
			resp.Failures = append(resp.Failures, metadata.Failure{
				Input: ic.Item.ID,
				Error: err.Error(),
			})
			continue
		}
		resp.Written = append(resp.Written, path)
	}

	printResponse(resp, fetchFormat)
	if len(resp.Failures) > 0 {
		os.Exit(1)
	}
}

func wantItem(item metadata.Item) bool {
	if len(fetchNames) == 0 {
		return true
	}
	for _, name := range fetchNames {
		if item.FullName == name {
			return true
		}
	}
	return false
}

// writeContent places one item's content under outDir/<type>/, bundles
// expanding into a directory named after the bundle.
func writeContent(outDir string, ic metadata.ItemContent) (string, error) {
	typeDir := filepath.Join(outDir, ic.Item.Type)
	if err := os.MkdirAll(typeDir, 0755); err != nil {
		return "", err
	}

	if ic.Content.IsBundle() {
		dir := filepath.Join(typeDir, ic.Item.FullName)
		if err := ic.Content.Bundle.WriteDir(dir); err != nil {
			return "", err
		}
		return dir, nil
	}

	path := filepath.Join(typeDir, ic.Item.FileName)
	if err := os.WriteFile(path, []byte(ic.Content.Body), 0644); err != nil {
		return "", err
	}
	return path, nil
}
