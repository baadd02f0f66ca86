package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sforg/internal/batch"
	"sforg/internal/metadata"
)

var (
	listOrg         string
	listOrgID       string
	listFormat      string
	listConcurrency int
	listSequential  bool
)

// ListResponse reports the items found per type plus batch statistics.
type ListResponse struct {
	Org      string                `json:"org" yaml:"org"`
	Types    []TypeListing         `json:"types" yaml:"types"`
	Failures []metadata.Failure    `json:"failures,omitempty" yaml:"failures,omitempty"`
	Stats    batch.ProcessingStats `json:"stats" yaml:"stats"`
}

// TypeListing is one type's enumeration.
type TypeListing struct {
	Type  string   `json:"type" yaml:"type"`
	Count int      `json:"count" yaml:"count"`
	Items []string `json:"items" yaml:"items"`
}

func (r *ListResponse) HumanString() string {
	var b strings.Builder
	for _, t := range r.Types {
		b.WriteString(fmt.Sprintf("%s (%d)\n", t.Type, t.Count))
		for _, name := range t.Items {
			b.WriteString("  " + name + "\n")
		}
	}
	for _, f := range r.Failures {
		b.WriteString(fmt.Sprintf("FAILED %s: %s\n", f.Input, f.Error))
	}
	b.WriteString(fmt.Sprintf("\n%d/%d types listed (%.0f%%)\n",
		r.Stats.Succeeded, r.Stats.TotalItems, r.Stats.SuccessRate))
	return b.String()
}

var listCmd = &cobra.Command{
	Use:   "list [types...]",
	Short: "List metadata items in an org",
	Long: `List the metadata items of the given types in an org. With no type
arguments every handler-supported type is listed.`,
	Run: runList,
}

func init() {
	listCmd.Flags().StringVar(&listOrg, "org", "", "Target org alias (required)")
	listCmd.Flags().StringVar(&listOrgID, "org-id", "", "Org id (defaults to the alias)")
	listCmd.Flags().StringVar(&listFormat, "format", "human", "Output format (json, yaml, human)")
	listCmd.Flags().IntVar(&listConcurrency, "concurrency", 0, "Chunk size for parallel listing (0 = config default)")
	listCmd.Flags().BoolVar(&listSequential, "sequential", false, "List types one at a time")
	listCmd.MarkFlagRequired("org")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) {
	app := mustGetApp()
	org := orgFromFlags(listOrg, listOrgID)

	if err := app.Executor.CheckInstalled(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	typeNames := args
	if len(typeNames) == 0 {
		typeNames = app.Registry.ListSupportedTypes()
	}

	result := app.Processor.ProcessTypes(context.Background(), org, typeNames, batch.TypeOptions{
		Parallel:       !listSequential,
		MaxConcurrency: listConcurrency,
	})

	resp := &ListResponse{
		Org:      org.Alias,
		Failures: result.Failures,
		Stats:    batch.GetProcessingStats(result),
	}
	for _, ti := range result.Success {
		listing := TypeListing{Type: ti.Type, Count: len(ti.Items)}
		for _, item := range ti.Items {
			listing.Items = append(listing.Items, item.FullName)
		}
		resp.Types = append(resp.Types, listing)
	}

	printResponse(resp, listFormat)
	if len(result.Failures) > 0 {
		os.Exit(1)
	}
}
