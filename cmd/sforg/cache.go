package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sforg/internal/storage"
)

var (
	cacheOrg    string
	cacheOrgID  string
	cacheFormat string
	cacheLimit  int
)

// CacheStatusResponse reports the cache state and retrieval history for
// one org.
type CacheStatusResponse struct {
	Org       string                    `json:"org" yaml:"org"`
	Cached    bool                      `json:"cached" yaml:"cached"`
	Directory string                    `json:"directory,omitempty" yaml:"directory,omitempty"`
	History   []storage.RetrievalRecord `json:"history,omitempty" yaml:"history,omitempty"`
}

func (r *CacheStatusResponse) HumanString() string {
	var b strings.Builder
	if r.Cached {
		b.WriteString(fmt.Sprintf("%s: cached at %s\n", r.Org, r.Directory))
	} else {
		b.WriteString(fmt.Sprintf("%s: not cached\n", r.Org))
	}
	for _, rec := range r.History {
		b.WriteString(fmt.Sprintf("  %s  %-9s  %dms",
			rec.CreatedAt.Format(time.RFC3339), rec.Status, rec.DurationMs))
		if rec.Error != "" {
			b.WriteString("  " + rec.Error)
		}
		b.WriteString("\n")
	}
	return b.String()
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the retrieval cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache state and retrieval history for an org",
	Run:   runCacheStatus,
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Delete an org's cached source",
	Run:   runCacheInvalidate,
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheOrg, "org", "", "Target org alias (required)")
	cacheCmd.PersistentFlags().StringVar(&cacheOrgID, "org-id", "", "Org id (defaults to the alias)")
	cacheStatusCmd.Flags().StringVar(&cacheFormat, "format", "human", "Output format (json, yaml, human)")
	cacheStatusCmd.Flags().IntVar(&cacheLimit, "limit", 10, "History entries to show")
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	rootCmd.AddCommand(cacheCmd)
}

func requireOrg() {
	if cacheOrg == "" {
		fmt.Fprintln(os.Stderr, "Error: --org is required")
		os.Exit(1)
	}
}

func runCacheStatus(cmd *cobra.Command, args []string) {
	requireOrg()
	app := mustGetApp()
	org := orgFromFlags(cacheOrg, cacheOrgID)

	resp := &CacheStatusResponse{Org: org.Alias}
	if dir, ok := app.Coordinator.CachedDir(org.ID); ok {
		resp.Cached = true
		resp.Directory = dir
	}
	if app.DB != nil {
		history, err := app.DB.ListRetrievals(org.ID, cacheLimit)
		if err != nil {
			app.Logger.Warn("Failed to read retrieval history", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			resp.History = history
		}
	}

	printResponse(resp, cacheFormat)
}

func runCacheInvalidate(cmd *cobra.Command, args []string) {
	requireOrg()
	app := mustGetApp()
	org := orgFromFlags(cacheOrg, cacheOrgID)

	if err := app.Coordinator.Invalidate(org.ID); err != nil {
		fmt.Fprintf(os.Stderr, "Error invalidating cache: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Cache invalidated for %s\n", org.Alias)
}
