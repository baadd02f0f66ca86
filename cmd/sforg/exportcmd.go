package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sforg/internal/export"
)

var (
	exportOrg   string
	exportOrgID string
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Archive an org's cached source as tar+zstd",
	Long: `Package an org's cached source tree into a .tar.zst archive. The org
must have been retrieved first.`,
	Run: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOrg, "org", "", "Target org alias (required)")
	exportCmd.Flags().StringVar(&exportOrgID, "org-id", "", "Org id (defaults to the alias)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Archive path (default <org>.tar.zst)")
	exportCmd.MarkFlagRequired("org")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	app := mustGetApp()
	org := orgFromFlags(exportOrg, exportOrgID)

	dir, ok := app.Coordinator.CachedDir(org.ID)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: org %s has no cached source; run retrieve first\n", org.Alias)
		os.Exit(1)
	}

	dest := exportOut
	if dest == "" {
		dest = filepath.Join(".", org.ID+".tar.zst")
	}

	n, err := export.NewArchiver(app.Logger).Archive(dir, dest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing archive: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Archived %d files to %s\n", n, dest)
}
