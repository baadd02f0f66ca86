package main

import (
	"sforg/internal/version"

	"github.com/spf13/cobra"
)

var (
	// rootFlag is the directory whose .sforg/ holds config and state
	rootFlag string
	// logLevelFlag overrides the configured log level
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "sforg",
	Short: "sforg - Salesforce org metadata retrieval",
	Long: `sforg enumerates and retrieves Salesforce org metadata through the sf CLI:
per-type listing and content fetch with bounded concurrency, plus composite
manifest retrievals cached on disk per org.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("sforg version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", ".",
		"Project root holding the .sforg directory")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default from config)")
}
