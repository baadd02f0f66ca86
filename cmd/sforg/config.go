package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sforg/internal/config"
)

var (
	configFormat string
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage sforg configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .sforg/config.json",
	Run:   runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Run:   runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Read a value from the settings store",
	Args:  cobra.ExactArgs(1),
	Run:   runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a value in the settings store",
	Args:  cobra.ExactArgs(2),
	Run:   runConfigSet,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configShowCmd.Flags().StringVar(&configFormat, "format", "json", "Output format (json, yaml)")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := filepath.Join(rootFlag, ".sforg", "config.json")
	if _, err := os.Stat(path); err == nil && !configForce {
		fmt.Fprintf(os.Stderr, "Error: %s already exists (use --force to overwrite)\n", path)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	cfg.RepoRoot = rootFlag
	if err := cfg.Save(rootFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	app := mustGetApp()
	printResponse(app.Config, configFormat)
}

func runConfigGet(cmd *cobra.Command, args []string) {
	settings, err := config.OpenSettings(rootFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening settings: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(settings.GetString(args[0], ""))
}

func runConfigSet(cmd *cobra.Command, args []string) {
	settings, err := config.OpenSettings(rootFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening settings: %v\n", err)
		os.Exit(1)
	}
	if err := settings.Set(args[0], args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing settings: %v\n", err)
		os.Exit(1)
	}
}
