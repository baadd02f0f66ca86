package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	sferrors "sforg/internal/errors"
)

var doctorFormat string

// DoctorCheck is one diagnostic result.
type DoctorCheck struct {
	Name   string   `json:"name" yaml:"name"`
	OK     bool     `json:"ok" yaml:"ok"`
	Detail string   `json:"detail,omitempty" yaml:"detail,omitempty"`
	Fixes  []string `json:"fixes,omitempty" yaml:"fixes,omitempty"`
}

// DoctorResponse aggregates all diagnostics.
type DoctorResponse struct {
	Checks  []DoctorCheck `json:"checks" yaml:"checks"`
	Healthy bool          `json:"healthy" yaml:"healthy"`
}

func (r *DoctorResponse) HumanString() string {
	var b strings.Builder
	for _, c := range r.Checks {
		mark := "ok"
		if !c.OK {
			mark = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%-4s] %-12s %s\n", mark, c.Name, c.Detail))
		for _, fix := range c.Fixes {
			b.WriteString("         fix: " + fix + "\n")
		}
	}
	if r.Healthy {
		b.WriteString("\nAll checks passed\n")
	} else {
		b.WriteString("\nSome checks failed\n")
	}
	return b.String()
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose sforg setup issues",
	Run:   runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "human", "Output format (json, yaml, human)")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) {
	app := mustGetApp()
	resp := &DoctorResponse{Healthy: true}

	add := func(name string, err error, okDetail string) {
		check := DoctorCheck{Name: name, OK: err == nil, Detail: okDetail}
		if err != nil {
			check.Detail = err.Error()
			for _, fix := range sferrors.GetSuggestedFixes(sferrors.CodeOf(err)) {
				check.Fixes = append(check.Fixes, fix.Description)
			}
			resp.Healthy = false
		}
		resp.Checks = append(resp.Checks, check)
	}

	add("sf-cli", app.Executor.CheckInstalled(),
		fmt.Sprintf("%s found on PATH", app.Executor.Binary()))
	add("config", app.Config.Validate(), "configuration is valid")
	add("cache-root", checkWritable(app.Config.EffectiveCacheRoot()),
		app.Config.EffectiveCacheRoot())

	if app.DB != nil {
		add("storage", app.DB.Ping(), app.DB.Path())
	} else {
		resp.Checks = append(resp.Checks, DoctorCheck{
			Name:   "storage",
			OK:     false,
			Detail: "history database unavailable",
		})
		resp.Healthy = false
	}

	printResponse(resp, doctorFormat)
	if !resp.Healthy {
		os.Exit(1)
	}
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".sforg-doctor")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return err
	}
	return os.Remove(probe)
}
