package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var typesFormat string

// TypeInfo is one row of the types listing.
type TypeInfo struct {
	Name      string   `json:"name" yaml:"name"`
	Label     string   `json:"label" yaml:"label"`
	Strategy  string   `json:"strategy" yaml:"strategy"`
	Suffixes  []string `json:"suffixes,omitempty" yaml:"suffixes,omitempty"`
	IsBundle  bool     `json:"isBundle" yaml:"isBundle"`
	Supported bool     `json:"supported" yaml:"supported"`
	Children  []string `json:"children,omitempty" yaml:"children,omitempty"`
}

// TypesResponse lists the known metadata types.
type TypesResponse struct {
	Types []TypeInfo `json:"types" yaml:"types"`
}

func (r *TypesResponse) HumanString() string {
	var b strings.Builder
	for _, t := range r.Types {
		mark := " "
		if t.Supported {
			mark = "*"
		}
		b.WriteString(fmt.Sprintf("%s %-28s %-18s %s\n", mark, t.Name, t.Strategy, t.Label))
	}
	b.WriteString("\n* = served by a registered handler\n")
	return b.String()
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List known metadata types",
	Run:   runTypes,
}

func init() {
	typesCmd.Flags().StringVar(&typesFormat, "format", "human", "Output format (json, yaml, human)")
	rootCmd.AddCommand(typesCmd)
}

func runTypes(cmd *cobra.Command, args []string) {
	app := mustGetApp()

	resp := &TypesResponse{}
	for _, def := range app.Registry.Definitions() {
		var children []string
		for _, c := range def.Children {
			children = append(children, c.Name)
		}
		resp.Types = append(resp.Types, TypeInfo{
			Name:      def.Name,
			Label:     def.Label,
			Strategy:  string(def.Strategy),
			Suffixes:  def.Suffixes,
			IsBundle:  def.IsBundle,
			Supported: app.Registry.IsTypeSupported(def.Name),
			Children:  children,
		})
	}

	printResponse(resp, typesFormat)
}
