package metadata

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// customTypesFile represents the optional .sforg/types.toml declaring
// additional metadata types on top of the built-ins.
type customTypesFile struct {
	Types []customType `toml:"types"`
}

type customType struct {
	Name        string   `toml:"name"`
	Label       string   `toml:"label"`
	Suffixes    []string `toml:"suffixes"`
	IsBundle    bool     `toml:"is_bundle"`
	HasMetaFile bool     `toml:"has_meta_file"`
	Strategy    string   `toml:"strategy"`
	Operations  []string `toml:"operations"`
}

// LoadCustomDefinitions reads extra TypeDefinitions from a TOML file.
// A missing file yields an empty slice; a malformed one is an error.
func LoadCustomDefinitions(path string) ([]TypeDefinition, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var file customTypesFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	defs := make([]TypeDefinition, 0, len(file.Types))
	for _, t := range file.Types {
		if t.Name == "" {
			return nil, fmt.Errorf("%s: every [[types]] entry needs a name", path)
		}
		def := TypeDefinition{
			Name:        t.Name,
			Label:       t.Label,
			Suffixes:    t.Suffixes,
			IsBundle:    t.IsBundle,
			HasMetaFile: t.HasMetaFile,
			Strategy:    RetrievalStrategy(t.Strategy),
		}
		if def.Label == "" {
			def.Label = t.Name
		}
		if def.Strategy == "" {
			def.Strategy = StrategyCustom
		}
		if len(t.Operations) == 0 {
			def.Operations = []Operation{OperationList, OperationFetch}
		} else {
			for _, op := range t.Operations {
				def.Operations = append(def.Operations, Operation(op))
			}
		}
		defs = append(defs, def)
	}

	return defs, nil
}
