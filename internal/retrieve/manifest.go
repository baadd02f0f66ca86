package retrieve

import (
	"encoding/xml"
	"sort"

	"sforg/internal/metadata"
)

const manifestXmlns = "http://soap.sforce.com/2006/04/metadata"

// packageManifest is the package.xml document enumerating the types of
// one composite retrieval.
type packageManifest struct {
	XMLName xml.Name       `xml:"Package"`
	Xmlns   string         `xml:"xmlns,attr"`
	Types   []manifestType `xml:"types"`
	Version string         `xml:"version"`
}

type manifestType struct {
	Members []string `xml:"members"`
	Name    string   `xml:"name"`
}

// BuildManifest renders a wildcard package.xml covering the given type
// definitions, child types included. Type order is deterministic.
func BuildManifest(defs []metadata.TypeDefinition, apiVersion string) ([]byte, error) {
	seen := make(map[string]bool)
	var names []string

	var collect func(defs []metadata.TypeDefinition)
	collect = func(defs []metadata.TypeDefinition) {
		for _, def := range defs {
			if !seen[def.Name] {
				seen[def.Name] = true
				names = append(names, def.Name)
			}
			collect(def.Children)
		}
	}
	collect(defs)
	sort.Strings(names)

	manifest := packageManifest{
		Xmlns:   manifestXmlns,
		Version: apiVersion,
	}
	for _, name := range names {
		manifest.Types = append(manifest.Types, manifestType{
			Members: []string{"*"},
			Name:    name,
		})
	}

	body, err := xml.MarshalIndent(manifest, "", "    ")
	if err != nil {
		return nil, err
	}

	return append([]byte(xml.Header), append(body, '\n')...), nil
}
