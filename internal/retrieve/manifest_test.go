package retrieve

import (
	"encoding/xml"
	"strings"
	"testing"

	"sforg/internal/metadata"
)

func TestBuildManifestIncludesChildTypes(t *testing.T) {
	defs := []metadata.TypeDefinition{
		{Name: "CustomObject", Children: []metadata.TypeDefinition{{Name: "CustomField"}}},
		{Name: "ApexClass"},
	}

	body, err := BuildManifest(defs, "59.0")
	if err != nil {
		t.Fatalf("BuildManifest failed: %v", err)
	}

	var parsed packageManifest
	if err := xml.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("manifest does not parse: %v", err)
	}

	if parsed.Version != "59.0" {
		t.Errorf("version = %q, want 59.0", parsed.Version)
	}
	if parsed.Xmlns != manifestXmlns {
		t.Errorf("xmlns = %q", parsed.Xmlns)
	}

	var names []string
	for _, mt := range parsed.Types {
		names = append(names, mt.Name)
		if len(mt.Members) != 1 || mt.Members[0] != "*" {
			t.Errorf("type %s members = %v, want wildcard", mt.Name, mt.Members)
		}
	}
	want := []string{"ApexClass", "CustomField", "CustomObject"}
	if len(names) != len(want) {
		t.Fatalf("types = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("types[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestBuildManifestDeduplicates(t *testing.T) {
	defs := []metadata.TypeDefinition{
		{Name: "ApexClass"},
		{Name: "ApexClass"},
	}
	body, err := BuildManifest(defs, "59.0")
	if err != nil {
		t.Fatalf("BuildManifest failed: %v", err)
	}
	if n := strings.Count(string(body), "<name>ApexClass</name>"); n != 1 {
		t.Errorf("ApexClass listed %d times, want 1", n)
	}
}

func TestBuildManifestHasXMLHeader(t *testing.T) {
	body, err := BuildManifest([]metadata.TypeDefinition{{Name: "Flow"}}, "59.0")
	if err != nil {
		t.Fatalf("BuildManifest failed: %v", err)
	}
	if !strings.HasPrefix(string(body), "<?xml") {
		t.Error("manifest missing XML declaration")
	}
	if !strings.HasSuffix(string(body), "\n") {
		t.Error("manifest missing trailing newline")
	}
}
