// Package metadata defines the data model shared by every sforg component:
// type definitions, retrievable items, file contents and bundles, and the
// generic batch result shape.
package metadata

import (
	"fmt"
	"strings"
)

// RetrievalStrategy tags how a type's items are fetched from the org
type RetrievalStrategy string

const (
	// StrategyToolingQuery lists and fetches through the Tooling API
	StrategyToolingQuery RetrievalStrategy = "tooling-query"
	// StrategyManifestRetrieve fetches through a package.xml retrieve
	StrategyManifestRetrieve RetrievalStrategy = "manifest-retrieve"
	// StrategySoql lists through a plain SOQL query
	StrategySoql RetrievalStrategy = "soql"
	// StrategyCustom marks handler-specific retrieval logic
	StrategyCustom RetrievalStrategy = "custom"
)

// Operation identifies a capability a type supports
type Operation string

const (
	// OperationList enumerates items of the type
	OperationList Operation = "list"
	// OperationFetch retrieves a single item's content
	OperationFetch Operation = "fetch"
	// OperationQuery runs ad-hoc queries against the type
	OperationQuery Operation = "query"
)

// TypeDefinition is the static descriptor of a retrievable metadata kind.
// Definitions are created once at bootstrap and never mutated afterwards.
type TypeDefinition struct {
	// Name is the unique metadata type name, e.g. "ApexClass"
	Name string `json:"name" toml:"name"`

	// Label is the human-readable display name
	Label string `json:"label" toml:"label"`

	// Suffixes are the file-extension suffixes for this type, main
	// suffix first, e.g. [".cls"]
	Suffixes []string `json:"suffixes" toml:"suffixes"`

	// IsBundle is true when one logical item expands to multiple files
	IsBundle bool `json:"isBundle" toml:"isBundle"`

	// HasMetaFile is true when each item carries a companion
	// "-meta.xml" descriptor file
	HasMetaFile bool `json:"hasMetaFile" toml:"hasMetaFile"`

	// Strategy selects the retrieval mechanism
	Strategy RetrievalStrategy `json:"strategy" toml:"strategy"`

	// Operations lists the supported capabilities
	Operations []Operation `json:"operations" toml:"operations"`

	// Children are dependent sub-types retrieved alongside the parent
	// (composition, not inheritance)
	Children []TypeDefinition `json:"children,omitempty" toml:"children"`
}

// SupportsOperation reports whether the definition declares op
func (d TypeDefinition) SupportsOperation(op Operation) bool {
	for _, o := range d.Operations {
		if o == op {
			return true
		}
	}
	return false
}

// MainSuffix returns the primary file suffix, or "" for suffix-less types
func (d TypeDefinition) MainSuffix() string {
	if len(d.Suffixes) == 0 {
		return ""
	}
	return d.Suffixes[0]
}

// Item is one retrievable unit within a type. Items are produced by
// listing and are never mutated afterwards.
type Item struct {
	// ID is the synthesized unique id: {org}-{type-lowercase}-{fullName},
	// with a "-meta" suffix for companion descriptor items
	ID string `json:"id"`

	// Type is the metadata type name
	Type string `json:"type"`

	// FullName is the fully-qualified member name within the org
	FullName string `json:"fullName"`

	// OrgID identifies the owning org
	OrgID string `json:"orgId"`

	// FileName is the display file name, e.g. "Foo.cls"
	FileName string `json:"fileName"`

	// IsMetaFile marks companion descriptor items
	IsMetaFile bool `json:"isMetaFile"`
}

// NewItem builds an Item for the given definition and member name
func NewItem(orgID string, def TypeDefinition, fullName string) Item {
	return Item{
		ID:       ItemID(orgID, def.Name, fullName),
		Type:     def.Name,
		FullName: fullName,
		OrgID:    orgID,
		FileName: fullName + def.MainSuffix(),
	}
}

// NewMetaItem builds the companion descriptor Item for a member
func NewMetaItem(orgID string, def TypeDefinition, fullName string) Item {
	return Item{
		ID:         ItemID(orgID, def.Name, fullName) + "-meta",
		Type:       def.Name,
		FullName:   fullName,
		OrgID:      orgID,
		FileName:   fullName + def.MainSuffix() + "-meta.xml",
		IsMetaFile: true,
	}
}

// ItemID synthesizes the unique item id
func ItemID(orgID, typeName, fullName string) string {
	return fmt.Sprintf("%s-%s-%s", orgID, strings.ToLower(typeName), fullName)
}

// Org identifies the remote org (target) being queried
type Org struct {
	// ID is the stable target identifier used for cache and ledger keys
	ID string `json:"id"`

	// Alias is the CLI-facing org alias or username (--target-org)
	Alias string `json:"alias"`
}

// TypeItems pairs a type name with its listed items
type TypeItems struct {
	Type  string `json:"type"`
	Items []Item `json:"items"`
}

// ItemContent pairs an item with its fetched content
type ItemContent struct {
	Item    Item    `json:"item"`
	Content Content `json:"content"`
}
