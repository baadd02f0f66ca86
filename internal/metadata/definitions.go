package metadata

// BuiltinDefinitions returns the static table of metadata types sforg
// knows out of the box. The slice and its entries must be treated as
// immutable; the registry copies what it needs at bootstrap.
func BuiltinDefinitions() []TypeDefinition {
	return []TypeDefinition{
		{
			Name:        "ApexClass",
			Label:       "Apex Classes",
			Suffixes:    []string{".cls"},
			HasMetaFile: true,
			Strategy:    StrategyToolingQuery,
			Operations:  []Operation{OperationList, OperationFetch, OperationQuery},
		},
		{
			Name:        "ApexTrigger",
			Label:       "Apex Triggers",
			Suffixes:    []string{".trigger"},
			HasMetaFile: true,
			Strategy:    StrategyToolingQuery,
			Operations:  []Operation{OperationList, OperationFetch, OperationQuery},
		},
		{
			Name:       "CustomObject",
			Label:      "Custom Objects",
			Suffixes:   []string{".object"},
			Strategy:   StrategySoql,
			Operations: []Operation{OperationList, OperationFetch, OperationQuery},
			Children: []TypeDefinition{
				{
					Name:       "CustomField",
					Label:      "Custom Fields",
					Suffixes:   []string{".field"},
					Strategy:   StrategySoql,
					Operations: []Operation{OperationList},
				},
			},
		},
		{
			Name:       "Flow",
			Label:      "Flows",
			Suffixes:   []string{".flow"},
			Strategy:   StrategyManifestRetrieve,
			Operations: []Operation{OperationList, OperationFetch},
		},
		{
			Name:       "Layout",
			Label:      "Page Layouts",
			Suffixes:   []string{".layout"},
			Strategy:   StrategyManifestRetrieve,
			Operations: []Operation{OperationList, OperationFetch},
		},
		{
			Name:       "PermissionSet",
			Label:      "Permission Sets",
			Suffixes:   []string{".permissionset"},
			Strategy:   StrategyManifestRetrieve,
			Operations: []Operation{OperationList, OperationFetch},
		},
		{
			Name:       "LightningComponentBundle",
			Label:      "Lightning Web Components",
			Suffixes:   []string{".js", ".html", ".css"},
			IsBundle:   true,
			Strategy:   StrategyManifestRetrieve,
			Operations: []Operation{OperationList, OperationFetch},
		},
		{
			Name:       "AuraDefinitionBundle",
			Label:      "Aura Components",
			Suffixes:   []string{".cmp", ".js", ".css"},
			IsBundle:   true,
			Strategy:   StrategyManifestRetrieve,
			Operations: []Operation{OperationList, OperationFetch},
		},
	}
}
