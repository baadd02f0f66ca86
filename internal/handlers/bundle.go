package handlers

import (
	"context"
	"fmt"

	"sforg/internal/config"
	"sforg/internal/errors"
	"sforg/internal/logging"
	"sforg/internal/metadata"
	"sforg/internal/sfcli"
)

// BundleHandler serves multi-file component bundles (Lightning Web
// Components and Aura). Listing goes through `org list metadata`;
// content comes from the per-resource tooling tables so a bundle can be
// assembled without a full manifest retrieve.
type BundleHandler struct {
	*BaseHandler
	defs map[string]metadata.TypeDefinition
}

// NewBundleHandler creates a handler for the given bundle definitions
func NewBundleHandler(defs []metadata.TypeDefinition, cfg *config.Config, runner sfcli.Runner, logger *logging.Logger) *BundleHandler {
	names := make([]string, 0, len(defs))
	byName := make(map[string]metadata.TypeDefinition, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
		byName[d.Name] = d
	}

	policy := config.DefaultPolicy()
	if len(names) > 0 {
		policy = cfg.PolicyFor(names[0])
	}

	return &BundleHandler{
		BaseHandler: NewBaseHandler(names, policy, runner, logger.Component("bundle")),
		defs:        byName,
	}
}

// ListItems enumerates bundles of typeName in the org
func (h *BundleHandler) ListItems(ctx context.Context, org metadata.Org, typeName string) ([]metadata.Item, error) {
	def, ok := h.defs[typeName]
	if !ok {
		return nil, errors.New(errors.TypeUnregistered,
			fmt.Sprintf("handler does not answer for type %s", typeName), nil)
	}

	out, err := h.run(ctx, []string{
		"org", "list", "metadata",
		"--metadata-type", def.Name,
		"--target-org", org.Alias,
		"--json",
	})
	if err != nil {
		return nil, errors.New(errors.ListingFailed,
			fmt.Sprintf("listing %s failed: %v", typeName, err), err)
	}

	env, err := sfcli.ParseEnvelope(out)
	if err != nil {
		return nil, errors.New(errors.ListingFailed,
			fmt.Sprintf("listing %s failed: %v", typeName, err), err)
	}

	type record struct {
		FullName string `json:"fullName"`
	}
	records, err := sfcli.Records[record](env)
	if err != nil {
		return nil, errors.New(errors.ListingFailed,
			fmt.Sprintf("listing %s failed: %v", typeName, err), err)
	}

	items := make([]metadata.Item, 0, len(records))
	for _, rec := range records {
		if rec.FullName == "" {
			continue
		}
		item := metadata.NewItem(org.ID, def, rec.FullName)
		// Bundles are directories; the display name is the bare
		// bundle name, not name+suffix.
		item.FileName = rec.FullName
		items = append(items, item)
	}

	return items, nil
}

// FetchContent assembles the bundle's files from the per-resource
// tooling tables. On total failure the returned bundle still carries an
// empty placeholder entry for its main file, so the main-file key is
// valid unconditionally.
func (h *BundleHandler) FetchContent(ctx context.Context, org metadata.Org, item metadata.Item) (metadata.Content, error) {
	def, ok := h.defs[item.Type]
	if !ok {
		return metadata.Content{}, errors.New(errors.TypeUnregistered,
			fmt.Sprintf("handler does not answer for type %s", item.Type), nil)
	}

	kind, mainFile, query := h.resourceQuery(def, item)
	bundle := metadata.NewBundle(kind, mainFile)

	out, err := h.run(ctx, []string{
		"data", "query",
		"--query", query,
		"--use-tooling-api",
		"--target-org", org.Alias,
		"--json",
	})
	if err != nil {
		return metadata.Content{Bundle: bundle}, errors.New(errors.ContentFailed,
			fmt.Sprintf("fetching bundle %s failed: %v", item.FullName, err), err)
	}

	env, err := sfcli.ParseEnvelope(out)
	if err != nil {
		return metadata.Content{Bundle: bundle}, errors.New(errors.ContentFailed,
			fmt.Sprintf("fetching bundle %s failed: %v", item.FullName, err), err)
	}

	type resource struct {
		FilePath string `json:"FilePath"`
		DefType  string `json:"DefType"`
		Format   string `json:"Format"`
		Source   string `json:"Source"`
	}
	records, err := sfcli.QueryRecords[resource](env)
	if err != nil {
		return metadata.Content{Bundle: bundle}, errors.New(errors.ContentFailed,
			fmt.Sprintf("fetching bundle %s failed: %v", item.FullName, err), err)
	}

	for _, rec := range records {
		name := h.resourceFileName(def, item.FullName, rec.FilePath, rec.DefType, rec.Format)
		if name == "" {
			continue
		}
		bundle.Put(name, rec.Source)
	}

	return metadata.Content{Bundle: bundle}, nil
}

// FetchContentBatch applies the default chunked batch behavior
func (h *BundleHandler) FetchContentBatch(ctx context.Context, org metadata.Org, items []metadata.Item) metadata.ProcessingResult[metadata.ItemContent] {
	return h.fetchBatch(ctx, org, items, h.FetchContent)
}

func (h *BundleHandler) resourceQuery(def metadata.TypeDefinition, item metadata.Item) (kind, mainFile, query string) {
	name := escapeSoql(item.FullName)
	switch def.Name {
	case "AuraDefinitionBundle":
		kind = "aura"
		mainFile = item.FullName + ".cmp"
		query = fmt.Sprintf(
			"SELECT DefType, Format, Source FROM AuraDefinition WHERE AuraDefinitionBundle.DeveloperName = '%s'", name)
	default:
		kind = "lwc"
		mainFile = item.FullName + ".js"
		query = fmt.Sprintf(
			"SELECT FilePath, Format, Source FROM LightningComponentResource WHERE LightningComponentBundle.DeveloperName = '%s'", name)
	}
	return kind, mainFile, query
}

// resourceFileName derives a bundle-relative filename from the resource
// row. LWC rows carry a FilePath; Aura rows only a DefType/Format pair.
func (h *BundleHandler) resourceFileName(def metadata.TypeDefinition, bundleName, filePath, defType, format string) string {
	if filePath != "" {
		// FilePath looks like "lwc/widget/widget.js"; keep the leaf.
		for i := len(filePath) - 1; i >= 0; i-- {
			if filePath[i] == '/' {
				return filePath[i+1:]
			}
		}
		return filePath
	}

	ext := auraExtensions[defType]
	if ext == "" {
		if format == "" {
			return ""
		}
		ext = "." + format
	}
	return bundleName + ext
}

// auraExtensions maps AuraDefinition DefType values to file extensions
var auraExtensions = map[string]string{
	"COMPONENT":     ".cmp",
	"CONTROLLER":    "Controller.js",
	"HELPER":        "Helper.js",
	"STYLE":         ".css",
	"DOCUMENTATION": ".auradoc",
	"RENDERER":      "Renderer.js",
	"EVENT":         ".evt",
	"APPLICATION":   ".app",
}
