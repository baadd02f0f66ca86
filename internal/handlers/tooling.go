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

// ToolingQueryHandler lists and fetches code-bearing types through the
// Tooling API. One instance answers for every sibling type that stores
// its source in a Body field (ApexClass, ApexTrigger); the type name is
// only a discriminator in the generated query.
type ToolingQueryHandler struct {
	*BaseHandler
	defs       map[string]metadata.TypeDefinition
	apiVersion string
}

// NewToolingQueryHandler creates a handler for the given tooling-query
// type definitions.
func NewToolingQueryHandler(defs []metadata.TypeDefinition, cfg *config.Config, runner sfcli.Runner, logger *logging.Logger) *ToolingQueryHandler {
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

	return &ToolingQueryHandler{
		BaseHandler: NewBaseHandler(names, policy, runner, logger.Component("tooling")),
		defs:        byName,
		apiVersion:  cfg.APIVersion,
	}
}

// ListItems enumerates every member of typeName via a tooling query
func (h *ToolingQueryHandler) ListItems(ctx context.Context, org metadata.Org, typeName string) ([]metadata.Item, error) {
	def, ok := h.defs[typeName]
	if !ok {
		return nil, errors.New(errors.TypeUnregistered,
			fmt.Sprintf("handler does not answer for type %s", typeName), nil)
	}

	query := fmt.Sprintf("SELECT Name FROM %s ORDER BY Name", def.Name)
	out, err := h.run(ctx, []string{
		"data", "query",
		"--query", query,
		"--use-tooling-api",
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
		Name string `json:"Name"`
	}
	records, err := sfcli.QueryRecords[record](env)
	if err != nil {
		return nil, errors.New(errors.ListingFailed,
			fmt.Sprintf("listing %s failed: %v", typeName, err), err)
	}

	items := make([]metadata.Item, 0, len(records)*2)
	for _, rec := range records {
		if rec.Name == "" {
			continue
		}
		items = append(items, metadata.NewItem(org.ID, def, rec.Name))
		if def.HasMetaFile {
			items = append(items, metadata.NewMetaItem(org.ID, def, rec.Name))
		}
	}

	return items, nil
}

// FetchContent returns the Body of one item, or a synthesized descriptor
// for companion meta items (the org does not store those as records).
func (h *ToolingQueryHandler) FetchContent(ctx context.Context, org metadata.Org, item metadata.Item) (metadata.Content, error) {
	def, ok := h.defs[item.Type]
	if !ok {
		return metadata.Content{}, errors.New(errors.TypeUnregistered,
			fmt.Sprintf("handler does not answer for type %s", item.Type), nil)
	}

	if item.IsMetaFile {
		return metadata.Content{Body: h.metaDescriptor(def)}, nil
	}

	query := fmt.Sprintf("SELECT Body FROM %s WHERE Name = '%s'", def.Name, escapeSoql(item.FullName))
	out, err := h.run(ctx, []string{
		"data", "query",
		"--query", query,
		"--use-tooling-api",
		"--target-org", org.Alias,
		"--json",
	})
	if err != nil {
		return metadata.Content{}, errors.New(errors.ContentFailed,
			fmt.Sprintf("fetching %s failed: %v", item.FullName, err), err)
	}

	env, err := sfcli.ParseEnvelope(out)
	if err != nil {
		return metadata.Content{}, errors.New(errors.ContentFailed,
			fmt.Sprintf("fetching %s failed: %v", item.FullName, err), err)
	}

	type record struct {
		Body string `json:"Body"`
	}
	records, err := sfcli.QueryRecords[record](env)
	if err != nil || len(records) == 0 {
		return metadata.Content{}, errors.New(errors.ContentFailed,
			fmt.Sprintf("%s %s has no body in org %s", item.Type, item.FullName, org.Alias), err)
	}

	return metadata.Content{Body: records[0].Body}, nil
}

// FetchContentBatch applies the default chunked batch behavior
func (h *ToolingQueryHandler) FetchContentBatch(ctx context.Context, org metadata.Org, items []metadata.Item) metadata.ProcessingResult[metadata.ItemContent] {
	return h.fetchBatch(ctx, org, items, h.FetchContent)
}

func (h *ToolingQueryHandler) metaDescriptor(def metadata.TypeDefinition) string {
	return fmt.Sprintf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"+
		"<%s xmlns=\"http://soap.sforce.com/2006/04/metadata\">\n"+
		"    <apiVersion>%s</apiVersion>\n"+
		"    <status>Active</status>\n"+
		"</%s>\n", def.Name, h.apiVersion, def.Name)
}
