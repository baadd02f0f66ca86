package handlers

import (
	"context"
	"fmt"
	"strings"

	"sforg/internal/config"
	"sforg/internal/errors"
	"sforg/internal/logging"
	"sforg/internal/metadata"
	"sforg/internal/sfcli"
)

// SoqlQueryHandler lists schema-shaped types (custom objects) through
// SOQL over EntityDefinition and fetches their describe output as
// content. Unlike code types there is no Body column; content is the
// JSON describe document.
type SoqlQueryHandler struct {
	*BaseHandler
	def metadata.TypeDefinition
}

// NewSoqlQueryHandler creates the handler for one soql-strategy type
func NewSoqlQueryHandler(def metadata.TypeDefinition, cfg *config.Config, runner sfcli.Runner, logger *logging.Logger) *SoqlQueryHandler {
	return &SoqlQueryHandler{
		BaseHandler: NewBaseHandler([]string{def.Name}, cfg.PolicyFor(def.Name), runner, logger.Component("soql")),
		def:         def,
	}
}

// ListItems enumerates custom entities via EntityDefinition
func (h *SoqlQueryHandler) ListItems(ctx context.Context, org metadata.Org, typeName string) ([]metadata.Item, error) {
	if typeName != h.def.Name {
		return nil, errors.New(errors.TypeUnregistered,
			fmt.Sprintf("handler does not answer for type %s", typeName), nil)
	}

	query := "SELECT QualifiedApiName FROM EntityDefinition WHERE IsCustomizable = true AND QualifiedApiName LIKE '%__c' ORDER BY QualifiedApiName"
	out, err := h.run(ctx, []string{
		"data", "query",
		"--query", query,
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
		QualifiedApiName string `json:"QualifiedApiName"`
	}
	records, err := sfcli.QueryRecords[record](env)
	if err != nil {
		return nil, errors.New(errors.ListingFailed,
			fmt.Sprintf("listing %s failed: %v", typeName, err), err)
	}

	items := make([]metadata.Item, 0, len(records))
	for _, rec := range records {
		if rec.QualifiedApiName == "" {
			continue
		}
		items = append(items, metadata.NewItem(org.ID, h.def, rec.QualifiedApiName))
	}

	return items, nil
}

// FetchContent returns the object's describe document as JSON text
func (h *SoqlQueryHandler) FetchContent(ctx context.Context, org metadata.Org, item metadata.Item) (metadata.Content, error) {
	out, err := h.run(ctx, []string{
		"sobject", "describe",
		"--sobject", item.FullName,
		"--target-org", org.Alias,
		"--json",
	})
	if err != nil {
		return metadata.Content{}, errors.New(errors.ContentFailed,
			fmt.Sprintf("describe %s failed: %v", item.FullName, err), err)
	}

	env, err := sfcli.ParseEnvelope(out)
	if err != nil {
		return metadata.Content{}, errors.New(errors.ContentFailed,
			fmt.Sprintf("describe %s failed: %v", item.FullName, err), err)
	}

	body := strings.TrimSpace(string(env.Result))
	if body == "" || body == "null" {
		return metadata.Content{}, errors.New(errors.ContentFailed,
			fmt.Sprintf("describe %s returned no payload", item.FullName), nil)
	}

	return metadata.Content{Body: body}, nil
}

// FetchContentBatch applies the default chunked batch behavior
func (h *SoqlQueryHandler) FetchContentBatch(ctx context.Context, org metadata.Org, items []metadata.Item) metadata.ProcessingResult[metadata.ItemContent] {
	return h.fetchBatch(ctx, org, items, h.FetchContent)
}
