// Package handlers defines the uniform contract every retrievable-type
// implementation satisfies, plus the shared base behavior (chunked batch
// fetching, soft content failures, CLI invocation under policy).
package handlers

import (
	"context"

	"sforg/internal/metadata"
)

// Handler is the polymorphic surface for one or more metadata types.
// Listing failures are hard (returned as errors); content failures are
// soft (captured in the batch result, the batch continues). One handler
// instance may answer for several sibling types that share retrieval
// logic and differ only by a discriminator.
type Handler interface {
	// ListItems enumerates all items of typeName in the org. A type
	// with zero instances yields an empty list, not an error.
	ListItems(ctx context.Context, org metadata.Org, typeName string) ([]metadata.Item, error)

	// FetchContent returns the full content for one item
	FetchContent(ctx context.Context, org metadata.Org, item metadata.Item) (metadata.Content, error)

	// FetchContentBatch fetches many items under this handler's
	// concurrency policy. Individual failures never abort the batch.
	FetchContentBatch(ctx context.Context, org metadata.Org, items []metadata.Item) metadata.ProcessingResult[metadata.ItemContent]

	// Supports reports whether this handler answers for typeName
	Supports(typeName string) bool

	// SupportedTypes lists every type name this handler answers for
	SupportedTypes() []string
}
