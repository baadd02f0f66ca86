package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	"sforg/internal/config"
	"sforg/internal/logging"
	"sforg/internal/metadata"
	"sforg/internal/sfcli"
)

// BaseHandler supplies the shared machinery concrete handlers embed:
// capability introspection, policy-driven CLI invocation, and the
// default chunked batch-fetch behavior.
type BaseHandler struct {
	types  []string
	policy config.HandlerPolicy
	runner sfcli.Runner
	logger *logging.Logger
}

// NewBaseHandler builds the embedded base for the given type names
func NewBaseHandler(types []string, policy config.HandlerPolicy, runner sfcli.Runner, logger *logging.Logger) *BaseHandler {
	return &BaseHandler{
		types:  types,
		policy: policy.Normalized(),
		runner: runner,
		logger: logger,
	}
}

// Supports reports whether typeName is one of this handler's types
func (b *BaseHandler) Supports(typeName string) bool {
	for _, t := range b.types {
		if t == typeName {
			return true
		}
	}
	return false
}

// SupportedTypes lists the type names this handler answers for
func (b *BaseHandler) SupportedTypes() []string {
	out := make([]string, len(b.types))
	copy(out, b.types)
	return out
}

// Policy returns the handler's normalized runtime policy
func (b *BaseHandler) Policy() config.HandlerPolicy {
	return b.policy
}

// run invokes the CLI under this handler's timeout and retry policy
func (b *BaseHandler) run(ctx context.Context, args []string) ([]byte, error) {
	return b.runner.Run(ctx, args, sfcli.RunOptions{
		TimeoutMs: b.policy.TimeoutMs,
		Retries:   b.policy.RetryCount,
	})
}

// fetchFunc is the per-item fetch a concrete handler plugs into fetchBatch
type fetchFunc func(ctx context.Context, org metadata.Org, item metadata.Item) (metadata.Content, error)

// fetchBatch is the default FetchContentBatch implementation: items are
// split into chunks of MaxConcurrency when the policy is parallel,
// otherwise processed one by one. A failed item becomes a failure entry;
// siblings are unaffected.
func (b *BaseHandler) fetchBatch(ctx context.Context, org metadata.Org, items []metadata.Item, fetch fetchFunc) metadata.ProcessingResult[metadata.ItemContent] {
	start := time.Now()
	var result metadata.ProcessingResult[metadata.ItemContent]

	if !b.policy.Parallel {
		for _, item := range items {
			content, err := fetch(ctx, org, item)
			if err != nil {
				result.AddFailure(item.ID, err.Error())
				continue
			}
			result.AddSuccess(metadata.ItemContent{Item: item, Content: content})
		}
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result
	}

	var mu sync.Mutex
	for _, group := range chunk(items, b.policy.MaxConcurrency) {
		var wg sync.WaitGroup
		for _, item := range group {
			wg.Add(1)
			go func(item metadata.Item) {
				defer wg.Done()
				content, err := fetch(ctx, org, item)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.AddFailure(item.ID, err.Error())
					return
				}
				result.AddSuccess(metadata.ItemContent{Item: item, Content: content})
			}(item)
		}
		wg.Wait()
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result
}

// chunk splits in into successive groups of at most size elements
func chunk[T any](in []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var out [][]T
	for start := 0; start < len(in); start += size {
		end := start + size
		if end > len(in) {
			end = len(in)
		}
		out = append(out, in[start:end])
	}
	return out
}

// escapeSoql escapes single quotes in a SOQL string literal
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
