// Package registry is the process-wide directory of metadata types and
// their handlers. A Registry is constructed explicitly at the composition
// root and passed by reference; there is no hidden singleton.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sforg/internal/handlers"
	"sforg/internal/logging"
	"sforg/internal/metadata"
)

// Registry maps type names to their definitions and registered handlers
type Registry struct {
	definitions map[string]metadata.TypeDefinition
	handlers    map[string]handlers.Handler
	logger      *logging.Logger
	mu          sync.RWMutex
}

// New creates a registry pre-populated with the built-in type
// definitions. Handlers are registered on top during bootstrap.
func New(logger *logging.Logger) *Registry {
	r := &Registry{
		definitions: make(map[string]metadata.TypeDefinition),
		handlers:    make(map[string]handlers.Handler),
		logger:      logger.Component("registry"),
	}
	for _, def := range metadata.BuiltinDefinitions() {
		r.definitions[def.Name] = def
	}
	return r
}

// AddDefinition registers an additional type definition. An existing
// definition with the same name is replaced.
func (r *Registry) AddDefinition(def metadata.TypeDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[def.Name] = def
}

// GetDefinition looks up a type definition by name
func (r *Registry) GetDefinition(name string) (metadata.TypeDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[name]
	return def, ok
}

// Definitions returns all known definitions sorted by name
func (r *Registry) Definitions() []metadata.TypeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]metadata.TypeDefinition, 0, len(r.definitions))
	for _, def := range r.definitions {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RegisterHandler binds a handler to a type name, overwriting any prior
// binding for that name.
func (r *Registry) RegisterHandler(typeName string, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[typeName] = h
	r.logger.Debug("Registered handler", map[string]interface{}{
		"type":    typeName,
		"answers": h.SupportedTypes(),
	})
}

// GetHandler returns the handler bound to typeName
func (r *Registry) GetHandler(typeName string) (handlers.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[typeName]
	return h, ok
}

// ListSupportedTypes returns the sorted names of types with a handler
func (r *Registry) ListSupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsTypeSupported reports whether a handler is registered for name
func (r *Registry) IsTypeSupported(name string) bool {
	_, ok := r.GetHandler(name)
	return ok
}

// GetFilesForTypes lists items for every requested type, fanning out one
// listing per type in full parallel. Type counts are small and bounded,
// so no concurrency cap applies here; capping belongs to item-level
// fan-out where counts reach the thousands.
func (r *Registry) GetFilesForTypes(ctx context.Context, org metadata.Org, typeNames []string) metadata.ProcessingResult[metadata.TypeItems] {
	start := time.Now()
	var result metadata.ProcessingResult[metadata.TypeItems]
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, typeName := range typeNames {
		typeName := typeName
		g.Go(func() error {
			h, ok := r.GetHandler(typeName)
			if !ok {
				mu.Lock()
				result.AddFailure(typeName, "no handler registered for type "+typeName)
				mu.Unlock()
				return nil
			}

			items, err := h.ListItems(gctx, org, typeName)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.AddFailure(typeName, err.Error())
				return nil
			}
			result.AddSuccess(metadata.TypeItems{Type: typeName, Items: items})
			return nil
		})
	}
	// Goroutines always return nil; failures live in the result.
	_ = g.Wait()

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result
}

// GetContentForFiles groups items by type and delegates each group to
// its handler's batch fetch. A group with no registered handler
// contributes one failure per item, preserving the per-item granularity
// callers need for partial re-tries.
func (r *Registry) GetContentForFiles(ctx context.Context, org metadata.Org, items []metadata.Item) metadata.ProcessingResult[metadata.ItemContent] {
	start := time.Now()
	var result metadata.ProcessingResult[metadata.ItemContent]

	groups := make(map[string][]metadata.Item)
	var order []string
	for _, item := range items {
		if _, seen := groups[item.Type]; !seen {
			order = append(order, item.Type)
		}
		groups[item.Type] = append(groups[item.Type], item)
	}

	for _, typeName := range order {
		group := groups[typeName]
		h, ok := r.GetHandler(typeName)
		if !ok {
			for _, item := range group {
				result.AddFailure(item.ID, "no handler registered for type "+typeName)
			}
			continue
		}
		result.Merge(h.FetchContentBatch(ctx, org, group))
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result
}
