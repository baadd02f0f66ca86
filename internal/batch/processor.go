// Package batch is the concurrency-controlled execution engine driving
// handler invocations: chunked-barrier type fan-out, generic request
// processing with priorities and timeouts, and aggregate statistics.
package batch

import (
	"context"
	"sort"
	"sync"
	"time"

	"sforg/internal/config"
	"sforg/internal/errors"
	"sforg/internal/logging"
	"sforg/internal/metadata"
	"sforg/internal/registry"
)

// Processor drives batches of handler invocations under a concurrency
// policy. Chunks execute with barrier semantics: chunk N fully resolves
// before chunk N+1 starts.
type Processor struct {
	registry *registry.Registry
	logger   *logging.Logger

	mu                 sync.RWMutex
	defaultConcurrency int
}

// NewProcessor creates a processor bound to a registry
func NewProcessor(reg *registry.Registry, logger *logging.Logger) *Processor {
	return &Processor{
		registry:           reg,
		logger:             logger.Component("batch"),
		defaultConcurrency: config.DefaultParallelism,
	}
}

// SetDefaultConcurrency sets the chunk size used when options omit one,
// clamped to [1,10].
func (p *Processor) SetDefaultConcurrency(n int) {
	if n < config.MinConcurrency {
		n = config.MinConcurrency
	}
	if n > config.MaxConcurrency {
		n = config.MaxConcurrency
	}
	p.mu.Lock()
	p.defaultConcurrency = n
	p.mu.Unlock()
}

// DefaultConcurrency returns the current default chunk size
func (p *Processor) DefaultConcurrency() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.defaultConcurrency
}

// TypeOptions controls a ProcessTypes run
type TypeOptions struct {
	// Parallel selects chunked parallel execution; false iterates
	// sequentially in input order
	Parallel bool

	// MaxConcurrency is the chunk size; zero means the processor
	// default. Values are clamped to [1,10].
	MaxConcurrency int
}

// ProcessTypes lists items for each requested type through its
// registered handler. A type with no handler becomes a failure entry;
// one type's failure never blocks the others.
func (p *Processor) ProcessTypes(ctx context.Context, org metadata.Org, typeNames []string, opts TypeOptions) metadata.ProcessingResult[metadata.TypeItems] {
	start := time.Now()
	var result metadata.ProcessingResult[metadata.TypeItems]

	listOne := func(typeName string) (metadata.TypeItems, error) {
		h, ok := p.registry.GetHandler(typeName)
		if !ok {
			return metadata.TypeItems{}, errors.New(errors.TypeUnregistered,
				"no handler registered for type "+typeName, nil)
		}
		items, err := h.ListItems(ctx, org, typeName)
		if err != nil {
			return metadata.TypeItems{}, err
		}
		return metadata.TypeItems{Type: typeName, Items: items}, nil
	}

	if !opts.Parallel {
		for _, typeName := range typeNames {
			ti, err := listOne(typeName)
			if err != nil {
				result.AddFailure(typeName, err.Error())
				continue
			}
			result.AddSuccess(ti)
		}
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result
	}

	size := opts.MaxConcurrency
	if size <= 0 {
		size = p.DefaultConcurrency()
	}
	if size > config.MaxConcurrency {
		size = config.MaxConcurrency
	}

	var mu sync.Mutex
	for _, group := range chunk(typeNames, size) {
		var wg sync.WaitGroup
		for _, typeName := range group {
			wg.Add(1)
			go func(typeName string) {
				defer wg.Done()
				ti, err := listOne(typeName)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.AddFailure(typeName, err.Error())
					return
				}
				result.AddSuccess(ti)
			}(typeName)
		}
		wg.Wait()
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	p.logger.Debug("Type batch finished", map[string]interface{}{
		"types":      len(typeNames),
		"failed":     len(result.Failures),
		"durationMs": result.ProcessingTimeMs,
	})
	return result
}

// RequestOptions controls a ProcessRequests run
type RequestOptions[T any] struct {
	// MaxConcurrency is the chunk size, clamped to [1,10]; zero means 1
	MaxConcurrency int

	// Priority, when set, sorts requests descending by priority before
	// chunking. Order among equal priorities is unspecified.
	Priority func(T) int

	// Timeout bounds each individual invocation; zero disables the race
	Timeout time.Duration

	// Describe names a request in failure entries; nil falls back to
	// its position in the (possibly re-ordered) request list
	Describe func(T) string
}

// ProcessRequests runs fn over requests in concurrency-capped chunks
// with barrier semantics. A timed-out invocation contributes a
// "Request timeout" failure entry; it never aborts the batch.
func ProcessRequests[T, R any](ctx context.Context, requests []T, fn func(context.Context, T) (R, error), opts RequestOptions[T]) metadata.ProcessingResult[R] {
	start := time.Now()
	var result metadata.ProcessingResult[R]

	size := opts.MaxConcurrency
	if size < config.MinConcurrency {
		size = config.MinConcurrency
	}
	if size > config.MaxConcurrency {
		size = config.MaxConcurrency
	}

	ordered := make([]T, len(requests))
	copy(ordered, requests)
	if opts.Priority != nil {
		sort.Slice(ordered, func(i, j int) bool {
			return opts.Priority(ordered[i]) > opts.Priority(ordered[j])
		})
	}

	describe := opts.Describe
	if describe == nil {
		describe = func(T) string { return "request" }
	}

	var mu sync.Mutex
	for _, group := range chunk(ordered, size) {
		var wg sync.WaitGroup
		for _, req := range group {
			wg.Add(1)
			go func(req T) {
				defer wg.Done()
				value, err := invokeWithTimeout(ctx, req, fn, opts.Timeout)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.AddFailure(describe(req), err.Error())
					return
				}
				result.AddSuccess(value)
			}(req)
		}
		wg.Wait()
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result
}

// invokeWithTimeout races fn against the timeout. The invocation
// context is cancelled when the race is lost so a well-behaved fn stops
// doing work instead of running on detached.
func invokeWithTimeout[T, R any](ctx context.Context, req T, fn func(context.Context, T) (R, error), timeout time.Duration) (R, error) {
	if timeout <= 0 {
		return fn(ctx, req)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value R
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(callCtx, req)
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-callCtx.Done():
		var zero R
		return zero, timeoutError{}
	}
}

type timeoutError struct{}

func (timeoutError) Error() string { return "Request timeout" }

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
