package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"sforg/internal/logging"
	"sforg/internal/metadata"
	"sforg/internal/registry"
)

// slowHandler serves a fixed item list after a configurable delay
type slowHandler struct {
	types []string
	delay time.Duration
	err   error
}

func (s *slowHandler) ListItems(ctx context.Context, org metadata.Org, typeName string) ([]metadata.Item, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return []metadata.Item{{ID: typeName + "-item", Type: typeName}}, nil
}

func (s *slowHandler) FetchContent(ctx context.Context, org metadata.Org, item metadata.Item) (metadata.Content, error) {
	return metadata.Content{Body: "x"}, nil
}

func (s *slowHandler) FetchContentBatch(ctx context.Context, org metadata.Org, items []metadata.Item) metadata.ProcessingResult[metadata.ItemContent] {
	var r metadata.ProcessingResult[metadata.ItemContent]
	for _, item := range items {
		r.AddSuccess(metadata.ItemContent{Item: item})
	}
	return r
}

func (s *slowHandler) Supports(typeName string) bool {
	for _, t := range s.types {
		if t == typeName {
			return true
		}
	}
	return false
}

func (s *slowHandler) SupportedTypes() []string { return s.types }

func testOrg() metadata.Org { return metadata.Org{ID: "org1", Alias: "dev"} }

func TestProcessTypesCountingWithUnregistered(t *testing.T) {
	reg := registry.New(logging.NewNop())
	reg.RegisterHandler("ApexClass", &slowHandler{types: []string{"ApexClass"}})
	reg.RegisterHandler("Flow", &slowHandler{types: []string{"Flow"}, err: fmt.Errorf("boom")})
	p := NewProcessor(reg, logging.NewNop())

	requested := []string{"ApexClass", "Flow", "Layout"}
	for _, parallel := range []bool{false, true} {
		result := p.ProcessTypes(context.Background(), testOrg(), requested, TypeOptions{Parallel: parallel})
		if result.Attempted() != 3 {
			t.Fatalf("parallel=%v: attempted %d, want 3", parallel, result.Attempted())
		}
		if len(result.Success) != 1 || len(result.Failures) != 2 {
			t.Errorf("parallel=%v: got %d/%d success/failures", parallel, len(result.Success), len(result.Failures))
		}
		found := false
		for _, f := range result.Failures {
			if f.Input == "Layout" {
				found = true
			}
		}
		if !found {
			t.Errorf("parallel=%v: unregistered type missing from failures", parallel)
		}
	}
}

func TestProcessTypesBarrierSemantics(t *testing.T) {
	const delay = 50 * time.Millisecond
	reg := registry.New(logging.NewNop())
	types := []string{"T1", "T2", "T3", "T4", "T5"}
	h := &slowHandler{types: types, delay: delay}
	for _, name := range types {
		reg.RegisterHandler(name, h)
	}
	p := NewProcessor(reg, logging.NewNop())

	start := time.Now()
	result := p.ProcessTypes(context.Background(), testOrg(), types, TypeOptions{Parallel: true, MaxConcurrency: 2})
	elapsed := time.Since(start)

	if len(result.Success) != 5 {
		t.Fatalf("expected 5 successes, got %d", len(result.Success))
	}
	// 5 inputs at chunk size 2 means ceil(5/2)=3 barriers.
	if elapsed < 3*delay {
		t.Errorf("barrier semantics violated: 3 chunks of %v finished in %v", delay, elapsed)
	}
}

func TestProcessRequestsTimeoutIsIsolated(t *testing.T) {
	requests := []int{1, 2, 3}
	fn := func(ctx context.Context, n int) (string, error) {
		if n == 2 {
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		return fmt.Sprintf("ok-%d", n), nil
	}

	result := ProcessRequests(context.Background(), requests, fn, RequestOptions[int]{
		MaxConcurrency: 3,
		Timeout:        100 * time.Millisecond,
		Describe:       func(n int) string { return fmt.Sprintf("req-%d", n) },
	})

	if result.Attempted() != 3 {
		t.Fatalf("attempted %d, want 3", result.Attempted())
	}
	if len(result.Success) != 2 {
		t.Errorf("siblings of a timed-out request must survive, got %d successes", len(result.Success))
	}
	if len(result.Failures) != 1 || result.Failures[0].Error != "Request timeout" {
		t.Errorf("timeout must surface as a 'Request timeout' failure, got %+v", result.Failures)
	}
	if result.Failures[0].Input != "req-2" {
		t.Errorf("failure should name the request, got %q", result.Failures[0].Input)
	}
}

func TestProcessRequestsPriorityOrdering(t *testing.T) {
	var mu sync.Mutex
	var seen []int

	requests := []int{1, 9, 5}
	fn := func(ctx context.Context, n int) (int, error) {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
		return n, nil
	}

	result := ProcessRequests(context.Background(), requests, fn, RequestOptions[int]{
		MaxConcurrency: 1,
		Priority:       func(n int) int { return n },
	})

	if len(result.Success) != 3 {
		t.Fatalf("expected 3 successes, got %d", len(result.Success))
	}
	want := []int{9, 5, 1}
	for i, n := range want {
		if seen[i] != n {
			t.Fatalf("priority order violated: saw %v, want %v", seen, want)
		}
	}
}

func TestSetDefaultConcurrencyClamps(t *testing.T) {
	p := NewProcessor(registry.New(logging.NewNop()), logging.NewNop())

	p.SetDefaultConcurrency(0)
	if got := p.DefaultConcurrency(); got != 1 {
		t.Errorf("clamp low: got %d, want 1", got)
	}
	p.SetDefaultConcurrency(99)
	if got := p.DefaultConcurrency(); got != 10 {
		t.Errorf("clamp high: got %d, want 10", got)
	}
	p.SetDefaultConcurrency(4)
	if got := p.DefaultConcurrency(); got != 4 {
		t.Errorf("in-range value changed: got %d, want 4", got)
	}
}

func TestGetProcessingStats(t *testing.T) {
	var r metadata.ProcessingResult[string]
	r.AddSuccess("a")
	r.AddSuccess("b")
	r.AddSuccess("c")
	r.AddFailure("d", "boom")
	r.ProcessingTimeMs = 400

	stats := GetProcessingStats(r)
	if stats.SuccessRate != 75 {
		t.Errorf("SuccessRate = %v, want 75", stats.SuccessRate)
	}
	if stats.AverageTimeMs != 100 {
		t.Errorf("AverageTimeMs = %v, want 100", stats.AverageTimeMs)
	}

	empty := GetProcessingStats(metadata.ProcessingResult[string]{})
	if empty.SuccessRate != 0 || empty.AverageTimeMs != 0 {
		t.Errorf("empty result should yield zero stats, got %+v", empty)
	}
}
