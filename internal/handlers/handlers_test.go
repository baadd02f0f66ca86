package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"sforg/internal/config"
	"sforg/internal/errors"
	"sforg/internal/logging"
	"sforg/internal/metadata"
	"sforg/internal/sfcli"
)

// fakeRunner scripts CLI responses by matching substrings of the
// argument vector.
type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	respond func(args []string) ([]byte, error)

	inFlight    int
	maxInFlight int
}

func (f *fakeRunner) Run(ctx context.Context, args []string, opts sfcli.RunOptions) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, args)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	return f.respond(args)
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func argsContain(args []string, substr string) bool {
	for _, a := range args {
		if strings.Contains(a, substr) {
			return true
		}
	}
	return false
}

func testOrg() metadata.Org {
	return metadata.Org{ID: "org1", Alias: "dev-sandbox"}
}

func apexDefs() []metadata.TypeDefinition {
	var out []metadata.TypeDefinition
	for _, d := range metadata.BuiltinDefinitions() {
		if d.Name == "ApexClass" || d.Name == "ApexTrigger" {
			out = append(out, d)
		}
	}
	return out
}

func TestToolingListItems(t *testing.T) {
	runner := &fakeRunner{respond: func(args []string) ([]byte, error) {
		return []byte(`{"status":0,"result":{"records":[{"Name":"Foo"}]}}`), nil
	}}
	h := NewToolingQueryHandler(apexDefs(), config.DefaultConfig(), runner, logging.NewNop())

	items, err := h.ListItems(context.Background(), testOrg(), "ApexClass")
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	// One code item plus its companion descriptor.
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].FullName != "Foo" || items[0].FileName != "Foo.cls" {
		t.Errorf("unexpected item %+v", items[0])
	}
	if !items[1].IsMetaFile || items[1].FileName != "Foo.cls-meta.xml" {
		t.Errorf("unexpected meta item %+v", items[1])
	}
}

func TestToolingListItemsEmptyOrg(t *testing.T) {
	runner := &fakeRunner{respond: func(args []string) ([]byte, error) {
		return []byte(`{"status":0,"result":{"records":[]}}`), nil
	}}
	h := NewToolingQueryHandler(apexDefs(), config.DefaultConfig(), runner, logging.NewNop())

	items, err := h.ListItems(context.Background(), testOrg(), "ApexTrigger")
	if err != nil {
		t.Fatalf("zero instances must not be an error, got %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty list, got %d items", len(items))
	}
}

func TestToolingListItemsHardFailure(t *testing.T) {
	runner := &fakeRunner{respond: func(args []string) ([]byte, error) {
		return nil, errors.New(errors.ToolError, "sf failed: expired access token", nil)
	}}
	h := NewToolingQueryHandler(apexDefs(), config.DefaultConfig(), runner, logging.NewNop())

	_, err := h.ListItems(context.Background(), testOrg(), "ApexClass")
	if err == nil {
		t.Fatal("listing failure must propagate")
	}
	if errors.CodeOf(err) != errors.ListingFailed {
		t.Errorf("expected LISTING_FAILED, got %s", errors.CodeOf(err))
	}
	if !strings.Contains(err.Error(), "expired access token") {
		t.Errorf("raw tool error text should be carried, got %q", err.Error())
	}
}

func TestToolingFetchMetaNeedsNoCall(t *testing.T) {
	runner := &fakeRunner{respond: func(args []string) ([]byte, error) {
		t.Fatal("meta descriptor must be synthesized locally")
		return nil, nil
	}}
	h := NewToolingQueryHandler(apexDefs(), config.DefaultConfig(), runner, logging.NewNop())

	def := apexDefs()[0]
	meta := metadata.NewMetaItem("org1", def, "Foo")
	content, err := h.FetchContent(context.Background(), testOrg(), meta)
	if err != nil {
		t.Fatalf("FetchContent failed: %v", err)
	}
	if !strings.Contains(content.Body, "<apiVersion>") {
		t.Errorf("descriptor body missing apiVersion: %q", content.Body)
	}
}

func TestFetchContentBatchSoftFailure(t *testing.T) {
	runner := &fakeRunner{respond: func(args []string) ([]byte, error) {
		if argsContain(args, "'Broken'") {
			return nil, fmt.Errorf("row lock timeout")
		}
		return []byte(`{"status":0,"result":{"records":[{"Body":"public class X {}"}]}}`), nil
	}}
	h := NewToolingQueryHandler(apexDefs(), config.DefaultConfig(), runner, logging.NewNop())

	def := apexDefs()[0]
	items := []metadata.Item{
		metadata.NewItem("org1", def, "Alpha"),
		metadata.NewItem("org1", def, "Broken"),
		metadata.NewItem("org1", def, "Beta"),
	}

	result := h.FetchContentBatch(context.Background(), testOrg(), items)
	if result.Attempted() != 3 {
		t.Fatalf("Attempted() = %d, want 3", result.Attempted())
	}
	if len(result.Success) != 2 {
		t.Errorf("siblings of a failed item must survive, got %d successes", len(result.Success))
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected exactly one failure, got %d", len(result.Failures))
	}
	if result.Failures[0].Error == "" {
		t.Error("failure entries must carry a non-empty error string")
	}
	if result.Failures[0].Input != "org1-apexclass-Broken" {
		t.Errorf("failure should name the item id, got %q", result.Failures[0].Input)
	}
}

func TestFetchContentBatchRespectsConcurrencyCap(t *testing.T) {
	runner := &fakeRunner{respond: func(args []string) ([]byte, error) {
		return []byte(`{"status":0,"result":{"records":[{"Body":"x"}]}}`), nil
	}}

	cfg := config.DefaultConfig()
	cfg.Handlers["ApexClass"] = config.HandlerPolicy{
		Enabled: true, Parallel: true, MaxConcurrency: 2, TimeoutMs: 2000,
	}
	h := NewToolingQueryHandler(apexDefs(), cfg, runner, logging.NewNop())

	def := apexDefs()[0]
	var items []metadata.Item
	for i := 0; i < 9; i++ {
		items = append(items, metadata.NewItem("org1", def, fmt.Sprintf("Class%d", i)))
	}

	result := h.FetchContentBatch(context.Background(), testOrg(), items)
	if len(result.Success) != 9 {
		t.Fatalf("expected 9 successes, got %d", len(result.Success))
	}
	if runner.maxInFlight > 2 {
		t.Errorf("concurrency cap exceeded: %d in flight", runner.maxInFlight)
	}
}

func TestFetchContentBatchSequential(t *testing.T) {
	runner := &fakeRunner{respond: func(args []string) ([]byte, error) {
		return []byte(`{"status":0,"result":{"records":[{"Body":"x"}]}}`), nil
	}}

	cfg := config.DefaultConfig()
	cfg.Handlers["ApexClass"] = config.HandlerPolicy{
		Enabled: true, Parallel: false, MaxConcurrency: 5, TimeoutMs: 2000,
	}
	h := NewToolingQueryHandler(apexDefs(), cfg, runner, logging.NewNop())

	def := apexDefs()[0]
	var items []metadata.Item
	for i := 0; i < 4; i++ {
		items = append(items, metadata.NewItem("org1", def, fmt.Sprintf("Class%d", i)))
	}

	result := h.FetchContentBatch(context.Background(), testOrg(), items)
	if len(result.Success) != 4 {
		t.Fatalf("expected 4 successes, got %d", len(result.Success))
	}
	if runner.maxInFlight != 1 {
		t.Errorf("sequential policy must never overlap calls, saw %d", runner.maxInFlight)
	}
}

func TestSupportsSiblingTypes(t *testing.T) {
	runner := &fakeRunner{respond: func(args []string) ([]byte, error) { return nil, nil }}
	h := NewToolingQueryHandler(apexDefs(), config.DefaultConfig(), runner, logging.NewNop())

	if !h.Supports("ApexClass") || !h.Supports("ApexTrigger") {
		t.Error("one handler should answer for both sibling types")
	}
	if h.Supports("CustomObject") {
		t.Error("handler must not claim unrelated types")
	}
	if got := len(h.SupportedTypes()); got != 2 {
		t.Errorf("SupportedTypes() length = %d, want 2", got)
	}
}

func TestBundleFetchKeepsMainFileOnFailure(t *testing.T) {
	runner := &fakeRunner{respond: func(args []string) ([]byte, error) {
		return nil, fmt.Errorf("network unreachable")
	}}

	var bundleDefs []metadata.TypeDefinition
	for _, d := range metadata.BuiltinDefinitions() {
		if d.IsBundle {
			bundleDefs = append(bundleDefs, d)
		}
	}
	h := NewBundleHandler(bundleDefs, config.DefaultConfig(), runner, logging.NewNop())

	def := bundleDefs[0]
	item := metadata.NewItem("org1", def, "widget")
	content, err := h.FetchContent(context.Background(), testOrg(), item)
	if err == nil {
		t.Fatal("total failure should be reported")
	}
	if content.Bundle == nil {
		t.Fatal("a bundle value is still returned on failure")
	}
	if _, ok := content.Bundle.Files[content.Bundle.MainFile]; !ok {
		t.Error("main file must remain a valid key even on total failure")
	}
}

func TestBundleFetchAssemblesFiles(t *testing.T) {
	runner := &fakeRunner{respond: func(args []string) ([]byte, error) {
		return []byte(`{"status":0,"result":{"records":[
			{"FilePath":"lwc/widget/widget.js","Source":"export default 1"},
			{"FilePath":"lwc/widget/widget.html","Source":"<template></template>"}
		]}}`), nil
	}}

	var bundleDefs []metadata.TypeDefinition
	for _, d := range metadata.BuiltinDefinitions() {
		if d.Name == "LightningComponentBundle" {
			bundleDefs = append(bundleDefs, d)
		}
	}
	h := NewBundleHandler(bundleDefs, config.DefaultConfig(), runner, logging.NewNop())

	item := metadata.NewItem("org1", bundleDefs[0], "widget")
	content, err := h.FetchContent(context.Background(), testOrg(), item)
	if err != nil {
		t.Fatalf("FetchContent failed: %v", err)
	}
	b := content.Bundle
	if b == nil || b.Kind != "lwc" {
		t.Fatalf("expected lwc bundle, got %+v", content)
	}
	if b.Files["widget.js"] != "export default 1" {
		t.Errorf("main file content wrong: %q", b.Files["widget.js"])
	}
	if len(b.Files) != 2 {
		t.Errorf("expected 2 files, got %v", b.Names())
	}
}
