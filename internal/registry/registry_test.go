package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"sforg/internal/logging"
	"sforg/internal/metadata"
)

// stubHandler answers for a fixed set of types with scripted outcomes
type stubHandler struct {
	types    []string
	items    map[string][]metadata.Item
	listErr  error
	fetchErr map[string]error

	mu        sync.Mutex
	listCalls int
}

func (s *stubHandler) ListItems(ctx context.Context, org metadata.Org, typeName string) ([]metadata.Item, error) {
	s.mu.Lock()
	s.listCalls++
	s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.items[typeName], nil
}

func (s *stubHandler) FetchContent(ctx context.Context, org metadata.Org, item metadata.Item) (metadata.Content, error) {
	if err := s.fetchErr[item.ID]; err != nil {
		return metadata.Content{}, err
	}
	return metadata.Content{Body: "content of " + item.FullName}, nil
}

func (s *stubHandler) FetchContentBatch(ctx context.Context, org metadata.Org, items []metadata.Item) metadata.ProcessingResult[metadata.ItemContent] {
	var result metadata.ProcessingResult[metadata.ItemContent]
	for _, item := range items {
		content, err := s.FetchContent(ctx, org, item)
		if err != nil {
			result.AddFailure(item.ID, err.Error())
			continue
		}
		result.AddSuccess(metadata.ItemContent{Item: item, Content: content})
	}
	return result
}

func (s *stubHandler) Supports(typeName string) bool {
	for _, t := range s.types {
		if t == typeName {
			return true
		}
	}
	return false
}

func (s *stubHandler) SupportedTypes() []string { return s.types }

func testOrg() metadata.Org {
	return metadata.Org{ID: "org1", Alias: "dev"}
}

func apexItem(name string) metadata.Item {
	def, _ := New(logging.NewNop()).GetDefinition("ApexClass")
	return metadata.NewItem("org1", def, name)
}

func TestRegisterOverwrites(t *testing.T) {
	r := New(logging.NewNop())
	first := &stubHandler{types: []string{"ApexClass"}}
	second := &stubHandler{types: []string{"ApexClass"}}

	r.RegisterHandler("ApexClass", first)
	r.RegisterHandler("ApexClass", second)

	got, ok := r.GetHandler("ApexClass")
	if !ok || got != second {
		t.Error("later registration must overwrite the earlier one")
	}
}

func TestSupportedTypesSorted(t *testing.T) {
	r := New(logging.NewNop())
	r.RegisterHandler("Flow", &stubHandler{types: []string{"Flow"}})
	r.RegisterHandler("ApexClass", &stubHandler{types: []string{"ApexClass"}})

	names := r.ListSupportedTypes()
	if len(names) != 2 || names[0] != "ApexClass" || names[1] != "Flow" {
		t.Errorf("unexpected supported types %v", names)
	}
	if !r.IsTypeSupported("Flow") || r.IsTypeSupported("Layout") {
		t.Error("IsTypeSupported disagrees with registrations")
	}
}

func TestGetFilesForTypesCountingInvariant(t *testing.T) {
	r := New(logging.NewNop())
	r.RegisterHandler("ApexClass", &stubHandler{
		types: []string{"ApexClass"},
		items: map[string][]metadata.Item{"ApexClass": {apexItem("Foo")}},
	})
	r.RegisterHandler("Flow", &stubHandler{
		types:   []string{"Flow"},
		listErr: fmt.Errorf("listing exploded"),
	})

	requested := []string{"ApexClass", "Flow", "Layout", "PermissionSet"}
	result := r.GetFilesForTypes(context.Background(), testOrg(), requested)

	if result.Attempted() != len(requested) {
		t.Fatalf("success+failures = %d, want %d", result.Attempted(), len(requested))
	}
	if len(result.Success) != 1 {
		t.Errorf("expected 1 success, got %d", len(result.Success))
	}

	failed := map[string]bool{}
	for _, f := range result.Failures {
		failed[f.Input] = true
		if f.Error == "" {
			t.Error("failure entries must carry an error message")
		}
	}
	for _, unregistered := range []string{"Layout", "PermissionSet"} {
		if !failed[unregistered] {
			t.Errorf("unregistered type %s must appear in failures", unregistered)
		}
	}
	if !failed["Flow"] {
		t.Error("listing failure must appear in failures")
	}
}

func TestGetContentForFilesGroupsByType(t *testing.T) {
	r := New(logging.NewNop())
	broken := apexItem("Broken")
	r.RegisterHandler("ApexClass", &stubHandler{
		types:    []string{"ApexClass"},
		fetchErr: map[string]error{broken.ID: fmt.Errorf("no body")},
	})

	flowDef, _ := r.GetDefinition("Flow")
	orphan := metadata.NewItem("org1", flowDef, "OrphanFlow")
	orphan2 := metadata.NewItem("org1", flowDef, "OrphanFlow2")

	items := []metadata.Item{apexItem("Alpha"), broken, orphan, apexItem("Beta"), orphan2}
	result := r.GetContentForFiles(context.Background(), testOrg(), items)

	if result.Attempted() != len(items) {
		t.Fatalf("success+failures = %d, want %d", result.Attempted(), len(items))
	}
	if len(result.Success) != 2 {
		t.Errorf("expected 2 successes, got %d", len(result.Success))
	}
	// Unregistered group fails per item, not per type.
	orphanFailures := 0
	for _, f := range result.Failures {
		if f.Input == orphan.ID || f.Input == orphan2.ID {
			orphanFailures++
		}
	}
	if orphanFailures != 2 {
		t.Errorf("expected one failure per unregistered item, got %d", orphanFailures)
	}
}

func TestMultiTypeHandlerAnswersForSiblings(t *testing.T) {
	r := New(logging.NewNop())
	shared := &stubHandler{
		types: []string{"ApexClass", "ApexTrigger"},
		items: map[string][]metadata.Item{
			"ApexClass":   {apexItem("Foo")},
			"ApexTrigger": {},
		},
	}
	r.RegisterHandler("ApexClass", shared)
	r.RegisterHandler("ApexTrigger", shared)

	result := r.GetFilesForTypes(context.Background(), testOrg(), []string{"ApexClass", "ApexTrigger"})
	if len(result.Success) != 2 || len(result.Failures) != 0 {
		t.Errorf("shared handler should serve both types, got %+v", result)
	}
	if shared.listCalls != 2 {
		t.Errorf("expected one listing per type, got %d", shared.listCalls)
	}
}
