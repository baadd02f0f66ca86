package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := New(ListingFailed, "could not list ApexClass", nil)
	if !strings.Contains(err.Error(), "LISTING_FAILED") {
		t.Errorf("error string should contain the code, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "could not list ApexClass") {
		t.Errorf("error string should contain the message, got %q", err.Error())
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("exit status 1")
	err := New(ToolError, "sf invocation failed", cause)

	if !stderrors.Is(err, cause) {
		t.Errorf("errors.Is should find the cause through Unwrap")
	}
	if !strings.Contains(err.Error(), "exit status 1") {
		t.Errorf("cause should appear in the error string, got %q", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(Timeout, "timed out", nil)); got != Timeout {
		t.Errorf("CodeOf(OrgError) = %s, want %s", got, Timeout)
	}
	if got := CodeOf(stderrors.New("plain")); got != InternalError {
		t.Errorf("CodeOf(plain error) = %s, want %s", got, InternalError)
	}
}

func TestSuggestedFixes(t *testing.T) {
	err := New(CLINotFound, "sf not found", nil)
	if len(err.SuggestedFixes) == 0 {
		t.Fatal("CLI_NOT_FOUND should carry install suggestions")
	}
	if err.SuggestedFixes[0].Type != InstallTool {
		t.Errorf("first fix should be install-tool, got %s", err.SuggestedFixes[0].Type)
	}

	if fixes := GetSuggestedFixes(InternalError); fixes != nil {
		t.Errorf("unknown codes should have no fixes, got %v", fixes)
	}
}
