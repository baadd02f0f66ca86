// Package errors defines the stable error codes shared by all sforg
// components, plus actionable fix suggestions the CLI can surface.
package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ListingFailed indicates a type's item enumeration failed (hard failure)
	ListingFailed ErrorCode = "LISTING_FAILED"
	// ContentFailed indicates a single item's content fetch failed (soft failure)
	ContentFailed ErrorCode = "CONTENT_FAILED"
	// Timeout indicates an operation exceeded its allotted time
	Timeout ErrorCode = "TIMEOUT"
	// ToolError indicates the external CLI reported failure, either via a
	// non-zero embedded status or a payload that is not JSON
	ToolError ErrorCode = "TOOL_ERROR"
	// TypeUnregistered indicates a requested metadata type has no handler
	TypeUnregistered ErrorCode = "TYPE_UNREGISTERED"
	// CLINotFound indicates the sf binary is not on PATH
	CLINotFound ErrorCode = "CLI_NOT_FOUND"
	// ManifestFailed indicates package.xml generation or writing failed
	ManifestFailed ErrorCode = "MANIFEST_FAILED"
	// CacheError indicates a cache directory or database operation failed
	CacheError ErrorCode = "CACHE_ERROR"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
	Tool        string        `json:"tool,omitempty"`
}

// OrgError represents an sforg error with code, message, and suggestions
type OrgError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new OrgError
func New(code ErrorCode, message string, cause error) *OrgError {
	return &OrgError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *OrgError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *OrgError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *OrgError) WithDetails(details interface{}) *OrgError {
	e.Details = details
	return e
}

// CodeOf extracts the ErrorCode from err, or InternalError when err is
// not an OrgError.
func CodeOf(err error) ErrorCode {
	if oe, ok := err.(*OrgError); ok {
		return oe.Code
	}
	return InternalError
}

// errorActions maps error codes to suggested fix actions
var errorActions = map[ErrorCode][]FixAction{
	CLINotFound: {
		{
			Type:        InstallTool,
			Tool:        "sf",
			Command:     "npm install -g @salesforce/cli",
			Description: "Install the Salesforce CLI",
		},
		{
			Type:        RunCommand,
			Command:     "sf --version",
			Safe:        true,
			Description: "Verify the Salesforce CLI is on PATH",
		},
	},
	ListingFailed: {
		{
			Type:        RunCommand,
			Command:     "sf org list --all",
			Safe:        true,
			Description: "Verify the org alias is authenticated",
		},
	},
	Timeout: {
		{
			Type:        RunCommand,
			Command:     "sforg config show",
			Safe:        true,
			Description: "Inspect per-type timeout settings",
		},
	},
	CacheError: {
		{
			Type:        RunCommand,
			Command:     "sforg cache invalidate <org>",
			Safe:        true,
			Description: "Discard the cached retrieval and re-fetch",
		},
	},
	ConfigInvalid: {
		{
			Type:        RunCommand,
			Command:     "sforg config init --force",
			Description: "Regenerate a default configuration",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := errorActions[code]; ok {
		return fixes
	}
	return nil
}
