package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidInput indicates a caller-supplied argument is out of range
	InvalidInput ErrorCode = "INVALID_INPUT"
	// SnapshotMissing indicates no snapshot reference is configured
	SnapshotMissing ErrorCode = "SNAPSHOT_MISSING"
	// ProviderUnavailable indicates an evidence provider's backing service is unreachable
	ProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	// IndexMissing indicates the SCIP index file was not found
	IndexMissing ErrorCode = "INDEX_MISSING"
	// QueryTimeout indicates a provider query exceeded its deadline
	QueryTimeout ErrorCode = "QUERY_TIMEOUT"
	// StoreError indicates the outcome/metrics database failed
	StoreError ErrorCode = "STORE_ERROR"
	// ConfigError indicates the configuration file is invalid
	ConfigError ErrorCode = "CONFIG_ERROR"
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
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// CtxError represents an engine error with code, message, and suggestions
type CtxError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewCtxError creates a new CtxError
func NewCtxError(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *CtxError {
	return &CtxError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *CtxError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *CtxError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *CtxError) WithDetails(details interface{}) *CtxError {
	e.Details = details
	return e
}

// HasCode reports whether err is a CtxError carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if ce, ok := err.(*CtxError); ok && ce.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	SnapshotMissing: {
		{
			Type:        RunCommand,
			Command:     "ctxrank retrieve --snapshot=$(git rev-parse HEAD~1)",
			Safe:        true,
			Description: "Set a snapshot reference to diff against",
		},
	},
	IndexMissing: {
		{
			Type:        RunCommand,
			Command:     "scip-go --output=.ctxrank/index.scip ./...",
			Safe:        true,
			Description: "Generate a SCIP index for symbol evidence",
		},
	},
	ProviderUnavailable: {
		{
			Type:        RunCommand,
			Command:     "ctxrank strategy --stats",
			Safe:        true,
			Description: "Inspect provider availability and recent cycles",
		},
	},
	ConfigError: {
		{
			Type:        RunCommand,
			Command:     "ctxrank init",
			Safe:        true,
			Description: "Regenerate default configuration",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
