// Package errors provides standardized error handling for the contract wizard.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Draft / persistence errors
	ErrCodeProjectCreateFailed ErrorCode = "PROJECT_CREATE_FAILED"
	ErrCodeProjectUpdateFailed ErrorCode = "PROJECT_UPDATE_FAILED"
	ErrCodeProjectFetchFailed  ErrorCode = "PROJECT_FETCH_FAILED"
	ErrCodeClientSaveFailed    ErrorCode = "CLIENT_SAVE_FAILED"
	ErrCodeFinancialSaveFailed ErrorCode = "FINANCIAL_SAVE_FAILED"
	ErrCodeDetailsSaveFailed   ErrorCode = "DETAILS_SAVE_FAILED"
	ErrCodeLLCCreateFailed     ErrorCode = "LLC_CREATE_FAILED"
	ErrCodeLLCResolutionFailed ErrorCode = "LLC_RESOLUTION_FAILED"
	ErrCodeContractorSaveFailed ErrorCode = "CONTRACTOR_SAVE_FAILED"
	ErrCodeDocumentCreateFailed ErrorCode = "DOCUMENT_CREATE_FAILED"

	// Validation / navigation errors
	ErrCodeStepValidationFailed ErrorCode = "STEP_VALIDATION_FAILED"
	ErrCodeStepUnreachable      ErrorCode = "STEP_UNREACHABLE"

	// Infrastructure errors
	ErrCodeCacheWriteFailed  ErrorCode = "CACHE_WRITE_FAILED"
	ErrCodeCacheReadFailed   ErrorCode = "CACHE_READ_FAILED"
	ErrCodeBackendUnreachable ErrorCode = "BACKEND_UNREACHABLE"
)

// Severity classifies how an error reaches the user (three tiers).
type Severity string

const (
	// SeveritySilent errors are logged and swallowed; autosave sub-saves and
	// best-effort lookups self-heal on the next cycle.
	SeveritySilent Severity = "silent"
	// SeverityValidation errors block navigation, surface as a field-error map
	// plus a toast, and are locally recoverable.
	SeverityValidation Severity = "validation"
	// SeverityFatal errors abort the enclosing action and surface a destructive
	// toast; generation ends in a terminal error state.
	SeverityFatal Severity = "fatal"
)

// WizardError represents a structured application error.
type WizardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Severity  Severity               `json:"severity"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *WizardError) Error() string {
	return fmt.Sprintf("WizardError[%s]: %s", e.Code, e.Message)
}

// FieldErrors maps a field name to a user-facing validation message.
type FieldErrors map[string]string

// ==========================
// 2. Error Constructors
// ==========================

// NewProjectCreateFailedError creates a fatal project creation error (step 1 gate).
func NewProjectCreateFailedError(err error) *WizardError {
	return &WizardError{
		Code:      ErrCodeProjectCreateFailed,
		Message:   "Failed to create project record",
		Details:   err.Error(),
		Severity:  SeverityFatal,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProjectUpdateFailedError creates a silent project patch error (autosave tier).
func NewProjectUpdateFailedError(err error) *WizardError {
	return &WizardError{
		Code:      ErrCodeProjectUpdateFailed,
		Message:   "Failed to update project record",
		Details:   err.Error(),
		Severity:  SeveritySilent,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProjectFetchFailedError creates a fatal hydration error.
func NewProjectFetchFailedError(projectID string, err error) *WizardError {
	return &WizardError{
		Code:      ErrCodeProjectFetchFailed,
		Message:   "Failed to load project",
		Details:   fmt.Sprintf("projectId: %s, error: %s", projectID, err.Error()),
		Severity:  SeverityFatal,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewClientSaveFailedError creates a silent client-info upsert error.
func NewClientSaveFailedError(err error) *WizardError {
	return &WizardError{
		Code:      ErrCodeClientSaveFailed,
		Message:   "Failed to save client information",
		Details:   err.Error(),
		Severity:  SeveritySilent,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFinancialSaveFailedError creates a silent financial-terms upsert error.
func NewFinancialSaveFailedError(err error) *WizardError {
	return &WizardError{
		Code:      ErrCodeFinancialSaveFailed,
		Message:   "Failed to save financial terms",
		Details:   err.Error(),
		Severity:  SeveritySilent,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDetailsSaveFailedError creates a silent site-details upsert error.
func NewDetailsSaveFailedError(err error) *WizardError {
	return &WizardError{
		Code:      ErrCodeDetailsSaveFailed,
		Message:   "Failed to save project details",
		Details:   err.Error(),
		Severity:  SeveritySilent,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLCCreateFailedError creates a silent LLC creation error (autosave tier).
func NewLLCCreateFailedError(err error) *WizardError {
	return &WizardError{
		Code:      ErrCodeLLCCreateFailed,
		Message:   "Failed to create LLC record",
		Details:   err.Error(),
		Severity:  SeveritySilent,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLCResolutionFailedError creates a fatal LLC resolution error (generation tier).
func NewLLCResolutionFailedError(err error) *WizardError {
	return &WizardError{
		Code:      ErrCodeLLCResolutionFailed,
		Message:   "Failed to resolve LLC for contract generation",
		Details:   err.Error(),
		Severity:  SeverityFatal,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewContractorSaveFailedError creates a fatal contractor save error (generation tier).
func NewContractorSaveFailedError(err error) *WizardError {
	return &WizardError{
		Code:      ErrCodeContractorSaveFailed,
		Message:   "Failed to save contractor records",
		Details:   err.Error(),
		Severity:  SeverityFatal,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDocumentCreateFailedError creates a fatal document creation error.
func NewDocumentCreateFailedError(docType string, err error) *WizardError {
	return &WizardError{
		Code:      ErrCodeDocumentCreateFailed,
		Message:   "Failed to create contract document",
		Details:   fmt.Sprintf("documentType: %s, error: %s", docType, err.Error()),
		Severity:  SeverityFatal,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStepValidationFailedError creates a validation-tier error carrying the field map.
func NewStepValidationFailedError(step int, fields FieldErrors) *WizardError {
	meta := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		meta[k] = v
	}
	return &WizardError{
		Code:      ErrCodeStepValidationFailed,
		Message:   fmt.Sprintf("Step %d validation failed", step),
		Severity:  SeverityValidation,
		Retryable: false,
		Metadata:  meta,
		Timestamp: time.Now().UTC(),
	}
}

// NewStepUnreachableError creates a validation-tier navigation error.
func NewStepUnreachableError(target int) *WizardError {
	return &WizardError{
		Code:      ErrCodeStepUnreachable,
		Message:   fmt.Sprintf("Step %d is not reachable yet", target),
		Severity:  SeverityValidation,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheWriteFailedError creates a silent snapshot write error.
func NewCacheWriteFailedError(err error) *WizardError {
	return &WizardError{
		Code:      ErrCodeCacheWriteFailed,
		Message:   "Failed to write crash-recovery snapshot",
		Details:   err.Error(),
		Severity:  SeveritySilent,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheReadFailedError creates a silent snapshot read error.
func NewCacheReadFailedError(err error) *WizardError {
	return &WizardError{
		Code:      ErrCodeCacheReadFailed,
		Message:   "Failed to read crash-recovery snapshot",
		Details:   err.Error(),
		Severity:  SeveritySilent,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendUnreachableError wraps transport-level failures.
func NewBackendUnreachableError(operation string, err error) *WizardError {
	return &WizardError{
		Code:      ErrCodeBackendUnreachable,
		Message:   "Backend request failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Severity:  SeveritySilent,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// IsSilent reports whether err should be logged and swallowed.
func IsSilent(err error) bool {
	if we, ok := err.(*WizardError); ok {
		return we.Severity == SeveritySilent
	}
	return false
}

// IsFatal reports whether err aborts the enclosing action.
func IsFatal(err error) bool {
	if we, ok := err.(*WizardError); ok {
		return we.Severity == SeverityFatal
	}
	return false
}

// CodeOf extracts the error code, or "UNKNOWN" for foreign errors.
func CodeOf(err error) string {
	if we, ok := err.(*WizardError); ok {
		return string(we.Code)
	}
	return "UNKNOWN"
}
