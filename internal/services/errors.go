package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/quizform-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("resource conflict")

	// Form specific errors
	ErrFormNotFound     = errors.New("form not found")
	ErrFormAccessDenied = errors.New("access denied to form")
	ErrFormNotPublished = errors.New("form is not published")

	// Question specific errors
	ErrQuestionNotFound    = errors.New("question not found")
	ErrQuestionInvalidType = errors.New("invalid question type")
	ErrReorderMismatch     = errors.New("reorder must list every question exactly once")

	// Submission specific errors
	ErrSubmissionNotFound     = errors.New("submission not found")
	ErrSubmissionAccessDenied = errors.New("access denied to submission")
	ErrLoginRequired          = errors.New("login required")
	ErrAlreadySubmitted       = errors.New("form already submitted")

	// Attempt specific errors
	ErrAttemptNotStarted = errors.New("attempt not started")
	ErrTimerDisabled     = errors.New("form has no timer")
	ErrAttemptTimedOut   = errors.New("time is up, held answers were submitted")

	// Import errors
	ErrInvalidImport = errors.New("invalid import file")
	ErrNotExportable = errors.New("questions do not fit the export layout")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// BlockedError carries a guard decision that refused a submit.
type BlockedError struct {
	Decision Decision
}

func (be *BlockedError) Error() string {
	return fmt.Sprintf("submission blocked: %s", be.Decision.Reason)
}

// Unwrap maps the block reason onto its sentinel so errors.Is works.
func (be *BlockedError) Unwrap() error {
	switch be.Decision.Reason {
	case ReasonNotPublished:
		return ErrFormNotPublished
	case ReasonLoginRequired:
		return ErrLoginRequired
	case ReasonAlreadySubmitted:
		return ErrAlreadySubmitted
	}
	return nil
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrFormNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrSubmissionNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	var pe *PermissionError
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrFormAccessDenied) ||
		errors.Is(err, ErrSubmissionAccessDenied) ||
		errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrInvalidImport) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrAlreadySubmitted)
}

// IsBlocked returns the guard decision behind err, if any.
func IsBlocked(err error) (Decision, bool) {
	var be *BlockedError
	if errors.As(err, &be) {
		return be.Decision, true
	}
	return Decision{}, false
}
