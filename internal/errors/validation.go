package errors

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

func (pe *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", pe.Field, pe.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ToValidationErrors converts validator.ValidationErrors to our custom type
func ToValidationErrors(err error) ValidationErrors {
	var errors ValidationErrors

	if validatorErr, ok := err.(validator.ValidationErrors); ok {
		for _, err := range validatorErr {
			errors = append(errors, ValidationError{
				Field:   err.Field(),
				Message: getErrorMessage(err),
				Value:   err.Value(),
				Rule:    err.Tag(),
			})
		}
	}

	return errors
}

// getErrorMessage returns user-friendly error messages
func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s%s", err.Param(), lengthUnit(err.Kind()))
	case "max":
		return fmt.Sprintf("must be at most %s%s", err.Param(), lengthUnit(err.Kind()))
	// Custom validators
	case "question_type":
		return "must be a valid question type (single-choice, multi-choice, free-text)"
	case "form_status":
		return "must be draft or published"

	default:
		return RuleMessage(err.Tag())
	}
}

// lengthUnit names what min and max count for strings and lists.
func lengthUnit(kind reflect.Kind) string {
	switch kind {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return " items"
	}
	return ""
}

// NewRuleError builds a business rule violation with its standard message.
func NewRuleError(field, rule string, value interface{}) ValidationError {
	return ValidationError{
		Field:   field,
		Message: RuleMessage(rule),
		Value:   value,
		Rule:    rule,
	}
}

// RuleMessage returns the message for a business rule
func RuleMessage(rule string) string {
	switch rule {
	case "form_title":
		return "is required before saving"
	case "form_questions":
		return "must contain at least one question"
	case "question_content":
		return "must not be empty"
	case "question_options":
		return "choice questions need at least one option"
	case "question_id":
		return "must be unique within the form"
	case "correct_answer":
		return "must reference existing options"
	case "timer_minutes":
		return "must be between 1 and 180 minutes"

	default:
		return fmt.Sprintf("validation failed for rule '%s'", rule)
	}
}
