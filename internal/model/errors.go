package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a blob carries no invoice payload
var ErrNotFound = errors.New("invoice payload not found")

// ErrBatchLimit marks documents left unprocessed because a batch limit was hit
var ErrBatchLimit = errors.New("batch limit reached")

// ParseError represents structurally unreadable invoice XML
type ParseError struct {
	Source  string
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	source := e.Source
	if source == "" {
		source = "xml"
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", source, e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", source, e.Field, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error
func NewParseError(source, field, message string, cause error) *ParseError {
	return &ParseError{
		Source:  source,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed on %s: %s (value=%v, rule=%s)", e.Field, e.Message, e.Value, e.Rule)
	}
	return fmt.Sprintf("validation failed on %s: %s (rule=%s)", e.Field, e.Message, e.Rule)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, rule, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	}
}

// ExtractionError represents a document whose invoice payload could not be located
type ExtractionError struct {
	Source  string
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed [%s]: %s (%v)", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction failed [%s]: %s", e.Source, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// NewExtractionError creates a new extraction error
func NewExtractionError(source, message string, cause error) *ExtractionError {
	return &ExtractionError{
		Source:  source,
		Message: message,
		Cause:   cause,
	}
}

// CoercionWarning records a field that was present but malformed (or
// missing where a number was expected) and was defaulted. It never stops
// processing.
type CoercionWarning struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (w CoercionWarning) String() string {
	if w.Value == "" {
		return fmt.Sprintf("%s: %s", w.Field, w.Reason)
	}
	return fmt.Sprintf("%s: %s (value=%q)", w.Field, w.Reason, w.Value)
}
