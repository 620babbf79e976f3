package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyDataset is returned when a source yields no records
var ErrEmptyDataset = errors.New("dataset contains no records")

// ValidationError represents a data validation error
// Complies with the error algebra - explicit error classification
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// SchemaError reports a required column missing from the source table
type SchemaError struct {
	Column string
	Source string
}

func (e *SchemaError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("missing required column %q", e.Column)
	}
	return fmt.Sprintf("%s: missing required column %q", e.Source, e.Column)
}

// IsTransient returns false as schema errors are permanent
func (e *SchemaError) IsTransient() bool {
	return false
}

// RangeError reports a date range whose start is after its end
type RangeError struct {
	Start time.Time
	End   time.Time
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s",
		e.Start.Format(DateLayout), e.End.Format(DateLayout))
}

// IsTransient returns false as range errors are permanent
func (e *RangeError) IsTransient() bool {
	return false
}

// InsufficientDataError reports a computation that needs more rows than available
type InsufficientDataError struct {
	Operation string
	Required  int
	Available int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s requires at least %d days, got %d", e.Operation, e.Required, e.Available)
}

// IsTransient returns false as the input will not change
func (e *InsufficientDataError) IsTransient() bool {
	return false
}

// UnknownEnumValueError reports a coded value without a lookup entry
type UnknownEnumValueError struct {
	Enum  string
	Value int
}

func (e *UnknownEnumValueError) Error() string {
	return fmt.Sprintf("unknown %s value: %d", e.Enum, e.Value)
}

// IsTransient returns false as unknown codes are permanent
func (e *UnknownEnumValueError) IsTransient() bool {
	return false
}
