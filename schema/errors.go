package schema

import (
	"errors"
	"strings"
)

// Sentinel errors for entity metadata failures.
var (
	// ErrInvalidEntity indicates an entity definition or configuration error.
	ErrInvalidEntity = errors.New("sqldao: invalid entity configuration")
	// ErrMetadataUnavailable indicates database-reported metadata could not be read.
	ErrMetadataUnavailable = errors.New("sqldao: metadata unavailable")
)

// ConfigError represents an entity configuration error: missing metadata,
// an unsupported generation strategy or duplicate version/generated columns.
type ConfigError struct {
	Entity  string // Entity type name
	Field   string // Property name (if applicable)
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("sqldao: configuration error")
	if e.Entity != "" {
		b.WriteString(" on entity ")
		b.WriteString(e.Entity)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidEntity
}

// NewConfigError creates a new ConfigError.
func NewConfigError(entity, field, message string, cause error) *ConfigError {
	return &ConfigError{
		Entity:  entity,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// MetadataError is returned when database-reported metadata, such as the
// primary-key ordering of a table, could not be obtained.
type MetadataError struct {
	Entity string
	Table  string
	Cause  error
}

// Error implements the error interface.
func (e *MetadataError) Error() string {
	msg := "sqldao: metadata unavailable for " + e.Entity
	if e.Table != "" {
		msg += " (table " + e.Table + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *MetadataError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for MetadataError.
func (e *MetadataError) Is(target error) bool {
	return target == ErrMetadataUnavailable
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e)
}

// IsMetadataError returns true if the error is a MetadataError.
func IsMetadataError(err error) bool {
	if err == nil {
		return false
	}
	var e *MetadataError
	return errors.As(err, &e)
}
