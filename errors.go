package sqldao

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/sqldao/schema"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("sqldao: entity not found")

	// ErrOptimisticLock is returned when a versioned update matched no row.
	ErrOptimisticLock = errors.New("sqldao: optimistic lock conflict")

	// ErrInvalidArgument is returned for invalid call arguments or an invalid
	// combination of DAO settings.
	ErrInvalidArgument = errors.New("sqldao: invalid argument")

	// ErrCursorConsumed is returned when a cursor is iterated a second time.
	ErrCursorConsumed = errors.New("sqldao: cursor already consumed")

	// ErrCursorClosed is returned when reading from a closed cursor.
	ErrCursorClosed = errors.New("sqldao: cursor closed")

	// ErrKeyCountMismatch is returned when the database reports fewer
	// generated keys than entities were inserted.
	ErrKeyCountMismatch = errors.New("sqldao: generated key count mismatch")

	// ErrInvalidEntity is returned for entity configuration errors.
	ErrInvalidEntity = schema.ErrInvalidEntity

	// ErrMetadataUnavailable is returned when database metadata of an
	// entity could not be read.
	ErrMetadataUnavailable = schema.ErrMetadataUnavailable
)

type (
	// ConfigError represents an entity configuration error.
	ConfigError = schema.ConfigError
	// MetadataError represents unavailable database metadata.
	MetadataError = schema.MetadataError
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	ids   []any
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if len(e.ids) > 0 {
		return fmt.Sprintf("sqldao: %s not found (id=%s)", e.label, formatIDs(e.ids))
	}
	return fmt.Sprintf("sqldao: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// IDs returns the key values that were searched for.
func (e *NotFoundError) IDs() []any {
	return e.ids
}

// NewNotFoundError returns a new NotFoundError for the given entity type
// and key values.
func NewNotFoundError(label string, ids ...any) *NotFoundError {
	return &NotFoundError{label: label, ids: ids}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// OptimisticLockError is returned when an update guarded by a version
// column affected no row: the row was changed or removed concurrently.
type OptimisticLockError struct {
	Entity  string // Entity type
	IDs     []any  // Key values of the entity
	Version any    // In-memory version that did not match
}

// Error returns the error string.
func (e *OptimisticLockError) Error() string {
	return fmt.Sprintf("sqldao: optimistic lock conflict on %s (id=%s, version=%v)",
		e.Entity, formatIDs(e.IDs), e.Version)
}

// Is reports whether the target error matches OptimisticLockError.
func (e *OptimisticLockError) Is(err error) bool {
	return err == ErrOptimisticLock
}

// IsOptimisticLock returns true if the error is an OptimisticLockError.
func IsOptimisticLock(err error) bool {
	if err == nil {
		return false
	}
	var e *OptimisticLockError
	return errors.As(err, &e)
}

// ArgumentError reports an invalid argument or DAO setting. It is returned
// before any statement is executed.
type ArgumentError struct {
	Entity  string // Entity type
	Op      string // Operation (e.g., "find", "find all")
	Message string
	Err     error // Optional underlying error
}

// Error returns the error string.
func (e *ArgumentError) Error() string {
	msg := fmt.Sprintf("sqldao: %s %s: %s", e.Op, e.Entity, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches ArgumentError.
func (e *ArgumentError) Is(err error) bool {
	return err == ErrInvalidArgument
}

// IsArgumentError returns true if the error is an ArgumentError.
func IsArgumentError(err error) bool {
	if err == nil {
		return false
	}
	var e *ArgumentError
	return errors.As(err, &e)
}

// DriverError wraps a failure of the database driver with the entity and
// operation it occurred in.
type DriverError struct {
	Entity string // Entity type
	Op     string // Operation (e.g., "select", "insert", "read generated key")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *DriverError) Error() string {
	return fmt.Sprintf("sqldao: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *DriverError) Unwrap() error {
	return e.Err
}

// IsDriverError returns true if the error is a DriverError.
func IsDriverError(err error) bool {
	if err == nil {
		return false
	}
	var e *DriverError
	return errors.As(err, &e)
}

// MappingError is returned when a row value cannot be assigned to an
// entity property.
type MappingError struct {
	Entity string // Entity type
	Column string // Column name
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *MappingError) Error() string {
	return fmt.Sprintf("sqldao: mapping column %s of %s: %v", e.Column, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MappingError) Unwrap() error {
	return e.Err
}

// IsMappingError returns true if the error is a MappingError.
func IsMappingError(err error) bool {
	if err == nil {
		return false
	}
	var e *MappingError
	return errors.As(err, &e)
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	return schema.IsConfigError(err)
}

// IsMetadataError returns true if the error is a MetadataError.
func IsMetadataError(err error) bool {
	return schema.IsMetadataError(err)
}

func formatIDs(ids []any) string {
	if len(ids) == 1 {
		return fmt.Sprint(ids[0])
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
