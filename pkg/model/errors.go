// pkg/model/errors.go
package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates the masking configuration cannot be executed
	ErrConfiguration = errors.New("configuration error")

	// ErrUnsupportedDataType indicates no registered provider can mask a column's data type
	ErrUnsupportedDataType = fmt.Errorf("%w: unsupported data type", ErrConfiguration)

	// ErrProviderExecution indicates a provider failed to produce a value
	ErrProviderExecution = errors.New("provider execution failed")

	// ErrPersistence indicates masked rows could not be written
	ErrPersistence = errors.New("persistence failed")
)

// ColumnError wraps an error with the table and column it occurred on
type ColumnError struct {
	Table  string
	Column string
	Err    error
}

// Error returns formatted error message
func (e *ColumnError) Error() string {
	return fmt.Sprintf("table %s: column %s: %v", e.Table, e.Column, e.Err)
}

// Unwrap returns the underlying error
func (e *ColumnError) Unwrap() error {
	return e.Err
}

// NewColumnError creates a new column error
func NewColumnError(table, column string, err error) *ColumnError {
	return &ColumnError{
		Table:  table,
		Column: column,
		Err:    err,
	}
}

// BatchError wraps an error with the table and the batch it aborted.
// Batch is the 1-based position of the batch within the table update.
type BatchError struct {
	Table string
	Batch int
	Err   error
}

// Error returns formatted error message
func (e *BatchError) Error() string {
	return fmt.Sprintf("table %s: batch %d: %v", e.Table, e.Batch, e.Err)
}

// Unwrap returns the underlying error
func (e *BatchError) Unwrap() error {
	return e.Err
}

// NewBatchError creates a new batch error
func NewBatchError(table string, batch int, err error) *BatchError {
	return &BatchError{
		Table: table,
		Batch: batch,
		Err:   err,
	}
}
