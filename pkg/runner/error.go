// pkg/runner/error.go
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/David-Botos/data-masker/pkg/model"
)

// ErrorCategory classifies why a table failed
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	ErrorCategoryConfiguration
	ErrorCategoryProviderExecution
	ErrorCategoryPersistence
	ErrorCategoryCancelled
	ErrorCategoryUnknown
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryConfiguration:
		return "Configuration"
	case ErrorCategoryProviderExecution:
		return "ProviderExecution"
	case ErrorCategoryPersistence:
		return "Persistence"
	case ErrorCategoryCancelled:
		return "Cancelled"
	case ErrorCategoryUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// MarshalText lets categories key JSON objects by name
func (ec ErrorCategory) MarshalText() ([]byte, error) {
	return []byte(ec.String()), nil
}

// CategorizeError determines the category of an error from the sentinel it wraps
func CategorizeError(err error) ErrorCategory {
	switch {
	case err == nil:
		return ErrorCategoryNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorCategoryCancelled
	case errors.Is(err, model.ErrConfiguration):
		return ErrorCategoryConfiguration
	case errors.Is(err, model.ErrProviderExecution):
		return ErrorCategoryProviderExecution
	case errors.Is(err, model.ErrPersistence):
		return ErrorCategoryPersistence
	default:
		return ErrorCategoryUnknown
	}
}

// ErrorRecord represents a single failure during a run
type ErrorRecord struct {
	Category   ErrorCategory
	TableName  string
	ColumnName string
	Batch      int
	Error      error
	Message    string // Derived from Error but stored for serialization
	Timestamp  time.Time
}

// NewErrorRecord creates an error record, pulling the table, column and batch
// out of the error chain when present
func NewErrorRecord(err error) ErrorRecord {
	record := ErrorRecord{
		Category:  CategorizeError(err),
		Error:     err,
		Timestamp: time.Now(),
	}
	if err == nil {
		return record
	}
	record.Message = err.Error()

	var batchErr *model.BatchError
	if errors.As(err, &batchErr) {
		record.TableName = batchErr.Table
		record.Batch = batchErr.Batch
	}

	var colErr *model.ColumnError
	if errors.As(err, &colErr) {
		record.TableName = colErr.Table
		record.ColumnName = colErr.Column
	}

	return record
}

// WithTable adds table information to the error record
func (r ErrorRecord) WithTable(table string) ErrorRecord {
	r.TableName = table
	return r
}

// String returns a formatted error message
func (r ErrorRecord) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", r.Category))

	if r.TableName != "" {
		sb.WriteString(fmt.Sprintf("Table: %s ", r.TableName))
	}

	if r.Batch > 0 {
		sb.WriteString(fmt.Sprintf("Batch: %d ", r.Batch))
	}

	if r.ColumnName != "" {
		sb.WriteString(fmt.Sprintf("Column: %s ", r.ColumnName))
	}

	if r.Error != nil {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Error.Error()))
	} else if r.Message != "" {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Message))
	}

	return sb.String()
}
