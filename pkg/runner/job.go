// pkg/runner/job.go
package runner

import (
	"time"

	"github.com/google/uuid"

	"github.com/David-Botos/data-masker/pkg/model"
)

// TableJob represents masking one configured table
type TableJob struct {
	ID        string // Unique job identifier
	Table     model.TableConfig
	CreatedAt time.Time
}

// NewTableJob creates a new table job
func NewTableJob(table model.TableConfig) TableJob {
	return TableJob{
		ID:        uuid.New().String(),
		Table:     table,
		CreatedAt: time.Now(),
	}
}

// FullName returns the fully qualified table name
func (j TableJob) FullName() string {
	return j.Table.FullName()
}

// TableResult represents the outcome of a table job
type TableResult struct {
	JobID         string
	Table         string
	Success       bool
	Skipped       bool
	RowCount      int   // Rows reported by the source before masking
	RowsProcessed int64 // Rows written, or rolled back in a dry run
	DryRun        bool
	Errors        []ErrorRecord
	Warnings      []string
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}

// NewTableResult initializes a result for a job
func NewTableResult(job TableJob, dryRun bool) *TableResult {
	return &TableResult{
		JobID:     job.ID,
		Table:     job.FullName(),
		DryRun:    dryRun,
		StartTime: time.Now(),
		Errors:    make([]ErrorRecord, 0),
	}
}

// Complete marks the job as complete and calculates duration
func (r *TableResult) Complete(success bool) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = success && len(r.Errors) == 0
}

// AddError adds an error to the result
func (r *TableResult) AddError(err ErrorRecord) {
	if err.TableName == "" {
		err.TableName = r.Table
	}
	r.Errors = append(r.Errors, err)
	r.Success = false
}

// AddWarning adds a warning to the result
func (r *TableResult) AddWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}

// Err returns the first recorded error, if any
func (r *TableResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0].Error
}

// Summary is the outcome of a run over all configured tables
type Summary struct {
	RunID            string
	Tables           []TableResult
	SuccessfulTables int
	FailedTables     int
	SkippedTables    int
	TotalRows        int64
	DryRun           bool
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}

// HasFailures reports whether any table failed
func (s *Summary) HasFailures() bool {
	return s.FailedTables > 0
}
