// pkg/runner/runner.go
package runner

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/data-masker/pkg/datasource"
	"github.com/David-Botos/data-masker/pkg/masker"
	"github.com/David-Botos/data-masker/pkg/model"
)

// Update modes: transactional batches, or one auto-committed update per row
const (
	UpdateModeBatch = "batch"
	UpdateModeRow   = "row"
)

// ProgressFactory returns the progress callback for one table, given the
// number of rows the source reported for it. It may return nil.
type ProgressFactory func(table model.TableConfig, total int) datasource.ProgressFunc

// Options controls how a run proceeds
type Options struct {
	UpdateMode      string
	ContinueOnError bool
	DryRun          bool // Only labels results; the data source enforces it
	Verify          bool // Recount each table after a live update
	Progress        ProgressFactory
}

// Runner masks configured tables one after another
type Runner struct {
	source   datasource.DataSource
	masker   *masker.Masker
	opts     Options
	verifier *Verifier
	metrics  *Metrics
	logger   *zap.Logger
}

// New creates a runner over a data source and a masker
func New(source datasource.DataSource, m *masker.Masker, opts Options, logger *zap.Logger) *Runner {
	if opts.UpdateMode == "" {
		opts.UpdateMode = UpdateModeBatch
	}
	logger = logger.Named("runner")
	return &Runner{
		source:   source,
		masker:   m,
		opts:     opts,
		verifier: NewVerifier(source, logger),
		metrics:  NewMetrics(logger, opts.DryRun),
		logger:   logger,
	}
}

// Metrics returns the metrics collected so far
func (r *Runner) Metrics() *Metrics {
	return r.metrics
}

// Run masks every table in order. Configuration problems in any table abort
// the run before anything is written. A failing table stops the run unless
// ContinueOnError is set, in which case the remaining tables still run and
// the failure is reported only through the summary.
func (r *Runner) Run(ctx context.Context, tables []model.TableConfig) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.New().String(),
		DryRun:    r.opts.DryRun,
		StartTime: time.Now(),
	}
	defer r.finish(summary)

	switch r.opts.UpdateMode {
	case UpdateModeBatch, UpdateModeRow:
	default:
		err := fmt.Errorf("%w: unknown update mode %q", model.ErrConfiguration, r.opts.UpdateMode)
		r.metrics.RecordError(CategorizeError(err))
		return summary, err
	}

	if err := r.masker.Validate(tables...); err != nil {
		r.logger.Error("Configuration rejected, nothing was written", zap.Error(err))
		r.metrics.RecordError(CategorizeError(err))
		return summary, err
	}

	r.logger.Info("Starting masking run",
		zap.String("runId", summary.RunID),
		zap.Int("tables", len(tables)),
		zap.String("updateMode", r.opts.UpdateMode),
		zap.Bool("dryRun", r.opts.DryRun))

	var firstErr error
	for i, table := range tables {
		if err := ctx.Err(); err != nil {
			r.skip(summary, tables[i:], "run cancelled")
			return summary, err
		}

		result := r.runTable(ctx, NewTableJob(table))
		r.metrics.RecordTableResult(*result)
		summary.Tables = append(summary.Tables, *result)
		summary.TotalRows += result.RowsProcessed

		if result.Success {
			summary.SuccessfulTables++
			continue
		}

		summary.FailedTables++
		if firstErr == nil {
			firstErr = result.Err()
		}
		if !r.opts.ContinueOnError {
			r.skip(summary, tables[i+1:], "previous table failed")
			return summary, firstErr
		}
	}

	return summary, nil
}

func (r *Runner) finish(summary *Summary) {
	r.metrics.Complete()
	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)
}

func (r *Runner) skip(summary *Summary, tables []model.TableConfig, reason string) {
	for _, table := range tables {
		r.metrics.RecordSkippedTable(table.FullName(), reason)
		summary.Tables = append(summary.Tables, TableResult{
			Table:   table.FullName(),
			Skipped: true,
			DryRun:  r.opts.DryRun,
		})
		summary.SkippedTables++
	}
}

// runTable masks a single table and records the outcome
func (r *Runner) runTable(ctx context.Context, job TableJob) *TableResult {
	result := NewTableResult(job, r.opts.DryRun)
	logger := r.logger.With(zap.String("table", job.FullName()), zap.String("jobId", job.ID))

	count, err := r.source.GetCount(ctx, job.Table)
	if err != nil {
		result.AddError(NewErrorRecord(err))
		result.Complete(false)
		logger.Error("Failed to count rows", zap.Error(err))
		return result
	}
	result.RowCount = count
	logger.Info("Masking table", zap.Int("rows", count))

	var progress datasource.ProgressFunc
	if r.opts.Progress != nil {
		progress = r.opts.Progress(job.Table, count)
	}
	track := func(processed int) {
		result.RowsProcessed = int64(processed)
		if progress != nil {
			progress(processed)
		}
	}

	rows := r.masker.MaskAll(ctx, r.source.GetData(ctx, job.Table), job.Table)
	if r.opts.UpdateMode == UpdateModeRow {
		err = r.updateRows(ctx, rows, job.Table, track)
	} else {
		err = r.source.UpdateRows(ctx, rows, count, job.Table, track)
	}

	if err != nil {
		result.AddError(NewErrorRecord(err))
		result.Complete(false)
		logger.Error("Table masking failed",
			zap.Int64("rowsMasked", result.RowsProcessed),
			zap.String("category", CategorizeError(err).String()),
			zap.Error(err))
		return result
	}

	if r.opts.Verify && !r.opts.DryRun {
		if err := r.verifier.Verify(ctx, job.Table, result); err != nil {
			result.AddError(NewErrorRecord(err))
			result.Complete(false)
			logger.Error("Verification failed", zap.Error(err))
			return result
		}
	}

	result.Complete(true)
	return result
}

// updateRows writes masked rows one at a time, each in its own statement
func (r *Runner) updateRows(ctx context.Context, rows iter.Seq2[model.Row, error], table model.TableConfig, progress datasource.ProgressFunc) error {
	processed := 0
	for row, err := range rows {
		if err != nil {
			return fmt.Errorf("row %d: %w", processed+1, err)
		}
		if err := r.source.UpdateRow(ctx, row, table); err != nil {
			return fmt.Errorf("row %d: %w", processed+1, err)
		}
		processed++
		progress(processed)
	}
	return nil
}
