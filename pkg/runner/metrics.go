// pkg/runner/metrics.go
package runner

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Metrics tracks counters for a masking run
type Metrics struct {
	mu               sync.Mutex
	logger           *zap.Logger
	StartTime        time.Time
	EndTime          time.Time
	DryRun           bool
	SuccessfulTables int
	FailedTables     int
	SkippedTables    int
	TotalRowsRead    int64 // Row counts reported by the source
	TotalRowsMasked  int64
	Warnings         int
	ErrorCounts      map[ErrorCategory]int
	failures         map[string]string // table name -> error message
}

// NewMetrics creates a new Metrics instance
func NewMetrics(logger *zap.Logger, dryRun bool) *Metrics {
	return &Metrics{
		StartTime:   time.Now(),
		DryRun:      dryRun,
		ErrorCounts: make(map[ErrorCategory]int),
		failures:    make(map[string]string),
		logger:      logger,
	}
}

// RecordTableResult records metrics for a finished table
func (m *Metrics) RecordTableResult(result TableResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRowsRead += int64(result.RowCount)
	m.TotalRowsMasked += result.RowsProcessed
	m.Warnings += len(result.Warnings)

	if result.Success {
		m.SuccessfulTables++
	} else {
		m.FailedTables++
		for _, err := range result.Errors {
			m.ErrorCounts[err.Category]++
		}
		if len(result.Errors) > 0 {
			m.failures[result.Table] = result.Errors[0].Message
		} else {
			m.failures[result.Table] = "unknown error"
		}
	}

	if m.logger != nil {
		m.logger.Info("Table masking completed",
			zap.String("table", result.Table),
			zap.Bool("success", result.Success),
			zap.Bool("dryRun", result.DryRun),
			zap.Int("rowCount", result.RowCount),
			zap.Int64("rowsMasked", result.RowsProcessed),
			zap.Strings("warnings", result.Warnings),
			zap.Duration("duration", result.Duration))
	}
}

// RecordSkippedTable marks a table as skipped
func (m *Metrics) RecordSkippedTable(table, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SkippedTables++

	if m.logger != nil {
		m.logger.Info("Skipped table",
			zap.String("table", table),
			zap.String("reason", reason))
	}
}

// RecordError counts an error that is not tied to a single table
func (m *Metrics) RecordError(category ErrorCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorCounts[category]++
}

// Complete marks the run as complete
func (m *Metrics) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EndTime = time.Now()

	if m.logger != nil {
		m.logger.Info("Masking run completed",
			zap.Duration("totalDuration", m.duration()),
			zap.Int("successfulTables", m.SuccessfulTables),
			zap.Int("failedTables", m.FailedTables),
			zap.Int("skippedTables", m.SkippedTables),
			zap.Int64("totalRowsMasked", m.TotalRowsMasked),
			zap.Float64("throughput", m.throughput()))
	}
}

// Throughput calculates the rows/second throughput
func (m *Metrics) Throughput() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.throughput()
}

func (m *Metrics) throughput() float64 {
	duration := m.duration().Seconds()
	if duration <= 0 {
		return 0
	}
	return float64(m.TotalRowsMasked) / duration
}

// Duration returns the total duration of the run
func (m *Metrics) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration()
}

func (m *Metrics) duration() time.Duration {
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// categories returns the recorded error categories in a stable order
func (m *Metrics) categories() []ErrorCategory {
	out := make([]ErrorCategory, 0, len(m.ErrorCounts))
	for category := range m.ErrorCounts {
		out = append(out, category)
	}
	slices.Sort(out)
	return out
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// getPercentage safely calculates a percentage, avoiding division by zero
func getPercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * 100
}

// Report creates a human-readable summary of the run
func (m *Metrics) Report() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.SuccessfulTables + m.FailedTables + m.SkippedTables
	mode := "live"
	if m.DryRun {
		mode = "dry run (all changes rolled back)"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`
Masking Metrics Report
======================
Mode:                    %s
Duration:                %s
Start Time:              %s
End Time:                %s

Tables Summary
-------------
Total Tables:            %d
Successful Tables:       %d (%.1f%%)
Failed Tables:           %d (%.1f%%)
Skipped Tables:          %d (%.1f%%)

Data Summary
-----------
Rows In Scope:           %d
Rows Masked:             %d
Average Throughput:      %.2f rows/sec
Warnings:                %d
`,
		mode,
		formatDuration(m.duration()),
		m.StartTime.Format(time.RFC3339),
		m.EndTime.Format(time.RFC3339),

		total,
		m.SuccessfulTables, getPercentage(float64(m.SuccessfulTables), float64(total)),
		m.FailedTables, getPercentage(float64(m.FailedTables), float64(total)),
		m.SkippedTables, getPercentage(float64(m.SkippedTables), float64(total)),

		m.TotalRowsRead,
		m.TotalRowsMasked,
		m.throughput(),
		m.Warnings,
	))

	if len(m.failures) > 0 {
		sb.WriteString("\nFailed Tables\n-------------\n")
		names := make([]string, 0, len(m.failures))
		for name := range m.failures {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", name, m.failures[name]))
		}
	}

	if len(m.ErrorCounts) > 0 {
		sb.WriteString("\nError Distribution\n-----------------\n")
		totalErrors := 0
		for _, count := range m.ErrorCounts {
			totalErrors += count
		}
		for _, category := range m.categories() {
			count := m.ErrorCounts[category]
			sb.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n", category, count, getPercentage(float64(count), float64(totalErrors))))
		}
	}

	return sb.String()
}

// ToJSON serializes metrics to JSON
func (m *Metrics) ToJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return json.Marshal(struct {
		Duration         string                `json:"duration"`
		DryRun           bool                  `json:"dryRun"`
		SuccessfulTables int                   `json:"successfulTables"`
		FailedTables     int                   `json:"failedTables"`
		SkippedTables    int                   `json:"skippedTables"`
		TotalRowsRead    int64                 `json:"totalRowsRead"`
		TotalRowsMasked  int64                 `json:"totalRowsMasked"`
		Warnings         int                   `json:"warnings"`
		Throughput       float64               `json:"throughput"`
		ErrorCounts      map[ErrorCategory]int `json:"errorCounts"`
		Failures         map[string]string     `json:"failures,omitempty"`
	}{
		Duration:         formatDuration(m.duration()),
		DryRun:           m.DryRun,
		SuccessfulTables: m.SuccessfulTables,
		FailedTables:     m.FailedTables,
		SkippedTables:    m.SkippedTables,
		TotalRowsRead:    m.TotalRowsRead,
		TotalRowsMasked:  m.TotalRowsMasked,
		Warnings:         m.Warnings,
		Throughput:       m.throughput(),
		ErrorCounts:      m.ErrorCounts,
		Failures:         m.failures,
	})
}
