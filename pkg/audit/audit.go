// pkg/audit/audit.go

// Package audit tallies what the masker did to each configured column.
// Only counts are kept; original and masked values are never recorded.
package audit

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/David-Botos/data-masker/pkg/model"
)

// ColumnStats holds the operation counts for one column
type ColumnStats struct {
	Table      string
	Column     string
	Operations map[model.MaskOperation]int64
}

// Total returns the number of values seen for the column
func (s ColumnStats) Total() int64 {
	var total int64
	for _, n := range s.Operations {
		total += n
	}
	return total
}

// Recorder collects masking operations. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	logger *zap.Logger
	counts map[string]map[string]map[model.MaskOperation]int64 // table -> column -> op -> count
	order  []string                                            // table.column in first-seen order
}

// NewRecorder creates an empty recorder
func NewRecorder(logger *zap.Logger) *Recorder {
	return &Recorder{
		logger: logger.Named("audit"),
		counts: make(map[string]map[string]map[model.MaskOperation]int64),
	}
}

// Record counts one operation on a column
func (r *Recorder) Record(table, column string, op model.MaskOperation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	columns, ok := r.counts[table]
	if !ok {
		columns = make(map[string]map[model.MaskOperation]int64)
		r.counts[table] = columns
	}
	ops, ok := columns[column]
	if !ok {
		ops = make(map[model.MaskOperation]int64)
		columns[column] = ops
		r.order = append(r.order, table+"\x00"+column)
	}
	ops[op]++
}

// Stats returns a copy of the counts, in the order columns were first seen
func (r *Recorder) Stats() []ColumnStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make([]ColumnStats, 0, len(r.order))
	for _, key := range r.order {
		table, column, _ := strings.Cut(key, "\x00")
		ops := make(map[model.MaskOperation]int64, len(r.counts[table][column]))
		for op, n := range r.counts[table][column] {
			ops[op] = n
		}
		stats = append(stats, ColumnStats{Table: table, Column: column, Operations: ops})
	}
	return stats
}

// Log writes one summary line per column
func (r *Recorder) Log() {
	for _, s := range r.Stats() {
		fields := []zap.Field{
			zap.String("table", s.Table),
			zap.String("column", s.Column),
		}
		for _, op := range model.MaskOperations {
			if n := s.Operations[op]; n > 0 {
				fields = append(fields, zap.Int64(string(op), n))
			}
		}
		r.logger.Info("Column masking summary", fields...)
	}
}

// Report renders the counts as a text table
func (r *Recorder) Report() string {
	stats := r.Stats()
	if len(stats) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\nColumn Summary\n--------------\n")
	for _, s := range stats {
		var parts []string
		for _, op := range model.MaskOperations {
			if n := s.Operations[op]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", op, n))
			}
		}
		slices.Sort(parts)
		sb.WriteString(fmt.Sprintf("- %s.%s: %s\n", s.Table, s.Column, strings.Join(parts, " ")))
	}
	return sb.String()
}
