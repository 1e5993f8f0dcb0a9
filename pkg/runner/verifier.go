// pkg/runner/verifier.go
package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/data-masker/pkg/datasource"
	"github.com/David-Botos/data-masker/pkg/model"
)

// Verifier re-checks a table after masking. Masking updates rows in place,
// so the row count must not change and every counted row must have been written.
type Verifier struct {
	source datasource.DataSource
	logger *zap.Logger
}

// NewVerifier creates a new verifier
func NewVerifier(source datasource.DataSource, logger *zap.Logger) *Verifier {
	return &Verifier{
		source: source,
		logger: logger.Named("verifier"),
	}
}

// VerifyRowCount compares the current row count with the count taken before masking
func (v *Verifier) VerifyRowCount(ctx context.Context, table model.TableConfig, before int) (bool, int, error) {
	after, err := v.source.GetCount(ctx, table)
	if err != nil {
		return false, 0, err
	}

	matches := before == after
	if matches {
		v.logger.Info("Row count verification successful",
			zap.String("table", table.FullName()),
			zap.Int("count", after))
	} else {
		v.logger.Warn("Row count mismatch",
			zap.String("table", table.FullName()),
			zap.Int("before", before),
			zap.Int("after", after),
			zap.Int("difference", after-before))
	}
	return matches, after, nil
}

// Verify adds a warning to result for every check that does not hold
func (v *Verifier) Verify(ctx context.Context, table model.TableConfig, result *TableResult) error {
	matches, after, err := v.VerifyRowCount(ctx, table, result.RowCount)
	if err != nil {
		return err
	}
	if !matches {
		result.AddWarning(fmt.Sprintf("row count changed from %d to %d during masking", result.RowCount, after))
	}

	if result.RowsProcessed != int64(result.RowCount) {
		result.AddWarning(fmt.Sprintf("%d rows counted but %d masked", result.RowCount, result.RowsProcessed))
	}
	return nil
}
