// pkg/datasource/datasource.go

// Package datasource reads rows from and writes masked rows back to a store.
package datasource

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/David-Botos/data-masker/pkg/connector"
	"github.com/David-Botos/data-masker/pkg/model"
)

// ProgressFunc receives the cumulative number of rows processed after each
// settled batch. Rolled back dry-run batches count as processed.
type ProgressFunc func(processed int)

// DataSource is a store that masked rows are read from and written back to
type DataSource interface {
	// GetData lazily streams the table's rows. The cursor is released when
	// iteration ends, including when the caller stops early.
	GetData(ctx context.Context, table model.TableConfig) iter.Seq2[model.Row, error]

	// GetCount returns the number of rows in the table
	GetCount(ctx context.Context, table model.TableConfig) (int, error)

	// UpdateRow writes a single masked row, matched by primary key
	UpdateRow(ctx context.Context, row model.Row, table model.TableConfig) error

	// UpdateRows writes the masked rows in batches, one transaction per batch.
	// Batches committed before a failure stay committed.
	UpdateRows(ctx context.Context, rows iter.Seq2[model.Row, error], rowCount int, table model.TableConfig, progress ProgressFunc) error

	// Close releases the underlying connections
	Close() error
}

// Provide builds the data source selected by cfg.Type
func Provide(ctx context.Context, cfg model.DataSourceConfig, gen model.DataGenerationConfig, logger *zap.Logger) (DataSource, error) {
	switch {
	case cfg.Type == model.DataSourceInMemoryFake:
		return NewMemoryDataSource(cfg, gen, logger), nil
	case cfg.Type.IsRelational():
		dialect, err := connector.DialectFor(cfg.Type)
		if err != nil {
			return nil, err
		}
		db, err := connector.Open(ctx, cfg.Type, cfg.Connection, logger)
		if err != nil {
			return nil, err
		}
		return NewSqlDataSource(db, dialect, cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown data source type %q", model.ErrConfiguration, cfg.Type)
	}
}

// EffectiveBatchSize returns the configured batch size if positive, otherwise
// the full row count so everything is written in a single batch.
func EffectiveBatchSize(configured, rowCount int) int {
	if configured > 0 {
		return configured
	}
	return rowCount
}

// pull adapts a fallible row stream to the infallible sequence the batcher
// consumes. The first error stops the sequence and is kept in *failed.
func pull(rows iter.Seq2[model.Row, error], failed *error) iter.Seq[model.Row] {
	return func(yield func(model.Row) bool) {
		for row, err := range rows {
			if err != nil {
				*failed = err
				return
			}
			if !yield(row) {
				return
			}
		}
	}
}
