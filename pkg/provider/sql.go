// pkg/provider/sql.go
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/David-Botos/data-masker/pkg/model"
)

// SqlProvider derives a column value from a lookup query. Every field of the
// current row is bound as a named parameter, e.g. ":CustomerId".
type SqlProvider struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSqlProvider creates a query-derived provider on a live connection
func NewSqlProvider(db *sqlx.DB) *SqlProvider {
	return &SqlProvider{db: db}
}

// WithQueryTimeout bounds each lookup query
func (p *SqlProvider) WithQueryTimeout(timeout time.Duration) *SqlProvider {
	p.timeout = timeout
	return p
}

// CanProvide reports whether the data type is query-derived
func (p *SqlProvider) CanProvide(dataType model.DataType) bool {
	return dataType == model.DataTypeSql
}

// GetValue runs the column's lookup query and returns its first scalar.
// When the query yields no row or NULL the not-found policy applies.
func (p *SqlProvider) GetValue(ctx context.Context, column model.ColumnConfig, row model.Row, _ Gender) (any, error) {
	if column.SqlValue == nil || column.SqlValue.Query == "" {
		return nil, fmt.Errorf("%w: column %s: sqlValue.query is required", model.ErrConfiguration, column.Name)
	}

	value, err := p.executeScalar(ctx, column.SqlValue.Query, row)
	if err != nil {
		return nil, fmt.Errorf("%w: column %s: lookup query: %w", model.ErrProviderExecution, column.Name, err)
	}

	if value == nil {
		switch column.SqlValue.ValueHandling {
		case model.KeepValue, "":
			return row[column.Name], nil
		case model.NullValue:
			return nil, nil
		}
	}

	return value, nil
}

func (p *SqlProvider) executeScalar(ctx context.Context, query string, row model.Row) (any, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	rows, err := p.db.NamedQueryContext(ctx, query, map[string]any(row))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	values, err := rows.SliceScan()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}

	return values[0], rows.Err()
}
