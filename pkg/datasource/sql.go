// pkg/datasource/sql.go
package datasource

import (
	"context"
	"fmt"
	"iter"
	"regexp"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/data-masker/pkg/batch"
	"github.com/David-Botos/data-masker/pkg/connector"
	"github.com/David-Botos/data-masker/pkg/converter"
	"github.com/David-Botos/data-masker/pkg/model"
)

var (
	// namedParam matches ":Name" parameters in lookup queries, but not "::" casts
	namedParam = regexp.MustCompile(`(^|[^:]):([A-Za-z_][A-Za-z0-9_]*)`)
	// quotedText matches single-quoted literals and double-quoted identifiers
	quotedText = regexp.MustCompile(`'(?:[^']|'')*'|"(?:[^"]|"")*"`)
)

// SqlDataSource reads and updates tables in a relational store. Identifiers
// come from configuration and are always quoted; row values are always bound.
type SqlDataSource struct {
	db        *sqlx.DB
	dialect   connector.Dialect
	cfg       model.DataSourceConfig
	converter *converter.ValueConverter
	logger    *zap.Logger

	mu         sync.Mutex
	statements map[string]string
}

// NewSqlDataSource creates a data source on an open connection pool
func NewSqlDataSource(db *sqlx.DB, dialect connector.Dialect, cfg model.DataSourceConfig, logger *zap.Logger) *SqlDataSource {
	logger = logger.Named("sql-source")
	return &SqlDataSource{
		db:         db,
		dialect:    dialect,
		cfg:        cfg,
		converter:  converter.NewValueConverter(logger),
		logger:     logger,
		statements: make(map[string]string),
	}
}

// GetData streams the table through a single unbuffered cursor
func (s *SqlDataSource) GetData(ctx context.Context, table model.TableConfig) iter.Seq2[model.Row, error] {
	return func(yield func(model.Row, error) bool) {
		query := s.selectSQL(table)

		rows, err := s.db.QueryxContext(ctx, query)
		if err != nil {
			yield(nil, fmt.Errorf("%w: failed to query %s: %w", model.ErrPersistence, table.FullName(), err))
			return
		}
		defer rows.Close()

		columnTypes, err := scanTypes(rows)
		if err != nil {
			yield(nil, fmt.Errorf("%w: failed to describe %s: %w", model.ErrPersistence, table.FullName(), err))
			return
		}

		for rows.Next() {
			row := make(map[string]any)
			if err := rows.MapScan(row); err != nil {
				yield(nil, fmt.Errorf("%w: failed to scan %s: %w", model.ErrPersistence, table.FullName(), err))
				return
			}
			if err := s.converter.ConvertRow(row, columnTypes); err != nil {
				yield(nil, fmt.Errorf("table %s: %w", table.FullName(), err))
				return
			}
			if !yield(model.Row(row), nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("%w: error iterating %s: %w", model.ErrPersistence, table.FullName(), err))
		}
	}
}

// scanTypes maps result column names to the driver's database type names
func scanTypes(rows *sqlx.Rows) (map[string]string, error) {
	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	types := make(map[string]string, len(cols))
	for _, col := range cols {
		types[col.Name()] = col.DatabaseTypeName()
	}
	return types, nil
}

// GetCount returns the number of rows in the table
func (s *SqlDataSource) GetCount(ctx context.Context, table model.TableConfig) (int, error) {
	ctx, cancel := s.withQueryTimeout(ctx)
	defer cancel()

	var count int
	query := "SELECT COUNT(*) FROM " + s.dialect.QualifiedName(table.Schema, table.Name)
	if err := s.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("%w: failed to count %s: %w", model.ErrPersistence, table.FullName(), err)
	}
	return count, nil
}

// UpdateRow writes a single row. Outside dry-run mode the statement is
// auto-committed; in dry-run mode it runs in a transaction that is rolled back.
func (s *SqlDataSource) UpdateRow(ctx context.Context, row model.Row, table model.TableConfig) error {
	query, ok := s.updateSQL(table)
	if !ok {
		return nil
	}

	if !s.cfg.DryRun {
		if _, err := s.db.NamedExecContext(ctx, query, map[string]any(row)); err != nil {
			return fmt.Errorf("%w: failed to update %s: %w", model.ErrPersistence, table.FullName(), err)
		}
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", model.ErrPersistence, err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, query, map[string]any(row)); err != nil {
		return fmt.Errorf("%w: failed to update %s: %w", model.ErrPersistence, table.FullName(), err)
	}
	return tx.Rollback()
}

// UpdateRows writes the rows in batches over one dedicated connection. Each
// batch runs in its own transaction and is committed, or rolled back in
// dry-run mode, before the next batch is read.
func (s *SqlDataSource) UpdateRows(ctx context.Context, rows iter.Seq2[model.Row, error], rowCount int, table model.TableConfig, progress ProgressFunc) error {
	size := EffectiveBatchSize(s.cfg.UpdateBatchSize, rowCount)
	name := table.FullName()
	query, ok := s.updateSQL(table)
	if !ok {
		s.logger.Info("No writable columns, skipping update", zap.String("table", name))
		return nil
	}

	// GetData's cursor is opened lazily on a second pooled connection
	if s.db.Stats().MaxOpenConnections == 1 {
		return fmt.Errorf("%w: table %s: batch updates need a pool of at least two connections", model.ErrConfiguration, name)
	}

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to acquire connection: %w", model.ErrPersistence, err)
	}
	defer conn.Close()

	var srcErr error
	processed := 0

	for b := range batch.BatchItems(pull(rows, &srcErr), batch.MaxItems[model.Row](size)) {
		if srcErr != nil {
			return model.NewBatchError(name, b.Index+1, srcErr)
		}

		if err := s.execBatch(ctx, conn, query, b); err != nil {
			return model.NewBatchError(name, b.Index+1, err)
		}

		processed += b.Len()
		if progress != nil {
			progress(processed)
		}

		s.logger.Debug("Batch settled",
			zap.String("table", name),
			zap.Int("batch", b.Index+1),
			zap.Int("rows", b.Len()),
			zap.Int("processed", processed),
			zap.Bool("dry_run", s.cfg.DryRun))
	}

	if srcErr != nil {
		return model.NewBatchError(name, processed/max(size, 1)+1, srcErr)
	}
	return nil
}

// execBatch runs one batch in a transaction
func (s *SqlDataSource) execBatch(ctx context.Context, conn *sqlx.Conn, query string, b batch.Batch[model.Row]) error {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", model.ErrPersistence, err)
	}

	settled := false
	defer func() {
		if !settled {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warn("Rollback failed", zap.Error(rbErr))
			}
		}
	}()

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare update: %w", model.ErrPersistence, err)
	}
	defer stmt.Close()

	for i, row := range b.Items {
		if _, err := stmt.ExecContext(ctx, map[string]any(row)); err != nil {
			return fmt.Errorf("%w: row %d: %w", model.ErrPersistence, i+1, err)
		}
	}

	settled = true
	if s.cfg.DryRun {
		if err := tx.Rollback(); err != nil {
			return fmt.Errorf("%w: failed to roll back dry run: %w", model.ErrPersistence, err)
		}
		return nil
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %w", model.ErrPersistence, err)
	}
	return nil
}

// Close closes the connection pool
func (s *SqlDataSource) Close() error {
	connector.LogConnectionStats(s.logger, s.dialect.Name, s.db)
	return s.db.Close()
}

// updateSQL returns the cached update statement for the table, e.g.
// UPDATE [dbo].[Users] SET [Name] = :Name WHERE [Id] = :Id
// It reports false when every column is ignored.
func (s *SqlDataSource) updateSQL(table model.TableConfig) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := table.FullName()
	if query, ok := s.statements[key]; ok {
		return query, query != ""
	}

	var sets []string
	for _, col := range table.Columns {
		if col.Ignore {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = :%s", s.dialect.Quote(col.Name), col.Name))
	}
	if len(sets) == 0 {
		s.statements[key] = ""
		return "", false
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = :%s",
		s.dialect.QualifiedName(table.Schema, table.Name),
		strings.Join(sets, ", "),
		s.dialect.Quote(table.PrimaryKeyColumn),
		table.PrimaryKeyColumn)

	s.statements[key] = query
	return query, true
}

// selectSQL selects the primary key, the configured columns and every column
// a strategy reads from the row
func (s *SqlDataSource) selectSQL(table model.TableConfig) string {
	columns := SelectColumns(table)
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = s.dialect.Quote(col)
	}
	return fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(quoted, ", "),
		s.dialect.QualifiedName(table.Schema, table.Name))
}

// SelectColumns lists the columns read for a table, without duplicates
func SelectColumns(table model.TableConfig) []string {
	seen := make(map[string]bool)
	var columns []string
	add := func(name string) {
		if name == "" || seen[name] || !model.IsIdentifier(name) {
			return
		}
		seen[name] = true
		columns = append(columns, name)
	}

	add(table.PrimaryKeyColumn)
	for _, col := range table.Columns {
		add(col.Name)
	}
	for _, name := range table.GenderColumns() {
		add(name)
	}
	for _, col := range table.Columns {
		if col.SqlValue == nil || !col.NeedsProvider() {
			continue
		}
		query := quotedText.ReplaceAllString(col.SqlValue.Query, "''")
		for _, m := range namedParam.FindAllStringSubmatch(query, -1) {
			add(m[2])
		}
	}
	return columns
}

func (s *SqlDataSource) withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Connection.QueryTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Connection.QueryTimeout)
	}
	return context.WithCancel(ctx)
}
