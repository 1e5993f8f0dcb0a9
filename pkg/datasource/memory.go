// pkg/datasource/memory.go
package datasource

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/David-Botos/data-masker/pkg/batch"
	"github.com/David-Botos/data-masker/pkg/model"
	"github.com/David-Botos/data-masker/pkg/provider"
)

// MemoryDataSource keeps tables in memory. It backs the InMemoryFake kind and
// the tests; configured with FakeRowCount it fabricates each table on first use.
type MemoryDataSource struct {
	mu     sync.Mutex
	tables map[string][]model.Row
	cfg    model.DataSourceConfig
	gen    model.DataGenerationConfig
	logger *zap.Logger
}

// NewMemoryDataSource creates an empty in-memory store
func NewMemoryDataSource(cfg model.DataSourceConfig, gen model.DataGenerationConfig, logger *zap.Logger) *MemoryDataSource {
	return &MemoryDataSource{
		tables: make(map[string][]model.Row),
		cfg:    cfg,
		gen:    gen,
		logger: logger.Named("memory-source"),
	}
}

// Seed replaces the contents of a table
func (s *MemoryDataSource) Seed(table model.TableConfig, rows []model.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]model.Row, len(rows))
	for i, row := range rows {
		stored[i] = row.Clone()
	}
	s.tables[table.FullName()] = stored
}

// Snapshot returns a copy of the table's current rows
func (s *MemoryDataSource) Snapshot(table model.TableConfig) []model.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRows(s.tables[table.FullName()])
}

// GetData streams clones of the table's rows
func (s *MemoryDataSource) GetData(ctx context.Context, table model.TableConfig) iter.Seq2[model.Row, error] {
	return func(yield func(model.Row, error) bool) {
		s.mu.Lock()
		rows, err := s.rowsLocked(table)
		rows = cloneRows(rows)
		s.mu.Unlock()

		if err != nil {
			yield(nil, err)
			return
		}

		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// GetCount returns the number of rows in the table
func (s *MemoryDataSource) GetCount(_ context.Context, table model.TableConfig) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.rowsLocked(table)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// UpdateRow replaces the row with the same primary key. In dry-run mode the
// row is matched but not applied.
func (s *MemoryDataSource) UpdateRow(_ context.Context, row model.Row, table model.TableConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.rowsLocked(table)
	if err != nil {
		return err
	}

	staged := cloneRows(rows)
	if err := apply(staged, row, table); err != nil {
		return err
	}
	if !s.cfg.DryRun {
		s.tables[table.FullName()] = staged
	}
	return nil
}

// UpdateRows applies the rows batch by batch. Each batch is staged on a copy
// and replaces the table only once every row in it matched.
func (s *MemoryDataSource) UpdateRows(ctx context.Context, rows iter.Seq2[model.Row, error], rowCount int, table model.TableConfig, progress ProgressFunc) error {
	size := EffectiveBatchSize(s.cfg.UpdateBatchSize, rowCount)
	name := table.FullName()

	var srcErr error
	processed := 0

	for b := range batch.BatchItems(pull(rows, &srcErr), batch.MaxItems[model.Row](size)) {
		if srcErr != nil {
			return model.NewBatchError(name, b.Index+1, srcErr)
		}
		if err := ctx.Err(); err != nil {
			return model.NewBatchError(name, b.Index+1, err)
		}

		if err := s.applyBatch(b, table); err != nil {
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
			zap.Bool("dry_run", s.cfg.DryRun))
	}

	if srcErr != nil {
		return model.NewBatchError(name, processed/max(size, 1)+1, srcErr)
	}
	return nil
}

func (s *MemoryDataSource) applyBatch(b batch.Batch[model.Row], table model.TableConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.rowsLocked(table)
	if err != nil {
		return err
	}

	staged := cloneRows(rows)
	for _, row := range b.Items {
		if err := apply(staged, row, table); err != nil {
			return err
		}
	}

	if !s.cfg.DryRun {
		s.tables[table.FullName()] = staged
	}
	return nil
}

// Close is a no-op
func (s *MemoryDataSource) Close() error {
	return nil
}

// rowsLocked returns the stored rows, fabricating them on first access when
// FakeRowCount is set. The caller must hold s.mu.
func (s *MemoryDataSource) rowsLocked(table model.TableConfig) ([]model.Row, error) {
	name := table.FullName()
	if rows, ok := s.tables[name]; ok {
		return rows, nil
	}
	if s.cfg.FakeRowCount <= 0 {
		return nil, fmt.Errorf("%w: table %s does not exist", model.ErrPersistence, name)
	}

	rows, err := s.fabricate(table)
	if err != nil {
		return nil, err
	}
	s.tables[name] = rows
	s.logger.Info("Fabricated table",
		zap.String("table", name),
		zap.Int("rows", len(rows)))
	return rows, nil
}

// fabricate generates FakeRowCount rows with primary keys 1..N
func (s *MemoryDataSource) fabricate(table model.TableConfig) ([]model.Row, error) {
	fake, err := provider.NewFakeProvider(s.gen)
	if err != nil {
		return nil, err
	}
	faker := gofakeit.New(s.gen.Seed)

	rows := make([]model.Row, 0, s.cfg.FakeRowCount)
	for i := 1; i <= s.cfg.FakeRowCount; i++ {
		gender := provider.GenderMale
		if faker.Bool() {
			gender = provider.GenderFemale
		}

		row := model.Row{table.PrimaryKeyColumn: i}
		for _, name := range table.GenderColumns() {
			row[name] = gender.String()
		}
		for _, col := range table.Columns {
			if !fake.CanProvide(col.Type) {
				row[col.Name] = faker.Word()
				continue
			}
			v, err := fake.GetValue(context.Background(), col, row, gender)
			if err != nil {
				return nil, err
			}
			row[col.Name] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// apply overwrites the stored row with the same primary key in place
func apply(rows []model.Row, row model.Row, table model.TableConfig) error {
	pk, ok := row.PrimaryKey(table)
	if !ok {
		return fmt.Errorf("%w: row has no primary key column %s", model.ErrPersistence, table.PrimaryKeyColumn)
	}

	for i, existing := range rows {
		if existingPK, _ := existing.PrimaryKey(table); samePrimaryKey(existingPK, pk) {
			updated := existing.Clone()
			for _, col := range table.Columns {
				if v, ok := row[col.Name]; ok {
					updated[col.Name] = v
				}
			}
			rows[i] = updated
			return nil
		}
	}
	return fmt.Errorf("%w: no row with %s = %v", model.ErrPersistence, table.PrimaryKeyColumn, pk)
}

func samePrimaryKey(a, b any) bool {
	if ab, ok := a.([]byte); ok {
		bb, ok := b.([]byte)
		return ok && bytes.Equal(ab, bb)
	}
	if _, ok := b.([]byte); ok {
		return false
	}
	return a == b
}

func cloneRows(rows []model.Row) []model.Row {
	if rows == nil {
		return nil
	}
	out := make([]model.Row, len(rows))
	for i, row := range rows {
		out[i] = row.Clone()
	}
	return out
}
