// pkg/masker/masker.go

// Package masker applies the configured data providers to rows.
package masker

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/David-Botos/data-masker/pkg/model"
	"github.com/David-Botos/data-masker/pkg/provider"
)

// Option configures a Masker
type Option func(*Masker)

// WithGenderFunc sets how a gender hint is chosen when no gender column provides one
func WithGenderFunc(fn func() provider.Gender) Option {
	return func(m *Masker) {
		m.genderFunc = fn
	}
}

// Recorder receives one operation per configured column of every masked row
type Recorder interface {
	Record(table, column string, op model.MaskOperation)
}

// WithRecorder reports the operation applied to each column of each successfully masked row
func WithRecorder(r Recorder) Option {
	return func(m *Masker) {
		m.recorder = r
	}
}

// Masker dispatches each configured column to the first provider that can handle it.
// It performs no I/O itself.
type Masker struct {
	providers  []provider.DataProvider
	resolved   map[model.DataType]provider.DataProvider
	genderFunc func() provider.Gender
	recorder   Recorder
	logger     *zap.Logger
}

// New creates a masker. Provider order is the selection priority.
func New(providers []provider.DataProvider, logger *zap.Logger, opts ...Option) *Masker {
	m := &Masker{
		providers:  providers,
		resolved:   make(map[model.DataType]provider.DataProvider),
		genderFunc: provider.RandomGender,
		logger:     logger.Named("masker"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Validate checks every table and resolves a provider for every column that
// needs one. It must be called before masking starts so unsupported columns
// abort the run before any row is written.
func (m *Masker) Validate(tables ...model.TableConfig) error {
	for _, table := range tables {
		if err := table.Validate(); err != nil {
			return err
		}

		for _, col := range table.Columns {
			if !col.NeedsProvider() {
				continue
			}
			p := m.find(col.Type)
			if p == nil {
				return model.NewColumnError(table.FullName(), col.Name,
					fmt.Errorf("%w: %q", model.ErrUnsupportedDataType, col.Type))
			}
			m.resolved[col.Type] = p
		}

		m.logger.Debug("Validated table configuration",
			zap.String("table", table.FullName()),
			zap.Int("columns", len(table.Columns)))
	}
	return nil
}

// find returns the first registered provider for the data type
func (m *Masker) find(dataType model.DataType) provider.DataProvider {
	for _, p := range m.providers {
		if p.CanProvide(dataType) {
			return p
		}
	}
	return nil
}

func (m *Masker) providerFor(dataType model.DataType) provider.DataProvider {
	if p, ok := m.resolved[dataType]; ok {
		return p
	}
	return m.find(dataType)
}

// Mask returns a masked copy of row. Columns not configured in table are
// passed through unchanged and row itself is never modified.
func (m *Masker) Mask(ctx context.Context, row model.Row, table model.TableConfig) (model.Row, error) {
	masked := row.Clone()
	gender := m.genderHint(row, table)
	var ops []model.MaskOperation
	if m.recorder != nil {
		ops = make([]model.MaskOperation, len(table.Columns))
	}
	note := func(i int, op model.MaskOperation) {
		if ops != nil {
			ops[i] = op
		}
	}

	for i, col := range table.Columns {
		if col.Ignore {
			note(i, model.OpIgnored)
			continue
		}

		current, exists := row[col.Name]
		if col.RetainNullValues && exists && current == nil {
			note(i, model.OpRetainedNull)
			continue
		}
		if col.RetainEmptyStringValues && model.IsEmptyString(current) {
			note(i, model.OpRetainedEmpty)
			continue
		}

		if col.UseValue != nil {
			masked[col.Name] = *col.UseValue
			note(i, model.OpConstant)
			continue
		}

		p := m.providerFor(col.Type)
		if p == nil {
			return nil, model.NewColumnError(table.FullName(), col.Name,
				fmt.Errorf("%w: %q", model.ErrUnsupportedDataType, col.Type))
		}

		value, err := p.GetValue(ctx, col, row, gender)
		if err != nil {
			return nil, model.NewColumnError(table.FullName(), col.Name, err)
		}
		if kind := model.Kind(value); kind == model.KindUnsupported {
			return nil, model.NewColumnError(table.FullName(), col.Name,
				fmt.Errorf("%w: unsupported value type %T", model.ErrProviderExecution, value))
		}

		masked[col.Name] = value
		note(i, model.OpReplaced)
	}

	for i, op := range ops {
		m.recorder.Record(table.FullName(), table.Columns[i].Name, op)
	}

	return masked, nil
}

// genderHint is derived once per row, and only when a gendered column is configured
func (m *Masker) genderHint(row model.Row, table model.TableConfig) provider.Gender {
	needed := false
	for _, col := range table.Columns {
		if col.NeedsProvider() && col.Type.IsGendered() {
			needed = true
			break
		}
	}
	if !needed {
		return provider.GenderUnknown
	}

	for _, name := range table.GenderColumns() {
		if g := provider.ParseGender(row[name]); g != provider.GenderUnknown {
			return g
		}
	}
	return m.genderFunc()
}

// MaskAll lazily masks every row of rows. Iteration stops after the first
// read or masking error, which is yielded with a nil row.
func (m *Masker) MaskAll(ctx context.Context, rows iter.Seq2[model.Row, error], table model.TableConfig) iter.Seq2[model.Row, error] {
	return func(yield func(model.Row, error) bool) {
		for row, err := range rows {
			if err != nil {
				yield(nil, err)
				return
			}

			masked, err := m.Mask(ctx, row, table)
			if err != nil {
				yield(nil, err)
				return
			}

			if !yield(masked, nil) {
				return
			}
		}
	}
}
