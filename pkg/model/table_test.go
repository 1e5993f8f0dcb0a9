package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTable() TableConfig {
	return TableConfig{
		Schema:           "dbo",
		Name:             "Users",
		PrimaryKeyColumn: "id",
		Columns: []ColumnConfig{
			{Name: "name", Type: DataTypeFirstName},
			{Name: "ssn", Type: DataTypeSql, SqlValue: &SqlValue{Query: "SELECT NULL", ValueHandling: KeepValue}},
		},
	}
}

func TestTableConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TableConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*TableConfig) {}},
		{name: "missing name", mutate: func(tc *TableConfig) { tc.Name = "" }, wantErr: true},
		{name: "missing primary key", mutate: func(tc *TableConfig) { tc.PrimaryKeyColumn = "" }, wantErr: true},
		{name: "no columns", mutate: func(tc *TableConfig) { tc.Columns = nil }, wantErr: true},
		{
			name:    "duplicate column",
			mutate:  func(tc *TableConfig) { tc.Columns = append(tc.Columns, ColumnConfig{Name: "name", Type: DataTypeLastName}) },
			wantErr: true,
		},
		{
			name:    "column names are case-sensitive",
			mutate:  func(tc *TableConfig) { tc.Columns = append(tc.Columns, ColumnConfig{Name: "Name", Type: DataTypeLastName}) },
			wantErr: false,
		},
		{
			name:    "primary key masked",
			mutate:  func(tc *TableConfig) { tc.Columns[0].Name = "id" },
			wantErr: true,
		},
		{
			name:    "injection in column name",
			mutate:  func(tc *TableConfig) { tc.Columns[0].Name = "name]; DROP TABLE x;--" },
			wantErr: true,
		},
		{
			name:    "sql column without query",
			mutate:  func(tc *TableConfig) { tc.Columns[1].SqlValue = nil },
			wantErr: true,
		},
		{
			name:    "ignored sql column without query",
			mutate:  func(tc *TableConfig) { tc.Columns[1].SqlValue = nil; tc.Columns[1].Ignore = true },
			wantErr: false,
		},
		{
			name:    "unknown value handling",
			mutate:  func(tc *TableConfig) { tc.Columns[1].SqlValue.ValueHandling = "Explode" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := validTable()
			tc.Columns = append([]ColumnConfig(nil), tc.Columns...)
			sv := *tc.Columns[1].SqlValue
			tc.Columns[1].SqlValue = &sv
			tt.mutate(&tc)

			err := tc.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrConfiguration))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTableConfig_FullName(t *testing.T) {
	assert.Equal(t, "dbo.Users", validTable().FullName())
	assert.Equal(t, "Users", TableConfig{Name: "Users"}.FullName())
}

func TestTableConfig_GenderColumns(t *testing.T) {
	tc := TableConfig{Columns: []ColumnConfig{
		{Name: "first", UseGenderColumn: "gender"},
		{Name: "title", UseGenderColumn: "gender"},
		{Name: "last"},
	}}
	assert.Equal(t, []string{"gender"}, tc.GenderColumns())
}

func TestRow_Clone(t *testing.T) {
	r := Row{"id": 1, "name": "Real Name"}
	c := r.Clone()
	c["name"] = "Other"

	assert.Equal(t, "Real Name", r["name"])
	assert.Equal(t, "Other", c["name"])
}

func TestKind(t *testing.T) {
	assert.Equal(t, KindNull, Kind(nil))
	assert.Equal(t, KindString, Kind("x"))
	assert.Equal(t, KindNumber, Kind(int64(1)))
	assert.Equal(t, KindNumber, Kind(1.5))
	assert.Equal(t, KindBool, Kind(true))
	assert.Equal(t, KindDate, Kind(time.Now()))
	assert.Equal(t, KindBytes, Kind([]byte("x")))
	assert.Equal(t, KindUnsupported, Kind(struct{}{}))
}

func TestParseDataSourceType(t *testing.T) {
	got, err := ParseDataSourceType("sqlserver")
	require.NoError(t, err)
	assert.Equal(t, DataSourceSqlServer, got)

	_, err = ParseDataSourceType("mongo")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestBatchError_Unwrap(t *testing.T) {
	err := NewBatchError("dbo.Users", 2, ErrPersistence)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "batch 2")
}
