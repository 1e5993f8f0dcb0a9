package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/data-masker/pkg/connector"
	"github.com/David-Botos/data-masker/pkg/model"
)

const usersUpdate = "UPDATE [dbo].[Users] SET [name] = @p1, [ssn] = @p2 WHERE [id] = @p3"

func usersTable() model.TableConfig {
	return model.TableConfig{
		Schema:           "dbo",
		Name:             "Users",
		PrimaryKeyColumn: "id",
		Columns: []model.ColumnConfig{
			{Name: "name", Type: model.DataTypeFirstName},
			{Name: "ssn", Type: model.DataTypeSql, SqlValue: &model.SqlValue{Query: "SELECT NULL", ValueHandling: model.KeepValue}},
		},
	}
}

func newMockSource(t *testing.T, batchSize int, dryRun bool) (*SqlDataSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := model.DataSourceConfig{Type: model.DataSourceSqlServer, UpdateBatchSize: batchSize, DryRun: dryRun}
	return NewSqlDataSource(sqlx.NewDb(db, "sqlserver"), connector.SqlServer, cfg, zap.NewNop()), mock
}

func maskedUsers(n int) []model.Row {
	rows := make([]model.Row, n)
	for i := range rows {
		rows[i] = model.Row{"id": i + 1, "name": "masked", "ssn": "000-00-0000"}
	}
	return rows
}

func expectBatch(mock sqlmock.Sqlmock, rows []model.Row) *sqlmock.ExpectedPrepare {
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(usersUpdate)
	for _, row := range rows {
		prep.ExpectExec().
			WithArgs(row["name"], row["ssn"], row["id"]).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	return prep
}

func TestSql_UpdateRows_CommitsEachBatch(t *testing.T) {
	src, mock := newMockSource(t, 2, false)
	rows := maskedUsers(5)

	expectBatch(mock, rows[0:2])
	mock.ExpectCommit()
	expectBatch(mock, rows[2:4])
	mock.ExpectCommit()
	expectBatch(mock, rows[4:5])
	mock.ExpectCommit()

	var progress []int
	err := src.UpdateRows(context.Background(), fromSlice(rows), 5, usersTable(), func(n int) {
		progress = append(progress, n)
	})

	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 5}, progress)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSql_UpdateRows_DryRunRollsBack(t *testing.T) {
	src, mock := newMockSource(t, 0, true)
	rows := maskedUsers(3)

	expectBatch(mock, rows)
	mock.ExpectRollback()

	var progress []int
	err := src.UpdateRows(context.Background(), fromSlice(rows), 3, usersTable(), func(n int) {
		progress = append(progress, n)
	})

	require.NoError(t, err)
	assert.Equal(t, []int{3}, progress)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSql_UpdateRows_FailingBatchRollsBackAndStops(t *testing.T) {
	src, mock := newMockSource(t, 2, false)
	rows := maskedUsers(5)

	expectBatch(mock, rows[0:2])
	mock.ExpectCommit()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(usersUpdate)
	prep.ExpectExec().
		WithArgs(rows[2]["name"], rows[2]["ssn"], rows[2]["id"]).
		WillReturnResult(sqlmock.NewResult(0, 1))
	deadlock := errors.New("deadlock victim")
	prep.ExpectExec().
		WithArgs(rows[3]["name"], rows[3]["ssn"], rows[3]["id"]).
		WillReturnError(deadlock)
	mock.ExpectRollback()

	var progress []int
	err := src.UpdateRows(context.Background(), fromSlice(rows), 5, usersTable(), func(n int) {
		progress = append(progress, n)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPersistence)
	assert.ErrorIs(t, err, deadlock)
	assert.Contains(t, err.Error(), "batch 2")
	assert.Contains(t, err.Error(), "deadlock victim")
	assert.Equal(t, []int{2}, progress)
	// batch 3 was never started
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSql_UpdateRows_MaskingErrorRollsBackNothingWritten(t *testing.T) {
	src, mock := newMockSource(t, 2, false)
	maskErr := model.NewColumnError("dbo.Users", "ssn", model.ErrProviderExecution)

	rows := func(yield func(model.Row, error) bool) {
		yield(nil, maskErr)
	}

	err := src.UpdateRows(context.Background(), rows, 5, usersTable(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrProviderExecution)
	assert.Contains(t, err.Error(), "batch 1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSql_UpdateRow_BindsValues(t *testing.T) {
	src, mock := newMockSource(t, 0, false)
	hostile := "'; DROP TABLE Users;--"

	mock.ExpectExec(usersUpdate).
		WithArgs(hostile, "000-00-0000", 9).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := src.UpdateRow(context.Background(), model.Row{"id": 9, "name": hostile, "ssn": "000-00-0000"}, usersTable())

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSql_UpdateRow_DryRun(t *testing.T) {
	src, mock := newMockSource(t, 0, true)

	mock.ExpectBegin()
	mock.ExpectExec(usersUpdate).
		WithArgs("masked", "000-00-0000", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := src.UpdateRow(context.Background(), maskedUsers(1)[0], usersTable())

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSql_GetCount(t *testing.T) {
	src, mock := newMockSource(t, 0, false)

	mock.ExpectQuery("SELECT COUNT(*) FROM [dbo].[Users]").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := src.GetCount(context.Background(), usersTable())

	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestSql_GetData_SelectsReferencedColumns(t *testing.T) {
	src, mock := newMockSource(t, 0, false)
	table := usersTable()
	table.Columns[0].UseGenderColumn = "sex"
	table.Columns[1].SqlValue = &model.SqlValue{Query: "SELECT masked FROM lookup WHERE customer = :CustomerId AND kind = 'x'::text"}

	mock.ExpectQuery("SELECT [id], [name], [ssn], [sex], [CustomerId] FROM [dbo].[Users]").
		WillReturnRows(mock.NewRowsWithColumnDefinition(
			mock.NewColumn("id").OfType("INT", int64(0)),
			mock.NewColumn("name").OfType("NVARCHAR", ""),
			mock.NewColumn("ssn").OfType("VARCHAR", ""),
			mock.NewColumn("sex").OfType("CHAR", ""),
			mock.NewColumn("CustomerId").OfType("INT", int64(0)),
		).
			AddRow(int64(1), []byte("Ann"), []byte("111-11-1111"), []byte("F"), int64(10)).
			AddRow(int64(2), []byte("Bob"), nil, []byte("M"), int64(11)).
			AddRow(int64(3), []byte("Cy"), []byte("333-33-3333"), []byte("M"), int64(12))).
		RowsWillBeClosed()

	var got []model.Row
	for row, err := range src.GetData(context.Background(), table) {
		require.NoError(t, err)
		got = append(got, row)
		if len(got) == 2 {
			break
		}
	}

	require.Len(t, got, 2)
	// text delivered as bytes is decoded
	assert.Equal(t, "Ann", got[0]["name"])
	assert.Equal(t, "M", got[1]["sex"])
	assert.Equal(t, int64(2), got[1]["id"])
	assert.Nil(t, got[1]["ssn"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSql_GetData_QueryError(t *testing.T) {
	src, mock := newMockSource(t, 0, false)

	mock.ExpectQuery("SELECT [id], [name], [ssn] FROM [dbo].[Users]").
		WillReturnError(errors.New("invalid object name"))

	var gotErr error
	for _, err := range src.GetData(context.Background(), usersTable()) {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, model.ErrPersistence)
}

func TestSelectColumns(t *testing.T) {
	table := usersTable()
	table.Columns = append(table.Columns,
		model.ColumnConfig{Name: "first", Type: model.DataTypeFirstName, UseGenderColumn: "sex"},
		model.ColumnConfig{Name: "code", Type: model.DataTypeSql, SqlValue: &model.SqlValue{Query: "SELECT c FROM t WHERE a = :id AND b = :sex"}},
	)

	assert.Equal(t, []string{"id", "name", "ssn", "first", "code", "sex"}, SelectColumns(table))
}

func TestSelectColumns_IgnoresQuotedText(t *testing.T) {
	table := usersTable()
	table.Columns = append(table.Columns, model.ColumnConfig{
		Name: "code",
		Type: model.DataTypeSql,
		SqlValue: &model.SqlValue{
			Query: `SELECT c FROM t WHERE k = 'a:b' AND "x:y" = :id AND ts > '10::30' AND v = ':it''s'`,
		},
	})

	assert.Equal(t, []string{"id", "name", "ssn", "code"}, SelectColumns(table))
}

func TestSql_UpdateRows_RejectsSingleConnectionPool(t *testing.T) {
	src, mock := newMockSource(t, 2, false)
	src.db.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := src.UpdateRows(ctx, src.GetData(ctx, usersTable()), 5, usersTable(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConfiguration)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSql_UpdateStatementIsCached(t *testing.T) {
	src, _ := newMockSource(t, 0, false)

	first, ok := src.updateSQL(usersTable())
	require.True(t, ok)
	second, _ := src.updateSQL(usersTable())

	assert.Equal(t, usersUpdate, first)
	assert.Equal(t, first, second)

	allIgnored := usersTable()
	allIgnored.Name = "Audit"
	for i := range allIgnored.Columns {
		allIgnored.Columns[i].Ignore = true
	}
	_, ok = src.updateSQL(allIgnored)
	assert.False(t, ok)
}
