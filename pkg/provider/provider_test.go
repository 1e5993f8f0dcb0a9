package provider

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/data-masker/pkg/model"
)

func newFake(t *testing.T) *FakeProvider {
	t.Helper()
	p, err := NewFakeProvider(model.DataGenerationConfig{Locale: "en", Seed: 42})
	require.NoError(t, err)
	return p
}

func TestParseGender(t *testing.T) {
	tests := []struct {
		in   any
		want Gender
	}{
		{"M", GenderMale},
		{" male ", GenderMale},
		{"f", GenderFemale},
		{[]byte("Female"), GenderFemale},
		{"x", GenderUnknown},
		{nil, GenderUnknown},
		{1, GenderUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseGender(tt.in), "input %v", tt.in)
	}
}

func TestNewFakeProvider_InvalidLocale(t *testing.T) {
	_, err := NewFakeProvider(model.DataGenerationConfig{Locale: "not a locale!"})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestNewFakeProvider_UnsupportedLocale(t *testing.T) {
	for _, locale := range []string{"de", "fr-FR", "ja"} {
		_, err := NewFakeProvider(model.DataGenerationConfig{Locale: locale})
		require.Error(t, err, locale)
		assert.ErrorIs(t, err, model.ErrConfiguration, locale)
		assert.Contains(t, err.Error(), "unsupported locale")
	}

	for _, locale := range []string{"en", "en-GB", "en-US"} {
		p, err := NewFakeProvider(model.DataGenerationConfig{Locale: locale})
		require.NoError(t, err, locale)
		assert.Equal(t, locale, p.Locale().String())
	}
}

func TestFakeProvider_SeedMakesEveryTypeReproducible(t *testing.T) {
	ctx := context.Background()
	a, err := NewFakeProvider(model.DataGenerationConfig{Locale: "en", Seed: 42})
	require.NoError(t, err)
	b, err := NewFakeProvider(model.DataGenerationConfig{Locale: "en", Seed: 42})
	require.NoError(t, err)

	columns := []model.ColumnConfig{
		{Name: "first", Type: model.DataTypeFirstName},
		{Name: "full", Type: model.DataTypeFullName},
		{Name: "title", Type: model.DataTypeTitle},
		{Name: "last", Type: model.DataTypeLastName},
	}

	// interleaved so the two providers share the package-level name source
	for i := 0; i < 5; i++ {
		gender := GenderMale
		if i%2 == 1 {
			gender = GenderFemale
		}
		for _, col := range columns {
			va, err := a.GetValue(ctx, col, nil, gender)
			require.NoError(t, err)
			vb, err := b.GetValue(ctx, col, nil, gender)
			require.NoError(t, err)
			assert.Equal(t, va, vb, "%s, iteration %d", col.Name, i)
		}
	}
}

func TestNewFakeProvider_DefaultLocale(t *testing.T) {
	p, err := NewFakeProvider(model.DataGenerationConfig{})
	require.NoError(t, err)
	assert.Equal(t, "en", p.Locale().String())
}

func TestFakeProvider_CanProvide(t *testing.T) {
	p := newFake(t)
	assert.True(t, p.CanProvide(model.DataTypeFirstName))
	assert.True(t, p.CanProvide(model.DataTypeStringFormat))
	assert.False(t, p.CanProvide(model.DataTypeSql))
	assert.False(t, p.CanProvide("Hologram"))
}

func TestFakeProvider_GetValue_AllSyntheticTypes(t *testing.T) {
	p := newFake(t)
	types := []model.DataType{
		model.DataTypeFirstName, model.DataTypeLastName, model.DataTypeFullName, model.DataTypeTitle,
		model.DataTypeEmail, model.DataTypeUsername, model.DataTypePhoneNumber, model.DataTypeFullAddress,
		model.DataTypeStreetAddress, model.DataTypeCity, model.DataTypeState, model.DataTypePostCode,
		model.DataTypeCountry, model.DataTypeCompany, model.DataTypeJobTitle, model.DataTypeSsn,
		model.DataTypeCreditCard, model.DataTypeLorem, model.DataTypeRant, model.DataTypeUUID,
		model.DataTypeIPAddress, model.DataTypeURL,
	}
	row := model.Row{"id": 1, "value": "Real"}

	for _, dt := range types {
		t.Run(string(dt), func(t *testing.T) {
			v, err := p.GetValue(context.Background(), model.ColumnConfig{Name: "value", Type: dt}, row, GenderFemale)
			require.NoError(t, err)
			s, ok := v.(string)
			require.True(t, ok, "expected string, got %T", v)
			assert.NotEmpty(t, s)
		})
	}
}

func TestFakeProvider_DateOfBirth(t *testing.T) {
	p := newFake(t)
	col := model.ColumnConfig{Name: "dob", Type: model.DataTypeDateOfBirth, Min: "1990-01-01", Max: "1990-12-31"}

	for i := 0; i < 20; i++ {
		v, err := p.GetValue(context.Background(), col, model.Row{}, GenderUnknown)
		require.NoError(t, err)
		d, ok := v.(time.Time)
		require.True(t, ok)
		assert.Equal(t, 1990, d.Year())
	}

	_, err := p.GetValue(context.Background(),
		model.ColumnConfig{Name: "dob", Type: model.DataTypeDateOfBirth, Min: "2000-01-01", Max: "1990-01-01"},
		model.Row{}, GenderUnknown)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestFakeProvider_StringFormat(t *testing.T) {
	p := newFake(t)
	col := model.ColumnConfig{Name: "code", Type: model.DataTypeStringFormat, StringFormat: "AB-###-??"}

	v, err := p.GetValue(context.Background(), col, model.Row{}, GenderUnknown)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^AB-[0-9]{3}-[A-Za-z]{2}$`), v)

	_, err = p.GetValue(context.Background(), model.ColumnConfig{Name: "code", Type: model.DataTypeStringFormat}, model.Row{}, GenderUnknown)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlserver"), mock
}

func TestSqlProvider_CanProvide(t *testing.T) {
	db, _ := newMockDB(t)
	p := NewSqlProvider(db)
	assert.True(t, p.CanProvide(model.DataTypeSql))
	assert.False(t, p.CanProvide(model.DataTypeFirstName))
}

func TestSqlProvider_BindsRowFieldsAndReturnsScalar(t *testing.T) {
	db, mock := newMockDB(t)
	p := NewSqlProvider(db)

	mock.ExpectQuery("SELECT masked FROM lookup WHERE id = @p1").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"masked"}).AddRow("XXX-XX-1234"))

	col := model.ColumnConfig{
		Name:     "ssn",
		Type:     model.DataTypeSql,
		SqlValue: &model.SqlValue{Query: "SELECT masked FROM lookup WHERE id = :id", ValueHandling: model.KeepValue},
	}
	v, err := p.GetValue(context.Background(), col, model.Row{"id": 7, "ssn": "123-45-6789"}, GenderUnknown)

	require.NoError(t, err)
	assert.Equal(t, "XXX-XX-1234", v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlProvider_KeepValueOnNull(t *testing.T) {
	db, mock := newMockDB(t)
	p := NewSqlProvider(db)

	mock.ExpectQuery("SELECT NULL").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(nil))

	col := model.ColumnConfig{
		Name:     "ssn",
		Type:     model.DataTypeSql,
		SqlValue: &model.SqlValue{Query: "SELECT NULL", ValueHandling: model.KeepValue},
	}
	v, err := p.GetValue(context.Background(), col, model.Row{"id": 1, "ssn": "123-45-6789"}, GenderUnknown)

	require.NoError(t, err)
	assert.Equal(t, "123-45-6789", v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlProvider_NoRows(t *testing.T) {
	tests := []struct {
		name     string
		handling model.NotFoundValueHandling
		want     any
	}{
		{name: "keep value", handling: model.KeepValue, want: "orig"},
		{name: "null", handling: model.NullValue, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			p := NewSqlProvider(db)

			mock.ExpectQuery("SELECT v FROM lookup").
				WillReturnRows(sqlmock.NewRows([]string{"v"}))

			col := model.ColumnConfig{
				Name:     "c",
				Type:     model.DataTypeSql,
				SqlValue: &model.SqlValue{Query: "SELECT v FROM lookup", ValueHandling: tt.handling},
			}
			v, err := p.GetValue(context.Background(), col, model.Row{"c": "orig"}, GenderUnknown)

			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestSqlProvider_QueryFailurePropagates(t *testing.T) {
	db, mock := newMockDB(t)
	p := NewSqlProvider(db)

	reset := errors.New("connection reset")
	mock.ExpectQuery("SELECT broken").WillReturnError(reset)

	col := model.ColumnConfig{
		Name:     "c",
		Type:     model.DataTypeSql,
		SqlValue: &model.SqlValue{Query: "SELECT broken", ValueHandling: model.KeepValue},
	}
	_, err := p.GetValue(context.Background(), col, model.Row{"c": "orig"}, GenderUnknown)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrProviderExecution)
	assert.ErrorIs(t, err, reset)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestSqlProvider_MissingQuery(t *testing.T) {
	db, _ := newMockDB(t)
	p := NewSqlProvider(db)

	_, err := p.GetValue(context.Background(), model.ColumnConfig{Name: "c", Type: model.DataTypeSql}, model.Row{}, GenderUnknown)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
