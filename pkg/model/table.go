// pkg/model/table.go
package model

import (
	"fmt"
	"regexp"
)

// DataType selects the masking strategy for a column
type DataType string

// Synthetic data types, produced by a fake data generator
const (
	DataTypeFirstName     DataType = "FirstName"
	DataTypeLastName      DataType = "LastName"
	DataTypeFullName      DataType = "FullName"
	DataTypeTitle         DataType = "Title"
	DataTypeDateOfBirth   DataType = "DateOfBirth"
	DataTypeEmail         DataType = "Email"
	DataTypeUsername      DataType = "Username"
	DataTypePhoneNumber   DataType = "PhoneNumber"
	DataTypeFullAddress   DataType = "FullAddress"
	DataTypeStreetAddress DataType = "StreetAddress"
	DataTypeCity          DataType = "City"
	DataTypeState         DataType = "State"
	DataTypePostCode      DataType = "PostCode"
	DataTypeCountry       DataType = "Country"
	DataTypeCompany       DataType = "Company"
	DataTypeJobTitle      DataType = "JobTitle"
	DataTypeSsn           DataType = "Ssn"
	DataTypeCreditCard    DataType = "CreditCard"
	DataTypeLorem         DataType = "Lorem"
	DataTypeRant          DataType = "Rant"
	DataTypeUUID          DataType = "Uuid"
	DataTypeIPAddress     DataType = "IPAddress"
	DataTypeURL           DataType = "Url"
	DataTypeStringFormat  DataType = "StringFormat"
)

// DataTypeSql derives the value from a lookup query
const DataTypeSql DataType = "Sql"

// IsGendered reports whether the generator for this type consumes a gender hint
func (d DataType) IsGendered() bool {
	switch d {
	case DataTypeFirstName, DataTypeFullName, DataTypeTitle:
		return true
	default:
		return false
	}
}

// NotFoundValueHandling is the policy applied when a lookup query yields no value
type NotFoundValueHandling string

const (
	// KeepValue leaves the column's current value in place
	KeepValue NotFoundValueHandling = "KeepValue"
	// NullValue writes NULL
	NullValue NotFoundValueHandling = "Null"
)

// SqlValue configures a query-derived column. Row fields are referenced as
// ":Column"; a literal colon, including one inside a quoted string, is
// written "::" since named parameters are found before the SQL is parsed.
type SqlValue struct {
	Query         string                `mapstructure:"query" yaml:"query"`
	ValueHandling NotFoundValueHandling `mapstructure:"valueHandling" yaml:"valueHandling"`
}

// ColumnConfig describes how a single column is masked
type ColumnConfig struct {
	Name                    string    `mapstructure:"name" yaml:"name"`
	Type                    DataType  `mapstructure:"type" yaml:"type"`
	StringFormat            string    `mapstructure:"stringFormat" yaml:"stringFormat,omitempty"`
	UseValue                *string   `mapstructure:"useValue" yaml:"useValue,omitempty"`
	Ignore                  bool      `mapstructure:"ignore" yaml:"ignore,omitempty"`
	RetainNullValues        bool      `mapstructure:"retainNullValues" yaml:"retainNullValues,omitempty"`
	RetainEmptyStringValues bool      `mapstructure:"retainEmptyStringValues" yaml:"retainEmptyStringValues,omitempty"`
	UseGenderColumn         string    `mapstructure:"useGenderColumn" yaml:"useGenderColumn,omitempty"`
	Min                     string    `mapstructure:"min" yaml:"min,omitempty"`
	Max                     string    `mapstructure:"max" yaml:"max,omitempty"`
	SqlValue                *SqlValue `mapstructure:"sqlValue" yaml:"sqlValue,omitempty"`
}

// NeedsProvider reports whether a data provider has to be resolved for the column
func (c ColumnConfig) NeedsProvider() bool {
	return !c.Ignore && c.UseValue == nil
}

// TableConfig identifies a table and the columns to mask in it
type TableConfig struct {
	Schema           string         `mapstructure:"schema" yaml:"schema"`
	Name             string         `mapstructure:"name" yaml:"name"`
	PrimaryKeyColumn string         `mapstructure:"primaryKeyColumn" yaml:"primaryKeyColumn"`
	Columns          []ColumnConfig `mapstructure:"columns" yaml:"columns"`
}

// FullName returns the schema-qualified table name
func (t TableConfig) FullName() string {
	if t.Schema == "" {
		return t.Name
	}
	return fmt.Sprintf("%s.%s", t.Schema, t.Name)
}

// GenderColumns returns the distinct sibling columns referenced by UseGenderColumn
func (t TableConfig) GenderColumns() []string {
	var cols []string
	seen := make(map[string]bool)
	for _, col := range t.Columns {
		if col.UseGenderColumn != "" && !seen[col.UseGenderColumn] {
			seen[col.UseGenderColumn] = true
			cols = append(cols, col.UseGenderColumn)
		}
	}
	return cols
}

// Identifiers are bound as named parameters, so they are restricted to plain names
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether name can be used as a column or parameter name
func IsIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// Validate checks the table configuration for structural problems
func (t TableConfig) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: table name is required", ErrConfiguration)
	}
	if t.PrimaryKeyColumn == "" {
		return fmt.Errorf("%w: table %s: primary key column is required", ErrConfiguration, t.FullName())
	}
	if !IsIdentifier(t.PrimaryKeyColumn) {
		return fmt.Errorf("%w: table %s: invalid primary key column %q", ErrConfiguration, t.FullName(), t.PrimaryKeyColumn)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: table %s: no columns configured", ErrConfiguration, t.FullName())
	}

	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		if col.Name == "" {
			return fmt.Errorf("%w: table %s: column name is required", ErrConfiguration, t.FullName())
		}
		if !IsIdentifier(col.Name) {
			return NewColumnError(t.FullName(), col.Name, fmt.Errorf("%w: invalid column name", ErrConfiguration))
		}
		if seen[col.Name] {
			return NewColumnError(t.FullName(), col.Name, fmt.Errorf("%w: duplicate column", ErrConfiguration))
		}
		seen[col.Name] = true

		if col.Name == t.PrimaryKeyColumn {
			return NewColumnError(t.FullName(), col.Name, fmt.Errorf("%w: primary key column cannot be masked", ErrConfiguration))
		}
		if col.UseGenderColumn != "" && !IsIdentifier(col.UseGenderColumn) {
			return NewColumnError(t.FullName(), col.Name, fmt.Errorf("%w: invalid gender column %q", ErrConfiguration, col.UseGenderColumn))
		}
		if col.Type == DataTypeSql && col.NeedsProvider() {
			if col.SqlValue == nil || col.SqlValue.Query == "" {
				return NewColumnError(t.FullName(), col.Name, fmt.Errorf("%w: sql column requires sqlValue.query", ErrConfiguration))
			}
			switch col.SqlValue.ValueHandling {
			case "", KeepValue, NullValue:
			default:
				return NewColumnError(t.FullName(), col.Name,
					fmt.Errorf("%w: unknown valueHandling %q", ErrConfiguration, col.SqlValue.ValueHandling))
			}
		}
	}

	return nil
}
