// pkg/model/datasource.go
package model

import (
	"fmt"
	"strings"
	"time"
)

// DataSourceType identifies the concrete store behind a data source
type DataSourceType string

const (
	DataSourceInMemoryFake DataSourceType = "InMemoryFake"
	DataSourceSqlServer    DataSourceType = "SqlServer"
	DataSourcePostgres     DataSourceType = "Postgres"
	DataSourceMySql        DataSourceType = "MySql"
	DataSourceOracle       DataSourceType = "Oracle"
	DataSourceSnowflake    DataSourceType = "Snowflake"
)

// IsRelational reports whether the source is backed by a SQL database
func (t DataSourceType) IsRelational() bool {
	switch t {
	case DataSourceSqlServer, DataSourcePostgres, DataSourceMySql, DataSourceOracle, DataSourceSnowflake:
		return true
	default:
		return false
	}
}

// ParseDataSourceType matches a configured kind case-insensitively
func ParseDataSourceType(s string) (DataSourceType, error) {
	for _, t := range []DataSourceType{
		DataSourceInMemoryFake,
		DataSourceSqlServer,
		DataSourcePostgres,
		DataSourceMySql,
		DataSourceOracle,
		DataSourceSnowflake,
	} {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown data source type %q", ErrConfiguration, s)
}

// ConnectionConfig holds connection parameters for relational sources
type ConnectionConfig struct {
	// ConnectionString is used verbatim when set
	ConnectionString string `mapstructure:"connectionString" yaml:"connectionString,omitempty"`

	Host     string `mapstructure:"host" yaml:"host,omitempty"`
	Port     int    `mapstructure:"port" yaml:"port,omitempty"`
	User     string `mapstructure:"user" yaml:"user,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	Database string `mapstructure:"database" yaml:"database,omitempty"`
	SSLMode  string `mapstructure:"sslMode" yaml:"sslMode,omitempty"`

	// Snowflake only
	Account   string `mapstructure:"account" yaml:"account,omitempty"`
	Warehouse string `mapstructure:"warehouse" yaml:"warehouse,omitempty"`
	Role      string `mapstructure:"role" yaml:"role,omitempty"`

	// Authenticator is one of snowflake, oauth, externalbrowser, jwt, okta
	Authenticator string `mapstructure:"authenticator" yaml:"authenticator,omitempty"`

	// Connection pool settings
	MaxOpenConns    int           `mapstructure:"maxOpenConns" yaml:"maxOpenConns,omitempty"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns" yaml:"maxIdleConns,omitempty"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime" yaml:"connMaxLifetime,omitempty"`
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime" yaml:"connMaxIdleTime,omitempty"`

	// QueryTimeout bounds count and lookup queries; zero disables it
	QueryTimeout time.Duration `mapstructure:"queryTimeout" yaml:"queryTimeout,omitempty"`
}

// DataSourceConfig selects and parameterizes the data source
type DataSourceConfig struct {
	Type       DataSourceType   `mapstructure:"type" yaml:"type"`
	Connection ConnectionConfig `mapstructure:"connection" yaml:"connection,omitempty"`

	// UpdateBatchSize caps rows per transaction; zero or less writes everything in one batch
	UpdateBatchSize int `mapstructure:"updateBatchSize" yaml:"updateBatchSize"`

	// DryRun executes every update and then rolls the batch back
	DryRun bool `mapstructure:"dryRun" yaml:"dryRun"`

	// FakeRowCount is the number of rows fabricated per table by the in-memory source
	FakeRowCount int `mapstructure:"fakeRowCount" yaml:"fakeRowCount,omitempty"`
}

// DataGenerationConfig parameterizes synthetic value generation
type DataGenerationConfig struct {
	Locale string `mapstructure:"locale" yaml:"locale"`

	// Seed makes generation reproducible; zero picks a random seed
	Seed uint64 `mapstructure:"seed" yaml:"seed,omitempty"`
}

// DefaultDataGenerationConfig returns the generation settings used when none are configured
func DefaultDataGenerationConfig() DataGenerationConfig {
	return DataGenerationConfig{Locale: "en"}
}
