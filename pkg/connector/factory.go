// pkg/connector/factory.go
package connector

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
	go_ora "github.com/sijms/go-ora/v2"
	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/David-Botos/data-masker/pkg/model"
)

const defaultHost = "localhost"

var defaultPorts = map[model.DataSourceType]int{
	model.DataSourceSqlServer: 1433,
	model.DataSourcePostgres:  5432,
	model.DataSourceMySql:     3306,
	model.DataSourceOracle:    1521,
}

// Open connects to a relational store, applies pool settings and verifies
// the connection before returning it.
func Open(ctx context.Context, t model.DataSourceType, conn model.ConnectionConfig, logger *zap.Logger) (*sqlx.DB, error) {
	dialect, err := DialectFor(t)
	if err != nil {
		return nil, err
	}
	logger = logger.Named(dialect.Name + "-connector")

	dsn, err := DSN(t, conn)
	if err != nil {
		return nil, err
	}

	// Log connection attempt (without credentials)
	logger.Info("Connecting to database",
		zap.String("dialect", dialect.Name),
		zap.String("host", conn.Host),
		zap.String("account", conn.Account),
		zap.String("database", conn.Database),
		zap.String("user", conn.User),
		zap.Bool("connection_string", conn.ConnectionString != ""))

	db, err := sqlx.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s connection: %w", dialect.Name, err)
	}

	ApplyConnectionSettings(db, conn)

	if err := PingWithTimeout(ctx, db, defaultPingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect.Name, err)
	}

	LogConnectionStats(logger, conn.Database, db)
	return db, nil
}

// DSN returns the driver connection string. An explicit connection string
// always wins over the discrete fields.
func DSN(t model.DataSourceType, conn model.ConnectionConfig) (string, error) {
	if conn.ConnectionString != "" {
		return conn.ConnectionString, nil
	}

	host := conn.Host
	if host == "" {
		host = defaultHost
	}
	port := conn.Port
	if port == 0 {
		port = defaultPorts[t]
	}

	switch t {
	case model.DataSourceSqlServer:
		return sqlServerDSN(host, port, conn), nil
	case model.DataSourcePostgres:
		return postgresDSN(host, port, conn), nil
	case model.DataSourceMySql:
		return mysqlDSN(host, port, conn), nil
	case model.DataSourceOracle:
		return oracleDSN(host, port, conn), nil
	case model.DataSourceSnowflake:
		return snowflakeDSN(conn)
	default:
		return "", fmt.Errorf("%w: %q is not a relational data source", model.ErrConfiguration, t)
	}
}

func sqlServerDSN(host string, port int, conn model.ConnectionConfig) string {
	query := url.Values{}
	if conn.Database != "" {
		query.Set("database", conn.Database)
	}
	if conn.SSLMode != "" {
		query.Set("encrypt", conn.SSLMode)
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(conn.User, conn.Password),
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		RawQuery: query.Encode(),
	}
	return u.String()
}

func postgresDSN(host string, port int, conn model.ConnectionConfig) string {
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteKeywordValue(host),
		port,
		quoteKeywordValue(conn.User),
		quoteKeywordValue(conn.Password),
		quoteKeywordValue(conn.Database),
		quoteKeywordValue(sslMode),
	)

	if conn.QueryTimeout > 0 {
		dsn += fmt.Sprintf(" statement_timeout=%d", conn.QueryTimeout.Milliseconds())
	}
	return dsn
}

// quoteKeywordValue quotes a libpq keyword/value entry when it needs it
func quoteKeywordValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func mysqlDSN(host string, port int, conn model.ConnectionConfig) string {
	cfg := mysql.NewConfig()
	cfg.User = conn.User
	cfg.Passwd = conn.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.DBName = conn.Database
	cfg.ParseTime = true
	if conn.QueryTimeout > 0 {
		cfg.ReadTimeout = conn.QueryTimeout
		cfg.WriteTimeout = conn.QueryTimeout
	}
	return cfg.FormatDSN()
}

func oracleDSN(host string, port int, conn model.ConnectionConfig) string {
	var options map[string]string
	if conn.SSLMode != "" && conn.SSLMode != "disable" {
		options = map[string]string{"SSL": "true"}
	}
	return go_ora.BuildUrl(host, port, conn.Database, conn.User, conn.Password, options)
}

func snowflakeDSN(conn model.ConnectionConfig) (string, error) {
	if conn.Account == "" {
		return "", fmt.Errorf("%w: snowflake account is required", model.ErrConfiguration)
	}

	sfConfig := &sf.Config{
		Account:       conn.Account,
		User:          conn.User,
		Password:      conn.Password,
		Database:      conn.Database,
		Warehouse:     conn.Warehouse,
		Role:          conn.Role,
		Authenticator: snowflakeAuthenticator(conn.Authenticator),
	}

	// Set query timeout if configured
	if conn.QueryTimeout > 0 {
		timeout := strconv.Itoa(int(conn.QueryTimeout.Seconds()))
		sfConfig.Params = map[string]*string{"STATEMENT_TIMEOUT_IN_SECONDS": &timeout}
	}

	dsn, err := sf.DSN(sfConfig)
	if err != nil {
		return "", fmt.Errorf("%w: failed to build Snowflake DSN: %w", model.ErrConfiguration, err)
	}
	return dsn, nil
}

func snowflakeAuthenticator(name string) sf.AuthType {
	switch strings.ToLower(name) {
	case "oauth":
		return sf.AuthTypeOAuth
	case "externalbrowser":
		return sf.AuthTypeExternalBrowser
	case "username_password_mfa":
		return sf.AuthTypeUsernamePasswordMFA
	case "jwt":
		return sf.AuthTypeJwt
	case "token":
		return sf.AuthTypeTokenAccessor
	case "okta":
		return sf.AuthTypeOkta
	default:
		return sf.AuthTypeSnowflake
	}
}
