// pkg/config/database.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"

	"github.com/David-Botos/data-masker/pkg/model"
)

const redactedValue = "****"

// secretParam matches password entries in keyword connection strings
var secretParam = regexp.MustCompile(`(?i)\b(password|pwd)=('[^']*'|[^;\s]*)`)

// expandConnection resolves ${VAR} references from the environment
func expandConnection(conn model.ConnectionConfig) model.ConnectionConfig {
	conn.ConnectionString = os.ExpandEnv(conn.ConnectionString)
	conn.Host = os.ExpandEnv(conn.Host)
	conn.User = os.ExpandEnv(conn.User)
	conn.Password = os.ExpandEnv(conn.Password)
	conn.Database = os.ExpandEnv(conn.Database)
	conn.Account = os.ExpandEnv(conn.Account)
	conn.Warehouse = os.ExpandEnv(conn.Warehouse)
	conn.Role = os.ExpandEnv(conn.Role)
	return conn
}

// validateConnection checks that a relational source can be reached at all
func validateConnection(t model.DataSourceType, conn model.ConnectionConfig) error {
	if conn.ConnectionString != "" {
		return nil
	}

	if t == model.DataSourceSnowflake {
		if conn.Account == "" {
			return fmt.Errorf("%w: dataSource.connection.account is required for Snowflake", model.ErrConfiguration)
		}
	} else if conn.Host == "" {
		return fmt.Errorf("%w: dataSource.connection.host or connectionString is required", model.ErrConfiguration)
	}

	if conn.User == "" {
		return fmt.Errorf("%w: dataSource.connection.user is required", model.ErrConfiguration)
	}

	if conn.Port < 0 || conn.Port > 65535 {
		return fmt.Errorf("%w: dataSource.connection.port %d is out of range", model.ErrConfiguration, conn.Port)
	}

	if conn.MaxOpenConns < 0 || conn.MaxIdleConns < 0 {
		return fmt.Errorf("%w: connection pool sizes cannot be negative", model.ErrConfiguration)
	}

	return nil
}

// redactConnection masks the password and any credentials in the connection string
func redactConnection(conn model.ConnectionConfig) model.ConnectionConfig {
	if conn.Password != "" {
		conn.Password = redactedValue
	}
	conn.ConnectionString = redactConnectionString(conn.ConnectionString)
	return conn
}

func redactConnectionString(s string) string {
	if s == "" {
		return s
	}
	if u, err := url.Parse(s); err == nil && u.Scheme != "" && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), redactedValue)
		}
		s = u.String()
	}
	return secretParam.ReplaceAllString(s, "${1}="+redactedValue)
}
