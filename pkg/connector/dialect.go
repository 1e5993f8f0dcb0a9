// pkg/connector/dialect.go
package connector

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/David-Botos/data-masker/pkg/model"
)

func init() {
	// go-ora registers as "oracle", which sqlx does not know.
	sqlx.BindDriver("oracle", sqlx.NAMED)
	sqlx.BindDriver("snowflake", sqlx.QUESTION)
}

// Dialect carries what differs between relational stores: the registered
// driver and how identifiers are quoted.
type Dialect struct {
	Name       string
	DriverName string
	Quote      func(ident string) string
}

// QualifiedName quotes a table name and its optional schema
func (d Dialect) QualifiedName(schema, table string) string {
	if schema == "" {
		return d.Quote(table)
	}
	return d.Quote(schema) + "." + d.Quote(table)
}

var (
	SqlServer = Dialect{Name: "sqlserver", DriverName: "sqlserver", Quote: quoteBrackets}
	Postgres  = Dialect{Name: "postgres", DriverName: "pgx", Quote: pq.QuoteIdentifier}
	MySql     = Dialect{Name: "mysql", DriverName: "mysql", Quote: quoteBackticks}
	Oracle    = Dialect{Name: "oracle", DriverName: "oracle", Quote: quoteDouble}
	Snowflake = Dialect{Name: "snowflake", DriverName: "snowflake", Quote: quoteDouble}
)

// DialectFor returns the dialect of a relational data source type
func DialectFor(t model.DataSourceType) (Dialect, error) {
	switch t {
	case model.DataSourceSqlServer:
		return SqlServer, nil
	case model.DataSourcePostgres:
		return Postgres, nil
	case model.DataSourceMySql:
		return MySql, nil
	case model.DataSourceOracle:
		return Oracle, nil
	case model.DataSourceSnowflake:
		return Snowflake, nil
	default:
		return Dialect{}, fmt.Errorf("%w: %q is not a relational data source", model.ErrConfiguration, t)
	}
}

func quoteBrackets(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

func quoteBackticks(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func quoteDouble(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
