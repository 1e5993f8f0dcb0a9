// pkg/converter/mapping.go
package converter

import (
	"strings"
)

// columnClass groups database types that scan the same way
type columnClass int

const (
	classOther columnClass = iota
	classText
	classDecimal
	classInteger
	classFloat
	classUUID
	classBinary
)

// Type names as reported by the sqlserver, pgx, mysql, go-ora and snowflake drivers
var typeClasses = map[string]columnClass{
	"CHAR": classText, "NCHAR": classText, "VARCHAR": classText, "NVARCHAR": classText,
	"VARCHAR2": classText, "NVARCHAR2": classText, "TEXT": classText, "NTEXT": classText,
	"TINYTEXT": classText, "MEDIUMTEXT": classText, "LONGTEXT": classText, "BPCHAR": classText,
	"CITEXT": classText, "CLOB": classText, "NCLOB": classText, "ENUM": classText,
	"SET": classText, "XML": classText, "JSON": classText, "JSONB": classText,

	"DECIMAL": classDecimal, "NUMERIC": classDecimal, "MONEY": classDecimal,
	"SMALLMONEY": classDecimal, "NUMBER": classDecimal, "FIXED": classDecimal,

	"TINYINT": classInteger, "SMALLINT": classInteger, "MEDIUMINT": classInteger,
	"INT": classInteger, "INTEGER": classInteger, "BIGINT": classInteger, "YEAR": classInteger,
	"INT2": classInteger, "INT4": classInteger, "INT8": classInteger,

	"FLOAT": classFloat, "DOUBLE": classFloat, "REAL": classFloat,
	"FLOAT4": classFloat, "FLOAT8": classFloat, "BINARY_FLOAT": classFloat, "BINARY_DOUBLE": classFloat,

	"UNIQUEIDENTIFIER": classUUID, "UUID": classUUID,

	"BINARY": classBinary, "VARBINARY": classBinary, "IMAGE": classBinary, "BLOB": classBinary,
	"TINYBLOB": classBinary, "MEDIUMBLOB": classBinary, "LONGBLOB": classBinary,
	"BYTEA": classBinary, "RAW": classBinary, "LONG RAW": classBinary,
}

// getBaseType extracts the base type from a complex type definition
func getBaseType(fullType string) string {
	parts := strings.Split(fullType, "(")
	return strings.ToUpper(strings.TrimSpace(parts[0]))
}

// classify maps a database type name such as "NVARCHAR(50)" or "UNSIGNED BIGINT" to its class
func classify(dbType string) columnClass {
	base := strings.TrimPrefix(getBaseType(dbType), "UNSIGNED ")
	if class, ok := typeClasses[base]; ok {
		return class
	}
	return classOther
}
