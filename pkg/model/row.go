// pkg/model/row.go
package model

import (
	"fmt"
	"time"
)

// Row is a single record keyed by column name. Lookups are case-sensitive
// and must match the names declared in the table configuration.
type Row map[string]any

// Clone returns a copy of the row that can be modified independently
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// PrimaryKey returns the row's primary key value for the table
func (r Row) PrimaryKey(table TableConfig) (any, bool) {
	v, ok := r[table.PrimaryKeyColumn]
	return v, ok
}

// String formats the row's identity for log and error messages
func (r Row) String() string {
	return fmt.Sprintf("%v", map[string]any(r))
}

// ValueKind is the closed set of scalar kinds a row value may hold
type ValueKind int

const (
	KindUnsupported ValueKind = iota
	KindNull
	KindString
	KindNumber
	KindBool
	KindDate
	KindBytes
)

// String returns a string representation of the kind
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindBytes:
		return "bytes"
	default:
		return "unsupported"
	}
}

// Kind classifies a value as one of the supported scalar kinds
func Kind(v any) ValueKind {
	switch v.(type) {
	case nil:
		return KindNull
	case string:
		return KindString
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return KindNumber
	case bool:
		return KindBool
	case time.Time:
		return KindDate
	case []byte:
		return KindBytes
	default:
		return KindUnsupported
	}
}

// IsEmptyString reports whether v is an empty string value
func IsEmptyString(v any) bool {
	switch s := v.(type) {
	case string:
		return s == ""
	case []byte:
		return len(s) == 0
	default:
		return false
	}
}
