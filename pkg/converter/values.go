// pkg/converter/values.go
package converter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	mssql "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/David-Botos/data-masker/pkg/model"
)

// ConvertValue converts a scanned value for a column of the given database type
func (c *ValueConverter) ConvertValue(value any, dbType string, colName string) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch classify(dbType) {
	case classText:
		return c.convertToText(value), nil

	case classDecimal:
		return c.convertToDecimal(value, colName)

	case classInteger:
		return c.convertToInteger(value, colName)

	case classFloat:
		return c.convertToFloat(value, colName)

	case classUUID:
		return c.convertToUUID(value, dbType, colName)

	case classBinary:
		return value, nil

	default:
		if model.Kind(value) != model.KindUnsupported {
			return value, nil
		}
		c.logger.Debug("Falling back to text for unsupported value",
			zap.String("column", colName),
			zap.String("dbType", dbType),
			zap.String("goType", fmt.Sprintf("%T", value)))
		return c.convertToText(value), nil
	}
}

// convertToText converts a value to text/string
func (c *ValueConverter) convertToText(value any) any {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		if c.config.BytesAsText {
			return string(v)
		}
		return v
	case time.Time:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		if model.Kind(v) != model.KindUnsupported {
			return v
		}
		// Try JSON marshaling for complex types
		jsonBytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(jsonBytes)
	}
}

// convertToDecimal keeps exact decimals as text unless precision may be dropped
func (c *ValueConverter) convertToDecimal(value any, colName string) (any, error) {
	var text string
	switch v := value.(type) {
	case []byte:
		text = string(v)
	case string:
		text = v
	default:
		return value, nil
	}

	if c.config.PreserveNumericPrecision {
		return text, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: column %s: cannot convert %q to numeric", model.ErrPersistence, colName, text)
	}
	return f, nil
}

// convertToInteger parses integers delivered as text
func (c *ValueConverter) convertToInteger(value any, colName string) (any, error) {
	var text string
	switch v := value.(type) {
	case []byte:
		text = string(v)
	case string:
		text = v
	default:
		return value, nil
	}

	text = strings.TrimSpace(text)
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, nil
	}
	if u, err := strconv.ParseUint(text, 10, 64); err == nil {
		return u, nil
	}
	return nil, fmt.Errorf("%w: column %s: cannot convert %q to integer", model.ErrPersistence, colName, text)
}

// convertToFloat parses floating point values delivered as text
func (c *ValueConverter) convertToFloat(value any, colName string) (any, error) {
	var text string
	switch v := value.(type) {
	case []byte:
		text = string(v)
	case string:
		text = v
	default:
		return value, nil
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: column %s: cannot convert %q to float", model.ErrPersistence, colName, text)
	}
	return f, nil
}

// convertToUUID renders 16-byte identifiers in their canonical text form.
// SQL Server stores the first three groups little-endian.
func (c *ValueConverter) convertToUUID(value any, dbType string, colName string) (any, error) {
	b, ok := value.([]byte)
	if !ok {
		return c.convertToText(value), nil
	}
	if len(b) != 16 {
		return string(b), nil
	}

	if getBaseType(dbType) == "UNIQUEIDENTIFIER" {
		var id mssql.UniqueIdentifier
		if err := id.Scan(b); err != nil {
			return nil, fmt.Errorf("%w: column %s: %w", model.ErrPersistence, colName, err)
		}
		return id.String(), nil
	}

	id, err := uuid.FromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: column %s: %w", model.ErrPersistence, colName, err)
	}
	return id.String(), nil
}
