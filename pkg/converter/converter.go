// pkg/converter/converter.go
package converter

import (
	"go.uber.org/zap"

	"github.com/David-Botos/data-masker/pkg/model"
)

// ValueConverter normalizes scanned driver values into the row value kinds
// the masker understands, guided by each column's database type name
type ValueConverter struct {
	logger *zap.Logger
	// Configuration options
	config Config
}

// Config provides configuration options for value conversion
type Config struct {
	// Decode text columns that drivers deliver as raw bytes
	BytesAsText bool
	// Keep DECIMAL/NUMERIC values as strings so precision survives a round trip
	PreserveNumericPrecision bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BytesAsText:              true,
		PreserveNumericPrecision: true,
	}
}

// NewValueConverter creates a new ValueConverter with default configuration
func NewValueConverter(logger *zap.Logger) *ValueConverter {
	return NewValueConverterWithConfig(logger, DefaultConfig())
}

// NewValueConverterWithConfig creates a ValueConverter with custom configuration
func NewValueConverterWithConfig(logger *zap.Logger, config Config) *ValueConverter {
	return &ValueConverter{
		logger: logger,
		config: config,
	}
}

// ConvertRow converts every value of row in place. columnTypes maps column
// names to database type names; columns without a type are left untouched.
func (c *ValueConverter) ConvertRow(row model.Row, columnTypes map[string]string) error {
	for name, value := range row {
		dbType, ok := columnTypes[name]
		if !ok || dbType == "" {
			continue
		}
		converted, err := c.ConvertValue(value, dbType, name)
		if err != nil {
			return err
		}
		row[name] = converted
	}
	return nil
}
