// pkg/provider/provider.go

// Package provider contains the pluggable strategies that produce masked values.
package provider

import (
	"context"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/David-Botos/data-masker/pkg/model"
)

// DataProvider produces a replacement value for one column of a row
type DataProvider interface {
	// CanProvide reports whether the provider handles the data type
	CanProvide(dataType model.DataType) bool

	// GetValue returns the masked value for column. The full row is passed so
	// strategies can reference sibling columns; gender keeps generated names
	// consistent across the row.
	GetValue(ctx context.Context, column model.ColumnConfig, row model.Row, gender Gender) (any, error)
}

// Gender is a demographic hint for name generators
type Gender int

const (
	GenderUnknown Gender = iota
	GenderMale
	GenderFemale
)

// String returns a string representation of the gender
func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "male"
	case GenderFemale:
		return "female"
	default:
		return "unknown"
	}
}

// ParseGender reads a gender hint from a column value such as "M", "female" or "f"
func ParseGender(v any) Gender {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case []byte:
		s = string(val)
	default:
		return GenderUnknown
	}

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male", "man":
		return GenderMale
	case "f", "female", "woman":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// RandomGender picks male or female with equal probability
func RandomGender() Gender {
	if gofakeit.Bool() {
		return GenderMale
	}
	return GenderFemale
}
