// pkg/provider/fake.go
package provider

import (
	"context"
	"fmt"
	mathrand "math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/bxcodec/faker/v3"
	"golang.org/x/text/language"

	"github.com/David-Botos/data-masker/pkg/model"
)

// dateLayouts are the accepted formats for Min/Max bounds
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// supportedLanguages are the languages the generators' word lists are written in.
// Regional variants such as en-GB are accepted.
var supportedLanguages = []language.Tag{language.English}

// FakeProvider generates synthetic values. It ignores the column's current value.
// It is not safe for concurrent use.
type FakeProvider struct {
	faker  *gofakeit.Faker
	locale language.Tag
	seeded bool
	now    func() time.Time
}

// NewFakeProvider creates a synthetic value provider for the configured locale
func NewFakeProvider(cfg model.DataGenerationConfig) (*FakeProvider, error) {
	locale := cfg.Locale
	if locale == "" {
		locale = model.DefaultDataGenerationConfig().Locale
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid locale %q: %w", model.ErrConfiguration, locale, err)
	}
	if !SupportsLocale(tag) {
		return nil, fmt.Errorf("%w: unsupported locale %q, supported languages: %s",
			model.ErrConfiguration, locale, supportedLanguageList())
	}

	return &FakeProvider{
		faker:  gofakeit.New(cfg.Seed),
		locale: tag,
		seeded: cfg.Seed != 0,
		now:    time.Now,
	}, nil
}

// SupportsLocale reports whether values can be generated in the tag's language
func SupportsLocale(tag language.Tag) bool {
	base, _ := tag.Base()
	for _, supported := range supportedLanguages {
		if b, _ := supported.Base(); b == base {
			return true
		}
	}
	return false
}

func supportedLanguageList() string {
	names := make([]string, len(supportedLanguages))
	for i, tag := range supportedLanguages {
		names[i] = tag.String()
	}
	return strings.Join(names, ", ")
}

// Locale returns the parsed locale the provider was configured with
func (p *FakeProvider) Locale() language.Tag {
	return p.locale
}

// CanProvide reports whether the data type is a synthetic type
func (p *FakeProvider) CanProvide(dataType model.DataType) bool {
	switch dataType {
	case model.DataTypeFirstName,
		model.DataTypeLastName,
		model.DataTypeFullName,
		model.DataTypeTitle,
		model.DataTypeDateOfBirth,
		model.DataTypeEmail,
		model.DataTypeUsername,
		model.DataTypePhoneNumber,
		model.DataTypeFullAddress,
		model.DataTypeStreetAddress,
		model.DataTypeCity,
		model.DataTypeState,
		model.DataTypePostCode,
		model.DataTypeCountry,
		model.DataTypeCompany,
		model.DataTypeJobTitle,
		model.DataTypeSsn,
		model.DataTypeCreditCard,
		model.DataTypeLorem,
		model.DataTypeRant,
		model.DataTypeUUID,
		model.DataTypeIPAddress,
		model.DataTypeURL,
		model.DataTypeStringFormat:
		return true
	default:
		return false
	}
}

// GetValue generates a value for the column
func (p *FakeProvider) GetValue(_ context.Context, column model.ColumnConfig, _ model.Row, gender Gender) (any, error) {
	f := p.faker

	switch column.Type {
	case model.DataTypeFirstName:
		return p.firstName(gender), nil
	case model.DataTypeLastName:
		return f.LastName(), nil
	case model.DataTypeFullName:
		return p.firstName(gender) + " " + f.LastName(), nil
	case model.DataTypeTitle:
		p.syncNameSource()
		if gender == GenderFemale {
			return faker.TitleFemale(), nil
		}
		return faker.TitleMale(), nil
	case model.DataTypeDateOfBirth:
		return p.dateOfBirth(column)
	case model.DataTypeEmail:
		return f.Email(), nil
	case model.DataTypeUsername:
		return f.Username(), nil
	case model.DataTypePhoneNumber:
		return f.Phone(), nil
	case model.DataTypeFullAddress:
		addr := f.Address()
		return fmt.Sprintf("%s, %s, %s %s", addr.Street, addr.City, addr.State, addr.Zip), nil
	case model.DataTypeStreetAddress:
		return f.Street(), nil
	case model.DataTypeCity:
		return f.City(), nil
	case model.DataTypeState:
		return f.State(), nil
	case model.DataTypePostCode:
		return f.Zip(), nil
	case model.DataTypeCountry:
		return f.Country(), nil
	case model.DataTypeCompany:
		return f.Company(), nil
	case model.DataTypeJobTitle:
		return f.JobTitle(), nil
	case model.DataTypeSsn:
		return f.SSN(), nil
	case model.DataTypeCreditCard:
		return f.CreditCardNumber(nil), nil
	case model.DataTypeLorem:
		return f.LoremIpsumSentence(8), nil
	case model.DataTypeRant:
		return f.Sentence(12), nil
	case model.DataTypeUUID:
		return f.UUID(), nil
	case model.DataTypeIPAddress:
		return f.IPv4Address(), nil
	case model.DataTypeURL:
		return f.URL(), nil
	case model.DataTypeStringFormat:
		if column.StringFormat == "" {
			return nil, fmt.Errorf("%w: column %s: stringFormat is required", model.ErrConfiguration, column.Name)
		}
		return p.replace(column.StringFormat), nil
	default:
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedDataType, column.Type)
	}
}

func (p *FakeProvider) firstName(gender Gender) string {
	switch gender {
	case GenderMale:
		p.syncNameSource()
		return faker.FirstNameMale()
	case GenderFemale:
		p.syncNameSource()
		return faker.FirstNameFemale()
	default:
		return p.faker.FirstName()
	}
}

// syncNameSource reseeds the package-level source of the gendered name lists
// from the provider's own generator, so seeded runs stay reproducible.
func (p *FakeProvider) syncNameSource() {
	if p.seeded {
		faker.SetRandomSource(mathrand.NewSource(p.faker.Int64()))
	}
}

// dateOfBirth returns a date between Min and Max, defaulting to 18-90 years ago
func (p *FakeProvider) dateOfBirth(column model.ColumnConfig) (any, error) {
	now := p.now()
	start := now.AddDate(-90, 0, 0)
	end := now.AddDate(-18, 0, 0)

	if column.Min != "" {
		t, err := parseDate(column.Min)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: min: %w", model.ErrConfiguration, column.Name, err)
		}
		start = t
	}
	if column.Max != "" {
		t, err := parseDate(column.Max)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: max: %w", model.ErrConfiguration, column.Name, err)
		}
		end = t
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: column %s: max is before min", model.ErrConfiguration, column.Name)
	}

	d := p.faker.DateRange(start, end)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
}

// replace fills a format: '#' becomes a digit, '?' a letter and '*' either
func (p *FakeProvider) replace(format string) string {
	var sb strings.Builder
	sb.Grow(len(format))
	for _, r := range format {
		switch r {
		case '#':
			sb.WriteString(p.faker.Numerify("#"))
		case '?':
			sb.WriteString(p.faker.Lexify("?"))
		case '*':
			if p.faker.Bool() {
				sb.WriteString(p.faker.Numerify("#"))
			} else {
				sb.WriteString(p.faker.Lexify("?"))
			}
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
