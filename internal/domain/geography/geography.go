package geography

import (
	"context"

	"github.com/paymentmanager/backend/internal/domain/shared"
)

// Country is an entry of the global country list
type Country struct {
	Name string `json:"name"`
	ISO2 string `json:"iso2"`
}

// Key identifies a reference-data lookup: a bare country, or a country
// narrowed to one of its states. Keys are matched exactly; no case folding.
type Key struct {
	Country string
	State   string
}

// CountryKey returns the key for a country-scoped lookup
func CountryKey(country string) Key {
	return Key{Country: country}
}

// StateKey returns the key for a state-scoped lookup. An empty state
// yields the country-scoped key.
func StateKey(country, state string) Key {
	return Key{Country: country, State: state}
}

// HasState reports whether the key is narrowed to a state
func (k Key) HasState() bool {
	return k.State != ""
}

// String renders the key as "country" or "country|state"
func (k Key) String() string {
	if k.State == "" {
		return k.Country
	}
	return k.Country + "|" + k.State
}

// ErrUnavailable is returned by a DataSource when the upstream cannot answer.
// The resolver never retries; retry policy belongs to the DataSource.
var ErrUnavailable = shared.ErrDataSourceUnavailable

// DataSource is the upstream provider of geography reference data
type DataSource interface {
	// ListCountries returns every known country
	ListCountries(ctx context.Context) ([]Country, error)

	// ListStates returns the states of a country
	ListStates(ctx context.Context, country string) ([]string, error)

	// ListCities returns every city of a country
	ListCities(ctx context.Context, country string) ([]string, error)

	// ListCitiesForState returns the cities of one state
	ListCitiesForState(ctx context.Context, country, state string) ([]string, error)

	// GetCurrency returns the ISO 4217 code used by a country
	GetCurrency(ctx context.Context, country string) (string, error)
}

// Contains reports whether value matches one entry exactly
func Contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// CountryNames returns the display names of the given countries in order
func CountryNames(countries []Country) []string {
	names := make([]string, len(countries))
	for i, c := range countries {
		names[i] = c.Name
	}
	return names
}
