package valueobject

import (
	"strings"
)

// Address is a value object representing a payee postal address
// It is immutable - all operations return new Address instances
type Address struct {
	line1      string
	line2      string
	city       string
	postalCode string
	state      string
	country    string
}

// AddressOption is a functional option for configuring Address
type AddressOption func(*Address)

// WithLine2 sets the second address line
func WithLine2(line2 string) AddressOption {
	return func(a *Address) {
		a.line2 = strings.TrimSpace(line2)
	}
}

// WithState sets the province or state
func WithState(state string) AddressOption {
	return func(a *Address) {
		a.state = strings.TrimSpace(state)
	}
}

// NewAddress creates a new Address; line2 and state are optional
func NewAddress(line1, city, postalCode, country string, opts ...AddressOption) Address {
	addr := Address{
		line1:      strings.TrimSpace(line1),
		city:       strings.TrimSpace(city),
		postalCode: strings.TrimSpace(postalCode),
		country:    strings.TrimSpace(country),
	}
	for _, opt := range opts {
		opt(&addr)
	}
	return addr
}

// Line1 returns the first address line
func (a Address) Line1() string { return a.line1 }

// Line2 returns the second address line
func (a Address) Line2() string { return a.line2 }

// City returns the city
func (a Address) City() string { return a.city }

// PostalCode returns the postal code
func (a Address) PostalCode() string { return a.postalCode }

// State returns the province or state
func (a Address) State() string { return a.state }

// Country returns the country
func (a Address) Country() string { return a.country }

// IsEmpty returns true if every part is blank
func (a Address) IsEmpty() bool {
	return a.line1 == "" && a.line2 == "" && a.city == "" && a.postalCode == "" && a.state == "" && a.country == ""
}

// FullAddress returns the one-line address shown in payment listings.
// Format: Line1, Line2, City, PostalCode, State, Country (blank parts skipped)
func (a Address) FullAddress() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.line1, a.line2, a.city, a.postalCode, a.state, a.country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
