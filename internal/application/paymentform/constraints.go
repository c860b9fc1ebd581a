package paymentform

import (
	"github.com/paymentmanager/backend/internal/application/referencedata"
	"github.com/paymentmanager/backend/internal/domain/geography"
	"github.com/paymentmanager/backend/internal/domain/payment"
)

// Constraint is the allowed-value rule of one geography field
type Constraint struct {
	Allowed  []string
	Editable bool
	Required bool
}

// Check returns the message for value, or "" when it is acceptable.
// Matching is exact and case-sensitive.
func (c Constraint) Check(value string) string {
	if value == "" {
		if c.Required {
			return payment.MsgRequired
		}
		return ""
	}
	if !geography.Contains(c.Allowed, value) {
		return payment.MsgSelection
	}
	return ""
}

// Constraints is an immutable snapshot of the geography field rules, built
// from one cascade state. A new snapshot is bound whenever a list changes.
type Constraints struct {
	fields map[payment.Field]Constraint
}

// Bind builds the constraints for the lists held in s
func Bind(s referencedata.State) Constraints {
	countryValid := s.CountryValid()

	currency := Constraint{Required: true}
	if s.Currency != "" {
		currency.Allowed = []string{s.Currency}
	}

	return Constraints{fields: map[payment.Field]Constraint{
		payment.FieldCountry: {
			Allowed:  geography.CountryNames(s.Countries),
			Editable: len(s.Countries) > 0,
			Required: true,
		},
		payment.FieldState: {
			Allowed:  s.States,
			Editable: len(s.States) > 0 && countryValid,
			Required: len(s.States) > 0,
		},
		payment.FieldCity: {
			Allowed:  s.Cities,
			Editable: len(s.Cities) > 0 && countryValid,
			Required: true,
		},
		payment.FieldCurrency: currency,
	}}
}

// For returns the constraint of a geography field
func (c Constraints) For(f payment.Field) (Constraint, bool) {
	con, ok := c.fields[f]
	return con, ok
}

// Check returns the message for a field value, or "". Fields without a
// constraint always pass.
func (c Constraints) Check(f payment.Field, value string) string {
	con, ok := c.fields[f]
	if !ok {
		return ""
	}
	return con.Check(value)
}

// Editable reports whether a field accepts input. Fields without a
// constraint are always editable.
func (c Constraints) Editable(f payment.Field) bool {
	con, ok := c.fields[f]
	if !ok {
		return true
	}
	return con.Editable
}

// CheckAll returns the messages of every failing geography field in in
func (c Constraints) CheckAll(in payment.Input) map[payment.Field]string {
	out := make(map[payment.Field]string)
	for f := range c.fields {
		if msg := c.Check(f, in.Get(f)); msg != "" {
			out[f] = msg
		}
	}
	return out
}
