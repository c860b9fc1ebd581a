package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code such as "USD"
type Currency string

// NewCurrency trims and upper-cases a currency code
func NewCurrency(code string) Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(code)))
}

func (c Currency) String() string {
	return string(c)
}

// MoneyScale is the number of fraction digits kept for monetary amounts
const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// Money is an immutable amount in a single currency
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney returns amount in currency. The currency is required.
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

func (m Money) Amount() decimal.Decimal { return m.amount }

func (m Money) Currency() Currency { return m.currency }

func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// Percent returns pct percent of m without rounding
func (m Money) Percent(pct decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(pct).Div(hundred), currency: m.currency}
}

// Adjusted applies a tax surcharge and a discount, both percentages of m,
// and rounds the result half away from zero to MoneyScale digits.
// The intermediate sum is never rounded.
func (m Money) Adjusted(taxPct, discountPct decimal.Decimal) Money {
	total := m.amount.
		Add(m.Percent(taxPct).amount).
		Sub(m.Percent(discountPct).amount)
	return Money{amount: total.Round(MoneyScale), currency: m.currency}
}

// String formats m as "<amount> <currency>" with two fraction digits
func (m Money) String() string {
	return m.amount.StringFixed(MoneyScale) + " " + string(m.currency)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{m.amount.StringFixed(MoneyScale), m.currency})
}

// ParseAmount parses a decimal amount that has at most MoneyScale
// significant fraction digits. "1.500" is accepted, "1.234" is not.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.Equal(d.Round(MoneyScale)) {
		return decimal.Zero, fmt.Errorf("amount %q has more than %d fraction digits", s, MoneyScale)
	}
	return d, nil
}
