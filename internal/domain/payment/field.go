package payment

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/paymentmanager/backend/internal/domain/shared"
	"github.com/paymentmanager/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Field names an editable payment field
type Field string

const (
	FieldFirstName   Field = "firstName"
	FieldLastName    Field = "lastName"
	FieldEmail       Field = "email"
	FieldPhone       Field = "phone"
	FieldAddress1    Field = "address1"
	FieldAddress2    Field = "address2"
	FieldCountry     Field = "country"
	FieldState       Field = "state"
	FieldCity        Field = "city"
	FieldPostalCode  Field = "postalCode"
	FieldCurrency    Field = "currency"
	FieldDueDate     Field = "dueDate"
	FieldDueAmount   Field = "dueAmount"
	FieldDiscountPct Field = "discountPct"
	FieldTaxPct      Field = "taxPct"
	FieldStatus      Field = "status"
	FieldEvidenceID  Field = "evidenceId"
)

// AllFields lists every editable field in form order
var AllFields = []Field{
	FieldFirstName, FieldLastName, FieldEmail, FieldPhone,
	FieldAddress1, FieldAddress2, FieldCountry, FieldState, FieldCity, FieldPostalCode,
	FieldCurrency, FieldDueDate, FieldDueAmount, FieldDiscountPct, FieldTaxPct,
	FieldStatus, FieldEvidenceID,
}

// ParseField returns the field with the given name
func ParseField(name string) (Field, bool) {
	for _, f := range AllFields {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// IsGeography reports whether the field is part of the reference-data cascade
func (f Field) IsGeography() bool {
	switch f {
	case FieldCountry, FieldState, FieldCity, FieldCurrency:
		return true
	}
	return false
}

// Updatable reports whether a saved payment accepts changes to the field.
// These are the fields Update carries.
func (f Field) Updatable() bool {
	switch f {
	case FieldDueAmount, FieldStatus, FieldDueDate:
		return true
	}
	return false
}

// Field-level messages
const (
	MsgRequired      = "This field is required"
	MsgEmail         = "Email address is invalid"
	MsgSelection     = "Allowed selection is not valid"
	MsgMaxLength     = "Exceeded maximum length allowed"
	MsgPhone         = "Phone number is invalid"
	MsgDateFormat    = "Date is required in YYYY-MM-DD format"
	MsgMaxValue      = "Exceeded max value"
	MsgAmountFormat  = "Amount must be a number with at most 2 decimals"
	MsgInvalidStatus = "Status is not valid"
)

// MaxAmount bounds every monetary and percentage input
var MaxAmount = decimal.New(1, 15)

// Input holds the raw, user-entered values of a payment form
type Input struct {
	FirstName   string `json:"firstName" validate:"required,max=50"`
	LastName    string `json:"lastName" validate:"required,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,e164"`
	Address1    string `json:"address1" validate:"required,max=200"`
	Address2    string `json:"address2" validate:"omitempty,max=200"`
	Country     string `json:"country" validate:"required"`
	State       string `json:"state"`
	City        string `json:"city" validate:"required"`
	PostalCode  string `json:"postalCode" validate:"required"`
	Currency    string `json:"currency" validate:"required"`
	DueDate     string `json:"dueDate" validate:"required,isodate"`
	DueAmount   string `json:"dueAmount" validate:"required,amount,maxamount"`
	DiscountPct string `json:"discountPct" validate:"omitempty,amount,maxamount"`
	TaxPct      string `json:"taxPct" validate:"omitempty,amount,maxamount"`
	Status      string `json:"status" validate:"omitempty,status"`
	EvidenceID  string `json:"evidenceId"`
}

// Get returns the raw value of a field
func (in *Input) Get(f Field) string {
	if p := in.ptr(f); p != nil {
		return *p
	}
	return ""
}

// Set stores the raw value of a field; unknown fields are ignored
func (in *Input) Set(f Field, value string) {
	if p := in.ptr(f); p != nil {
		*p = value
	}
}

func (in *Input) ptr(f Field) *string {
	switch f {
	case FieldFirstName:
		return &in.FirstName
	case FieldLastName:
		return &in.LastName
	case FieldEmail:
		return &in.Email
	case FieldPhone:
		return &in.Phone
	case FieldAddress1:
		return &in.Address1
	case FieldAddress2:
		return &in.Address2
	case FieldCountry:
		return &in.Country
	case FieldState:
		return &in.State
	case FieldCity:
		return &in.City
	case FieldPostalCode:
		return &in.PostalCode
	case FieldCurrency:
		return &in.Currency
	case FieldDueDate:
		return &in.DueDate
	case FieldDueAmount:
		return &in.DueAmount
	case FieldDiscountPct:
		return &in.DiscountPct
	case FieldTaxPct:
		return &in.TaxPct
	case FieldStatus:
		return &in.Status
	case FieldEvidenceID:
		return &in.EvidenceID
	}
	return nil
}

// InputFromPayment renders a stored payment as form input
func InputFromPayment(p *Payment) Input {
	in := Input{
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Email:      p.Email,
		Phone:      p.Phone,
		Address1:   p.AddressLine1,
		Address2:   p.AddressLine2,
		Country:    p.Country,
		State:      p.State,
		City:       p.City,
		PostalCode: p.PostalCode,
		Currency:   p.Currency.String(),
		DueDate:    p.DueDate.String(),
		DueAmount:  p.DueAmount.StringFixed(valueobject.MoneyScale),
		Status:     p.Status.String(),
		EvidenceID: p.EvidenceID,
	}
	if !p.DiscountPercent.IsZero() {
		in.DiscountPct = p.DiscountPercent.String()
	}
	if !p.TaxPercent.IsZero() {
		in.TaxPct = p.TaxPercent.String()
	}
	return in
}

// ToPayment converts validated input into a payment. Status defaults to pending.
func (in *Input) ToPayment() (*Payment, error) {
	due, err := valueobject.ParseAmount(in.DueAmount)
	if err != nil {
		return nil, shared.WrapDomainError(shared.CodeInvalidInput, "Invalid due amount", err)
	}
	discount, err := optionalDecimal(in.DiscountPct)
	if err != nil {
		return nil, shared.WrapDomainError(shared.CodeInvalidInput, "Invalid discount percent", err)
	}
	tax, err := optionalDecimal(in.TaxPct)
	if err != nil {
		return nil, shared.WrapDomainError(shared.CodeInvalidInput, "Invalid tax percent", err)
	}
	dueDate, err := valueobject.ParseDate(in.DueDate)
	if err != nil {
		return nil, shared.WrapDomainError(shared.CodeInvalidInput, "Invalid due date", err)
	}
	status := StatusPending
	if in.Status != "" {
		if status, err = ParseStatus(in.Status); err != nil {
			return nil, err
		}
	}

	return &Payment{
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		Email:           strings.TrimSpace(in.Email),
		Phone:           strings.TrimSpace(in.Phone),
		AddressLine1:    strings.TrimSpace(in.Address1),
		AddressLine2:    strings.TrimSpace(in.Address2),
		Country:         in.Country,
		State:           in.State,
		City:            in.City,
		PostalCode:      strings.TrimSpace(in.PostalCode),
		Currency:        valueobject.NewCurrency(in.Currency),
		DueAmount:       due,
		DiscountPercent: discount,
		TaxPercent:      tax,
		Status:          status,
		DueDate:         dueDate,
		EvidenceID:      in.EvidenceID,
	}, nil
}

func optionalDecimal(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return valueobject.ParseAmount(s)
}

// ValidationError carries one message per offending field
type ValidationError struct {
	Fields map[Field]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		keys = append(keys, string(f))
	}
	sort.Strings(keys)
	return "validation failed: " + strings.Join(keys, ", ")
}

// Is matches shared.ErrValidationFailed
func (e *ValidationError) Is(target error) bool {
	return errors.Is(shared.ErrValidationFailed, target)
}

// NewValidationError returns nil when fields is empty
func NewValidationError(fields map[Field]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// FieldRules checks the format rules of payment input
type FieldRules struct {
	validate *validator.Validate
}

// NewFieldRules creates the rule set with the payment-specific tags registered
func NewFieldRules() *FieldRules {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := valueobject.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		d, err := valueobject.ParseAmount(fl.Field().String())
		return err == nil && !d.IsNegative()
	})
	_ = v.RegisterValidation("maxamount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err != nil || d.LessThanOrEqual(MaxAmount)
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		_, err := ParseStatus(fl.Field().String())
		return err == nil
	})
	return &FieldRules{validate: v}
}

// Check returns one message per field that breaks a format rule
func (r *FieldRules) Check(in Input) map[Field]string {
	out := make(map[Field]string)
	err := r.validate.Struct(in)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	for _, fe := range verrs {
		f := Field(fe.Field())
		if _, seen := out[f]; seen {
			continue
		}
		out[f] = ruleMessage(fe)
	}
	return out
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "email":
		return MsgEmail
	case "e164":
		return MsgPhone
	case "max":
		return MsgMaxLength
	case "isodate":
		return MsgDateFormat
	case "amount":
		return MsgAmountFormat
	case "maxamount":
		return MsgMaxValue
	case "status":
		return MsgInvalidStatus
	default:
		return "Invalid value"
	}
}
