package dto

import (
	"sort"
	"time"

	"github.com/paymentmanager/backend/internal/domain/payment"
	"github.com/paymentmanager/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// paymentWireFields maps editor field names to their payments API names
var paymentWireFields = map[payment.Field]string{
	payment.FieldFirstName:   "payee_first_name",
	payment.FieldLastName:    "payee_last_name",
	payment.FieldEmail:       "payee_email",
	payment.FieldPhone:       "payee_phone_number",
	payment.FieldAddress1:    "payee_address_line_1",
	payment.FieldAddress2:    "payee_address_line_2",
	payment.FieldCountry:     "payee_country",
	payment.FieldState:       "payee_province_or_state",
	payment.FieldCity:        "payee_city",
	payment.FieldPostalCode:  "payee_postal_code",
	payment.FieldCurrency:    "currency",
	payment.FieldDueDate:     "payee_due_date",
	payment.FieldDueAmount:   "due_amount",
	payment.FieldDiscountPct: "discount_percent",
	payment.FieldTaxPct:      "tax_percent",
	payment.FieldStatus:      "payee_payment_status",
	payment.FieldEvidenceID:  "evidence_file_id",
}

// PaymentWireField returns the payments API name of an editor field
func PaymentWireField(f payment.Field) string {
	if name, ok := paymentWireFields[f]; ok {
		return name
	}
	return string(f)
}

// ValidationDetails renders field messages sorted by field name.
// rename maps each field to the name the client sent; nil keeps it as-is.
func ValidationDetails(fields map[payment.Field]string, rename func(payment.Field) string) []ValidationDetail {
	details := make([]ValidationDetail, 0, len(fields))
	for f, msg := range fields {
		name := string(f)
		if rename != nil {
			name = rename(f)
		}
		details = append(details, ValidationDetail{Field: name, Message: msg})
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Field < details[j].Field })
	return details
}

// ListPaymentsRequest holds the query parameters of the payments listing
type ListPaymentsRequest struct {
	Page    int    `form:"page" binding:"omitempty,min=1"`
	PerPage int    `form:"per_page" binding:"omitempty,min=1,max=500"`
	Search  string `form:"search" binding:"max=100"`
	Status  string `form:"status" binding:"omitempty,payment_status"`
}

// ToQuery converts the request into a list query
func (r ListPaymentsRequest) ToQuery() payment.ListQuery {
	return payment.ListQuery{
		Page:     r.Page,
		PageSize: r.PerPage,
		Search:   r.Search,
		Status:   payment.Status(r.Status),
	}.Normalize()
}

// CreatePaymentRequest is the body of POST /payments
type CreatePaymentRequest struct {
	FirstName       string           `json:"payee_first_name"`
	LastName        string           `json:"payee_last_name"`
	Status          string           `json:"payee_payment_status"`
	DueDate         string           `json:"payee_due_date"`
	AddressLine1    string           `json:"payee_address_line_1"`
	AddressLine2    string           `json:"payee_address_line_2"`
	City            string           `json:"payee_city"`
	Country         string           `json:"payee_country"`
	State           string           `json:"payee_province_or_state"`
	PostalCode      string           `json:"payee_postal_code"`
	Phone           string           `json:"payee_phone_number"`
	Email           string           `json:"payee_email"`
	Currency        string           `json:"currency"`
	DueAmount       *decimal.Decimal `json:"due_amount"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
	TaxPercent      *decimal.Decimal `json:"tax_percent"`
}

// ToInput converts the request into editor input so the payment field
// rules can be applied to it
func (r CreatePaymentRequest) ToInput() payment.Input {
	return payment.Input{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Phone:       r.Phone,
		Address1:    r.AddressLine1,
		Address2:    r.AddressLine2,
		Country:     r.Country,
		State:       r.State,
		City:        r.City,
		PostalCode:  r.PostalCode,
		Currency:    r.Currency,
		DueDate:     dueDateOnly(r.DueDate),
		DueAmount:   decimalString(r.DueAmount),
		DiscountPct: decimalString(r.DiscountPercent),
		TaxPct:      decimalString(r.TaxPercent),
		Status:      r.Status,
	}
}

// UpdatePaymentRequest is the body of PATCH /payments/:id; absent fields are left unchanged
type UpdatePaymentRequest struct {
	DueAmount *decimal.Decimal `json:"due_amount"`
	Status    *string          `json:"payee_payment_status"`
	DueDate   *string          `json:"payee_due_date"`
}

// ToUpdate converts the request into a partial update
func (r UpdatePaymentRequest) ToUpdate() (payment.Update, error) {
	var u payment.Update
	fields := make(map[payment.Field]string)

	if r.DueAmount != nil {
		if _, err := valueobject.ParseAmount(r.DueAmount.String()); err != nil || r.DueAmount.IsNegative() {
			fields[payment.FieldDueAmount] = payment.MsgAmountFormat
		} else {
			u.DueAmount = r.DueAmount
		}
	}
	if r.Status != nil {
		if st, err := payment.ParseStatus(*r.Status); err != nil {
			fields[payment.FieldStatus] = payment.MsgInvalidStatus
		} else {
			u.Status = &st
		}
	}
	if r.DueDate != nil {
		if d, err := valueobject.ParseDate(dueDateOnly(*r.DueDate)); err != nil {
			fields[payment.FieldDueDate] = payment.MsgDateFormat
		} else {
			u.DueDate = &d
		}
	}
	return u, payment.NewValidationError(fields)
}

// PaymentResponse is the API representation of a payment
type PaymentResponse struct {
	ID              string          `json:"id"`
	FirstName       string          `json:"payee_first_name"`
	LastName        string          `json:"payee_last_name"`
	Status          string          `json:"payee_payment_status"`
	AddedDate       time.Time       `json:"payee_added_date_utc"`
	DueDate         string          `json:"payee_due_date"`
	AddressLine1    string          `json:"payee_address_line_1"`
	AddressLine2    string          `json:"payee_address_line_2,omitempty"`
	City            string          `json:"payee_city"`
	Country         string          `json:"payee_country"`
	State           string          `json:"payee_province_or_state,omitempty"`
	PostalCode      string          `json:"payee_postal_code"`
	Phone           string          `json:"payee_phone_number"`
	Email           string          `json:"payee_email"`
	Currency        string          `json:"currency"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`
	DueAmount       decimal.Decimal `json:"due_amount"`
	TotalDue        decimal.Decimal `json:"total_due"`
	EvidenceFileID  string          `json:"evidence_file_id,omitempty"`
	EvidenceFileExt string          `json:"evidence_file_ext,omitempty"`
	EvidenceName    string          `json:"evidence_file_name,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ToPaymentResponse renders a payment with its stored status
func ToPaymentResponse(p *payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID.String(),
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		Status:          p.Status.String(),
		AddedDate:       p.AddedAt(),
		DueDate:         p.DueDate.String(),
		AddressLine1:    p.AddressLine1,
		AddressLine2:    p.AddressLine2,
		City:            p.City,
		Country:         p.Country,
		State:           p.State,
		PostalCode:      p.PostalCode,
		Phone:           p.Phone,
		Email:           p.Email,
		Currency:        p.Currency.String(),
		DiscountPercent: p.DiscountPercent,
		TaxPercent:      p.TaxPercent,
		DueAmount:       p.DueAmount,
		TotalDue:        p.TotalDue().Amount(),
		EvidenceFileID:  p.EvidenceID,
		EvidenceFileExt: p.EvidenceExt,
		EvidenceName:    p.EvidenceName,
		UpdatedAt:       p.UpdatedAt,
	}
}

// ToPaymentResponses renders a listing page with the derived statuses
func ToPaymentResponses(items []payment.Listed) []PaymentResponse {
	out := make([]PaymentResponse, len(items))
	for i, item := range items {
		out[i] = ToPaymentResponse(item.Payment)
		out[i].Status = item.DerivedStatus.String()
	}
	return out
}

// EvidenceUploadResponse is returned after an evidence file is attached
type EvidenceUploadResponse struct {
	FileID  string `json:"file_id"`
	FileExt string `json:"file_ext"`
	Message string `json:"message"`
}

func decimalString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// dueDateOnly accepts "YYYY-MM-DD" or a timestamp starting with one
func dueDateOnly(s string) string {
	if len(s) > len(valueobject.DateLayout) && s[len(valueobject.DateLayout)] == 'T' {
		return s[:len(valueobject.DateLayout)]
	}
	return s
}
