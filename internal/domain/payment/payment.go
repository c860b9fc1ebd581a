package payment

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paymentmanager/backend/internal/domain/shared"
	"github.com/paymentmanager/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle status of a payment
type Status string

const (
	StatusPending   Status = "pending"
	StatusDueNow    Status = "due_now"
	StatusOverdue   Status = "overdue"
	StatusCompleted Status = "completed"
)

// AllStatuses lists every status in display order
var AllStatuses = []Status{StatusPending, StatusDueNow, StatusOverdue, StatusCompleted}

// ParseStatus parses a status string, ignoring case and surrounding space
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Invalid payment status: "+s)
	}
	return st, nil
}

// IsValid reports whether the status is one of the known values
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusDueNow, StatusOverdue, StatusCompleted:
		return true
	}
	return false
}

// String returns the wire form of the status
func (s Status) String() string {
	return string(s)
}

// Payment is a payee payment record.
// ID is uuid.Nil until the record has been saved once.
type Payment struct {
	shared.BaseEntity

	FirstName    string
	LastName     string
	Email        string
	Phone        string // E.164
	AddressLine1 string
	AddressLine2 string
	Country      string
	State        string
	City         string
	PostalCode   string
	Currency     valueobject.Currency

	DueAmount       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxPercent      decimal.Decimal

	Status  Status
	DueDate valueobject.Date

	EvidenceID  string
	EvidenceExt string
	// EvidenceName is the name the file was uploaded under
	EvidenceName string
}

// IsNew reports whether the payment has never been saved
func (p *Payment) IsNew() bool {
	return p.ID == uuid.Nil
}

// AddedAt returns the UTC time the payment was first stored
func (p *Payment) AddedAt() time.Time {
	return p.CreatedAt
}

// HasEvidence reports whether an evidence file is attached
func (p *Payment) HasEvidence() bool {
	return p.EvidenceID != ""
}

// FullName returns "First Last"
func (p *Payment) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Address returns the payee address value object
func (p *Payment) Address() valueobject.Address {
	return valueobject.NewAddress(p.AddressLine1, p.City, p.PostalCode, p.Country,
		valueobject.WithLine2(p.AddressLine2),
		valueobject.WithState(p.State),
	)
}

// TotalDue returns round2(due + due*tax% - due*discount%)
func (p *Payment) TotalDue() valueobject.Money {
	return mustMoney(p.DueAmount, p.Currency).Adjusted(p.TaxPercent, p.DiscountPercent)
}

// DerivedStatus returns the status shown in listings. An attached evidence
// file always means completed; otherwise the due date decides between
// due_now and overdue, and a future due date keeps the stored status.
func (p *Payment) DerivedStatus(today valueobject.Date) Status {
	if p.HasEvidence() {
		return StatusCompleted
	}
	if p.DueDate.IsZero() {
		return p.Status
	}
	switch p.DueDate.Compare(today) {
	case 0:
		return StatusDueNow
	case -1:
		return StatusOverdue
	}
	return p.Status
}

// AttachEvidence records an uploaded evidence file
func (p *Payment) AttachEvidence(evidenceID, ext, name string) {
	p.EvidenceID = evidenceID
	p.EvidenceExt = ext
	p.EvidenceName = name
	p.Touch(time.Now())
}

// EvidenceFilename is the name the evidence file is served under: its
// upload name, or the evidence ID with its extension for files stored
// before upload names were kept.
func (p *Payment) EvidenceFilename() string {
	if p.EvidenceName != "" {
		return p.EvidenceName
	}
	return p.EvidenceID + p.EvidenceExt
}

// Apply applies a partial update. Marking a payment completed requires an
// attached evidence file.
func (p *Payment) Apply(u Update) error {
	if u.Status != nil {
		if !u.Status.IsValid() {
			return shared.NewDomainError(shared.CodeInvalidInput, "Invalid payment status: "+u.Status.String())
		}
		if *u.Status == StatusCompleted && !p.HasEvidence() {
			return shared.ErrEvidenceRequired
		}
	}
	if u.DueAmount != nil {
		if u.DueAmount.IsNegative() {
			return shared.NewDomainError(shared.CodeInvalidInput, "Due amount cannot be negative")
		}
		p.DueAmount = *u.DueAmount
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.DueDate != nil {
		p.DueDate = *u.DueDate
	}
	p.Touch(time.Now())
	return nil
}

// Update is a partial payment update; nil fields are left unchanged
type Update struct {
	DueAmount *decimal.Decimal
	Status    *Status
	DueDate   *valueobject.Date
}

// IsEmpty reports whether the update changes nothing
func (u Update) IsEmpty() bool {
	return u.DueAmount == nil && u.Status == nil && u.DueDate == nil
}

func mustMoney(amount decimal.Decimal, currency valueobject.Currency) valueobject.Money {
	if currency == "" {
		currency = "XXX"
	}
	m, _ := valueobject.NewMoney(amount, currency)
	return m
}
