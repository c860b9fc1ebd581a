package models

import (
	"github.com/paymentmanager/backend/internal/domain/payment"
	"github.com/paymentmanager/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentModel is the persistence model for a payee payment
type PaymentModel struct {
	Record
	FirstName       string           `gorm:"column:payee_first_name;type:varchar(100);not null"`
	LastName        string           `gorm:"column:payee_last_name;type:varchar(100);not null"`
	Email           string           `gorm:"column:payee_email;type:varchar(255);not null"`
	Phone           string           `gorm:"column:payee_phone_number;type:varchar(20);not null"`
	AddressLine1    string           `gorm:"column:payee_address_line_1;type:varchar(255);not null"`
	AddressLine2    string           `gorm:"column:payee_address_line_2;type:varchar(255)"`
	Country         string           `gorm:"column:payee_country;type:varchar(100);not null"`
	State           string           `gorm:"column:payee_province_or_state;type:varchar(100)"`
	City            string           `gorm:"column:payee_city;type:varchar(100);not null"`
	PostalCode      string           `gorm:"column:payee_postal_code;type:varchar(20);not null"`
	Currency        string           `gorm:"type:varchar(3);not null"`
	DueAmount       decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	DiscountPercent decimal.Decimal  `gorm:"type:decimal(5,2);not null"`
	TaxPercent      decimal.Decimal  `gorm:"type:decimal(5,2);not null"`
	Status          string           `gorm:"column:payee_payment_status;type:varchar(20);not null;index"`
	DueDate         valueobject.Date `gorm:"column:payee_due_date;type:date"`
	EvidenceFileID  *string          `gorm:"column:evidence_file_id;type:varchar(64);uniqueIndex"`
	EvidenceFileExt string           `gorm:"column:evidence_file_ext;type:varchar(10)"`
	EvidenceName    string           `gorm:"column:evidence_file_name;type:varchar(255)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *payment.Payment {
	p := &payment.Payment{
		BaseEntity:      m.Record.entity(),
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		Email:           m.Email,
		Phone:           m.Phone,
		AddressLine1:    m.AddressLine1,
		AddressLine2:    m.AddressLine2,
		Country:         m.Country,
		State:           m.State,
		City:            m.City,
		PostalCode:      m.PostalCode,
		Currency:        valueobject.Currency(m.Currency),
		DueAmount:       m.DueAmount,
		DiscountPercent: m.DiscountPercent,
		TaxPercent:      m.TaxPercent,
		Status:          payment.Status(m.Status),
		DueDate:         m.DueDate,
		EvidenceExt:     m.EvidenceFileExt,
		EvidenceName:    m.EvidenceName,
	}
	if m.EvidenceFileID != nil {
		p.EvidenceID = *m.EvidenceFileID
	}
	return p
}

// FromDomain populates the persistence model from a domain Payment.
// An empty evidence ID is stored as NULL so the unique index only covers attached files.
func (m *PaymentModel) FromDomain(p *payment.Payment) {
	m.Record = recordOf(p.BaseEntity)
	m.FirstName = p.FirstName
	m.LastName = p.LastName
	m.Email = p.Email
	m.Phone = p.Phone
	m.AddressLine1 = p.AddressLine1
	m.AddressLine2 = p.AddressLine2
	m.Country = p.Country
	m.State = p.State
	m.City = p.City
	m.PostalCode = p.PostalCode
	m.Currency = p.Currency.String()
	m.DueAmount = p.DueAmount
	m.DiscountPercent = p.DiscountPercent
	m.TaxPercent = p.TaxPercent
	m.Status = p.Status.String()
	m.DueDate = p.DueDate
	m.EvidenceFileExt = p.EvidenceExt
	m.EvidenceName = p.EvidenceName
	m.EvidenceFileID = nil
	if p.EvidenceID != "" {
		id := p.EvidenceID
		m.EvidenceFileID = &id
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment
func PaymentModelFromDomain(p *payment.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}
