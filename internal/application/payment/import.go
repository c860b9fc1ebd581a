package payment

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/paymentmanager/backend/internal/domain/payment"
	"github.com/paymentmanager/backend/internal/domain/shared"
	"github.com/paymentmanager/backend/internal/domain/shared/valueobject"
	"github.com/paymentmanager/backend/internal/infrastructure/csvimport"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CSV columns of a payment import file
const (
	ColFirstName   = "payee_first_name"
	ColLastName    = "payee_last_name"
	ColStatus      = "payee_payment_status"
	ColAddedDate   = "payee_added_date_utc"
	ColDueDate     = "payee_due_date"
	ColAddress1    = "payee_address_line_1"
	ColAddress2    = "payee_address_line_2"
	ColCity        = "payee_city"
	ColState       = "payee_province_or_state"
	ColCountry     = "payee_country"
	ColPostalCode  = "payee_postal_code"
	ColPhone       = "payee_phone_number"
	ColEmail       = "payee_email"
	ColCurrency    = "currency"
	ColDueAmount   = "due_amount"
	ColDiscountPct = "discount_percent"
	ColTaxPct      = "tax_percent"
)

// RequiredColumns must be present in the header and non-blank in every imported row
var RequiredColumns = []string{
	ColFirstName, ColLastName, ColStatus, ColAddedDate, ColDueDate,
	ColAddress1, ColCity, ColCountry, ColPostalCode, ColPhone, ColEmail,
	ColCurrency, ColDueAmount,
}

// ImportResult summarizes a CSV import
type ImportResult struct {
	TotalRows    int                  `json:"total_rows"`
	ImportedRows int                  `json:"imported_rows"`
	SkippedRows  int                  `json:"skipped_rows"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
}

// ImportCSV bulk-inserts payments from a CSV stream. Rows with a blank
// required value, an unparseable date or amount, or broken quoting are
// skipped; the import fails when no row survives.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	parser, err := csvimport.NewParser(r)
	if err != nil {
		return nil, importError(err)
	}
	if err := parser.ReadHeader(); err != nil {
		return nil, importError(err)
	}
	if absent := parser.Absent(RequiredColumns); len(absent) > 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidFile,
			"Missing required columns: "+strings.Join(absent, ", "))
	}

	result := &ImportResult{}
	report := csvimport.NewReport(csvimport.DefaultReportLimit)
	var payments []*payment.Payment
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := parser.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			result.TotalRows++
			report.Malformed(perr.StartLine, perr.Err)
			continue
		}
		if err != nil {
			return nil, importError(err)
		}
		if row.IsEmpty() {
			continue
		}
		result.TotalRows++
		if p := rowToPayment(row, report); p != nil {
			payments = append(payments, p)
		}
	}

	result.ImportedRows = len(payments)
	result.SkippedRows = result.TotalRows - result.ImportedRows
	result.Errors = report.Kept()
	result.IsTruncated = report.Truncated()
	result.TotalErrors = report.Total()

	if len(payments) == 0 {
		return result, shared.NewDomainError(shared.CodeInvalidFile, "No valid data found to insert.")
	}
	if err := s.repo.SaveBatch(ctx, payments); err != nil {
		return nil, err
	}

	s.logger.Info("payments imported",
		zap.Int("imported", result.ImportedRows),
		zap.Int("skipped", result.SkippedRows),
	)
	return result, nil
}

func rowToPayment(row *csvimport.Row, report *csvimport.Report) *payment.Payment {
	if blank := row.Blank(RequiredColumns); len(blank) > 0 {
		for _, col := range blank {
			report.Missing(row.Line, col)
		}
		return nil
	}

	addedAt, err := parseUnixSeconds(row.Get(ColAddedDate))
	if err != nil {
		report.Unparsable(row.Line, ColAddedDate, "unix seconds", row.Get(ColAddedDate))
		return nil
	}
	dueDate, err := parseDueDate(row.Get(ColDueDate))
	if err != nil {
		report.Unparsable(row.Line, ColDueDate, "YYYY-MM-DD", row.Get(ColDueDate))
		return nil
	}
	due, err := decimal.NewFromString(row.Get(ColDueAmount))
	if err != nil {
		report.Unparsable(row.Line, ColDueAmount, "number", row.Get(ColDueAmount))
		return nil
	}
	discount, err := decimal.NewFromString(row.Or(ColDiscountPct, "0"))
	if err != nil {
		report.Unparsable(row.Line, ColDiscountPct, "number", row.Get(ColDiscountPct))
		return nil
	}
	tax, err := decimal.NewFromString(row.Or(ColTaxPct, "0"))
	if err != nil {
		report.Unparsable(row.Line, ColTaxPct, "number", row.Get(ColTaxPct))
		return nil
	}
	status, err := payment.ParseStatus(row.Get(ColStatus))
	if err != nil {
		report.Unparsable(row.Line, ColStatus, "payment status", row.Get(ColStatus))
		return nil
	}

	p := &payment.Payment{
		BaseEntity:      shared.NewBaseEntityAt(addedAt),
		FirstName:       row.Get(ColFirstName),
		LastName:        row.Get(ColLastName),
		Email:           row.Get(ColEmail),
		Phone:           row.Get(ColPhone),
		AddressLine1:    row.Get(ColAddress1),
		AddressLine2:    row.Get(ColAddress2),
		Country:         strings.ToUpper(row.Get(ColCountry)),
		State:           row.Get(ColState),
		City:            row.Get(ColCity),
		PostalCode:      row.Get(ColPostalCode),
		Currency:        valueobject.NewCurrency(row.Get(ColCurrency)),
		DueAmount:       due,
		DiscountPercent: discount,
		TaxPercent:      tax,
		Status:          status,
		DueDate:         dueDate,
	}
	return p
}

func parseUnixSeconds(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(f), 0).UTC(), nil
}

// parseDueDate accepts a date or a timestamp whose first ten characters are a date
func parseDueDate(s string) (valueobject.Date, error) {
	if len(s) > len(valueobject.DateLayout) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return valueobject.DateOf(t, time.UTC), nil
		}
		s = s[:len(valueobject.DateLayout)]
	}
	return valueobject.ParseDate(s)
}

func importError(err error) error {
	switch {
	case errors.Is(err, csvimport.ErrEmptyFile),
		errors.Is(err, csvimport.ErrMissingHeader),
		errors.Is(err, csvimport.ErrInvalidEncoding):
		return shared.WrapDomainError(shared.CodeInvalidFile, "Invalid CSV file", err)
	default:
		return shared.WrapDomainError(shared.CodeInvalidFile, "Failed to parse CSV file", err)
	}
}
