package dto

import "github.com/paymentmanager/backend/internal/infrastructure/csvimport"

// PaymentImportResponse represents the response from a CSV payment import
type PaymentImportResponse struct {
	Message      string               `json:"message"`
	TotalRows    int                  `json:"total_rows"`
	ImportedRows int                  `json:"imported_rows"`
	SkippedRows  int                  `json:"skipped_rows"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
}
