package handler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	paymentapp "github.com/paymentmanager/backend/internal/application/payment"
	"github.com/paymentmanager/backend/internal/interfaces/http/dto"
)

const (
	// Maximum file size for imports (10MB)
	maxImportFileSize = 10 * 1024 * 1024
)

// ImportHandler handles bulk payment uploads
type ImportHandler struct {
	BaseHandler
	paymentService *paymentapp.Service
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(paymentService *paymentapp.Service) *ImportHandler {
	return &ImportHandler{paymentService: paymentService}
}

// ImportPayments godoc
//
//	@Summary		Import payments from a CSV file
//	@Description	Inserts every row with all required columns and valid dates and amounts; other rows are reported and skipped
//	@Tags			import
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"CSV file"
//	@Router			/upload/payments [post]
func (h *ImportHandler) ImportPayments(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeInvalidFile, "No file uploaded")
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		h.ErrorWithCode(c, dto.ErrCodeInvalidFile, "Only CSV files are allowed.")
		return
	}
	if header.Size > maxImportFileSize {
		h.ErrorWithCode(c, dto.ErrCodeFileTooLarge, "File size exceeds the maximum limit of 10 MB.")
		return
	}

	file, err := header.Open()
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeInvalidFile, "Failed to open uploaded file")
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.paymentService.ImportCSV(c.Request.Context(), file)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.PaymentImportResponse{
		Message:      fmt.Sprintf("%d payments inserted successfully.", result.ImportedRows),
		TotalRows:    result.TotalRows,
		ImportedRows: result.ImportedRows,
		SkippedRows:  result.SkippedRows,
		Errors:       result.Errors,
		IsTruncated:  result.IsTruncated,
		TotalErrors:  result.TotalErrors,
	})
}
