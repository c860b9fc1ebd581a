package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	paymentapp "github.com/paymentmanager/backend/internal/application/payment"
	"github.com/paymentmanager/backend/internal/domain/payment"
	"github.com/paymentmanager/backend/internal/domain/shared"
	"github.com/paymentmanager/backend/internal/interfaces/http/dto"
	"github.com/paymentmanager/backend/internal/interfaces/http/middleware"
)

// PaymentHandler handles payment-related API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *paymentapp.Service
	rules          *payment.FieldRules
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *paymentapp.Service) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		rules:          payment.NewFieldRules(),
	}
}

// List godoc
//
//	@Summary		List payments
//	@Description	Page through payments, optionally filtered by a search term and derived status
//	@Tags			payments
//	@Produce		json
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			per_page	query		int		false	"Page size"		default(50)
//	@Param			search		query		string	false	"Matches names, email, city and more"
//	@Param			status		query		string	false	"pending, due_now, overdue or completed"
//	@Router			/payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var req dto.ListPaymentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	query := req.ToQuery()
	page, err := h.paymentService.List(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	extra := url.Values{}
	if query.Search != "" {
		extra.Set("search", query.Search)
	}
	if query.Status != "" {
		extra.Set("status", query.Status.String())
	}
	meta := dto.NewListMeta(c.Request.URL.Path, page.Page, page.PageSize, page.TotalPages, page.Total, extra)
	h.SuccessWithMeta(c, dto.ToPaymentResponses(page.Items), meta)
}

// Get godoc
//
//	@Summary	Get a payment by ID
//	@Tags		payments
//	@Produce	json
//	@Param		id	path	string	true	"Payment ID"
//	@Router		/payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := h.paymentID(c)
	if !ok {
		return
	}

	p, err := h.paymentService.Get(c.Request.Context(), id)
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}

	h.Success(c, dto.ToPaymentResponse(p))
}

// Create godoc
//
//	@Summary	Create a payment
//	@Tags		payments
//	@Accept		json
//	@Produce	json
//	@Param		request	body	dto.CreatePaymentRequest	true	"Payment"
//	@Router		/payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	input := req.ToInput()
	if fields := h.rules.Check(input); len(fields) > 0 {
		h.ValidationError(c, dto.ValidationDetails(fields, dto.PaymentWireField))
		return
	}

	p, err := input.ToPayment()
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}

	created, err := h.paymentService.Create(c.Request.Context(), p)
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}

	h.Created(c, dto.ToPaymentResponse(created))
}

// Update godoc
//
//	@Summary	Update the amount, status or due date of a payment
//	@Tags		payments
//	@Accept		json
//	@Produce	json
//	@Param		id		path	string						true	"Payment ID"
//	@Param		request	body	dto.UpdatePaymentRequest	true	"Fields to change"
//	@Router		/payments/{id} [patch]
func (h *PaymentHandler) Update(c *gin.Context) {
	id, ok := h.paymentID(c)
	if !ok {
		return
	}

	var req dto.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	update, err := req.ToUpdate()
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}
	if update.IsEmpty() {
		h.BadRequest(c, "No fields to update")
		return
	}

	updated, err := h.paymentService.Update(c.Request.Context(), id, update)
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}

	h.Success(c, dto.ToPaymentResponse(updated))
}

// Delete godoc
//
//	@Summary	Delete a payment and its evidence file
//	@Tags		payments
//	@Produce	json
//	@Param		id	path	string	true	"Payment ID"
//	@Router		/payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	id, ok := h.paymentID(c)
	if !ok {
		return
	}

	if err := h.paymentService.Delete(c.Request.Context(), id); err != nil {
		h.handlePaymentError(c, err)
		return
	}

	h.Success(c, dto.MessageResponse{Message: "Payment deleted successfully"})
}

// UploadEvidence godoc
//
//	@Summary	Attach an evidence file (PDF, PNG or JPG) to a payment
//	@Tags		payments
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		id		path		string	true	"Payment ID"
//	@Param		file	formData	file	true	"Evidence file"
//	@Router		/payments/{id}/evidence [post]
func (h *PaymentHandler) UploadEvidence(c *gin.Context) {
	id, ok := h.paymentID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeInvalidFile, "No file uploaded")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeInvalidFile, "Failed to open uploaded file")
		return
	}
	defer func() { _ = file.Close() }()

	ref, err := h.paymentService.UploadEvidence(c.Request.Context(), id, payment.EvidenceUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  file,
	})
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}

	h.Success(c, dto.EvidenceUploadResponse{
		FileID:  ref.EvidenceID,
		FileExt: ref.Extension,
		Message: "Evidence uploaded successfully",
	})
}

// DownloadEvidence godoc
//
//	@Summary	Download an evidence file
//	@Tags		payments
//	@Produce	application/octet-stream
//	@Param		fileId	path	string	true	"Evidence file ID"
//	@Router		/payments/evidence/{fileId} [get]
func (h *PaymentHandler) DownloadEvidence(c *gin.Context) {
	file, err := h.paymentService.DownloadEvidence(c.Request.Context(), c.Param("fileId"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "File not found")
			return
		}
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *PaymentHandler) paymentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Invalid payment ID format")
		return uuid.Nil, false
	}
	return id, true
}

func (h *PaymentHandler) handlePaymentError(c *gin.Context, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		h.NotFound(c, "Payment not found")
		return
	}
	h.handleError(c, err, dto.PaymentWireField)
}
