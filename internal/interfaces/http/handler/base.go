package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paymentmanager/backend/internal/domain/payment"
	"github.com/paymentmanager/backend/internal/domain/shared"
	"github.com/paymentmanager/backend/internal/infrastructure/logger"
	"github.com/paymentmanager/backend/internal/interfaces/http/dto"
	"github.com/paymentmanager/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler writes the response envelope shared by all payment endpoints
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}

func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta writes a page of results with its pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, meta *dto.ListMeta) {
	c.JSON(http.StatusOK, dto.NewListResponse(data, meta))
}

func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// fail aborts the chain with an error envelope carrying the request ID
func (h *BaseHandler) fail(c *gin.Context, status int, resp dto.Response) {
	c.AbortWithStatusJSON(status, resp)
}

// ErrorWithCode fails with the status registered for code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.fail(c, dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeBadRequest, message)
}

func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeNotFound, message)
}

func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeInternal, message)
}

// ValidationError fails with one detail per rejected field
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	h.fail(c, http.StatusBadRequest,
		dto.NewValidationErrorResponse("Request validation failed", getRequestID(c), details))
}

// HandleError maps an error returned by the payment service or the
// reference-data resolver onto the envelope. Field errors keep the
// editor field names.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.handleError(c, err, nil)
}

// handleError is HandleError with field names translated by rename.
// A persistence failure outranks any validation error it wraps.
func (h *BaseHandler) handleError(c *gin.Context, err error, rename func(payment.Field) string) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	isDomain := errors.As(err, &domainErr)
	if isDomain && domainErr.Code == shared.CodePersistenceFailed {
		logger.GetGinLogger(c).Error("Payment store failed", zap.Error(err))
		h.ErrorWithCode(c, dto.ErrCodePersistenceFailed, domainErr.Message)
		return
	}

	var fieldErr *payment.ValidationError
	if errors.As(err, &fieldErr) {
		h.ValidationError(c, dto.ValidationDetails(fieldErr.Fields, rename))
		return
	}
	if isDomain {
		h.ErrorWithCode(c, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message)
		return
	}

	logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}
