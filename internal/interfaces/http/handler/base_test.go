package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/paymentmanager/backend/internal/domain/payment"
	"github.com/paymentmanager/backend/internal/domain/shared"
	"github.com/paymentmanager/backend/internal/interfaces/http/dto"
	"github.com/paymentmanager/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// APIResponse decodes the response envelope with a typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
	Meta    *dto.ListMeta  `json:"meta"`
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	decodeInto(t, w, &resp)
	return resp
}

func decodeInto(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestGetRequestID(t *testing.T) {
	c, _ := newTestContext()
	assert.Empty(t, getRequestID(c))

	c.Request.Header.Set(middleware.RequestIDHeader, "from-header")
	assert.Equal(t, "from-header", getRequestID(c))

	c.Set(middleware.RequestIDKey, "from-context")
	assert.Equal(t, "from-context", getRequestID(c), "the context value outranks the header")
}

func TestBaseHandler_SuccessEnvelopes(t *testing.T) {
	h := &BaseHandler{}
	tests := []struct {
		name     string
		write    func(*gin.Context)
		status   int
		wantMeta bool
	}{
		{"success", func(c *gin.Context) { h.Success(c, gin.H{"id": "p-1"}) }, http.StatusOK, false},
		{"created", func(c *gin.Context) { h.Created(c, gin.H{"id": "p-2"}) }, http.StatusCreated, false},
		{"page", func(c *gin.Context) {
			h.SuccessWithMeta(c, []string{"p-1", "p-2"}, dto.NewListMeta("/api/v1/payments", 1, 10, 10, 100, nil))
		}, http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext()
			tt.write(c)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			assert.True(t, resp.Success)
			assert.Nil(t, resp.Error)
			if !tt.wantMeta {
				assert.Nil(t, resp.Meta)
				return
			}
			require.NotNil(t, resp.Meta)
			assert.EqualValues(t, 100, resp.Meta.TotalCount)
			assert.Len(t, resp.Meta.Links, 5)
		})
	}
}

func TestBaseHandlerErrorMethods(t *testing.T) {
	tests := []struct {
		name         string
		method       func(*BaseHandler, *gin.Context)
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "BadRequest",
			method:       func(h *BaseHandler, c *gin.Context) { h.BadRequest(c, "Invalid request") },
			expectedCode: http.StatusBadRequest,
			expectedErr:  dto.ErrCodeBadRequest,
		},
		{
			name:         "NotFound",
			method:       func(h *BaseHandler, c *gin.Context) { h.NotFound(c, "Payment not found") },
			expectedCode: http.StatusNotFound,
			expectedErr:  dto.ErrCodeNotFound,
		},
		{
			name:         "InternalError",
			method:       func(h *BaseHandler, c *gin.Context) { h.InternalError(c, "Server error") },
			expectedCode: http.StatusInternalServerError,
			expectedErr:  dto.ErrCodeInternal,
		},
		{
			name:         "ErrorWithCode derives status",
			method:       func(h *BaseHandler, c *gin.Context) { h.ErrorWithCode(c, dto.ErrCodeFileTooLarge, "Too big") },
			expectedCode: http.StatusRequestEntityTooLarge,
			expectedErr:  dto.ErrCodeFileTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext()

			tt.method(h, c)

			assert.True(t, c.IsAborted())
			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
		})
	}
}

func TestBaseHandlerErrorWithRequestID(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()
	c.Set(middleware.RequestIDKey, "test-request-123")

	h.BadRequest(c, "Invalid request")

	assert.Equal(t, "test-request-123", decodeResponse(t, w).Error.RequestID)
}

func TestBaseHandlerValidationError(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()
	c.Set(middleware.RequestIDKey, "val-req-456")

	h.ValidationError(c, []dto.ValidationDetail{
		{Field: "payee_email", Message: "Invalid format"},
		{Field: "payee_first_name", Message: "Required"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "val-req-456", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)
}

func TestBaseHandlerHandleError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"invalid input", shared.ErrInvalidInput, http.StatusBadRequest, dto.ErrCodeInvalidInput},
		{"evidence required", shared.ErrEvidenceRequired, http.StatusBadRequest, dto.ErrCodeEvidenceRequired},
		{"data source unavailable", shared.ErrDataSourceUnavailable, http.StatusBadGateway, dto.ErrCodeDataSourceUnavailable},
		{"stale response", shared.ErrStaleResponse, http.StatusConflict, dto.ErrCodeConflict},
		{"persistence failed", shared.ErrPersistenceFailed, http.StatusInternalServerError, dto.ErrCodePersistenceFailed},
		{"wrapped domain error", fmt.Errorf("additional context: %w", shared.ErrNotFound), http.StatusNotFound, dto.ErrCodeNotFound},
		{"standard error", assert.AnError, http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext()

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
		})
	}

	t.Run("nil error writes nothing", func(t *testing.T) {
		h := &BaseHandler{}
		c, w := newTestContext()

		h.HandleError(c, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.Bytes())
	})

	t.Run("field validation error lists details", func(t *testing.T) {
		h := &BaseHandler{}
		c, w := newTestContext()

		h.HandleError(c, payment.NewValidationError(map[payment.Field]string{
			payment.FieldEmail:     payment.MsgEmail,
			payment.FieldFirstName: payment.MsgRequired,
		}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 2)
		assert.Equal(t, "email", resp.Error.Details[0].Field)
		assert.Equal(t, "firstName", resp.Error.Details[1].Field)
	})

	t.Run("persistence failure wins over a wrapped validation error", func(t *testing.T) {
		h := &BaseHandler{}
		c, w := newTestContext()

		cause := payment.NewValidationError(map[payment.Field]string{payment.FieldDueAmount: payment.MsgAmountFormat})
		h.HandleError(c, shared.WrapDomainError(shared.CodePersistenceFailed, "Payment could not be saved", cause))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, dto.ErrCodePersistenceFailed, decodeResponse(t, w).Error.Code)
	})
}
