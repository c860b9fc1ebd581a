package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/paymentmanager/backend/internal/domain/payment"
	"github.com/paymentmanager/backend/internal/interfaces/http/dto"
)

// Binding tags understood by request DTOs in addition to the validator built-ins.
const (
	TagPaymentStatus = "payment_status"
	TagPaymentField  = "payment_field"
)

// SetupValidator registers the payment tags on gin's validator and makes
// binding errors report JSON or form field names. It is safe to call more than once.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(wireName)
	_ = v.RegisterValidation(TagPaymentStatus, func(fl validator.FieldLevel) bool {
		return payment.Status(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation(TagPaymentField, func(fl validator.FieldLevel) bool {
		_, known := payment.ParseField(fl.Field().String())
		return known
	})
}

func wireName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// FormatValidationErrors converts a binding error into an error envelope.
// Decoding failures carry no details.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidJSON, "Malformed request body", requestID)
	}

	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: describe(fe)})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError aborts with 400 and the formatted binding error
func HandleValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

func describe(fe validator.FieldError) string {
	isText := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return payment.MsgRequired
	case "email":
		return payment.MsgEmail
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case TagPaymentStatus:
		return "Unknown payment status: " + fmt.Sprint(fe.Value())
	case TagPaymentField:
		return "Unknown field: " + fmt.Sprint(fe.Value())
	case "min":
		if isText {
			return "Must be at least " + fe.Param() + " characters"
		}
		return "Must be at least " + fe.Param()
	case "max":
		if isText {
			return "Must be at most " + fe.Param() + " characters"
		}
		return "Must be at most " + fe.Param()
	}
	return "Invalid value"
}
