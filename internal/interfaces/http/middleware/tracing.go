package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing returns the handlers that open a server span per request and
// annotate it. Spans are named after the matched route, so
// /api/v1/payments/:id rather than the raw path. When enabled is
// false a single pass-through handler is returned. Install after RequestID.
func Tracing(service string, enabled bool, opts ...otelgin.Option) []gin.HandlerFunc {
	if !enabled {
		return []gin.HandlerFunc{func(c *gin.Context) { c.Next() }}
	}
	return []gin.HandlerFunc{otelgin.Middleware(service, opts...), annotateSpan}
}

// annotateSpan copies the request and draft ids onto the active span and
// fails the span when the response is a 4xx or 5xx.
func annotateSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		c.Next()
		return
	}

	var attrs []attribute.KeyValue
	if id := GetRequestID(c); id != "" {
		attrs = append(attrs, attribute.String("request_id", id))
	}
	if id := c.Param("draftId"); id != "" {
		attrs = append(attrs, attribute.String("draft_id", id))
	}
	span.SetAttributes(attrs...)

	c.Next()

	if status := c.Writer.Status(); status >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
