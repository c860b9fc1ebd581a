package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func bufferLogger(buf *bytes.Buffer) *zap.Logger {
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(buf), zapcore.DebugLevel))
}

func sampledSpanContext() trace.SpanContext {
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
		SpanID:     trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		TraceFlags: trace.FlagsSampled,
	})
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}

func TestRequestAndDraftIDs(t *testing.T) {
	ctx := WithDraftID(WithRequestID(context.Background(), "req-1"), "draft-9")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "draft-9", GetDraftID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Empty(t, GetDraftID(context.Background()))
}

func TestGetTraceID(t *testing.T) {
	t.Run("valid span context", func(t *testing.T) {
		ctx := trace.ContextWithSpanContext(context.Background(), sampledSpanContext())
		assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", GetTraceID(ctx))
	})

	t.Run("noop tracer yields no trace id", func(t *testing.T) {
		ctx, span := noop.NewTracerProvider().Tracer("test").Start(context.Background(), "span")
		defer span.End()
		assert.Empty(t, GetTraceID(ctx))
	})
}

func TestContextLogger(t *testing.T) {
	t.Run("adds correlation fields", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := trace.ContextWithSpanContext(context.Background(), sampledSpanContext())
		ctx = WithRequestID(ctx, "req-aaa")
		ctx = WithDraftID(ctx, "draft-bbb")
		ctx = WithContext(ctx, bufferLogger(&buf))

		L(ctx).Info("cascade resolved", zap.String("country", "US"))

		output := buf.String()
		assert.Contains(t, output, `"msg":"cascade resolved"`)
		assert.Contains(t, output, `"request_id":"req-aaa"`)
		assert.Contains(t, output, `"draft_id":"draft-bbb"`)
		assert.Contains(t, output, `"trace_id":"0102030405060708090a0b0c0d0e0f10"`)
		assert.Contains(t, output, `"span_id":"0102030405060708"`)
		assert.Contains(t, output, `"country":"US"`)
	})

	t.Run("omits empty fields", func(t *testing.T) {
		var buf bytes.Buffer
		WithLogger(context.Background(), bufferLogger(&buf)).Warn("plain")

		output := buf.String()
		assert.Contains(t, output, `"msg":"plain"`)
		assert.NotContains(t, output, "request_id")
		assert.NotContains(t, output, "trace_id")
		assert.NotContains(t, output, "draft_id")
	})

	t.Run("with chains fields", func(t *testing.T) {
		var buf bytes.Buffer
		cl := WithLogger(WithRequestID(context.Background(), "r"), bufferLogger(&buf)).
			With(zap.String("field1", "value1")).
			With(zap.String("field2", "value2"))

		cl.Error("chained")

		output := buf.String()
		assert.Contains(t, output, `"field1":"value1"`)
		assert.Contains(t, output, `"field2":"value2"`)
		assert.Contains(t, output, `"request_id":"r"`)
	})

	t.Run("without a logger in context", func(t *testing.T) {
		assert.NotPanics(t, func() {
			L(context.Background()).Debug("discarded")
			_ = L(context.Background()).Zap()
		})
	})
}
