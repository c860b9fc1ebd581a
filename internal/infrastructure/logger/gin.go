package logger

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ginLoggerKey = "logger"

// GinMiddleware writes one access line per request and hands a logger
// scoped to the request to everything downstream, through the gin context
// (GetGinLogger) and the request context (L). Paths in skipPaths are still
// scoped but produce no access line.
func GinMiddleware(base *zap.Logger, skipPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		quiet[p] = true
	}

	return func(c *gin.Context) {
		began := time.Now()
		req := c.Request
		requestID := c.GetString("request_id")

		scoped := base.With(
			zap.String("request_id", requestID),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
		)
		c.Set(ginLoggerKey, scoped)
		ctx := WithContext(req.Context(), scoped)
		if requestID != "" {
			ctx = WithRequestID(ctx, requestID)
		}
		c.Request = req.WithContext(ctx)

		c.Next()

		if quiet[req.URL.Path] {
			return
		}
		status := c.Writer.Status()
		if ce := scoped.Check(accessLevel(status), "HTTP Request"); ce != nil {
			ce.Write(accessFields(c, status, time.Since(began), req.URL.RawQuery)...)
		}
	}
}

func accessLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

func accessFields(c *gin.Context, status int, latency time.Duration, query string) []zap.Field {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.Duration("latency", latency),
		zap.String("client_ip", c.ClientIP()),
		zap.Int("body_size", c.Writer.Size()),
	}
	for _, kv := range [...][2]string{
		{"query", query},
		{"route", c.FullPath()},
		{"trace_id", GetTraceID(c.Request.Context())},
	} {
		if kv[1] != "" {
			fields = append(fields, zap.String(kv[0], kv[1]))
		}
	}
	if len(c.Errors) > 0 {
		fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
	}
	return fields
}

// Recovery turns a handler panic into a bare 500 and logs it with a stack.
// Broken client connections are left to gin's recovery logic.
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		base.Error("Panic recovered",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("error", recovered),
			zap.Stack("stacktrace"),
		)
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// GetGinLogger returns the logger GinMiddleware stored on c, or a no-op
// logger outside that middleware.
func GetGinLogger(c *gin.Context) *zap.Logger {
	if l, ok := c.Value(ginLoggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
