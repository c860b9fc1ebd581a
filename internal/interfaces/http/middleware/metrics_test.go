package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/paymentmanager/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func meteredRouter(t *testing.T) (*gin.Engine, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := HTTPMetrics(mp.Meter("http.server"))
	require.NoError(t, err)

	router := gin.New()
	router.Use(metrics)
	router.GET("/api/v1/payments/:id", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false})
	})
	router.POST("/api/v1/payments", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"success": true})
	})
	return router, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	byName := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			byName[m.Name] = m
		}
	}
	return byName
}

func sumOf(m metricdata.Metrics, attrs ...attribute.KeyValue) int64 {
	want := attribute.NewSet(attrs...)
	for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func TestHTTPMetrics(t *testing.T) {
	router, reader := meteredRouter(t)

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/payments/"+id, nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	}
	w := httptest.NewRecorder()
	body := `{"payee_first_name":"Jane"}`
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	metrics := collectMetrics(t, reader)
	total := metrics["http_server_request_total"]
	assert.EqualValues(t, 2, sumOf(total,
		telemetry.AttrHTTPMethod.String(http.MethodGet),
		telemetry.AttrHTTPRoute.String("/api/v1/payments/:id"),
		telemetry.AttrHTTPStatusCode.Int(http.StatusNotFound),
	), "paths are grouped by route")
	assert.EqualValues(t, 1, sumOf(total,
		telemetry.AttrHTTPMethod.String(http.MethodPost),
		telemetry.AttrHTTPRoute.String("/api/v1/payments"),
		telemetry.AttrHTTPStatusCode.Int(http.StatusCreated),
	))
	assert.EqualValues(t, 1, sumOf(total,
		telemetry.AttrHTTPMethod.String(http.MethodGet),
		telemetry.AttrHTTPRoute.String("unmatched"),
		telemetry.AttrHTTPStatusCode.Int(http.StatusNotFound),
	))

	assert.EqualValues(t, 0, sumOf(metrics["http_server_active_requests"]), "every request finished")

	reqSize := metrics["http_server_request_size_bytes"].Data.(metricdata.Histogram[float64]).DataPoints
	require.Len(t, reqSize, 1, "only the POST carried a body")
	assert.EqualValues(t, len(body), reqSize[0].Sum)

	duration := metrics["http_server_request_duration_seconds"].Data.(metricdata.Histogram[float64]).DataPoints
	var count uint64
	for _, dp := range duration {
		count += dp.Count
	}
	assert.EqualValues(t, 4, count)
}

func TestHTTPMetrics_NilMeter(t *testing.T) {
	metrics, err := HTTPMetrics(nil)
	require.NoError(t, err)

	router := gin.New()
	router.Use(metrics)
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
