package geography

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	domaingeo "github.com/paymentmanager/backend/internal/domain/geography"
	"github.com/paymentmanager/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCountriesNow struct {
	*httptest.Server
	calls    atomic.Int32
	failures atomic.Int32 // number of 503 answers before serving normally
}

func newFakeCountriesNow(t *testing.T) *fakeCountriesNow {
	f := &fakeCountriesNow{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /countries/iso", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"error": false,
			"msg":   "countries and ISO codes retrieved",
			"data": []map[string]string{
				{"name": "Chile", "Iso2": "CL", "Iso3": "CHL"},
				{"name": "United States", "Iso2": "US", "Iso3": "USA"},
			},
		})
	})
	mux.HandleFunc("POST /countries/states", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		if body["country"] != "United States" {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": true, "msg": "country not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"error": false,
			"data": map[string]any{
				"name": "United States",
				"states": []map[string]string{
					{"name": "Texas", "state_code": "TX"},
					{"name": "Utah", "state_code": "UT"},
				},
			},
		})
	})
	mux.HandleFunc("POST /countries/cities", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"error": false, "data": []string{"Austin", "Boston"}})
	})
	mux.HandleFunc("POST /countries/state/cities", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "Texas", body["state"])
		writeJSON(w, http.StatusOK, map[string]any{"error": false, "data": nil})
	})
	mux.HandleFunc("POST /countries/currency", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"error": false,
			"data":  map[string]string{"name": "Chile", "currency": "CLP", "iso2": "CL"},
		})
	})

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if f.failures.Load() > 0 {
			f.failures.Add(-1)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(t *testing.T, r *http.Request) map[string]string {
	var body map[string]string
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestCountriesNowClient(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCountriesNow(t)
	client := NewCountriesNowClient(fake.URL+"/", time.Second)

	t.Run("countries", func(t *testing.T) {
		countries, err := client.ListCountries(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domaingeo.Country{
			{Name: "Chile", ISO2: "CL"},
			{Name: "United States", ISO2: "US"},
		}, countries)
	})

	t.Run("states", func(t *testing.T) {
		states, err := client.ListStates(ctx, "United States")
		require.NoError(t, err)
		assert.Equal(t, []string{"Texas", "Utah"}, states)
	})

	t.Run("cities", func(t *testing.T) {
		cities, err := client.ListCities(ctx, "United States")
		require.NoError(t, err)
		assert.Equal(t, []string{"Austin", "Boston"}, cities)
	})

	t.Run("state cities null data is empty", func(t *testing.T) {
		cities, err := client.ListCitiesForState(ctx, "United States", "Texas")
		require.NoError(t, err)
		assert.NotNil(t, cities)
		assert.Empty(t, cities)
	})

	t.Run("currency", func(t *testing.T) {
		currency, err := client.GetCurrency(ctx, "Chile")
		require.NoError(t, err)
		assert.Equal(t, "CLP", currency)
	})
}

func TestCountriesNowClient_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("client error is not retried", func(t *testing.T) {
		fake := newFakeCountriesNow(t)
		client := NewCountriesNowClient(fake.URL, time.Second, WithMaxRetries(3))

		_, err := client.ListStates(ctx, "Atlantis")
		require.Error(t, err)
		assert.ErrorIs(t, err, domaingeo.ErrUnavailable)
		assert.Contains(t, err.Error(), "country not found")
		assert.Equal(t, int32(1), fake.calls.Load())
	})

	t.Run("server errors are retried", func(t *testing.T) {
		fake := newFakeCountriesNow(t)
		fake.failures.Store(2)
		client := NewCountriesNowClient(fake.URL, time.Second, WithMaxRetries(2))

		currency, err := client.GetCurrency(ctx, "Chile")
		require.NoError(t, err)
		assert.Equal(t, "CLP", currency)
		assert.Equal(t, int32(3), fake.calls.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		fake := newFakeCountriesNow(t)
		fake.failures.Store(10)
		client := NewCountriesNowClient(fake.URL, time.Second, WithMaxRetries(1))

		_, err := client.ListCountries(ctx)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, shared.CodeDataSourceUnavailable, derr.Code)
		assert.Equal(t, int32(2), fake.calls.Load())
	})

	t.Run("unreachable host", func(t *testing.T) {
		fake := newFakeCountriesNow(t)
		url := fake.URL
		fake.Close()
		client := NewCountriesNowClient(url, 200*time.Millisecond, WithMaxRetries(0))

		_, err := client.ListCities(ctx, "Chile")
		assert.ErrorIs(t, err, shared.ErrDataSourceUnavailable)
	})

	t.Run("cancelled context", func(t *testing.T) {
		fake := newFakeCountriesNow(t)
		client := NewCountriesNowClient(fake.URL, time.Second)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := client.ListCountries(cctx)
		assert.Error(t, err)
	})
}
