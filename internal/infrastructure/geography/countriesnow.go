package geography

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	domaingeo "github.com/paymentmanager/backend/internal/domain/geography"
	"github.com/paymentmanager/backend/internal/domain/shared"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public countriesnow.space API
const DefaultBaseURL = "https://countriesnow.space/api/v0.1"

const maxResponseSize = 8 << 20

// CountriesNowClient implements domaingeo.DataSource over the countriesnow.space API
type CountriesNowClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
	logger     *zap.Logger
}

var _ domaingeo.DataSource = (*CountriesNowClient)(nil)

// Option configures a CountriesNowClient
type Option func(*CountriesNowClient)

// WithHTTPClient replaces the default instrumented HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *CountriesNowClient) {
		c.httpClient = client
	}
}

// WithMaxRetries sets how often a request is retried after a transport
// failure or a 5xx answer
func WithMaxRetries(n uint64) Option {
	return func(c *CountriesNowClient) {
		c.maxRetries = n
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *CountriesNowClient) {
		c.logger = logger
	}
}

// NewCountriesNowClient creates a client for baseURL; an empty baseURL uses DefaultBaseURL
func NewCountriesNowClient(baseURL string, timeout time.Duration, opts ...Option) *CountriesNowClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &CountriesNowClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxRetries: 2,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the response wrapper used by every endpoint
type envelope[T any] struct {
	Error bool   `json:"error"`
	Msg   string `json:"msg"`
	Data  T      `json:"data"`
}

type isoCountry struct {
	Name string `json:"name"`
	Iso2 string `json:"Iso2"`
}

type stateList struct {
	States []struct {
		Name      string `json:"name"`
		StateCode string `json:"state_code"`
	} `json:"states"`
}

type currencyData struct {
	Currency string `json:"currency"`
}

// ListCountries returns every known country
func (c *CountriesNowClient) ListCountries(ctx context.Context) ([]domaingeo.Country, error) {
	var resp envelope[[]isoCountry]
	if err := c.do(ctx, http.MethodGet, "/countries/iso", nil, &resp); err != nil {
		return nil, err
	}
	countries := make([]domaingeo.Country, 0, len(resp.Data))
	for _, ic := range resp.Data {
		countries = append(countries, domaingeo.Country{Name: ic.Name, ISO2: ic.Iso2})
	}
	return countries, nil
}

// ListStates returns the states of a country
func (c *CountriesNowClient) ListStates(ctx context.Context, country string) ([]string, error) {
	var resp envelope[stateList]
	if err := c.do(ctx, http.MethodPost, "/countries/states", map[string]string{"country": country}, &resp); err != nil {
		return nil, err
	}
	states := make([]string, 0, len(resp.Data.States))
	for _, s := range resp.Data.States {
		states = append(states, s.Name)
	}
	return states, nil
}

// ListCities returns every city of a country
func (c *CountriesNowClient) ListCities(ctx context.Context, country string) ([]string, error) {
	var resp envelope[[]string]
	if err := c.do(ctx, http.MethodPost, "/countries/cities", map[string]string{"country": country}, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Data), nil
}

// ListCitiesForState returns the cities of one state
func (c *CountriesNowClient) ListCitiesForState(ctx context.Context, country, state string) ([]string, error) {
	var resp envelope[[]string]
	body := map[string]string{"country": country, "state": state}
	if err := c.do(ctx, http.MethodPost, "/countries/state/cities", body, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Data), nil
}

// GetCurrency returns the ISO 4217 code used by a country
func (c *CountriesNowClient) GetCurrency(ctx context.Context, country string) (string, error) {
	var resp envelope[currencyData]
	if err := c.do(ctx, http.MethodPost, "/countries/currency", map[string]string{"country": country}, &resp); err != nil {
		return "", err
	}
	return resp.Data.Currency, nil
}

// upstreamError reports an answer the API itself rejected
type upstreamError struct {
	status int
	msg    string
}

func (e *upstreamError) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("countriesnow: HTTP %d: %s", e.status, e.msg)
	}
	return fmt.Sprintf("countriesnow: HTTP %d", e.status)
}

// do sends one request with retries and decodes the JSON envelope into out.
// Every failure is reported as domaingeo.ErrUnavailable.
func (c *CountriesNowClient) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("countriesnow: failed to encode request: %w", err)
		}
	}

	attempt := 0
	op := func() error {
		attempt++
		data, err := c.send(ctx, method, path, payload)
		if err != nil {
			var ue *upstreamError
			if errors.As(err, &ue) && ue.status < http.StatusInternalServerError {
				return backoff.Permanent(err)
			}
			c.logger.Debug("countriesnow request failed",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		if err := json.Unmarshal(data, out); err != nil {
			return backoff.Permanent(fmt.Errorf("countriesnow: failed to decode response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		c.logger.Warn("countriesnow request gave up",
			zap.String("path", path),
			zap.Int("attempts", attempt),
			zap.Error(err))
		return shared.WrapDomainError(shared.CodeDataSourceUnavailable, "Geography data source unavailable", err)
	}
	return nil
}

func (c *CountriesNowClient) send(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("countriesnow: failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("countriesnow: failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var env envelope[json.RawMessage]
		_ = json.Unmarshal(data, &env)
		return nil, &upstreamError{status: resp.StatusCode, msg: env.Msg}
	}

	var env envelope[json.RawMessage]
	if err := json.Unmarshal(data, &env); err == nil && env.Error {
		return nil, &upstreamError{status: resp.StatusCode, msg: env.Msg}
	}
	return data, nil
}

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
