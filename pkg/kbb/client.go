// Package kbb provides a client for the KBB InfoDriver valuation API with
// call spacing, daily-quota tracking, and bounded retry on throttling.
package kbb

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client defines the provider operations used by a valuation session.
type Client interface {
	// GetVehicleByVin returns the factory-decoded trim candidates for a VIN.
	GetVehicleByVin(ctx context.Context, vin string) (*VinResult, error)
	// GetMakes lists the makes available for a model year.
	GetMakes(ctx context.Context, year int) ([]Make, error)
	// GetModels lists the models for a make and model year.
	GetModels(ctx context.Context, year, makeID int) ([]Model, error)
	// GetVehicles lists the trim-level vehicles for a year/make/model.
	GetVehicles(ctx context.Context, year, makeID, modelID int) ([]TrimSummary, error)
	// GetVehicleOptions returns the option catalog for a vehicle id.
	GetVehicleOptions(ctx context.Context, vehicleID int) ([]VehicleOption, error)
	// ApplyConfiguration replays option selections and returns the
	// provider-resolved final configuration.
	ApplyConfiguration(ctx context.Context, starting []int, changes []ConfigurationChange) (*FinalConfiguration, error)
	// GetValues prices a configured vehicle.
	GetValues(ctx context.Context, vehicleID int, optionIDs []int, mileage int, zipCode string) (*Values, error)

	// Calls returns the number of successful provider calls made since the
	// last reset.
	Calls() int
	// ResetCalls zeroes the call counter. Called once per vehicle session.
	ResetCalls()
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(baseURL string) Option {
	return func(c *httpClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithCallSpacing sets the minimum wall-clock gap between provider calls.
// Zero disables spacing.
func WithCallSpacing(gap time.Duration) Option {
	return func(c *httpClient) {
		if gap > 0 {
			c.limiter = rate.NewLimiter(rate.Every(gap), 1)
		} else {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// WithRetry sets the fixed wait between 429 retries and the retry bound.
func WithRetry(wait time.Duration, maxRetries int) Option {
	return func(c *httpClient) {
		c.retryWait = wait
		c.maxRetries = maxRetries
	}
}

// WithQuotaGauge shares a quota gauge across clients.
func WithQuotaGauge(g *QuotaGauge) Option {
	return func(c *httpClient) {
		c.quota = g
	}
}

type httpClient struct {
	apiKey     string
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	quota      *QuotaGauge
	retryWait  time.Duration
	maxRetries int
	calls      atomic.Int64
}

// NewClient creates a provider client. Clients are cheap and worker-scoped;
// only the quota gauge is meant to be shared.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.kbb.com/idws",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		quota:      NewQuotaGauge(),
		retryWait:  time.Second,
		maxRetries: 60,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Calls() int {
	return int(c.calls.Load())
}

func (c *httpClient) ResetCalls() {
	c.calls.Store(0)
}

// call issues one provider request, enforcing call spacing, recording quota
// headers, and retrying 429 responses at a fixed interval while the quota
// gauge still shows capacity.
func (c *httpClient) call(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return eris.Wrap(err, "kbb: marshal request body")
		}
	}

	params := url.Values{}
	for k, vs := range query {
		params[k] = vs
	}
	params.Set("api_key", c.apiKey)
	reqURL := c.baseURL + "/" + path + "?" + params.Encode()

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "kbb: call spacing wait")
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
		if err != nil {
			return eris.Wrap(err, "kbb: create request")
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return eris.Wrapf(err, "kbb: %s %s", method, path)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return eris.Wrapf(readErr, "kbb: read response from %s", path)
		}

		if v := resp.Header.Get(HeaderRemainingDay); v != "" {
			if n, parseErr := strconv.Atoi(v); parseErr == nil {
				c.quota.Observe(n)
			}
		}
		requestsTotal.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt >= c.maxRetries || c.quota.Exhausted() {
				return &ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
			}
			retriesTotal.Inc()
			zap.L().Warn("kbb throttled, retrying",
				zap.String("endpoint", path),
				zap.Int("attempt", attempt+1),
				zap.Int("quota_remaining", c.quota.Remaining()),
			)
			t := time.NewTimer(c.retryWait)
			select {
			case <-ctx.Done():
				t.Stop()
				return eris.Wrap(ctx.Err(), "kbb: retry wait")
			case <-t.C:
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}

		c.calls.Add(1)

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return &ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
			}
		}
		return nil
	}
}

func (c *httpClient) GetVehicleByVin(ctx context.Context, vin string) (*VinResult, error) {
	query := url.Values{"VehicleClass": {"UsedCar"}}
	var out VinResult
	if err := c.call(ctx, http.MethodGet, "vehicle/vin/id/"+url.PathEscape(vin), query, nil, &out); err != nil {
		return nil, eris.Wrapf(err, "kbb: vin lookup %s", vin)
	}
	return &out, nil
}

// listLimit caps catalog listings at one generously sized page.
const listLimit = "500"

func (c *httpClient) GetMakes(ctx context.Context, year int) ([]Make, error) {
	query := url.Values{
		"limit":  {listLimit},
		"yearid": {strconv.Itoa(year)},
	}
	var out itemsPage[Make]
	if err := c.call(ctx, http.MethodGet, "vehicle/makes", query, nil, &out); err != nil {
		return nil, eris.Wrap(err, "kbb: list makes")
	}
	return out.Items, nil
}

func (c *httpClient) GetModels(ctx context.Context, year, makeID int) ([]Model, error) {
	query := url.Values{
		"limit":  {listLimit},
		"yearid": {strconv.Itoa(year)},
		"makeid": {strconv.Itoa(makeID)},
	}
	var out itemsPage[Model]
	if err := c.call(ctx, http.MethodGet, "vehicle/models", query, nil, &out); err != nil {
		return nil, eris.Wrap(err, "kbb: list models")
	}
	return out.Items, nil
}

func (c *httpClient) GetVehicles(ctx context.Context, year, makeID, modelID int) ([]TrimSummary, error) {
	query := url.Values{
		"limit":   {listLimit},
		"yearid":  {strconv.Itoa(year)},
		"makeid":  {strconv.Itoa(makeID)},
		"modelId": {strconv.Itoa(modelID)},
	}
	var out itemsPage[TrimSummary]
	if err := c.call(ctx, http.MethodGet, "vehicle/vehicles", query, nil, &out); err != nil {
		return nil, eris.Wrap(err, "kbb: list vehicles")
	}
	return out.Items, nil
}

func (c *httpClient) GetVehicleOptions(ctx context.Context, vehicleID int) ([]VehicleOption, error) {
	query := url.Values{"vehicleId": {strconv.Itoa(vehicleID)}}
	var out itemsPage[VehicleOption]
	if err := c.call(ctx, http.MethodGet, "vehicle/vehicleoptions", query, nil, &out); err != nil {
		return nil, eris.Wrapf(err, "kbb: options for vehicle %d", vehicleID)
	}
	return out.Items, nil
}

func (c *httpClient) ApplyConfiguration(ctx context.Context, starting []int, changes []ConfigurationChange) (*FinalConfiguration, error) {
	req := applyConfigurationRequest{
		StartingConfiguration: starting,
		ConfigurationChanges:  changes,
	}
	var out applyConfigurationResponse
	if err := c.call(ctx, http.MethodPost, "vehicle/applyconfiguration", nil, req, &out); err != nil {
		return nil, eris.Wrap(err, "kbb: apply configuration")
	}
	return &out.FinalConfiguration, nil
}

func (c *httpClient) GetValues(ctx context.Context, vehicleID int, optionIDs []int, mileage int, zipCode string) (*Values, error) {
	if optionIDs == nil {
		optionIDs = []int{}
	}
	req := valuesRequest{
		Configuration: valuesConfiguration{
			VehicleID:        vehicleID,
			VehicleOptionIDs: optionIDs,
		},
		Mileage: mileage,
		ZipCode: zipCode,
	}
	var out Values
	if err := c.call(ctx, http.MethodPost, "vehicle/values", nil, req, &out); err != nil {
		return nil, eris.Wrapf(err, "kbb: values for vehicle %d", vehicleID)
	}
	return &out, nil
}
