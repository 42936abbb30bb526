package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reytechinc/scprs-backend/internal/pricing"
	"github.com/reytechinc/scprs-backend/internal/pricestore"
	"github.com/reytechinc/scprs-backend/internal/seeder"
	"github.com/reytechinc/scprs-backend/pkg/config"
	"github.com/reytechinc/scprs-backend/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubProber struct {
	connected bool
	message   string
}

func (s stubProber) Probe(context.Context) (bool, string) { return s.connected, s.message }

type stubPricing struct {
	result *pricing.LookupResult
	err    error
}

func (s stubPricing) FindPrice(context.Context, pricing.LookupRequest) (*pricing.LookupResult, error) {
	return s.result, s.err
}

func (s stubPricing) BulkLookup(_ context.Context, reqs []pricing.LookupRequest) []pricing.BulkItem {
	items := make([]pricing.BulkItem, 0, len(reqs))
	for _, req := range reqs {
		items = append(items, pricing.BulkItem{Request: req, Result: s.result})
	}
	return items
}

func (s stubPricing) Stats(context.Context) (pricestore.Stats, error) {
	return pricestore.Stats{TotalEntries: 7}, nil
}

type stubSeeder struct {
	status seeder.Status
}

func (s *stubSeeder) Start(opts seeder.StartOptions) (seeder.Status, error) {
	s.status = seeder.Status{Running: true, Priority: opts.Priority, RunID: "run-1"}
	return s.status, nil
}
func (s *stubSeeder) Stop() seeder.Status   { return s.status }
func (s *stubSeeder) Status() seeder.Status { return s.status }

func newTestRouter(t *testing.T, pricingSvc pricing.Service) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	return NewRouter(RouterParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Store:      stubPinger{},
		Prober:     stubProber{connected: true, message: "connected"},
		Pricing:    pricingSvc,
		Seeder:     &stubSeeder{},
		Prometheus: prometheus.NewRegistry(),
	})
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, stubPricing{})

	rec := doJSON(t, router, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-SCPRS-Env"))

	rec = doJSON(t, router, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPricingLookupRoute(t *testing.T) {
	price := decimal.RequireFromString("62.50")
	router := newTestRouter(t, stubPricing{result: &pricing.LookupResult{
		Price:      price,
		Source:     pricing.SourceLocalExact,
		Confidence: pricing.ConfidenceHigh,
	}})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/pricing/lookup",
		map[string]string{"item_number": "6500-001-430"})
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			Found  bool                  `json:"found"`
			Result *pricing.LookupResult `json:"result"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.True(t, envelope.Data.Found)
	require.NotNil(t, envelope.Data.Result)
	assert.Equal(t, pricing.SourceLocalExact, envelope.Data.Result.Source)
}

func TestPricingLookupMiss(t *testing.T) {
	router := newTestRouter(t, stubPricing{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/pricing/lookup",
		map[string]string{"description": "unobtainium widget"})
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			Found bool `json:"found"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.False(t, envelope.Data.Found)
}

func TestPricingLookupRejectsEmptyBody(t *testing.T) {
	router := newTestRouter(t, stubPricing{})
	rec := doJSON(t, router, http.MethodPost, "/api/v1/pricing/lookup", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkRouteCapsBatch(t *testing.T) {
	router := newTestRouter(t, stubPricing{})

	items := make([]map[string]string, 51)
	for i := range items {
		items[i] = map[string]string{"description": "thing"}
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/pricing/bulk",
		map[string]any{"items": items})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeederRoutes(t *testing.T) {
	router := newTestRouter(t, stubPricing{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/seeder/start",
		map[string]string{"priority": "P1"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/seeder/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data seeder.Status `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.True(t, envelope.Data.Running)
	assert.Equal(t, "P1", envelope.Data.Priority)
}

func TestPortalHealthRoute(t *testing.T) {
	router := newTestRouter(t, stubPricing{})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/portal/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			Connected bool   `json:"connected"`
			Message   string `json:"message"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.True(t, envelope.Data.Connected)
}

func TestMetricsRoute(t *testing.T) {
	router := newTestRouter(t, stubPricing{})
	rec := doJSON(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
