package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/bus"
	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/cache"
	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/observability"
	"github.com/kateb7566/system-health-monitor-etl/internal/app/records"
	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

type harness struct {
	srv   *Server
	bus   *bus.MemBus
	cache *cache.MemCache
}

func newHarness(t *testing.T, st ports.Store, cfg Config, fetcher Fetcher) *harness {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	obs := observability.NewPromObsWithRegisterer(reg, logger)

	b := bus.NewMemBus(8)
	t.Cleanup(func() { _ = b.Close() })
	c := cache.NewMemCache(time.Hour)

	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = 20 * time.Millisecond
	}
	srv := New(cfg, Deps{
		Records: records.NewService(st, c, obs),
		Bus:     b,
		Fetcher: fetcher,
		Obs:     obs,
		Logger:  logger,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return &harness{srv: srv, bus: b, cache: c}
}

func (h *harness) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func testSample(cpu float64) *domain.Sample {
	return &domain.Sample{
		Timestamp:  time.Date(2025, 5, 21, 14, 0, 0, 0, time.UTC),
		CPUPercent: cpu,
		Memory:     map[string]float64{"total": 16000},
		Disk:       map[string]float64{"total": 500000},
		NetIO:      map[string]float64{"bytes_sent": 10},
	}
}

func TestRecordNotFound(t *testing.T) {
	h := newHarness(t, &fakeStore{}, Config{}, nil)

	rec := h.do(http.MethodGet, "/record/999")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"detail": "Record not found!"}`, rec.Body.String())
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRecordFound(t *testing.T) {
	s := testSample(12.5)
	s.ID = 3
	h := newHarness(t, &fakeStore{records: []*domain.Sample{s}}, Config{}, nil)

	rec := h.do(http.MethodGet, "/record/3")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Sample
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, int64(3), got.ID)
	require.Equal(t, 12.5, got.CPUPercent)
}

func TestRecordInvalidID(t *testing.T) {
	h := newHarness(t, &fakeStore{}, Config{}, nil)

	rec := h.do(http.MethodGet, "/record/abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"detail": "Invalid record id"}`, rec.Body.String())
}

func TestRecordsDegradeWhenStoreUnavailable(t *testing.T) {
	h := newHarness(t, &fakeStore{err: errors.New("connection refused")}, Config{}, nil)

	rec := h.do(http.MethodGet, "/records")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = h.do(http.MethodGet, "/record/1")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"detail": "Record store unavailable"}`, rec.Body.String())
}

func TestRecordsListsStore(t *testing.T) {
	a, b := testSample(1), testSample(2)
	a.ID, b.ID = 1, 2
	h := newHarness(t, &fakeStore{records: []*domain.Sample{a, b}}, Config{}, nil)

	rec := h.do(http.MethodGet, "/records")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []domain.Sample
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	require.Equal(t, int64(2), got[1].ID)
}

func TestCacheRoutes(t *testing.T) {
	h := newHarness(t, &fakeStore{}, Config{}, nil)
	ctx := context.Background()
	require.NoError(t, h.cache.Append(ctx, testSample(10)))
	require.NoError(t, h.cache.Append(ctx, testSample(20)))

	rec := h.do(http.MethodGet, "/cache")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []domain.Sample
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 2)

	rec = h.do(http.MethodGet, "/cache/1")
	require.Equal(t, http.StatusOK, rec.Code)
	var one domain.Sample
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	require.Equal(t, 20.0, one.CPUPercent)

	rec = h.do(http.MethodGet, "/cache/7")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/cache/x")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodDelete, "/cache")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodGet, "/cache")
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestFetch(t *testing.T) {
	h := newHarness(t, &fakeStore{}, Config{}, &stubFetcher{sample: testSample(33)})
	rec := h.do(http.MethodPost, "/fetch")
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Sample
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 33.0, got.CPUPercent)

	h = newHarness(t, &fakeStore{}, Config{}, &stubFetcher{})
	rec = h.do(http.MethodPost, "/fetch")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"detail": "No sample collected"}`, rec.Body.String())
}

func TestRequestIDHeader(t *testing.T) {
	h := newHarness(t, &fakeStore{}, Config{}, nil)

	rec := h.do(http.MethodGet, "/records")
	_, err := uuid.Parse(rec.Header().Get("X-Request-Id"))
	require.NoError(t, err)

	provided := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	req.Header.Set("X-Request-Id", provided)
	rec = httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, provided, rec.Header().Get("X-Request-Id"))
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, &fakeStore{}, Config{RateLimit: 1, RateLimitBurst: 1}, nil)
	handler := h.srv.Handler()

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/records", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/records", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.Equal(t, "1", second.Header().Get("Retry-After"))
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, &fakeStore{}, Config{}, nil)

	rec := h.do(http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status": "ok"}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), observability.ActiveViewers))
}

type fakeStore struct {
	records []*domain.Sample
	err     error
}

func (f *fakeStore) Save(context.Context, *domain.Sample) (int64, error) { return 0, f.err }

func (f *fakeStore) QueryAll(context.Context) ([]*domain.Sample, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeStore) QueryByID(_ context.Context, id int64) (*domain.Sample, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ports.ErrNotFound
}

type stubFetcher struct {
	sample *domain.Sample
}

func (s *stubFetcher) FetchNow(context.Context) (*domain.Sample, bool) {
	return s.sample, s.sample != nil
}

func TestPanicRecovered(t *testing.T) {
	h := newHarness(t, &fakeStore{}, Config{}, nil)
	handler := h.srv.withMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Internal server error", body.Detail)
}
