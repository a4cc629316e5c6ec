package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "campbook/pkg/errors"
	"campbook/pkg/idempotency"
	"campbook/pkg/logger"
	"campbook/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu        sync.Mutex
	responses map[string]idempotency.CachedResponse
	claims    map[string]bool
	err       error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{responses: map[string]idempotency.CachedResponse{}, claims: map[string]bool{}}
}

func (c *memoryCache) Claim(_ context.Context, id string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	if c.claims[id] {
		return false, nil
	}
	c.claims[id] = true
	return true, nil
}

func (c *memoryCache) Release(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.claims, id)
	return nil
}

func (c *memoryCache) LoadResponse(_ context.Context, id string) (*idempotency.CachedResponse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	resp, ok := c.responses[id]
	if !ok {
		return nil, false, nil
	}
	return &resp, true, nil
}

func (c *memoryCache) SaveResponse(_ context.Context, id string, resp idempotency.CachedResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[id] = resp
	return nil
}

func countingHandler(calls *int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"call":` + string(rune('0'+n)) + `}`))
	})
}

func postWithKey(path, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req
}

func TestIdempotency_ReplaysSuccessfulResponse(t *testing.T) {
	var calls int32
	h := Idempotency(newMemoryCache(), time.Minute, logger.NewNop())(countingHandler(&calls, http.StatusCreated))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, postWithKey("/api/v1/bookings", "abc"))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, postWithKey("/api/v1/bookings", "abc"))

	assert.Equal(t, int32(1), calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.Empty(t, first.Header().Get(ReplayedHeader))
}

func TestIdempotency_KeyIsScopedToPath(t *testing.T) {
	var calls int32
	h := Idempotency(newMemoryCache(), time.Minute, logger.NewNop())(countingHandler(&calls, http.StatusCreated))

	h.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/bookings", "abc"))
	h.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/payments", "abc"))

	assert.Equal(t, int32(2), calls)
}

func TestIdempotency_FailuresAreNotCached(t *testing.T) {
	var calls int32
	h := Idempotency(newMemoryCache(), time.Minute, logger.NewNop())(countingHandler(&calls, http.StatusConflict))

	h.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/bookings", "abc"))
	h.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/bookings", "abc"))

	assert.Equal(t, int32(2), calls)
}

func TestIdempotency_InFlightKeyIsRefused(t *testing.T) {
	cache := newMemoryCache()
	cache.claims["/api/v1/bookings:abc"] = true
	var calls int32
	h := Idempotency(cache, time.Minute, logger.NewNop())(countingHandler(&calls, http.StatusCreated))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, postWithKey("/api/v1/bookings", "abc"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, calls)
}

func TestIdempotency_CacheOutageFailsOpen(t *testing.T) {
	cache := newMemoryCache()
	cache.err = errors.New("redis down")
	var calls int32
	h := Idempotency(cache, time.Minute, logger.NewNop())(countingHandler(&calls, http.StatusCreated))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, postWithKey("/api/v1/bookings", "abc"))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int32(1), calls)
}

func TestIdempotency_WithoutKeyPassesThrough(t *testing.T) {
	var calls int32
	h := Idempotency(newMemoryCache(), time.Minute, logger.NewNop())(countingHandler(&calls, http.StatusCreated))

	h.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/bookings", ""))
	h.ServeHTTP(httptest.NewRecorder(), postWithKey("/api/v1/bookings", ""))

	assert.Equal(t, int32(2), calls)
}

func TestContentTypeValidation(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := ContentTypeValidation(logger.NewNop())(ok)

	tests := []struct {
		name        string
		body        string
		contentType string
		want        int
	}{
		{"json", `{}`, "application/json; charset=utf-8", http.StatusNoContent},
		{"form", `a=b`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"bodyless post", ``, "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/1/confirm", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	h := MaxRequestSize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"too long"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRequestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	RequestTimeout(10*time.Millisecond)(slow).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeTimeout)
}

func TestRecovery(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	rec := httptest.NewRecorder()
	Recovery(logger.NewNop())(panicky).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeInternal)
}

func TestRequestLogging_PropagatesRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.NotEqual(t, "req-42", seen)
}

func TestHTTPMetrics_CollapsesIDs(t *testing.T) {
	m := metrics.NewNop()
	h := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/bookings/17/confirm", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/bookings/18/confirm", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/bookings/:id/confirm", "200")))
}
