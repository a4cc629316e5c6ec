package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	apperrors "campbook/pkg/errors"
	"campbook/pkg/idempotency"
	"campbook/pkg/logger"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 128
)

// ResponseCache is the part of *idempotency.Store the middleware uses
type ResponseCache interface {
	Claim(ctx context.Context, id string, lease time.Duration) (bool, error)
	Release(ctx context.Context, id string) error
	LoadResponse(ctx context.Context, id string) (*idempotency.CachedResponse, bool, error)
	SaveResponse(ctx context.Context, id string, resp idempotency.CachedResponse) error
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the stored reply for a POST carrying an
// Idempotency-Key that already succeeded. Concurrent requests with the same
// key are refused while the first one runs. Only 2xx replies are stored, so
// a conflict or validation failure can be retried under the same key.
// When the cache is unreachable requests run without protection.
func Idempotency(cache ResponseCache, lease time.Duration, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLength {
				_ = apperrors.WriteError(w, apperrors.InvalidInput("Idempotency-Key is too long"))
				return
			}

			ctx := r.Context()
			id := r.URL.Path + ":" + key

			cached, found, err := cache.LoadResponse(ctx, id)
			if err != nil {
				log.Warn("Idempotency cache unavailable", "request_id", RequestID(ctx), "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if found {
				replay(w, cached)
				return
			}

			claimed, err := cache.Claim(ctx, id, lease)
			if err != nil {
				log.Warn("Idempotency claim failed", "request_id", RequestID(ctx), "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !claimed {
				_ = apperrors.WriteError(w, apperrors.Conflict("A request with this Idempotency-Key is already in progress"))
				return
			}
			defer func() {
				if err := cache.Release(context.WithoutCancel(ctx), id); err != nil {
					log.Warn("Failed to release idempotency claim", "request_id", RequestID(ctx), "error", err)
				}
			}()

			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(capture, r)

			if capture.statusCode < 200 || capture.statusCode >= 300 {
				return
			}
			resp := idempotency.CachedResponse{
				Status:      capture.statusCode,
				ContentType: w.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			}
			if err := cache.SaveResponse(context.WithoutCancel(ctx), id, resp); err != nil {
				log.Warn("Failed to store idempotent response", "request_id", RequestID(ctx), "error", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, cached *idempotency.CachedResponse) {
	if cached.ContentType != "" {
		w.Header().Set("Content-Type", cached.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(cached.Status)
	_, _ = w.Write(cached.Body)
}
