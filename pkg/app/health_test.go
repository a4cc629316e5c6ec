package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"campbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, checks map[string]Check, path string) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	router := httprouter.New()
	NewHealthHandler(checks, logger.NewNop()).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func ok(context.Context) error { return nil }

func TestReady_AllDependenciesUp(t *testing.T) {
	rec, resp := serve(t, map[string]Check{"postgres": ok, "redis": ok}, "/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, resp.Dependencies)
}

func TestReady_OneDependencyDown(t *testing.T) {
	down := func(context.Context) error { return errors.New("connection refused") }
	rec, resp := serve(t, map[string]Check{"postgres": down, "redis": ok}, "/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", resp.Status)
	assert.Equal(t, "error", resp.Dependencies["postgres"])
	assert.Equal(t, "ok", resp.Dependencies["redis"])
}

func TestHealth_DoesNotProbe(t *testing.T) {
	called := false
	probe := func(context.Context) error { called = true; return nil }
	rec, resp := serve(t, map[string]Check{"postgres": probe}, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, called)
}
