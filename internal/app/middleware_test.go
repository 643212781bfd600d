package app

import (
	"crypto/sha256"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfigWithKey(t *testing.T, key string) *Config {
	t.Helper()
	digest := sha256.Sum256([]byte(key))
	hash, err := bcrypt.GenerateFromPassword(digest[:], bcrypt.MinCost)
	require.NoError(t, err)
	return &Config{APIKeyHash: string(hash)}
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := testConfigWithKey(t, "office-key")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var reached bool
	handler := APIKeyAuth(cfg, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/customers/1", nil)
	req.Header.Set("X-API-Key", "office-key")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.True(t, reached)
	require.Equal(t, http.StatusOK, rr.Code)

	reached = false
	req = httptest.NewRequest(http.MethodGet, "/api/customers/1", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.False(t, reached)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/customers/1", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.False(t, reached)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
