package identity

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/lagerhof/lagerhof/internal/platform/rowstore"
	"github.com/lagerhof/lagerhof/internal/rentals"
)

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, nil)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestHandleSyncReturnsResult(t *testing.T) {
	repo := newMemoryCustomerRepo()
	fetcher := &fakeFetcher{tables: map[rentals.SourceType]rentals.Table{
		rentals.SourceUnit: unitTable(rowstore.Row{
			"primary_contact_email": "a@x.com",
			"occupied":              "true",
			"unit_number":           "U-1",
		}),
	}}
	router := newTestRouter(newTestService(repo, fetcher))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sync", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var res SyncResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, SyncResult{Inserted: 1, SourceUnits: 1}, res)
}

func TestHandleGetCustomer(t *testing.T) {
	repo := newMemoryCustomerRepo()
	_, err := repo.Insert(context.Background(), &Customer{
		Fingerprint: "e:a@x.com",
		Name:        "Anna Berg",
		Email:       "a@x.com",
		Status:      StatusActive,
	})
	require.NoError(t, err)
	router := newTestRouter(newTestService(repo, &fakeFetcher{}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/customers/1", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var c Customer
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &c))
	require.Equal(t, "Anna Berg", c.Name)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/customers/999", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/customers/abc", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleUpdateContactValidatesInput(t *testing.T) {
	repo := newMemoryCustomerRepo()
	_, err := repo.Insert(context.Background(), &Customer{Fingerprint: "e:a@x.com", Email: "a@x.com"})
	require.NoError(t, err)
	router := newTestRouter(newTestService(repo, &fakeFetcher{}))

	rr := httptest.NewRecorder()
	body := strings.NewReader(`{"email":"not-an-email"}`)
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/customers/1/contact", body))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	body = strings.NewReader(`{"name":"Bernd Berg","email":"second@x.com"}`)
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/customers/1/contact", body))
	require.Equal(t, http.StatusNoContent, rr.Code)

	c, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "Bernd Berg", c.SecondaryName)
	require.Equal(t, "second@x.com", c.SecondaryEmail)
}
