package billing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lagerhof/lagerhof/internal/identity"
	"github.com/lagerhof/lagerhof/internal/observability"
	"github.com/lagerhof/lagerhof/internal/platform/httpx"
)

// CustomerLoader resolves the invoice target.
type CustomerLoader interface {
	GetCustomer(ctx context.Context, id int64) (*identity.Customer, error)
}

// Handler wires HTTP endpoints for invoice aggregation.
type Handler struct {
	logger  *slog.Logger
	loader  CustomerLoader
	builder *Builder
	metrics *observability.Metrics
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, loader CustomerLoader, builder *Builder, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, loader: loader, builder: builder, metrics: metrics}
}

// MountRoutes registers billing routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customers/{id}/invoice", h.handleBuildInvoice)
}

func (h *Handler) handleBuildInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "customer id must be numeric")
		return
	}

	customer, err := h.loader.GetCustomer(r.Context(), id)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "customer does not exist")
			return
		}
		h.logger.Error("load invoice customer failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	invoice, err := h.builder.Build(r.Context(), customer)
	if err != nil {
		h.logger.Error("build invoice failed", slog.Int64("customer_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.ObserveInvoiceBuild()
	httpx.JSON(w, http.StatusOK, invoice)
}
