package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/startupshop/internal/catalog"
	"github.com/hyperengineering/startupshop/internal/metrics"
	"github.com/hyperengineering/startupshop/internal/ratelimit"
	"github.com/hyperengineering/startupshop/internal/store"
	"github.com/hyperengineering/startupshop/internal/types"
	"github.com/hyperengineering/startupshop/internal/validation"
)

// readyTimeout bounds each readiness probe.
const readyTimeout = 2 * time.Second

// CatalogService answers listing queries.
type CatalogService interface {
	Query(ctx context.Context, f catalog.Filters) ([]catalog.ListingWithScore, error)
	GetByID(ctx context.Context, id string) (*catalog.ListingWithScore, error)
	ValidationByID(ctx context.Context, id string) (*types.ListingValidation, error)
}

// MetricsService reads and syncs startup metrics.
type MetricsService interface {
	Get(ctx context.Context, startupID string, opts metrics.Options) (*metrics.Result, error)
	SyncAll(ctx context.Context) (*metrics.SyncSummary, error)
}

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Catalog   CatalogService
	Metrics   MetricsService
	Store     store.Store
	Limiter   ratelimit.Limiter
	Validator validation.Validator
	Gate      AdminGate
	SyncToken string
	Version   string
}

// Handler implements the API handlers
type Handler struct {
	catalog   CatalogService
	metrics   MetricsService
	store     store.Store
	limiter   ratelimit.Limiter
	validator validation.Validator
	gate      AdminGate
	syncToken string
	version   string
	now       func() time.Time
}

// NewHandler creates a new Handler from its collaborators
func NewHandler(d Deps) *Handler {
	if d.Validator == nil {
		d.Validator = validation.NewSchemaValidator()
	}
	if d.Gate == nil {
		d.Gate = NewTokenGate("")
	}
	return &Handler{
		catalog:   d.Catalog,
		metrics:   d.Metrics,
		store:     d.Store,
		limiter:   d.Limiter,
		validator: d.Validator,
		gate:      d.Gate,
		syncToken: d.SyncToken,
		version:   d.Version,
		now:       time.Now,
	}
}

// Health handles GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, types.HealthResponse{
		Status:    "ok",
		Version:   h.version,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /api/ready
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	status := types.ReadyStatus{
		Checks: map[string]types.ReadyCheck{
			"db":           h.checkDB(r.Context()),
			"redis":        h.checkRedis(r.Context()),
			"metrics_sync": configCheck(h.syncToken != "", "metrics_sync_configured", "sync_token_missing"),
			"admin_auth":   configCheck(gateConfigured(h.gate), "admin_auth_configured", "admin_session_token_missing"),
		},
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}

	status.Ready = true
	for _, c := range status.Checks {
		if !c.OK {
			status.Ready = false
		}
	}

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
		annotate(r.Context(), func(ev *Event) { ev.ErrorCode = "not_ready" })
	}
	writeData(w, code, status)
}

func (h *Handler) checkDB(ctx context.Context) types.ReadyCheck {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		slog.Warn("readiness db check failed", "component", "api", "error", err)
		return types.ReadyCheck{OK: false, Detail: "db_unreachable"}
	}
	return types.ReadyCheck{OK: true, Detail: "db_ok"}
}

func (h *Handler) checkRedis(ctx context.Context) types.ReadyCheck {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	err := h.limiter.Ping(ctx)
	switch {
	case err == nil:
		return types.ReadyCheck{OK: true, Detail: "redis_ok"}
	case errors.Is(err, ratelimit.ErrNoPrimary):
		return types.ReadyCheck{OK: true, Detail: "memory_fallback"}
	default:
		slog.Warn("readiness redis check failed", "component", "api", "error", err)
		return types.ReadyCheck{OK: false, Detail: "redis_unreachable"}
	}
}

func configCheck(ok bool, okDetail, missingDetail string) types.ReadyCheck {
	if ok {
		return types.ReadyCheck{OK: true, Detail: okDetail}
	}
	return types.ReadyCheck{OK: false, Detail: missingDetail}
}

func gateConfigured(g AdminGate) bool {
	if c, ok := g.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return true
}

// ListStartups handles GET /api/startups
func (h *Handler) ListStartups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		f   = catalog.Filters{Category: q.Get("category")}
		err error
	)
	if f.Stage, err = catalog.ParseStage(q.Get("stage")); err != nil {
		WriteProblemCode(w, r, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}
	if f.Bucket, err = catalog.ParseBucket(q.Get("bucket")); err != nil {
		WriteProblemCode(w, r, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}
	if f.Visibility, err = catalog.ParseVisibility(q.Get("visibility")); err != nil {
		WriteProblemCode(w, r, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}
	if f.Sort, err = catalog.ParseSort(q.Get("sort")); err != nil {
		WriteProblemCode(w, r, http.StatusBadRequest, "invalid_sort", err.Error())
		return
	}

	listings, err := h.catalog.Query(r.Context(), f)
	if err != nil {
		slog.Error("catalog query failed", "component", "api", "error", err)
		WriteProblemCode(w, r, http.StatusInternalServerError, "catalog_unavailable", "Internal Server Error")
		return
	}
	writeData(w, http.StatusOK, listings)
}

// GetStartup handles GET /api/startups/{id}
func (h *Handler) GetStartup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	annotate(r.Context(), func(ev *Event) { ev.StartupID = id })

	listing, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, listing)
}

// GetStartupValidation handles GET /api/startups/{id}/validation
func (h *Handler) GetStartupValidation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	annotate(r.Context(), func(ev *Event) { ev.StartupID = id })

	v, err := h.catalog.ValidationByID(r.Context(), id)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, v)
}

func (h *Handler) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		WriteProblemCode(w, r, http.StatusNotFound, "startup_not_found", "Startup not found")
		return
	}
	slog.Error("catalog lookup failed", "component", "api", "error", err)
	WriteProblemCode(w, r, http.StatusInternalServerError, "catalog_unavailable", "Internal Server Error")
}

// GetStartupMetrics handles GET /api/startups/{id}/metrics
func (h *Handler) GetStartupMetrics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	refresh := r.URL.Query().Get("refresh")
	opts := metrics.Options{
		Refresh: refresh == "true" || refresh == "1",
		Via:     types.FetchViaAPI,
	}
	annotate(r.Context(), func(ev *Event) { ev.StartupID = id })

	res, err := h.metrics.Get(r.Context(), id, opts)
	if err != nil {
		var fetchErr *metrics.FetchError
		switch {
		case errors.Is(err, metrics.ErrNotFound):
			WriteProblemCode(w, r, http.StatusNotFound, "startup_not_found", "Startup not found")
		case errors.Is(err, metrics.ErrNotConfigured):
			WriteProblemCode(w, r, http.StatusNotFound, "metrics_not_configured", "metrics_url not configured for startup")
		case errors.As(err, &fetchErr):
			annotate(r.Context(), func(ev *Event) { ev.UpstreamStatus = fetchErr.UpstreamStatus })
			WriteProblem(w, r, http.StatusBadGateway, "Unable to fetch metrics")
		default:
			slog.Error("metrics read failed", "component", "api", "startup_id", id, "error", err)
			WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	annotate(r.Context(), func(ev *Event) {
		if res.Source == metrics.SourceLive {
			ev.Cache = "miss"
			if res.Cached {
				ev.Cache = "hit"
			}
		}
		ev.UpstreamStatus = res.SourceStatus
	})
	writeData(w, http.StatusOK, res)
}

// SyncMetrics handles POST /api/internal/metrics/sync
func (h *Handler) SyncMetrics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.metrics.SyncAll(r.Context())
	if err != nil {
		slog.Error("metrics sync failed", "component", "api", "action", "sync_all", "error", err)
		WriteProblemCode(w, r, http.StatusInternalServerError, "sync_failed", "Metrics sync failed")
		return
	}
	writeData(w, http.StatusOK, summary)
}
