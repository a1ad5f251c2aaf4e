package server

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/m-a-x-v/buildings-dashboard/internal/ingest"
	"github.com/m-a-x-v/buildings-dashboard/pkg/models"
)

// IngestController is what the API needs from the ingestion orchestrator.
type IngestController interface {
	State() ingest.State
	Start(ctx context.Context) error
}

// SummaryReader reads the cached summary.
type SummaryReader interface {
	LoadSummary(ctx context.Context) (*models.CachedSummary, bool)
}

// APIHandler serves the dashboard data endpoints.
type APIHandler struct {
	ingestor IngestController
	cache    SummaryReader
	// refreshCtx bounds runs started via the API; typically the process
	// lifetime context, not the request context.
	refreshCtx context.Context
	logger     *zap.Logger
}

// NewAPIHandler creates the data API handler. cache may be nil.
func NewAPIHandler(ingestor IngestController, cache SummaryReader, refreshCtx context.Context, logger *zap.Logger) *APIHandler {
	if refreshCtx == nil {
		refreshCtx = context.Background()
	}
	return &APIHandler{ingestor: ingestor, cache: cache, refreshCtx: refreshCtx, logger: logger}
}

// RegisterRoutes registers the API routes on the server mux.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/snapshot", h.handleSnapshot)
	mux.HandleFunc("GET /api/v1/state", h.handleState)
	mux.HandleFunc("GET /api/v1/summary", h.handleSummary)
	mux.HandleFunc("POST /api/v1/refresh", h.handleRefresh)
}

func (h *APIHandler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	st := h.ingestor.State()
	if st.Snapshot == nil {
		NotFound(w, "no snapshot available yet", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, st.Snapshot)
}

func (h *APIHandler) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ingestor.State())
}

func (h *APIHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		NotFound(w, "summary cache disabled", r.URL.Path)
		return
	}
	summary, ok := h.cache.LoadSummary(r.Context())
	if !ok {
		NotFound(w, "no cached summary", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *APIHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.ingestor.Start(h.refreshCtx); err != nil {
		if errors.Is(err, ingest.ErrRunActive) {
			Conflict(w, "an ingestion run is already active", r.URL.Path)
			return
		}
		h.logger.Error("refresh failed to start", zap.Error(err))
		InternalError(w, "could not start ingestion", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
