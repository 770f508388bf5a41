package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/calendariko/calendariko/internal/scheduler"
)

// HealthHandler reports liveness and counters
type HealthHandler struct {
	*BaseHandler
	Runner SyncRunner
}

// NewHealthHandler creates a new health handler. runner may be nil.
func NewHealthHandler(baseHandler *BaseHandler, runner SyncRunner) *HealthHandler {
	return &HealthHandler{BaseHandler: baseHandler, Runner: runner}
}

// RegisterRoutes registers the health route
func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/health", h.Health).Methods(http.MethodGet)
}

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	Status         string           `json:"status"`
	ViewsRendered  int64            `json:"viewsRendered"`
	RecordsSkipped int64            `json:"recordsSkipped"`
	Exports        int64            `json:"exports"`
	Mirror         *scheduler.Stats `json:"mirror,omitempty"`
}

// Health answers with the process counters
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:         "ok",
		ViewsRendered:  h.Metrics.ViewsRendered.Load(),
		RecordsSkipped: h.Metrics.RecordsSkipped.Load(),
		Exports:        h.Metrics.Exports.Load(),
	}
	if h.Runner != nil {
		stats := h.Runner.Stats()
		resp.Mirror = &stats
	}
	h.writeJSON(w, http.StatusOK, resp)
}
