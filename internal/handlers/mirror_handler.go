package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/calendariko/calendariko/internal/gcal"
	"github.com/calendariko/calendariko/internal/scheduler"
	"github.com/calendariko/calendariko/internal/user"
)

// SyncRunner triggers mirror runs on demand
type SyncRunner interface {
	RunNow(ctx context.Context) (gcal.SyncResult, error)
	Stats() scheduler.Stats
}

// CalendarLister lists the calendars the mirror could write to
type CalendarLister interface {
	Calendars(ctx context.Context) ([]gcal.CalendarInfo, error)
}

// MirrorHandler manages manual synchronization with Google Calendar.
// Both dependencies are nil when the mirror is disabled.
type MirrorHandler struct {
	*BaseHandler
	Runner    SyncRunner
	Calendars CalendarLister
}

// NewMirrorHandler creates a new mirror handler
func NewMirrorHandler(baseHandler *BaseHandler, runner SyncRunner, calendars CalendarLister) *MirrorHandler {
	return &MirrorHandler{
		BaseHandler: baseHandler,
		Runner:      runner,
		Calendars:   calendars,
	}
}

// RegisterRoutes registers mirror related routes
func (h *MirrorHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/mirror/sync", h.Sync).Methods(http.MethodPost)
	r.HandleFunc("/api/mirror/calendars", h.ListCalendars).Methods(http.MethodGet)
}

// SyncResponse represents the JSON response for sync
type SyncResponse struct {
	Success bool            `json:"success"`
	Result  gcal.SyncResult `json:"result"`
	Stats   scheduler.Stats `json:"stats"`
}

// Sync runs a mirror pass immediately. Admin only.
func (h *MirrorHandler) Sync(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "Sync").Logger()
	handlerLogger.Info().Msg("Handling manual sync request")

	if user.CurrentRole(r.Context()) != user.RoleAdmin {
		h.writeError(w, http.StatusForbidden, ErrCodeForbidden, "")
		return
	}
	if h.Runner == nil {
		h.writeError(w, http.StatusServiceUnavailable, ErrCodeMirrorDisabled, "")
		return
	}

	result, err := h.Runner.RunNow(r.Context())
	if errors.Is(err, scheduler.ErrSyncInProgress) {
		handlerLogger.Debug().Msg("Sync already in progress")
		h.writeError(w, http.StatusConflict, ErrCodeSyncInProgress, "")
		return
	}
	if err != nil {
		handlerLogger.Error().Err(err).Msg("Manual sync failed")
		h.writeError(w, http.StatusBadGateway, ErrCodeSyncFailed, "")
		return
	}

	handlerLogger.Info().Int("pushed", result.Pushed).Int("removed", result.Removed).Msg("Manual sync completed")
	h.writeJSON(w, http.StatusOK, SyncResponse{Success: true, Result: result, Stats: h.Runner.Stats()})
}

// ListCalendars returns the writable calendars of the mirror account
func (h *MirrorHandler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "ListCalendars").Logger()

	if user.CurrentRole(r.Context()) != user.RoleAdmin {
		h.writeError(w, http.StatusForbidden, ErrCodeForbidden, "")
		return
	}
	if h.Calendars == nil {
		h.writeError(w, http.StatusServiceUnavailable, ErrCodeMirrorDisabled, "")
		return
	}

	calendars, err := h.Calendars.Calendars(r.Context())
	if err != nil {
		handlerLogger.Error().Err(err).Msg("Failed to fetch calendars")
		h.writeError(w, http.StatusBadGateway, ErrCodeCalendarFetchErr, "")
		return
	}
	h.writeJSON(w, http.StatusOK, calendars)
}
