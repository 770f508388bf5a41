package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/calendariko/calendariko/internal/calendar"
	"github.com/calendariko/calendariko/internal/database"
	"github.com/calendariko/calendariko/internal/dates"
	"github.com/calendariko/calendariko/internal/navigation"
	"github.com/calendariko/calendariko/internal/records"
	"github.com/calendariko/calendariko/internal/signals"
	"github.com/calendariko/calendariko/internal/user"
	"github.com/calendariko/calendariko/internal/viewhelpers"
)

// errEntryNotFound is returned when an entry id resolves to nothing the caller may see.
var errEntryNotFound = errors.New("entry not found")

// CalendarHandler serves the rendered calendar and its callbacks
type CalendarHandler struct {
	*BaseHandler
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(baseHandler *BaseHandler) *CalendarHandler {
	return &CalendarHandler{BaseHandler: baseHandler}
}

// RegisterRoutes registers calendar related routes
func (h *CalendarHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/calendar", h.GetView).Methods(http.MethodGet)
	r.HandleFunc("/api/calendar/navigate", h.Navigate).Methods(http.MethodPost)
	r.HandleFunc("/api/calendar/days/{date}/select", h.SelectDay).Methods(http.MethodPost)
	r.HandleFunc("/api/calendar/entries/{id}/select", h.SelectEntry).Methods(http.MethodPost)
	r.HandleFunc("/api/calendar/export.csv", h.ExportCSV).Methods(http.MethodGet)
	r.HandleFunc("/api/calendar/export.ics", h.ExportICS).Methods(http.MethodGet)
}

// ViewResponse is the body of GET /api/calendar
type ViewResponse struct {
	viewhelpers.View
	Range  RangeResponse   `json:"range"`
	Report calendar.Report `json:"report"`
}

// RangeResponse is an inclusive date range
type RangeResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GetView renders the month, week or day containing the requested date
func (h *CalendarHandler) GetView(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "GetView").Logger()
	q := r.URL.Query()
	today := h.today()

	state := navigation.New(today)
	if v := q.Get("view"); v != "" {
		mode, err := navigation.ParseMode(v)
		if err != nil {
			handlerLogger.Debug().Err(err).Msg("Invalid view mode")
			h.writeError(w, http.StatusBadRequest, ErrCodeInvalidView, err.Error())
			return
		}
		state = navigation.SwitchMode(state, mode)
	}
	if d := q.Get("date"); d != "" {
		ref, ok := dates.ParseDate(d)
		if !ok {
			handlerLogger.Debug().Str("date", d).Msg("Invalid reference date")
			h.writeError(w, http.StatusBadRequest, ErrCodeInvalidDate, fmt.Sprintf("invalid date %q", d))
			return
		}
		state.ReferenceDate = ref
	}

	role := user.CurrentRole(r.Context())
	from, to := navigation.VisibleRange(state)
	agg, report, err := h.loadAggregation(r, from, to, role)
	if err != nil {
		handlerLogger.Error().Err(err).Msg("Failed to load records")
		h.writeError(w, http.StatusInternalServerError, ErrCodeLoadFailed, "")
		return
	}

	view := viewhelpers.Render(state, agg, today, h.Layout)
	h.Metrics.ViewsRendered.Inc()
	handlerLogger.Debug().Str("mode", string(state.Mode)).Str("reference", state.ReferenceKey()).Str("role", string(role)).Int("skipped", report.Skipped()).Msg("Rendered calendar view")

	h.writeCachedJSON(w, r, ViewResponse{
		View:   view,
		Range:  RangeResponse{From: dates.FormatISO(from), To: dates.FormatISO(to)},
		Report: report,
	})
}

// NavigateRequest applies an action and/or a mode switch to a state
type NavigateRequest struct {
	State  *navigation.ViewState `json:"state"`
	Action string                `json:"action,omitempty"`
	Mode   string                `json:"mode,omitempty"`
}

// NavigateResponse is the state after navigation and the range it covers
type NavigateResponse struct {
	State navigation.ViewState `json:"state"`
	Range RangeResponse        `json:"range"`
}

// Navigate moves a view state. A missing state starts from today.
func (h *CalendarHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "Navigate").Logger()

	var req NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		handlerLogger.Debug().Err(err).Msg("Failed to parse request body")
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	today := h.today()
	state := navigation.New(today)
	if req.State != nil {
		state = *req.State
	}

	if req.Mode != "" {
		mode, err := navigation.ParseMode(req.Mode)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, ErrCodeInvalidView, err.Error())
			return
		}
		state = navigation.SwitchMode(state, mode)
	}
	if req.Action != "" {
		action, err := navigation.ParseAction(req.Action)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, ErrCodeInvalidAction, err.Error())
			return
		}
		state = navigation.Apply(state, action, today)
	}

	from, to := navigation.VisibleRange(state)
	handlerLogger.Debug().Str("mode", string(state.Mode)).Str("reference", state.ReferenceKey()).Msg("Navigated")
	h.writeJSON(w, http.StatusOK, NavigateResponse{
		State: state,
		Range: RangeResponse{From: dates.FormatISO(from), To: dates.FormatISO(to)},
	})
}

// DayResponse is the body of a day selection
type DayResponse struct {
	Date    string           `json:"date"`
	Summary calendar.Kind    `json:"summary,omitempty"`
	Entries []calendar.Entry `json:"entries"`
}

// SelectDay emits the day-click signal and returns the entries of that day
func (h *CalendarHandler) SelectDay(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "SelectDay").Logger()
	raw := mux.Vars(r)["date"]

	day, ok := dates.ParseDate(raw)
	if !ok {
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidDate, fmt.Sprintf("invalid date %q", raw))
		return
	}
	key := dates.FormatISO(day)

	u, _ := user.CurrentUser(r.Context())
	role := user.CurrentRole(r.Context())
	agg, _, err := h.loadAggregation(r, day, day, role)
	if err != nil {
		handlerLogger.Error().Err(err).Msg("Failed to load records")
		h.writeError(w, http.StatusInternalServerError, ErrCodeLoadFailed, "")
		return
	}

	signals.EmitDaySelected(r.Context(), key, u)
	handlerLogger.Debug().Str("date", key).Str("user_id", u.ID).Msg("Day selected")

	entries := agg.Entries(key)
	if entries == nil {
		entries = []calendar.Entry{}
	}
	summary, _ := agg.Summary(key)
	h.writeJSON(w, http.StatusOK, DayResponse{Date: key, Summary: summary, Entries: entries})
}

// SelectEntry emits the entry-click signal and returns the entry
func (h *CalendarHandler) SelectEntry(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "SelectEntry").Logger()
	id := mux.Vars(r)["id"]
	u, _ := user.CurrentUser(r.Context())
	role := user.CurrentRole(r.Context())

	entry, err := h.resolveEntry(r.Context(), id, role)
	if errors.Is(err, errEntryNotFound) || errors.Is(err, database.ErrNotFound) {
		handlerLogger.Debug().Str("entry_id", id).Msg("Entry not found")
		h.writeError(w, http.StatusNotFound, ErrCodeNotFound, "")
		return
	}
	if err != nil {
		handlerLogger.Error().Err(err).Str("entry_id", id).Msg("Failed to resolve entry")
		h.writeError(w, http.StatusInternalServerError, ErrCodeLoadFailed, "")
		return
	}

	signals.EmitEntrySelected(r.Context(), entry, u)
	handlerLogger.Debug().Str("entry_id", id).Str("user_id", u.ID).Msg("Entry selected")
	h.writeJSON(w, http.StatusOK, entry)
}

// resolveEntry maps an entry id back to its record: availability ids carry
// a prefix and recurring occurrences end in @date. The bare id of a
// recurring event does not resolve.
func (h *CalendarHandler) resolveEntry(ctx context.Context, id string, role user.Role) (calendar.Entry, error) {
	var (
		entry calendar.Entry
		ok    bool
	)

	switch {
	case strings.HasPrefix(id, calendar.AvailabilityIDPrefix):
		av, err := h.Availability.Get(ctx, strings.TrimPrefix(id, calendar.AvailabilityIDPrefix))
		if err != nil {
			return calendar.Entry{}, err
		}
		if av.Type != records.AvailabilityBusy {
			return calendar.Entry{}, errEntryNotFound
		}
		entry, ok = calendar.FromAvailability(av)

	default:
		ev, err := h.Events.Get(ctx, id)
		switch {
		case err == nil && strings.TrimSpace(ev.Recurrence) != "":
			// Only occurrences appear on the grid.
			return calendar.Entry{}, errEntryNotFound
		case err == nil:
			entry, ok = calendar.FromEvent(ev)
		case errors.Is(err, database.ErrNotFound) && strings.Contains(id, "@"):
			entry, ok, err = h.resolveOccurrence(ctx, id)
			if err != nil {
				return calendar.Entry{}, err
			}
		default:
			return calendar.Entry{}, err
		}
	}

	if !ok || (role == user.RoleAdmin && entry.Kind == calendar.KindBusy) {
		return calendar.Entry{}, errEntryNotFound
	}
	return calendar.RedactForRole([]calendar.Entry{entry}, role)[0], nil
}

// resolveOccurrence finds the occurrence id@date of a recurring event.
func (h *CalendarHandler) resolveOccurrence(ctx context.Context, id string) (calendar.Entry, bool, error) {
	at := strings.LastIndex(id, "@")
	day, ok := dates.ParseDate(id[at+1:])
	if !ok {
		return calendar.Entry{}, false, errEntryNotFound
	}
	ev, err := h.Events.Get(ctx, id[:at])
	if err != nil {
		return calendar.Entry{}, false, err
	}
	occurrences, err := records.ExpandRecurring(ev, day, day)
	if err != nil {
		return calendar.Entry{}, false, errEntryNotFound
	}
	for _, occ := range occurrences {
		if occ.ID == id {
			entry, ok := calendar.FromEvent(occ)
			return entry, ok, nil
		}
	}
	return calendar.Entry{}, false, errEntryNotFound
}
