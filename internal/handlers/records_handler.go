package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-multierror"

	"github.com/calendariko/calendariko/internal/database"
	"github.com/calendariko/calendariko/internal/records"
	"github.com/calendariko/calendariko/internal/signals"
	"github.com/calendariko/calendariko/internal/user"
)

const maxRecordBody = 1 << 20

// RecordsHandler manages event and availability records
type RecordsHandler struct {
	*BaseHandler
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler(baseHandler *BaseHandler) *RecordsHandler {
	return &RecordsHandler{BaseHandler: baseHandler}
}

// RegisterRoutes registers record related routes
func (h *RecordsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/events", h.ListEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/events", h.SaveEvent).Methods(http.MethodPost)
	r.HandleFunc("/api/events/import", h.ImportEvents).Methods(http.MethodPost)
	r.HandleFunc("/api/events/{id}", h.DeleteEvent).Methods(http.MethodDelete)
	r.HandleFunc("/api/availability", h.ListAvailability).Methods(http.MethodGet)
	r.HandleFunc("/api/availability", h.SaveAvailability).Methods(http.MethodPost)
	r.HandleFunc("/api/availability/{id}", h.DeleteAvailability).Methods(http.MethodDelete)
}

// ImportResponse reports the outcome of a bulk import
type ImportResponse struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors,omitempty"`
}

// ListEvents returns the stored events, expanded over from/to when given
func (h *RecordsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "ListEvents").Logger()

	var (
		events []records.Event
		err    error
	)
	if hasRange(r) {
		from, to, rangeErr := h.parseRange(r)
		if rangeErr != nil {
			h.writeError(w, http.StatusBadRequest, ErrCodeInvalidRange, rangeErr.Error())
			return
		}
		events, err = h.Events.ListRange(r.Context(), from, to)
	} else {
		events, err = h.Events.List(r.Context())
	}
	if err != nil {
		handlerLogger.Error().Err(err).Msg("Failed to list events")
		h.writeError(w, http.StatusInternalServerError, ErrCodeLoadFailed, "")
		return
	}

	if events == nil {
		events = []records.Event{}
	}
	h.writeJSON(w, http.StatusOK, redactEvents(events, user.CurrentRole(r.Context())))
}

// SaveEvent creates or replaces an event. Admin only.
func (h *RecordsHandler) SaveEvent(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "SaveEvent").Logger()
	if !h.requireAdmin(w, r) {
		return
	}

	raw, err := readRecord(r)
	if err != nil {
		handlerLogger.Debug().Err(err).Msg("Failed to read event body")
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	ev, err := records.DecodeEvent(raw)
	if err != nil {
		handlerLogger.Debug().Err(err).Msg("Rejected event record")
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidRecord, err.Error())
		return
	}

	saved, err := h.Events.Save(r.Context(), ev)
	if err != nil {
		handlerLogger.Error().Err(err).Str("event_id", ev.ID).Msg("Failed to save event")
		h.writeError(w, http.StatusInternalServerError, ErrCodeSaveFailed, "")
		return
	}

	signals.EmitRecordsChanged(r.Context(), signals.RecordEvent, saved.ID)
	handlerLogger.Info().Str("event_id", saved.ID).Msg("Event saved")
	h.writeJSON(w, http.StatusCreated, saved)
}

// ImportEvents stores a JSON array of events. Records that fail to decode
// are reported and skipped.
func (h *RecordsHandler) ImportEvents(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "ImportEvents").Logger()
	if !h.requireAdmin(w, r) {
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, 16*maxRecordBody))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	events, decodeErr := records.DecodeEventList(raw)
	var resp ImportResponse
	var merr *multierror.Error
	if errors.As(decodeErr, &merr) {
		for _, e := range merr.Errors {
			resp.Errors = append(resp.Errors, e.Error())
		}
	} else if decodeErr != nil {
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, decodeErr.Error())
		return
	}

	if len(events) == 0 {
		handlerLogger.Debug().Int("errors", len(resp.Errors)).Msg("Nothing to import")
		h.writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	saved, err := h.Events.SaveAll(r.Context(), events)
	if err != nil {
		handlerLogger.Error().Err(err).Int("count", len(events)).Msg("Failed to import events")
		h.writeError(w, http.StatusInternalServerError, ErrCodeSaveFailed, "")
		return
	}

	ids := make([]string, len(saved))
	for i, ev := range saved {
		ids[i] = ev.ID
	}
	signals.EmitRecordsChanged(r.Context(), signals.RecordEvent, ids...)

	resp.Imported = len(saved)
	handlerLogger.Info().Int("imported", resp.Imported).Int("rejected", len(resp.Errors)).Msg("Events imported")
	h.writeJSON(w, http.StatusOK, resp)
}

// DeleteEvent removes an event. Admin only.
func (h *RecordsHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.Events.Delete(r.Context(), id); err != nil {
		h.deleteFailed(w, "DeleteEvent", id, err)
		return
	}
	signals.EmitRecordsChanged(r.Context(), signals.RecordEvent, id)
	w.WriteHeader(http.StatusNoContent)
}

// ListAvailability returns the stored markers, limited to from/to when given
func (h *RecordsHandler) ListAvailability(w http.ResponseWriter, r *http.Request) {
	var (
		list []records.Availability
		err  error
	)
	if hasRange(r) {
		from, to, rangeErr := h.parseRange(r)
		if rangeErr != nil {
			h.writeError(w, http.StatusBadRequest, ErrCodeInvalidRange, rangeErr.Error())
			return
		}
		list, err = h.Availability.ListRange(r.Context(), from, to)
	} else {
		list, err = h.Availability.List(r.Context())
	}
	if err != nil {
		h.logger.Error().Err(err).Str("handler", "ListAvailability").Msg("Failed to list availability")
		h.writeError(w, http.StatusInternalServerError, ErrCodeLoadFailed, "")
		return
	}
	if list == nil {
		list = []records.Availability{}
	}
	h.writeJSON(w, http.StatusOK, list)
}

// SaveAvailability creates or replaces a marker. A marker without a user
// belongs to the caller.
func (h *RecordsHandler) SaveAvailability(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "SaveAvailability").Logger()

	raw, err := readRecord(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	av, err := records.DecodeAvailability(raw)
	if err != nil {
		handlerLogger.Debug().Err(err).Msg("Rejected availability record")
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidRecord, err.Error())
		return
	}
	if av.UserID == "" {
		if u, err := user.CurrentUser(r.Context()); err == nil {
			av.UserID = u.ID
		}
	}

	saved, err := h.Availability.Save(r.Context(), av)
	if err != nil {
		handlerLogger.Error().Err(err).Str("availability_id", av.ID).Msg("Failed to save availability")
		h.writeError(w, http.StatusInternalServerError, ErrCodeSaveFailed, "")
		return
	}

	signals.EmitRecordsChanged(r.Context(), signals.RecordAvailability, saved.ID)
	handlerLogger.Debug().Str("availability_id", saved.ID).Str("type", string(saved.Type)).Msg("Availability saved")
	h.writeJSON(w, http.StatusCreated, saved)
}

// DeleteAvailability removes a marker
func (h *RecordsHandler) DeleteAvailability(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.Availability.Delete(r.Context(), id); err != nil {
		h.deleteFailed(w, "DeleteAvailability", id, err)
		return
	}
	signals.EmitRecordsChanged(r.Context(), signals.RecordAvailability, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordsHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if user.CurrentRole(r.Context()) == user.RoleAdmin {
		return true
	}
	h.writeError(w, http.StatusForbidden, ErrCodeForbidden, "")
	return false
}

func (h *RecordsHandler) deleteFailed(w http.ResponseWriter, handler, id string, err error) {
	if errors.Is(err, database.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, ErrCodeNotFound, "")
		return
	}
	h.logger.Error().Err(err).Str("handler", handler).Str("id", id).Msg("Failed to delete record")
	h.writeError(w, http.StatusInternalServerError, ErrCodeDeleteFailed, "")
}

func hasRange(r *http.Request) bool {
	q := r.URL.Query()
	return q.Get("from") != "" || q.Get("to") != ""
}

// readRecord reads a single JSON object and gives it a fresh id when it has none.
func readRecord(r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRecordBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("body is not a JSON object: %w", err)
	}
	if fields == nil {
		return nil, errors.New("body is not a JSON object")
	}
	if id, ok := fields["id"]; ok && string(id) != "null" && string(id) != `""` {
		return raw, nil
	}

	fields["id"], _ = json.Marshal(uuid.NewString())
	return json.Marshal(fields)
}
