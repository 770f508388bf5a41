package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/calendariko/calendariko/internal/calendar"
	"github.com/calendariko/calendariko/internal/database"
	"github.com/calendariko/calendariko/internal/dates"
	"github.com/calendariko/calendariko/internal/logging"
	"github.com/calendariko/calendariko/internal/records"
	"github.com/calendariko/calendariko/internal/user"
	"github.com/calendariko/calendariko/internal/viewhelpers"
)

// Metrics counts what the API has served since start
type Metrics struct {
	ViewsRendered  *atomic.Int64
	RecordsSkipped *atomic.Int64
	Exports        *atomic.Int64
}

// NewMetrics creates zeroed counters
func NewMetrics() *Metrics {
	return &Metrics{
		ViewsRendered:  atomic.NewInt64(0),
		RecordsSkipped: atomic.NewInt64(0),
		Exports:        atomic.NewInt64(0),
	}
}

// BaseHandler contains common handler functionality
type BaseHandler struct {
	Events       *database.EventStore
	Availability *database.AvailabilityStore
	Clock        dates.Clock
	Location     *time.Location
	Layout       viewhelpers.Layout
	Metrics      *Metrics
	builder      *calendar.Builder
	logger       zerolog.Logger
}

// NewBaseHandler creates a common base handler with shared components
func NewBaseHandler(events *database.EventStore, availability *database.AvailabilityStore, clock dates.Clock, location *time.Location, layout viewhelpers.Layout) *BaseHandler {
	if location == nil {
		location = time.UTC
	}
	return &BaseHandler{
		Events:       events,
		Availability: availability,
		Clock:        clock,
		Location:     location,
		Layout:       layout,
		Metrics:      NewMetrics(),
		builder:      calendar.NewBuilder(),
		logger:       logging.GetLogger("handlers"),
	}
}

// today returns the current civil date in the configured location.
func (h *BaseHandler) today() time.Time {
	return dates.Today(h.Clock)
}

// loadAggregation fetches the records of [from, to] and builds the entries
// role may see.
func (h *BaseHandler) loadAggregation(r *http.Request, from, to time.Time, role user.Role) (calendar.Aggregation, calendar.Report, error) {
	ctx := r.Context()

	events, err := h.Events.ListRange(ctx, from, to)
	if err != nil {
		return nil, calendar.Report{}, fmt.Errorf("failed to load events: %w", err)
	}
	availability, err := h.Availability.ListRange(ctx, from, to)
	if err != nil {
		return nil, calendar.Report{}, fmt.Errorf("failed to load availability: %w", err)
	}

	agg, report := h.builder.Build(events, availability, role)
	if skipped := report.Skipped(); skipped > 0 {
		h.Metrics.RecordsSkipped.Add(int64(skipped))
	}
	return agg, report, nil
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(v)
}

// respondError writes code with its user-facing message, or details when given.
func respondError(w http.ResponseWriter, status int, code string, details string) error {
	if details == "" {
		details = GetErrorMessage(code)
	}
	return respondJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func (h *BaseHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	if err := respondJSON(w, status, v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *BaseHandler) writeError(w http.ResponseWriter, status int, code string, details string) {
	if err := respondError(w, status, code, details); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeCachedJSON writes v with an ETag and answers 304 when the client
// already holds the same representation.
func (h *BaseHandler) writeCachedJSON(w http.ResponseWriter, r *http.Request, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode JSON response")
		h.writeError(w, http.StatusInternalServerError, ErrCodeUnknown, "")
		return
	}

	hash := sha256.Sum256(body)
	etag := fmt.Sprintf("\"%s\"", hex.EncodeToString(hash[:]))

	if ifNoneMatch := r.Header.Get("If-None-Match"); ifNoneMatch != "" && matchesETag(ifNoneMatch, etag) {
		h.logger.Debug().Str("if_none_match", ifNoneMatch).Msg("ETag matches - returning 304 Not Modified")
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, no-cache")
	w.Header().Set("ETag", etag)
	if _, err := w.Write(append(body, '\n')); err != nil {
		h.logger.Error().Err(err).Msg("Failed to write response")
	}
}

// matchesETag checks if the If-None-Match header matches etag
// Supports multiple ETags separated by commas and wildcard '*' as per RFC 7232
func matchesETag(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "*" {
		return true
	}
	for _, candidate := range parseETags(ifNoneMatch) {
		if strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// parseETags parses comma-separated ETags from If-None-Match header
func parseETags(header string) []string {
	var etags []string
	for _, part := range strings.Split(header, ",") {
		if etag := strings.TrimSpace(part); etag != "" {
			etags = append(etags, etag)
		}
	}
	return etags
}

// maxRangeDays bounds the span of a from/to query.
const maxRangeDays = 366

// parseRange reads the from and to query parameters. A missing from is the
// first of the current month; a missing to is the last day of from's month.
func (h *BaseHandler) parseRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	from := dates.MonthStart(h.today())

	if s := q.Get("from"); s != "" {
		d, ok := dates.ParseDate(s)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q", s)
		}
		from = d
	}

	monthStart := dates.MonthStart(from)
	to := dates.AddDays(monthStart, dates.DaysInMonth(monthStart.Year(), monthStart.Month())-1)
	if s := q.Get("to"); s != "" {
		d, ok := dates.ParseDate(s)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q", s)
		}
		to = d
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to date %s is before from date %s", dates.FormatISO(to), dates.FormatISO(from))
	}
	if to.After(dates.AddDays(from, maxRangeDays-1)) {
		return time.Time{}, time.Time{}, fmt.Errorf("range %s to %s is longer than %d days", dates.FormatISO(from), dates.FormatISO(to), maxRangeDays)
	}
	return from, to, nil
}

// redactEvents drops admin-only fields of raw records for other roles.
func redactEvents(events []records.Event, role user.Role) []records.Event {
	if role == user.RoleAdmin {
		return events
	}
	out := make([]records.Event, len(events))
	for i, ev := range events {
		ev.Fee = nil
		out[i] = ev
	}
	return out
}
