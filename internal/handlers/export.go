package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/calendariko/calendariko/internal/calendar"
	"github.com/calendariko/calendariko/internal/constants"
	"github.com/calendariko/calendariko/internal/dates"
	"github.com/calendariko/calendariko/internal/user"
)

var csvHeader = []string{"date", "time", "end_time", "title", "kind", "venue", "group", "user", "notes", "contact"}

// ExportCSV writes the entries of the requested range as CSV. The fee column
// is only present for admins.
func (h *CalendarHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	agg, from, to, ok := h.loadExport(w, r)
	if !ok {
		return
	}
	role := user.CurrentRole(r.Context())

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"calendar-%s-%s.csv\"", dates.FormatISO(from), dates.FormatISO(to)))
	if err := writeCSV(w, agg, role == user.RoleAdmin); err != nil {
		h.logger.Error().Err(err).Msg("Failed to write CSV export")
		return
	}
	h.Metrics.Exports.Inc()
}

func writeCSV(out io.Writer, agg calendar.Aggregation, withFee bool) error {
	cw := csv.NewWriter(out)

	header := csvHeader
	if withFee {
		header = append(append([]string{}, csvHeader...), "fee")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, day := range agg.Dates() {
		for _, e := range agg.Entries(day) {
			row := []string{e.Date, e.Time, e.EndTime, e.Title, string(e.Kind), e.Venue, e.GroupRef, e.UserRef, e.Notes, e.ContactResponsible}
			if withFee {
				fee := ""
				if e.Fee != nil {
					fee = strconv.FormatFloat(*e.Fee, 'f', 2, 64)
				}
				row = append(row, fee)
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row for %s: %w", e.ID, err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportICS writes the entries of the requested range as an iCalendar feed
func (h *CalendarHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
	agg, from, to, ok := h.loadExport(w, r)
	if !ok {
		return
	}

	feed := buildICS(agg, h.Location, h.Clock.Now())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"calendar-%s-%s.ics\"", dates.FormatISO(from), dates.FormatISO(to)))
	if err := feed.SerializeTo(w); err != nil {
		h.logger.Error().Err(err).Msg("Failed to write ICS export")
		return
	}
	h.Metrics.Exports.Inc()
}

func buildICS(agg calendar.Aggregation, loc *time.Location, now time.Time) *ics.Calendar {
	feed := ics.NewCalendar()
	feed.SetMethod(ics.MethodPublish)
	feed.SetProductId(constants.ICSProductID)
	feed.SetXWRCalName(constants.AppIdentifier)
	feed.SetXWRTimezone(loc.String())

	for _, day := range agg.Dates() {
		date, ok := dates.ParseDate(day)
		if !ok {
			continue
		}
		for _, e := range agg.Entries(day) {
			event := feed.AddEvent(e.ID + "@" + constants.ICSDomain)
			event.SetDtStampTime(now)
			event.SetSummary(e.Title)
			if e.Venue != "" {
				event.SetLocation(e.Venue)
			}
			if e.Notes != "" {
				event.SetDescription(e.Notes)
			}
			event.AddCategory(string(e.Kind))

			switch e.Kind {
			case calendar.KindOptioned:
				event.SetStatus(ics.ObjectStatusTentative)
				event.SetTimeTransparency(ics.TransparencyTransparent)
			default:
				event.SetStatus(ics.ObjectStatusConfirmed)
			}

			start, end, timed := e.Minutes()
			if !timed {
				event.SetAllDayStartAt(date)
				event.SetAllDayEndAt(dates.AddDays(date, 1))
				continue
			}
			midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
			event.SetStartAt(midnight.Add(time.Duration(start) * time.Minute))
			event.SetEndAt(midnight.Add(time.Duration(end) * time.Minute))
		}
	}
	return feed
}

// loadExport parses the range and loads the entries the caller may see.
func (h *CalendarHandler) loadExport(w http.ResponseWriter, r *http.Request) (calendar.Aggregation, time.Time, time.Time, bool) {
	from, to, err := h.parseRange(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrCodeInvalidRange, err.Error())
		return nil, time.Time{}, time.Time{}, false
	}

	agg, _, err := h.loadAggregation(r, from, to, user.CurrentRole(r.Context()))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load records for export")
		h.writeError(w, http.StatusInternalServerError, ErrCodeExportFailed, "")
		return nil, time.Time{}, time.Time{}, false
	}
	return agg, from, to, true
}
