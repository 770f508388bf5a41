package calendar

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/calendariko/calendariko/internal/logging"
	"github.com/calendariko/calendariko/internal/records"
	"github.com/calendariko/calendariko/internal/user"
)

// MonthCellLimit is the number of entries a month cell shows before it
// collapses the rest into an overflow count.
const MonthCellLimit = 2

// Aggregation maps an ISO date to its entries in source order.
type Aggregation map[string][]Entry

// Aggregate groups entries by date. Admins never see busy markers.
func Aggregate(entries []Entry, role user.Role) Aggregation {
	agg := make(Aggregation)
	for _, e := range entries {
		if e.Date == "" {
			continue
		}
		if role == user.RoleAdmin && e.Kind == KindBusy {
			continue
		}
		agg[e.Date] = append(agg[e.Date], e)
	}
	return agg
}

// Entries returns the entries of date, or nil.
func (a Aggregation) Entries(date string) []Entry {
	return a[date]
}

// Dates returns the dates that carry entries, sorted.
func (a Aggregation) Dates() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Summary returns the dominant kind of a day: busy over confirmed over
// optioned.
func (a Aggregation) Summary(date string) (Kind, bool) {
	var best Kind
	for _, e := range a[date] {
		if e.Kind.priority() > best.priority() {
			best = e.Kind
		}
	}
	return best, best != ""
}

// Compact returns at most limit entries of date and how many were left out.
func (a Aggregation) Compact(date string, limit int) ([]Entry, int) {
	entries := a[date]
	if limit < 0 || len(entries) <= limit {
		return entries, 0
	}
	return entries[:limit], len(entries) - limit
}

// Redact strips admin-only fields from every entry for non-admin roles.
func (a Aggregation) Redact(role user.Role) Aggregation {
	if role == user.RoleAdmin {
		return a
	}
	out := make(Aggregation, len(a))
	for k, v := range a {
		out[k] = RedactForRole(v, role)
	}
	return out
}

// Report counts what Build converted and lists the ids it skipped.
type Report struct {
	Events              int      `json:"events"`
	Availability        int      `json:"availability"`
	SkippedEvents       []string `json:"skippedEvents,omitempty"`
	SkippedAvailability []string `json:"skippedAvailability,omitempty"`
}

// Skipped returns the number of records that produced no entry.
func (r Report) Skipped() int {
	return len(r.SkippedEvents) + len(r.SkippedAvailability)
}

// Builder runs the transformer and the aggregator over raw records.
type Builder struct {
	logger zerolog.Logger
}

// NewBuilder creates a Builder logging under the calendar component.
func NewBuilder() *Builder {
	return &Builder{logger: logging.GetLogger("calendar")}
}

// Build converts and aggregates records for role. Available markers are
// not counted as skipped.
func (b *Builder) Build(events []records.Event, availability []records.Availability, role user.Role) (Aggregation, Report) {
	var report Report
	entries := make([]Entry, 0, len(events)+len(availability))

	for _, ev := range events {
		entry, ok := FromEvent(ev)
		if !ok {
			b.logger.Debug().Str("event_id", ev.ID).Str("date", ev.Date).Str("start_time", ev.StartTime).Msg("Skipping event without title or resolvable date")
			report.SkippedEvents = append(report.SkippedEvents, ev.ID)
			continue
		}
		report.Events++
		entries = append(entries, entry)
	}

	for _, av := range availability {
		if av.Type != records.AvailabilityBusy {
			continue
		}
		entry, ok := FromAvailability(av)
		if !ok {
			b.logger.Debug().Str("availability_id", av.ID).Str("date", av.Date).Msg("Skipping availability without resolvable date")
			report.SkippedAvailability = append(report.SkippedAvailability, av.ID)
			continue
		}
		report.Availability++
		entries = append(entries, entry)
	}

	return Aggregate(entries, role).Redact(role), report
}

// Build is a shorthand for NewBuilder().Build.
func Build(events []records.Event, availability []records.Availability, role user.Role) (Aggregation, Report) {
	return NewBuilder().Build(events, availability, role)
}
