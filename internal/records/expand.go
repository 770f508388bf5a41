package records

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/calendariko/calendariko/internal/dates"
)

// EventDate resolves the civil date of an event: Date first, then a
// timestamp in StartTime.
func EventDate(ev Event) (time.Time, bool) {
	if d, ok := dates.ParseDate(ev.Date); ok {
		return d, true
	}
	if dates.IsTimestamp(ev.StartTime) {
		return dates.ParseDate(ev.StartTime)
	}
	return time.Time{}, false
}

const (
	// MaxOccurrences caps the occurrences one recurring event yields per range.
	MaxOccurrences = 1000
	// maxScanned caps the rule values walked, including those before from.
	maxScanned = 200_000
)

// ExpandRecurring returns the occurrences of ev that fall within
// [from, to] (inclusive civil dates). A non-recurring event is returned
// as is when its date lies in range. Expansion stops after MaxOccurrences
// occurrences or when the rule is too dense to reach the range.
func ExpandRecurring(ev Event, from, to time.Time) ([]Event, error) {
	start, ok := EventDate(ev)
	if !ok {
		return nil, fmt.Errorf("%w: event %q has no resolvable date", ErrInvalidRecord, ev.ID)
	}
	from, to = dates.Civil(from), dates.Civil(to)

	rule := strings.TrimSpace(ev.Recurrence)
	if rule == "" {
		if start.Before(from) || start.After(to) {
			return nil, nil
		}
		return []Event{ev}, nil
	}

	opt, err := rrule.StrToROption(strings.TrimPrefix(rule, "RRULE:"))
	if err != nil {
		return nil, fmt.Errorf("%w: event %q has a bad recurrence rule: %w", ErrInvalidRecord, ev.ID, err)
	}

	clock, hasClock := dates.ParseClock(ev.StartTime)
	dtstart := start
	if hasClock {
		minutes, _ := dates.ClockMinutes(clock)
		dtstart = start.Add(time.Duration(minutes) * time.Minute)
	}
	opt.Dtstart = dtstart

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: event %q has a bad recurrence rule: %w", ErrInvalidRecord, ev.ID, err)
	}

	endClock, _ := dates.ParseClock(ev.EndTime)
	end := to.Add(24*time.Hour - time.Nanosecond)
	var expanded []Event
	next := r.Iterator()
	for scanned := 0; scanned < maxScanned && len(expanded) < MaxOccurrences; scanned++ {
		at, ok := next()
		if !ok || at.After(end) {
			break
		}
		if at.Before(from) {
			continue
		}
		occ := ev
		day := dates.FormatISO(at)
		occ.ID = ev.ID + "@" + day
		occ.Date = day
		occ.StartTime = ""
		if hasClock {
			occ.StartTime = at.Format("15:04")
		}
		occ.EndTime = endClock
		occ.Recurrence = ""
		expanded = append(expanded, occ)
	}
	return expanded, nil
}
