package calendar

import (
	"strings"

	"github.com/calendariko/calendariko/internal/dates"
	"github.com/calendariko/calendariko/internal/records"
)

const busyMark = "❌ "

var confirmedStatuses = []string{"CONFIRMED", "CONFIRMADO"}

func isConfirmed(status string) bool {
	status = strings.TrimSpace(status)
	for _, s := range confirmedStatuses {
		if strings.EqualFold(status, s) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// FromEvent converts an event record. It returns false when the record has
// no title or no resolvable date.
func FromEvent(ev records.Event) (Entry, bool) {
	if strings.TrimSpace(ev.Title) == "" {
		return Entry{}, false
	}
	day, ok := records.EventDate(ev)
	if !ok {
		return Entry{}, false
	}

	kind := KindOptioned
	if isConfirmed(ev.Status) {
		kind = KindConfirmed
	}

	start, _ := dates.ParseClock(ev.StartTime)
	end, _ := dates.ParseClock(ev.EndTime)

	return Entry{
		ID:                 ev.ID,
		Title:              ev.Title,
		Date:               dates.FormatISO(day),
		Time:               start,
		EndTime:            end,
		Kind:               kind,
		Fee:                ev.Fee,
		Venue:              ev.Venue,
		GroupRef:           firstNonEmpty(ev.GroupName, ev.GroupID),
		Notes:              ev.Notes,
		ContactResponsible: ev.ContactResponsible,
	}, true
}

// FromAvailability converts a busy marker. Available markers and markers
// without a resolvable date return false.
func FromAvailability(av records.Availability) (Entry, bool) {
	if av.Type != records.AvailabilityBusy {
		return Entry{}, false
	}
	day, ok := dates.ParseDate(av.Date)
	if !ok {
		return Entry{}, false
	}

	return Entry{
		ID:       AvailabilityIDPrefix + av.ID,
		Title:    busyMark + firstNonEmpty(av.GroupName, av.UserName, "Busy"),
		Date:     dates.FormatISO(day),
		Kind:     KindBusy,
		GroupRef: firstNonEmpty(av.GroupName, av.GroupID),
		UserRef:  firstNonEmpty(av.UserName, av.UserID),
		Notes:    av.Notes,
	}, true
}
