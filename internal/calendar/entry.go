// Package calendar turns event and availability records into calendar
// entries and groups them by date for the renderer.
package calendar

import (
	"github.com/calendariko/calendariko/internal/dates"
	"github.com/calendariko/calendariko/internal/user"
)

// Kind drives the colour and visibility rules of an entry.
type Kind string

const (
	KindOptioned  Kind = "EVENT_OPTIONED"
	KindConfirmed Kind = "EVENT_CONFIRMED"
	KindBusy      Kind = "AVAILABILITY_BUSY"
)

// AvailabilityIDPrefix keeps availability ids apart from event ids.
const AvailabilityIDPrefix = "availability-"

// IsEvent reports whether k comes from an event record.
func (k Kind) IsEvent() bool {
	return k == KindOptioned || k == KindConfirmed
}

// priority orders kinds for the day summary; higher wins.
func (k Kind) priority() int {
	switch k {
	case KindBusy:
		return 3
	case KindConfirmed:
		return 2
	case KindOptioned:
		return 1
	}
	return 0
}

// Entry is the normalised item placed on the calendar grid.
type Entry struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Date               string   `json:"date"`
	Time               string   `json:"time,omitempty"`
	EndTime            string   `json:"endTime,omitempty"`
	Kind               Kind     `json:"kind"`
	Fee                *float64 `json:"fee,omitempty"`
	Venue              string   `json:"venue,omitempty"`
	GroupRef           string   `json:"groupRef,omitempty"`
	UserRef            string   `json:"userRef,omitempty"`
	Notes              string   `json:"notes,omitempty"`
	ContactResponsible string   `json:"contactResponsible,omitempty"`
}

// DefaultDuration is the length in minutes of a timed entry without an end.
const DefaultDuration = 60

// Minutes returns the start and end of a timed entry in minutes from
// midnight of its date. A missing end, or one equal to the start, lasts
// DefaultDuration; an end before the start falls on the next day.
func (e Entry) Minutes() (start, end int, timed bool) {
	start, timed = dates.ClockMinutes(e.Time)
	if !timed {
		return 0, 0, false
	}
	end, hasEnd := dates.ClockMinutes(e.EndTime)
	switch {
	case !hasEnd || end == start:
		end = start + DefaultDuration
	case end < start:
		end += 24 * 60
	}
	return start, end, true
}

// RedactForRole drops admin-only fields for every other role.
func RedactForRole(entries []Entry, role user.Role) []Entry {
	if role == user.RoleAdmin {
		return entries
	}
	redacted := make([]Entry, len(entries))
	for i, e := range entries {
		e.Fee = nil
		redacted[i] = e
	}
	return redacted
}
