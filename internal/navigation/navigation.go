// Package navigation holds the view state of the calendar and the pure
// transitions that move it.
package navigation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/calendariko/calendariko/internal/dates"
)

// Mode is the active calendar view.
type Mode string

const (
	ModeMonth Mode = "MONTH"
	ModeWeek  Mode = "WEEK"
	ModeDay   Mode = "DAY"
)

// Action is a navigation control.
type Action string

const (
	ActionPrevious Action = "PREVIOUS"
	ActionNext     Action = "NEXT"
	ActionToday    Action = "TODAY"
)

// ViewState anchors the visible period. The zero value is not valid; use New.
type ViewState struct {
	ReferenceDate time.Time
	Mode          Mode
}

type viewStateJSON struct {
	ReferenceDate string `json:"referenceDate"`
	Mode          Mode   `json:"mode"`
}

func (s ViewState) MarshalJSON() ([]byte, error) {
	return json.Marshal(viewStateJSON{ReferenceDate: s.ReferenceKey(), Mode: s.Mode})
}

// UnmarshalJSON rejects states without a valid reference date or mode.
func (s *ViewState) UnmarshalJSON(b []byte) error {
	var raw viewStateJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	ref, ok := dates.ParseDate(raw.ReferenceDate)
	if !ok {
		return fmt.Errorf("invalid reference date %q", raw.ReferenceDate)
	}
	mode := ModeMonth
	if raw.Mode != "" {
		m, err := ParseMode(string(raw.Mode))
		if err != nil {
			return err
		}
		mode = m
	}
	s.ReferenceDate, s.Mode = ref, mode
	return nil
}

// New returns the initial state: today in month view.
func New(today time.Time) ViewState {
	return ViewState{ReferenceDate: dates.Civil(today), Mode: ModeMonth}
}

// ReferenceKey returns the reference date as YYYY-MM-DD.
func (s ViewState) ReferenceKey() string {
	return dates.FormatISO(s.ReferenceDate)
}

// Next moves one period forward.
func Next(s ViewState) ViewState {
	return step(s, 1)
}

// Previous moves one period back.
func Previous(s ViewState) ViewState {
	return step(s, -1)
}

func step(s ViewState, dir int) ViewState {
	switch s.Mode {
	case ModeWeek:
		s.ReferenceDate = dates.AddDays(s.ReferenceDate, 7*dir)
	case ModeDay:
		s.ReferenceDate = dates.AddDays(s.ReferenceDate, dir)
	default:
		s.ReferenceDate = dates.AddMonthsClamped(s.ReferenceDate, dir)
	}
	return s
}

// Today resets the reference date and keeps the mode.
func Today(s ViewState, today time.Time) ViewState {
	s.ReferenceDate = dates.Civil(today)
	return s
}

// SwitchMode changes the view and keeps the reference date.
func SwitchMode(s ViewState, mode Mode) ViewState {
	s.Mode = mode
	return s
}

// Apply runs action against s.
func Apply(s ViewState, action Action, today time.Time) ViewState {
	switch action {
	case ActionNext:
		return Next(s)
	case ActionPrevious:
		return Previous(s)
	case ActionToday:
		return Today(s, today)
	}
	return s
}

// VisibleRange returns the first and last civil dates the view covers.
func VisibleRange(s ViewState) (from, to time.Time) {
	switch s.Mode {
	case ModeWeek:
		from = dates.WeekStart(s.ReferenceDate)
		return from, dates.AddDays(from, 6)
	case ModeDay:
		d := dates.Civil(s.ReferenceDate)
		return d, d
	default:
		from = dates.MonthStart(s.ReferenceDate)
		last := dates.DaysInMonth(from.Year(), from.Month())
		return from, dates.AddDays(from, last-1)
	}
}

// ParseMode accepts MONTH, WEEK or DAY in any case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModeMonth, ModeWeek, ModeDay:
		return m, nil
	}
	return "", fmt.Errorf("unknown view mode %q", s)
}

// ParseAction accepts PREVIOUS, NEXT or TODAY in any case.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(s))); a {
	case ActionPrevious, ActionNext, ActionToday:
		return a, nil
	}
	return "", fmt.Errorf("unknown navigation action %q", s)
}
