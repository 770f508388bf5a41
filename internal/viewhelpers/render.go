package viewhelpers

import (
	"time"

	"github.com/calendariko/calendariko/internal/calendar"
	"github.com/calendariko/calendariko/internal/navigation"
)

// View is the rendered output of one mode. Exactly one of Month, Week and
// Day is set.
type View struct {
	State navigation.ViewState `json:"state"`
	Month *MonthView           `json:"month,omitempty"`
	Week  *WeekView            `json:"week,omitempty"`
	Day   *DayView             `json:"day,omitempty"`
}

// Render lays out agg for the mode of state.
func Render(state navigation.ViewState, agg calendar.Aggregation, today time.Time, layout Layout) View {
	view := View{State: state}
	switch state.Mode {
	case navigation.ModeWeek:
		w := RenderWeek(state.ReferenceDate, agg, today, layout)
		view.Week = &w
	case navigation.ModeDay:
		d := RenderDay(state.ReferenceDate, agg, today, layout)
		view.Day = &d
	default:
		m := RenderMonth(state.ReferenceDate, agg, today)
		view.Month = &m
	}
	return view
}
