// Package viewhelpers lays out aggregated calendar entries as month, week
// and day views ready for a template or a JSON client.
package viewhelpers

import (
	"fmt"
	"time"

	"github.com/calendariko/calendariko/internal/calendar"
	"github.com/calendariko/calendariko/internal/dates"
)

// MonthCell is one cell of the month grid. Blank cells pad the first and
// last week.
type MonthCell struct {
	Blank      bool          `json:"blank"`
	Date       string        `json:"date,omitempty"`
	DayOfMonth int           `json:"dayOfMonth,omitempty"`
	IsToday    bool          `json:"isToday,omitempty"`
	Entries    []EntryChip   `json:"entries,omitempty"`
	Overflow   int           `json:"overflow,omitempty"`
	Summary    calendar.Kind `json:"summary,omitempty"`
	CSSClasses string        `json:"cssClasses"`
}

// EntryChip is an entry as shown inside a month cell or the all-day lane.
type EntryChip struct {
	calendar.Entry
	CSSClasses string `json:"cssClasses"`
}

// MonthView is the Sunday-first month grid.
type MonthView struct {
	Title         string        `json:"title"`
	Year          int           `json:"year"`
	Month         time.Month    `json:"month"`
	LeadingBlanks int           `json:"leadingBlanks"`
	Cells         []MonthCell   `json:"cells"`
	Weeks         [][]MonthCell `json:"weeks"`
}

func chips(entries []calendar.Entry) []EntryChip {
	if len(entries) == 0 {
		return nil
	}
	out := make([]EntryChip, len(entries))
	for i, e := range entries {
		out[i] = EntryChip{Entry: e, CSSClasses: entryClasses(e.Kind)}
	}
	return out
}

// RenderMonth builds the month containing ref. Leading blanks equal the
// weekday index of the 1st; trailing blanks complete the last week.
func RenderMonth(ref time.Time, agg calendar.Aggregation, today time.Time) MonthView {
	first := dates.MonthStart(ref)
	days := dates.DaysInMonth(first.Year(), first.Month())
	leading := int(first.Weekday())

	view := MonthView{
		Title:         fmt.Sprintf("%s %d", first.Month().String(), first.Year()),
		Year:          first.Year(),
		Month:         first.Month(),
		LeadingBlanks: leading,
	}

	total := leading + days
	if rem := total % 7; rem != 0 {
		total += 7 - rem
	}
	view.Cells = make([]MonthCell, 0, total)

	blank := MonthCell{Blank: true, CSSClasses: cellClasses(true, false, "")}
	for i := 0; i < leading; i++ {
		view.Cells = append(view.Cells, blank)
	}

	for d := 0; d < days; d++ {
		current := dates.AddDays(first, d)
		key := dates.FormatISO(current)
		visible, overflow := agg.Compact(key, calendar.MonthCellLimit)
		summary, _ := agg.Summary(key)
		isToday := dates.SameDay(current, today)

		view.Cells = append(view.Cells, MonthCell{
			Date:       key,
			DayOfMonth: d + 1,
			IsToday:    isToday,
			Entries:    chips(visible),
			Overflow:   overflow,
			Summary:    summary,
			CSSClasses: cellClasses(false, isToday, summary),
		})
	}

	for len(view.Cells) < total {
		view.Cells = append(view.Cells, blank)
	}

	for i := 0; i < len(view.Cells); i += 7 {
		view.Weeks = append(view.Weeks, view.Cells[i:i+7])
	}

	return view
}
