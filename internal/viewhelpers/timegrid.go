package viewhelpers

import (
	"fmt"
	"sort"
	"time"

	"github.com/rdleal/intervalst/interval"

	"github.com/calendariko/calendariko/internal/calendar"
	"github.com/calendariko/calendariko/internal/dates"
)

const (
	hoursPerDay   = 24
	minutesPerDay = hoursPerDay * 60
)

// Layout holds the pixel constants of the hourly grids.
type Layout struct {
	WeekRowHeight int `json:"weekRowHeight"`
	DayRowHeight  int `json:"dayRowHeight"`
}

// DefaultLayout returns the row heights used when none are configured.
func DefaultLayout() Layout {
	return Layout{WeekRowHeight: 48, DayRowHeight: 60}
}

func (l Layout) withDefaults() Layout {
	def := DefaultLayout()
	if l.WeekRowHeight <= 0 {
		l.WeekRowHeight = def.WeekRowHeight
	}
	if l.DayRowHeight <= 0 {
		l.DayRowHeight = def.DayRowHeight
	}
	return l
}

// HourRow labels one row of an hourly grid.
type HourRow struct {
	Hour  int     `json:"hour"`
	Label string  `json:"label"`
	Top   float64 `json:"top"`
}

// TimedBlock is a timed entry positioned inside a day column. Lane and
// Lanes split the column width between overlapping entries.
type TimedBlock struct {
	calendar.Entry
	Top        float64 `json:"top"`
	Height     float64 `json:"height"`
	Lane       int     `json:"lane"`
	Lanes      int     `json:"lanes"`
	CSSClasses string  `json:"cssClasses"`
}

// DayColumn is one day of a week or day view.
type DayColumn struct {
	Date       string       `json:"date"`
	DayOfMonth int          `json:"dayOfMonth"`
	Weekday    string       `json:"weekday"`
	IsToday    bool         `json:"isToday,omitempty"`
	AllDay     []EntryChip  `json:"allDay,omitempty"`
	Timed      []TimedBlock `json:"timed,omitempty"`
}

// WeekView is the Sunday-first seven column hourly grid.
type WeekView struct {
	Title      string      `json:"title"`
	Start      string      `json:"start"`
	End        string      `json:"end"`
	RowHeight  int         `json:"rowHeight"`
	GridHeight int         `json:"gridHeight"`
	Hours      []HourRow   `json:"hours"`
	Columns    []DayColumn `json:"columns"`
}

// DayView is the single column hourly grid.
type DayView struct {
	Title      string    `json:"title"`
	RowHeight  int       `json:"rowHeight"`
	GridHeight int       `json:"gridHeight"`
	Hours      []HourRow `json:"hours"`
	Column     DayColumn `json:"column"`
}

// Offset returns the vertical position of minute-of-day m:
// hour*rowHeight + minute*(rowHeight/60).
func Offset(m, rowHeight int) float64 {
	return float64(m/60*rowHeight) + float64(m%60)*float64(rowHeight)/60
}

func hourRows(rowHeight int) []HourRow {
	rows := make([]HourRow, hoursPerDay)
	for h := range rows {
		rows[h] = HourRow{Hour: h, Label: fmt.Sprintf("%02d:00", h), Top: float64(h * rowHeight)}
	}
	return rows
}

// RenderWeek builds the week starting on the Sunday on or before ref.
func RenderWeek(ref time.Time, agg calendar.Aggregation, today time.Time, layout Layout) WeekView {
	layout = layout.withDefaults()
	start := dates.WeekStart(ref)
	end := dates.AddDays(start, 6)

	view := WeekView{
		Title:      weekTitle(start, end),
		Start:      dates.FormatISO(start),
		End:        dates.FormatISO(end),
		RowHeight:  layout.WeekRowHeight,
		GridHeight: hoursPerDay * layout.WeekRowHeight,
		Hours:      hourRows(layout.WeekRowHeight),
		Columns:    make([]DayColumn, 0, 7),
	}
	for i := 0; i < 7; i++ {
		view.Columns = append(view.Columns, buildColumn(dates.AddDays(start, i), agg, today, layout.WeekRowHeight))
	}
	return view
}

// RenderDay builds the hourly grid of ref alone.
func RenderDay(ref time.Time, agg calendar.Aggregation, today time.Time, layout Layout) DayView {
	layout = layout.withDefaults()
	day := dates.Civil(ref)
	return DayView{
		Title:      day.Format("Monday, January 2, 2006"),
		RowHeight:  layout.DayRowHeight,
		GridHeight: hoursPerDay * layout.DayRowHeight,
		Hours:      hourRows(layout.DayRowHeight),
		Column:     buildColumn(day, agg, today, layout.DayRowHeight),
	}
}

func weekTitle(start, end time.Time) string {
	if start.Year() != end.Year() {
		return fmt.Sprintf("%s - %s", start.Format("Jan 2, 2006"), end.Format("Jan 2, 2006"))
	}
	return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
}

// span is the [start, end) minute range of a timed entry.
type span struct {
	start, end int
}

// entrySpan resolves the minutes an entry occupies on its own day. Spans
// past midnight are cut at the end of the day.
func entrySpan(e calendar.Entry) (span, bool) {
	start, end, ok := e.Minutes()
	if !ok {
		return span{}, false
	}
	if end > minutesPerDay {
		end = minutesPerDay
	}
	return span{start: start, end: end}, true
}

func buildColumn(day time.Time, agg calendar.Aggregation, today time.Time, rowHeight int) DayColumn {
	key := dates.FormatISO(day)
	col := DayColumn{
		Date:       key,
		DayOfMonth: day.Day(),
		Weekday:    day.Weekday().String(),
		IsToday:    dates.SameDay(day, today),
	}

	var timed []calendar.Entry
	var spans []span
	var allDay []calendar.Entry
	for _, e := range agg.Entries(key) {
		s, ok := entrySpan(e)
		if !ok {
			allDay = append(allDay, e)
			continue
		}
		timed = append(timed, e)
		spans = append(spans, s)
	}
	col.AllDay = chips(allDay)

	if len(timed) == 0 {
		return col
	}

	lanes, counts := assignLanes(spans)
	col.Timed = make([]TimedBlock, len(timed))
	for i, e := range timed {
		top := Offset(spans[i].start, rowHeight)
		col.Timed[i] = TimedBlock{
			Entry:      e,
			Top:        top,
			Height:     Offset(spans[i].end, rowHeight) - top,
			Lane:       lanes[i],
			Lanes:      counts[i],
			CSSClasses: entryClasses(e.Kind),
		}
	}
	return col
}

// assignLanes places overlapping spans side by side. Spans are taken in
// start order (source order on ties) and get the lowest lane free among
// the spans they overlap. Every span of an overlapping cluster reports the
// cluster's lane count.
func assignLanes(spans []span) (lanes []int, counts []int) {
	n := len(spans)
	// Scale minutes so each span maps to a unique closed interval that
	// still intersects exactly the spans it overlaps.
	scale := n + 1
	bounds := func(i int) (int, int) {
		end := max(spans[i].end, spans[i].start+1)
		return spans[i].start * scale, end*scale - 1 - i
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return spans[order[a]].start < spans[order[b]].start
	})

	tree := interval.NewSearchTree[int](func(x, y int) int { return x - y })
	lanes = make([]int, n)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}

	for _, i := range order {
		lo, hi := bounds(i)
		used := map[int]bool{}
		if overlapping, ok := tree.AllIntersections(lo, hi); ok {
			for _, j := range overlapping {
				used[lanes[j]] = true
				parent[find(j)] = find(i)
			}
		}
		lane := 0
		for used[lane] {
			lane++
		}
		lanes[i] = lane
		// bounds always yields hi > lo, the only case Insert rejects.
		_ = tree.Insert(lo, hi, i)
	}

	widest := map[int]int{}
	for i := range spans {
		root := find(i)
		if lanes[i]+1 > widest[root] {
			widest[root] = lanes[i] + 1
		}
	}
	counts = make([]int, n)
	for i := range spans {
		counts[i] = widest[find(i)]
	}
	return lanes, counts
}
