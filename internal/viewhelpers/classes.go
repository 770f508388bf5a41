package viewhelpers

import (
	"strings"

	"github.com/calendariko/calendariko/internal/calendar"
)

// joinClasses joins CSS class names with spaces
func joinClasses(classes []string) string {
	return strings.Join(classes, " ")
}

// kindClasses returns the shading of a day or block of the given kind.
func kindClasses(kind calendar.Kind) []string {
	switch kind {
	case calendar.KindBusy:
		return []string{"bg-red-50", "text-red-900", "border-red-200"}
	case calendar.KindConfirmed:
		return []string{"bg-green-50", "text-green-900", "border-green-200"}
	case calendar.KindOptioned:
		return []string{"bg-amber-50", "text-amber-900", "border-amber-200"}
	}
	return nil
}

func cellClasses(blank, isToday bool, summary calendar.Kind) string {
	classes := []string{"border", "border-slate-200", "text-left", "align-top", "relative"}
	if blank {
		classes = append(classes, "bg-slate-50")
		return joinClasses(classes)
	}
	classes = append(classes, "cursor-pointer", "transition-all", "duration-200", "hover:shadow-lg")
	if shading := kindClasses(summary); shading != nil {
		classes = append(classes, shading...)
	} else {
		classes = append(classes, "bg-white")
	}
	if isToday {
		classes = append(classes, "ring-2", "ring-indigo-400")
	}
	return joinClasses(classes)
}

func entryClasses(kind calendar.Kind) string {
	classes := []string{"rounded", "px-1", "text-xs", "truncate", "border"}
	classes = append(classes, kindClasses(kind)...)
	return joinClasses(classes)
}
