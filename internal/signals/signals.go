package signals

import (
	"context"

	"github.com/maniartech/signals"

	"github.com/calendariko/calendariko/internal/calendar"
	"github.com/calendariko/calendariko/internal/user"
)

// DaySelectedData is emitted when a grid cell is clicked
type DaySelectedData struct {
	Date string
	User user.User
}

// EntrySelectedData is emitted when an entry on the grid is clicked
type EntrySelectedData struct {
	Entry calendar.Entry
	User  user.User
}

// RecordKind names the store a change happened in
type RecordKind string

const (
	RecordEvent        RecordKind = "event"
	RecordAvailability RecordKind = "availability"
)

// RecordsChangedData is emitted after records are written or deleted
type RecordsChangedData struct {
	Kind RecordKind
	IDs  []string
}

// Signal definitions using generics
var DaySelected = signals.New[DaySelectedData]()
var EntrySelected = signals.New[EntrySelectedData]()
var RecordsChanged = signals.New[RecordsChangedData]()

// EmitDaySelected emits a signal when a day cell is clicked
func EmitDaySelected(ctx context.Context, date string, u user.User) {
	DaySelected.Emit(ctx, DaySelectedData{Date: date, User: u})
}

// EmitEntrySelected emits a signal when an entry is clicked
func EmitEntrySelected(ctx context.Context, entry calendar.Entry, u user.User) {
	EntrySelected.Emit(ctx, EntrySelectedData{Entry: entry, User: u})
}

// EmitRecordsChanged emits a signal after a store write
func EmitRecordsChanged(ctx context.Context, kind RecordKind, ids ...string) {
	RecordsChanged.Emit(ctx, RecordsChangedData{Kind: kind, IDs: ids})
}

// OnDaySelected registers a handler for day clicks
func OnDaySelected(handler func(ctx context.Context, data DaySelectedData), key ...string) {
	if len(key) > 0 {
		DaySelected.AddListener(handler, key[0])
	} else {
		DaySelected.AddListener(handler)
	}
}

// OnEntrySelected registers a handler for entry clicks
func OnEntrySelected(handler func(ctx context.Context, data EntrySelectedData), key ...string) {
	if len(key) > 0 {
		EntrySelected.AddListener(handler, key[0])
	} else {
		EntrySelected.AddListener(handler)
	}
}

// OnRecordsChanged registers a handler for record writes
func OnRecordsChanged(handler func(ctx context.Context, data RecordsChangedData), key ...string) {
	if len(key) > 0 {
		RecordsChanged.AddListener(handler, key[0])
	} else {
		RecordsChanged.AddListener(handler)
	}
}
