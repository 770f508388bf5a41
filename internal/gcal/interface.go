package gcal

import "context"

// Mirror defines the operations the scheduler and handlers need
type Mirror interface {
	// Sync pushes the look-ahead window to the remote calendar
	Sync(ctx context.Context) (SyncResult, error)

	// Calendars lists the calendars the account can write to
	Calendars(ctx context.Context) ([]CalendarInfo, error)
}

// Ensure Service implements Mirror
var _ Mirror = (*Service)(nil)
