package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/calendariko/calendariko/internal/dates"
	"github.com/calendariko/calendariko/internal/logging"
	"github.com/calendariko/calendariko/internal/records"
)

// EventStore persists event records.
type EventStore struct {
	db     *DB
	logger zerolog.Logger
}

// NewEventStore creates a new event store
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db, logger: logging.GetLogger("event-store")}
}

const eventColumns = `id, title, date, start_time, end_time, venue, group_id, group_name, fee, status, notes, contact_responsible, recurrence`

// resolvedDay returns the ISO date used for range queries, or NULL.
func resolvedDay(t time.Time, ok bool) sql.NullString {
	if !ok {
		return sql.NullString{}
	}
	return sql.NullString{String: dates.FormatISO(t), Valid: true}
}

func nullFee(fee *float64) sql.NullFloat64 {
	if fee == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *fee, Valid: true}
}

// Save inserts or replaces ev. An event without an id gets a new UUID.
func (s *EventStore) Save(ctx context.Context, ev records.Event) (records.Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		return saveEvent(ctx, tx, ev)
	}); err != nil {
		return records.Event{}, err
	}
	s.logger.Debug().Str("event_id", ev.ID).Msg("Event saved")
	return ev, nil
}

// SaveAll stores events in a single transaction.
func (s *EventStore) SaveAll(ctx context.Context, events []records.Event) ([]records.Event, error) {
	saved := make([]records.Event, len(events))
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		for i, ev := range events {
			if ev.ID == "" {
				ev.ID = uuid.NewString()
			}
			if err := saveEvent(ctx, tx, ev); err != nil {
				return err
			}
			saved[i] = ev
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("count", len(saved)).Msg("Events saved")
	return saved, nil
}

func saveEvent(ctx context.Context, tx *sql.Tx, ev records.Event) error {
	day := resolvedDay(records.EventDate(ev))
	_, err := tx.ExecContext(ctx, `
INSERT INTO events (`+eventColumns+`, day)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	date = excluded.date,
	start_time = excluded.start_time,
	end_time = excluded.end_time,
	venue = excluded.venue,
	group_id = excluded.group_id,
	group_name = excluded.group_name,
	fee = excluded.fee,
	status = excluded.status,
	notes = excluded.notes,
	contact_responsible = excluded.contact_responsible,
	recurrence = excluded.recurrence,
	day = excluded.day,
	updated_at = CURRENT_TIMESTAMP`,
		ev.ID, ev.Title, ev.Date, ev.StartTime, ev.EndTime, ev.Venue, ev.GroupID, ev.GroupName,
		nullFee(ev.Fee), ev.Status, ev.Notes, ev.ContactResponsible, ev.Recurrence, day)
	if err != nil {
		return fmt.Errorf("failed to save event %s: %w", ev.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (records.Event, error) {
	var ev records.Event
	var fee sql.NullFloat64
	if err := row.Scan(&ev.ID, &ev.Title, &ev.Date, &ev.StartTime, &ev.EndTime, &ev.Venue, &ev.GroupID,
		&ev.GroupName, &fee, &ev.Status, &ev.Notes, &ev.ContactResponsible, &ev.Recurrence); err != nil {
		return records.Event{}, err
	}
	if fee.Valid {
		v := fee.Float64
		ev.Fee = &v
	}
	return ev, nil
}

// Get returns the event with the given id.
func (s *EventStore) Get(ctx context.Context, id string) (records.Event, error) {
	row := s.db.Conn().QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return records.Event{}, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return records.Event{}, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return ev, nil
}

// Delete removes the event with the given id.
func (s *EventStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.Conn().ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	s.logger.Debug().Str("event_id", id).Msg("Event deleted")
	return nil
}

// List returns every stored event, recurring ones unexpanded.
func (s *EventStore) List(ctx context.Context) ([]records.Event, error) {
	return s.query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY day, start_time, created_at`)
}

// ListRange returns the events to show between from and to (inclusive).
// Recurring events are expanded into their occurrences. Events without a
// resolvable date are included so the caller can report them.
func (s *EventStore) ListRange(ctx context.Context, from, to time.Time) ([]records.Event, error) {
	fromKey, toKey := dates.FormatISO(from), dates.FormatISO(to)
	stored, err := s.query(ctx, `
SELECT `+eventColumns+` FROM events
WHERE day IS NULL
	OR (recurrence = '' AND day BETWEEN ? AND ?)
	OR (recurrence <> '' AND day <= ?)
ORDER BY day, start_time, created_at`, fromKey, toKey, toKey)
	if err != nil {
		return nil, err
	}

	var out []records.Event
	for _, ev := range stored {
		if ev.Recurrence == "" {
			out = append(out, ev)
			continue
		}
		if _, ok := records.EventDate(ev); !ok {
			out = append(out, ev)
			continue
		}
		occurrences, err := records.ExpandRecurring(ev, from, to)
		if err != nil {
			s.logger.Warn().Err(err).Str("event_id", ev.ID).Msg("Skipping event with unusable recurrence")
			continue
		}
		out = append(out, occurrences...)
	}
	return out, nil
}

func (s *EventStore) query(ctx context.Context, query string, args ...any) ([]records.Event, error) {
	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []records.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}
