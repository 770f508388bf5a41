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

// AvailabilityStore persists availability markers.
type AvailabilityStore struct {
	db     *DB
	logger zerolog.Logger
}

// NewAvailabilityStore creates a new availability store
func NewAvailabilityStore(db *DB) *AvailabilityStore {
	return &AvailabilityStore{db: db, logger: logging.GetLogger("availability-store")}
}

const availabilityColumns = `id, date, type, group_id, group_name, user_id, user_name, notes`

// Save inserts or replaces av. A marker without an id gets a new UUID.
func (s *AvailabilityStore) Save(ctx context.Context, av records.Availability) (records.Availability, error) {
	if av.ID == "" {
		av.ID = uuid.NewString()
	}
	day := resolvedDay(dates.ParseDate(av.Date))
	_, err := s.db.Conn().ExecContext(ctx, `
INSERT INTO availability (`+availabilityColumns+`, day)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	date = excluded.date,
	type = excluded.type,
	group_id = excluded.group_id,
	group_name = excluded.group_name,
	user_id = excluded.user_id,
	user_name = excluded.user_name,
	notes = excluded.notes,
	day = excluded.day,
	updated_at = CURRENT_TIMESTAMP`,
		av.ID, av.Date, string(av.Type), av.GroupID, av.GroupName, av.UserID, av.UserName, av.Notes, day)
	if err != nil {
		return records.Availability{}, fmt.Errorf("failed to save availability %s: %w", av.ID, err)
	}
	s.logger.Debug().Str("availability_id", av.ID).Str("type", string(av.Type)).Msg("Availability saved")
	return av, nil
}

func scanAvailability(row rowScanner) (records.Availability, error) {
	var av records.Availability
	var kind string
	if err := row.Scan(&av.ID, &av.Date, &kind, &av.GroupID, &av.GroupName, &av.UserID, &av.UserName, &av.Notes); err != nil {
		return records.Availability{}, err
	}
	av.Type = records.AvailabilityType(kind)
	return av, nil
}

// Get returns the marker with the given id.
func (s *AvailabilityStore) Get(ctx context.Context, id string) (records.Availability, error) {
	row := s.db.Conn().QueryRowContext(ctx, `SELECT `+availabilityColumns+` FROM availability WHERE id = ?`, id)
	av, err := scanAvailability(row)
	if errors.Is(err, sql.ErrNoRows) {
		return records.Availability{}, fmt.Errorf("availability %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return records.Availability{}, fmt.Errorf("failed to get availability %s: %w", id, err)
	}
	return av, nil
}

// Delete removes the marker with the given id.
func (s *AvailabilityStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.Conn().ExecContext(ctx, `DELETE FROM availability WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete availability %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("availability %s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns every stored marker.
func (s *AvailabilityStore) List(ctx context.Context) ([]records.Availability, error) {
	return s.query(ctx, `SELECT `+availabilityColumns+` FROM availability ORDER BY day, created_at`)
}

// ListRange returns the markers dated between from and to (inclusive),
// plus markers without a resolvable date.
func (s *AvailabilityStore) ListRange(ctx context.Context, from, to time.Time) ([]records.Availability, error) {
	return s.query(ctx, `
SELECT `+availabilityColumns+` FROM availability
WHERE day IS NULL OR day BETWEEN ? AND ?
ORDER BY day, created_at`, dates.FormatISO(from), dates.FormatISO(to))
}

func (s *AvailabilityStore) query(ctx context.Context, query string, args ...any) ([]records.Availability, error) {
	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer rows.Close()

	var out []records.Availability
	for rows.Next() {
		av, err := scanAvailability(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan availability: %w", err)
		}
		out = append(out, av)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate availability: %w", err)
	}
	return out, nil
}
