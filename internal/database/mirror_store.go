package database

import (
	"context"
	"database/sql"
	"fmt"
)

// MirrorStore remembers which entries were pushed to the remote calendar.
type MirrorStore struct {
	db *sql.DB
}

// NewMirrorStore creates a new mirror store
func NewMirrorStore(db *DB) *MirrorStore {
	return &MirrorStore{db: db.Conn()}
}

// Mark records that the entry of day is mirrored as remoteID.
func (s *MirrorStore) Mark(ctx context.Context, entryID, remoteID, day string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO mirror_state (entry_id, remote_id, day) VALUES (?, ?, ?)
ON CONFLICT(entry_id) DO UPDATE SET remote_id = excluded.remote_id, day = excluded.day, synced_at = CURRENT_TIMESTAMP`, entryID, remoteID, day)
	if err != nil {
		return fmt.Errorf("failed to mark entry %s as mirrored: %w", entryID, err)
	}
	return nil
}

// Forget removes the mirror record of entryID.
func (s *MirrorStore) Forget(ctx context.Context, entryID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM mirror_state WHERE entry_id = ?`, entryID); err != nil {
		return fmt.Errorf("failed to forget mirrored entry %s: %w", entryID, err)
	}
	return nil
}

// Mirrored returns entry id to remote id for every entry mirrored on a day
// in [from, to]. An empty bound leaves that side open.
func (s *MirrorStore) Mirrored(ctx context.Context, from, to string) (map[string]string, error) {
	if to == "" {
		to = "9999-12-31"
	}
	rows, err := s.db.QueryContext(ctx, `SELECT entry_id, remote_id FROM mirror_state WHERE day BETWEEN ? AND ?`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query mirror state: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var entryID, remoteID string
		if err := rows.Scan(&entryID, &remoteID); err != nil {
			return nil, fmt.Errorf("failed to scan mirror state: %w", err)
		}
		out[entryID] = remoteID
	}
	return out, rows.Err()
}
