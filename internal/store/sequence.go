package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// snapshotSequence numbers saved snapshots. Two saves inside one clock
// tick carry equal timestamps, so Latest and Prune order rows by this
// number instead. The counter lives in its own row, so it keeps counting
// when Prune or Delete empties the snapshots table.
type snapshotSequence struct {
	mu sync.Mutex
	db *sql.DB
}

// newSnapshotSequence creates the counter row, starting it after the
// highest sequence already present in snapshots.
func newSnapshotSequence(db *sql.DB) (*snapshotSequence, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshot_sequence (
		id       INTEGER PRIMARY KEY CHECK (id = 1),
		next_seq INTEGER NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("create snapshot sequence: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO snapshot_sequence (id, next_seq)
		SELECT 1, COALESCE(MAX(sequence), 0) + 1 FROM snapshots`)
	if err != nil {
		return nil, fmt.Errorf("seed snapshot sequence: %w", err)
	}

	return &snapshotSequence{db: db}, nil
}

// Next returns the sequence number for the snapshot about to be saved.
func (s *snapshotSequence) Next(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var seq int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE snapshot_sequence SET next_seq = next_seq + 1 WHERE id = 1 RETURNING next_seq - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next snapshot sequence: %w", err)
	}
	return seq, nil
}
