package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLiteRepo implements SnapshotRepo on the snapshots table. Each save
// appends a row; older rows beyond keep are pruned.
type SQLiteRepo struct {
	db   *sql.DB
	seq  *snapshotSequence
	keep int
}

func (r *SQLiteRepo) Save(ctx context.Context, snap *Snapshot) error {
	raw, err := Encode(&snap.Data)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	seq, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}
	snap.Sequence = seq

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, sequence, timestamp, format_version, data) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, seq, FormatTime(snap.Timestamp), CurrentVersion, string(raw),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if r.keep > 0 {
		return r.Prune(ctx, r.keep)
	}
	return nil
}

func (r *SQLiteRepo) Latest(ctx context.Context) (*Snapshot, error) {
	var (
		snap Snapshot
		ts   string
		data string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, sequence, timestamp, data FROM snapshots ORDER BY sequence DESC LIMIT 1`,
	).Scan(&snap.ID, &snap.Sequence, &ts, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}

	decoded, err := Decode([]byte(data))
	if err != nil {
		return nil, &ErrCorruptSnapshot{Source: "snapshot " + snap.ID, Err: err}
	}
	snap.Data = *decoded
	if t, err := ParseTime(ts); err == nil {
		snap.Timestamp = t
	}
	return &snap, nil
}

// Prune deletes all but the keep most recent snapshots.
func (r *SQLiteRepo) Prune(ctx context.Context, keep int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE sequence <= (
			SELECT sequence FROM snapshots ORDER BY sequence DESC LIMIT 1 OFFSET ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	return nil
}

// Count returns the number of stored snapshots.
func (r *SQLiteRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}
