package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testData(reviews int) SnapshotData {
	return SnapshotData{
		Cards: map[string]*CardData{
			"Math:Primes": {
				QuestionID:     "Math:Primes",
				Topic:          "Math",
				QuestionTitle:  "Primes",
				Box:            2,
				Difficulty:     "MEDIUM",
				TotalAttempts:  reviews,
				TotalCorrect:   reviews,
				NextReviewDate: "2025-03-02T00:00:00Z",
			},
		},
		TotalReviews: reviews,
	}
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil db")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestSnapshotSaveAndLatest(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo(0)
	ctx := context.Background()

	// No snapshot yet.
	snap, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil snapshot on empty store")
	}

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Save(ctx, &Snapshot{Timestamp: ts, Data: testData(3)}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if got == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if got.ID == "" {
		t.Error("expected generated snapshot ID")
	}
	if got.Data.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", got.Data.Version, CurrentVersion)
	}
	if got.Data.TotalReviews != 3 {
		t.Errorf("TotalReviews = %d, want 3", got.Data.TotalReviews)
	}
	card := got.Data.Cards["Math:Primes"]
	if card == nil || card.Box != 2 || card.Difficulty != "MEDIUM" {
		t.Errorf("card = %+v", card)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
	}
}

func TestSnapshotLatestReturnsNewest(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo(0)
	ctx := context.Background()

	// Identical timestamps; only the sequence orders them.
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		if err := repo.Save(ctx, &Snapshot{Timestamp: ts, Data: testData(i)}); err != nil {
			t.Fatalf("Save(%d) error: %v", i, err)
		}
	}

	got, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if got.Data.TotalReviews != 3 {
		t.Errorf("TotalReviews = %d, want 3", got.Data.TotalReviews)
	}
}

func TestSnapshotPrune(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo(2)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := repo.Save(ctx, &Snapshot{Data: testData(i)}); err != nil {
			t.Fatalf("Save(%d) error: %v", i, err)
		}
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}

	got, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if got.Data.TotalReviews != 5 {
		t.Errorf("TotalReviews = %d, want 5", got.Data.TotalReviews)
	}
}

func TestSnapshotDelete(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo(0)
	ctx := context.Background()

	if err := repo.Delete(ctx); err != nil {
		t.Fatalf("Delete() on empty store: %v", err)
	}
	if err := repo.Save(ctx, &Snapshot{Data: testData(1)}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := repo.Delete(ctx); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	got, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if got != nil {
		t.Error("expected no snapshot after Delete")
	}
}

func TestSnapshotCorruptRow(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo(0)
	ctx := context.Background()

	_, err := s.DB().Exec(
		`INSERT INTO snapshots (id, sequence, timestamp, format_version, data) VALUES ('bad', 99, '', 2, '{not json')`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, err = repo.Latest(ctx)
	if !IsCorrupt(err) {
		t.Fatalf("Latest() error = %v, want corrupt snapshot", err)
	}
}

func TestSnapshotSequence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seq, err := newSnapshotSequence(s.DB())
	if err != nil {
		t.Fatalf("newSnapshotSequence() error: %v", err)
	}

	var last int64
	for i := 0; i < 5; i++ {
		n, err := seq.Next(ctx)
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		if n <= last {
			t.Errorf("Next() = %d, not greater than %d", n, last)
		}
		last = n
	}
}

func TestSnapshotSequence_ResumesAfterExistingRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.DB().Exec(`DROP TABLE snapshot_sequence`)
	if err != nil {
		t.Fatalf("drop counter: %v", err)
	}
	_, err = s.DB().Exec(
		`INSERT INTO snapshots (id, sequence, timestamp, format_version, data) VALUES ('old', 41, '2025-03-01T00:00:00Z', 2, '{}')`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	seq, err := newSnapshotSequence(s.DB())
	if err != nil {
		t.Fatalf("newSnapshotSequence() error: %v", err)
	}
	if n, err := seq.Next(ctx); err != nil || n != 42 {
		t.Errorf("Next() = %d, %v, want 42", n, err)
	}
}

func TestSQLiteRepo_SameTimestampOrderedBySequence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.SnapshotRepo(2)

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for reviews := 1; reviews <= 3; reviews++ {
		if err := repo.Save(ctx, &Snapshot{Timestamp: ts, Data: testData(reviews)}); err != nil {
			t.Fatalf("Save(%d) error: %v", reviews, err)
		}
	}

	got, err := repo.Latest(ctx)
	if err != nil || got == nil {
		t.Fatalf("Latest() = %v, %v", got, err)
	}
	if got.Data.TotalReviews != 3 {
		t.Errorf("Latest().TotalReviews = %d, want 3", got.Data.TotalReviews)
	}

	// the counter survives a full wipe
	if err := repo.Delete(ctx); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	snap := &Snapshot{Timestamp: ts, Data: testData(4)}
	if err := repo.Save(ctx, snap); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if snap.Sequence <= got.Sequence {
		t.Errorf("Sequence after Delete = %d, want > %d", snap.Sequence, got.Sequence)
	}
}

func TestDefaultDBPath(t *testing.T) {
	dir := t.TempDir()

	t.Run("env override", func(t *testing.T) {
		want := filepath.Join(dir, "custom", "q.db")
		t.Setenv("QUIZBOX_TEST_DB", want)
		got, err := DefaultDBPath("QUIZBOX_TEST_DB", "questions.db")
		if err != nil {
			t.Fatalf("DefaultDBPath() error: %v", err)
		}
		if got != want {
			t.Errorf("DefaultDBPath() = %q, want %q", got, want)
		}
	})

	t.Run("xdg data home", func(t *testing.T) {
		t.Setenv("QUIZBOX_TEST_DB", "")
		t.Setenv("XDG_DATA_HOME", dir)
		got, err := DefaultDBPath("QUIZBOX_TEST_DB", "questions.db")
		if err != nil {
			t.Fatalf("DefaultDBPath() error: %v", err)
		}
		want := filepath.Join(dir, "quizbox", "questions.db")
		if got != want {
			t.Errorf("DefaultDBPath() = %q, want %q", got, want)
		}
	})
}
