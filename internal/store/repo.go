package store

import (
	"context"
	"time"
)

// CardData is the persisted form of one scheduling card. Timestamps are
// RFC3339 strings so the document stays readable and diffable.
type CardData struct {
	QuestionID             string  `json:"question_id"`
	Topic                  string  `json:"topic"`
	QuestionTitle          string  `json:"question_title"`
	CreatedAt              string  `json:"created_at"`
	Box                    int     `json:"box"`
	Difficulty             string  `json:"difficulty"`
	ConsecutiveCorrect     int     `json:"consecutive_correct"`
	ConsecutiveWrong       int     `json:"consecutive_wrong"`
	TotalAttempts          int     `json:"total_attempts"`
	TotalCorrect           int     `json:"total_correct"`
	AverageResponseSeconds float64 `json:"average_response_seconds"`
	LastReviewedAt         *string `json:"last_reviewed_at,omitempty"`
	NextReviewDate         string  `json:"next_review_date"`
}

// SnapshotData is the minimal scheduler state written to disk. It never
// carries the question bank.
type SnapshotData struct {
	Version          int                  `json:"format_version"`
	Cards            map[string]*CardData `json:"cards"`
	TotalReviews     int                  `json:"total_reviews"`
	LastSystemUpdate string               `json:"last_system_update,omitempty"`
}

// Snapshot represents a point-in-time capture of scheduler state.
type Snapshot struct {
	ID        string
	Sequence  int64
	Timestamp time.Time
	Data      SnapshotData
}

// SnapshotRepo persists scheduler snapshots.
type SnapshotRepo interface {
	// Save durably stores snap. A failed save leaves the previous
	// snapshot readable.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot, or nil if none exist.
	// Unreadable data is reported as *ErrCorruptSnapshot.
	Latest(ctx context.Context) (*Snapshot, error)

	// Delete removes every stored snapshot. Deleting nothing is not an error.
	Delete(ctx context.Context) error
}
