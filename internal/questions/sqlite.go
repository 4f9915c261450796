package questions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// SQLiteRepository stores the question bank in SQLite.
type SQLiteRepository struct {
	db *sqlx.DB
}

type questionRow struct {
	Topic     string `db:"topic"`
	Position  int    `db:"position"`
	Title     string `db:"title"`
	Body      string `db:"body"`
	Answers   string `db:"answers"`
	Correct   string `db:"correct"`
	CreatedAt string `db:"created_at"`
}

// OpenSQLite opens (and if needed creates) the question bank at dsn.
func OpenSQLite(dsn string) (*SQLiteRepository, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open question bank: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS questions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		topic      TEXT NOT NULL,
		position   INTEGER NOT NULL,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL DEFAULT '',
		answers    TEXT NOT NULL,
		correct    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (topic, title)
	);
	CREATE INDEX IF NOT EXISTS idx_questions_topic_pos ON questions(topic, position);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create question schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Upsert inserts q at the end of its topic, or updates the body and
// answers of an existing question with the same title. It reports
// whether a new row was created.
func (r *SQLiteRepository) Upsert(ctx context.Context, q *Question) (bool, error) {
	if err := q.Validate(); err != nil {
		return false, err
	}
	answers, err := json.Marshal(q.Answers)
	if err != nil {
		return false, err
	}
	correct, err := json.Marshal(q.Correct)
	if err != nil {
		return false, err
	}
	created := q.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE questions SET body = ?, answers = ?, correct = ? WHERE topic = ? AND title = ?`,
		q.Body, string(answers), string(correct), q.Topic, q.Title)
	if err != nil {
		return false, fmt.Errorf("update question: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, tx.Commit()
	}

	var next int
	if err := tx.GetContext(ctx, &next,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM questions WHERE topic = ?`, q.Topic); err != nil {
		return false, fmt.Errorf("next position: %w", err)
	}
	_, err = tx.NamedExecContext(ctx,
		`INSERT INTO questions (topic, position, title, body, answers, correct, created_at)
		 VALUES (:topic, :position, :title, :body, :answers, :correct, :created_at)`,
		questionRow{
			Topic:     q.Topic,
			Position:  next,
			Title:     q.Title,
			Body:      q.Body,
			Answers:   string(answers),
			Correct:   string(correct),
			CreatedAt: created.Format(time.RFC3339Nano),
		})
	if err != nil {
		return false, fmt.Errorf("insert question: %w", err)
	}
	return true, tx.Commit()
}

func (r *SQLiteRepository) ListTopics(ctx context.Context) ([]string, error) {
	var topics []string
	err := r.db.SelectContext(ctx, &topics,
		`SELECT topic FROM questions GROUP BY topic ORDER BY MIN(id)`)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

func (r *SQLiteRepository) ListQuestionTitles(ctx context.Context, topic string) ([]string, error) {
	var titles []string
	err := r.db.SelectContext(ctx, &titles,
		`SELECT title FROM questions WHERE topic = ? ORDER BY position`, topic)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	if len(titles) == 0 {
		return nil, ErrTopicNotFound
	}
	return titles, nil
}

func (r *SQLiteRepository) GetQuestion(ctx context.Context, topic string, index int) (*Question, error) {
	if index < 0 {
		return nil, ErrQuestionNotFound
	}
	var row questionRow
	err := r.db.GetContext(ctx, &row,
		`SELECT topic, position, title, body, answers, correct, created_at
		 FROM questions WHERE topic = ? ORDER BY position LIMIT 1 OFFSET ?`, topic, index)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return row.toQuestion()
}

func (row *questionRow) toQuestion() (*Question, error) {
	q := &Question{
		Topic: row.Topic,
		Title: row.Title,
		Body:  row.Body,
	}
	if err := json.Unmarshal([]byte(row.Answers), &q.Answers); err != nil {
		return nil, fmt.Errorf("decode answers of %q: %w", row.Title, err)
	}
	if err := json.Unmarshal([]byte(row.Correct), &q.Correct); err != nil {
		return nil, fmt.Errorf("decode flags of %q: %w", row.Title, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, row.CreatedAt); err == nil {
		q.CreatedAt = t
	}
	return q, nil
}
