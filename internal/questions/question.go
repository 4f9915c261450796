// Package questions provides the question bank the scheduler reads from:
// the Repository contract plus in-memory and SQLite implementations and
// file importers.
package questions

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTopicNotFound is returned for an unknown topic.
	ErrTopicNotFound = errors.New("topic not found")

	// ErrQuestionNotFound is returned for an index outside the topic.
	ErrQuestionNotFound = errors.New("question not found")
)

// Question is a single multiple-choice question.
type Question struct {
	Topic     string    `json:"topic"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Answers   []string  `json:"answers"`
	Correct   []bool    `json:"correct"`
	CreatedAt time.Time `json:"created_at"`
}

// CorrectAnswers returns the answers flagged correct.
func (q *Question) CorrectAnswers() []string {
	var out []string
	for i, a := range q.Answers {
		if i < len(q.Correct) && q.Correct[i] {
			out = append(out, a)
		}
	}
	return out
}

// Validate checks the question is usable in a quiz.
func (q *Question) Validate() error {
	switch {
	case q.Topic == "":
		return errors.New("question has no topic")
	case q.Title == "":
		return fmt.Errorf("question in %q has no title", q.Topic)
	case len(q.Answers) == 0:
		return fmt.Errorf("question %q has no answers", q.Title)
	case len(q.Answers) != len(q.Correct):
		return fmt.Errorf("question %q: %d answers but %d correctness flags", q.Title, len(q.Answers), len(q.Correct))
	case len(q.CorrectAnswers()) == 0:
		return fmt.Errorf("question %q has no correct answer", q.Title)
	}
	return nil
}

// Repository enumerates topics and fetches questions by position.
// Indexes are zero-based and follow ListQuestionTitles order.
type Repository interface {
	ListTopics(ctx context.Context) ([]string, error)
	ListQuestionTitles(ctx context.Context, topic string) ([]string, error)
	GetQuestion(ctx context.Context, topic string, index int) (*Question, error)
}

// All fetches every question of topic in repository order.
func All(ctx context.Context, repo Repository, topic string) ([]*Question, error) {
	titles, err := repo.ListQuestionTitles(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("list questions for %q: %w", topic, err)
	}
	out := make([]*Question, 0, len(titles))
	for i := range titles {
		q, err := repo.GetQuestion(ctx, topic, i)
		if err != nil {
			return nil, fmt.Errorf("get question %d of %q: %w", i, topic, err)
		}
		out = append(out, q)
	}
	return out, nil
}
