package questions

import (
	"context"
	"sync"
)

// MemoryRepository keeps questions in insertion order per topic.
type MemoryRepository struct {
	mu     sync.RWMutex
	topics []string
	byTop  map[string][]*Question
}

// NewMemoryRepository creates a repository holding qs.
func NewMemoryRepository(qs ...*Question) *MemoryRepository {
	r := &MemoryRepository{byTop: make(map[string][]*Question)}
	for _, q := range qs {
		r.Add(q)
	}
	return r
}

// Add appends q to its topic, creating the topic if needed.
func (r *MemoryRepository) Add(q *Question) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTop[q.Topic]; !ok {
		r.topics = append(r.topics, q.Topic)
	}
	r.byTop[q.Topic] = append(r.byTop[q.Topic], q)
}

func (r *MemoryRepository) ListTopics(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.topics...), nil
}

func (r *MemoryRepository) ListQuestionTitles(_ context.Context, topic string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	qs, ok := r.byTop[topic]
	if !ok {
		return nil, ErrTopicNotFound
	}
	titles := make([]string, len(qs))
	for i, q := range qs {
		titles[i] = q.Title
	}
	return titles, nil
}

func (r *MemoryRepository) GetQuestion(_ context.Context, topic string, index int) (*Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	qs, ok := r.byTop[topic]
	if !ok {
		return nil, ErrTopicNotFound
	}
	if index < 0 || index >= len(qs) {
		return nil, ErrQuestionNotFound
	}
	q := *qs[index]
	return &q, nil
}
