package spacedrep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abhisek/quizbox/internal/questions"
	"github.com/abhisek/quizbox/internal/store"
)

// AllTopics selects every topic in statistics queries.
const AllTopics = ""

// ErrNoQuestionRepo is returned by due queries on a scheduler built
// without a question repository.
var ErrNoQuestionRepo = errors.New("no question repository configured")

// Outcome is one answered question as reported by the quiz runner.
type Outcome struct {
	Topic         string
	QuestionTitle string
	ChosenAnswer  string
	CorrectAnswer string
	Correct       bool
	AnswerTimeMs  int64
}

// ResponseSeconds converts the answer latency to seconds.
func (o Outcome) ResponseSeconds() float64 {
	return float64(o.AnswerTimeMs) / 1000.0
}

// Options configures a Scheduler. Zero values produce sensible defaults.
type Options struct {
	// Repo persists snapshots. Nil keeps state in memory only.
	Repo store.SnapshotRepo

	// Questions backs the due queries.
	Questions questions.Repository

	// Logger receives persistence warnings. Default: slog.Default().
	Logger *slog.Logger

	// Rand drives interval jitter. Default: time-seeded math/rand.
	Rand Source

	// Now is the clock. Default: time.Now.
	Now func() time.Time

	// MaxResponseSeconds caps recorded answer times.
	// Default: DefaultMaxResponseSeconds.
	MaxResponseSeconds float64

	// Deferred skips the save after each mutation; the owner is expected
	// to call Flush (see package autosave).
	Deferred bool
}

// Scheduler owns the card store and serves due-question queries.
type Scheduler struct {
	cards       *CardStore
	repo        store.SnapshotRepo
	questions   questions.Repository
	logger      *slog.Logger
	rng         Source
	now         func() time.Time
	maxResponse float64
	deferred    bool

	dirty  atomic.Bool
	saveMu sync.Mutex
}

// NewScheduler creates an empty scheduler. Call Load to restore state.
func NewScheduler(opts Options) *Scheduler {
	s := &Scheduler{
		cards:       NewCardStore(),
		repo:        opts.Repo,
		questions:   opts.Questions,
		logger:      opts.Logger,
		rng:         opts.Rand,
		now:         opts.Now,
		maxResponse: opts.MaxResponseSeconds,
		deferred:    opts.Deferred,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.rng = &lockedSource{src: s.rng}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maxResponse == 0 {
		s.maxResponse = DefaultMaxResponseSeconds
	}
	return s
}

// lockedSource serializes access to a Source that is not goroutine safe.
type lockedSource struct {
	mu  sync.Mutex
	src Source
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

// RecordOutcome applies an answer to its card, creating the card on
// first sight, and persists unless the scheduler is deferred.
func (s *Scheduler) RecordOutcome(ctx context.Context, o Outcome) Card {
	now := s.now()
	id := QuestionID(o.Topic, o.QuestionTitle)
	seconds := ClampResponseSeconds(o.ResponseSeconds(), s.maxResponse)

	card := s.cards.Update(id, o.Topic, o.QuestionTitle, now, func(c *Card) {
		c.ApplyResult(o.Correct, seconds, now, s.rng)
	})
	s.logger.Debug("recorded outcome",
		"card", id, "correct", o.Correct, "box", card.Box, "next", card.NextReviewDate.Format(time.DateOnly))

	s.changed(ctx)
	return card
}

// MergeCards folds an imported card set into the store and persists
// once at the end.
func (s *Scheduler) MergeCards(ctx context.Context, incoming map[string]Card, policy MergePolicy) MergeResult {
	res := s.cards.Merge(incoming, policy, s.now())
	if res.Changed() {
		s.changed(ctx)
	}
	return res
}

// ResetSystem clears every card and counter and removes persisted state.
func (s *Scheduler) ResetSystem(ctx context.Context) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.cards.Reset()
	s.dirty.Store(false)
	if s.repo == nil {
		return
	}
	if err := s.repo.Delete(ctx); err != nil {
		s.logger.Warn("could not delete saved progress", "err", err)
	}
}

func (s *Scheduler) changed(ctx context.Context) {
	s.dirty.Store(true)
	if !s.deferred {
		s.Save(ctx)
	}
}

// Dirty reports whether there are unsaved changes.
func (s *Scheduler) Dirty() bool {
	return s.dirty.Load()
}

// Save persists a snapshot, logging instead of returning failures so
// that scheduling continues in memory.
func (s *Scheduler) Save(ctx context.Context) {
	if err := s.Flush(ctx); err != nil {
		s.logger.Warn("could not save progress", "err", err)
	}
}

// Flush persists a snapshot and returns any error.
func (s *Scheduler) Flush(ctx context.Context) error {
	if s.repo == nil {
		s.dirty.Store(false)
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.dirty.Store(false)
	snap := &store.Snapshot{
		Timestamp: s.now(),
		Data:      *snapshotData(s.cards),
	}
	if err := s.repo.Save(ctx, snap); err != nil {
		s.dirty.Store(true)
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load replaces in-memory state with the latest snapshot. A missing
// snapshot starts empty; a corrupt one is deleted and also starts empty.
func (s *Scheduler) Load(ctx context.Context) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	defer s.dirty.Store(false)

	if s.repo == nil {
		s.cards.Reset()
		return
	}

	snap, err := s.repo.Latest(ctx)
	switch {
	case store.IsCorrupt(err):
		s.logger.Warn("discarding unreadable progress data", "err", err)
		if derr := s.repo.Delete(ctx); derr != nil {
			s.logger.Warn("could not delete unreadable progress data", "err", derr)
		}
		s.cards.Reset()
	case err != nil:
		s.logger.Warn("could not load progress, starting fresh", "err", err)
		s.cards.Reset()
	case snap == nil:
		s.cards.Reset()
	default:
		loadSnapshotData(s.cards, &snap.Data, s.now())
		s.logger.Debug("loaded progress", "cards", s.cards.Len())
	}
}

type rankedQuestion struct {
	question *questions.Question
	priority float64
}

// DueQuestions returns the due questions of topic, most urgent first.
// Questions without a card are never due.
func (s *Scheduler) DueQuestions(ctx context.Context, topic string) ([]*questions.Question, error) {
	if s.questions == nil {
		return nil, ErrNoQuestionRepo
	}
	ranked, err := s.dueInTopic(ctx, topic, s.now())
	if err != nil {
		return nil, err
	}
	return sortRanked(ranked), nil
}

// AllDueQuestions returns due questions across every topic, most urgent
// first.
func (s *Scheduler) AllDueQuestions(ctx context.Context) ([]*questions.Question, error) {
	if s.questions == nil {
		return nil, ErrNoQuestionRepo
	}
	topics, err := s.questions.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	now := s.now()
	var all []rankedQuestion
	for _, topic := range topics {
		ranked, err := s.dueInTopic(ctx, topic, now)
		if err != nil {
			return nil, err
		}
		all = append(all, ranked...)
	}
	return sortRanked(all), nil
}

func (s *Scheduler) dueInTopic(ctx context.Context, topic string, now time.Time) ([]rankedQuestion, error) {
	qs, err := questions.All(ctx, s.questions, topic)
	if errors.Is(err, questions.ErrTopicNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []rankedQuestion
	for _, q := range qs {
		c, ok := s.cards.Get(QuestionID(q.Topic, q.Title))
		if !ok || !c.IsDue(now) {
			continue
		}
		out = append(out, rankedQuestion{question: q, priority: c.Priority(now)})
	}
	return out, nil
}

// sortRanked orders by descending priority, keeping repository order
// for ties.
func sortRanked(ranked []rankedQuestion) []*questions.Question {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].priority > ranked[j].priority
	})
	out := make([]*questions.Question, len(ranked))
	for i, r := range ranked {
		out[i] = r.question
	}
	return out
}

// StatisticsByLevel groups cards by box. Every box 1..6 is present, even
// when empty. topic AllTopics disables the topic filter.
func (s *Scheduler) StatisticsByLevel(topic string) map[int][]Card {
	out := make(map[int][]Card, MaxBox)
	for box := MinBox; box <= MaxBox; box++ {
		out[box] = []Card{}
	}
	for _, c := range s.cards.All() {
		if topic != AllTopics && c.Topic != topic {
			continue
		}
		box := clampBox(c.Box)
		out[box] = append(out[box], c)
	}
	return out
}

// DueCountByLevel counts due cards per box. Every box 1..6 is present.
func (s *Scheduler) DueCountByLevel(topic string) map[int]int {
	now := s.now()
	out := make(map[int]int, MaxBox)
	for box := MinBox; box <= MaxBox; box++ {
		out[box] = 0
	}
	for _, c := range s.cards.All() {
		if topic != AllTopics && c.Topic != topic {
			continue
		}
		if c.IsDue(now) {
			out[c.Box]++
		}
	}
	return out
}

// Now returns the scheduler clock's current time.
func (s *Scheduler) Now() time.Time {
	return s.now()
}

// Card returns a copy of the card for a question.
func (s *Scheduler) Card(topic, title string) (Card, bool) {
	return s.cards.Get(QuestionID(topic, title))
}

// Cards returns copies of all cards sorted by QuestionID.
func (s *Scheduler) Cards() []Card {
	return s.cards.All()
}

// Export returns all cards keyed by QuestionID, ready for MergeCards
// on another scheduler.
func (s *Scheduler) Export() map[string]Card {
	cards := s.cards.All()
	out := make(map[string]Card, len(cards))
	for _, c := range cards {
		out[c.QuestionID] = c
	}
	return out
}

// Summary aggregates the whole store.
type Summary struct {
	TotalCards       int
	TotalReviews     int
	DueToday         int
	LastSystemUpdate time.Time
	ByLevel          map[int]int
}

// Stats returns store-wide totals.
func (s *Scheduler) Stats() Summary {
	now := s.now()
	total, last := s.cards.Counters()
	sum := Summary{
		TotalReviews:     total,
		LastSystemUpdate: last,
		ByLevel:          make(map[int]int, MaxBox),
	}
	for box := MinBox; box <= MaxBox; box++ {
		sum.ByLevel[box] = 0
	}
	for _, c := range s.cards.All() {
		sum.TotalCards++
		sum.ByLevel[c.Box]++
		if c.IsDue(now) {
			sum.DueToday++
		}
	}
	return sum
}
