package spacedrep

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MergePolicy decides which card wins when an imported card collides
// with an existing one.
type MergePolicy string

const (
	PreferExisting    MergePolicy = "prefer-existing"
	PreferIncoming    MergePolicy = "prefer-incoming"
	PreferHigherLevel MergePolicy = "prefer-higher-level"
	PreferNewer       MergePolicy = "prefer-newer"
)

// MergePolicies lists all policies in display order.
var MergePolicies = []MergePolicy{PreferExisting, PreferIncoming, PreferHigherLevel, PreferNewer}

// ParseMergePolicy accepts "prefer-newer", "PREFER_NEWER" or "newer".
func ParseMergePolicy(s string) (MergePolicy, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "-"))
	if !strings.HasPrefix(norm, "prefer-") {
		norm = "prefer-" + norm
	}
	for _, p := range MergePolicies {
		if string(p) == norm {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown merge policy %q", s)
}

// MergeResult counts what a merge did.
type MergeResult struct {
	Inserted int
	Replaced int
	Kept     int
}

// Changed reports whether the merge modified the store.
func (r MergeResult) Changed() bool {
	return r.Inserted+r.Replaced > 0
}

// CardStore is the keyed collection of cards plus system-wide counters.
// Cards never leave the store by pointer; readers get copies.
type CardStore struct {
	mu               sync.RWMutex
	cards            map[string]*Card
	totalReviews     int
	lastSystemUpdate time.Time
}

// NewCardStore creates an empty store.
func NewCardStore() *CardStore {
	return &CardStore{cards: make(map[string]*Card)}
}

// GetOrCreate returns the card for id, inserting a fresh one if absent.
func (s *CardStore) GetOrCreate(id, topic, title string, now time.Time) Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(id, topic, title, now)
}

func (s *CardStore) getOrCreateLocked(id, topic, title string, now time.Time) *Card {
	if c, ok := s.cards[id]; ok {
		return c
	}
	c := NewCard(topic, title, now)
	c.QuestionID = id
	s.cards[id] = c
	return c
}

// Update runs fn on the card for id (created if absent) while holding the
// store lock, counts a review, and returns a copy of the result.
func (s *CardStore) Update(id, topic, title string, now time.Time, fn func(*Card)) Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.getOrCreateLocked(id, topic, title, now)
	fn(c)
	s.totalReviews++
	s.lastSystemUpdate = now
	return *c
}

// Get returns a copy of the card for id.
func (s *CardStore) Get(id string) (Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	if !ok {
		return Card{}, false
	}
	return *c, true
}

// Len returns the number of cards.
func (s *CardStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cards)
}

// All returns copies of every card sorted by QuestionID.
func (s *CardStore) All() []Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Card, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

// Counters returns the system-wide review count and last update time.
func (s *CardStore) Counters() (totalReviews int, lastSystemUpdate time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalReviews, s.lastSystemUpdate
}

// Merge folds incoming cards into the store according to policy.
func (s *CardStore) Merge(incoming map[string]Card, policy MergePolicy, now time.Time) MergeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res MergeResult
	for id, in := range incoming {
		normalizeCard(id, &in, now)
		existing, ok := s.cards[id]
		if !ok {
			c := in
			s.cards[id] = &c
			res.Inserted++
			continue
		}
		if resolveMerge(existing, &in, policy) {
			c := in
			s.cards[id] = &c
			res.Replaced++
		} else {
			res.Kept++
		}
	}
	if res.Changed() {
		s.lastSystemUpdate = now
	}
	return res
}

// normalizeCard brings a card from outside the store back within card
// invariants. Topic and title missing from the card are read off id.
func normalizeCard(id string, c *Card, now time.Time) {
	c.QuestionID = id
	if c.Topic == "" || c.QuestionTitle == "" {
		if topic, title, ok := strings.Cut(id, ":"); ok {
			if c.Topic == "" {
				c.Topic = topic
			}
			if c.QuestionTitle == "" {
				c.QuestionTitle = title
			}
		}
	}

	c.Box = clampBox(c.Box)
	if !c.Difficulty.Valid() {
		c.Difficulty = DifficultyMedium
	}
	c.ConsecutiveCorrect = max(c.ConsecutiveCorrect, 0)
	c.ConsecutiveWrong = max(c.ConsecutiveWrong, 0)
	c.TotalAttempts = max(c.TotalAttempts, 0)
	c.TotalCorrect = min(max(c.TotalCorrect, 0), c.TotalAttempts)
	if c.ConsecutiveCorrect > 0 && c.ConsecutiveWrong > 0 {
		c.ConsecutiveWrong = 0
	}
	c.AverageResponseSeconds = ClampResponseSeconds(c.AverageResponseSeconds, 0)

	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.NextReviewDate.IsZero() {
		c.NextReviewDate = startOfDay(now)
	}
}

// resolveMerge returns true when incoming should replace existing.
func resolveMerge(existing, incoming *Card, policy MergePolicy) bool {
	switch policy {
	case PreferIncoming:
		return true
	case PreferHigherLevel:
		if incoming.Box != existing.Box {
			return incoming.Box > existing.Box
		}
		return newer(incoming.LastReviewedAt, existing.LastReviewedAt)
	case PreferNewer:
		return newer(incoming.LastReviewedAt, existing.LastReviewedAt)
	default:
		return false
	}
}

// newer reports whether a is strictly later than b; nil is the oldest.
func newer(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

// Replace swaps in a full card set, e.g. after loading a snapshot.
func (s *CardStore) Replace(cards map[string]*Card, totalReviews int, lastSystemUpdate time.Time) {
	if cards == nil {
		cards = make(map[string]*Card)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = cards
	s.totalReviews = totalReviews
	s.lastSystemUpdate = lastSystemUpdate
}

// Reset drops all cards and counters.
func (s *CardStore) Reset() {
	s.Replace(nil, 0, time.Time{})
}
