package spacedrep

import (
	"time"

	"github.com/abhisek/quizbox/internal/store"
)

// cardToData converts a card to its persisted form.
func cardToData(c *Card) *store.CardData {
	cd := &store.CardData{
		QuestionID:             c.QuestionID,
		Topic:                  c.Topic,
		QuestionTitle:          c.QuestionTitle,
		CreatedAt:              store.FormatTime(c.CreatedAt),
		Box:                    c.Box,
		Difficulty:             c.Difficulty.String(),
		ConsecutiveCorrect:     c.ConsecutiveCorrect,
		ConsecutiveWrong:       c.ConsecutiveWrong,
		TotalAttempts:          c.TotalAttempts,
		TotalCorrect:           c.TotalCorrect,
		AverageResponseSeconds: c.AverageResponseSeconds,
		NextReviewDate:         store.FormatTime(c.NextReviewDate),
	}
	if c.LastReviewedAt != nil {
		s := store.FormatTime(*c.LastReviewedAt)
		cd.LastReviewedAt = &s
	}
	return cd
}

// cardFromData rebuilds a card, defaulting fields that older formats
// lacked and clamping values that would break card invariants.
func cardFromData(id string, cd *store.CardData, now time.Time) *Card {
	c := &Card{
		Topic:                  cd.Topic,
		QuestionTitle:          cd.QuestionTitle,
		Box:                    cd.Box,
		Difficulty:             DifficultyMedium,
		ConsecutiveCorrect:     cd.ConsecutiveCorrect,
		ConsecutiveWrong:       cd.ConsecutiveWrong,
		TotalAttempts:          cd.TotalAttempts,
		TotalCorrect:           cd.TotalCorrect,
		AverageResponseSeconds: cd.AverageResponseSeconds,
	}
	if d, err := ParseDifficulty(cd.Difficulty); err == nil {
		c.Difficulty = d
	}
	if t, err := store.ParseTime(cd.CreatedAt); err == nil {
		c.CreatedAt = t
	}
	if t, err := store.ParseTime(cd.NextReviewDate); err == nil {
		c.NextReviewDate = t
	}
	if cd.LastReviewedAt != nil {
		if t, err := store.ParseTime(*cd.LastReviewedAt); err == nil {
			c.LastReviewedAt = &t
		}
	}
	normalizeCard(id, c, now)
	return c
}

// CardsToData converts cards keyed by QuestionID, e.g. for export.
func CardsToData(cards []Card) map[string]*store.CardData {
	out := make(map[string]*store.CardData, len(cards))
	for i := range cards {
		out[cards[i].QuestionID] = cardToData(&cards[i])
	}
	return out
}

// CardsFromData converts a decoded document into merge input.
func CardsFromData(data map[string]*store.CardData, now time.Time) map[string]Card {
	out := make(map[string]Card, len(data))
	for id, cd := range data {
		if cd == nil {
			continue
		}
		out[id] = *cardFromData(id, cd, now)
	}
	return out
}

// snapshotData captures the store contents for persistence.
func snapshotData(cs *CardStore) *store.SnapshotData {
	cards := cs.All()
	total, last := cs.Counters()
	data := &store.SnapshotData{
		Version:      store.CurrentVersion,
		Cards:        CardsToData(cards),
		TotalReviews: total,
	}
	if !last.IsZero() {
		data.LastSystemUpdate = store.FormatTime(last)
	}
	return data
}

// loadSnapshotData replaces the store contents with data.
func loadSnapshotData(cs *CardStore, data *store.SnapshotData, now time.Time) {
	cards := make(map[string]*Card, len(data.Cards))
	for id, cd := range data.Cards {
		if cd == nil {
			continue
		}
		cards[id] = cardFromData(id, cd, now)
	}
	var last time.Time
	if t, err := store.ParseTime(data.LastSystemUpdate); err == nil {
		last = t
	}
	cs.Replace(cards, max(data.TotalReviews, 0), last)
}
