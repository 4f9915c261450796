package spacedrep

import (
	"fmt"
	"time"
)

// QuestionID derives the stable card key for a question.
func QuestionID(topic, title string) string {
	return topic + ":" + title
}

// Card holds the spaced repetition state for a single question.
type Card struct {
	QuestionID    string
	Topic         string
	QuestionTitle string
	CreatedAt     time.Time

	Box                    int
	Difficulty             Difficulty
	ConsecutiveCorrect     int
	ConsecutiveWrong       int
	TotalAttempts          int
	TotalCorrect           int
	AverageResponseSeconds float64
	LastReviewedAt         *time.Time
	NextReviewDate         time.Time
}

// NewCard creates a card in box 1 at MEDIUM difficulty, due today.
func NewCard(topic, title string, now time.Time) *Card {
	return &Card{
		QuestionID:     QuestionID(topic, title),
		Topic:          topic,
		QuestionTitle:  title,
		CreatedAt:      now,
		Box:            MinBox,
		Difficulty:     DifficultyMedium,
		NextReviewDate: startOfDay(now),
	}
}

// ApplyResult records one answer and reschedules the card. rng supplies
// the interval jitter; nil disables it.
func (c *Card) ApplyResult(correct bool, responseSeconds float64, now time.Time, rng Source) {
	responseSeconds = ClampResponseSeconds(responseSeconds, 0)

	c.TotalAttempts++
	reviewed := now
	c.LastReviewedAt = &reviewed

	if c.TotalAttempts == 1 {
		c.AverageResponseSeconds = responseSeconds
	} else {
		c.AverageResponseSeconds = emaAlpha*responseSeconds + (1-emaAlpha)*c.AverageResponseSeconds
	}

	if correct {
		c.TotalCorrect++
		c.ConsecutiveCorrect++
		c.ConsecutiveWrong = 0
		if c.Box < MaxBox && c.canPromote(responseSeconds) {
			c.Box++
			c.ConsecutiveCorrect = 0
			c.adjustDifficulty(responseSeconds)
		}
	} else {
		c.ConsecutiveWrong++
		c.ConsecutiveCorrect = 0
		if c.ConsecutiveWrong == 1 {
			if c.Box > 3 {
				c.Box = max(c.Box-2, MinBox)
			} else {
				c.Box = max(c.Box-1, MinBox)
			}
			if c.Difficulty == DifficultyEasy {
				c.Difficulty = DifficultyMedium
			}
		} else {
			c.Box = MinBox
			c.Difficulty = DifficultyHard
			c.ConsecutiveWrong = 0
		}
	}

	c.scheduleNext(now, rng)
}

// canPromote checks the streak threshold, and for box 4 and above also
// response speed and running accuracy.
func (c *Card) canPromote(responseSeconds float64) bool {
	if c.ConsecutiveCorrect < promotionThreshold(c.Box) {
		return false
	}
	if c.Box >= 4 {
		if responseSeconds > 2*c.Difficulty.ExpectedSeconds() {
			return false
		}
		if c.SuccessRate() < promotionSuccessRate {
			return false
		}
	}
	return true
}

func (c *Card) adjustDifficulty(responseSeconds float64) {
	expected := c.Difficulty.ExpectedSeconds()
	switch {
	case responseSeconds < 0.5*expected && c.Difficulty != DifficultyEasy:
		c.Difficulty = c.Difficulty.Easier()
	case responseSeconds > 1.5*expected && c.Difficulty != DifficultyVeryHard:
		c.Difficulty = c.Difficulty.Harder()
	}
}

func (c *Card) scheduleNext(now time.Time, rng Source) {
	days := intervalDays(c.Box, c.Difficulty, c.TotalAttempts, c.TotalCorrect, noiseFactor(rng))
	c.NextReviewDate = startOfDay(now).AddDate(0, 0, days)
}

// SuccessRate returns TotalCorrect/TotalAttempts, or 0 with no attempts.
func (c *Card) SuccessRate() float64 {
	if c.TotalAttempts == 0 {
		return 0
	}
	return float64(c.TotalCorrect) / float64(c.TotalAttempts)
}

// IsDue returns true once the review date has arrived (inclusive).
func (c *Card) IsDue(now time.Time) bool {
	return daysBetween(c.NextReviewDate, now, now.Location()) >= 0
}

// OverdueDays returns whole days past the review date, or 0.
func (c *Card) OverdueDays(now time.Time) int {
	return max(daysBetween(c.NextReviewDate, now, now.Location()), 0)
}

// DaysUntilReview returns whole days until the card is due, or 0 if due.
func (c *Card) DaysUntilReview(now time.Time) int {
	return max(daysBetween(now, c.NextReviewDate, now.Location()), 0)
}

// Priority ranks cards for review; higher is more urgent. Low boxes,
// overdue cards and harder cards float to the top.
func (c *Card) Priority(now time.Time) float64 {
	p := float64(7 - c.Box)
	if overdue := c.OverdueDays(now); overdue > 0 {
		p += 0.5 * float64(overdue)
	}
	p += 0.3 * float64(c.Difficulty.Rank())
	return p
}

// validate reports the first broken invariant.
func (c *Card) validate() error {
	switch {
	case c.Box < MinBox || c.Box > MaxBox:
		return fmt.Errorf("card %s: box %d out of range", c.QuestionID, c.Box)
	case !c.Difficulty.Valid():
		return fmt.Errorf("card %s: invalid difficulty %d", c.QuestionID, int(c.Difficulty))
	case c.TotalCorrect > c.TotalAttempts:
		return fmt.Errorf("card %s: %d correct of %d attempts", c.QuestionID, c.TotalCorrect, c.TotalAttempts)
	case c.ConsecutiveCorrect != 0 && c.ConsecutiveWrong != 0:
		return fmt.Errorf("card %s: both streaks nonzero", c.QuestionID)
	case c.NextReviewDate.IsZero():
		return fmt.Errorf("card %s: missing next review date", c.QuestionID)
	}
	return nil
}
