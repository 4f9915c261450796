package spacedrep

import (
	"fmt"
	"strings"
)

// Difficulty is the per-card difficulty rating. Values are ordered from
// easiest to hardest; use Easier/Harder to move between them.
type Difficulty int

const (
	DifficultyEasy Difficulty = iota
	DifficultyMedium
	DifficultyHard
	DifficultyVeryHard
)

type difficultyInfo struct {
	name        string
	displayName string
	timeFactor  float64
	// intervalFactor scales the review interval: easy cards wait longer.
	intervalFactor float64
}

var difficulties = [...]difficultyInfo{
	DifficultyEasy:     {"EASY", "Easy", 1.0, 2.0},
	DifficultyMedium:   {"MEDIUM", "Medium", 1.5, 1.0},
	DifficultyHard:     {"HARD", "Hard", 2.0, 0.6},
	DifficultyVeryHard: {"VERY_HARD", "Very hard", 3.0, 0.3},
}

// Valid reports whether d is one of the defined difficulties.
func (d Difficulty) Valid() bool {
	return d >= DifficultyEasy && d <= DifficultyVeryHard
}

func (d Difficulty) info() difficultyInfo {
	if !d.Valid() {
		return difficulties[DifficultyMedium]
	}
	return difficulties[d]
}

// String returns the persisted name, e.g. "VERY_HARD".
func (d Difficulty) String() string { return d.info().name }

// DisplayName returns a human readable label.
func (d Difficulty) DisplayName() string { return d.info().displayName }

// TimeFactor scales the expected answer time. The expected time for a
// card is TimeFactor * 10 seconds.
func (d Difficulty) TimeFactor() float64 { return d.info().timeFactor }

// IntervalFactor is the multiplier applied to the base review interval.
func (d Difficulty) IntervalFactor() float64 { return d.info().intervalFactor }

// ExpectedSeconds is the response time considered "on pace" for d.
func (d Difficulty) ExpectedSeconds() float64 { return d.TimeFactor() * 10 }

// Rank is the position of d in the easy-to-hard ordering (EASY = 0).
func (d Difficulty) Rank() int {
	if !d.Valid() {
		return int(DifficultyMedium)
	}
	return int(d)
}

// Easier returns the next easier difficulty, or d itself at EASY.
func (d Difficulty) Easier() Difficulty {
	if d <= DifficultyEasy {
		return DifficultyEasy
	}
	return d - 1
}

// Harder returns the next harder difficulty, or d itself at VERY_HARD.
func (d Difficulty) Harder() Difficulty {
	if d >= DifficultyVeryHard {
		return DifficultyVeryHard
	}
	return d + 1
}

// ParseDifficulty accepts the persisted names case-insensitively, with
// either "_", "-" or " " as separator.
func ParseDifficulty(s string) (Difficulty, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for i, info := range difficulties {
		if info.name == norm {
			return Difficulty(i), nil
		}
	}
	return DifficultyMedium, fmt.Errorf("unknown difficulty %q", s)
}
