package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// CurrentVersion is the format written by Encode.
	CurrentVersion = 2

	// legacyVersion is the camelCase document written before format
	// versions were recorded. It has no format_version key.
	legacyVersion = 1
)

// migration decodes one format version into the current shape.
type migration func(raw []byte) (*SnapshotData, error)

var migrations = map[int]migration{
	legacyVersion:  decodeLegacy,
	CurrentVersion: decodeCurrent,
}

// Encode serializes data in the current format.
func Encode(data *SnapshotData) ([]byte, error) {
	out := *data
	out.Version = CurrentVersion
	if out.Cards == nil {
		out.Cards = make(map[string]*CardData)
	}
	return json.MarshalIndent(&out, "", "  ")
}

// Decode parses a snapshot document of any known format version.
func Decode(raw []byte) (*SnapshotData, error) {
	var head struct {
		Version *int            `json:"format_version"`
		Cards   json.RawMessage `json:"cards"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	version := legacyVersion
	if head.Version != nil {
		version = *head.Version
	}
	decode, ok := migrations[version]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	if len(head.Cards) == 0 || bytes.Equal(head.Cards, []byte("null")) {
		return nil, errors.New("snapshot has no cards field")
	}

	data, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode v%d snapshot: %w", version, err)
	}
	data.Version = CurrentVersion
	if data.Cards == nil {
		data.Cards = make(map[string]*CardData)
	}
	return data, nil
}

func decodeCurrent(raw []byte) (*SnapshotData, error) {
	var data SnapshotData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	for id, c := range data.Cards {
		if c == nil {
			delete(data.Cards, id)
			continue
		}
		if c.QuestionID == "" {
			c.QuestionID = id
		}
	}
	return &data, nil
}

type legacySnapshot struct {
	Cards            map[string]*legacyCard `json:"cards"`
	TotalReviews     int                    `json:"totalReviews"`
	LastSystemUpdate string                 `json:"lastSystemUpdate"`
}

type legacyCard struct {
	QuestionID          string  `json:"questionId"`
	Topic               string  `json:"topic"`
	QuestionTitle       string  `json:"questionTitle"`
	CreatedAt           string  `json:"createdAt"`
	Box                 int     `json:"box"`
	Level               int     `json:"level"`
	Difficulty          string  `json:"difficulty"`
	ConsecutiveCorrect  int     `json:"consecutiveCorrect"`
	ConsecutiveWrong    int     `json:"consecutiveWrong"`
	TotalAttempts       int     `json:"totalAttempts"`
	TotalCorrect        int     `json:"totalCorrect"`
	AverageResponseTime float64 `json:"averageResponseTime"`
	LastReviewed        *string `json:"lastReviewed"`
	NextReviewDate      string  `json:"nextReviewDate"`
}

// Card keys that only one format uses. topic, box and difficulty are
// spelled the same in both and say nothing about the format.
var (
	legacyOnlyKeys = []string{
		"questionId", "questionTitle", "createdAt", "level",
		"consecutiveCorrect", "consecutiveWrong", "totalAttempts",
		"totalCorrect", "averageResponseTime", "lastReviewed", "nextReviewDate",
	}
	currentOnlyKeys = []string{
		"question_id", "question_title", "created_at",
		"consecutive_correct", "consecutive_wrong", "total_attempts",
		"total_correct", "average_response_seconds", "last_reviewed_at", "next_review_date",
	}
)

// errNotLegacy marks an unversioned document whose cards use current
// format keys, e.g. a current-format file that lost format_version.
var errNotLegacy = errors.New("unversioned snapshot uses current card keys")

// decodeLegacy copies the card and counter fields out of a legacy
// document; any other keys are ignored.
func decodeLegacy(raw []byte) (*SnapshotData, error) {
	if err := checkLegacyCards(raw); err != nil {
		return nil, err
	}
	var old legacySnapshot
	if err := json.Unmarshal(raw, &old); err != nil {
		return nil, err
	}

	data := &SnapshotData{
		Cards:            make(map[string]*CardData, len(old.Cards)),
		TotalReviews:     old.TotalReviews,
		LastSystemUpdate: normalizeTime(old.LastSystemUpdate),
	}
	for id, lc := range old.Cards {
		if lc == nil {
			continue
		}
		box := lc.Box
		if box == 0 {
			box = lc.Level
		}
		cd := &CardData{
			QuestionID:             lc.QuestionID,
			Topic:                  lc.Topic,
			QuestionTitle:          lc.QuestionTitle,
			CreatedAt:              normalizeTime(lc.CreatedAt),
			Box:                    box,
			Difficulty:             lc.Difficulty,
			ConsecutiveCorrect:     lc.ConsecutiveCorrect,
			ConsecutiveWrong:       lc.ConsecutiveWrong,
			TotalAttempts:          lc.TotalAttempts,
			TotalCorrect:           lc.TotalCorrect,
			AverageResponseSeconds: lc.AverageResponseTime,
			NextReviewDate:         normalizeTime(lc.NextReviewDate),
		}
		if cd.QuestionID == "" {
			cd.QuestionID = id
		}
		if lc.LastReviewed != nil && *lc.LastReviewed != "" {
			s := normalizeTime(*lc.LastReviewed)
			cd.LastReviewedAt = &s
		}
		data.Cards[id] = cd
	}
	return data, nil
}

// checkLegacyCards fails when the cards carry current-format keys and no
// legacy-only key. Key matching follows encoding/json and ignores case.
func checkLegacyCards(raw []byte) error {
	var doc struct {
		Cards map[string]map[string]json.RawMessage `json:"cards"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	var legacy, current bool
	for _, fields := range doc.Cards {
		for key := range fields {
			legacy = legacy || hasKey(legacyOnlyKeys, key)
			current = current || hasKey(currentOnlyKeys, key)
		}
	}
	if current && !legacy {
		return errNotLegacy
	}
	return nil
}

func hasKey(keys []string, key string) bool {
	for _, k := range keys {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// ParseTime accepts RFC3339 as well as the offset-less and date-only
// forms found in legacy documents (interpreted in local time).
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		var t time.Time
		var err error
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// FormatTime renders t for storage.
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// normalizeTime rewrites a parseable timestamp into RFC3339 and leaves
// anything else untouched for the caller to default.
func normalizeTime(s string) string {
	if s == "" {
		return ""
	}
	t, err := ParseTime(s)
	if err != nil {
		return s
	}
	return FormatTime(t)
}
