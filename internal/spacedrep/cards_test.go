package spacedrep

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestCardStore_GetOrCreate(t *testing.T) {
	cs := NewCardStore()
	c := cs.GetOrCreate("Math:Primes", "Math", "Primes", t0)
	if c.Box != 1 || c.Topic != "Math" {
		t.Fatalf("unexpected new card: %+v", c)
	}

	cs.Update("Math:Primes", "Math", "Primes", t0, func(c *Card) { c.Box = 3 })
	again := cs.GetOrCreate("Math:Primes", "Math", "Primes", t0.Add(time.Hour))
	if again.Box != 3 {
		t.Errorf("GetOrCreate returned a fresh card, Box = %d, want 3", again.Box)
	}
	if !again.CreatedAt.Equal(t0) {
		t.Errorf("CreatedAt = %v, want %v", again.CreatedAt, t0)
	}
	if cs.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cs.Len())
	}
}

func TestCardStore_UpdateCounts(t *testing.T) {
	cs := NewCardStore()
	cs.Update("a", "T", "a", t0, func(*Card) {})
	later := t0.Add(time.Minute)
	cs.Update("a", "T", "a", later, func(*Card) {})

	total, last := cs.Counters()
	if total != 2 {
		t.Errorf("totalReviews = %d, want 2", total)
	}
	if !last.Equal(later) {
		t.Errorf("lastSystemUpdate = %v, want %v", last, later)
	}
}

func TestCardStore_ReturnsCopies(t *testing.T) {
	cs := NewCardStore()
	c := cs.GetOrCreate("a", "T", "a", t0)
	c.Box = 6
	got, _ := cs.Get("a")
	if got.Box != 1 {
		t.Errorf("mutating a returned card changed the store: Box = %d", got.Box)
	}
}

func TestCardStore_ConcurrentGetOrCreate(t *testing.T) {
	cs := NewCardStore()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cs.GetOrCreate("shared", "T", "shared", t0)
			cs.Update(fmt.Sprintf("own-%d", i), "T", "own", t0, func(c *Card) {
				c.ApplyResult(true, 5, t0, nil)
			})
		}(i)
	}
	wg.Wait()
	if cs.Len() != 33 {
		t.Errorf("Len() = %d, want 33", cs.Len())
	}
	if total, _ := cs.Counters(); total != 32 {
		t.Errorf("totalReviews = %d, want 32", total)
	}
}

func TestCardStore_MergeInsertsNew(t *testing.T) {
	for _, policy := range MergePolicies {
		t.Run(string(policy), func(t *testing.T) {
			cs := NewCardStore()
			res := cs.Merge(map[string]Card{
				"T:new": {Topic: "T", QuestionTitle: "new", Box: 4, Difficulty: DifficultyHard, NextReviewDate: t0},
			}, policy, t0)
			if res.Inserted != 1 || !res.Changed() {
				t.Fatalf("result = %+v, want 1 inserted", res)
			}
			c, ok := cs.Get("T:new")
			if !ok || c.Box != 4 || c.QuestionID != "T:new" {
				t.Errorf("merged card = %+v, %v", c, ok)
			}
		})
	}
}

func TestCardStore_MergePolicies(t *testing.T) {
	older := ptrTime(t0.Add(-48 * time.Hour))
	newerT := ptrTime(t0.Add(-24 * time.Hour))

	tests := []struct {
		name        string
		policy      MergePolicy
		existing    Card
		incoming    Card
		wantReplace bool
	}{
		{"existing wins always", PreferExisting,
			Card{Box: 1, LastReviewedAt: older}, Card{Box: 6, LastReviewedAt: newerT}, false},
		{"incoming wins always", PreferIncoming,
			Card{Box: 6, LastReviewedAt: newerT}, Card{Box: 1, LastReviewedAt: older}, true},
		{"higher box wins", PreferHigherLevel,
			Card{Box: 2, LastReviewedAt: newerT}, Card{Box: 4, LastReviewedAt: older}, true},
		{"lower box loses", PreferHigherLevel,
			Card{Box: 5, LastReviewedAt: older}, Card{Box: 3, LastReviewedAt: newerT}, false},
		{"equal box falls back to newer", PreferHigherLevel,
			Card{Box: 3, LastReviewedAt: older}, Card{Box: 3, LastReviewedAt: newerT}, true},
		{"newer review wins", PreferNewer,
			Card{Box: 5, LastReviewedAt: older}, Card{Box: 1, LastReviewedAt: newerT}, true},
		{"older review loses", PreferNewer,
			Card{Box: 1, LastReviewedAt: newerT}, Card{Box: 5, LastReviewedAt: older}, false},
		{"reviewed beats never reviewed", PreferNewer,
			Card{Box: 1}, Card{Box: 2, LastReviewedAt: older}, true},
		{"never reviewed loses", PreferNewer,
			Card{Box: 1, LastReviewedAt: older}, Card{Box: 2}, false},
		{"both never reviewed keeps existing", PreferNewer,
			Card{Box: 1}, Card{Box: 2}, false},
		{"equal timestamps keep existing", PreferNewer,
			Card{Box: 1, LastReviewedAt: older}, Card{Box: 2, LastReviewedAt: ptrTime(*older)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := NewCardStore()
			existing := tt.existing
			existing.QuestionID = "T:q"
			existing.Difficulty = DifficultyMedium
			existing.NextReviewDate = t0
			cs.Replace(map[string]*Card{"T:q": &existing}, 7, t0)

			incoming := tt.incoming
			incoming.Difficulty = DifficultyMedium
			incoming.NextReviewDate = t0
			res := cs.Merge(map[string]Card{"T:q": incoming}, tt.policy, t0)

			got, _ := cs.Get("T:q")
			wantBox := tt.existing.Box
			if tt.wantReplace {
				wantBox = tt.incoming.Box
				if res.Replaced != 1 {
					t.Errorf("Replaced = %d, want 1", res.Replaced)
				}
			} else if res.Kept != 1 {
				t.Errorf("Kept = %d, want 1", res.Kept)
			}
			if got.Box != wantBox {
				t.Errorf("Box = %d, want %d", got.Box, wantBox)
			}
			if total, _ := cs.Counters(); total != 7 {
				t.Errorf("merge changed totalReviews to %d", total)
			}
		})
	}
}

func TestCardStore_PreferExistingIdempotent(t *testing.T) {
	cs := NewCardStore()
	base := map[string]Card{
		"T:a": {Box: 2, Difficulty: DifficultyMedium, NextReviewDate: t0},
		"T:b": {Box: 5, Difficulty: DifficultyHard, NextReviewDate: t0},
	}
	cs.Merge(base, PreferIncoming, t0)
	before := cs.All()

	res := cs.Merge(map[string]Card{
		"T:a": {Box: 6, Difficulty: DifficultyEasy, NextReviewDate: t0},
		"T:b": {Box: 1, Difficulty: DifficultyEasy, NextReviewDate: t0},
	}, PreferExisting, t0.Add(time.Hour))
	if res.Changed() {
		t.Errorf("PreferExisting merge reported changes: %+v", res)
	}
	_, last := cs.Counters()
	if !last.Equal(t0) {
		t.Errorf("lastSystemUpdate moved to %v on a no-op merge", last)
	}

	after := cs.All()
	for i := range before {
		if before[i].Box != after[i].Box || before[i].Difficulty != after[i].Difficulty {
			t.Errorf("card %s changed: %+v -> %+v", before[i].QuestionID, before[i], after[i])
		}
	}
}

func TestCardStore_MergeNormalizesIncoming(t *testing.T) {
	cs := NewCardStore()
	res := cs.Merge(map[string]Card{
		"Math:Z": {Box: 9},
		"Bio:Y": {
			Topic:                  "Biology",
			Box:                    -2,
			Difficulty:             Difficulty(17),
			ConsecutiveCorrect:     2,
			ConsecutiveWrong:       3,
			TotalAttempts:          4,
			TotalCorrect:           6,
			AverageResponseSeconds: -8,
		},
	}, PreferIncoming, t0)
	if res.Inserted != 2 {
		t.Fatalf("Inserted = %d, want 2", res.Inserted)
	}

	z, _ := cs.Get("Math:Z")
	if z.Box != MaxBox {
		t.Errorf("Box = %d, want %d", z.Box, MaxBox)
	}
	if z.Topic != "Math" || z.QuestionTitle != "Z" {
		t.Errorf("topic/title = %q/%q, want Math/Z", z.Topic, z.QuestionTitle)
	}
	if !z.CreatedAt.Equal(t0) || !z.NextReviewDate.Equal(startOfDay(t0)) {
		t.Errorf("dates = %v/%v, want %v/%v", z.CreatedAt, z.NextReviewDate, t0, startOfDay(t0))
	}

	y, _ := cs.Get("Bio:Y")
	if y.Topic != "Biology" || y.QuestionTitle != "Y" {
		t.Errorf("topic/title = %q/%q, want Biology/Y", y.Topic, y.QuestionTitle)
	}
	if y.Box != MinBox || y.Difficulty != DifficultyMedium {
		t.Errorf("box/difficulty = %d/%v, want 1/MEDIUM", y.Box, y.Difficulty)
	}
	if y.TotalCorrect != 4 || y.ConsecutiveWrong != 0 || y.AverageResponseSeconds != 0 {
		t.Errorf("counters = %+v", y)
	}

	for _, c := range cs.All() {
		if err := c.validate(); err != nil {
			t.Errorf("%s: validate() = %v", c.QuestionID, err)
		}
	}

	// a card from a merge keeps its box in range through later answers
	got := cs.Update("Math:Z", "Math", "Z", t0, func(c *Card) {
		for i := 0; i < 5; i++ {
			c.ApplyResult(true, 5, t0, neutral)
		}
	})
	if got.Box < MinBox || got.Box > MaxBox {
		t.Errorf("Box after answers = %d, want within %d..%d", got.Box, MinBox, MaxBox)
	}
}

func TestCardStore_MergeComparesNormalizedBox(t *testing.T) {
	cs := NewCardStore()
	cs.Merge(map[string]Card{"T:q": {Box: 6, Difficulty: DifficultyMedium, NextReviewDate: t0}}, PreferIncoming, t0)

	res := cs.Merge(map[string]Card{"T:q": {Box: 40, Difficulty: DifficultyEasy, NextReviewDate: t0}}, PreferHigherLevel, t0)
	if res.Kept != 1 {
		t.Errorf("merge result = %+v, want box 40 clamped to 6 and the existing card kept", res)
	}
}

func TestParseMergePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    MergePolicy
		wantErr bool
	}{
		{"prefer-newer", PreferNewer, false},
		{"PREFER_NEWER", PreferNewer, false},
		{"newer", PreferNewer, false},
		{"higher-level", PreferHigherLevel, false},
		{"PREFER_EXISTING", PreferExisting, false},
		{" incoming ", PreferIncoming, false},
		{"latest", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMergePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMergePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMergePolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
