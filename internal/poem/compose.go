package poem

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/seantiz/skinnypoem/internal/model"
	"github.com/seantiz/skinnypoem/internal/wordbank"
)

// ErrExhausted is returned when a word list has no unused entry left.
var ErrExhausted = errors.New("word bank exhausted")

// Trailing marks stripped before punctuation is re-applied.
const (
	keyLineTrail = ".,:;—-"
	closingTrail = ",:;—-"
)

// Compose fills the skinny template. Lines 3, 4, 5, 7 and 8 are mutually
// distinct, and line 10 differs from all of them.
func Compose(keyLine, keyWord string, mood map[string]float64, bank *wordbank.Bank, rng *rand.Rand, now time.Time) (model.SkinnyPoem, error) {
	if keyLine == "" || keyWord == "" {
		return model.SkinnyPoem{}, errors.New("key line and key word are required")
	}

	used := make(map[string]bool)
	picks := []struct {
		slot string
		bank []string
	}{
		{slot: "line3", bank: bank.Verbs},
		{slot: "line4", bank: bank.Prepositions},
		{slot: "line5", bank: bank.Nouns},
		{slot: "line7", bank: bank.Prepositions},
		{slot: "line8", bank: bank.Adjectives},
		{slot: "line10", bank: bank.Adjectives},
	}
	words := make([]string, len(picks))
	for i, p := range picks {
		w, err := pickUnused(rng, p.bank, used)
		if err != nil {
			return model.SkinnyPoem{}, fmt.Errorf("%s: %w", p.slot, err)
		}
		used[w] = true
		words[i] = w
	}

	punct := func() string { return bank.Punctuation[rng.IntN(len(bank.Punctuation))] }

	copied := make(map[string]float64, len(mood))
	for k, v := range mood {
		copied[k] = v
	}

	return model.SkinnyPoem{
		ID:        model.NewID(),
		KeyLine:   trimMark(keyLine, keyLineTrail) + punct(),
		KeyWord:   keyWord + punct(),
		Line3:     words[0],
		Line4:     words[1] + punct(),
		Line5:     words[2] + punct(),
		Line7:     words[3],
		Line8:     words[4] + punct(),
		Line10:    words[5],
		Mood:      copied,
		CreatedAt: now.UTC(),
	}, nil
}

// trimMark drops a single trailing rune of s when it is one of marks.
func trimMark(s, marks string) string {
	r, size := utf8.DecodeLastRuneInString(s)
	if size == 0 || !strings.ContainsRune(marks, r) {
		return s
	}
	return s[:len(s)-size]
}

func pickUnused(rng *rand.Rand, list []string, used map[string]bool) (string, error) {
	var free []string
	for _, w := range list {
		if !used[w] {
			free = append(free, w)
		}
	}
	if len(free) == 0 {
		return "", ErrExhausted
	}
	return free[rng.IntN(len(free))], nil
}

// Lines expands a poem into its eleven lines.
func Lines(p model.SkinnyPoem) []string {
	return []string{
		p.KeyLine,
		p.KeyWord,
		p.Line3,
		p.Line4,
		p.Line5,
		p.KeyWord,
		p.Line7,
		p.Line8,
		p.KeyWord,
		p.Line10,
		trimMark(p.KeyLine, closingTrail) + ".",
	}
}

// MoodLevel pairs a mood axis with its value.
type MoodLevel struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// MoodProfile summarises a poem's mood for display.
type MoodProfile struct {
	Intensity float64     `json:"intensity"`
	Dominant  []MoodLevel `json:"dominant"`
	Palette   string      `json:"palette"`
}

// Palette names, by rising intensity.
const (
	PaletteDusk  = "dusk"
	PaletteEmber = "ember"
	PaletteBlaze = "blaze"
)

// Profile returns the average intensity, the three strongest moods (ties by
// name), and the palette the intensity falls in.
func Profile(mood map[string]float64) MoodProfile {
	levels := make([]MoodLevel, 0, len(mood))
	var sum float64
	for name, v := range mood {
		levels = append(levels, MoodLevel{Name: name, Value: v})
		sum += v
	}
	sort.Slice(levels, func(i, j int) bool {
		if levels[i].Value != levels[j].Value {
			return levels[i].Value > levels[j].Value
		}
		return levels[i].Name < levels[j].Name
	})

	var intensity float64
	if len(levels) > 0 {
		intensity = sum / float64(len(levels))
	}

	palette := PaletteBlaze
	switch {
	case intensity <= 4:
		palette = PaletteDusk
	case intensity <= 7:
		palette = PaletteEmber
	}

	if len(levels) > 3 {
		levels = levels[:3]
	}
	return MoodProfile{Intensity: intensity, Dominant: levels, Palette: palette}
}

// Text renders the poem as a plain-text keepsake.
func Text(p model.SkinnyPoem) string {
	var b strings.Builder
	b.WriteString(strings.Join(Lines(p), "\n"))
	b.WriteString("\n\n--- Mood ---\n")

	dominant := Profile(p.Mood).Dominant
	parts := make([]string, len(dominant))
	for i, m := range dominant {
		parts[i] = fmt.Sprintf("%s: %.1f", m.Name, m.Value)
	}
	b.WriteString(strings.Join(parts, ", "))

	fmt.Fprintf(&b, "\n\nGenerated: %s\n", p.CreatedAt.Format("2006-01-02"))
	return b.String()
}
