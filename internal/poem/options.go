// Package poem builds voting options, tallies votes, and composes the
// eleven-line skinny poem from the day's winners.
package poem

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/seantiz/skinnypoem/internal/model"
	"github.com/seantiz/skinnypoem/internal/wordbank"
)

// OptionCount is the number of choices offered per ballot.
const OptionCount = 5

// minKeyWordLen excludes short filler words from key word candidates.
const minKeyWordLen = 4

var nonWord = regexp.MustCompile(`[^\w\s]`)

// KeyLineOptions draws up to OptionCount distinct key lines from the bank.
func KeyLineOptions(rng *rand.Rand, bank *wordbank.Bank) []model.VotingOption {
	lines := append([]string(nil), bank.KeyLines...)
	rng.Shuffle(len(lines), func(i, j int) { lines[i], lines[j] = lines[j], lines[i] })
	return options("keyline", lines)
}

// KeyWordOptions derives key word candidates from the chosen key line,
// topped up with the first nouns, adjectives and verb of the bank.
func KeyWordOptions(keyLine string, bank *wordbank.Bank) []model.VotingOption {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(keyLine), "")

	var words []string
	for _, w := range strings.Split(cleaned, " ") {
		if len(w) >= minKeyWordLen && !bank.IsStopWord(w) {
			words = append(words, w)
		}
	}
	words = append(words, head(bank.Nouns, 2)...)
	words = append(words, head(bank.Adjectives, 2)...)
	words = append(words, head(bank.Verbs, 1)...)

	return options("keyword", words)
}

func options(prefix string, texts []string) []model.VotingOption {
	texts = head(texts, OptionCount)
	opts := make([]model.VotingOption, len(texts))
	for i, text := range texts {
		opts[i] = model.VotingOption{
			ID:   fmt.Sprintf("%s_%d", prefix, i),
			Text: text,
		}
	}
	return opts
}

func head(s []string, n int) []string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

// NewMoodVariables returns every bank mood at the neutral value with no votes.
func NewMoodVariables(bank *wordbank.Bank) map[string]model.MoodVariable {
	vars := make(map[string]model.MoodVariable, len(bank.Moods))
	for _, name := range bank.Moods {
		vars[name] = model.MoodVariable{Name: name, Value: model.MoodDefault}
	}
	return vars
}

// Winner returns the option with the most votes. On a tie the later option
// wins. ok is false when opts is empty.
func Winner(opts []model.VotingOption) (winner model.VotingOption, ok bool) {
	if len(opts) == 0 {
		return model.VotingOption{}, false
	}
	winner = opts[0]
	for _, o := range opts[1:] {
		if !(winner.Votes > o.Votes) {
			winner = o
		}
	}
	return winner, true
}

// FindOption returns a pointer into opts for id, or nil.
func FindOption(opts []model.VotingOption, id string) *model.VotingOption {
	for i := range opts {
		if opts[i].ID == id {
			return &opts[i]
		}
	}
	return nil
}

// ApplyMoodVote folds one ballot into the running averages. Unknown moods and
// values outside [MoodMin, MoodMax] are skipped. It returns how many axes
// were updated.
func ApplyMoodVote(vars map[string]model.MoodVariable, values map[string]float64) int {
	applied := 0
	for name, v := range values {
		mv, ok := vars[name]
		if !ok || v < model.MoodMin || v > model.MoodMax {
			continue
		}
		total := mv.Value * float64(mv.Votes)
		mv.Votes++
		mv.Value = (total + v) / float64(mv.Votes)
		vars[name] = mv
		applied++
	}
	return applied
}

// RandomMood returns a whole number in [MoodMin, MoodMax].
func RandomMood(rng *rand.Rand) float64 {
	return float64(model.MoodMin + rng.IntN(model.MoodMax-model.MoodMin+1))
}
