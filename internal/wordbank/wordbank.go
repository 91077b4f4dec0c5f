// Package wordbank holds the vocabulary the poem generator draws from: the
// candidate key lines, the part-of-speech word lists, and the mood axes.
// Banks can be loaded from YAML and hot-reloaded while the server runs.
package wordbank

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Minimum list sizes that let the generator fill every slot with a distinct
// word. Two slots draw prepositions and two draw adjectives.
const (
	minPrepositions = 2
	minAdjectives   = 2
)

// Bank is a complete vocabulary.
type Bank struct {
	KeyLines     []string `yaml:"key_lines" json:"keyLines"`
	Verbs        []string `yaml:"verbs" json:"verbs"`
	Prepositions []string `yaml:"prepositions" json:"prepositions"`
	Nouns        []string `yaml:"nouns" json:"nouns"`
	Adjectives   []string `yaml:"adjectives" json:"adjectives"`
	Moods        []string `yaml:"moods" json:"moods"`
	StopWords    []string `yaml:"stop_words" json:"stopWords"`
	Punctuation  []string `yaml:"punctuation" json:"punctuation"`
}

// Default returns the built-in vocabulary.
func Default() *Bank {
	return &Bank{
		KeyLines: []string{
			"In the silence between heartbeats,",
			"Where shadows dance with light—",
			"Through the whispers of time:",
			"Beyond the edge of dreams;",
			"In the space where words fail,",
			"When the world holds its breath—",
			"At the crossroads of memory:",
			"Where the heart speaks in colors;",
			"In the echo of forgotten songs,",
			"Through the lens of solitude—",
		},
		Verbs:        []string{"whisper", "dance", "shatter", "bloom", "weave", "drift", "pierce", "embrace", "dissolve", "ignite"},
		Prepositions: []string{"through", "beneath", "beyond", "within", "across", "above", "beside", "among", "behind", "toward"},
		Nouns:        []string{"shadow", "light", "memory", "dream", "silence", "echo", "breath", "soul", "heart", "spirit"},
		Adjectives:   []string{"fragile", "eternal", "hidden", "gentle", "fierce", "quiet", "wild", "tender", "ancient", "luminous"},
		Moods: []string{
			"melancholy", "joy", "mystery", "passion", "serenity",
			"rebellion", "nostalgia", "hope", "darkness", "whimsy",
		},
		StopWords:   []string{"the", "and", "with", "where", "when", "through"},
		Punctuation: []string{",", "—", "-", ":", ";"},
	}
}

// Validate reports every list with too few distinct entries for the
// generator.
func (b *Bank) Validate() error {
	var errs []error
	need := func(name string, list []string, min int) {
		if n := distinct(list); n < min {
			errs = append(errs, fmt.Errorf("%s: need at least %d distinct entries, have %d", name, min, n))
		}
	}
	need("key_lines", b.KeyLines, 1)
	need("verbs", b.Verbs, 1)
	need("prepositions", b.Prepositions, minPrepositions)
	need("nouns", b.Nouns, 1)
	need("adjectives", b.Adjectives, minAdjectives)
	need("moods", b.Moods, 1)
	need("punctuation", b.Punctuation, 1)
	return errors.Join(errs...)
}

func distinct(list []string) int {
	seen := make(map[string]struct{}, len(list))
	for _, w := range list {
		seen[w] = struct{}{}
	}
	return len(seen)
}

// IsStopWord reports whether w is excluded from key word candidates.
func (b *Bank) IsStopWord(w string) bool {
	for _, s := range b.StopWords {
		if s == w {
			return true
		}
	}
	return false
}

// LoadFile reads a YAML bank. Sections missing from the file keep their
// default contents.
func LoadFile(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word bank: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML bank over the defaults and validates the result.
func Parse(data []byte) (*Bank, error) {
	var raw Bank
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode word bank: %w", err)
	}

	b := Default()
	overlay(&b.KeyLines, raw.KeyLines)
	overlay(&b.Verbs, raw.Verbs)
	overlay(&b.Prepositions, raw.Prepositions)
	overlay(&b.Nouns, raw.Nouns)
	overlay(&b.Adjectives, raw.Adjectives)
	overlay(&b.Moods, raw.Moods)
	overlay(&b.StopWords, raw.StopWords)
	overlay(&b.Punctuation, raw.Punctuation)

	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid word bank: %w", err)
	}
	return b, nil
}

func overlay(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}

// Source yields the bank currently in effect.
type Source interface {
	Current() *Bank
}

// Static is a Source that never changes.
type Static struct {
	Bank *Bank
}

// Current returns the fixed bank.
func (s Static) Current() *Bank { return s.Bank }
