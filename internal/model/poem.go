package model

import "time"

// Phase is one of the sequential daily voting states.
type Phase string

// Phase constants, in daily order.
const (
	PhaseKeyLine    Phase = "keyline"
	PhaseKeyWord    Phase = "keyword"
	PhaseMood       Phase = "mood"
	PhaseGeneration Phase = "generation"
	PhasePublished  Phase = "published"
)

// Phases lists every phase in the order a day moves through them.
var Phases = []Phase{PhaseKeyLine, PhaseKeyWord, PhaseMood, PhaseGeneration, PhasePublished}

// Rank returns the position of p in the daily order, or -1 for an unknown phase.
func (p Phase) Rank() int {
	for i, ph := range Phases {
		if ph == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p.Rank() >= 0
}

// Next returns the phase following p. Published has no successor and
// returns itself.
func (p Phase) Next() Phase {
	r := p.Rank()
	if r < 0 || r == len(Phases)-1 {
		return p
	}
	return Phases[r+1]
}

// Vote type constants. Each matches the phase that accepts it.
const (
	VoteKeyLine = string(PhaseKeyLine)
	VoteKeyWord = string(PhaseKeyWord)
	VoteMood    = string(PhaseMood)
)

// VoteTypes lists the vote kinds a user may cast once per day each.
var VoteTypes = []string{VoteKeyLine, VoteKeyWord, VoteMood}

// Mood value bounds.
const (
	MoodMin     = 1
	MoodMax     = 10
	MoodDefault = 5
)

// VotingOption is a candidate key line or key word with its tally.
type VotingOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// MoodVariable is a running average of the votes cast on one mood axis.
type MoodVariable struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Votes int     `json:"votes"`
}

// SkinnyPoem holds the variable parts of the 11-line skinny template.
// Lines 6 and 9 repeat the key word and line 11 repeats the key line.
type SkinnyPoem struct {
	ID        string             `json:"id"`
	Date      string             `json:"date"`
	KeyLine   string             `json:"keyLine"`
	KeyWord   string             `json:"keyWord"`
	Line3     string             `json:"line3"`
	Line4     string             `json:"line4"`
	Line5     string             `json:"line5"`
	Line7     string             `json:"line7"`
	Line8     string             `json:"line8"`
	Line10    string             `json:"line10"`
	Mood      map[string]float64 `json:"mood"`
	ImageURL  string             `json:"imageUrl,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

// PoemState is the single record describing the current day's progress.
type PoemState struct {
	Phase           Phase                   `json:"phase"`
	CurrentDay      string                  `json:"currentDay"`
	KeyLineOptions  []VotingOption          `json:"keyLineOptions"`
	KeyWordOptions  []VotingOption          `json:"keyWordOptions"`
	SelectedKeyLine string                  `json:"selectedKeyLine,omitempty"`
	SelectedKeyWord string                  `json:"selectedKeyWord,omitempty"`
	MoodVariables   map[string]MoodVariable `json:"moodVariables"`
	GeneratedPoem   *SkinnyPoem             `json:"generatedPoem,omitempty"`
	PhaseEndTime    int64                   `json:"phaseEndTime"`

	// Advanced is set when an admin moved the phase ahead of the clock.
	Advanced bool `json:"advanced,omitempty"`
}

// Clone returns a deep copy of s, safe to hand out while s keeps mutating.
func (s *PoemState) Clone() *PoemState {
	if s == nil {
		return nil
	}
	c := *s
	c.KeyLineOptions = cloneOptions(s.KeyLineOptions)
	c.KeyWordOptions = cloneOptions(s.KeyWordOptions)
	if s.MoodVariables != nil {
		c.MoodVariables = make(map[string]MoodVariable, len(s.MoodVariables))
		for k, v := range s.MoodVariables {
			c.MoodVariables[k] = v
		}
	}
	if s.GeneratedPoem != nil {
		p := *s.GeneratedPoem
		p.Mood = make(map[string]float64, len(s.GeneratedPoem.Mood))
		for k, v := range s.GeneratedPoem.Mood {
			p.Mood[k] = v
		}
		c.GeneratedPoem = &p
	}
	return &c
}

// cloneOptions copies opts, keeping an empty list empty rather than nil so
// it serializes as [].
func cloneOptions(opts []VotingOption) []VotingOption {
	if opts == nil {
		return nil
	}
	c := make([]VotingOption, len(opts))
	copy(c, opts)
	return c
}

// VoteRequest is a single user vote. OptionID is used by key line and key
// word votes; MoodValues by mood votes.
type VoteRequest struct {
	Type       string             `json:"type"`
	OptionID   string             `json:"optionId,omitempty"`
	MoodValues map[string]float64 `json:"moodValues,omitempty"`
}
