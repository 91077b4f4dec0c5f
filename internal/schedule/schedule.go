// Package schedule maps wall-clock time onto the daily voting phases.
package schedule

import (
	"sync"
	"time"

	"github.com/seantiz/skinnypoem/internal/model"
)

// DayLayout formats the per-day key (YYYY-MM-DD).
const DayLayout = "2006-01-02"

// window is the half-open hour range [start, end) during which a phase runs.
type window struct {
	phase model.Phase
	start int
	end   int
}

// windows is the fixed daily table. Hours outside every window are published.
var windows = []window{
	{model.PhaseKeyLine, 8, 12},
	{model.PhaseKeyWord, 12, 16},
	{model.PhaseMood, 16, 20},
	{model.PhaseGeneration, 20, 21},
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock returns a settable instant. It is safe for concurrent use.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixedClock returns a clock stopped at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

// Now returns the stored instant.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Schedule evaluates the phase table in a fixed location.
type Schedule struct {
	loc *time.Location
}

// New returns a Schedule evaluating hours in loc. A nil loc means UTC.
func New(loc *time.Location) *Schedule {
	if loc == nil {
		loc = time.UTC
	}
	return &Schedule{loc: loc}
}

// Location returns the zone the schedule runs in.
func (s *Schedule) Location() *time.Location {
	return s.loc
}

// Day returns the YYYY-MM-DD key for t.
func (s *Schedule) Day(t time.Time) string {
	return t.In(s.loc).Format(DayLayout)
}

// PhaseAt returns the phase active at t.
func (s *Schedule) PhaseAt(t time.Time) model.Phase {
	hour := t.In(s.loc).Hour()
	for _, w := range windows {
		if hour >= w.start && hour < w.end {
			return w.phase
		}
	}
	return model.PhasePublished
}

// EndTime returns when phase ends, relative to the day containing t.
// Published runs until the next key line window opens.
func (s *Schedule) EndTime(phase model.Phase, t time.Time) time.Time {
	local := t.In(s.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)

	for _, w := range windows {
		if w.phase == phase {
			return atHour(midnight, w.end)
		}
	}

	first := windows[0].start
	if local.Hour() < first {
		return atHour(midnight, first)
	}
	return atHour(midnight.AddDate(0, 0, 1), first)
}

// atHour returns midnight plus h hours on the same calendar day, using
// time.Date so DST shifts land on the wall-clock hour.
func atHour(midnight time.Time, h int) time.Time {
	return time.Date(midnight.Year(), midnight.Month(), midnight.Day(), h, 0, 0, 0, midnight.Location())
}

// ParseDay validates a YYYY-MM-DD key.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayLayout, s)
}
