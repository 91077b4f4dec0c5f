package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seantiz/skinnypoem/internal/model"
	"github.com/seantiz/skinnypoem/internal/poem"
	"github.com/seantiz/skinnypoem/internal/state"
	"github.com/seantiz/skinnypoem/internal/store"
)

// loadError marks a failure to read the stored state, as opposed to a
// failure to write the reconciled one.
type loadError struct{ err error }

func (e *loadError) Error() string { return e.err.Error() }

func (e *loadError) Unwrap() error { return e.err }

// current loads the stored state, starts a new day if needed, moves the
// phase forward to match the clock and saves any change. Caller holds e.mu.
func (e *Engine) current(ctx context.Context) (*model.PoemState, error) {
	now := e.clock.Now()

	st, err := e.repo.LoadState(ctx)
	switch {
	case errors.Is(err, state.ErrNoState):
		st = nil
	case err != nil:
		return nil, &loadError{err: err}
	}

	changed := false
	day := e.sched.Day(now)
	if st == nil || st.CurrentDay != day {
		if st != nil {
			e.logger.Info("starting new day", "day", day, "previous", st.CurrentDay)
		}
		st = e.newDay(day, now)
		changed = true
	}

	advanced, published := e.reconcile(ctx, st, now)
	changed = changed || advanced
	setPhaseGauge(st.Phase)
	if !changed {
		return st, nil
	}

	if err := e.repo.SaveState(ctx, st); err != nil {
		return nil, err
	}
	e.publishState(st)
	if published != nil {
		e.broker.Publish(Event{Type: EventPoem, Poem: published})
	}
	return st, nil
}

// fallback builds today's state without touching the store.
func (e *Engine) fallback() *model.PoemState {
	now := e.clock.Now()
	st := e.newDay(e.sched.Day(now), now)
	e.walk(context.Background(), st, e.sched.PhaseAt(now), false)
	st.PhaseEndTime = e.sched.EndTime(st.Phase, now).UnixMilli()
	return st
}

// newDay returns an empty state for day. A day first seen after the poem
// window stays published until the next key line window opens.
func (e *Engine) newDay(day string, now time.Time) *model.PoemState {
	bank := e.words.Current()
	st := &model.PoemState{
		Phase:          model.PhaseKeyLine,
		CurrentDay:     day,
		KeyLineOptions: []model.VotingOption{},
		KeyWordOptions: []model.VotingOption{},
		MoodVariables:  poem.NewMoodVariables(bank),
	}
	if e.sched.PhaseAt(now) == model.PhasePublished {
		st.Phase = model.PhasePublished
	} else {
		e.enter(st)
	}
	st.PhaseEndTime = e.sched.EndTime(st.Phase, now).UnixMilli()
	return st
}

// reconcile moves st forward to the clock's phase, running each entered
// phase's entry action. It never moves backward, except that a published
// state without a poem restarts at key line when the clock leaves
// published. It reports whether st changed and any poem it published.
func (e *Engine) reconcile(ctx context.Context, st *model.PoemState, now time.Time) (changed bool, published *model.SkinnyPoem) {
	target := e.sched.PhaseAt(now)

	if st.Phase == model.PhasePublished && st.GeneratedPoem == nil && target != model.PhasePublished {
		e.logger.Info("opening key line voting", "day", st.CurrentDay)
		st.Phase = model.PhaseKeyLine
		st.Advanced = false
		e.enter(st)
		changed = true
	}

	if st.Advanced && target.Rank() >= st.Phase.Rank() {
		st.Advanced = false
		changed = true
	}

	if target.Rank() > st.Phase.Rank() {
		published = e.walk(ctx, st, target, true)
		changed = true
	}

	if end := e.sched.EndTime(st.Phase, now).UnixMilli(); end != st.PhaseEndTime {
		st.PhaseEndTime = end
		changed = true
	}
	return changed, published
}

// walk steps st through every phase up to target. Entering published
// composes the poem when persist is set.
func (e *Engine) walk(ctx context.Context, st *model.PoemState, target model.Phase, persist bool) *model.SkinnyPoem {
	var published *model.SkinnyPoem
	for st.Phase.Rank() < target.Rank() {
		from := st.Phase
		st.Phase = st.Phase.Next()
		e.logger.Info("phase changed", "day", st.CurrentDay, "from", from, "to", st.Phase)

		if st.Phase != model.PhasePublished {
			e.enter(st)
			continue
		}
		if !persist || st.GeneratedPoem != nil {
			continue
		}
		e.selectKeyLine(st)
		e.selectKeyWord(st)
		p, err := e.publish(ctx, st, TriggerClock)
		if err != nil {
			e.logger.Error("failed to publish poem", "day", st.CurrentDay, "error", err)
			continue
		}
		published = p
	}
	return published
}

// enter runs the entry action for st.Phase.
func (e *Engine) enter(st *model.PoemState) {
	bank := e.words.Current()
	switch st.Phase {
	case model.PhaseKeyLine:
		if len(st.KeyLineOptions) == 0 {
			st.KeyLineOptions = poem.KeyLineOptions(e.rng, bank)
		}
	case model.PhaseKeyWord:
		e.selectKeyLine(st)
		if len(st.KeyWordOptions) == 0 {
			st.KeyWordOptions = poem.KeyWordOptions(st.SelectedKeyLine, bank)
		}
	case model.PhaseMood:
		e.selectKeyWord(st)
		if st.MoodVariables == nil {
			st.MoodVariables = poem.NewMoodVariables(bank)
		}
	}
}

func (e *Engine) selectKeyLine(st *model.PoemState) {
	if st.SelectedKeyLine != "" {
		return
	}
	if w, ok := poem.Winner(st.KeyLineOptions); ok {
		st.SelectedKeyLine = w.Text
		e.logger.Info("key line selected", "day", st.CurrentDay, "text", w.Text, "votes", w.Votes)
	}
}

func (e *Engine) selectKeyWord(st *model.PoemState) {
	if st.SelectedKeyWord != "" {
		return
	}
	if w, ok := poem.Winner(st.KeyWordOptions); ok {
		st.SelectedKeyWord = w.Text
		e.logger.Info("key word selected", "day", st.CurrentDay, "text", w.Text, "votes", w.Votes)
	}
}

// publish composes the poem from st's winners, archives it and marks st
// published. Moods nobody voted on get a random value.
func (e *Engine) publish(ctx context.Context, st *model.PoemState, trigger string) (*model.SkinnyPoem, error) {
	if st.SelectedKeyLine == "" || st.SelectedKeyWord == "" {
		return nil, ErrMissingWinners
	}

	// A poem archived by an attempt whose state save failed is reused, so the
	// archive and the state never disagree about the day's poem.
	existing, err := e.repo.DailyPoem(ctx, st.CurrentDay)
	switch {
	case err == nil:
		e.logger.Info("reusing archived poem", "day", st.CurrentDay, "poem_id", existing.ID)
		e.markPublished(st, existing, trigger)
		return existing, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	mood := make(map[string]float64, len(st.MoodVariables))
	for name, mv := range st.MoodVariables {
		v := mv.Value
		if mv.Votes == 0 {
			v = poem.RandomMood(e.rng)
		}
		mood[name] = v
	}

	now := e.clock.Now()
	p, err := poem.Compose(st.SelectedKeyLine, st.SelectedKeyWord, mood, e.words.Current(), e.rng, now)
	if err != nil {
		return nil, fmt.Errorf("compose poem: %w", err)
	}
	p.Date = st.CurrentDay

	if err := e.repo.SaveDailyPoem(ctx, &p); err != nil {
		return nil, err
	}

	e.markPublished(st, &p, trigger)
	return &p, nil
}

func (e *Engine) markPublished(st *model.PoemState, p *model.SkinnyPoem, trigger string) {
	st.GeneratedPoem = p
	st.Phase = model.PhasePublished
	st.PhaseEndTime = e.sched.EndTime(model.PhasePublished, e.clock.Now()).UnixMilli()
	poemsPublished.WithLabelValues(trigger).Inc()
	e.logger.Info("poem published", "day", p.Date, "poem_id", p.ID, "trigger", trigger)
}
