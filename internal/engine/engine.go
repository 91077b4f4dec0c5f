package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/seantiz/skinnypoem/internal/model"
	"github.com/seantiz/skinnypoem/internal/poem"
	"github.com/seantiz/skinnypoem/internal/schedule"
	"github.com/seantiz/skinnypoem/internal/state"
	"github.com/seantiz/skinnypoem/internal/store"
	"github.com/seantiz/skinnypoem/internal/wordbank"
)

// Options configure an Engine. Repo is required; the rest have defaults.
type Options struct {
	Repo     *state.Repository
	Words    wordbank.Source
	Schedule *schedule.Schedule
	Clock    schedule.Clock
	Rand     *rand.Rand
	Logger   *slog.Logger
}

// Engine owns the day's poem state.
type Engine struct {
	mu     sync.Mutex
	repo   *state.Repository
	words  wordbank.Source
	sched  *schedule.Schedule
	clock  schedule.Clock
	rng    *rand.Rand
	logger *slog.Logger
	broker *Broker
}

// New creates an engine from opts.
func New(opts Options) *Engine {
	e := &Engine{
		repo:   opts.Repo,
		words:  opts.Words,
		sched:  opts.Schedule,
		clock:  opts.Clock,
		rng:    opts.Rand,
		logger: opts.Logger,
		broker: NewBroker(),
	}
	if e.words == nil {
		e.words = wordbank.Static{Bank: wordbank.Default()}
	}
	if e.sched == nil {
		e.sched = schedule.New(time.UTC)
	}
	if e.clock == nil {
		e.clock = schedule.SystemClock{}
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Broker returns the engine's event broker for live subscriptions.
func (e *Engine) Broker() *Broker {
	return e.broker
}

// Schedule returns the phase schedule the engine runs on.
func (e *Engine) Schedule() *schedule.Schedule {
	return e.sched
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Close ends every live subscription.
func (e *Engine) Close() {
	e.broker.Close()
}

// State returns the current state, first bringing it in line with the clock.
// If the stored state cannot be read, a fresh state for today is served and
// the error is logged.
func (e *Engine) State(ctx context.Context) (*model.PoemState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.current(ctx)
	if err != nil {
		var load *loadError
		if !errors.As(err, &load) {
			return nil, err
		}
		e.logger.Error("serving fallback poem state", "error", err)
		return e.fallback(), nil
	}
	return st.Clone(), nil
}

// Vote records one ballot from userID in the current phase.
func (e *Engine) Vote(ctx context.Context, userID string, req model.VoteRequest) (st *model.PoemState, err error) {
	if userID == "" {
		return nil, ErrNotLoggedIn
	}
	defer func() {
		if known(req.Type) {
			outcome := voteAccepted
			if err != nil {
				outcome = voteRejected
			}
			votesTotal.WithLabelValues(req.Type, outcome).Inc()
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	st, err = e.current(ctx)
	if err != nil {
		return nil, err
	}
	if !known(req.Type) {
		return nil, fmt.Errorf("%w: unknown vote type %q", ErrInvalidVote, req.Type)
	}
	if req.Type != string(st.Phase) {
		return nil, ErrWrongPhase
	}

	// Validate against a working copy so a rejected ballot leaves st untouched.
	next := st.Clone()
	var value string
	switch req.Type {
	case model.VoteKeyLine, model.VoteKeyWord:
		opts := next.KeyLineOptions
		if req.Type == model.VoteKeyWord {
			opts = next.KeyWordOptions
		}
		opt := poem.FindOption(opts, req.OptionID)
		if opt == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOption, req.OptionID)
		}
		opt.Votes++
		value = req.OptionID
	case model.VoteMood:
		if poem.ApplyMoodVote(next.MoodVariables, req.MoodValues) == 0 {
			return nil, fmt.Errorf("%w: no mood value in range %d-%d", ErrInvalidVote, model.MoodMin, model.MoodMax)
		}
		raw, err := json.Marshal(req.MoodValues)
		if err != nil {
			return nil, fmt.Errorf("encode mood vote: %w", err)
		}
		value = string(raw)
	}

	ok, err := e.repo.RecordVote(ctx, next.CurrentDay, userID, req.Type, value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyVoted
	}

	if err := e.repo.SaveState(ctx, next); err != nil {
		if rerr := e.repo.ReleaseVote(ctx, next.CurrentDay, userID, req.Type); rerr != nil {
			e.logger.Error("failed to release vote marker", "user_id", userID, "type", req.Type, "error", rerr)
		}
		return nil, err
	}

	e.logger.Info("vote recorded", "day", next.CurrentDay, "type", req.Type, "user_id", userID)
	e.publishState(next)
	return next.Clone(), nil
}

// Generate composes and archives the poem. It is only allowed during the
// generation phase. trigger labels the published-poems metric.
func (e *Engine) Generate(ctx context.Context, trigger string) (*model.SkinnyPoem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.current(ctx)
	if err != nil {
		return nil, err
	}
	if st.Phase != model.PhaseGeneration {
		return nil, ErrNotGenerationPhase
	}

	e.selectKeyLine(st)
	e.selectKeyWord(st)
	p, err := e.publish(ctx, st, trigger)
	if err != nil {
		return nil, err
	}
	st.Advanced = e.sched.PhaseAt(e.clock.Now()) != model.PhasePublished

	if err := e.repo.SaveState(ctx, st); err != nil {
		return nil, err
	}
	e.publishState(st)
	e.broker.Publish(Event{Type: EventPoem, Poem: p})
	return p, nil
}

// Simulate moves the state one phase ahead of the clock. Leaving the mood
// phase fills every unvoted mood with a random single vote.
func (e *Engine) Simulate(ctx context.Context) (*model.PoemState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.current(ctx)
	if err != nil {
		return nil, err
	}

	switch st.Phase {
	case model.PhaseKeyLine, model.PhaseKeyWord:
		st.Phase = st.Phase.Next()
		e.enter(st)
	case model.PhaseMood:
		st.Phase = model.PhaseGeneration
		for name, mv := range st.MoodVariables {
			if mv.Votes == 0 {
				mv.Value = poem.RandomMood(e.rng)
				mv.Votes = 1
				st.MoodVariables[name] = mv
			}
		}
	default:
		return nil, ErrCannotSimulate
	}

	now := e.clock.Now()
	st.Advanced = st.Phase.Rank() > e.sched.PhaseAt(now).Rank()
	st.PhaseEndTime = e.sched.EndTime(st.Phase, now).UnixMilli()
	if err := e.repo.SaveState(ctx, st); err != nil {
		return nil, err
	}
	e.logger.Info("phase simulated", "day", st.CurrentDay, "phase", st.Phase)
	setPhaseGauge(st.Phase)
	e.publishState(st)
	return st.Clone(), nil
}

// DailyPoem returns the poem archived for date. An empty date means today.
func (e *Engine) DailyPoem(ctx context.Context, date string) (*model.SkinnyPoem, error) {
	if date == "" {
		date = e.sched.Day(e.clock.Now())
	} else if _, err := schedule.ParseDay(date); err != nil {
		return nil, ErrInvalidDate
	}

	p, err := e.repo.DailyPoem(ctx, date)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoPoem
	}
	return p, err
}

// Archive returns every archived poem, newest first.
func (e *Engine) Archive(ctx context.Context) ([]*model.SkinnyPoem, error) {
	dates, err := e.repo.PoemDates(ctx)
	if err != nil {
		return nil, err
	}
	poems := make([]*model.SkinnyPoem, 0, len(dates))
	for _, d := range dates {
		p, err := e.repo.DailyPoem(ctx, d)
		if errors.Is(err, store.ErrNotFound) {
			// Expired or removed between listing and reading.
			continue
		}
		if err != nil {
			return nil, err
		}
		poems = append(poems, p)
	}
	return poems, nil
}

// UserVotes returns what userID voted today, keyed by vote type.
func (e *Engine) UserVotes(ctx context.Context, userID string) (map[string]string, error) {
	if userID == "" {
		return nil, ErrNotLoggedIn
	}
	return e.repo.UserVotes(ctx, e.sched.Day(e.clock.Now()), userID)
}

// Stats summarizes today's participation.
type Stats struct {
	Day           string         `json:"day"`
	Phase         model.Phase    `json:"phase"`
	Participants  map[string]int `json:"participants"`
	KeyLineVotes  int            `json:"keyLineVotes"`
	KeyWordVotes  int            `json:"keyWordVotes"`
	MoodBallots   int            `json:"moodBallots"`
	ArchivedPoems int            `json:"archivedPoems"`
}

// Stats reports today's vote tallies and participation.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	st, err := e.State(ctx)
	if err != nil {
		return nil, err
	}
	participants, err := e.repo.Participants(ctx, st.CurrentDay)
	if err != nil {
		return nil, err
	}
	dates, err := e.repo.PoemDates(ctx)
	if err != nil {
		return nil, err
	}

	s := &Stats{
		Day:           st.CurrentDay,
		Phase:         st.Phase,
		Participants:  participants,
		MoodBallots:   participants[model.VoteMood],
		ArchivedPoems: len(dates),
	}
	for _, o := range st.KeyLineOptions {
		s.KeyLineVotes += o.Votes
	}
	for _, o := range st.KeyWordOptions {
		s.KeyWordVotes += o.Votes
	}
	return s, nil
}

func known(voteType string) bool {
	for _, vt := range model.VoteTypes {
		if vt == voteType {
			return true
		}
	}
	return false
}

func (e *Engine) publishState(st *model.PoemState) {
	e.broker.Publish(Event{Type: EventState, State: st.Clone()})
}
