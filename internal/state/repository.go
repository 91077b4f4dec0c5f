// Package state persists the day's poem record, the published poem archive,
// and per-user vote markers on top of a key-value store.
package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/skinnypoem/internal/model"
	"github.com/seantiz/skinnypoem/internal/store"
)

// Key layout.
const (
	StateKey        = "poem_state"
	dailyPoemPrefix = "daily_poem:"
	votePrefix      = "vote:"
)

// VoteTTL is how long a vote marker blocks a repeat vote.
const VoteTTL = 24 * time.Hour

// Default per-operation deadlines.
const (
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 5 * time.Second
)

// ErrNoState is returned by LoadState when nothing has been saved yet.
var ErrNoState = errors.New("no poem state saved")

var storeOpDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "skinnypoem_store_op_duration_seconds",
		Help:    "Latency of key-value store operations issued by the state repository.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"op", "outcome"},
)

func init() {
	prometheus.MustRegister(storeOpDuration)
}

// DailyPoemKey returns the archive key for date.
func DailyPoemKey(date string) string {
	return dailyPoemPrefix + date
}

// VoteKey returns the marker key recording that user voted on voteType.
func VoteKey(date, userID, voteType string) string {
	return votePrefix + date + ":" + userID + ":" + voteType
}

// Options tune a Repository. Zero values select the defaults.
type Options struct {
	Codec        Codec
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Repository reads and writes poem records.
type Repository struct {
	store        store.Store
	codec        Codec
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewRepository wraps s.
func NewRepository(s store.Store, opts Options) *Repository {
	r := &Repository{
		store:        s,
		codec:        opts.Codec,
		readTimeout:  opts.ReadTimeout,
		writeTimeout: opts.WriteTimeout,
	}
	if r.codec == nil {
		r.codec = jsonCodec{}
	}
	if r.readTimeout <= 0 {
		r.readTimeout = DefaultReadTimeout
	}
	if r.writeTimeout <= 0 {
		r.writeTimeout = DefaultWriteTimeout
	}
	return r
}

// Store returns the underlying key-value store.
func (r *Repository) Store() store.Store {
	return r.store
}

func observe(op string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, store.ErrNotFound):
		outcome = "miss"
	case err != nil:
		outcome = "error"
	}
	storeOpDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}

func (r *Repository) get(ctx context.Context, key string, v any) (err error) {
	ctx, cancel := context.WithTimeout(ctx, r.readTimeout)
	defer cancel()
	defer func(start time.Time) { observe("get", start, err) }(time.Now())

	data, err := r.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := r.codec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *Repository) set(ctx context.Context, key string, v any, ttl time.Duration) (err error) {
	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()
	defer func(start time.Time) { observe("set", start, err) }(time.Now())

	data, err := r.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.store.Set(ctx, key, data, ttl)
}

// LoadState returns the stored state, or ErrNoState.
func (r *Repository) LoadState(ctx context.Context) (*model.PoemState, error) {
	var st model.PoemState
	err := r.get(ctx, StateKey, &st)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("load poem state: %w", err)
	}
	return &st, nil
}

// SaveState overwrites the stored state.
func (r *Repository) SaveState(ctx context.Context, st *model.PoemState) error {
	if err := r.set(ctx, StateKey, st, 0); err != nil {
		return fmt.Errorf("save poem state: %w", err)
	}
	return nil
}

// SaveDailyPoem archives p under its date.
func (r *Repository) SaveDailyPoem(ctx context.Context, p *model.SkinnyPoem) error {
	if p.Date == "" {
		return errors.New("save daily poem: missing date")
	}
	if err := r.set(ctx, DailyPoemKey(p.Date), p, 0); err != nil {
		return fmt.Errorf("save daily poem: %w", err)
	}
	return nil
}

// DailyPoem returns the poem archived for date, or store.ErrNotFound.
func (r *Repository) DailyPoem(ctx context.Context, date string) (*model.SkinnyPoem, error) {
	var p model.SkinnyPoem
	if err := r.get(ctx, DailyPoemKey(date), &p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load daily poem: %w", err)
	}
	return &p, nil
}

// PoemDates lists every archived date, newest first.
func (r *Repository) PoemDates(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	keys, err := r.store.Keys(ctx, dailyPoemPrefix)
	if err != nil {
		return nil, fmt.Errorf("list daily poems: %w", err)
	}
	dates := make([]string, len(keys))
	for i, k := range keys {
		dates[len(keys)-1-i] = strings.TrimPrefix(k, dailyPoemPrefix)
	}
	return dates, nil
}

// RecordVote claims the marker for user's vote of voteType on date. It
// returns false if the user already voted. value is kept for UserVotes.
func (r *Repository) RecordVote(ctx context.Context, date, userID, voteType, value string) (recorded bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()
	defer func(start time.Time) { observe("setnx", start, err) }(time.Now())

	ok, err := r.store.SetNX(ctx, VoteKey(date, userID, voteType), []byte(value), VoteTTL)
	if err != nil {
		return false, fmt.Errorf("record vote: %w", err)
	}
	return ok, nil
}

// ReleaseVote removes a vote marker so the user can vote again. Used to roll
// back a claim when the vote itself could not be saved.
func (r *Repository) ReleaseVote(ctx context.Context, date, userID, voteType string) error {
	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()
	return r.store.Delete(ctx, VoteKey(date, userID, voteType))
}

// UserVotes returns the raw vote values user cast on date, keyed by vote type.
func (r *Repository) UserVotes(ctx context.Context, date, userID string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	votes := make(map[string]string)
	for _, vt := range model.VoteTypes {
		v, err := r.store.Get(ctx, VoteKey(date, userID, vt))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s vote: %w", vt, err)
		}
		votes[vt] = string(v)
	}
	return votes, nil
}

// Participants counts distinct voters on date per vote type, plus the number
// of distinct users who voted at all under the key "total".
func (r *Repository) Participants(ctx context.Context, date string) (map[string]int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	prefix := votePrefix + date + ":"
	keys, err := r.store.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}

	counts := make(map[string]int, len(model.VoteTypes)+1)
	for _, vt := range model.VoteTypes {
		counts[vt] = 0
	}
	users := make(map[string]bool)
	for _, k := range keys {
		rest := strings.TrimPrefix(k, prefix)
		i := strings.LastIndex(rest, ":")
		if i < 0 {
			continue
		}
		users[rest[:i]] = true
		counts[rest[i+1:]]++
	}
	counts["total"] = len(users)
	return counts, nil
}
