package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/skinnypoem/internal/model"
)

// Vote outcome label values.
const (
	voteAccepted = "accepted"
	voteRejected = "rejected"
)

// Poem trigger label values.
const (
	TriggerManual = "manual"
	TriggerClock  = "clock"
)

var (
	votesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skinnypoem_votes_total",
			Help: "Votes received, by vote type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	poemsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skinnypoem_poems_published_total",
			Help: "Poems composed and archived, by what triggered them.",
		},
		[]string{"trigger"},
	)

	currentPhase = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skinnypoem_phase",
			Help: "1 for the phase the stored state is in, 0 otherwise.",
		},
		[]string{"phase"},
	)

	liveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skinnypoem_live_subscribers",
			Help: "Number of connected live-feed subscribers.",
		},
	)
)

func init() {
	prometheus.MustRegister(votesTotal)
	prometheus.MustRegister(poemsPublished)
	prometheus.MustRegister(currentPhase)
	prometheus.MustRegister(liveSubscribers)

	// Pre-initialize label combinations so they appear in /metrics from startup.
	for _, vt := range model.VoteTypes {
		votesTotal.WithLabelValues(vt, voteAccepted)
		votesTotal.WithLabelValues(vt, voteRejected)
	}
	poemsPublished.WithLabelValues(TriggerManual)
	poemsPublished.WithLabelValues(TriggerClock)
	for _, p := range model.Phases {
		currentPhase.WithLabelValues(string(p))
	}
}

func setPhaseGauge(phase model.Phase) {
	for _, p := range model.Phases {
		v := 0.0
		if p == phase {
			v = 1
		}
		currentPhase.WithLabelValues(string(p)).Set(v)
	}
}
