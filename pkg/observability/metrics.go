package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/parley/pkg/domain"
)

// Metrics collects engine lifecycle counters.
type Metrics struct {
	// Transitions counts state entries, labeled by state name.
	Transitions *prometheus.CounterVec

	// Finishes counts completed conversations, labeled by manner.
	Finishes *prometheus.CounterVec

	// TagMatches counts extracted tags, labeled by tag name.
	TagMatches *prometheus.CounterVec

	// TagsPerMessage observes how many tags each message yielded.
	TagsPerMessage prometheus.Histogram

	reg prometheus.Registerer
}

// NewMetrics creates and registers the metric set. A nil registerer
// falls back to the process-global default.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_state_transitions_total",
				Help: "Total number of state entries",
			},
			[]string{"state"},
		),
		Finishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_finishes_total",
				Help: "Total number of finished conversations",
			},
			[]string{"manner"},
		),
		TagMatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_tag_matches_total",
				Help: "Total number of tag matches",
			},
			[]string{"tag"},
		),
		TagsPerMessage: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "parley_tags_per_message",
				Help:    "Number of tags extracted per incoming message",
				Buckets: []float64{0, 1, 2, 3, 5, 8},
			},
		),
		reg: reg,
	}
	reg.MustRegister(m.Transitions, m.Finishes, m.TagMatches, m.TagsPerMessage)
	return m
}

// Hooks returns lifecycle hooks that feed the metric set.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) {
			m.Transitions.WithLabelValues(e.State).Inc()
		},
		OnFinish: func(_ context.Context, e *domain.FinishEvent) {
			m.Finishes.WithLabelValues(e.Manner).Inc()
		},
		OnTagsMatched: func(_ context.Context, e *domain.MatchEvent) {
			total := 0
			for tag, n := range e.Tags {
				m.TagMatches.WithLabelValues(tag).Add(float64(n))
				total += n
			}
			m.TagsPerMessage.Observe(float64(total))
		},
	}
}

// Handler returns the HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	if g, ok := m.reg.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}
