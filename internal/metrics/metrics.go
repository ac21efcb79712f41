// Package metrics exposes Prometheus instruments for the engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eventengine"

type Metrics struct {
	registry *prometheus.Registry

	CatalogEvents        prometheus.Gauge
	ParticipationsJoined prometheus.Counter
	Completions          prometheus.Counter
	TeamJoins            *prometheus.CounterVec
	SubmissionsAccepted  *prometheus.CounterVec
	SubmissionsRefused   *prometheus.CounterVec
	Votes                *prometheus.CounterVec
	ModerationDecisions  *prometheus.CounterVec
	RewardsEmitted       *prometheus.CounterVec
	LeaderboardRefresh   prometheus.Histogram
	SSEClients           prometheus.Gauge
}

// New registers every instrument on a fresh registry, plus the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CatalogEvents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_events",
			Help:      "Number of events in the loaded catalog",
		}),
		ParticipationsJoined: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participations_joined_total",
			Help:      "Total number of event joins",
		}),
		Completions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participations_completed_total",
			Help:      "Total number of event completions",
		}),
		TeamJoins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "team_joins_total",
			Help:      "Team join attempts by outcome",
		}, []string{"result"}),
		SubmissionsAccepted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_accepted_total",
			Help:      "Accepted media submissions by media type",
		}, []string{"type"}),
		SubmissionsRefused: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_refused_total",
			Help:      "Refused media submissions by error code",
		}, []string{"code"}),
		Votes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Votes cast by choice",
		}, []string{"choice"}),
		ModerationDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_decisions_total",
			Help:      "Moderation decisions by resulting status",
		}, []string{"status"}),
		RewardsEmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_emitted_total",
			Help:      "Reward grants emitted by reason and status",
		}, []string{"reason", "status"}),
		LeaderboardRefresh: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "leaderboard_refresh_seconds",
			Help:      "Time to rank and persist a live leaderboard",
			Buckets:   prometheus.DefBuckets,
		}),
		SSEClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_clients",
			Help:      "Connected SSE clients",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SetCatalogEvents(n int) {
	if m == nil {
		return
	}
	m.CatalogEvents.Set(float64(n))
}

func (m *Metrics) IncJoined() {
	if m == nil {
		return
	}
	m.ParticipationsJoined.Inc()
}

func (m *Metrics) IncCompleted() {
	if m == nil {
		return
	}
	m.Completions.Inc()
}

func (m *Metrics) IncTeamJoin(result string) {
	if m == nil {
		return
	}
	m.TeamJoins.WithLabelValues(result).Inc()
}

func (m *Metrics) IncSubmissionAccepted(mediaType string) {
	if m == nil {
		return
	}
	m.SubmissionsAccepted.WithLabelValues(mediaType).Inc()
}

func (m *Metrics) IncSubmissionRefused(code string) {
	if m == nil {
		return
	}
	m.SubmissionsRefused.WithLabelValues(code).Inc()
}

func (m *Metrics) IncVote(choice string) {
	if m == nil {
		return
	}
	m.Votes.WithLabelValues(choice).Inc()
}

func (m *Metrics) IncModeration(status string) {
	if m == nil {
		return
	}
	m.ModerationDecisions.WithLabelValues(status).Inc()
}

func (m *Metrics) IncReward(reason, status string) {
	if m == nil {
		return
	}
	m.RewardsEmitted.WithLabelValues(reason, status).Inc()
}

func (m *Metrics) ObserveLeaderboardRefresh(d time.Duration) {
	if m == nil {
		return
	}
	m.LeaderboardRefresh.Observe(d.Seconds())
}

func (m *Metrics) SetSSEClients(n int) {
	if m == nil {
		return
	}
	m.SSEClients.Set(float64(n))
}
