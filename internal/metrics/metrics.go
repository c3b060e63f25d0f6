// Package metrics provides Prometheus metrics for the newsbell pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace is the namespace for all newsbell metrics.
	Namespace = "newsbell"
)

// Cycle outcomes used as the "status" label.
const (
	StatusComplete = "complete"
	StatusAborted  = "aborted"
	StatusFailed   = "commit_failed"
)

// Metrics holds all Prometheus metrics. Methods are safe on a nil receiver
// so components can run without metrics.
type Metrics struct {
	CyclesTotal          *prometheus.CounterVec
	CycleDurationSeconds prometheus.Histogram
	CycleInProgress      prometheus.Gauge

	ArticlesFetchedTotal *prometheus.CounterVec
	FetchErrorsTotal     *prometheus.CounterVec
	NewArticlesTotal     *prometheus.CounterVec

	NotificationsTotal *prometheus.CounterVec
	UnreadArticles     prometheus.Gauge

	CheckpointCommits *prometheus.CounterVec
}

// New creates and registers all metrics on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	m := &Metrics{}

	m.CyclesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cycle",
			Name:      "runs_total",
			Help:      "Aggregation cycles by outcome",
		},
		[]string{"status"},
	)
	m.CycleDurationSeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Wall time of a full cycle, delivery delays included",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s to ~2min
		},
	)
	m.CycleInProgress = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "cycle",
			Name:      "in_progress",
			Help:      "1 while a cycle is running",
		},
	)

	m.ArticlesFetchedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "fetch",
			Name:      "articles_total",
			Help:      "Articles returned by each source",
		},
		[]string{"source"},
	)
	m.FetchErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "fetch",
			Name:      "errors_total",
			Help:      "Failed or partial fetches per source",
		},
		[]string{"source"},
	)
	m.NewArticlesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "filter",
			Name:      "new_articles_total",
			Help:      "Articles classified new, per source",
		},
		[]string{"source"},
	)

	m.NotificationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "deliver",
			Name:      "notifications_total",
			Help:      "Notifications handed to the notifier, by result",
		},
		[]string{"result"},
	)
	m.UnreadArticles = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "unread_articles",
			Help:      "Current unread counter",
		},
	)

	m.CheckpointCommits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "store",
			Name:      "commits_total",
			Help:      "Checkpoint and cache commits, by result",
		},
		[]string{"result"},
	)

	return m
}

// CycleStarted marks a cycle as running.
func (m *Metrics) CycleStarted() {
	if m == nil {
		return
	}
	m.CycleInProgress.Set(1)
}

// CycleFinished records a cycle's outcome and duration.
func (m *Metrics) CycleFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.CycleInProgress.Set(0)
	m.CyclesTotal.WithLabelValues(status).Inc()
	m.CycleDurationSeconds.Observe(d.Seconds())
}

// Fetched records one source's result.
func (m *Metrics) Fetched(source string, n int, err error) {
	if m == nil {
		return
	}
	m.ArticlesFetchedTotal.WithLabelValues(source).Add(float64(n))
	if err != nil {
		m.FetchErrorsTotal.WithLabelValues(source).Inc()
	}
}

// NewArticles records newly detected articles for source.
func (m *Metrics) NewArticles(source string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.NewArticlesTotal.WithLabelValues(source).Add(float64(n))
}

// Notified records one notification attempt.
func (m *Metrics) Notified(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.NotificationsTotal.WithLabelValues(result).Inc()
}

// Unread sets the unread gauge.
func (m *Metrics) Unread(n int) {
	if m == nil {
		return
	}
	m.UnreadArticles.Set(float64(n))
}

// Committed records a commit attempt.
func (m *Metrics) Committed(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CheckpointCommits.WithLabelValues(result).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
