// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Metrics holds the engine's Prometheus collectors, registered on a private
// registry so several engines can coexist in one process. All methods are
// safe on a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// SearchesTotal counts source searches by source and result (hit, miss, error).
	SearchesTotal *prometheus.CounterVec

	// SearchErrors counts failed searches by source and error kind.
	SearchErrors *prometheus.CounterVec

	// SearchDuration observes source search latency in seconds.
	SearchDuration *prometheus.HistogramVec

	// CandidatesAccepted counts acceptable candidates by source.
	CandidatesAccepted *prometheus.CounterVec

	// DownloadAttempts counts transfer attempts by source.
	DownloadAttempts *prometheus.CounterVec

	// DownloadsTotal counts finished download tasks by source and final state.
	DownloadsTotal *prometheus.CounterVec

	// DownloadBytes counts bytes of promoted artifacts.
	DownloadBytes prometheus.Counter

	// DownloadDuration observes task duration in seconds, retries included.
	DownloadDuration prometheus.Histogram

	// DownloadsInFlight is the number of transfers holding a worker slot.
	DownloadsInFlight prometheus.Gauge

	// OutcomesTotal counts terminal outcomes by state.
	OutcomesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SearchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Source searches by result.",
		}, []string{"source", "result"}),
		SearchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "errors_total",
			Help:      "Failed source searches by error kind.",
		}, []string{"source", "kind"}),
		SearchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Source search latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"source"}),
		CandidatesAccepted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "candidates_accepted_total",
			Help:      "Candidates scoring at or above the threshold.",
		}, []string{"source"}),
		DownloadAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "attempts_total",
			Help:      "Transfer attempts by source.",
		}, []string{"source"}),
		DownloadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "tasks_total",
			Help:      "Finished download tasks by final state.",
		}, []string{"source", "state"}),
		DownloadBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "bytes_total",
			Help:      "Bytes of promoted artifacts.",
		}),
		DownloadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "duration_seconds",
			Help:      "Download task duration including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		DownloadsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "in_flight",
			Help:      "Transfers currently holding a worker slot.",
		}),
		OutcomesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Terminal paper outcomes by state.",
		}, []string{"state"}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// kinded is satisfied by errors carrying an ErrorKind.
type kinded interface {
	ErrorKind() types.ErrorKind
}

// ObserveSearch records one source search.
func (m *Metrics) ObserveSearch(source string, accepted int, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.SearchDuration.WithLabelValues(source).Observe(d.Seconds())
	switch {
	case err != nil:
		m.SearchesTotal.WithLabelValues(source, "error").Inc()
		kind := "unknown"
		var k kinded
		if errors.As(err, &k) {
			kind = string(k.ErrorKind())
		}
		m.SearchErrors.WithLabelValues(source, kind).Inc()
	case accepted > 0:
		m.SearchesTotal.WithLabelValues(source, "hit").Inc()
	default:
		m.SearchesTotal.WithLabelValues(source, "miss").Inc()
	}
	if accepted > 0 {
		m.CandidatesAccepted.WithLabelValues(source).Add(float64(accepted))
	}
}

// ObserveAttempt records one transfer attempt.
func (m *Metrics) ObserveAttempt(source string) {
	if m == nil {
		return
	}
	m.DownloadAttempts.WithLabelValues(source).Inc()
}

// ObserveDownload records a finished download task.
func (m *Metrics) ObserveDownload(source string, state types.OutcomeState, bytes int64, d time.Duration) {
	if m == nil {
		return
	}
	m.DownloadsTotal.WithLabelValues(source, string(state)).Inc()
	m.DownloadDuration.Observe(d.Seconds())
	if state == types.StateDownloaded {
		m.DownloadBytes.Add(float64(bytes))
	}
}

// TrackInFlight adjusts the in-flight gauge by delta.
func (m *Metrics) TrackInFlight(delta float64) {
	if m == nil {
		return
	}
	m.DownloadsInFlight.Add(delta)
}

// ObserveOutcome records a terminal outcome.
func (m *Metrics) ObserveOutcome(state types.OutcomeState) {
	if m == nil {
		return
	}
	m.OutcomesTotal.WithLabelValues(string(state)).Inc()
}

// WriteTextfile writes the current metric values in the Prometheus text
// format, for pickup by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
