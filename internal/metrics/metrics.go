// Package metrics exposes Prometheus collectors for sync rounds, credential
// refreshes and downloads.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lumina"

var (
	SyncRounds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "rounds_total",
		Help:      "Sync rounds by outcome (ok or the failure kind).",
	}, []string{"outcome"})

	SyncDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "decisions_total",
		Help:      "Per-book merge decisions by action.",
	}, []string{"action"})

	SyncRoundDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "round_seconds",
		Help:      "Wall time of a sync round.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	CredentialRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "credential",
		Name:      "refreshes_total",
		Help:      "Credential refresh attempts by result.",
	}, []string{"result"})

	Downloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "downloads_total",
		Help:      "Book downloads by outcome (ok or the failure kind).",
	}, []string{"outcome"})

	DownloadBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "download_bytes_total",
		Help:      "Bytes of book content written to the blob cache.",
	})
)

func init() {
	prometheus.MustRegister(
		SyncRounds,
		SyncDecisions,
		SyncRoundDuration,
		CredentialRefreshes,
		Downloads,
		DownloadBytes,
	)
}

// Outcome returns the label value for a finished operation.
func Outcome(kind string) string {
	if kind == "" {
		return "ok"
	}
	return kind
}
