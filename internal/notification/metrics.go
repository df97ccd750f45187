package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BroadcastsComposed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetnotify_broadcasts_composed_total",
		Help: "Total number of compose attempts by outcome.",
	}, []string{"status"})

	ComposeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleetnotify_compose_latency_seconds",
		Help:    "Latency of the full compose operation.",
		Buckets: prometheus.DefBuckets,
	})

	EmailsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetnotify_emails_enqueued_total",
		Help: "Total number of email jobs written to the outbox.",
	})

	ReadsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetnotify_reads_recorded_total",
		Help: "Total number of recipient rows transitioned to read.",
	})
)
