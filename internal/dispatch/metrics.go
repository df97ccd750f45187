package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EmailsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetnotify_emails_processed_total",
		Help: "Total number of outbox jobs processed by outcome.",
	}, []string{"status"})

	OutboxBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleetnotify_outbox_backlog",
		Help: "Current number of pending jobs in the email outbox.",
	})
)
