// Package metrics exposes Prometheus collectors for the check-in pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts scan attempts by outcome (success, already-checked,
	// not-found, invalid-qr, error).
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatherly",
		Subsystem: "checkin",
		Name:      "scans_total",
		Help:      "Scan attempts by outcome.",
	}, []string{"outcome"})

	// CheckInsTotal counts applied Registered -> CheckedIn transitions.
	CheckInsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gatherly",
		Subsystem: "checkin",
		Name:      "checkins_total",
		Help:      "Successful check-in transitions.",
	})

	// AlertFailuresTotal counts arrival alert deliveries that failed, by channel.
	AlertFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatherly",
		Subsystem: "alerts",
		Name:      "failures_total",
		Help:      "Failed arrival alert deliveries by channel.",
	}, []string{"channel"})
)
