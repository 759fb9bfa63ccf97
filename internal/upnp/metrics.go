package upnp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sonos_action_total",
			Help: "Total number of UPnP actions invoked",
		},
		[]string{"service", "action", "status"}, // ok, fault, transport, decode, capability
	)

	actionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sonos_action_duration_seconds",
			Help:    "Round trip time of UPnP actions",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"service", "action"},
	)
)
