package browser

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "browserd",
		Name:      "sessions_active",
		Help:      "Number of live browser sessions.",
	})
	metricSessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "browserd",
		Name:      "sessions_started_total",
		Help:      "Browser sessions started since process start.",
	})
	metricSessionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "browserd",
		Name:      "sessions_closed_total",
		Help:      "Browser sessions closed, by reason.",
	}, []string{"reason"})
	metricActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "browserd",
		Name:      "actions_total",
		Help:      "Dispatched session actions, by action and outcome.",
	}, []string{"action", "outcome"})
)
