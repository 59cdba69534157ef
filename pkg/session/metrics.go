package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsActive tracks live sessions held by the in-memory store.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "canvas_sessions_active",
			Help: "Number of live pager sessions in the memory store",
		},
	)

	// SessionLookups tracks Get results by store and outcome.
	SessionLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_session_lookups_total",
			Help: "Total pager session lookups by store and result",
		},
		[]string{"store", "result"}, // "memory"|"redis", "hit"|"miss"
	)

	// SessionErrors tracks store operation errors.
	SessionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_session_errors_total",
			Help: "Total pager session store errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
