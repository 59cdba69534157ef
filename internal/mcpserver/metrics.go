package mcpserver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomeInvalid = "invalid"
)

var (
	toolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_tool_calls_total",
			Help: "MCP tool calls by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	toolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "canvas_tool_duration_seconds",
			Help:    "MCP tool call duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	resourceReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_resource_reads_total",
			Help: "MCP resource reads by resource kind and outcome",
		},
		[]string{"resource", "outcome"},
	)
)

func observeTool(tool, outcome string, start time.Time) {
	toolCalls.WithLabelValues(tool, outcome).Inc()
	toolDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
}
