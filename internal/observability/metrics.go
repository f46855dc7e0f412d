package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podium_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "podium_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// AuthOutcomes counts session guard results by outcome.
	AuthOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podium_auth_outcomes_total",
		Help: "Session guard evaluations by outcome",
	}, []string{"outcome"})

	// RelationshipTransitions counts follow/like toggles by kind, action and result.
	RelationshipTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podium_relationship_transitions_total",
		Help: "Relationship toggle attempts by kind, action and result",
	}, []string{"kind", "action", "result"})

	// StorageOperations counts file store operations by backend, operation and result.
	StorageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podium_storage_operations_total",
		Help: "File store operations by backend, operation and result",
	}, []string{"backend", "operation", "result"})

	// MailDeliveries counts outbound mail attempts by result.
	MailDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podium_mail_deliveries_total",
		Help: "Outbound mail attempts by result",
	}, []string{"result"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "podium_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podium_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// ResultLabel collapses an error into the "ok"/"error" label used by counters.
func ResultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
