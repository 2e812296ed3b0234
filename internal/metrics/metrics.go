package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the central coordination server.
//
// Naming convention: namespace_subsystem_name
// - namespace: globed_central (application-level grouping)
// - subsystem: connection, room, fleet, oracle, wire (feature-level grouping)
// - name: specific metric (connections_active, events_total, etc.)
//
// Metric Types:
// - Gauge: Current state (connections, rooms, players)
// - Counter: Cumulative events (messages processed, errors)
// - Histogram: Latency distributions (processing time)

var (
	// ActiveConnections tracks the current number of authenticated client connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "globed_central",
		Subsystem: "connection",
		Name:      "connections_active",
		Help:      "Current number of active client connections",
	})

	// ActiveRooms tracks the current number of non-global rooms.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "globed_central",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomPlayers tracks the number of players in each room.
	RoomPlayers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "globed_central",
		Subsystem: "room",
		Name:      "players_count",
		Help:      "Number of players in each room",
	}, []string{"room_id"})

	// MessagesTotal tracks the total number of wire messages processed.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "globed_central",
		Subsystem: "connection",
		Name:      "messages_total",
		Help:      "Total wire messages processed",
	}, []string{"packet", "status"})

	// MessageProcessingDuration tracks the time spent dispatching wire messages.
	MessageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "globed_central",
		Subsystem: "connection",
		Name:      "message_processing_seconds",
		Help:      "Time spent processing a wire message",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"packet"})

	// FleetServers tracks the number of registered game servers.
	FleetServers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "globed_central",
		Subsystem: "fleet",
		Name:      "servers_active",
		Help:      "Current number of registered game servers",
	})

	// OracleValidations tracks the total number of identity oracle validation round trips.
	OracleValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "globed_central",
		Subsystem: "oracle",
		Name:      "validations_total",
		Help:      "Total identity oracle validations",
	}, []string{"status"})

	// OracleConnected reports whether the identity oracle bridge is currently connected.
	OracleConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "globed_central",
		Subsystem: "oracle",
		Name:      "connected",
		Help:      "1 if the identity oracle bridge is connected, 0 otherwise",
	})

	// CircuitBreakerState tracks the current state of a circuit breaker.
	// 0: Closed (Healthy), 1: Open (Failure), 2: Half-Open (Recovering)
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "globed_central",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Current state of the circuit breaker (0: Closed, 1: Open, 2: Half-Open)",
	}, []string{"service"})

	// CircuitBreakerFailures tracks the total number of requests rejected by a circuit breaker.
	CircuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "globed_central",
		Subsystem: "circuit_breaker",
		Name:      "failures_total",
		Help:      "Total requests rejected by the circuit breaker",
	}, []string{"service"})

	// RateLimitExceeded tracks the total number of requests that exceeded the rate limit.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "globed_central",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total number of requests that exceeded the rate limit",
	}, []string{"endpoint", "reason"})

	// RateLimitRequests tracks the total number of requests checked against the rate limiter.
	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "globed_central",
		Subsystem: "rate_limit",
		Name:      "requests_total",
		Help:      "Total number of requests checked against the rate limiter",
	}, []string{"endpoint"})

	// RedisOperationsTotal tracks the total number of Redis operations.
	RedisOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "globed_central",
		Subsystem: "redis",
		Name:      "operations_total",
		Help:      "Total number of Redis operations",
	}, []string{"operation", "status"})

	// RedisOperationDuration tracks the duration of Redis operations.
	RedisOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "globed_central",
		Subsystem: "redis",
		Name:      "operation_duration_seconds",
		Help:      "Duration of Redis operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// InviteTokensActive tracks the number of outstanding invite tokens across all rooms.
	InviteTokensActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "globed_central",
		Subsystem: "room",
		Name:      "invite_tokens_active",
		Help:      "Current number of outstanding invite tokens",
	})
)

func IncConnection() {
	ActiveConnections.Inc()
}

func DecConnection() {
	ActiveConnections.Dec()
}
