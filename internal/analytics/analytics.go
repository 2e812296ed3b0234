// Package analytics is the fire-and-forget event sink named as an external
// collaborator in the server's module list: the core only ever calls
// Sink.Publish, never inspects what happens to the event afterward. This
// package owns the one concrete implementation actually wired in: a
// Redis-backed batching publisher, circuit-broken the same way the
// repository guards Postgres.
package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/globed-io/central/internal/logging"
	"github.com/globed-io/central/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const circuitName = "analytics_redis"

// Event is one analytics record. Kind is a short stable name ("login",
// "room_created", "session_join", ...); Fields carries whatever the call
// site wants to attach, serialized as-is.
type Event struct {
	Kind      string         `json:"kind"`
	AccountID int32          `json:"account_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	At        time.Time      `json:"at"`
}

// Sink is the interface the core depends on. Publish never blocks on
// network I/O: it enqueues into an in-memory buffer that a background
// flusher drains periodically.
type Sink interface {
	Publish(evt Event)
	Ping(ctx context.Context) error
}

// RedisSink batches events in memory and flushes them to a Redis stream on
// an interval driven externally by Run. A full buffer drops the oldest
// event rather than blocking the caller, since analytics delivery is
// explicitly best-effort (spec: "outstanding flushes are best-effort").
type RedisSink struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
	stream string

	mu  sync.Mutex
	buf []Event
	cap int
}

// NewRedisSink wraps an already-constructed redis client. stream names the
// Redis stream key events are XADDed to; cap bounds the in-memory buffer.
func NewRedisSink(client *redis.Client, stream string, cap int) *RedisSink {
	st := gobreaker.Settings{
		Name:        circuitName,
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			var stateVal float64
			switch to {
			case gobreaker.StateClosed:
				stateVal = 0
			case gobreaker.StateOpen:
				stateVal = 1
			case gobreaker.StateHalfOpen:
				stateVal = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(circuitName).Set(stateVal)
		},
	}
	return &RedisSink{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(st),
		stream: stream,
		cap:    cap,
	}
}

// Publish buffers evt for the next Flush. Never blocks on Redis.
func (s *RedisSink) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) >= s.cap {
		s.buf = s.buf[1:]
	}
	s.buf = append(s.buf, evt)
}

// Flush drains the buffer and XADDs every event to the configured stream,
// through the circuit breaker. A broken circuit drops the batch: events
// already lost to the fixed-size buffer are not worth retrying past that
// point, per the best-effort delivery guarantee.
func (s *RedisSink) Flush(ctx context.Context) {
	s.mu.Lock()
	batch := s.buf
	s.buf = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	_, err := s.cb.Execute(func() (interface{}, error) {
		pipe := s.client.Pipeline()
		for _, evt := range batch {
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: s.stream,
				Values: map[string]any{"event": payload},
			})
		}
		_, err := pipe.Exec(ctx)
		return nil, err
	})
	if err != nil {
		logging.Warn(ctx, "analytics flush failed", zap.Int("dropped", len(batch)), zap.Error(err))
	}
}

// Ping satisfies health.Pinger for the readiness probe.
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Run flushes on interval until ctx is canceled, implementing the
// "analytics flusher every 5s debug / 45s release" scheduled task.
func (s *RedisSink) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush(context.Background())
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

// FlushInterval picks the scheduled flusher's cadence for the given
// development flag, per the concurrency model's documented intervals.
func FlushInterval(development bool) time.Duration {
	if development {
		return 5 * time.Second
	}
	return 45 * time.Second
}

// Noop discards every event. Used when analytics is disabled (no Redis
// configured) so the core can always call through a non-nil Sink.
type Noop struct{}

func (Noop) Publish(Event)                  {}
func (Noop) Ping(ctx context.Context) error { return nil }
