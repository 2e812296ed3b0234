// Package health exposes liveness/readiness HTTP probes for the central server.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/globed-io/central/internal/logging"
	"go.uber.org/zap"
)

// Pinger is satisfied by the analytics Redis sink; used for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OracleStatus reports whether the identity oracle bridge is currently connected.
type OracleStatus interface {
	Connected() bool
}

// ShardHealthChecker probes a single game server's optional companion gRPC
// health port, generalizing the teacher's single-SFU check to every shard in
// the fleet.
type ShardHealthChecker interface {
	Check(ctx context.Context, addr string) string
}

// DefaultShardHealthChecker dials the standard gRPC health protocol.
type DefaultShardHealthChecker struct{}

func (c *DefaultShardHealthChecker) Check(ctx context.Context, addr string) string {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logging.Error(ctx, "failed to dial game server health port", zap.Error(err), zap.String("addr", addr))
		return "unhealthy"
	}
	defer func() { _ = conn.Close() }()

	healthClient := healthpb.NewHealthClient(conn)
	resp, err := healthClient.Check(ctx, &healthpb.HealthCheckRequest{Service: ""})
	if err != nil {
		logging.Error(ctx, "game server health RPC failed", zap.Error(err))
		return "unhealthy"
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		logging.Warn(ctx, "game server not serving", zap.String("status", resp.Status.String()))
		return "unhealthy"
	}
	return "healthy"
}

// Handler serves health check endpoints.
type Handler struct {
	redis        Pinger
	oracle       OracleStatus
	shardAddrs   func() []string
	shardChecker ShardHealthChecker
}

// NewHandler creates a health handler. redis and oracle may be nil, meaning
// that dependency is not configured and is reported healthy trivially.
// shardAddrs returns the current set of registered game server health
// addresses at call time.
func NewHandler(redis Pinger, oracle OracleStatus, shardAddrs func() []string) *Handler {
	return &Handler{
		redis:        redis,
		oracle:       oracle,
		shardAddrs:   shardAddrs,
		shardChecker: &DefaultShardHealthChecker{},
	}
}

type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness returns 200 if the process is alive, no dependency checks.
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness returns 200 only if all configured dependencies are healthy.
func (h *Handler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	redisStatus := h.checkRedis(ctx)
	checks["redis"] = redisStatus
	allHealthy = allHealthy && redisStatus == "healthy"

	oracleStatus := h.checkOracle()
	checks["oracle"] = oracleStatus
	allHealthy = allHealthy && oracleStatus == "healthy"

	if h.shardAddrs != nil {
		for _, addr := range h.shardAddrs() {
			status := h.shardChecker.Check(ctx, addr)
			checks["shard:"+addr] = status
			allHealthy = allHealthy && status == "healthy"
		}
	}

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) checkRedis(ctx context.Context) string {
	if h.redis == nil {
		return "healthy"
	}
	if err := h.redis.Ping(ctx); err != nil {
		logging.Error(ctx, "redis health check failed", zap.Error(err))
		return "unhealthy"
	}
	return "healthy"
}

func (h *Handler) checkOracle() string {
	if h.oracle == nil {
		return "healthy"
	}
	if !h.oracle.Connected() {
		return "unhealthy"
	}
	return "healthy"
}

// MarshalJSON implements custom JSON marshaling for consistent field ordering.
func (r ReadinessResponse) MarshalJSON() ([]byte, error) {
	type Alias ReadinessResponse
	return json.Marshal(&struct{ *Alias }{Alias: (*Alias)(&r)})
}
