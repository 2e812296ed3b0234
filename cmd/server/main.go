package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/globed-io/central/internal/analytics"
	"github.com/globed-io/central/internal/authbridge"
	"github.com/globed-io/central/internal/authtoken"
	"github.com/globed-io/central/internal/config"
	"github.com/globed-io/central/internal/credits"
	"github.com/globed-io/central/internal/fleet"
	"github.com/globed-io/central/internal/health"
	"github.com/globed-io/central/internal/logging"
	"github.com/globed-io/central/internal/middleware"
	"github.com/globed-io/central/internal/moduleregistry"
	"github.com/globed-io/central/internal/ratelimit"
	"github.com/globed-io/central/internal/registry"
	"github.com/globed-io/central/internal/repo"
	"github.com/globed-io/central/internal/roles"
	"github.com/globed-io/central/internal/rooms"
	"github.com/globed-io/central/internal/sessions"
	"github.com/globed-io/central/internal/transport"
	"github.com/globed-io/central/internal/wordfilter"
)

const reconnectTokenTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.DevelopmentMode); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	logger := logging.GetLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := moduleregistry.New()

	roleTable, err := roles.LoadTable(cfg.RolesConfigPath)
	if err != nil {
		logger.Fatal("failed to load role table", zap.Error(err))
	}
	moduleregistry.Register(reg, roleTable)

	var repository repo.Repository
	if cfg.PostgresDSN != "" {
		store, err := repo.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		repository = store
	} else {
		logger.Warn("postgres_dsn not set; running with no user repository")
		repository = repo.NoopRepository{}
	}
	moduleregistry.Register(reg, repository)

	var redisClient *redis.Client
	var analyticsSink analytics.Sink = analytics.Noop{}
	if cfg.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		sink := analytics.NewRedisSink(redisClient, cfg.AnalyticsStream, cfg.AnalyticsBufferCap)
		go sink.Run(ctx, analytics.FlushInterval(cfg.DevelopmentMode))
		analyticsSink = sink
	} else {
		logger.Warn("redis_enabled is false; analytics events are discarded")
	}
	moduleregistry.Register(reg, analyticsSink)

	creditsFetcher := credits.Fetcher(credits.Noop{})
	moduleregistry.Register(reg, creditsFetcher)

	wordFilter := wordfilter.Filter(wordfilter.None{})
	if cfg.WordFilterBlocklist != "" {
		wordFilter = wordfilter.NewBlocklist(strings.Split(cfg.WordFilterBlocklist, ","))
	}
	moduleregistry.Register(reg, wordFilter)

	oracle := authbridge.New(cfg.OracleURL, cfg.OracleToken)
	if cfg.OracleURL != "" {
		go oracle.Run(ctx)
	}
	moduleregistry.Register(reg, oracle)

	roomsMgr := rooms.NewManager()
	moduleregistry.Register(reg, roomsMgr)

	clients := registry.New[transport.Client]()
	moduleregistry.Register(reg, clients)

	sessionCounter := sessions.NewCounter()
	moduleregistry.Register(reg, sessionCounter)

	fleetMgr := fleet.NewManager()
	moduleregistry.Register(reg, fleetMgr)

	tokens := authtoken.NewValidator(cfg.JWTSecret, reconnectTokenTTL)
	moduleregistry.Register(reg, tokens)

	superAdmins := parseSuperAdmins(cfg.SuperAdmins)

	reg.Freeze()

	srv := transport.NewServer(
		roomsMgr,
		clients,
		sessionCounter,
		fleetMgr,
		oracle,
		repository,
		roleTable,
		tokens,
		wordFilter,
		superAdmins,
		cfg.AdminBcryptCost,
		cfg.GameServerPassword,
		cfg.OracleURL,
	)

	rateLimiter, err := ratelimit.NewRateLimiter(cfg, redisClient, tokens)
	if err != nil {
		logger.Fatal("failed to build rate limiter", zap.Error(err))
	}

	healthHandler := health.NewHandler(pingerOrNil(analyticsSink), oracleStatusOrNil(cfg.OracleURL, oracle), fleetMgr.Addresses)

	go runStatusReporter(ctx, cfg.DevelopmentMode, roomsMgr, fleetMgr, clients)
	go runSweeper(ctx, roomsMgr, creditsFetcher)

	clientRouter := gin.New()
	clientRouter.Use(gin.Recovery(), middleware.CorrelationID())
	clientRouter.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	clientRouter.Use(rateLimiter.GlobalMiddleware())

	clientRouter.GET("/ws", func(c *gin.Context) {
		if !rateLimiter.CheckWebSocket(c) {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		srv.ServeWS(c)
	})
	clientRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))
	clientRouter.GET("/health", healthHandler.Liveness)
	clientRouter.GET("/ready", healthHandler.Readiness)

	clientSrv := &http.Server{Addr: cfg.ClientAddr, Handler: clientRouter}

	gameServerRouter := gin.New()
	gameServerRouter.Use(gin.Recovery())
	gameServerRouter.GET("/ws", srv.ServeGameServerWS)
	gameSrv := &http.Server{Addr: cfg.GameSrvAddr, Handler: gameServerRouter}

	go func() {
		logger.Info("client listener starting", zap.String("addr", cfg.ClientAddr))
		if err := clientSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("client listener failed", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("game-server uplink listener starting", zap.String("addr", cfg.GameSrvAddr))
		if err := gameSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("game-server listener failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := clientSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("client listener shutdown error", zap.Error(err))
	}
	if err := gameSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("game-server listener shutdown error", zap.Error(err))
	}

	// Outstanding analytics flushes are best-effort: give the sink one more
	// chance to drain before the process exits, but don't block on it.
	if flusher, ok := analyticsSink.(*analytics.RedisSink); ok {
		flusher.Flush(shutdownCtx)
	}

	for _, room := range roomsMgr.All() {
		_ = roomsMgr.Close(room.ID)
	}

	logger.Info("shutdown complete")
}

func pingerOrNil(sink analytics.Sink) health.Pinger {
	if _, ok := sink.(analytics.Noop); ok {
		return nil
	}
	return sink
}

func oracleStatusOrNil(oracleURL string, oracle health.OracleStatus) health.OracleStatus {
	if oracleURL == "" {
		return nil
	}
	return oracle
}

func corsConfig(allowedOrigins string) cors.Config {
	cfg := cors.DefaultConfig()
	if allowedOrigins == "" {
		cfg.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		cfg.AllowOrigins = strings.Split(allowedOrigins, ",")
	}
	cfg.AllowCredentials = true
	return cfg
}

func parseSuperAdmins(csv string) map[int32]bool {
	out := make(map[int32]bool)
	if csv == "" {
		return out
	}
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		out[int32(id)] = true
	}
	return out
}

// runStatusReporter logs a periodic summary of live rooms, connections, and
// fleet size, at the cadence the concurrency model specifies per environment.
func runStatusReporter(ctx context.Context, development bool, roomsMgr *rooms.Manager, fleetMgr *fleet.Manager, clients *registry.Registry[transport.Client]) {
	interval := 60 * time.Minute
	if development {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logging.Info(ctx, "status report",
				zap.Int("rooms", roomsMgr.Count()),
				zap.Int("clients", clients.Len()),
				zap.Int("shards", len(fleetMgr.Snapshot())),
			)
		}
	}
}

// runSweeper prunes expired invite tokens on every room and expires stale
// credits entries, on a one-minute cadence independent of the dev/release
// split that governs the analytics flusher and status reporter.
func runSweeper(ctx context.Context, roomsMgr *rooms.Manager, creditsFetcher credits.Fetcher) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			for _, room := range roomsMgr.All() {
				room.PruneExpiredInvites(now)
			}
			if err := creditsFetcher.Expire(ctx); err != nil {
				logging.Warn(ctx, "credits expiry sweep failed", zap.Error(err))
			}
		}
	}
}
