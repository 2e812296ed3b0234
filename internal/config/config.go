// Package config loads the central server's configuration from a TOML file
// layered with GLOBED_CORE_* environment variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds validated server configuration.
type Config struct {
	// Required
	JWTSecret   string `toml:"jwt_secret"`
	ClientAddr  string `toml:"client_addr"`
	GameSrvAddr string `toml:"game_server_addr"`

	// Identity oracle bridge
	OracleURL   string `toml:"oracle_url"`
	OracleToken string `toml:"oracle_token"`

	// Optional with defaults
	GoEnv           string `toml:"go_env"`
	LogLevel        string `toml:"log_level"`
	DevelopmentMode bool   `toml:"development_mode"`
	AllowedOrigins  string `toml:"allowed_origins"`

	// Redis (analytics sink + cross-instance bus)
	RedisEnabled  bool   `toml:"redis_enabled"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`

	// Postgres (user repository facade)
	PostgresDSN string `toml:"postgres_dsn"`

	// Admin
	AdminBcryptCost int `toml:"admin_bcrypt_cost"`

	// Game server uplink
	GameServerPassword string `toml:"game_server_password"`

	// Roles / permissions
	RolesConfigPath string `toml:"roles_config_path"`
	SuperAdmins     string `toml:"super_admins"` // comma-separated account ids

	// Word filter (room name moderation)
	WordFilterBlocklist string `toml:"word_filter_blocklist"` // comma-separated terms

	// Analytics
	AnalyticsStream    string `toml:"analytics_stream"`
	AnalyticsBufferCap int    `toml:"analytics_buffer_cap"`

	// Rate limits (M = minute, H = hour)
	RateLimitAPIGlobal   string `toml:"rate_limit_api_global"`
	RateLimitAPIPublic   string `toml:"rate_limit_api_public"`
	RateLimitAPIRooms    string `toml:"rate_limit_api_rooms"`
	RateLimitAPIMessages string `toml:"rate_limit_api_messages"`
	RateLimitWsIP        string `toml:"rate_limit_ws_ip"`
	RateLimitWsUser      string `toml:"rate_limit_ws_user"`
}

const defaultConfigDir = "./config"

func defaults() Config {
	return Config{
		ClientAddr:           ":4200",
		GameSrvAddr:          ":4201",
		GoEnv:                "production",
		LogLevel:             "info",
		AdminBcryptCost:      8,
		RateLimitAPIGlobal:   "1000-M",
		RateLimitAPIPublic:   "100-M",
		RateLimitAPIRooms:    "100-M",
		RateLimitAPIMessages: "500-M",
		RateLimitWsIP:        "100-M",
		RateLimitWsUser:      "200-M",
		RolesConfigPath:      filepath.Join(defaultConfigDir, "roles.toml"),
		AnalyticsStream:      "globed:analytics",
		AnalyticsBufferCap:   1000,
	}
}

// Load reads core.toml from GLOBED_ROOT_CONFIG_DIR (or defaultConfigDir when
// that is unset), applies GLOBED_CORE_* overrides, validates, and returns
// the resulting Config.
func Load() (*Config, error) {
	root := os.Getenv("GLOBED_ROOT_CONFIG_DIR")
	if root == "" {
		root = defaultConfigDir
	}

	cfg := defaults()

	path := filepath.Join(root, "core.toml")
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	logValidatedConfig(&cfg)
	return &cfg, nil
}

// applyEnvOverrides layers GLOBED_CORE_* environment variables over the
// decoded TOML config. Env wins over file, matching the teacher's
// getEnvOrDefault precedence but generalized to a TOML base.
func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv("GLOBED_CORE_" + key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv("GLOBED_CORE_" + key); ok {
			*dst = v == "true"
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv("GLOBED_CORE_" + key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("JWT_SECRET", &cfg.JWTSecret)
	str("CLIENT_ADDR", &cfg.ClientAddr)
	str("GAME_SERVER_ADDR", &cfg.GameSrvAddr)
	str("ORACLE_URL", &cfg.OracleURL)
	str("ORACLE_TOKEN", &cfg.OracleToken)
	str("GO_ENV", &cfg.GoEnv)
	str("LOG_LEVEL", &cfg.LogLevel)
	boolean("DEVELOPMENT_MODE", &cfg.DevelopmentMode)
	str("ALLOWED_ORIGINS", &cfg.AllowedOrigins)
	boolean("REDIS_ENABLED", &cfg.RedisEnabled)
	str("REDIS_ADDR", &cfg.RedisAddr)
	str("REDIS_PASSWORD", &cfg.RedisPassword)
	str("POSTGRES_DSN", &cfg.PostgresDSN)
	integer("ADMIN_BCRYPT_COST", &cfg.AdminBcryptCost)
	str("GAME_SERVER_PASSWORD", &cfg.GameServerPassword)
	str("ROLES_CONFIG_PATH", &cfg.RolesConfigPath)
	str("SUPER_ADMINS", &cfg.SuperAdmins)
	str("WORD_FILTER_BLOCKLIST", &cfg.WordFilterBlocklist)
	str("ANALYTICS_STREAM", &cfg.AnalyticsStream)
	integer("ANALYTICS_BUFFER_CAP", &cfg.AnalyticsBufferCap)
	str("RATE_LIMIT_API_GLOBAL", &cfg.RateLimitAPIGlobal)
	str("RATE_LIMIT_API_PUBLIC", &cfg.RateLimitAPIPublic)
	str("RATE_LIMIT_API_ROOMS", &cfg.RateLimitAPIRooms)
	str("RATE_LIMIT_API_MESSAGES", &cfg.RateLimitAPIMessages)
	str("RATE_LIMIT_WS_IP", &cfg.RateLimitWsIP)
	str("RATE_LIMIT_WS_USER", &cfg.RateLimitWsUser)
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.JWTSecret == "" {
		errs = append(errs, "jwt_secret is required (GLOBED_CORE_JWT_SECRET)")
	} else if len(cfg.JWTSecret) < 32 {
		errs = append(errs, fmt.Sprintf("jwt_secret must be at least 32 characters (got %d)", len(cfg.JWTSecret)))
	}

	if cfg.ClientAddr == "" {
		errs = append(errs, "client_addr is required")
	}
	if cfg.GameSrvAddr == "" {
		errs = append(errs, "game_server_addr is required")
	}
	if cfg.GameServerPassword == "" {
		errs = append(errs, "game_server_password is required (GLOBED_CORE_GAME_SERVER_PASSWORD)")
	}

	if cfg.OracleURL != "" && !isValidURL(cfg.OracleURL) {
		errs = append(errs, fmt.Sprintf("oracle_url must be a ws:// or wss:// URL (got %q)", cfg.OracleURL))
	}

	if cfg.RedisEnabled {
		if cfg.RedisAddr == "" {
			cfg.RedisAddr = "localhost:6379"
			slog.Warn("redis_addr not set, using default", "addr", cfg.RedisAddr)
		} else if !isValidHostPort(cfg.RedisAddr) {
			errs = append(errs, fmt.Sprintf("redis_addr must be in format 'host:port' (got %q)", cfg.RedisAddr))
		}
	}

	if cfg.AdminBcryptCost < 4 || cfg.AdminBcryptCost > 31 {
		errs = append(errs, fmt.Sprintf("admin_bcrypt_cost must be between 4 and 31 (got %d)", cfg.AdminBcryptCost))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 || parts[0] == "" {
		return false
	}
	port, err := strconv.Atoi(parts[1])
	return err == nil && port >= 1 && port <= 65535
}

func isValidURL(addr string) bool {
	return strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://")
}

func logValidatedConfig(cfg *Config) {
	slog.Info("configuration validated successfully",
		"jwt_secret", redactSecret(cfg.JWTSecret),
		"client_addr", cfg.ClientAddr,
		"game_server_addr", cfg.GameSrvAddr,
		"oracle_url", cfg.OracleURL,
		"redis_enabled", cfg.RedisEnabled,
		"redis_addr", cfg.RedisAddr,
		"go_env", cfg.GoEnv,
		"log_level", cfg.LogLevel,
		"development_mode", cfg.DevelopmentMode,
		"rate_limit_api_global", cfg.RateLimitAPIGlobal,
	)
}

func redactSecret(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:8] + "***"
}
