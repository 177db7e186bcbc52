package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress           string
	DatabaseURI          string
	RedisAddress         string
	GatewayAddress       string
	GatewayAccessToken   string
	GatewayTimeout       time.Duration
	WebhookSecret        string
	ShippingAddress      string
	ShippingClientID     string
	ShippingClientSecret string
	ShippingQuoteTTL     time.Duration
	JWTSecret            string
	ReconcileInterval    time.Duration
	WorkerPoolSize       int
	ReconcileBatchSize   int
	ShutdownTimeout      time.Duration
	LogLevel             slog.Level
}

const (
	defaultRunAddress         = ":8080"
	defaultRedisAddress       = "localhost:6379"
	defaultJWTSecret          = "change-me-in-production"
	defaultGatewayTimeout     = 10 * time.Second
	defaultShippingQuoteTTL   = 30 * time.Minute
	defaultReconcileInterval  = time.Minute
	defaultWorkerPoolSize     = 4
	defaultShutdownTimeout    = 10 * time.Second
	defaultReconcileBatchSize = 32
	defaultLogLevel           = "info"
)

// Load reads an optional .env file, then parses flags and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:           getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:          getString(lookup, "DATABASE_URI", ""),
		RedisAddress:         getString(lookup, "REDIS_ADDRESS", defaultRedisAddress),
		GatewayAddress:       getString(lookup, "GATEWAY_ADDRESS", ""),
		GatewayAccessToken:   getString(lookup, "GATEWAY_ACCESS_TOKEN", ""),
		GatewayTimeout:       getDuration(lookup, "GATEWAY_TIMEOUT", defaultGatewayTimeout),
		WebhookSecret:        getString(lookup, "WEBHOOK_SECRET", ""),
		ShippingAddress:      getString(lookup, "SHIPPING_ADDRESS", ""),
		ShippingClientID:     getString(lookup, "SHIPPING_CLIENT_ID", ""),
		ShippingClientSecret: getString(lookup, "SHIPPING_CLIENT_SECRET", ""),
		ShippingQuoteTTL:     getDuration(lookup, "SHIPPING_QUOTE_TTL", defaultShippingQuoteTTL),
		JWTSecret:            getString(lookup, "JWT_SECRET", defaultJWTSecret),
		ReconcileInterval:    getDuration(lookup, "RECONCILE_INTERVAL", defaultReconcileInterval),
		WorkerPoolSize:       getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		ReconcileBatchSize:   getInt(lookup, "RECONCILE_BATCH_SIZE", defaultReconcileBatchSize),
		ShutdownTimeout:      getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("vinylshop", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		reconcileIntervalStr = cfg.ReconcileInterval.String()
		shutdownTimeoutStr   = cfg.ShutdownTimeout.String()
		gatewayTimeoutStr    = cfg.GatewayTimeout.String()
		quoteTTLStr          = cfg.ShippingQuoteTTL.String()
		logLevelStr          = getString(lookup, "LOG_LEVEL", defaultLogLevel)
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, "Redis address for shipping quotes")
	fs.StringVar(&cfg.GatewayAddress, "g", cfg.GatewayAddress, "Payment gateway base URL")
	fs.StringVar(&gatewayTimeoutStr, "gateway-timeout", gatewayTimeoutStr, "Payment gateway request timeout")
	fs.StringVar(&cfg.ShippingAddress, "s", cfg.ShippingAddress, "Shipping service base URL")
	fs.StringVar(&quoteTTLStr, "quote-ttl", quoteTTLStr, "Shipping quote lifetime")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret for signing auth tokens")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent reconciliation workers")
	fs.StringVar(&reconcileIntervalStr, "reconcile-interval", reconcileIntervalStr, "Interval between reconciliation sweeps")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.IntVar(&cfg.ReconcileBatchSize, "reconcile-batch", cfg.ReconcileBatchSize, "Maximum orders per reconciliation sweep")
	fs.StringVar(&logLevelStr, "log-level", logLevelStr, "Log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ReconcileInterval, err = time.ParseDuration(reconcileIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid reconcile interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.GatewayTimeout, err = time.ParseDuration(gatewayTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid gateway timeout: %w", err)
	}

	if cfg.ShippingQuoteTTL, err = time.ParseDuration(quoteTTLStr); err != nil {
		return nil, fmt.Errorf("invalid quote ttl: %w", err)
	}

	if err = cfg.LogLevel.UnmarshalText([]byte(logLevelStr)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	if cfg.JWTSecret, err = secretFromFile(lookup, "JWT_SECRET_FILE", cfg.JWTSecret); err != nil {
		return nil, fmt.Errorf("read jwt secret file: %w", err)
	}

	if cfg.GatewayAccessToken, err = secretFromFile(lookup, "GATEWAY_ACCESS_TOKEN_FILE", cfg.GatewayAccessToken); err != nil {
		return nil, fmt.Errorf("read gateway token file: %w", err)
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.ReconcileBatchSize <= 0 {
		cfg.ReconcileBatchSize = defaultReconcileBatchSize
	}

	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = defaultGatewayTimeout
	}

	if cfg.ShippingQuoteTTL <= 0 {
		cfg.ShippingQuoteTTL = defaultShippingQuoteTTL
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.GatewayAddress == "" {
		return nil, fmt.Errorf("payment gateway address must be provided")
	}

	if cfg.ShippingAddress == "" {
		return nil, fmt.Errorf("shipping service address must be provided")
	}

	return cfg, nil
}

// secretFromFile returns the trimmed file content named by key, or current when unset.
func secretFromFile(lookup envLookup, key, current string) (string, error) {
	path, ok := lookup(key)
	if !ok || path == "" {
		return current, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(content)), nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
