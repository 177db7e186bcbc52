package config

import (
	"log/slog"

	"go.uber.org/fx"
)

// Module exposes configuration loader for fx graphs and logs the effective settings.
var Module = fx.Options(
	fx.Provide(Load),
	fx.Invoke(logSummary),
)

// logSummary reports non-secret settings at startup.
func logSummary(cfg *Config, log *slog.Logger) {
	log.Info("configuration loaded",
		slog.String("run_address", cfg.RunAddress),
		slog.String("redis_address", cfg.RedisAddress),
		slog.String("gateway_address", cfg.GatewayAddress),
		slog.String("shipping_address", cfg.ShippingAddress),
		slog.Bool("webhook_signatures", cfg.WebhookSecret != ""),
		slog.Bool("shipping_oauth", cfg.ShippingClientID != ""),
		slog.Duration("reconcile_interval", cfg.ReconcileInterval),
		slog.Int("worker_pool", cfg.WorkerPoolSize),
		slog.Int("reconcile_batch", cfg.ReconcileBatchSize),
		slog.String("log_level", cfg.LogLevel.String()),
	)
}
