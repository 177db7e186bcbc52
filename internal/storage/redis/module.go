package redis

import (
	"context"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/polkiloo/vinylshop/internal/config"
	"github.com/polkiloo/vinylshop/internal/domain/repository"
)

// Module wires the redis client and the shipping quote store.
var Module = fx.Options(
	fx.Provide(newClient),
	fx.Provide(NewQuoteStore),
	fx.Provide(func(s *QuoteStore) repository.QuoteStore { return s }),
	fx.Invoke(registerLifecycle),
)

func newClient(cfg *config.Config) goredis.UniversalClient {
	return goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddress})
}

func registerLifecycle(lc fx.Lifecycle, client goredis.UniversalClient, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn("redis unavailable at startup", slog.Any("error", err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
}
