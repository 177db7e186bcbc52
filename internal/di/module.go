package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/vinylshop/internal/adapter/gateway"
	"github.com/polkiloo/vinylshop/internal/adapter/shipping"
	"github.com/polkiloo/vinylshop/internal/app"
	"github.com/polkiloo/vinylshop/internal/config"
	"github.com/polkiloo/vinylshop/internal/logger"
	"github.com/polkiloo/vinylshop/internal/pkg/auth"
	"github.com/polkiloo/vinylshop/internal/server/http/handlers"
	"github.com/polkiloo/vinylshop/internal/server/http/router"
	"github.com/polkiloo/vinylshop/internal/storage/postgres"
	"github.com/polkiloo/vinylshop/internal/storage/redis"
	"github.com/polkiloo/vinylshop/internal/usecase"
)

// Module composes the full application graph. Extra options are appended last
// so callers can replace any provided value.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		postgres.Module,
		redis.Module,
		gateway.Module,
		shipping.Module,
		usecase.Module,
		fx.Provide(
			func(c *gateway.HTTPClient) usecase.PaymentGateway { return c },
			func(c *shipping.HTTPClient) usecase.ShippingQuoter { return c },
			func(s *postgres.Storage) app.HealthChecker { return s },
			func(f *app.ShopFacade) handlers.ShopFacade { return f },
		),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
