package gateway

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/vinylshop/internal/config"
)

// Module exposes the payment gateway client to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (*HTTPClient, error) {
	return NewHTTPClient(p.Config.GatewayAddress, p.Config.GatewayAccessToken, p.Config.GatewayTimeout, p.Logger)
}
