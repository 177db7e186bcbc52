package usecase

import (
	"go.uber.org/fx"

	"github.com/polkiloo/vinylshop/internal/config"
	"github.com/polkiloo/vinylshop/internal/domain/repository"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewAuthUseCase,
	NewOrderUseCase,
	NewCartUseCase,
	NewCheckoutUseCase,
	NewInventoryLedger,
	NewPaymentUseCase,
	newShippingUseCase,
)

type shippingParams struct {
	fx.In

	Config *config.Config
	Repos  repository.Factory
	Quoter ShippingQuoter
	Store  repository.QuoteStore
}

func newShippingUseCase(p shippingParams) *ShippingUseCase {
	return NewShippingUseCase(p.Repos, p.Quoter, p.Store, p.Config.ShippingQuoteTTL)
}
