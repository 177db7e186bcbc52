package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	pkgAuth "github.com/polkiloo/vinylshop/internal/pkg/auth"
	"github.com/polkiloo/vinylshop/internal/server/http/handlers"
)

// Module registers HTTP router construction for fx runtime.
var Module = fx.Provide(newRouter)

type routerParams struct {
	fx.In

	Facade   handlers.ShopFacade
	Verifier *pkgAuth.SignatureVerifier
	Logger   *slog.Logger
}

func newRouter(p routerParams) *gin.Engine {
	var verifier handlers.SignatureVerifier
	if p.Verifier.Enabled() {
		verifier = p.Verifier
	}
	return Setup(p.Facade, verifier, p.Logger)
}
