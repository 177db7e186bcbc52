package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/vinylshop/internal/server/http/handlers"
	"github.com/polkiloo/vinylshop/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.ShopFacade, verifier handlers.SignatureVerifier, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	authHandler := handlers.NewAuthHandler(facade)
	cartHandler := handlers.NewCartHandler(facade)
	shippingHandler := handlers.NewShippingHandler(facade)
	orderHandler := handlers.NewOrderHandler(facade)
	paymentHandler := handlers.NewPaymentHandler(facade)
	webhookHandler := handlers.NewWebhookHandler(facade, verifier, logger)
	healthHandler := handlers.NewHealthHandler(facade, logger)

	api := engine.Group("/api")
	api.GET("/health", healthHandler.Check)
	api.POST("/webhooks/payments", webhookHandler.Receive)

	user := api.Group("/user")
	user.POST("/register", authHandler.Register)
	user.POST("/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.AuthRequired(facade))

	authed.GET("/cart", cartHandler.Get)
	authed.POST("/cart/items", cartHandler.AddItem)
	authed.PATCH("/cart/items/:id", cartHandler.UpdateItem)
	authed.DELETE("/cart/items/:id", cartHandler.RemoveItem)

	authed.POST("/shipping/quotes", shippingHandler.Quote)

	authed.POST("/orders", orderHandler.Create)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/:id", orderHandler.Get)
	authed.GET("/orders/:id/history", orderHandler.History)
	authed.POST("/orders/:id/cancel", orderHandler.Cancel)
	authed.POST("/orders/:id/payments", paymentHandler.Pay)
	authed.POST("/orders/:id/retry-payment", paymentHandler.Retry)

	return engine
}
