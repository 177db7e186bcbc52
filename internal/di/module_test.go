package di

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/vinylshop/internal/app"
	"github.com/polkiloo/vinylshop/internal/config"
	"github.com/polkiloo/vinylshop/internal/domain/repository"
	"github.com/polkiloo/vinylshop/internal/storage/postgres"
	"github.com/polkiloo/vinylshop/internal/test"
	"github.com/polkiloo/vinylshop/internal/usecase"
	"github.com/polkiloo/vinylshop/internal/worker"
)

func TestModuleComposesGraphWithReplacements(t *testing.T) {
	cfg := &config.Config{
		RunAddress:         ":0",
		DatabaseURI:        "postgres://stub",
		RedisAddress:       "localhost:0",
		GatewayAddress:     "http://gateway.local",
		ShippingAddress:    "http://shipping.local",
		JWTSecret:          "secret",
		ShippingQuoteTTL:   time.Minute,
		ReconcileInterval:  time.Millisecond,
		WorkerPoolSize:     1,
		ReconcileBatchSize: 1,
		ShutdownTimeout:    time.Millisecond,
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store := test.NewMemStore()

	var (
		facade     *app.ShopFacade
		engine     *gin.Engine
		reconciler *worker.PaymentReconciler
	)
	fxApp := fx.New(
		fx.Provide(func() context.Context { return context.Background() }),
		Module(
			fx.Replace(cfg),
			fx.Replace(logger),
			fx.Replace(&postgres.Storage{}),
			fx.Replace(repository.Factory(store)),
			fx.Replace(repository.Transactor(store)),
			fx.Replace(repository.UserRepository(store.Users())),
			fx.Replace(repository.QuoteStore(test.NewQuoteStoreStub())),
			fx.Replace(usecase.PaymentGateway(&test.GatewayStub{})),
			fx.Replace(usecase.ShippingQuoter(test.ShippingQuoterStub{})),
			fx.NopLogger,
		),
		fx.Populate(&facade, &engine, &reconciler),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	if facade == nil || engine == nil || reconciler == nil {
		t.Fatal("expected facade, router and reconciler instances")
	}

	if _, err := facade.Register(context.Background(), "ann@example.com", "Ann", "secret1"); err != nil {
		t.Fatalf("register through composed graph: %v", err)
	}
}
