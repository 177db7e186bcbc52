package worker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
)

// PaymentFacade exposes the subset of application functionality required by the worker.
type PaymentFacade interface {
	OrdersForReconciliation(ctx context.Context, idle time.Duration, limit int) ([]model.Order, error)
	SyncPayment(ctx context.Context, order model.Order) (*model.AppliedTransition, error)
}

// PaymentReconciler polls the gateway for orders whose webhook may have been lost.
type PaymentReconciler struct {
	facade       PaymentFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan model.Order
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewPaymentReconciler constructs reconciliation worker pool.
func NewPaymentReconciler(facade PaymentFacade, pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *PaymentReconciler {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return &PaymentReconciler{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		jobs:         make(chan model.Order, batchSize),
	}
}

// Start launches background processing.
func (p *PaymentReconciler) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}

	p.wg.Add(1)
	go p.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (p *PaymentReconciler) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *PaymentReconciler) dispatch(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.jobs)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

// sweep selects orders idle for at least one poll interval so fresh payments are left to webhooks.
func (p *PaymentReconciler) sweep(ctx context.Context) {
	orders, err := p.facade.OrdersForReconciliation(ctx, p.pollInterval, p.batchSize)
	if err != nil {
		p.logger.Error("select orders for reconciliation failed", slog.String("error", err.Error()))
		return
	}
	for _, order := range orders {
		select {
		case <-ctx.Done():
			return
		case p.jobs <- order:
		}
	}
}

func (p *PaymentReconciler) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case order, ok := <-p.jobs:
			if !ok {
				return
			}
			p.reconcile(ctx, order)
		}
	}
}

func (p *PaymentReconciler) reconcile(ctx context.Context, order model.Order) {
	applied, err := p.facade.SyncPayment(ctx, order)
	if err != nil {
		var gwErr *domainErrors.GatewayError
		switch {
		case errors.As(err, &gwErr) && gwErr.StatusCode == http.StatusTooManyRequests:
			p.logger.Warn("gateway rate limited", slog.Int64("order_id", order.ID))
			p.pause(ctx)
		case errors.Is(err, context.Canceled):
		default:
			p.logger.Error("payment reconciliation failed",
				slog.Int64("order_id", order.ID),
				slog.String("payment_id", order.CurrentPaymentID()),
				slog.String("error", err.Error()))
		}
		return
	}
	if applied == nil || applied.NoOp {
		return
	}
	p.logger.Info("payment reconciled",
		slog.Int64("order_id", applied.OrderID),
		slog.String("payment_id", applied.PaymentID),
		slog.String("old_status", applied.OldStatus.String()),
		slog.String("status", applied.NewStatus.String()),
		slog.String("source", string(model.SourcePoller)))
}

func (p *PaymentReconciler) pause(ctx context.Context) {
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
