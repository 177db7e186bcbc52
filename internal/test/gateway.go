package test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
)

// GatewayStub simulates the payment gateway. Created payments are remembered
// so GetPayment returns their latest status. A repeated idempotency key returns
// the payment created for it instead of charging again.
type GatewayStub struct {
	// Status is assigned to created payments when CreateFn is nil.
	Status   model.PaymentStatus
	CreateFn func(context.Context, *model.GatewayPaymentRequest) (*model.GatewayPayment, error)
	GetFn    func(context.Context, string) (*model.GatewayPayment, error)

	CreateCalls int32
	GetCalls    int32
	Requests    []model.GatewayPaymentRequest

	mu       sync.Mutex
	payments map[string]*model.GatewayPayment
	byKey    map[string]string
	next     int64
}

// CreatePayment records the request and returns a new payment.
func (g *GatewayStub) CreatePayment(ctx context.Context, req *model.GatewayPaymentRequest) (*model.GatewayPayment, error) {
	atomic.AddInt32(&g.CreateCalls, 1)
	g.mu.Lock()
	g.Requests = append(g.Requests, *req)
	g.mu.Unlock()
	if g.CreateFn != nil {
		return g.CreateFn(ctx, req)
	}

	status := g.Status
	if status == "" {
		status = model.PaymentStatusApproved
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if id, ok := g.byKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		out := *g.payments[id]
		return &out, nil
	}
	g.next++
	p := &model.GatewayPayment{
		ID:                fmt.Sprintf("pay-%d", g.next),
		Status:            status,
		StatusDetail:      "detail",
		PaymentMethodID:   req.PaymentMethodID,
		TransactionAmount: req.Amount,
		ExternalReference: req.ExternalReference,
	}
	g.store(p)
	if req.IdempotencyKey != "" {
		if g.byKey == nil {
			g.byKey = map[string]string{}
		}
		g.byKey[req.IdempotencyKey] = p.ID
	}
	out := *p
	return &out, nil
}

// Charges returns how many distinct payments the stub created.
func (g *GatewayStub) Charges() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return int(g.next)
}

// GetPayment returns the remembered payment.
func (g *GatewayStub) GetPayment(ctx context.Context, id string) (*model.GatewayPayment, error) {
	atomic.AddInt32(&g.GetCalls, 1)
	if g.GetFn != nil {
		return g.GetFn(ctx, id)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[id]
	if !ok {
		return nil, &domainErrors.GatewayError{StatusCode: 404, Err: domainErrors.ErrNotFound}
	}
	out := *p
	return &out, nil
}

// Put stores or replaces a payment as the gateway's current truth.
func (g *GatewayStub) Put(p model.GatewayPayment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.store(&p)
}

func (g *GatewayStub) store(p *model.GatewayPayment) {
	if g.payments == nil {
		g.payments = map[string]*model.GatewayPayment{}
	}
	g.payments[p.ID] = p
}

// ShippingQuoterStub returns a fixed quote.
type ShippingQuoterStub struct {
	QuoteFn func(context.Context, model.QuoteRequest) (*model.ShippingQuote, error)
	Cost    string
}

// Quote delegates to QuoteFn or builds a flat rate quote.
func (s ShippingQuoterStub) Quote(ctx context.Context, req model.QuoteRequest) (*model.ShippingQuote, error) {
	if s.QuoteFn != nil {
		return s.QuoteFn(ctx, req)
	}
	cost := s.Cost
	if cost == "" {
		cost = "10"
	}
	return &model.ShippingQuote{Carrier: "post", Service: "standard", Cost: decimal.RequireFromString(cost), ETADays: 3}, nil
}
