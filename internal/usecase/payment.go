package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
	"github.com/polkiloo/vinylshop/internal/domain/repository"
)

// PaymentGateway is the payment provider port.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req *model.GatewayPaymentRequest) (*model.GatewayPayment, error)
	GetPayment(ctx context.Context, paymentID string) (*model.GatewayPayment, error)
}

// idempotencyNamespace scopes gateway idempotency keys derived for this shop.
var idempotencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("vinylshop/payments"))

// PaymentUseCase reconciles gateway payment outcomes with orders, carts and stock.
type PaymentUseCase struct {
	repos   repository.Factory
	tx      repository.Transactor
	gateway PaymentGateway
	ledger  *InventoryLedger
	log     *slog.Logger
	calls   singleflight.Group
}

// NewPaymentUseCase constructs PaymentUseCase.
func NewPaymentUseCase(repos repository.Factory, tx repository.Transactor, gateway PaymentGateway, ledger *InventoryLedger, log *slog.Logger) *PaymentUseCase {
	if log == nil {
		log = slog.Default()
	}
	if ledger == nil {
		ledger = NewInventoryLedger(log)
	}
	return &PaymentUseCase{repos: repos, tx: tx, gateway: gateway, ledger: ledger, log: log}
}

// ProcessPayment charges the order through the gateway and applies the answer.
// Concurrent calls for the same order share one gateway call. The shared call
// outlives callers that give up; each caller waits only as long as its ctx allows.
func (u *PaymentUseCase) ProcessPayment(ctx context.Context, userID, orderID int64, req model.PaymentRequest) (*model.PaymentResult, error) {
	if err := ValidatePaymentRequest(&req); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%d:%d", userID, orderID)
	shared := context.WithoutCancel(ctx)
	ch := u.calls.DoChan(key, func() (any, error) {
		return u.processPayment(shared, userID, orderID, req)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res := *r.Val.(*model.PaymentResult)
		return &res, nil
	}
}

func (u *PaymentUseCase) processPayment(ctx context.Context, userID, orderID int64, req model.PaymentRequest) (*model.PaymentResult, error) {
	order, err := u.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := u.ensurePayable(ctx, order); err != nil {
		return nil, err
	}

	user, err := u.repos.Users().GetByID(ctx, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("load payer: %w", err)
	}

	gwReq := &model.GatewayPaymentRequest{
		Amount:            order.Total,
		Description:       "Order " + order.Number,
		ExternalReference: strconv.FormatInt(order.ID, 10),
		Token:             req.Token,
		PaymentMethodID:   req.PaymentMethodID,
		Installments:      req.Installments,
		IssuerID:          req.IssuerID,
		Payer:             model.Payer{Email: user.Email, Identification: req.Identification},
		IdempotencyKey:    IdempotencyKey(order),
	}

	payment, err := u.gateway.CreatePayment(ctx, gwReq)
	if err != nil {
		if !domainErrors.IsGatewayFailure(err) {
			err = &domainErrors.GatewayError{Err: err}
		}
		u.log.Warn("gateway create payment failed",
			slog.Int64("order_id", order.ID),
			slog.Any("error", err))
		return nil, err
	}
	if err := checkPayment(payment); err != nil {
		return nil, err
	}

	applied, err := u.ApplyOutcome(ctx, order.ID, model.OutcomeFromPayment(payment), model.SourceDirect)
	if err != nil {
		return nil, err
	}
	if applied.Superseded {
		// Another payment settled the order while this one was in flight.
		return nil, domainErrors.ErrInvalidOrderState
	}

	return &model.PaymentResult{
		OrderID:      order.ID,
		PaymentID:    payment.ID,
		Status:       applied.NewStatus,
		StatusDetail: payment.StatusDetail,
		Message:      StatusMessage(applied.NewStatus),
	}, nil
}

// ensurePayable rejects orders that already carry a live payment.
func (u *PaymentUseCase) ensurePayable(ctx context.Context, order *model.Order) error {
	if order.PaymentStatus != model.PaymentStatusPending {
		return domainErrors.ErrInvalidOrderState
	}
	current := order.CurrentPaymentID()
	if current == "" {
		return nil
	}
	txn, err := u.repos.Payments().GetByPaymentID(ctx, current)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil
		}
		return err
	}
	switch txn.Status {
	case model.PaymentStatusRejected, model.PaymentStatusCancelled:
		return nil
	}
	return domainErrors.ErrInvalidOrderState
}

// HandleWebhook looks up the notified payment at the gateway and applies it.
// Events that are not about payments are ignored.
func (u *PaymentUseCase) HandleWebhook(ctx context.Context, event model.WebhookEvent) (*model.AppliedTransition, error) {
	if event.Type != "payment" {
		u.log.Debug("webhook ignored", slog.String("type", event.Type))
		return nil, nil
	}
	if event.PaymentID == "" {
		return nil, domainErrors.ErrMalformedEvent
	}

	payment, err := u.gateway.GetPayment(ctx, event.PaymentID)
	if err != nil {
		if !domainErrors.IsGatewayFailure(err) {
			err = &domainErrors.GatewayError{Err: err}
		}
		return nil, err
	}
	if err := checkPayment(payment); err != nil {
		return nil, err
	}

	orderID, err := strconv.ParseInt(payment.ExternalReference, 10, 64)
	if err != nil || orderID <= 0 {
		u.log.Warn("webhook payment without order reference",
			slog.String("payment_id", payment.ID),
			slog.String("external_reference", payment.ExternalReference))
		return nil, domainErrors.ErrOrderNotFound
	}

	outcome := model.OutcomeFromPayment(payment)
	outcome.WebhookSource = event.Action
	if outcome.WebhookSource == "" {
		outcome.WebhookSource = event.Type
	}
	return u.ApplyOutcome(ctx, orderID, outcome, model.SourceWebhook)
}

// ApplyOutcome applies outcome to the order under the order lock.
// Replayed outcomes resolve to a NoOp transition.
func (u *PaymentUseCase) ApplyOutcome(ctx context.Context, orderID int64, outcome model.Outcome, source model.OutcomeSource) (*model.AppliedTransition, error) {
	if outcome.Status == "" {
		return nil, &domainErrors.GatewayProtocolError{Reason: "missing status"}
	}

	var applied *model.AppliedTransition
	err := u.tx.WithOrderLock(ctx, orderID, func(ctx context.Context, tx repository.Tx, order *model.Order) error {
		var err error
		applied, err = u.applyLocked(ctx, tx, order, outcome, source)
		return err
	})
	if err != nil {
		return nil, err
	}

	u.log.Info("payment outcome",
		slog.Int64("order_id", applied.OrderID),
		slog.String("payment_id", applied.PaymentID),
		slog.String("old_status", applied.OldStatus.String()),
		slog.String("status", applied.NewStatus.String()),
		slog.String("source", string(source)),
		slog.Bool("noop", applied.NoOp),
		slog.Bool("superseded", applied.Superseded))
	return applied, nil
}

func (u *PaymentUseCase) applyLocked(ctx context.Context, tx repository.Tx, order *model.Order, outcome model.Outcome, source model.OutcomeSource) (*model.AppliedTransition, error) {
	res := &model.AppliedTransition{
		OrderID:   order.ID,
		PaymentID: outcome.PaymentID,
		OldStatus: order.PaymentStatus,
		NewStatus: outcome.Status,
	}

	history, err := tx.History().ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	if outcome.PaymentID == "" {
		if order.PaymentStatus == outcome.Status {
			res.NoOp = true
			return res, nil
		}
	} else {
		existing, err := tx.Payments().GetByPaymentID(ctx, outcome.PaymentID)
		if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
			return nil, fmt.Errorf("load payment transaction: %w", err)
		}
		if existing != nil && existing.Status == outcome.Status && transitionRecorded(history, order, outcome) {
			res.NoOp = true
			return res, nil
		}

		if !outcome.Amount.IsZero() && !outcome.Amount.Equal(order.Total) {
			u.log.Warn("payment amount differs from order total",
				slog.Int64("order_id", order.ID),
				slog.String("payment_id", outcome.PaymentID),
				slog.String("amount", outcome.Amount.String()),
				slog.String("total", order.Total.String()))
		}

		if err := tx.Payments().Upsert(ctx, &model.PaymentTransaction{
			OrderID:         order.ID,
			PaymentID:       outcome.PaymentID,
			Status:          outcome.Status,
			StatusDetail:    outcome.StatusDetail,
			PaymentMethodID: outcome.PaymentMethodID,
			Amount:          outcome.Amount,
			Raw:             outcome.Raw,
		}); err != nil {
			return nil, fmt.Errorf("upsert payment transaction: %w", err)
		}

		if current := order.CurrentPaymentID(); current != "" && current != outcome.PaymentID &&
			order.PaymentStatus != model.PaymentStatusPending {
			u.log.Warn("outcome for superseded payment recorded without order change",
				slog.Int64("order_id", order.ID),
				slog.String("payment_id", outcome.PaymentID),
				slog.String("current_payment_id", current),
				slog.String("status", outcome.Status.String()))
			res.NoOp = true
			res.Superseded = true
			return res, nil
		}
	}

	old := order.PaymentStatus
	if !old.Expected(outcome.Status) {
		u.log.Info("unexpected payment transition applied",
			slog.Int64("order_id", order.ID),
			slog.String("old_status", old.String()),
			slog.String("status", outcome.Status.String()))
	}

	paymentID := order.PaymentID
	if outcome.PaymentID != "" {
		id := outcome.PaymentID
		paymentID = &id
	}
	status := nextOrderStatus(order.Status, outcome.Status)
	if err := tx.Orders().UpdatePayment(ctx, order.ID, status, outcome.Status, paymentID); err != nil {
		return nil, fmt.Errorf("update order payment: %w", err)
	}

	if err := tx.History().Append(ctx, &model.StatusHistory{
		OrderID:       order.ID,
		OldStatus:     &old,
		NewStatus:     outcome.Status,
		ChangeType:    source.ChangeType(),
		PaymentID:     outcome.PaymentID,
		Comment:       outcomeComment(outcome),
		WebhookSource: outcome.WebhookSource,
	}); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}

	held := model.StockHeld(history)
	switch {
	case outcome.Status == model.PaymentStatusApproved:
		converted, err := convertCart(ctx, tx, order)
		if err != nil {
			return nil, err
		}
		res.CartConverted = converted
		if !held {
			if err := u.ledger.Decrement(ctx, tx, order.ID, order.Items); err != nil {
				return nil, err
			}
			res.StockDecrement = true
		}
	case outcome.Status.ReleasesStock():
		if held {
			if err := u.ledger.Restore(ctx, tx, order.ID, order.Items); err != nil {
				return nil, err
			}
			res.StockRestored = true
		}
	}

	order.Status = status
	order.PaymentStatus = outcome.Status
	order.PaymentID = paymentID
	return res, nil
}

// transitionRecorded reports whether history proves the outcome's effects were applied.
func transitionRecorded(history []model.StatusHistory, order *model.Order, outcome model.Outcome) bool {
	for _, h := range history {
		if h.PaymentID != outcome.PaymentID || h.NewStatus != outcome.Status || h.OldStatus == nil {
			continue
		}
		if *h.OldStatus == order.PaymentStatus || order.PaymentStatus == outcome.Status {
			return true
		}
	}
	return false
}

// convertCart marks the order's cart converted and archives older converted carts.
func convertCart(ctx context.Context, tx repository.Tx, order *model.Order) (bool, error) {
	if order.CartID == nil {
		return false, nil
	}
	cart, err := tx.Carts().GetByID(ctx, *order.CartID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load cart: %w", err)
	}
	if cart.Status != model.CartStatusActive {
		return false, nil
	}
	if err := tx.Carts().MarkConverted(ctx, cart.ID); err != nil {
		return false, fmt.Errorf("convert cart: %w", err)
	}
	if err := tx.Carts().ArchiveConverted(ctx, cart.UserID, cart.ID); err != nil {
		return false, fmt.Errorf("archive carts: %w", err)
	}
	return true, nil
}

func nextOrderStatus(current model.OrderStatus, payment model.PaymentStatus) model.OrderStatus {
	switch payment {
	case model.PaymentStatusApproved:
		if current == model.OrderStatusPending || current == model.OrderStatusCancelled {
			return model.OrderStatusProcessing
		}
	case model.PaymentStatusRefunded, model.PaymentStatusChargedBack:
		return model.OrderStatusRefunded
	case model.PaymentStatusCancelled:
		return model.OrderStatusCancelled
	}
	return current
}

func outcomeComment(outcome model.Outcome) string {
	if outcome.Comment != "" {
		return outcome.Comment
	}
	if outcome.StatusDetail != "" {
		return fmt.Sprintf("payment %s %s: %s", outcome.PaymentID, outcome.Status, outcome.StatusDetail)
	}
	return fmt.Sprintf("payment %s %s", outcome.PaymentID, outcome.Status)
}

func checkPayment(p *model.GatewayPayment) error {
	switch {
	case p == nil:
		return &domainErrors.GatewayProtocolError{Reason: "empty response"}
	case p.ID == "":
		return &domainErrors.GatewayProtocolError{Reason: "missing payment id"}
	case p.Status == "":
		return &domainErrors.GatewayProtocolError{Reason: "missing status"}
	}
	return nil
}

// CancelOrder cancels an unpaid order on behalf of its owner.
func (u *PaymentUseCase) CancelOrder(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	outcome := model.Outcome{Status: model.PaymentStatusCancelled, Comment: "cancelled by customer"}
	if err := u.customerAction(ctx, userID, orderID, model.PaymentStatusPending, outcome); err != nil {
		return nil, err
	}
	return u.repos.Orders().GetByID(ctx, orderID)
}

// RetryPayment reopens a rejected order and charges it again.
func (u *PaymentUseCase) RetryPayment(ctx context.Context, userID, orderID int64, req model.PaymentRequest) (*model.PaymentResult, error) {
	if err := ValidatePaymentRequest(&req); err != nil {
		return nil, err
	}
	outcome := model.Outcome{Status: model.PaymentStatusPending, Comment: "payment retry requested by customer"}
	if err := u.customerAction(ctx, userID, orderID, model.PaymentStatusRejected, outcome); err != nil {
		return nil, err
	}
	return u.ProcessPayment(ctx, userID, orderID, req)
}

func (u *PaymentUseCase) customerAction(ctx context.Context, userID, orderID int64, required model.PaymentStatus, outcome model.Outcome) error {
	return u.tx.WithOrderLock(ctx, orderID, func(ctx context.Context, tx repository.Tx, order *model.Order) error {
		if order.UserID != userID {
			return domainErrors.ErrOrderNotFound
		}
		if order.PaymentStatus != required || order.Status != model.OrderStatusPending {
			return domainErrors.ErrInvalidOrderState
		}
		applied, err := u.applyLocked(ctx, tx, order, outcome, model.SourceCustomer)
		if err != nil {
			return err
		}
		u.log.Info("customer order action",
			slog.Int64("order_id", order.ID),
			slog.String("old_status", applied.OldStatus.String()),
			slog.String("status", applied.NewStatus.String()))
		return nil
	})
}

// OrdersForReconciliation returns orders whose payment may have moved at the gateway.
func (u *PaymentUseCase) OrdersForReconciliation(ctx context.Context, idle time.Duration, limit int) ([]model.Order, error) {
	return u.repos.Orders().SelectForReconciliation(ctx, idle, limit)
}

// SyncPayment pulls the gateway state of the order's payment and applies it.
func (u *PaymentUseCase) SyncPayment(ctx context.Context, order model.Order) (*model.AppliedTransition, error) {
	paymentID := order.CurrentPaymentID()
	if paymentID == "" {
		return nil, nil
	}
	payment, err := u.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		if !domainErrors.IsGatewayFailure(err) {
			err = &domainErrors.GatewayError{Err: err}
		}
		return nil, err
	}
	if err := checkPayment(payment); err != nil {
		return nil, err
	}
	if ref := payment.ExternalReference; ref != "" && ref != strconv.FormatInt(order.ID, 10) {
		u.log.Warn("gateway payment references another order",
			slog.Int64("order_id", order.ID),
			slog.String("payment_id", paymentID),
			slog.String("external_reference", ref))
		return nil, domainErrors.ErrOrderNotFound
	}
	return u.ApplyOutcome(ctx, order.ID, model.OutcomeFromPayment(payment), model.SourcePoller)
}

func (u *PaymentUseCase) ownedOrder(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	order, err := u.repos.Orders().GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, domainErrors.ErrOrderNotFound
	}
	return order, nil
}

// IdempotencyKey derives the gateway idempotency key for one payment attempt.
// Every attempt on the same order state shares the key, whichever card token it
// carries, so the gateway charges at most once per attempt. The key changes only
// when a payment has been attached, which is what a retry after rejection sees.
func IdempotencyKey(order *model.Order) string {
	name := fmt.Sprintf("order:%d:after:%s", order.ID, order.CurrentPaymentID())
	return uuid.NewSHA1(idempotencyNamespace, []byte(name)).String()
}

// StatusMessage returns a customer facing description of the payment status.
func StatusMessage(status model.PaymentStatus) string {
	switch status {
	case model.PaymentStatusApproved:
		return "Payment approved. Your order is being prepared."
	case model.PaymentStatusPending, model.PaymentStatusInProcess, model.PaymentStatusAuthorized:
		return "Payment is being processed. We will notify you when it is confirmed."
	case model.PaymentStatusInMediation:
		return "Payment is under review."
	case model.PaymentStatusRejected:
		return "Payment was rejected. You can retry with another payment method."
	case model.PaymentStatusCancelled:
		return "Payment was cancelled."
	case model.PaymentStatusRefunded, model.PaymentStatusChargedBack:
		return "Payment was refunded."
	}
	return "Unknown payment status."
}
