package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus mirrors the status reported by the payment gateway.
type PaymentStatus string

const (
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusApproved    PaymentStatus = "approved"
	PaymentStatusAuthorized  PaymentStatus = "authorized"
	PaymentStatusInProcess   PaymentStatus = "in_process"
	PaymentStatusInMediation PaymentStatus = "in_mediation"
	PaymentStatusRejected    PaymentStatus = "rejected"
	PaymentStatusCancelled   PaymentStatus = "cancelled"
	PaymentStatusRefunded    PaymentStatus = "refunded"
	PaymentStatusChargedBack PaymentStatus = "charged_back"
)

// IsTerminal reports whether the gateway is not expected to move the payment further.
// Approved stays terminal until a refund or chargeback arrives.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusApproved, PaymentStatusRejected, PaymentStatusCancelled,
		PaymentStatusRefunded, PaymentStatusChargedBack:
		return true
	}
	return false
}

// ReleasesStock reports whether entering the status returns held stock.
func (s PaymentStatus) ReleasesStock() bool {
	switch s {
	case PaymentStatusRejected, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// Expected reports whether the transition follows the gateway's usual state machine.
// Unexpected transitions are still applied; the gateway is authoritative.
func (s PaymentStatus) Expected(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next != PaymentStatusRefunded && next != PaymentStatusChargedBack
	case PaymentStatusApproved:
		return next == PaymentStatusRefunded || next == PaymentStatusChargedBack
	case PaymentStatusInProcess, PaymentStatusAuthorized, PaymentStatusInMediation:
		return next != PaymentStatusPending
	}
	return false
}

// String representation (for logging)
func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentTransaction is the gateway view of one payment attempt.
type PaymentTransaction struct {
	ID              int64
	OrderID         int64
	PaymentID       string
	Status          PaymentStatus
	StatusDetail    string
	PaymentMethodID string
	Amount          decimal.Decimal
	Raw             json.RawMessage
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Payer identifies the customer towards the gateway.
type Payer struct {
	Email          string
	Identification *Identification
}

// Identification is a payer document.
type Identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// PaymentRequest is what the customer submits to pay an order.
type PaymentRequest struct {
	Token           string
	PaymentMethodID string
	Installments    int
	IssuerID        string
	Identification  *Identification
}

// GatewayPaymentRequest is the normalized request sent to the gateway.
type GatewayPaymentRequest struct {
	Amount            decimal.Decimal
	Description       string
	ExternalReference string
	Token             string
	PaymentMethodID   string
	Installments      int
	IssuerID          string
	Payer             Payer
	IdempotencyKey    string
}

// GatewayPayment is a payment record returned by the gateway.
type GatewayPayment struct {
	ID                string
	Status            PaymentStatus
	StatusDetail      string
	PaymentMethodID   string
	TransactionAmount decimal.Decimal
	ExternalReference string
	Raw               json.RawMessage
}

// Outcome is a gateway reported status to apply to an order.
type Outcome struct {
	PaymentID       string
	Status          PaymentStatus
	StatusDetail    string
	PaymentMethodID string
	Amount          decimal.Decimal
	Raw             json.RawMessage
	Comment         string
	WebhookSource   string
}

// OutcomeFromPayment converts a gateway payment into an outcome.
func OutcomeFromPayment(p *GatewayPayment) Outcome {
	return Outcome{
		PaymentID:       p.ID,
		Status:          p.Status,
		StatusDetail:    p.StatusDetail,
		PaymentMethodID: p.PaymentMethodID,
		Amount:          p.TransactionAmount,
		Raw:             p.Raw,
	}
}

// OutcomeSource tells which entry point delivered an outcome.
type OutcomeSource string

const (
	SourceDirect   OutcomeSource = "direct"
	SourceWebhook  OutcomeSource = "webhook"
	SourcePoller   OutcomeSource = "poller"
	SourceCustomer OutcomeSource = "customer"
)

// ChangeType maps the source to the history change type.
func (s OutcomeSource) ChangeType() ChangeType {
	switch s {
	case SourceWebhook:
		return ChangeTypeWebhook
	case SourceCustomer:
		return ChangeTypeManual
	}
	return ChangeTypeAutomatic
}

// AppliedTransition summarizes the effect of an outcome.
type AppliedTransition struct {
	OrderID        int64
	PaymentID      string
	OldStatus      PaymentStatus
	NewStatus      PaymentStatus
	NoOp           bool
	Superseded     bool
	CartConverted  bool
	StockDecrement bool
	StockRestored  bool
}

// PaymentResult is returned to the checkout caller.
type PaymentResult struct {
	OrderID      int64
	PaymentID    string
	Status       PaymentStatus
	StatusDetail string
	Message      string
}

// WebhookEvent is a gateway notification.
type WebhookEvent struct {
	Type      string
	Action    string
	PaymentID string
	RequestID string
}
