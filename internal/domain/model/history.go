package model

import "time"

// ChangeType records what caused a status transition.
type ChangeType string

const (
	ChangeTypeAutomatic ChangeType = "automatic"
	ChangeTypeManual    ChangeType = "manual"
	ChangeTypeWebhook   ChangeType = "webhook"
)

// StatusHistory is an append-only record of a payment status transition.
type StatusHistory struct {
	ID            int64
	OrderID       int64
	OldStatus     *PaymentStatus
	NewStatus     PaymentStatus
	ChangeType    ChangeType
	PaymentID     string
	Comment       string
	WebhookSource string
	CreatedAt     time.Time
}

// StockHeld replays history in chronological order and reports whether the
// order currently holds decremented stock.
func StockHeld(entries []StatusHistory) bool {
	held := false
	for _, e := range entries {
		switch {
		case e.NewStatus == PaymentStatusApproved:
			held = true
		case e.NewStatus.ReleasesStock():
			held = false
		}
	}
	return held
}
