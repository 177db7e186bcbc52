package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Identification is the payer's document.
type Identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// PaymentRequest charges an order with a tokenized card or an offline method.
type PaymentRequest struct {
	Token           string          `json:"token"`
	PaymentMethodID string          `json:"payment_method_id" binding:"required"`
	Installments    int             `json:"installments" binding:"gte=0,lte=24"`
	IssuerID        string          `json:"issuer_id"`
	Identification  *Identification `json:"identification"`
}

// PaymentResponse reports the payment outcome to the customer.
type PaymentResponse struct {
	OrderID      int64  `json:"order_id"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	StatusDetail string `json:"status_detail,omitempty"`
	Message      string `json:"message"`
}

// WebhookNotification is the gateway notification body.
type WebhookNotification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID FlexibleID `json:"id"`
	} `json:"data"`
}

// FlexibleID accepts identifiers sent as JSON strings or numbers.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}
