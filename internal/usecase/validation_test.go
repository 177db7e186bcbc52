package usecase

import (
	"errors"
	"testing"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{"alice@example.com", "bob.smith@records.shop"}
	for _, email := range valid {
		if !ValidateEmail(email) {
			t.Fatalf("expected %s to be valid", email)
		}
	}

	invalid := []string{"", "alice", "Alice <alice@example.com>", "@example.com"}
	for _, email := range invalid {
		if ValidateEmail(email) {
			t.Fatalf("expected %s to be invalid", email)
		}
	}
}

func TestValidatePaymentRequest(t *testing.T) {
	req := model.PaymentRequest{Token: "tok", PaymentMethodID: "visa"}
	if err := ValidatePaymentRequest(&req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Installments != 1 {
		t.Fatalf("expected installments default 1, got %d", req.Installments)
	}

	offline := model.PaymentRequest{PaymentMethodID: "pix"}
	if err := ValidatePaymentRequest(&offline); err != nil {
		t.Fatalf("offline method should not require token: %v", err)
	}

	bad := model.PaymentRequest{PaymentMethodID: "visa", Installments: 99, Identification: &model.Identification{Type: "DNI"}}
	err := ValidatePaymentRequest(&bad)
	var vErr *domainErrors.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"token", "installments", "identification"} {
		if _, ok := vErr.Fields[field]; !ok {
			t.Fatalf("expected field %s in %v", field, vErr.Fields)
		}
	}

	missing := model.PaymentRequest{}
	err = ValidatePaymentRequest(&missing)
	if !errors.As(err, &vErr) || vErr.Fields["payment_method_id"] == "" {
		t.Fatalf("expected payment_method_id error, got %v", err)
	}
}

func TestValidateCheckout(t *testing.T) {
	req := model.CheckoutRequest{
		ShippingQuoteID: "q1",
		PaymentMethod:   "card",
		ShippingAddress: model.Address{Name: "A", Street: "Main", City: "Town", PostalCode: "1000", Country: "AR"},
	}
	if err := ValidateCheckout(&req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req.BillingAddress = &model.Address{Name: "A"}
	req.ShippingQuoteID = ""
	err := ValidateCheckout(&req)
	var vErr *domainErrors.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if vErr.Fields["shipping_quote_id"] == "" || vErr.Fields["billing_address.street"] == "" {
		t.Fatalf("unexpected fields: %v", vErr.Fields)
	}
	if _, ok := vErr.Fields["shipping_address.street"]; ok {
		t.Fatalf("shipping address is complete: %v", vErr.Fields)
	}
}
