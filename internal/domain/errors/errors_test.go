package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"already exists", ErrAlreadyExists},
		{"not found", ErrNotFound},
		{"invalid credentials", ErrInvalidCredentials},
		{"empty cart", ErrEmptyCart},
		{"stale quote", ErrStaleShippingQuote},
		{"invalid order state", ErrInvalidOrderState},
		{"order not found", ErrOrderNotFound},
		{"malformed event", ErrMalformedEvent},
		{"invalid signature", ErrInvalidSignature},
		{"shipping unavailable", ErrShippingUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("context: %w", tc.err)
			if !stdErrors.Is(wrapped, tc.err) {
				t.Fatalf("expected wrapped error to match: %v", tc.err)
			}
		})
	}
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := NewValidationError(map[string]string{"token": "required", "installments": "must be positive"})
	want := "validation failed: installments: must be positive; token: required"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestGatewayErrors(t *testing.T) {
	gwErr := fmt.Errorf("create payment: %w", &GatewayError{StatusCode: 503, Err: context.DeadlineExceeded})
	if !IsGatewayFailure(gwErr) {
		t.Fatal("expected gateway failure")
	}
	if !stdErrors.Is(gwErr, context.DeadlineExceeded) {
		t.Fatal("expected gateway error to unwrap cause")
	}
	if !IsGatewayFailure(&GatewayProtocolError{Reason: "missing status"}) {
		t.Fatal("expected protocol error to be gateway failure")
	}
	if IsGatewayFailure(ErrNotFound) {
		t.Fatal("not found is not a gateway failure")
	}
}
