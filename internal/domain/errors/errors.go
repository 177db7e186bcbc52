package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrAlreadyExists       = errors.New("already exists")
	ErrNotFound            = errors.New("not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrStaleShippingQuote  = errors.New("shipping quote expired")
	ErrInvalidOrderState   = errors.New("invalid order state")
	ErrOrderNotFound       = errors.New("order not found")
	ErrMalformedEvent      = errors.New("malformed webhook event")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrShippingUnavailable = errors.New("shipping service unavailable")
)

// ValidationError carries field level problems with user input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds ValidationError from field/message pairs.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// GatewayError reports an unreachable or failing payment gateway.
type GatewayError struct {
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("payment gateway error: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("payment gateway error: %v", e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// GatewayProtocolError reports a gateway response that cannot be interpreted.
type GatewayProtocolError struct {
	Reason string
}

func (e *GatewayProtocolError) Error() string {
	return "payment gateway protocol error: " + e.Reason
}

// IsGatewayFailure reports whether err came from the payment gateway.
func IsGatewayFailure(err error) bool {
	var gwErr *GatewayError
	var protoErr *GatewayProtocolError
	return errors.As(err, &gwErr) || errors.As(err, &protoErr)
}
