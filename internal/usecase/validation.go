package usecase

import (
	"net/mail"
	"strings"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
)

const maxInstallments = 24

// offlineMethods are settled outside the card network and carry no card token.
var offlineMethods = map[string]struct{}{
	"pix":           {},
	"bolbradesco":   {},
	"pec":           {},
	"account_money": {},
}

// ValidateEmail checks email has a single plain address.
func ValidateEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}

// ValidatePaymentRequest checks the customer payment payload and applies defaults.
func ValidatePaymentRequest(req *model.PaymentRequest) error {
	fields := map[string]string{}

	req.PaymentMethodID = strings.TrimSpace(req.PaymentMethodID)
	if req.PaymentMethodID == "" {
		fields["payment_method_id"] = "is required"
	}

	if _, offline := offlineMethods[req.PaymentMethodID]; !offline && req.PaymentMethodID != "" {
		if strings.TrimSpace(req.Token) == "" {
			fields["token"] = "is required for card payments"
		}
	}

	if req.Installments == 0 {
		req.Installments = 1
	}
	if req.Installments < 0 || req.Installments > maxInstallments {
		fields["installments"] = "must be between 1 and 24"
	}

	if id := req.Identification; id != nil {
		if strings.TrimSpace(id.Type) == "" || strings.TrimSpace(id.Number) == "" {
			fields["identification"] = "type and number are both required"
		}
	}

	if len(fields) > 0 {
		return domainErrors.NewValidationError(fields)
	}
	return nil
}

// ValidateCheckout checks checkout input before any persistence.
func ValidateCheckout(req *model.CheckoutRequest) error {
	fields := map[string]string{}

	if strings.TrimSpace(req.ShippingQuoteID) == "" {
		fields["shipping_quote_id"] = "is required"
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		fields["payment_method"] = "is required"
	}
	validateAddress("shipping_address", req.ShippingAddress, fields)
	if req.BillingAddress != nil {
		validateAddress("billing_address", *req.BillingAddress, fields)
	}

	if len(fields) > 0 {
		return domainErrors.NewValidationError(fields)
	}
	return nil
}

func validateAddress(prefix string, addr model.Address, fields map[string]string) {
	required := map[string]string{
		"name":        addr.Name,
		"street":      addr.Street,
		"city":        addr.City,
		"postal_code": addr.PostalCode,
		"country":     addr.Country,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			fields[prefix+"."+field] = "is required"
		}
	}
}
