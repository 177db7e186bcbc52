package handlers

import (
	"github.com/shopspring/decimal"

	"github.com/polkiloo/vinylshop/internal/domain/model"
	"github.com/polkiloo/vinylshop/internal/server/http/dto"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func moneyPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := money(*d)
	return &s
}

func toCartResponse(cart *model.Cart) dto.CartResponse {
	resp := dto.CartResponse{Status: string(model.CartStatusActive), Items: []dto.CartItemResponse{}, Subtotal: money(decimal.Zero)}
	if cart == nil {
		return resp
	}
	resp.ID = cart.ID
	if cart.Status != "" {
		resp.Status = string(cart.Status)
	}
	if !cart.UpdatedAt.IsZero() {
		updated := cart.UpdatedAt
		resp.UpdatedAt = &updated
	}
	subtotal := decimal.Zero
	for _, item := range cart.Items {
		line := item.LineTotal()
		subtotal = subtotal.Add(line)
		resp.Items = append(resp.Items, dto.CartItemResponse{
			ID:               item.ID,
			VariantID:        item.VariantID,
			Name:             item.Product.Name,
			Artist:           item.Product.Artist,
			Condition:        item.Product.Condition,
			Quantity:         item.Quantity,
			UnitPrice:        money(item.UnitPrice),
			PromotionalPrice: moneyPtr(item.PromotionalPrice),
			LineTotal:        money(line),
		})
	}
	resp.Subtotal = money(subtotal)
	return resp
}

func toQuoteResponse(q *model.ShippingQuote) dto.QuoteResponse {
	return dto.QuoteResponse{
		ID:         q.ID,
		Carrier:    q.Carrier,
		Service:    q.Service,
		Cost:       money(q.Cost),
		PostalCode: q.PostalCode,
		ETADays:    q.ETADays,
		ExpiresAt:  q.ExpiresAt,
	}
}

func toAddress(a dto.Address) model.Address {
	return model.Address(a)
}

func fromAddress(a model.Address) dto.Address {
	return dto.Address(a)
}

func toOrderResponse(order model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			VariantID:        item.VariantID,
			Name:             item.Product.Name,
			Artist:           item.Product.Artist,
			Condition:        item.Product.Condition,
			Quantity:         item.Quantity,
			UnitPrice:        money(item.UnitPrice),
			PromotionalPrice: moneyPtr(item.PromotionalPrice),
			TotalPrice:       money(item.TotalPrice),
		})
	}
	return dto.OrderResponse{
		ID:              order.ID,
		Number:          order.Number,
		Status:          string(order.Status),
		PaymentStatus:   order.PaymentStatus.String(),
		PaymentID:       order.CurrentPaymentID(),
		Subtotal:        money(order.Subtotal),
		ShippingCost:    money(order.ShippingCost),
		Discount:        money(order.Discount),
		Total:           money(order.Total),
		PaymentMethod:   order.PaymentMethod,
		ShippingAddress: fromAddress(order.ShippingAddress),
		BillingAddress:  fromAddress(order.BillingAddress),
		Items:           items,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func toHistoryResponse(h model.StatusHistory) dto.HistoryResponse {
	resp := dto.HistoryResponse{
		NewStatus:     h.NewStatus.String(),
		ChangeType:    string(h.ChangeType),
		PaymentID:     h.PaymentID,
		Comment:       h.Comment,
		WebhookSource: h.WebhookSource,
		CreatedAt:     h.CreatedAt,
	}
	if h.OldStatus != nil {
		old := h.OldStatus.String()
		resp.OldStatus = &old
	}
	return resp
}

func toPaymentRequest(req dto.PaymentRequest) model.PaymentRequest {
	out := model.PaymentRequest{
		Token:           req.Token,
		PaymentMethodID: req.PaymentMethodID,
		Installments:    req.Installments,
		IssuerID:        req.IssuerID,
	}
	if req.Identification != nil {
		out.Identification = &model.Identification{Type: req.Identification.Type, Number: req.Identification.Number}
	}
	return out
}

func toPaymentResponse(res *model.PaymentResult) dto.PaymentResponse {
	return dto.PaymentResponse{
		OrderID:      res.OrderID,
		PaymentID:    res.PaymentID,
		Status:       res.Status.String(),
		StatusDetail: res.StatusDetail,
		Message:      res.Message,
	}
}
