package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalorders "github.com/miguelsantiago/turista-backend/internal/orders"
	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
)

// moneyView renders a cent amount alongside its decimal form so clients never
// re-derive peso values from integers.
type moneyView struct {
	Cents    int    `json:"cents"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func newMoneyView(cents int, currency string) moneyView {
	amount := decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100))
	return moneyView{
		Cents:    cents,
		Amount:   amount.StringFixed(2),
		Currency: currency,
	}
}

type orderView struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   int64               `json:"order_number"`
	UserID        uuid.UUID           `json:"user_id"`
	BusinessID    uuid.UUID           `json:"business_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Subtotal      moneyView           `json:"subtotal"`
	Fee           moneyView           `json:"fee"`
	Total         moneyView           `json:"total"`
	Notes         *string             `json:"notes,omitempty"`
	CancelledBy   *enums.CancelledBy  `json:"cancelled_by,omitempty"`
	CancelReason  *string             `json:"cancel_reason,omitempty"`
	AcceptedAt    *time.Time          `json:"accepted_at,omitempty"`
	ReadyAt       *time.Time          `json:"ready_at,omitempty"`
	PickedUpAt    *time.Time          `json:"picked_up_at,omitempty"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func newOrderView(order *models.Order) orderView {
	return orderView{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		BusinessID:    order.BusinessID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Subtotal:      newMoneyView(order.SubtotalCents, order.Currency),
		Fee:           newMoneyView(order.FeeCents, order.Currency),
		Total:         newMoneyView(order.TotalCents, order.Currency),
		Notes:         order.Notes,
		CancelledBy:   order.CancelledBy,
		CancelReason:  order.CancelReason,
		AcceptedAt:    order.AcceptedAt,
		ReadyAt:       order.ReadyAt,
		PickedUpAt:    order.PickedUpAt,
		CompletedAt:   order.CompletedAt,
		CancelledAt:   order.CancelledAt,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

type refundView struct {
	Attempted       bool      `json:"attempted"`
	Succeeded       bool      `json:"succeeded"`
	GatewayRefundID string    `json:"gateway_refund_id,omitempty"`
	Amount          moneyView `json:"amount"`
	FailureReason   string    `json:"failure_reason,omitempty"`
}

func newRefundView(outcome internalorders.RefundOutcome, currency string) *refundView {
	if !outcome.Attempted {
		return nil
	}
	return &refundView{
		Attempted:       outcome.Attempted,
		Succeeded:       outcome.Succeeded,
		GatewayRefundID: outcome.GatewayRefundID,
		Amount:          newMoneyView(outcome.AmountCents, currency),
		FailureReason:   outcome.FailureReason,
	}
}

type cancelResponse struct {
	Order  orderView   `json:"order"`
	Refund *refundView `json:"refund,omitempty"`
}
