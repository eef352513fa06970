package order

import "time"

// PaymentOrder is written once, when the gateway accepts the order. Settlement
// and webhook handling happen outside this service.
type PaymentOrder struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	PlanID    *string   `json:"planId,omitempty" db:"plan_id"`
	Amount    int64     `json:"amount" db:"amount"`
	Currency  string    `json:"currency" db:"currency"`
	Receipt   string    `json:"receipt" db:"receipt"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type CreateOrderRequest struct {
	Amount         int64   `json:"amount"`
	Currency       string  `json:"currency"`
	PlanID         *string `json:"planId,omitempty"`
	UserID         string  `json:"userId"`
	IdempotencyKey string  `json:"idempotencyKey,omitempty"`
}

type CreateOrderResponse struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}
