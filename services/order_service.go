package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"paycycleAPI/internal/gateway"
	"paycycleAPI/internal/types/order"

	"github.com/google/uuid"
)

// ValidationError lists the request fields that were missing or malformed.
// It is produced before any gateway or store call.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

type OrderService struct {
	store   SubscriptionStore
	gateway gateway.Client
}

func NewOrderService(store SubscriptionStore, gw gateway.Client) *OrderService {
	return &OrderService{
		store:   store,
		gateway: gw,
	}
}

// CreateOrder validates the request, creates the order on the gateway and
// persists the gateway-assigned record. The response carries the gateway
// order id and the caller's amount and currency, nothing internal.
func (s *OrderService) CreateOrder(ctx context.Context, req *order.CreateOrderRequest) (*order.CreateOrderResponse, error) {
	if err := validateCreateOrder(req); err != nil {
		return nil, err
	}

	receipt := buildReceipt(req.UserID, req.IdempotencyKey)

	notes := map[string]string{"user_id": req.UserID}
	if req.PlanID != nil && *req.PlanID != "" {
		notes["plan_id"] = *req.PlanID
	}

	result, err := s.gateway.CreateOrder(ctx, req.Amount, req.Currency, receipt, notes)
	if err != nil {
		log.Printf("CreateOrder: gateway call failed for user %s: %v", req.UserID, err)
		return nil, err
	}

	o := &order.PaymentOrder{
		ID:        result.OrderID,
		UserID:    req.UserID,
		PlanID:    req.PlanID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Receipt:   receipt,
		CreatedAt: time.Now(),
	}

	// The gateway order exists at this point. A failed insert is a
	// reconciliation gap for an external collaborator, not a reason to fail
	// the request or roll the order back.
	if err := s.store.InsertOrder(ctx, o); err != nil {
		log.Printf("RECONCILIATION GAP: order %s (user %s, receipt %s) created on gateway but not persisted: %v",
			result.OrderID, req.UserID, receipt, err)
	}

	return &order.CreateOrderResponse{
		OrderID:  result.OrderID,
		Amount:   req.Amount,
		Currency: req.Currency,
	}, nil
}

func validateCreateOrder(req *order.CreateOrderRequest) error {
	var missing []string
	if req.Amount <= 0 {
		missing = append(missing, "amount")
	}
	if !isCurrencyCode(req.Currency) {
		missing = append(missing, "currency")
	}
	if req.UserID == "" {
		missing = append(missing, "userId")
	}

	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// isCurrencyCode checks for a three-letter ISO 4217 code.
func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

// buildReceipt derives the gateway receipt. With a caller-supplied
// idempotency key the receipt is deterministic per (user, key), letting the
// gateway and downstream reconciliation spot duplicate submissions; without
// one, a fresh UUID keeps the receipt unique per attempt. Razorpay caps
// receipts at 40 characters, hence the truncated digest.
func buildReceipt(userID, idempotencyKey string) string {
	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}
	sum := sha256.Sum256([]byte(userID + "|" + idempotencyKey))
	return fmt.Sprintf("rcpt_%s", hex.EncodeToString(sum[:])[:32])
}
