package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"paycycleAPI/internal/gateway"
	"paycycleAPI/internal/types/order"
	"paycycleAPI/services"
)

type PaymentHandler struct {
	orderService *services.OrderService
}

func NewPaymentHandler(orderService *services.OrderService) *PaymentHandler {
	return &PaymentHandler{
		orderService: orderService,
	}
}

// CreateOrder handles POST /api/v1/payments/create-order
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req order.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.orderService.CreateOrder(ctx, &req)
	if err != nil {
		var vErr *services.ValidationError
		var gErr *gateway.Error
		switch {
		case errors.As(err, &vErr):
			respondWithError(w, http.StatusBadRequest, vErr.Error())
		case errors.As(err, &gErr):
			log.Printf("CreateOrder: gateway failure for user %s: %v", req.UserID, gErr)
			respondWithError(w, http.StatusBadGateway, "Payment gateway rejected the order")
		default:
			log.Printf("CreateOrder: internal failure for user %s: %v", req.UserID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to create order")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
