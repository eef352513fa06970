package services

import (
	"context"
	"errors"
	"log"
	"time"

	"paycycleAPI/internal/gateway"
	"paycycleAPI/internal/types/subscription"

	"github.com/google/uuid"
)

// ErrInvalidState means the subscription exists and belongs to the caller,
// but is in a state that cannot be cancelled (pending or expired).
var ErrInvalidState = errors.New("subscription cannot be cancelled in its current state")

// PushNotificationProvider delivers a best-effort push to a user.
type PushNotificationProvider interface {
	SendToUser(ctx context.Context, userID, title, body string, data map[string]string) error
}

type SubscriptionService struct {
	store        SubscriptionStore
	gateway      gateway.Client
	pushProvider PushNotificationProvider
}

func NewSubscriptionService(store SubscriptionStore, gw gateway.Client) *SubscriptionService {
	return &SubscriptionService{
		store:   store,
		gateway: gw,
	}
}

// Allow injecting the real FCM provider from main.go
func (s *SubscriptionService) SetPushProvider(provider PushNotificationProvider) {
	s.pushProvider = provider
}

// GetForUser returns the caller's subscription. A miss and a record owned by
// another user are both ErrNotFound.
func (s *SubscriptionService) GetForUser(ctx context.Context, subscriptionID, userID string) (*subscription.Subscription, error) {
	return s.store.GetByIDForUser(ctx, subscriptionID, userID)
}

// Cancel transitions the caller's subscription from active to cancelled and
// then, best-effort, cancels the gateway-side record. The local transition is
// authoritative: a gateway failure never rolls it back, it lands in the
// cancellation outbox instead. Cancelling an already-cancelled subscription
// is an idempotent no-op. Access always runs through the existing
// current_period_end.
func (s *SubscriptionService) Cancel(ctx context.Context, subscriptionID, userID string) (*subscription.CancelResponse, error) {
	sub, err := s.store.GetByIDForUser(ctx, subscriptionID, userID)
	if err != nil {
		return nil, err
	}

	switch sub.Status {
	case subscription.StatusCancelled:
		return alreadyCancelledResponse(sub), nil
	case subscription.StatusActive:
		// fall through to the conditional transition
	default:
		log.Printf("Cancel: subscription %s is %s, cannot cancel", subscriptionID, sub.Status)
		return nil, ErrInvalidState
	}

	now := time.Now()
	updated, err := s.store.ConditionalUpdateStatus(ctx, sub.ID, subscription.StatusActive, subscription.StatusCancelled, &now)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			// Someone else transitioned the row between our read and the
			// update. Re-read scoped by user: a concurrent cancellation makes
			// this call an idempotent success, anything else is a state error.
			current, rerr := s.store.GetByIDForUser(ctx, subscriptionID, userID)
			if rerr != nil {
				return nil, rerr
			}
			if current.Status == subscription.StatusCancelled {
				return alreadyCancelledResponse(current), nil
			}
			return nil, ErrInvalidState
		}
		return nil, err
	}

	log.Printf("Cancel: subscription %s cancelled for user %s, access until %s",
		updated.ID, userID, updated.CurrentPeriodEnd.Format(time.RFC3339))

	if updated.HasExternal() {
		s.cancelOnGateway(ctx, updated)
	}

	s.notifyCancelled(userID, updated)

	return &subscription.CancelResponse{
		Success:     true,
		Message:     "Subscription cancelled. Access remains until the end of the paid period.",
		AccessUntil: updated.CurrentPeriodEnd,
	}, nil
}

func alreadyCancelledResponse(sub *subscription.Subscription) *subscription.CancelResponse {
	return &subscription.CancelResponse{
		Success:     true,
		Message:     "Subscription already cancelled. Access remains until the end of the paid period.",
		AccessUntil: sub.CurrentPeriodEnd,
	}
}

// cancelOnGateway attempts the gateway-side cancellation. On failure the
// intent is recorded in the outbox for the reconciliation worker.
func (s *SubscriptionService) cancelOnGateway(ctx context.Context, sub *subscription.Subscription) {
	externalID := *sub.ExternalSubscriptionID

	err := s.gateway.CancelSubscription(ctx, externalID)
	if err == nil {
		return
	}

	log.Printf("Cancel: gateway cancellation failed for subscription %s (external %s), enqueueing for reconciliation: %v",
		sub.ID, externalID, err)

	job := &subscription.CancellationJob{
		ID:             uuid.New().String(),
		SubscriptionID: sub.ID,
		ExternalID:     externalID,
		Attempts:       1,
		LastError:      err.Error(),
		NextAttemptAt:  time.Now().Add(time.Minute),
		CreatedAt:      time.Now(),
	}
	if err := s.store.EnqueueCancellationJob(ctx, job); err != nil {
		// Worst case: local state is cancelled, gateway is not, and no outbox
		// row exists. Log everything manual reconciliation needs.
		log.Printf("RECONCILIATION GAP: failed to enqueue cancellation job for subscription %s (external %s): %v",
			sub.ID, externalID, err)
	}
}

func (s *SubscriptionService) notifyCancelled(userID string, sub *subscription.Subscription) {
	if s.pushProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.pushProvider.SendToUser(ctx, userID,
		"Subscription cancelled",
		"Your subscription has been cancelled. You keep access until "+sub.CurrentPeriodEnd.Format("January 2, 2006")+".",
		map[string]string{"subscriptionId": sub.ID},
	)
	if err != nil {
		log.Printf("Push failed for user %s: %v", userID, err)
	}
}
