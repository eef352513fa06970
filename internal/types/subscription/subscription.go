package subscription

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

type Subscription struct {
	ID                     string     `json:"id" db:"id"`
	UserID                 string     `json:"userId" db:"user_id"`
	PlanID                 *string    `json:"planId,omitempty" db:"plan_id"`
	Status                 Status     `json:"status" db:"status"`
	ExternalSubscriptionID *string    `json:"externalSubscriptionId,omitempty" db:"external_subscription_id"`
	CurrentPeriodEnd       time.Time  `json:"currentPeriodEnd" db:"current_period_end"`
	CancelledAt            *time.Time `json:"cancelledAt,omitempty" db:"cancelled_at"`
	CreatedAt              time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time  `json:"updatedAt" db:"updated_at"`
}

// HasExternal reports whether the subscription is linked to a record on the
// payment gateway side.
func (s *Subscription) HasExternal() bool {
	return s.ExternalSubscriptionID != nil && *s.ExternalSubscriptionID != ""
}

type CancelRequest struct {
	SubscriptionID string `json:"subscriptionId"`
	UserID         string `json:"userId"`
}

type CancelResponse struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	AccessUntil time.Time `json:"accessUntil"`
}

// CancellationJob is an outbox row for a gateway-side cancellation that could
// not be completed in-request. The local subscription is already cancelled by
// the time a job is enqueued.
type CancellationJob struct {
	ID             string    `json:"id" db:"id"`
	SubscriptionID string    `json:"subscriptionId" db:"subscription_id"`
	ExternalID     string    `json:"externalId" db:"external_id"`
	Attempts       int       `json:"attempts" db:"attempts"`
	LastError      string    `json:"lastError" db:"last_error"`
	NextAttemptAt  time.Time `json:"nextAttemptAt" db:"next_attempt_at"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}
