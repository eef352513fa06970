package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paycycleAPI/internal/types/order"
	"paycycleAPI/internal/types/subscription"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound covers both a missing record and a record owned by someone
	// else; callers must not be able to tell the two apart.
	ErrNotFound = errors.New("record not found")

	// ErrStatusConflict means the stored status no longer matched the
	// expected status at the moment of a conditional update.
	ErrStatusConflict = errors.New("subscription status changed concurrently")
)

// SubscriptionStore is the persistence boundary for subscriptions, payment
// orders and the cancellation outbox. Every lookup that feeds a mutation is
// scoped by (id, user_id) in a single query, and every status mutation is
// conditional on the expected prior status, never a plain read-then-write.
type SubscriptionStore interface {
	GetByIDForUser(ctx context.Context, id, userID string) (*subscription.Subscription, error)
	ConditionalUpdateStatus(ctx context.Context, id string, expected, next subscription.Status, cancelledAt *time.Time) (*subscription.Subscription, error)
	InsertOrder(ctx context.Context, o *order.PaymentOrder) error

	EnqueueCancellationJob(ctx context.Context, job *subscription.CancellationJob) error
	DueCancellationJobs(ctx context.Context, limit int) ([]subscription.CancellationJob, error)
	CompleteCancellationJob(ctx context.Context, id string) error
	RescheduleCancellationJob(ctx context.Context, id string, attempts int, lastError string, nextAttemptAt time.Time) error
	AbandonCancellationJob(ctx context.Context, id string, lastError string) error
}

type PostgresSubscriptionStore struct {
	db *pgxpool.Pool
}

func NewPostgresSubscriptionStore(db *pgxpool.Pool) *PostgresSubscriptionStore {
	return &PostgresSubscriptionStore{db: db}
}

const subscriptionColumns = `id, user_id, plan_id, status, external_subscription_id, current_period_end, cancelled_at, created_at, updated_at`

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	sub := &subscription.Subscription{}
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PlanID,
		&sub.Status,
		&sub.ExternalSubscriptionID,
		&sub.CurrentPeriodEnd,
		&sub.CancelledAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *PostgresSubscriptionStore) GetByIDForUser(ctx context.Context, id, userID string) (*subscription.Subscription, error) {
	query := `
	SELECT ` + subscriptionColumns + `
	FROM subscriptions
	WHERE id = $1 AND user_id = $2
	`

	sub, err := scanSubscription(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}

// ConditionalUpdateStatus transitions a subscription from expected to next in
// one statement. cancelled_at is set only once; later updates keep the first
// value. A zero-row update is disambiguated with a follow-up read: no row at
// all is ErrNotFound, a row in another status is ErrStatusConflict.
func (s *PostgresSubscriptionStore) ConditionalUpdateStatus(ctx context.Context, id string, expected, next subscription.Status, cancelledAt *time.Time) (*subscription.Subscription, error) {
	query := `
	UPDATE subscriptions
	SET status = $3, cancelled_at = COALESCE(cancelled_at, $4), updated_at = now()
	WHERE id = $1 AND status = $2
	RETURNING ` + subscriptionColumns + `
	`

	sub, err := scanSubscription(s.db.QueryRow(ctx, query, id, expected, next, cancelledAt))
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update subscription status: %w", err)
	}

	var current subscription.Status
	err = s.db.QueryRow(ctx, `SELECT status FROM subscriptions WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to re-read subscription status: %w", err)
	}

	return nil, ErrStatusConflict
}

func (s *PostgresSubscriptionStore) InsertOrder(ctx context.Context, o *order.PaymentOrder) error {
	query := `
	INSERT INTO payment_orders (id, user_id, plan_id, amount, currency, receipt, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.Exec(ctx, query, o.ID, o.UserID, o.PlanID, o.Amount, o.Currency, o.Receipt, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment order: %w", err)
	}

	return nil
}

func (s *PostgresSubscriptionStore) EnqueueCancellationJob(ctx context.Context, job *subscription.CancellationJob) error {
	query := `
	INSERT INTO cancellation_jobs (id, subscription_id, external_id, attempts, last_error, next_attempt_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.Exec(ctx, query, job.ID, job.SubscriptionID, job.ExternalID, job.Attempts, job.LastError, job.NextAttemptAt, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue cancellation job: %w", err)
	}

	return nil
}

func (s *PostgresSubscriptionStore) DueCancellationJobs(ctx context.Context, limit int) ([]subscription.CancellationJob, error) {
	query := `
	SELECT id, subscription_id, external_id, attempts, last_error, next_attempt_at, created_at
	FROM cancellation_jobs
	WHERE done = false AND abandoned = false AND next_attempt_at <= now()
	ORDER BY next_attempt_at
	LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due cancellation jobs: %w", err)
	}
	defer rows.Close()

	var jobs []subscription.CancellationJob
	for rows.Next() {
		var job subscription.CancellationJob
		err := rows.Scan(
			&job.ID,
			&job.SubscriptionID,
			&job.ExternalID,
			&job.Attempts,
			&job.LastError,
			&job.NextAttemptAt,
			&job.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return jobs, nil
}

func (s *PostgresSubscriptionStore) CompleteCancellationJob(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `UPDATE cancellation_jobs SET done = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to complete cancellation job: %w", err)
	}
	return nil
}

func (s *PostgresSubscriptionStore) RescheduleCancellationJob(ctx context.Context, id string, attempts int, lastError string, nextAttemptAt time.Time) error {
	query := `
	UPDATE cancellation_jobs
	SET attempts = $2, last_error = $3, next_attempt_at = $4, updated_at = now()
	WHERE id = $1
	`

	_, err := s.db.Exec(ctx, query, id, attempts, lastError, nextAttemptAt)
	if err != nil {
		return fmt.Errorf("failed to reschedule cancellation job: %w", err)
	}
	return nil
}

// AbandonCancellationJob stops automatic retries. The row stays behind for
// manual reconciliation.
func (s *PostgresSubscriptionStore) AbandonCancellationJob(ctx context.Context, id string, lastError string) error {
	query := `
	UPDATE cancellation_jobs
	SET abandoned = true, last_error = $2, updated_at = now()
	WHERE id = $1
	`

	_, err := s.db.Exec(ctx, query, id, lastError)
	if err != nil {
		return fmt.Errorf("failed to abandon cancellation job: %w", err)
	}
	return nil
}
