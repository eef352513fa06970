package services

import (
	"context"
	"sync"
	"time"

	"paycycleAPI/internal/gateway"
	"paycycleAPI/internal/types/order"
	"paycycleAPI/internal/types/subscription"
)

// fakeStore is an in-memory SubscriptionStore whose conditional update has
// the same compare-and-set semantics as the SQL implementation.
type fakeStore struct {
	mu             sync.Mutex
	subs           map[string]*subscription.Subscription
	orders         []order.PaymentOrder
	jobs           []subscription.CancellationJob
	insertOrderErr error
	transitions    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{subs: make(map[string]*subscription.Subscription)}
}

func (f *fakeStore) put(sub *subscription.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[sub.ID] = sub
}

func (f *fakeStore) get(id string) *subscription.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subs[id]; ok {
		cp := *sub
		return &cp
	}
	return nil
}

func (f *fakeStore) GetByIDForUser(ctx context.Context, id, userID string) (*subscription.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub, ok := f.subs[id]
	if !ok || sub.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeStore) ConditionalUpdateStatus(ctx context.Context, id string, expected, next subscription.Status, cancelledAt *time.Time) (*subscription.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub, ok := f.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if sub.Status != expected {
		return nil, ErrStatusConflict
	}

	sub.Status = next
	if sub.CancelledAt == nil {
		sub.CancelledAt = cancelledAt
	}
	sub.UpdatedAt = time.Now()
	f.transitions++

	cp := *sub
	return &cp, nil
}

func (f *fakeStore) InsertOrder(ctx context.Context, o *order.PaymentOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertOrderErr != nil {
		return f.insertOrderErr
	}
	f.orders = append(f.orders, *o)
	return nil
}

func (f *fakeStore) EnqueueCancellationJob(ctx context.Context, job *subscription.CancellationJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, *job)
	return nil
}

func (f *fakeStore) DueCancellationJobs(ctx context.Context, limit int) ([]subscription.CancellationJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	jobs := make([]subscription.CancellationJob, len(f.jobs))
	copy(jobs, f.jobs)
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (f *fakeStore) CompleteCancellationJob(ctx context.Context, id string) error {
	return f.removeJob(id)
}

func (f *fakeStore) AbandonCancellationJob(ctx context.Context, id string, lastError string) error {
	return f.removeJob(id)
}

func (f *fakeStore) removeJob(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.jobs[:0]
	for _, job := range f.jobs {
		if job.ID != id {
			kept = append(kept, job)
		}
	}
	f.jobs = kept
	return nil
}

func (f *fakeStore) RescheduleCancellationJob(ctx context.Context, id string, attempts int, lastError string, nextAttemptAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.jobs {
		if f.jobs[i].ID == id {
			f.jobs[i].Attempts = attempts
			f.jobs[i].LastError = lastError
			f.jobs[i].NextAttemptAt = nextAttemptAt
		}
	}
	return nil
}

type fakeGateway struct {
	mu           sync.Mutex
	orderID      string
	createErr    error
	cancelErr    error
	createCalls  int
	cancelCalls  int
	lastAmount   int64
	lastCurrency string
	lastReceipt  string
}

func (f *fakeGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*gateway.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	f.lastAmount = amount
	f.lastCurrency = currency
	f.lastReceipt = receipt

	if f.createErr != nil {
		return nil, f.createErr
	}
	return &gateway.OrderResult{
		OrderID:  f.orderID,
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (f *fakeGateway) CancelSubscription(ctx context.Context, externalSubscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancelCalls++
	return f.cancelErr
}
