package handlers

import (
	"context"
	"sync"
	"time"

	"paycycleAPI/internal/gateway"
	"paycycleAPI/internal/types/order"
	"paycycleAPI/internal/types/subscription"
	"paycycleAPI/services"
)

type stubStore struct {
	mu     sync.Mutex
	subs   map[string]*subscription.Subscription
	orders []order.PaymentOrder
	jobs   []subscription.CancellationJob
}

func newStubStore() *stubStore {
	return &stubStore{subs: make(map[string]*subscription.Subscription)}
}

func (s *stubStore) GetByIDForUser(ctx context.Context, id, userID string) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok || sub.UserID != userID {
		return nil, services.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *stubStore) ConditionalUpdateStatus(ctx context.Context, id string, expected, next subscription.Status, cancelledAt *time.Time) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	if sub.Status != expected {
		return nil, services.ErrStatusConflict
	}
	sub.Status = next
	if sub.CancelledAt == nil {
		sub.CancelledAt = cancelledAt
	}
	sub.UpdatedAt = time.Now()
	cp := *sub
	return &cp, nil
}

func (s *stubStore) InsertOrder(ctx context.Context, o *order.PaymentOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, *o)
	return nil
}

func (s *stubStore) EnqueueCancellationJob(ctx context.Context, job *subscription.CancellationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, *job)
	return nil
}

func (s *stubStore) DueCancellationJobs(ctx context.Context, limit int) ([]subscription.CancellationJob, error) {
	return nil, nil
}

func (s *stubStore) CompleteCancellationJob(ctx context.Context, id string) error { return nil }

func (s *stubStore) RescheduleCancellationJob(ctx context.Context, id string, attempts int, lastError string, nextAttemptAt time.Time) error {
	return nil
}

func (s *stubStore) AbandonCancellationJob(ctx context.Context, id string, lastError string) error {
	return nil
}

type stubGateway struct {
	mu          sync.Mutex
	orderID     string
	createErr   error
	cancelErr   error
	createCalls int
}

func (g *stubGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*gateway.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &gateway.OrderResult{OrderID: g.orderID, Amount: amount, Currency: currency, Receipt: receipt, Status: "created"}, nil
}

func (g *stubGateway) CancelSubscription(ctx context.Context, externalSubscriptionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelErr
}
