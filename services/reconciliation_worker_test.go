package services

import (
	"testing"
	"time"

	"paycycleAPI/internal/gateway"
	"paycycleAPI/internal/types/subscription"
)

func dueJob(id string, attempts int) subscription.CancellationJob {
	return subscription.CancellationJob{
		ID:             id,
		SubscriptionID: "sub_1",
		ExternalID:     "ext_1",
		Attempts:       attempts,
		NextAttemptAt:  time.Now().Add(-time.Minute),
		CreatedAt:      time.Now().Add(-time.Hour),
	}
}

func TestWorkerCompletesJobOnGatewaySuccess(t *testing.T) {
	store := newFakeStore()
	store.jobs = []subscription.CancellationJob{dueJob("job_1", 1)}
	gw := &fakeGateway{}
	w := NewReconciliationWorker(store, gw)

	w.processDue()

	if gw.cancelCalls != 1 {
		t.Errorf("expected 1 gateway call, got %d", gw.cancelCalls)
	}
	if len(store.jobs) != 0 {
		t.Errorf("completed job still pending: %+v", store.jobs)
	}
}

func TestWorkerReschedulesWithBackoffOnFailure(t *testing.T) {
	store := newFakeStore()
	store.jobs = []subscription.CancellationJob{dueJob("job_1", 1)}
	gw := &fakeGateway{cancelErr: &gateway.Error{Code: "SERVER_ERROR", Message: "still down"}}
	w := NewReconciliationWorker(store, gw)

	before := time.Now()
	w.processDue()

	if len(store.jobs) != 1 {
		t.Fatalf("expected the job to stay queued, got %d jobs", len(store.jobs))
	}
	job := store.jobs[0]
	if job.Attempts != 2 {
		t.Errorf("expected attempts 2, got %d", job.Attempts)
	}
	if job.LastError == "" {
		t.Error("last error not recorded")
	}
	if !job.NextAttemptAt.After(before) {
		t.Error("next attempt not pushed into the future")
	}
}

func TestWorkerAbandonsAfterMaxAttempts(t *testing.T) {
	store := newFakeStore()
	store.jobs = []subscription.CancellationJob{dueJob("job_1", 4)}
	gw := &fakeGateway{cancelErr: &gateway.Error{Code: "SERVER_ERROR", Message: "still down"}}
	w := NewReconciliationWorker(store, gw)

	w.processDue()

	// The fake drops abandoned jobs from the due set, mirroring the SQL
	// abandoned = true filter.
	if len(store.jobs) != 0 {
		t.Errorf("abandoned job still due: %+v", store.jobs)
	}
}

func TestWorkerStartStop(t *testing.T) {
	store := newFakeStore()
	w := NewReconciliationWorker(store, &fakeGateway{})
	w.interval = 10 * time.Millisecond

	w.Start()
	time.Sleep(30 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
