package services

import (
	"context"
	"log"
	"sync"
	"time"

	"paycycleAPI/internal/gateway"
)

// ReconciliationWorker drains the cancellation outbox: subscriptions that are
// cancelled locally but whose gateway-side cancellation failed in-request.
// Jobs are retried with a growing delay and abandoned after maxAttempts,
// leaving the row for manual reconciliation.
type ReconciliationWorker struct {
	store       SubscriptionStore
	gateway     gateway.Client
	interval    time.Duration
	batchSize   int
	maxAttempts int
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

func NewReconciliationWorker(store SubscriptionStore, gw gateway.Client) *ReconciliationWorker {
	return &ReconciliationWorker{
		store:       store,
		gateway:     gw,
		interval:    time.Minute,
		batchSize:   20,
		maxAttempts: 5,
		stopChan:    make(chan struct{}),
	}
}

func (w *ReconciliationWorker) Start() {
	w.wg.Add(1)
	go w.run()
}

func (w *ReconciliationWorker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *ReconciliationWorker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.processDue()
		case <-w.stopChan:
			return
		}
	}
}

func (w *ReconciliationWorker) processDue() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	jobs, err := w.store.DueCancellationJobs(ctx, w.batchSize)
	if err != nil {
		log.Printf("Reconciliation: failed to list due jobs: %v", err)
		return
	}

	for _, job := range jobs {
		err := w.gateway.CancelSubscription(ctx, job.ExternalID)
		if err == nil {
			log.Printf("Reconciliation: gateway cancellation completed for subscription %s", job.SubscriptionID)
			if err := w.store.CompleteCancellationJob(ctx, job.ID); err != nil {
				log.Printf("Reconciliation: failed to mark job %s done: %v", job.ID, err)
			}
			continue
		}

		attempts := job.Attempts + 1
		if attempts >= w.maxAttempts {
			log.Printf("Reconciliation: giving up on subscription %s after %d attempts: %v",
				job.SubscriptionID, attempts, err)
			if aerr := w.store.AbandonCancellationJob(ctx, job.ID, err.Error()); aerr != nil {
				log.Printf("Reconciliation: failed to abandon job %s: %v", job.ID, aerr)
			}
			continue
		}

		// Back off linearly: attempt n waits n minutes.
		next := time.Now().Add(time.Duration(attempts) * time.Minute)
		if rerr := w.store.RescheduleCancellationJob(ctx, job.ID, attempts, err.Error(), next); rerr != nil {
			log.Printf("Reconciliation: failed to reschedule job %s: %v", job.ID, rerr)
		}
	}
}
