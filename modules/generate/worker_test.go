package generate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"modashot-server/modules/common/model"
)

type fakeQueue struct {
	mutex        sync.Mutex
	acked        []string
	retried      []string
	attempt      int
	allowRequeue bool
}

func (q *fakeQueue) Enqueue(ctx context.Context, jobID string) (int64, error) { return 1, nil }

func (q *fakeQueue) Dequeue(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (q *fakeQueue) Ack(ctx context.Context, jobID string) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.acked = append(q.acked, jobID)
	return nil
}

func (q *fakeQueue) RetryWithBackoff(ctx context.Context, jobID string) (int, bool, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.retried = append(q.retried, jobID)
	q.attempt++
	return q.attempt, q.allowRequeue, nil
}

func (q *fakeQueue) Heartbeat(ctx context.Context, jobID string) error { return nil }

func TestHandleJobAcksOnSuccess(t *testing.T) {
	orch, store, _, _ := newFixture(&fakeGenerator{})
	q := &fakeQueue{allowRequeue: true}
	worker := NewWorker(q, orch, store)

	worker.handleJob(context.Background(), "job-1")

	if len(q.acked) != 1 || q.acked[0] != "job-1" {
		t.Errorf("expected job-1 acked, got %v", q.acked)
	}
	if len(q.retried) != 0 {
		t.Errorf("successful jobs must not be retried, got %v", q.retried)
	}
}

func TestHandleJobRetriesPreDispatchFailure(t *testing.T) {
	orch, store, _, _ := newFixture(&fakeGenerator{})
	store.fetchJobErr = errors.New("supabase unreachable")

	q := &fakeQueue{allowRequeue: true}
	worker := NewWorker(q, orch, store)

	worker.handleJob(context.Background(), "job-1")

	if len(q.retried) != 1 {
		t.Fatalf("expected one retry, got %v", q.retried)
	}
	if len(q.acked) != 0 {
		t.Errorf("retried jobs must not be acked, got %v", q.acked)
	}
	if len(store.retryCounts) != 1 || store.retryCounts[0] != 1 {
		t.Errorf("retry count should be persisted, got %v", store.retryCounts)
	}
	// 재투입된 잡은 실패 처리되면 안 됨
	if len(store.statusUpdates) != 0 {
		t.Errorf("requeued job must stay pending, got status updates %v", store.statusUpdates)
	}
}

func TestHandleJobFailsAfterRetriesExhausted(t *testing.T) {
	orch, store, publisher, _ := newFixture(&fakeGenerator{})
	store.fetchJobErr = errors.New("supabase unreachable")

	q := &fakeQueue{allowRequeue: false}
	worker := NewWorker(q, orch, store)

	worker.handleJob(context.Background(), "job-1")

	if len(store.statusUpdates) != 1 || store.statusUpdates[0] != model.StatusFailed {
		t.Errorf("exhausted job must be marked failed, got %v", store.statusUpdates)
	}

	completes := publisher.byType("complete")
	if len(completes) != 1 || completes[0].Status != model.StatusFailed {
		t.Errorf("expected failed complete event, got %+v", completes)
	}
}

func TestWorkerStartStopsOnContextCancel(t *testing.T) {
	orch, store, _, _ := newFixture(&fakeGenerator{})
	q := &fakeQueue{}
	worker := NewWorker(q, orch, store)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
