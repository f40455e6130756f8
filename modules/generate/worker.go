package generate

import (
	"context"
	"errors"
	"log"
	"time"

	"modashot-server/modules/queue"
)

// Worker - 큐 소비 루프
// 잡 하나는 워커 하나가 끝까지 처리한다 (샷 단위 분산 없음)
type Worker struct {
	queue queue.JobQueue
	orch  *Orchestrator
	store JobStore
}

func NewWorker(q queue.JobQueue, orch *Orchestrator, store JobStore) *Worker {
	return &Worker{
		queue: q,
		orch:  orch,
		store: store,
	}
}

// Start - 블로킹 소비 루프, 잡마다 goroutine으로 처리
func (w *Worker) Start(ctx context.Context) {
	log.Println("🔄 Generation worker starting...")
	log.Printf("👀 Watching queue: %s", queue.QueueKey)

	for {
		if ctx.Err() != nil {
			log.Println("🛑 Generation worker stopped")
			return
		}

		jobID, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("❌ Queue dequeue error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		log.Printf("🎯 Received new job: %s", jobID)
		go w.handleJob(ctx, jobID)
	}
}

// handleJob - 처리 결과에 따라 ack / 백오프 재시도 / 한도 초과 실패 처리
func (w *Worker) handleJob(ctx context.Context, jobID string) {
	err := w.orch.ProcessJob(ctx, jobID)

	if err == nil {
		if ackErr := w.queue.Ack(ctx, jobID); ackErr != nil {
			log.Printf("⚠️ Failed to ack job %s: %v", jobID, ackErr)
		}
		return
	}

	// 디스패치 전 인프라 실패만 큐 레벨 백오프로 돌아온다
	if errors.Is(err, ErrPreDispatch) {
		log.Printf("⚠️ Job %s hit a pre-dispatch failure: %v", jobID, err)

		attempt, requeued, retryErr := w.queue.RetryWithBackoff(ctx, jobID)
		if retryErr != nil {
			log.Printf("❌ Failed to schedule retry for job %s: %v", jobID, retryErr)
			w.orch.FailExhausted(ctx, jobID, "retry scheduling failed: "+err.Error())
			return
		}

		if !requeued {
			log.Printf("🛑 Job %s exhausted retries, marking failed", jobID)
			w.orch.FailExhausted(ctx, jobID, "retries exhausted: "+err.Error())
			return
		}

		if dbErr := w.store.IncrementRetryCount(ctx, jobID, attempt); dbErr != nil {
			log.Printf("⚠️ Failed to record retry count for job %s: %v", jobID, dbErr)
		}
		return
	}

	// ProcessJob은 ErrPreDispatch 아니면 nil을 돌려주게 되어 있음
	log.Printf("❌ Job %s failed with unexpected error: %v", jobID, err)
	if ackErr := w.queue.Ack(ctx, jobID); ackErr != nil {
		log.Printf("⚠️ Failed to ack job %s: %v", jobID, ackErr)
	}
}
