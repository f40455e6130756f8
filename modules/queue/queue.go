package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis 키 구성
const (
	QueueKey      = "shots:queue"      // 대기 리스트 (LPUSH/BRPOP)
	delayedKey    = "shots:delayed"    // 백오프 재시도 대기 ZSET (score = 재투입 시각)
	processingKey = "shots:processing" // 처리 중 하트비트 ZSET (score = 마지막 하트비트)
	attemptsKey   = "shots:attempts"   // 잡별 시도 횟수 HASH
)

const (
	baseRetryDelay = 5 * time.Second  // 백오프 기본 지연 (매 시도마다 2배)
	stallTimeout   = 120 * time.Second // 하트비트가 이만큼 끊기면 stalled로 판정
	reaperInterval = 10 * time.Second
)

// JobQueue - 잡 큐 계약
// 오케스트레이터는 이 인터페이스만 보고, Redis 구현이 백오프/스톨 복구를 책임진다
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) (int64, error)
	Dequeue(ctx context.Context) (string, error)
	Ack(ctx context.Context, jobID string) error
	RetryWithBackoff(ctx context.Context, jobID string) (attempt int, requeued bool, err error)
	Heartbeat(ctx context.Context, jobID string) error
}

// RedisQueue - Redis 기반 JobQueue 구현
type RedisQueue struct {
	rdb        *redis.Client
	maxRetries int
}

func NewRedisQueue(rdb *redis.Client, maxRetries int) *RedisQueue {
	return &RedisQueue{
		rdb:        rdb,
		maxRetries: maxRetries,
	}
}

// Enqueue - 잡 투입, 현재 큐 길이 반환
func (q *RedisQueue) Enqueue(ctx context.Context, jobID string) (int64, error) {
	if _, err := q.rdb.LPush(ctx, QueueKey, jobID).Result(); err != nil {
		return 0, fmt.Errorf("redis LPUSH failed: %w", err)
	}

	queueLen, _ := q.rdb.LLen(ctx, QueueKey).Result()
	log.Printf("📥 [Queue] Job %s enqueued (position: %d)", jobID, queueLen)
	return queueLen, nil
}

// Dequeue - 블로킹으로 잡 하나 수령, 수령 즉시 processing ZSET에 하트비트 기록
func (q *RedisQueue) Dequeue(ctx context.Context) (string, error) {
	result, err := q.rdb.BRPop(ctx, 0, QueueKey).Result()
	if err != nil {
		return "", fmt.Errorf("redis BRPOP failed: %w", err)
	}

	// result[0]은 큐 이름, result[1]이 실제 job_id
	jobID := result[1]

	if err := q.Heartbeat(ctx, jobID); err != nil {
		log.Printf("⚠️ [Queue] Failed to record initial heartbeat for %s: %v", jobID, err)
	}

	return jobID, nil
}

// Ack - 잡 완료 처리 (성공이든 실패든 종결되면 호출)
func (q *RedisQueue) Ack(ctx context.Context, jobID string) error {
	pipe := q.rdb.Pipeline()
	pipe.ZRem(ctx, processingKey, jobID)
	pipe.HDel(ctx, attemptsKey, jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis ack failed: %w", err)
	}

	log.Printf("✅ [Queue] Job %s acked", jobID)
	return nil
}

// RetryWithBackoff - 시도 횟수를 올리고 지수 백오프로 재투입 예약
// 한도를 넘으면 false를 반환하고 큐에서 완전히 제거한다
func (q *RedisQueue) RetryWithBackoff(ctx context.Context, jobID string) (int, bool, error) {
	attempts, err := q.rdb.HIncrBy(ctx, attemptsKey, jobID, 1).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis HINCRBY failed: %w", err)
	}

	q.rdb.ZRem(ctx, processingKey, jobID)

	delay, requeue := planRetry(int(attempts), q.maxRetries)
	if !requeue {
		q.rdb.HDel(ctx, attemptsKey, jobID)
		log.Printf("🛑 [Queue] Job %s exhausted %d retries", jobID, q.maxRetries)
		return int(attempts), false, nil
	}

	retryAt := time.Now().Add(delay)

	if err := q.rdb.ZAdd(ctx, delayedKey, redis.Z{
		Score:  float64(retryAt.Unix()),
		Member: jobID,
	}).Err(); err != nil {
		return int(attempts), false, fmt.Errorf("redis ZADD delayed failed: %w", err)
	}

	log.Printf("🔄 [Queue] Job %s scheduled for retry %d/%d in %v", jobID, attempts, q.maxRetries, delay)
	return int(attempts), true, nil
}

// Heartbeat - 처리 중 잡의 생존 신고 (샷 하나 끝날 때마다 갱신)
func (q *RedisQueue) Heartbeat(ctx context.Context, jobID string) error {
	return q.rdb.ZAdd(ctx, processingKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: jobID,
	}).Err()
}

// planRetry - n번째 시도의 재투입 여부와 지연 결정 (한도를 넘으면 재투입 없음)
func planRetry(attempt, maxRetries int) (time.Duration, bool) {
	if attempt > maxRetries {
		return 0, false
	}
	return BackoffDelay(attempt), true
}

// BackoffDelay - n번째 시도의 지연 시간 (5s, 10s, 20s, ...)
func BackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return baseRetryDelay << (attempt - 1)
}

// StartReaper - 지연 재시도 투입 + 스톨 감지 루프
// 워커 프로세스가 죽어서 하트비트가 끊긴 잡을 재시도 한도 안에서 복구한다
func (q *RedisQueue) StartReaper(ctx context.Context) {
	log.Printf("👀 [Queue] Reaper started (stall timeout: %v)", stallTimeout)

	ticker := time.NewTicker(reaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 [Queue] Reaper stopped")
			return
		case <-ticker.C:
			q.drainDelayed(ctx)
			q.reapStalled(ctx)
		}
	}
}

// drainDelayed - 재투입 시각이 지난 잡을 큐로 되돌림
func (q *RedisQueue) drainDelayed(ctx context.Context) {
	now := fmt.Sprintf("%d", time.Now().Unix())

	due, err := q.rdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		log.Printf("⚠️ [Queue] Failed to read delayed jobs: %v", err)
		return
	}

	for _, jobID := range due {
		removed, err := q.rdb.ZRem(ctx, delayedKey, jobID).Result()
		if err != nil || removed == 0 {
			continue // 다른 reaper가 먼저 가져감
		}
		if _, err := q.rdb.LPush(ctx, QueueKey, jobID).Result(); err != nil {
			log.Printf("❌ [Queue] Failed to requeue delayed job %s: %v", jobID, err)
			continue
		}
		log.Printf("🔄 [Queue] Delayed job %s returned to queue", jobID)
	}
}

// reapStalled - 하트비트가 끊긴 잡을 백오프 재시도로 복구
func (q *RedisQueue) reapStalled(ctx context.Context) {
	cutoff := fmt.Sprintf("%d", time.Now().Add(-stallTimeout).Unix())

	stalled, err := q.rdb.ZRangeByScore(ctx, processingKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: cutoff,
	}).Result()
	if err != nil {
		log.Printf("⚠️ [Queue] Failed to read processing jobs: %v", err)
		return
	}

	for _, jobID := range stalled {
		log.Printf("⚠️ [Queue] Job %s stalled (no heartbeat for %v)", jobID, stallTimeout)

		_, requeued, err := q.RetryWithBackoff(ctx, jobID)
		if err != nil {
			log.Printf("❌ [Queue] Failed to recover stalled job %s: %v", jobID, err)
			continue
		}
		if !requeued {
			log.Printf("🛑 [Queue] Stalled job %s dropped after retry limit", jobID)
		}
	}
}
