package generate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"modashot-server/modules/broadcast"
	"modashot-server/modules/common/fallback"
	"modashot-server/modules/common/model"
	"modashot-server/modules/common/utils"
	"modashot-server/modules/genimage"
	"modashot-server/modules/promptsynth"
)

// ErrPreDispatch - 샷 디스패치 전에 발생한 인프라 실패
// 워커가 이 에러를 보면 큐 레벨 백오프 재시도로 돌린다
var ErrPreDispatch = errors.New("pre-dispatch failure")

// 샷이 돌아가는 동안의 주기적 생존 신고 간격
// 리퍼의 스톨 판정 시간보다 충분히 짧아야 한다
const heartbeatInterval = 30 * time.Second

// JobStore - 오케스트레이터가 쓰는 저장소 표면 (database.Client가 구현)
type JobStore interface {
	FetchJob(ctx context.Context, jobID string) (*model.GenerationJob, error)
	FetchProduct(ctx context.Context, productID string) (*model.Product, error)
	FetchScene(ctx context.Context, sceneID string) (*model.Scene, error)
	UpdateJobStatus(ctx context.Context, jobID string, status string, errorMessage string) error
	UpdateJobProgress(ctx context.Context, jobID string, completedShots, progressPercent int, shotResults []model.ShotResult) error
	InitJobShots(ctx context.Context, jobID string, totalShots int, shotResults []model.ShotResult) error
	IncrementRetryCount(ctx context.Context, jobID string, retryCount int) error
}

// ArtifactStore - 생성 결과물 저장소 표면 (storage.Client가 구현)
type ArtifactStore interface {
	DownloadImage(ctx context.Context, imageURL string) ([]byte, error)
	UploadShotImage(ctx context.Context, imageData []byte, jobID, shotKind string, convertToWebP func([]byte, float32) ([]byte, error)) (string, int64, error)
}

// Publisher - 진행 이벤트 발행 표면 (broadcast.Hub가 구현)
type Publisher interface {
	Publish(event broadcast.Event)
}

// Heartbeater - 처리 중 생존 신고 표면 (queue.RedisQueue가 구현)
type Heartbeater interface {
	Heartbeat(ctx context.Context, jobID string) error
}

// Orchestrator - 잡 하나를 끝까지 책임지는 실행기
// PENDING → PROCESSING → {COMPLETED, FAILED}, 종결 상태는 영구적
type Orchestrator struct {
	store          JobStore
	artifacts      ArtifactStore
	generator      genimage.Generator
	publisher      Publisher
	heartbeat      Heartbeater
	shotTimeout    time.Duration
	heartbeatEvery time.Duration
}

func NewOrchestrator(store JobStore, artifacts ArtifactStore, generator genimage.Generator, publisher Publisher, heartbeat Heartbeater, shotTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		store:          store,
		artifacts:      artifacts,
		generator:      generator,
		publisher:      publisher,
		heartbeat:      heartbeat,
		shotTimeout:    shotTimeout,
		heartbeatEvery: heartbeatInterval,
	}
}

// ProcessJob - 잡 하나 처리
// ErrPreDispatch로 감싸진 에러만 재시도 대상이고, 나머지는 이 안에서 종결까지 처리한다
func (o *Orchestrator) ProcessJob(ctx context.Context, jobID string) error {
	log.Printf("🚀 Processing job: %s", jobID)
	startedAt := time.Now()

	// 1단계: 잡 조회
	job, err := o.store.FetchJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPreDispatch, err)
	}

	// 큐는 at-least-once라 중복 전달이 올 수 있음 - 종결된 잡은 건드리지 않는다
	if model.IsTerminal(job.JobStatus) {
		log.Printf("⚠️ Job %s is already %s, skipping", jobID, job.JobStatus)
		return nil
	}

	ownerID := ""
	if job.OwnerID != nil {
		ownerID = *job.OwnerID
	}

	// 2단계: 제품/씬 동시 로드 (둘 다 있어야 하므로 첫 실패에서 중단)
	var product *model.Product
	var scene *model.Scene

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		product, err = o.store.FetchProduct(gctx, job.ProductID)
		return err
	})
	g.Go(func() error {
		var err error
		scene, err = o.store.FetchScene(gctx, job.SceneID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %v", ErrPreDispatch, err)
	}

	// 3단계: 프롬프트 합성 - 미분석 제품은 전제조건 위반이라 재시도 없이 즉시 실패
	synthResult, err := promptsynth.Synthesize(product, scene, job.ShotOptions)
	if err != nil {
		log.Printf("❌ Job %s precondition failed: %v", jobID, err)
		o.failJob(ctx, jobID, ownerID, 0, nil, "precondition failed: "+err.Error())
		return nil
	}

	totalShots := len(synthResult.Shots)

	// 4단계: 처리 시작 기록
	if err := o.store.UpdateJobStatus(ctx, jobID, model.StatusProcessing, ""); err != nil {
		return fmt.Errorf("%w: %v", ErrPreDispatch, err)
	}

	shotResults := make([]model.ShotResult, totalShots)
	for i, shot := range synthResult.Shots {
		shotResults[i] = model.ShotResult{
			ShotKind: shot.Kind,
			Label:    shot.Label,
			Index:    shot.Index,
			Status:   model.StatusProcessing,
			Prompt:   shot.Prompt,
		}
	}

	if err := o.store.InitJobShots(ctx, jobID, totalShots, shotResults); err != nil {
		return fmt.Errorf("%w: %v", ErrPreDispatch, err)
	}

	// 5단계: 레퍼런스 이미지 준비 (전 샷 공유, 실패 슬롯은 placeholder로 채움)
	references := o.loadReferences(ctx, product)

	// 6단계: 샷별 팬아웃 - 여기부터는 잡 레벨 재시도 없음
	log.Printf("🎨 Dispatching %d shots for job %s", totalShots, jobID)

	opts := fallback.NormalizeShotOptions(job.ShotOptions)

	// 샷 하나가 스톨 판정 시간보다 오래 걸릴 수 있어서, 샷 종결 하트비트만으로는
	// 살아있는 잡이 리퍼에 회수되어 이중 실행된다. 돌아가는 동안 주기적으로 갱신한다
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go o.keepAlive(hbCtx, jobID)

	var wg sync.WaitGroup
	var progressMutex sync.Mutex
	completedShots := 0

	for i, shot := range synthResult.Shots {
		o.publisher.Publish(broadcast.NewShotProcessing(jobID, ownerID, shot.Kind, shot.Label, shot.Index))

		wg.Add(1)
		go func(index int, shot promptsynth.ShotSpec) {
			defer wg.Done()

			shotCtx, cancel := context.WithTimeout(ctx, o.shotTimeout)
			defer cancel()

			imageURL, shotErr := o.runShot(shotCtx, jobID, shot, references, opts)

			// 진행 상태 갱신은 뮤텍스로 직렬화 - read-modify-write 경합 방지
			progressMutex.Lock()
			defer progressMutex.Unlock()

			now := time.Now()
			if shotErr != nil {
				log.Printf("❌ Shot %s (job %s) failed: %v", shot.Kind, jobID, shotErr)
				errMsg := shotErr.Error()
				shotResults[index].Status = model.StatusFailed
				shotResults[index].Error = &errMsg
			} else {
				shotResults[index].Status = model.StatusCompleted
				shotResults[index].ImageURL = &imageURL
			}
			shotResults[index].CompletedAt = &now

			completedShots++
			percent := progressPercent(completedShots, totalShots)

			if err := o.store.UpdateJobProgress(ctx, jobID, completedShots, percent, shotResults); err != nil {
				log.Printf("⚠️ Failed to persist progress for job %s: %v", jobID, err)
			}
			if err := o.heartbeat.Heartbeat(ctx, jobID); err != nil {
				log.Printf("⚠️ Heartbeat failed for job %s: %v", jobID, err)
			}

			status := shotResults[index].Status
			errText := ""
			if shotResults[index].Error != nil {
				errText = *shotResults[index].Error
			}
			o.publisher.Publish(broadcast.NewShotCompleted(jobID, ownerID, shot.Kind, shot.Label, shot.Index, status, imageURL, errText))
			o.publisher.Publish(broadcast.NewProgress(jobID, ownerID, percent, completedShots, totalShots, time.Since(startedAt)))
		}(i, shot)
	}

	wg.Wait()
	stopHeartbeat()

	// 7단계: 종결 - 하나라도 성공했으면 completed, 전멸이면 failed
	succeeded := 0
	var lastError string
	for _, result := range shotResults {
		if result.Status == model.StatusCompleted {
			succeeded++
		} else if result.Error != nil {
			lastError = *result.Error
		}
	}

	if succeeded > 0 {
		log.Printf("✅ Job %s completed: %d/%d shots succeeded", jobID, succeeded, totalShots)
		if err := o.store.UpdateJobStatus(ctx, jobID, model.StatusCompleted, ""); err != nil {
			log.Printf("⚠️ Failed to mark job %s completed: %v", jobID, err)
		}
		o.publisher.Publish(broadcast.NewComplete(jobID, ownerID, model.StatusCompleted, succeeded, totalShots, shotResults))
		return nil
	}

	log.Printf("❌ Job %s failed: all %d shots failed (last error: %s)", jobID, totalShots, lastError)
	o.failJob(ctx, jobID, ownerID, totalShots, shotResults, "all shots failed: "+lastError)
	return nil
}

// keepAlive - 팬아웃이 끝날 때까지 주기적으로 하트비트 갱신
func (o *Orchestrator) keepAlive(ctx context.Context, jobID string) {
	ticker := time.NewTicker(o.heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := o.heartbeat.Heartbeat(ctx, jobID); err != nil {
				log.Printf("⚠️ Heartbeat failed for job %s: %v", jobID, err)
			}
		}
	}
}

// runShot - 샷 하나: 생성 → 업로드
// 샷 내부 재시도는 없다. 타임아웃/세이프티/프로바이더 실패 전부 샷 하나의 실패로 끝난다
func (o *Orchestrator) runShot(ctx context.Context, jobID string, shot promptsynth.ShotSpec, references [][]byte, opts model.ShotOptions) (string, error) {
	image, err := o.generator.Generate(ctx, genimage.Request{
		Prompt:          shot.Prompt,
		NegativePrompt:  shot.NegativePrompt,
		ReferenceImages: references,
		AspectRatio:     opts.AspectRatio,
		Resolution:      opts.Resolution,
	})
	if err != nil {
		return "", err
	}

	imageURL, _, err := o.artifacts.UploadShotImage(ctx, image.Data, jobID, shot.Kind, utils.ConvertPNGToWebP)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}

	return imageURL, nil
}

// loadReferences - 제품 레퍼런스 다운로드, 실패한 슬롯은 투명 placeholder로 유지
// 레퍼런스 일부가 죽어 있어도 잡 전체를 실패시키지 않는다
func (o *Orchestrator) loadReferences(ctx context.Context, product *model.Product) [][]byte {
	references := make([][]byte, 0, len(product.ReferenceImages))

	for _, imageURL := range product.ReferenceImages {
		if strings.TrimSpace(imageURL) == "" {
			continue
		}
		data, err := o.artifacts.DownloadImage(ctx, imageURL)
		if err != nil {
			log.Printf("⚠️ Reference download failed (%s), using placeholder: %v", imageURL, err)
			references = append(references, fallback.PlaceholderBytes())
			continue
		}
		references = append(references, data)
	}

	return references
}

// FailExhausted - 큐 레벨 재시도가 소진된 잡을 실패로 종결
func (o *Orchestrator) FailExhausted(ctx context.Context, jobID, reason string) {
	ownerID := ""
	if job, err := o.store.FetchJob(ctx, jobID); err == nil {
		if model.IsTerminal(job.JobStatus) {
			return
		}
		if job.OwnerID != nil {
			ownerID = *job.OwnerID
		}
	}
	o.failJob(ctx, jobID, ownerID, 0, nil, reason)
}

// failJob - 실패 종결 + complete 이벤트 (모든 shot_completed 이후)
func (o *Orchestrator) failJob(ctx context.Context, jobID, ownerID string, total int, shotResults []model.ShotResult, reason string) {
	if err := o.store.UpdateJobStatus(ctx, jobID, model.StatusFailed, reason); err != nil {
		log.Printf("⚠️ Failed to mark job %s failed: %v", jobID, err)
	}
	o.publisher.Publish(broadcast.NewComplete(jobID, ownerID, model.StatusFailed, 0, total, shotResults))
}

// progressPercent - round(100 * completed / total), 단조 증가 보장은 completed 증가로 따라옴
func progressPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}
