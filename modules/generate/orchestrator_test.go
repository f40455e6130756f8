package generate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"modashot-server/modules/broadcast"
	"modashot-server/modules/common/model"
	"modashot-server/modules/genimage"
	"modashot-server/modules/promptsynth"
)

// --- 페이크들 ---

type progressSnapshot struct {
	completed int
	percent   int
}

type fakeStore struct {
	mutex         sync.Mutex
	job           *model.GenerationJob
	product       *model.Product
	scene         *model.Scene
	fetchJobErr   error
	fetchSceneErr error
	statusUpdates []string
	lastErrorMsg  string
	progress      []progressSnapshot
	retryCounts   []int
	initTotal     int
}

func (s *fakeStore) FetchJob(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	if s.fetchJobErr != nil {
		return nil, s.fetchJobErr
	}
	jobCopy := *s.job
	return &jobCopy, nil
}

func (s *fakeStore) FetchProduct(ctx context.Context, productID string) (*model.Product, error) {
	return s.product, nil
}

func (s *fakeStore) FetchScene(ctx context.Context, sceneID string) (*model.Scene, error) {
	if s.fetchSceneErr != nil {
		return nil, s.fetchSceneErr
	}
	return s.scene, nil
}

func (s *fakeStore) UpdateJobStatus(ctx context.Context, jobID, status, errorMessage string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.statusUpdates = append(s.statusUpdates, status)
	if errorMessage != "" {
		s.lastErrorMsg = errorMessage
	}
	return nil
}

func (s *fakeStore) UpdateJobProgress(ctx context.Context, jobID string, completedShots, progressPercent int, shotResults []model.ShotResult) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.progress = append(s.progress, progressSnapshot{completedShots, progressPercent})
	return nil
}

func (s *fakeStore) InitJobShots(ctx context.Context, jobID string, totalShots int, shotResults []model.ShotResult) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.initTotal = totalShots
	return nil
}

func (s *fakeStore) IncrementRetryCount(ctx context.Context, jobID string, retryCount int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.retryCounts = append(s.retryCounts, retryCount)
	return nil
}

type fakeArtifacts struct{}

func (a *fakeArtifacts) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	return []byte("reference-bytes"), nil
}

func (a *fakeArtifacts) UploadShotImage(ctx context.Context, imageData []byte, jobID, shotKind string, convertToWebP func([]byte, float32) ([]byte, error)) (string, int64, error) {
	return "https://cdn.test/" + jobID + "/" + shotKind + ".webp", int64(len(imageData)), nil
}

type fakePublisher struct {
	mutex  sync.Mutex
	events []broadcast.Event
}

func (p *fakePublisher) Publish(event broadcast.Event) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePublisher) byType(eventType string) []broadcast.Event {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var out []broadcast.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeHeartbeat struct {
	mutex sync.Mutex
	count int
}

func (h *fakeHeartbeat) Heartbeat(ctx context.Context, jobID string) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.count++
	return nil
}

// fakeGenerator - succeedWhen이 매칭되는 프롬프트만 성공시킴 (nil이면 전부 성공)
type fakeGenerator struct {
	failAll     bool
	succeedWhen string
	err         error
	delay       time.Duration
}

func (g *fakeGenerator) Generate(ctx context.Context, req genimage.Request) (*genimage.Image, error) {
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, genimage.ErrTimeout
		}
	}

	genErr := g.err
	if genErr == nil {
		genErr = genimage.ErrProvider
	}

	if g.failAll {
		return nil, genErr
	}
	if g.succeedWhen != "" && !strings.Contains(req.Prompt, g.succeedWhen) {
		return nil, genErr
	}
	return &genimage.Image{MIMEType: "image/png", Data: []byte("generated")}, nil
}

// --- 셋업 ---

func ownerPtr() *string {
	s := "owner-1"
	return &s
}

func newFixture(gen genimage.Generator) (*Orchestrator, *fakeStore, *fakePublisher, *fakeHeartbeat) {
	store := &fakeStore{
		job: &model.GenerationJob{
			JobID:     "job-1",
			OwnerID:   ownerPtr(),
			ProductID: "prod-1",
			SceneID:   "scene-1",
			JobStatus: model.StatusPending,
			ShotOptions: model.ShotOptions{
				SubjectType: "adult",
				AspectRatio: "3:4",
				Resolution:  "1K",
			},
		},
		product: &model.Product{
			ProductID:       "prod-1",
			Category:        "Cargo Pants",
			Color:           "olive",
			Material:        "cotton",
			Closure:         "zipper",
			Analyzed:        true,
			ReferenceImages: []string{"https://cdn.test/ref-front.webp", "https://cdn.test/ref-back.webp"},
		},
		scene: &model.Scene{
			SceneID:    "scene-1",
			Name:       "Studio",
			Background: "white seamless",
		},
	}

	publisher := &fakePublisher{}
	heartbeat := &fakeHeartbeat{}
	orch := NewOrchestrator(store, &fakeArtifacts{}, gen, publisher, heartbeat, 5*time.Second)

	return orch, store, publisher, heartbeat
}

// --- 테스트 ---

func TestProcessJobAllShotsSucceed(t *testing.T) {
	orch, store, publisher, heartbeat := newFixture(&fakeGenerator{})

	if err := orch.ProcessJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessJob failed: %v", err)
	}

	total := len(promptsynth.ShotCatalog)

	if store.initTotal != total {
		t.Errorf("expected %d shots initialized, got %d", total, store.initTotal)
	}

	wantStatuses := []string{model.StatusProcessing, model.StatusCompleted}
	if len(store.statusUpdates) != 2 || store.statusUpdates[0] != wantStatuses[0] || store.statusUpdates[1] != wantStatuses[1] {
		t.Errorf("status transitions = %v, want %v", store.statusUpdates, wantStatuses)
	}

	if len(store.progress) != total {
		t.Fatalf("expected %d progress writes, got %d", total, len(store.progress))
	}

	// 진행률 단조 증가 + 최종 100%
	prev := -1
	for _, snap := range store.progress {
		if snap.percent < prev {
			t.Errorf("progress went backwards: %d after %d", snap.percent, prev)
		}
		prev = snap.percent
	}
	last := store.progress[len(store.progress)-1]
	if last.completed != total || last.percent != 100 {
		t.Errorf("final progress = %d shots / %d%%, want %d / 100%%", last.completed, last.percent, total)
	}

	if got := len(publisher.byType(broadcast.EventShotProcessing)); got != total {
		t.Errorf("shot_processing events = %d, want %d", got, total)
	}
	if got := len(publisher.byType(broadcast.EventShotCompleted)); got != total {
		t.Errorf("shot_completed events = %d, want %d", got, total)
	}
	completes := publisher.byType(broadcast.EventComplete)
	if len(completes) != 1 || completes[0].Status != model.StatusCompleted {
		t.Fatalf("expected exactly one completed complete event, got %+v", completes)
	}

	// complete는 반드시 모든 샷 이벤트 이후
	if publisher.events[len(publisher.events)-1].Type != broadcast.EventComplete {
		t.Error("complete must be the final event")
	}

	if heartbeat.count != total {
		t.Errorf("heartbeats = %d, want %d", heartbeat.count, total)
	}
}

func TestProcessJobHeartbeatsWhileShotsRun(t *testing.T) {
	// 샷 하나가 스톨 판정보다 오래 걸려도 잡이 살아있다고 계속 신고해야 함
	orch, _, _, heartbeat := newFixture(&fakeGenerator{delay: 120 * time.Millisecond})
	orch.heartbeatEvery = 10 * time.Millisecond

	if err := orch.ProcessJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessJob failed: %v", err)
	}

	// 샷 종결 시점의 하트비트만 있으면 total과 같고, 주기 갱신이 있으면 초과한다
	total := len(promptsynth.ShotCatalog)
	if heartbeat.count <= total {
		t.Errorf("heartbeats = %d, want more than %d while shots are in flight", heartbeat.count, total)
	}
}

func TestProcessJobCarriesShotLabels(t *testing.T) {
	orch, _, publisher, _ := newFixture(&fakeGenerator{})

	if err := orch.ProcessJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessJob failed: %v", err)
	}

	for _, event := range publisher.byType(broadcast.EventShotProcessing) {
		if event.Label == "" {
			t.Errorf("shot %q dispatched without a display label", event.ShotKind)
		}
	}

	completes := publisher.byType(broadcast.EventComplete)
	if len(completes) != 1 {
		t.Fatalf("expected one complete event, got %d", len(completes))
	}
	for _, result := range completes[0].Results {
		if result.Label == "" {
			t.Errorf("shot result %q persisted without a display label", result.ShotKind)
		}
	}
}

func TestProcessJobAllShotsFail(t *testing.T) {
	orch, store, publisher, _ := newFixture(&fakeGenerator{failAll: true, err: genimage.ErrTimeout})

	if err := orch.ProcessJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessJob returned error for in-band failure: %v", err)
	}

	finalStatus := store.statusUpdates[len(store.statusUpdates)-1]
	if finalStatus != model.StatusFailed {
		t.Errorf("final status = %s, want failed", finalStatus)
	}
	if !strings.Contains(store.lastErrorMsg, "all shots failed") {
		t.Errorf("error message should summarize total failure, got %q", store.lastErrorMsg)
	}

	completes := publisher.byType(broadcast.EventComplete)
	if len(completes) != 1 || completes[0].Status != model.StatusFailed {
		t.Fatalf("expected one failed complete event, got %+v", completes)
	}
}

func TestProcessJobPartialFailureStillCompletes(t *testing.T) {
	// 솔로 샷만 성공 - 하나라도 성공하면 잡은 completed
	orch, store, publisher, _ := newFixture(&fakeGenerator{succeedWhen: "[SOLO EDITORIAL SHOT]"})

	if err := orch.ProcessJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessJob failed: %v", err)
	}

	finalStatus := store.statusUpdates[len(store.statusUpdates)-1]
	if finalStatus != model.StatusCompleted {
		t.Errorf("final status = %s, want completed", finalStatus)
	}

	completes := publisher.byType(broadcast.EventComplete)
	if len(completes) != 1 {
		t.Fatalf("expected one complete event, got %d", len(completes))
	}

	total := len(promptsynth.ShotCatalog)
	if completes[0].Completed != 1 || completes[0].Total != total {
		t.Errorf("complete counters = %d/%d, want 1/%d", completes[0].Completed, completes[0].Total, total)
	}

	// 실패한 샷들의 결과도 보존되어야 함
	failed := 0
	for _, result := range completes[0].Results {
		if result.Status == model.StatusFailed {
			failed++
			if result.Error == nil {
				t.Errorf("failed shot %s has no error recorded", result.ShotKind)
			}
		}
	}
	if failed != total-1 {
		t.Errorf("failed results = %d, want %d", failed, total-1)
	}
}

func TestProcessJobPreconditionFailsWithoutRetry(t *testing.T) {
	orch, store, publisher, _ := newFixture(&fakeGenerator{})
	store.product.Analyzed = false

	// 전제조건 위반은 재시도 대상이 아니므로 에러 없이 종결 처리되어야 함
	if err := orch.ProcessJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("precondition failure must be handled in-band, got %v", err)
	}

	if len(store.statusUpdates) != 1 || store.statusUpdates[0] != model.StatusFailed {
		t.Errorf("status updates = %v, want single failed transition", store.statusUpdates)
	}
	if !strings.Contains(store.lastErrorMsg, "precondition") {
		t.Errorf("error message should name the precondition, got %q", store.lastErrorMsg)
	}
	if got := len(publisher.byType(broadcast.EventShotProcessing)); got != 0 {
		t.Errorf("no shots may be dispatched after a precondition failure, got %d", got)
	}
}

func TestProcessJobInfraErrorIsRetryable(t *testing.T) {
	orch, store, _, _ := newFixture(&fakeGenerator{})
	store.fetchJobErr = errors.New("supabase unreachable")

	err := orch.ProcessJob(context.Background(), "job-1")
	if !errors.Is(err, ErrPreDispatch) {
		t.Fatalf("expected ErrPreDispatch, got %v", err)
	}

	store.fetchJobErr = nil
	store.fetchSceneErr = errors.New("scene fetch timeout")

	err = orch.ProcessJob(context.Background(), "job-1")
	if !errors.Is(err, ErrPreDispatch) {
		t.Fatalf("expected ErrPreDispatch for scene failure, got %v", err)
	}
	if len(store.statusUpdates) != 0 {
		t.Errorf("no status writes expected before dispatch, got %v", store.statusUpdates)
	}
}

func TestProcessJobSkipsTerminalJob(t *testing.T) {
	orch, store, publisher, _ := newFixture(&fakeGenerator{})
	store.job.JobStatus = model.StatusCompleted

	if err := orch.ProcessJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessJob failed: %v", err)
	}

	if len(store.statusUpdates) != 0 {
		t.Errorf("terminal jobs must not be touched, got updates %v", store.statusUpdates)
	}
	if len(publisher.events) != 0 {
		t.Errorf("terminal jobs must not emit events, got %d", len(publisher.events))
	}
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 6, 0},
		{1, 6, 17},
		{2, 6, 33},
		{3, 6, 50},
		{4, 6, 67},
		{5, 6, 83},
		{6, 6, 100},
		{0, 0, 0},
	}

	for _, tt := range tests {
		if got := progressPercent(tt.completed, tt.total); got != tt.want {
			t.Errorf("progressPercent(%d, %d) = %d, want %d", tt.completed, tt.total, got, tt.want)
		}
	}
}
