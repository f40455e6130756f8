package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/supabase-community/supabase-go"
	"modashot-server/modules/common/config"
	"modashot-server/modules/common/model"
)

type Client struct {
	supabase *supabase.Client
}

// NewClient - Database 클라이언트 생성
func NewClient() *Client {
	cfg := config.GetConfig()

	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		log.Printf("❌ Failed to create Supabase client: %v", err)
		return nil
	}

	return &Client{
		supabase: supabaseClient,
	}
}

// FetchJob - Supabase에서 generation job 조회
func (c *Client) FetchJob(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	log.Printf("🔍 Fetching job from Supabase: %s", jobID)

	var jobs []model.GenerationJob

	data, _, err := c.supabase.From("moda_generation_jobs").
		Select("*", "exact", false).
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to query Supabase: %w", err)
	}

	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	job := &jobs[0]
	log.Printf("✅ Job fetched: %s (status: %s, product: %s, scene: %s)",
		job.JobID, job.JobStatus, job.ProductID, job.SceneID)

	return job, nil
}

// FetchProduct - 제품 조회
func (c *Client) FetchProduct(ctx context.Context, productID string) (*model.Product, error) {
	log.Printf("🔍 Fetching product: %s", productID)

	var products []model.Product

	data, _, err := c.supabase.From("moda_products").
		Select("*", "exact", false).
		Eq("product_id", productID).
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to query moda_products: %w", err)
	}

	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse product response: %w", err)
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("product not found: %s", productID)
	}

	product := &products[0]
	log.Printf("✅ Product fetched: %s (category: %s, analyzed: %v)",
		product.ProductID, product.Category, product.Analyzed)

	return product, nil
}

// FetchScene - 씬 프리셋 조회
func (c *Client) FetchScene(ctx context.Context, sceneID string) (*model.Scene, error) {
	log.Printf("🔍 Fetching scene: %s", sceneID)

	var scenes []model.Scene

	data, _, err := c.supabase.From("moda_scenes").
		Select("*", "exact", false).
		Eq("scene_id", sceneID).
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to query moda_scenes: %w", err)
	}

	if err := json.Unmarshal(data, &scenes); err != nil {
		return nil, fmt.Errorf("failed to parse scene response: %w", err)
	}

	if len(scenes) == 0 {
		return nil, fmt.Errorf("scene not found: %s", sceneID)
	}

	scene := &scenes[0]
	log.Printf("✅ Scene fetched: %s (%s)", scene.SceneID, scene.Name)

	return scene, nil
}

// UpdateJobStatus - Job 상태 업데이트 (전이 시점 타임스탬프 포함)
func (c *Client) UpdateJobStatus(ctx context.Context, jobID string, status string, errorMessage string) error {
	log.Printf("📝 Updating job %s status to: %s", jobID, status)

	updateData := map[string]interface{}{
		"job_status": status,
		"updated_at": "now()",
	}

	if status == model.StatusProcessing {
		updateData["started_at"] = "now()"
	} else if model.IsTerminal(status) {
		updateData["completed_at"] = "now()"
	}

	if errorMessage != "" {
		updateData["error_message"] = errorMessage
	}

	_, _, err := c.supabase.From("moda_generation_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	log.Printf("✅ Job %s status updated to: %s", jobID, status)
	return nil
}

// UpdateJobProgress - 진행 카운터 + 샷 결과 배열 저장
func (c *Client) UpdateJobProgress(ctx context.Context, jobID string, completedShots, progressPercent int, shotResults []model.ShotResult) error {
	log.Printf("📊 Updating job progress: %d shots done (%d%%)", completedShots, progressPercent)

	updateData := map[string]interface{}{
		"completed_shots":  completedShots,
		"progress_percent": progressPercent,
		"shot_results":     shotResults,
		"updated_at":       "now()",
	}

	_, _, err := c.supabase.From("moda_generation_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}

	return nil
}

// InitJobShots - 처리 시작 시 total_shots와 초기 shot_results 기록
func (c *Client) InitJobShots(ctx context.Context, jobID string, totalShots int, shotResults []model.ShotResult) error {
	log.Printf("📋 Initializing %d shots for job %s", totalShots, jobID)

	updateData := map[string]interface{}{
		"total_shots":      totalShots,
		"completed_shots":  0,
		"progress_percent": 0,
		"shot_results":     shotResults,
		"updated_at":       "now()",
	}

	_, _, err := c.supabase.From("moda_generation_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to init job shots: %w", err)
	}

	return nil
}

// IncrementRetryCount - 잡 레벨 재시도 횟수 기록
func (c *Client) IncrementRetryCount(ctx context.Context, jobID string, retryCount int) error {
	updateData := map[string]interface{}{
		"retry_count": retryCount,
		"updated_at":  "now()",
	}

	_, _, err := c.supabase.From("moda_generation_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update retry count: %w", err)
	}

	return nil
}
