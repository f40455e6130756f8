package model

import "time"

// Product - moda_products 테이블 구조 (분석 완료된 최종 속성 기준)
type Product struct {
	ProductID        string   `json:"product_id"`
	OwnerID          *string  `json:"owner_id"`
	Category         string   `json:"category"` // "Cargo Pants", "Hoodie", "Crossbody Bag" 등
	Color            string   `json:"color"`
	Material         string   `json:"material"`
	Closure          string   `json:"closure"` // "zipper", "button", "drawstring" 등
	HasLogo          bool     `json:"has_logo"`
	LogoDetail       *string  `json:"logo_detail"`
	PocketShape      *string  `json:"pocket_shape"`
	PocketMaterial   *string  `json:"pocket_material"`
	PocketPattern    *string  `json:"pocket_pattern"`
	BackPatchShape   *string  `json:"back_patch_shape"`
	BackPatchColor   *string  `json:"back_patch_color"`
	SeamDetail       *string  `json:"seam_detail"`
	AccessoryShape   *string  `json:"accessory_shape"` // 악세서리 제품의 형태 ("square", "round" 등)
	ReferenceImages  []string `json:"reference_image_urls"`
	Analyzed         bool     `json:"analyzed"`
	AnalysisSummary  *string  `json:"analysis_summary"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Scene - moda_scenes 테이블 구조
type Scene struct {
	SceneID           string    `json:"scene_id"`
	OwnerID           *string   `json:"owner_id"`
	Name              string    `json:"name"`
	Background        string    `json:"background"`
	Floor             string    `json:"floor"`
	Props             string    `json:"props"`
	LightingStyle     string    `json:"lighting_style"`
	LightingDirection string    `json:"lighting_direction"`
	Mood              string    `json:"mood"`
	ModelTopStyle     string    `json:"model_top_style"`
	ModelBottomStyle  string    `json:"model_bottom_style"`
	Footwear          string    `json:"footwear"` // 명시된 경우 제품 카테고리 매칭보다 우선
	CreatedAt         time.Time `json:"created_at"`
}

// ShotOptions - generation job의 shot_options JSONB 구조
type ShotOptions struct {
	SubjectType  string `json:"subjectType"`  // "adult" | "kid"
	AspectRatio  string `json:"aspectRatio"`  // "1:1", "3:4", "4:3", "9:16", "16:9"
	Resolution   string `json:"resolution"`   // "1K", "2K"
	HighFidelity bool   `json:"highFidelity"` // 품질 접미사 2단계 선택
}

// ShotResult - 샷 하나의 처리 결과 (jobs.shot_results JSONB 배열 원소)
type ShotResult struct {
	ShotKind    string     `json:"shot_kind"` // "duo", "solo", "flat-front", ...
	Label       string     `json:"label"`     // 표시용 샷 이름 ("Duo Editorial" 등)
	Index       int        `json:"index"`
	Status      string     `json:"status"` // processing | completed | failed
	ImageURL    *string    `json:"image_url"`
	Error       *string    `json:"error"`
	Prompt      string     `json:"prompt"`
	CompletedAt *time.Time `json:"completed_at"`
}

// GenerationJob - moda_generation_jobs 테이블 구조
type GenerationJob struct {
	JobID           string       `json:"job_id"`
	OwnerID         *string      `json:"owner_id"`
	ProductID       string       `json:"product_id"`
	SceneID         string       `json:"scene_id"`
	ShotOptions     ShotOptions  `json:"shot_options"`
	JobStatus       string       `json:"job_status"`
	TotalShots      int          `json:"total_shots"`
	CompletedShots  int          `json:"completed_shots"`
	ProgressPercent int          `json:"progress_percent"`
	ShotResults     []ShotResult `json:"shot_results"`
	ErrorMessage    *string      `json:"error_message"`
	RetryCount      int          `json:"retry_count"`
	CreatedAt       time.Time    `json:"created_at"`
	StartedAt       *time.Time   `json:"started_at"`
	CompletedAt     *time.Time   `json:"completed_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// IsTerminal - 잡이 종결 상태인지 (종결 후에는 어떤 전이도 불가)
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
