package promptsynth

import "errors"

// 샷 종류 - 고정 카탈로그
const (
	ShotDuo         = "duo"         // 두 모델 착용 샷
	ShotSolo        = "solo"        // 단독 모델 착용 샷
	ShotFlatFront   = "flat-front"  // 제품 단독 플랫레이 (앞면)
	ShotFlatBack    = "flat-back"   // 제품 단독 플랫레이 (뒷면)
	ShotDetailFront = "detail-front" // 디테일 매크로 (앞면)
	ShotDetailBack  = "detail-back"  // 디테일 매크로 (뒷면)
)

// ShotCatalog - 생성 순서 고정 (결과 배열 인덱스 = 카탈로그 인덱스)
var ShotCatalog = []string{
	ShotDuo,
	ShotSolo,
	ShotFlatFront,
	ShotFlatBack,
	ShotDetailFront,
	ShotDetailBack,
}

// shotLabels - 구독자/결과 화면에 노출되는 샷 표시 이름
var shotLabels = map[string]string{
	ShotDuo:         "Duo Editorial",
	ShotSolo:        "Solo Editorial",
	ShotFlatFront:   "Flat Lay - Front",
	ShotFlatBack:    "Flat Lay - Back",
	ShotDetailFront: "Detail Macro - Front",
	ShotDetailBack:  "Detail Macro - Back",
}

// ShotLabel - 샷 종류의 표시 이름 (카탈로그 밖 종류는 kind 그대로)
func ShotLabel(kind string) string {
	if label, ok := shotLabels[kind]; ok {
		return label
	}
	return kind
}

// ShotSpec - 샷 하나의 생성 명세
type ShotSpec struct {
	Kind           string `json:"kind"`
	Label          string `json:"label"`
	Index          int    `json:"index"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	HumanShot      bool   `json:"human_shot"` // 모델 등장 여부 (duo, solo)
}

// Result - 합성 결과 전체
type Result struct {
	Shots          []ShotSpec `json:"shots"`
	SharedNegative string     `json:"shared_negative"`
}

// ErrProductNotAnalyzed - 분석이 끝나지 않은 제품은 합성 불가 (유일한 실패 케이스)
var ErrProductNotAnalyzed = errors.New("product has not been analyzed")
