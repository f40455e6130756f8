package promptsynth

import (
	"strings"

	"modashot-server/modules/common/model"
)

// 카테고리 패밀리별 기본 신발 (씬에 명시가 없을 때만 사용)
const (
	footwearCasualBottoms = "Minimalist white leather sneakers"
	footwearAthletic      = "Clean white athletic sneakers"
	footwearOuterwear     = "Polished leather ankle boots"
	footwearDefault       = "fashionable footwear that complements the outfit"
)

// ResolveFootwear - 착용 샷의 신발 결정
// 우선순위: 씬에 명시된 footwear > 제품 카테고리 패밀리 매칭 > 범용 문구
// 하의 패밀리 체크가 애슬레틱보다 먼저다 ("Track Pants"는 하의로 매칭되어야 함)
func ResolveFootwear(product *model.Product, scene *model.Scene) string {
	if fw := strings.TrimSpace(scene.Footwear); fw != "" {
		return fw
	}

	switch {
	case IsBottomGarment(product.Category):
		return footwearCasualBottoms
	case isAthleticCategory(product.Category):
		return footwearAthletic
	case isOuterwearCategory(product.Category):
		return footwearOuterwear
	default:
		return footwearDefault
	}
}

// soloSafeReplacer - 복수 모델 표현을 단수로 변환
// 씬 프리셋이나 footwear 문구가 듀오 샷 기준으로 쓰여 있어도
// 솔로 샷에 그대로 들어가면 두 번째 인물이 생성되는 사고가 남
var soloSafeReplacer = strings.NewReplacer(
	"Both models", "The model",
	"both models", "the model",
	"Two models", "One model",
	"two models", "one model",
	"Each model", "The model",
	"each model", "the model",
	"models'", "model's",
	"models", "model",
)

// SoloSafe - 단독 샷용으로 복수 주어 표현 제거
func SoloSafe(text string) string {
	return soloSafeReplacer.Replace(text)
}
