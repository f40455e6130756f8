package promptsynth

import (
	"strings"

	"modashot-server/modules/common/model"
)

// 모든 샷 공통 네거티브 (콜라주/워터마크/아티팩트/마네킹 차단)
const sharedNegativeBase = "collage, split frame, multiple panels, grid layout, " +
	"watermark, text overlay, signature, caption, " +
	"jpeg artifacts, blurry, low resolution, deformed, distorted proportions, " +
	"mannequin, dress form, plastic torso, floating disembodied garment"

// 착용 샷 공통 네거티브 (노출 차단)
const humanNegativeBase = ", nudity, topless, bare chest, underwear only, " +
	"see-through clothing, revealing outfit, suggestive pose"

// suede/nubuck 계열에서 생성 모델이 색을 베이지로 끌고 가는 편향 차단
const suedeColorBias = ", beige color shift, tan discoloration, khaki tint, washed-out sand tones"

// 사각 악세서리가 원형으로 뭉개지는 것 차단
const squareGeometryGuard = ", round shape, circular silhouette, oval outline, rounded corners"

// SharedNegative - 공통 베이스 (잡 결과에 그대로 노출됨)
func SharedNegative() string {
	return sharedNegativeBase
}

// humanNegative - 착용 샷(duo, solo)용 네거티브
// 지정된 피사체 타입의 반대쪽을 명시적으로 배제한다
func humanNegative(subjectType string) string {
	neg := sharedNegativeBase + humanNegativeBase

	if subjectType == "kid" {
		neg += ", adult man, adult woman, elderly person"
	} else {
		neg += ", child, kid, toddler, teenager"
	}

	return neg
}

// productNegative - 제품 단독 샷(flat, detail)용 네거티브
func productNegative(product *model.Product) string {
	neg := sharedNegativeBase

	// 소재 색 편향 차단 - 제품 색 자체가 베이지 계열이면 적용 안 함
	if hasSuedeLikeMaterial(product.Material) && !hasTanLikeColor(product.Color) {
		neg += suedeColorBias
	}

	// 형태 강제 - 사각 형태 악세서리만
	if product.AccessoryShape != nil && isSquareShape(*product.AccessoryShape) {
		neg += squareGeometryGuard
	}

	return neg
}

func hasSuedeLikeMaterial(material string) bool {
	lower := strings.ToLower(material)
	return strings.Contains(lower, "suede") || strings.Contains(lower, "nubuck")
}

func hasTanLikeColor(color string) bool {
	lower := strings.ToLower(color)
	for _, c := range []string{"beige", "tan", "khaki", "camel", "sand", "cream"} {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

func isSquareShape(shape string) bool {
	lower := strings.ToLower(shape)
	return strings.Contains(lower, "square") || strings.Contains(lower, "rect")
}
