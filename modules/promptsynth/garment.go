package promptsynth

import "strings"

// 하의 카테고리 키워드 - 하나라도 포함되면 하의로 판정
var bottomKeywords = []string{
	"pant", "short", "jean", "skirt", "jogger", "trouser",
	"legging", "chino", "cargo", "culotte", "bermuda", "slacks",
}

// 스포츠/애슬레저 카테고리 키워드
var athleticKeywords = []string{
	"track", "sport", "athletic", "training", "gym", "running", "jersey",
}

// 아우터/포멀 카테고리 키워드
var outerwearKeywords = []string{
	"coat", "jacket", "blazer", "suit", "trench", "parka", "overcoat",
}

// IsBottomGarment - 카테고리 문자열로 하의 여부 판정
// 하의 제품이면 착용 샷에서 모델 상의를 플레인으로 고정하고
// 씬의 기본 하의 스타일링을 무시한다 (제품이 하의 자리를 차지)
func IsBottomGarment(category string) bool {
	return containsAny(category, bottomKeywords)
}

func isAthleticCategory(category string) bool {
	return containsAny(category, athleticKeywords)
}

func isOuterwearCategory(category string) bool {
	return containsAny(category, outerwearKeywords)
}

// HasZipperClosure - closure 필드에 zip 토큰이 있는지 ("zipper", "zip fly", "two-way zip" 등)
func HasZipperClosure(closure string) bool {
	return strings.Contains(strings.ToLower(closure), "zip")
}

func containsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
