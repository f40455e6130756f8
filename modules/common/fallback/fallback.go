package fallback

import (
	"encoding/base64"
	"log"
	"strings"

	"modashot-server/modules/common/model"
)

const transparentPixelBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mP8/x8AAwMB/6X+ZQAAAABJRU5ErkJggg=="

var transparentPixelBytes []byte

func init() {
	data, err := base64.StdEncoding.DecodeString(transparentPixelBase64)
	if err != nil {
		log.Printf("⚠️ Failed to decode placeholder pixel: %v", err)
		return
	}
	transparentPixelBytes = data
}

// PlaceholderBytes returns a 1x1 transparent PNG for reference slots that have no source image.
func PlaceholderBytes() []byte {
	if len(transparentPixelBytes) == 0 {
		return []byte{}
	}
	out := make([]byte, len(transparentPixelBytes))
	copy(out, transparentPixelBytes)
	return out
}

// SafeString returns a trimmed string or the provided fallback.
func SafeString(value, fallbackValue string) string {
	if s := strings.TrimSpace(value); s != "" {
		return s
	}
	return fallbackValue
}

// SafeSubjectType - "adult" | "kid" 이외의 값은 adult로
func SafeSubjectType(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "kid":
		return "kid"
	default:
		return "adult"
	}
}

// SafeAspectRatio - 지원하지 않는 비율은 3:4로 (패션 샷 기본)
func SafeAspectRatio(value string) string {
	switch strings.TrimSpace(value) {
	case "1:1", "3:4", "4:3", "9:16", "16:9":
		return strings.TrimSpace(value)
	default:
		return "3:4"
	}
}

// SafeResolution - "1K" | "2K" 이외의 값은 1K로
func SafeResolution(value string) string {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "2K":
		return "2K"
	default:
		return "1K"
	}
}

// NormalizeShotOptions - JSONB에서 온 옵션에 안전한 기본값 채움
func NormalizeShotOptions(opts model.ShotOptions) model.ShotOptions {
	return model.ShotOptions{
		SubjectType:  SafeSubjectType(opts.SubjectType),
		AspectRatio:  SafeAspectRatio(opts.AspectRatio),
		Resolution:   SafeResolution(opts.Resolution),
		HighFidelity: opts.HighFidelity,
	}
}
