package genimage

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"

	"modashot-server/modules/common/utils"
)

const maxRetriesPerKey = 3

// GeminiGenerator - Gemini API 기반 Generator 구현
// 429 발생 시 다음 API 키로 로테이션하면서 재시도한다
type GeminiGenerator struct {
	apiKeys []string
	model   string
}

func NewGeminiGenerator(apiKeys []string, model string) *GeminiGenerator {
	return &GeminiGenerator{
		apiKeys: apiKeys,
		model:   model,
	}
}

// Generate - 레퍼런스 병합 → 컨텐츠 구성 → 키 로테이션 호출 → 결과 분류
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*Image, error) {
	contents, err := g.buildContents(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature: floatPtr(0.45),
		ImageConfig: &genai.ImageConfig{
			AspectRatio: req.AspectRatio,
		},
	}

	resp, err := g.generateWithRetry(ctx, contents, genConfig)
	if err != nil {
		return nil, err
	}

	return extractImage(resp)
}

// buildContents - 레퍼런스 이미지를 grid 한 장으로 병합하고 프롬프트 텍스트를 붙인다
// Gemini 이미지 모델은 별도 네거티브 파라미터가 없어서 프롬프트 뒤에 금지 목록으로 넣는다
func (g *GeminiGenerator) buildContents(req Request) ([]*genai.Content, error) {
	var parts []*genai.Part

	if len(req.ReferenceImages) > 0 {
		merged, err := utils.MergeReferenceImages(req.ReferenceImages, req.AspectRatio)
		if err != nil {
			return nil, fmt.Errorf("failed to merge reference images: %v", err)
		}
		parts = append(parts, genai.NewPartFromBytes(merged, "image/png"))
	}

	promptText := req.Prompt
	if req.NegativePrompt != "" {
		promptText += "\n\n[STRICTLY AVOID]\n" + req.NegativePrompt
	}
	if strings.EqualFold(req.Resolution, "2K") {
		promptText += "\n\nRender at the highest available output resolution."
	}

	parts = append(parts, genai.NewPartFromText(promptText))

	return []*genai.Content{{Parts: parts}}, nil
}

// generateWithRetry - 키별 최대 3회, 429 계열만 재시도
func (g *GeminiGenerator) generateWithRetry(ctx context.Context, contents []*genai.Content, genConfig *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if len(g.apiKeys) == 0 {
		return nil, fmt.Errorf("%w: no API keys configured", ErrProvider)
	}

	var lastErr error

	for keyIndex, apiKey := range g.apiKeys {
		log.Printf("🔑 [Gemini] Trying API key #%d/%d", keyIndex+1, len(g.apiKeys))

		for attempt := 1; attempt <= maxRetriesPerKey; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
			}

			client, err := genai.NewClient(ctx, &genai.ClientConfig{
				APIKey:  apiKey,
				Backend: genai.BackendGeminiAPI,
			})
			if err != nil {
				log.Printf("⚠️  [Gemini] Failed to create client with key #%d: %v", keyIndex+1, err)
				lastErr = err
				break
			}

			result, err := client.Models.GenerateContent(ctx, g.model, contents, genConfig)
			if err == nil {
				log.Printf("✅ [Gemini] Success with API key #%d (attempt %d/%d)", keyIndex+1, attempt, maxRetriesPerKey)
				return result, nil
			}

			lastErr = err

			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
			}

			// 429 계열만 재시도, 나머지는 바로 프로바이더 에러
			if !isRateLimitError(err) {
				log.Printf("❌ [Gemini] Key #%d failed with non-retryable error: %v", keyIndex+1, err)
				return nil, fmt.Errorf("%w: %v", ErrProvider, err)
			}

			log.Printf("⚠️  [Gemini] Key #%d hit rate limit on attempt %d/%d", keyIndex+1, attempt, maxRetriesPerKey)
			if attempt < maxRetriesPerKey {
				time.Sleep(2 * time.Second)
			}
		}

		log.Printf("⚠️  [Gemini] Key #%d exhausted, trying next key...", keyIndex+1)
	}

	return nil, fmt.Errorf("%w: all %d API keys exhausted, last error: %v", ErrProvider, len(g.apiKeys), lastErr)
}

// extractImage - 응답에서 이미지 추출, 세이프티 차단은 별도 분류
func extractImage(resp *genai.GenerateContentResponse) (*Image, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", ErrProvider)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked (%s)", ErrSafetyFiltered, resp.PromptFeedback.BlockReason)
	}

	for _, candidate := range resp.Candidates {
		if isSafetyFinish(candidate.FinishReason) {
			return nil, fmt.Errorf("%w: candidate blocked (%s)", ErrSafetyFiltered, candidate.FinishReason)
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}
				return &Image{MIMEType: mimeType, Data: part.InlineData.Data}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: response contained no image data", ErrProvider)
}

func isSafetyFinish(reason genai.FinishReason) bool {
	switch reason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonImageSafety:
		return true
	default:
		return false
	}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(strings.ToLower(errStr), "rate limit") ||
		strings.Contains(strings.ToLower(errStr), "quota")
}

func floatPtr(f float32) *float32 {
	return &f
}
