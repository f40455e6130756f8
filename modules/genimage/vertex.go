package genimage

import (
	"context"
	"fmt"
	"log"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"modashot-server/modules/common/config"
	"modashot-server/modules/common/utils"
	"modashot-server/modules/common/vertexai"
)

// VertexGenerator - Vertex AI 백엔드 Generator 구현
// API 키 없이 서비스 계정 크레덴셜로 동작하는 배포 환경용
type VertexGenerator struct {
	client *genai.Client
	model  string
}

func NewVertexGenerator(ctx context.Context, cfg *config.Config) (*VertexGenerator, error) {
	client, err := vertexai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &VertexGenerator{
		client: client,
		model:  cfg.GeminiModel,
	}, nil
}

// Generate - Generator 계약 구현 (Gemini API 구현과 동일한 에러 분류)
func (v *VertexGenerator) Generate(ctx context.Context, req Request) (*Image, error) {
	model := v.client.GenerativeModel(v.model)
	model.SetTemperature(0.45)

	var parts []genai.Part

	if len(req.ReferenceImages) > 0 {
		merged, err := utils.MergeReferenceImages(req.ReferenceImages, req.AspectRatio)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to merge reference images: %v", ErrProvider, err)
		}
		parts = append(parts, genai.ImageData("png", merged))
	}

	promptText := req.Prompt
	if req.NegativePrompt != "" {
		promptText += "\n\n[STRICTLY AVOID]\n" + req.NegativePrompt
	}
	// Vertex 쪽은 aspect ratio 파라미터가 없어서 프롬프트로 지정
	promptText += fmt.Sprintf("\n\nOutput aspect ratio: %s.", req.AspectRatio)
	if strings.EqualFold(req.Resolution, "2K") {
		promptText += " Render at the highest available output resolution."
	}
	parts = append(parts, genai.Text(promptText))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	return extractVertexImage(resp)
}

func extractVertexImage(resp *genai.GenerateContentResponse) (*Image, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", ErrProvider)
	}

	for _, candidate := range resp.Candidates {
		if candidate.FinishReason == genai.FinishReasonSafety {
			return nil, fmt.Errorf("%w: candidate blocked (SAFETY)", ErrSafetyFiltered)
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
				mimeType := blob.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}
				log.Printf("✅ [VertexAI] Image generated: %d bytes (%s)", len(blob.Data), mimeType)
				return &Image{MIMEType: mimeType, Data: blob.Data}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: response contained no image data", ErrProvider)
}
