package vertexai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"modashot-server/modules/common/config"
)

// NewClient - Vertex AI 클라이언트 생성
// 크레덴셜은 설정의 JSON 값 → 파일 경로 → ADC 순서로 해석한다
func NewClient(ctx context.Context, cfg *config.Config) (*genai.Client, error) {
	opts, err := credentialOptions(cfg)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, cfg.VertexAIProject, cfg.VertexAILocation, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	log.Printf("✅ [VertexAI] Client ready (project=%s, location=%s)", cfg.VertexAIProject, cfg.VertexAILocation)
	return client, nil
}

func credentialOptions(cfg *config.Config) ([]option.ClientOption, error) {
	if cfg.VertexAICredentialsJSON != "" {
		log.Println("🔐 [VertexAI] Using inline service account credentials")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.VertexAICredentialsJSON))}, nil
	}

	if cfg.VertexAICredentialsPath != "" {
		credsData, err := os.ReadFile(cfg.VertexAICredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		// 경로가 잘못 가리키는 파일을 일찍 거르기 위한 JSON 검증
		var creds map[string]interface{}
		if err := json.Unmarshal(credsData, &creds); err != nil {
			return nil, fmt.Errorf("invalid JSON credentials in %s: %w", cfg.VertexAICredentialsPath, err)
		}
		log.Printf("🔐 [VertexAI] Using credentials file: %s", cfg.VertexAICredentialsPath)
		return []option.ClientOption{option.WithCredentialsJSON(credsData)}, nil
	}

	log.Println("⚠️  [VertexAI] No explicit credentials, falling back to Application Default Credentials")
	return nil, nil
}
