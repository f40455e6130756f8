package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase
	SupabaseURL            string
	SupabaseServiceKey     string
	SupabaseStorageBaseURL string

	// Gemini API (콤마로 구분된 키 목록, 로테이션용)
	GeminiAPIKeys []string
	GeminiModel   string

	// Vertex AI (옵션 백엔드)
	UseVertexAI             bool
	VertexAIProject         string
	VertexAILocation        string
	VertexAICredentialsJSON string // 서비스 계정 JSON 값 자체 (배포 환경)
	VertexAICredentialsPath string // 서비스 계정 JSON 파일 경로 (로컬)

	// Server
	Port string

	// Generation
	ShotTimeoutSec int // 샷 하나당 타임아웃 (초)
	MaxJobRetries  int // 디스패치 전 실패의 잡 레벨 재시도 횟수
}

var globalConfig *Config

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	// Redis UseTLS 파싱
	useTLS := true // 기본값
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	useVertex := false
	if vStr := os.Getenv("USE_VERTEX_AI"); vStr != "" {
		if parsed, err := strconv.ParseBool(vStr); err == nil {
			useVertex = parsed
		}
	}

	globalConfig = &Config{
		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,

		// Supabase
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBaseURL: getEnv("SUPABASE_STORAGE_BASE_URL", ""),

		// Gemini API
		GeminiAPIKeys: splitKeys(getEnv("GEMINI_API_KEYS", os.Getenv("GEMINI_API_KEY"))),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),

		// Vertex AI
		UseVertexAI:             useVertex,
		VertexAIProject:         getEnv("VERTEXAI_PROJECT_ID", ""),
		VertexAILocation:        getEnv("VERTEXAI_LOCATION", "us-central1"),
		VertexAICredentialsJSON: getEnv("VERTEXAI_CREDENTIALS_JSON", ""),
		VertexAICredentialsPath: getEnv("VERTEXAI_CREDENTIALS_PATH", ""),

		// Server
		Port: getEnv("PORT", "8080"),

		// Generation
		ShotTimeoutSec: getEnvInt("SHOT_TIMEOUT_SEC", 180),
		MaxJobRetries:  getEnvInt("MAX_JOB_RETRIES", 2),
	}

	// 필수 환경변수 검증
	if err := globalConfig.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Redis: %s:%s (TLS: %v)", globalConfig.RedisHost, globalConfig.RedisPort, globalConfig.RedisUseTLS)
	log.Printf("   Supabase: %s", globalConfig.SupabaseURL)
	log.Printf("   Gemini: %s (%d keys)", globalConfig.GeminiModel, len(globalConfig.GeminiAPIKeys))
	log.Printf("   Shot timeout: %ds, job retries: %d", globalConfig.ShotTimeoutSec, globalConfig.MaxJobRetries)

	return globalConfig, nil
}

// GetConfig - 로드된 설정 가져오기
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if !c.UseVertexAI && len(c.GeminiAPIKeys) == 0 {
		return fmt.Errorf("GEMINI_API_KEYS is required")
	}
	if c.UseVertexAI && c.VertexAIProject == "" {
		return fmt.Errorf("VERTEXAI_PROJECT_ID is required when USE_VERTEX_AI=true")
	}
	return nil
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt - 정수 환경변수 (파싱 실패시 기본값)
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// splitKeys - 콤마 구분 API 키 목록 파싱
func splitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(k); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
