package genimage

import (
	"context"
	"errors"
)

// Request - 이미지 생성 요청 (프로바이더 중립)
type Request struct {
	Prompt          string
	NegativePrompt  string
	ReferenceImages [][]byte // 제품 레퍼런스 (grid로 병합되어 전달됨)
	AspectRatio     string   // "1:1", "3:4", "4:3", "9:16", "16:9"
	Resolution      string   // "1K" | "2K"
}

// Image - 생성 결과
type Image struct {
	MIMEType string
	Data     []byte
}

// 어댑터 에러 분류 - 오케스트레이터는 이 세 가지로만 구분한다
var (
	ErrTimeout        = errors.New("generation timed out")
	ErrSafetyFiltered = errors.New("generation blocked by safety filter")
	ErrProvider       = errors.New("provider error")
)

// Generator - 외부 이미지 생성 어댑터 계약
// 구현체가 무엇이든 (Gemini API, Vertex AI) 오케스트레이터는 이 인터페이스만 본다
type Generator interface {
	Generate(ctx context.Context, req Request) (*Image, error)
}
