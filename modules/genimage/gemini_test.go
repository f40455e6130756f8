package genimage

import (
	"errors"
	"testing"

	"google.golang.org/genai"
)

func TestExtractImage(t *testing.T) {
	t.Run("inline data returned", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{
					Parts: []*genai.Part{{
						InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}},
					}},
				},
			}},
		}

		img, err := extractImage(resp)
		if err != nil {
			t.Fatalf("extractImage failed: %v", err)
		}
		if img.MIMEType != "image/png" || len(img.Data) != 3 {
			t.Errorf("unexpected image: %+v", img)
		}
	})

	t.Run("safety finish maps to ErrSafetyFiltered", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				FinishReason: genai.FinishReasonSafety,
			}},
		}

		_, err := extractImage(resp)
		if !errors.Is(err, ErrSafetyFiltered) {
			t.Fatalf("expected ErrSafetyFiltered, got %v", err)
		}
	})

	t.Run("blocked prompt maps to ErrSafetyFiltered", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
				BlockReason: genai.BlockedReasonSafety,
			},
		}

		_, err := extractImage(resp)
		if !errors.Is(err, ErrSafetyFiltered) {
			t.Fatalf("expected ErrSafetyFiltered, got %v", err)
		}
	})

	t.Run("no image data maps to ErrProvider", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: "no image"}}},
			}},
		}

		_, err := extractImage(resp)
		if !errors.Is(err, ErrProvider) {
			t.Fatalf("expected ErrProvider, got %v", err)
		}
	})
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("googleapi: Error 429: Resource exhausted"), true},
		{errors.New("RATE LIMIT exceeded"), true},
		{errors.New("quota exceeded for project"), true},
		{errors.New("googleapi: Error 500: internal"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := isRateLimitError(tt.err); got != tt.want {
			t.Errorf("isRateLimitError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
