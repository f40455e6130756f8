package promptsynth

import (
	"strings"
	"testing"

	"modashot-server/modules/common/model"
)

func TestHumanNegativeIsSupersetOfShared(t *testing.T) {
	neg := humanNegative("adult")

	if !strings.HasPrefix(neg, sharedNegativeBase) {
		t.Error("human negative must start with the shared base")
	}
	if !strings.Contains(neg, "nudity") {
		t.Error("human negative must block nudity")
	}
	if !strings.Contains(neg, "child") {
		t.Error("adult shots must exclude children")
	}

	kidNeg := humanNegative("kid")
	if !strings.Contains(kidNeg, "adult man") {
		t.Error("kid shots must exclude adults")
	}
	if strings.Contains(kidNeg, "toddler") {
		t.Error("kid shots must not exclude the kid subject itself")
	}
}

func TestProductNegativeSuedeBias(t *testing.T) {
	tests := []struct {
		name     string
		material string
		color    string
		want     bool
	}{
		{"black suede gets the bias block", "suede leather", "jet black", true},
		{"nubuck gets the bias block", "nubuck", "navy blue", true},
		{"beige suede is exempt", "suede", "light beige", false},
		{"tan nubuck is exempt", "nubuck", "tan brown", false},
		{"cotton never gets it", "cotton twill", "jet black", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product := &model.Product{Material: tt.material, Color: tt.color, Analyzed: true}
			neg := productNegative(product)

			got := strings.Contains(neg, "beige color shift")
			if got != tt.want {
				t.Errorf("suede bias present=%v, want %v", got, tt.want)
			}
		})
	}
}

func TestProductNegativeSquareGeometry(t *testing.T) {
	square := "square"
	round := "round"

	product := &model.Product{Material: "canvas", AccessoryShape: &square, Analyzed: true}
	if neg := productNegative(product); !strings.Contains(neg, "circular silhouette") {
		t.Error("square accessories must block circular renderings")
	}

	product.AccessoryShape = &round
	if neg := productNegative(product); strings.Contains(neg, "circular silhouette") {
		t.Error("round accessories must not block circular renderings")
	}

	product.AccessoryShape = nil
	if neg := productNegative(product); strings.Contains(neg, "circular silhouette") {
		t.Error("products without a shape must not get the geometry guard")
	}
}

func TestProductShotsNeverBlockHumans(t *testing.T) {
	// flat/detail 샷의 네거티브에 사람 배제 외 노출 차단 항목이 섞이면 안 됨
	product := &model.Product{Material: "cotton", Color: "white", Analyzed: true}
	neg := productNegative(product)

	if strings.Contains(neg, "nudity") {
		t.Error("product-only negatives must not carry the human clauses")
	}
}
