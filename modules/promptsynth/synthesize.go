package promptsynth

import (
	"fmt"
	"strings"

	"modashot-server/modules/common/fallback"
	"modashot-server/modules/common/model"
)

// 품질 접미사 2단계 - 항상 프롬프트 맨 끝에 붙는다 (잘려도 안 잘리는 위치)
const (
	qualitySuffixHigh     = "\n\nUltra-detailed professional e-commerce photography, 8K fidelity, tack-sharp focus, true-to-life fabric texture and color accuracy."
	qualitySuffixStandard = "\n\nProfessional e-commerce product photography, sharp focus, natural color rendering."
)

// Synthesize - 제품/씬/옵션으로 고정 카탈로그 6샷의 프롬프트 세트 생성
// 순수 함수: 같은 입력이면 항상 같은 결과. 실패 케이스는 미분석 제품 하나뿐.
func Synthesize(product *model.Product, scene *model.Scene, opts model.ShotOptions) (*Result, error) {
	if product == nil || !product.Analyzed {
		return nil, ErrProductNotAnalyzed
	}

	opts = fallback.NormalizeShotOptions(opts)

	isBottom := IsBottomGarment(product.Category)
	footwear := ResolveFootwear(product, scene)
	identity := identityBlock(product)
	guards := hallucinationGuards(product)
	suffix := qualitySuffixStandard
	if opts.HighFidelity {
		suffix = qualitySuffixHigh
	}

	shots := make([]ShotSpec, 0, len(ShotCatalog))
	for index, kind := range ShotCatalog {
		human := kind == ShotDuo || kind == ShotSolo

		var prompt string
		if human {
			prompt = buildHumanShotPrompt(kind, product, scene, opts, isBottom, footwear)
		} else {
			prompt = buildProductShotPrompt(kind, product, scene)
		}

		// 아이덴티티 블록과 할루시네이션 가드는 모든 샷에 들어간다
		prompt += identity + guards + CameraForShot(kind, scene) + suffix

		var negative string
		if human {
			negative = humanNegative(opts.SubjectType)
		} else {
			negative = productNegative(product)
		}

		shots = append(shots, ShotSpec{
			Kind:           kind,
			Label:          ShotLabel(kind),
			Index:          index,
			Prompt:         prompt,
			NegativePrompt: negative,
			HumanShot:      human,
		})
	}

	return &Result{
		Shots:          shots,
		SharedNegative: SharedNegative(),
	}, nil
}

// buildHumanShotPrompt - 착용 샷 (duo, solo)
func buildHumanShotPrompt(kind string, product *model.Product, scene *model.Scene, opts model.ShotOptions, isBottom bool, footwear string) string {
	subject := "adult fashion model"
	if opts.SubjectType == "kid" {
		subject = "child fashion model"
	}

	var main string
	if kind == ShotDuo {
		main = "[DUO EDITORIAL SHOT]\n" +
			fmt.Sprintf("Two %ss standing together in a natural, relaxed editorial pose.\n", subject) +
			"Both models wear the referenced product - one seen from the front, one from the back,\n" +
			"so a single photograph shows the complete garment.\n" +
			"Natural interaction between the two, no physical contact beyond standing side by side.\n\n"
	} else {
		main = "[SOLO EDITORIAL SHOT]\n" +
			fmt.Sprintf("ONE %s, alone in the frame. This is strictly a single-person photograph.\n", subject) +
			"The model wears the referenced product and faces the camera in a confident editorial stance.\n\n"
	}

	// 워드로브 - 하의 제품이면 상의는 플레인으로 고정하고 씬의 하의 스타일링은 무시
	wardrobe := "[WARDROBE]\n"
	if isBottom {
		wardrobe += "• The model wears the referenced product as the bottoms\n" +
			"• Paired with a plain, fitted, untucked white top - fully opaque, modest coverage, nothing revealing\n"
	} else {
		wardrobe += "• The model wears the referenced product as the main garment\n"
		if bottomStyle := strings.TrimSpace(scene.ModelBottomStyle); bottomStyle != "" {
			wardrobe += "• Bottoms: " + bottomStyle + "\n"
		}
	}

	if kind == ShotSolo {
		wardrobe += "• Footwear: " + SoloSafe(footwear) + "\n"
	} else {
		wardrobe += "• Footwear: " + footwear + "\n"
	}
	wardrobe += "\n"

	return main + wardrobe + sceneBlock(scene)
}

// buildProductShotPrompt - 제품 단독 샷 (flat, detail)
func buildProductShotPrompt(kind string, product *model.Product, scene *model.Scene) string {
	side := "front"
	if kind == ShotFlatBack || kind == ShotDetailBack {
		side = "back"
	}

	var main string
	switch kind {
	case ShotFlatFront, ShotFlatBack:
		main = "[FLAT LAY PRODUCT SHOT]\n" +
			fmt.Sprintf("The referenced product photographed alone, laid perfectly flat, showing the %s side.\n", side) +
			"⚠️ CRITICAL: NO people, models, hands, or mannequins - the product only.\n" +
			"The garment is neatly arranged with natural fabric drape, centered in frame.\n\n"
	default:
		main = "[DETAIL MACRO SHOT]\n" +
			fmt.Sprintf("Extreme close-up of the referenced product's %s side.\n", side) +
			"⚠️ CRITICAL: NO people, models, hands, or mannequins - the product only.\n" +
			"Focus on the most distinctive construction details: stitching, hardware, texture.\n\n"
	}

	return main + sceneBlock(scene)
}

// sceneBlock - 씬 프리셋을 환경 묘사로 변환
func sceneBlock(scene *model.Scene) string {
	background := fallback.SafeString(scene.Background, "clean seamless studio backdrop")
	floor := fallback.SafeString(scene.Floor, "smooth neutral surface")
	mood := fallback.SafeString(scene.Mood, "calm and premium")

	block := "[SCENE]\n" +
		"• Background: " + background + "\n" +
		"• Surface: " + floor + "\n"

	if props := strings.TrimSpace(scene.Props); props != "" {
		block += "• Props: " + props + " (subtle, never covering the product)\n"
	}

	block += "• Mood: " + mood + "\n\n"
	return block
}

// identityBlock - 제품 고유 디테일 고정 블록 (모든 샷 공통)
// 분석 단계에서 추출된 디테일을 그대로 박아서 샷 간 제품 일관성을 유지한다
func identityBlock(product *model.Product) string {
	block := "[PRODUCT IDENTITY - REPRODUCE EXACTLY]\n" +
		fmt.Sprintf("• Category: %s\n", product.Category) +
		fmt.Sprintf("• Color: %s\n", fallback.SafeString(product.Color, "as shown in the reference images")) +
		fmt.Sprintf("• Material: %s\n", fallback.SafeString(product.Material, "as shown in the reference images"))

	if product.PocketShape != nil && *product.PocketShape != "" {
		line := "• Pockets: " + *product.PocketShape
		if product.PocketMaterial != nil && *product.PocketMaterial != "" {
			line += ", " + *product.PocketMaterial
		}
		if product.PocketPattern != nil && *product.PocketPattern != "" {
			line += ", " + *product.PocketPattern
		}
		block += line + "\n"
	}

	if product.BackPatchShape != nil && *product.BackPatchShape != "" {
		line := "• Back patch: " + *product.BackPatchShape
		if product.BackPatchColor != nil && *product.BackPatchColor != "" {
			line += " in " + *product.BackPatchColor
		}
		block += line + "\n"
	}

	if product.SeamDetail != nil && *product.SeamDetail != "" {
		block += "• Seams: " + *product.SeamDetail + "\n"
	}

	block += "• Every detail above must match the reference images - do not restyle, recolor, or simplify\n\n"
	return block
}

// hallucinationGuards - 제품이 실제로 가진 요소만 언급한다
// 없는 디테일을 프롬프트에 쓰면 모델이 만들어내기 때문에, 가드 자체를 조건부로 넣는다
func hallucinationGuards(product *model.Product) string {
	var guards []string

	if product.HasLogo {
		detail := "the brand logo exactly as it appears in the reference images"
		if product.LogoDetail != nil && *product.LogoDetail != "" {
			detail = *product.LogoDetail
		}
		guards = append(guards, "• Logo: reproduce "+detail+" at its exact position and size - never invent additional logos")
	}

	if HasZipperClosure(product.Closure) {
		guards = append(guards, "• Zipper: the closure is a zipper - render the zipper teeth, pull tab, and placket exactly as referenced")
	}

	if len(guards) == 0 {
		return ""
	}

	return "[FIDELITY GUARDS]\n" + strings.Join(guards, "\n") + "\n\n"
}
