package promptsynth

import (
	"fmt"
	"strings"

	"modashot-server/modules/common/fallback"
	"modashot-server/modules/common/model"
)

// 샷 종류별 카메라 세팅 (고정 룩업)
var cameraTemplates = map[string]string{
	ShotDuo:         "Shot on a 35mm lens at f/8, eye-level, full-body framing with both subjects fully in frame",
	ShotSolo:        "Shot on a 50mm lens at f/5.6, eye-level, full-body framing from head to toe",
	ShotFlatFront:   "Shot on a 50mm lens at f/11, perfectly overhead top-down flat lay, garment laid flat and centered",
	ShotFlatBack:    "Shot on a 50mm lens at f/11, perfectly overhead top-down flat lay, garment laid flat and centered",
	ShotDetailFront: "Shot on a 100mm macro lens at f/4, extreme close-up revealing fabric weave and stitching",
	ShotDetailBack:  "Shot on a 100mm macro lens at f/4, extreme close-up revealing fabric weave and stitching",
}

const cameraGeneric = "Shot on a professional camera with studio-grade framing"

// CameraForShot - 샷 종류별 카메라/라이팅 블록 생성
func CameraForShot(kind string, scene *model.Scene) string {
	camera, ok := cameraTemplates[kind]
	if !ok {
		camera = cameraGeneric
	}

	style := fallback.SafeString(scene.LightingStyle, "soft diffused studio")
	direction := fallback.SafeString(scene.LightingDirection, "front-left")

	lighting := fmt.Sprintf("%s lighting from the %s, gentle shadows, no harsh highlights", style, direction)

	var b strings.Builder
	b.WriteString("[CAMERA & LIGHTING]\n")
	b.WriteString("• " + camera + "\n")
	b.WriteString("• " + lighting + "\n")
	return b.String()
}
