// Package render compiles scene blueprints into renderer payloads.
package render

import (
	"errors"
	"fmt"
	"strings"

	"wrapreel/internal/blueprint"
)

const (
	FrameRate   = 30
	DefaultFont = "Montserrat"

	audioFadeOut = 2.0
	audioVolume  = "80%"
)

var ErrNotReady = errors.New("blueprint not ready to render")

var overlayPackFonts = map[string]string{
	"impact":  "Anton",
	"street":  "Bebas Neue",
	"luxury":  "Playfair Display",
	"clean":   "Inter",
	"retro":   "Bungee",
	"minimal": "Montserrat",
}

// Fixed text styling; none of it comes from the blueprint.
const (
	textWidth     = "90%"
	textFontSize  = "8 vmin"
	textFill      = "#FFFFFF"
	textStroke    = "#000000"
	textStrokeW   = "1.6 vmin"
	textTransform = "uppercase"

	endCardFontSize = "11 vmin"
)

var textExit = Transition{Type: "fade", Duration: 0.25}

// Compile maps bp onto a renderer payload. It does not validate: a blueprint
// without scenes yields an empty zero-length timeline. An empty audioURL
// means no soundtrack. The result depends only on its arguments.
func Compile(bp blueprint.SceneBlueprint, audioURL string) Payload {
	width, height := dimensions(bp.AspectRatio)
	font := fontFamily(bp.Font, bp.OverlayPack)
	weight := fontWeight(bp.TextStyle)

	elements := make([]Element, 0, len(bp.Scenes)*2+2)
	cursor := 0.0
	for _, scene := range bp.Scenes {
		d := scene.Duration()
		elements = append(elements, VideoElement{
			Type:         TypeVideo,
			Source:       scene.ClipURL,
			Time:         cursor,
			Duration:     d,
			TrimStart:    scene.Start,
			TrimDuration: d,
		})
		if text := strings.TrimSpace(scene.Text); text != "" {
			x, y := position(scene.TextPosition)
			elements = append(elements, TextElement{
				Type:          TypeText,
				Text:          text,
				Time:          cursor,
				Duration:      d,
				X:             x,
				Y:             y,
				Width:         textWidth,
				XAlignment:    "50%",
				YAlignment:    "50%",
				FontFamily:    font,
				FontWeight:    weight,
				FontSize:      textFontSize,
				FillColor:     textFill,
				StrokeColor:   textStroke,
				StrokeWidth:   textStrokeW,
				TextTransform: textTransform,
				Enter:         entrance(scene.Animation),
				Exit:          textExit,
			})
		}
		cursor += d
	}

	// The stored total_duration is not trusted; the walk above is authoritative.
	total := cursor
	if bp.EndCard != nil {
		x, y := position(blueprint.PositionCenter)
		elements = append(elements, TextElement{
			Type:          TypeText,
			Text:          bp.EndCard.Text,
			Time:          total,
			Duration:      bp.EndCard.Duration,
			X:             x,
			Y:             y,
			Width:         textWidth,
			XAlignment:    "50%",
			YAlignment:    "50%",
			FontFamily:    font,
			FontWeight:    weight,
			FontSize:      endCardFontSize,
			FillColor:     textFill,
			StrokeColor:   textStroke,
			StrokeWidth:   textStrokeW,
			TextTransform: textTransform,
			Enter:         Transition{Type: "scale", Duration: 0.5, Easing: "back-out", StartScale: "0%"},
			Exit:          textExit,
		})
		total += bp.EndCard.Duration
	}

	if audioURL != "" {
		elements = append(elements, AudioElement{
			Type:         TypeAudio,
			Source:       audioURL,
			Time:         0,
			Duration:     total,
			AudioFadeOut: audioFadeOut,
			Volume:       audioVolume,
		})
	}

	return Payload{
		Width:     width,
		Height:    height,
		FrameRate: FrameRate,
		Duration:  total,
		Elements:  elements,
		Metadata: Metadata{
			BlueprintID: bp.ID,
			Brand:       bp.Brand,
			Caption:     bp.Caption,
			Format:      string(bp.Format),
			OverlayPack: bp.OverlayPack,
		},
	}
}

// CompileReady compiles bp only if it passes validation.
func CompileReady(bp blueprint.SceneBlueprint, audioURL string) (Payload, error) {
	if v := blueprint.Validate(&bp); !v.Valid {
		return Payload{}, fmt.Errorf("%w: %s", ErrNotReady, strings.Join(v.Errors, "; "))
	}
	return Compile(bp, audioURL), nil
}

func dimensions(aspect blueprint.AspectRatio) (int, int) {
	switch aspect {
	case blueprint.Aspect1x1:
		return 1080, 1080
	case blueprint.Aspect16x9:
		return 1920, 1080
	default:
		return 1080, 1920
	}
}

func fontFamily(font, overlayPack string) string {
	if font != "" {
		return font
	}
	if f, ok := overlayPackFonts[overlayPack]; ok {
		return f
	}
	return DefaultFont
}

func fontWeight(style blueprint.TextStyle) string {
	if style == blueprint.TextStyleBold {
		return "900"
	}
	return "700"
}

func position(p blueprint.TextPosition) (x, y string) {
	switch p {
	case blueprint.PositionTop:
		return "50%", "15%"
	case blueprint.PositionBottom:
		return "50%", "82%"
	default:
		return "50%", "50%"
	}
}

func entrance(a blueprint.Animation) Transition {
	switch a {
	case blueprint.AnimationPop:
		return Transition{Type: "scale", Duration: 0.3, Easing: "back-out", StartScale: "60%"}
	case blueprint.AnimationSlide:
		return Transition{Type: "slide", Duration: 0.4, Easing: "quadratic-out", Direction: "up"}
	case blueprint.AnimationPunch:
		return Transition{Type: "scale", Duration: 0.2, Easing: "elastic-out", StartScale: "140%"}
	case blueprint.AnimationTypewriter:
		return Transition{Type: "text-typewriter", Duration: 0.8}
	default:
		return Transition{Type: "fade", Duration: 0.3}
	}
}

// OverlayPacks lists the packs with a dedicated font, for editor pickers.
func OverlayPacks() map[string]string {
	out := make(map[string]string, len(overlayPackFonts))
	for k, v := range overlayPackFonts {
		out[k] = v
	}
	return out
}
