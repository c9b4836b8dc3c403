package blueprint

type Format string

const (
	FormatReel  Format = "reel"
	FormatStory Format = "story"
	FormatShort Format = "short"
)

type AspectRatio string

const (
	Aspect9x16 AspectRatio = "9:16"
	Aspect1x1  AspectRatio = "1:1"
	Aspect16x9 AspectRatio = "16:9"
)

type TextStyle string

const (
	TextStyleBold    TextStyle = "bold"
	TextStyleMinimal TextStyle = "minimal"
	TextStyleModern  TextStyle = "modern"
)

type TextPosition string

const (
	PositionTop    TextPosition = "top"
	PositionCenter TextPosition = "center"
	PositionBottom TextPosition = "bottom"
)

type Animation string

const (
	AnimationPop        Animation = "pop"
	AnimationSlide      Animation = "slide"
	AnimationFade       Animation = "fade"
	AnimationPunch      Animation = "punch"
	AnimationTypewriter Animation = "typewriter"
)

var (
	Formats       = []Format{FormatReel, FormatStory, FormatShort}
	AspectRatios  = []AspectRatio{Aspect9x16, Aspect1x1, Aspect16x9}
	TextStyles    = []TextStyle{TextStyleBold, TextStyleMinimal, TextStyleModern}
	TextPositions = []TextPosition{PositionTop, PositionCenter, PositionBottom}
	Animations    = []Animation{AnimationPop, AnimationSlide, AnimationFade, AnimationPunch, AnimationTypewriter}
)

func (f Format) Known() bool {
	switch f {
	case FormatReel, FormatStory, FormatShort:
		return true
	}
	return false
}

func (a AspectRatio) Known() bool {
	switch a {
	case Aspect9x16, Aspect1x1, Aspect16x9:
		return true
	}
	return false
}

// SceneBlueprint is the editable description of a short-form video edit.
// Scenes are kept in playback order.
type SceneBlueprint struct {
	ID            string      `json:"id" yaml:"id"`
	Format        Format      `json:"format,omitempty" yaml:"format,omitempty"`
	AspectRatio   AspectRatio `json:"aspect_ratio,omitempty" yaml:"aspect_ratio,omitempty"`
	TemplateID    string      `json:"template_id,omitempty" yaml:"template_id,omitempty"`
	OverlayPack   string      `json:"overlay_pack,omitempty" yaml:"overlay_pack,omitempty"`
	Font          string      `json:"font,omitempty" yaml:"font,omitempty"`
	TextStyle     TextStyle   `json:"text_style,omitempty" yaml:"text_style,omitempty"`
	Caption       string      `json:"caption,omitempty" yaml:"caption,omitempty"`
	Scenes        []Scene     `json:"scenes" yaml:"scenes"`
	EndCard       *EndCard    `json:"end_card,omitempty" yaml:"end_card,omitempty"`
	TotalDuration float64     `json:"total_duration" yaml:"total_duration"`
	Brand         string      `json:"brand,omitempty" yaml:"brand,omitempty"`
}

type Scene struct {
	ClipURL      string       `json:"clip_url" yaml:"clip_url"`
	Start        float64      `json:"start" yaml:"start"`
	End          float64      `json:"end" yaml:"end"`
	Text         string       `json:"text,omitempty" yaml:"text,omitempty"`
	TextPosition TextPosition `json:"text_position,omitempty" yaml:"text_position,omitempty"`
	Animation    Animation    `json:"animation,omitempty" yaml:"animation,omitempty"`
}

type EndCard struct {
	Text     string  `json:"text" yaml:"text"`
	Duration float64 `json:"duration" yaml:"duration"`
}

// Duration is the length of the trim window in seconds.
func (s Scene) Duration() float64 {
	return s.End - s.Start
}

func SumDurations(scenes []Scene) float64 {
	total := 0.0
	for _, s := range scenes {
		total += s.Duration()
	}
	return total
}

// New returns an empty blueprint with the given id.
func New(id string) SceneBlueprint {
	return SceneBlueprint{ID: id, Scenes: []Scene{}}
}

// Clone returns a deep copy; the scenes slice and end card are never shared.
func (b SceneBlueprint) Clone() SceneBlueprint {
	out := b
	out.Scenes = append([]Scene{}, b.Scenes...)
	if b.EndCard != nil {
		ec := *b.EndCard
		out.EndCard = &ec
	}
	return out
}
