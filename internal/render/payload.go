package render

// Payload is the renderer job description. Field names follow the remote
// renderer's JSON contract.
type Payload struct {
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	FrameRate int       `json:"frame_rate"`
	Duration  float64   `json:"duration"`
	Elements  []Element `json:"elements"`
	Metadata  Metadata  `json:"metadata"`
}

// Element is one of VideoElement, TextElement or AudioElement.
type Element interface {
	ElementType() string
}

const (
	TypeVideo = "video"
	TypeText  = "text"
	TypeAudio = "audio"
)

type VideoElement struct {
	Type         string  `json:"type"`
	Source       string  `json:"source"`
	Time         float64 `json:"time"`
	Duration     float64 `json:"duration"`
	TrimStart    float64 `json:"trim_start"`
	TrimDuration float64 `json:"trim_duration"`
}

type TextElement struct {
	Type          string     `json:"type"`
	Text          string     `json:"text"`
	Time          float64    `json:"time"`
	Duration      float64    `json:"duration"`
	X             string     `json:"x"`
	Y             string     `json:"y"`
	Width         string     `json:"width"`
	XAlignment    string     `json:"x_alignment"`
	YAlignment    string     `json:"y_alignment"`
	FontFamily    string     `json:"font_family"`
	FontWeight    string     `json:"font_weight"`
	FontSize      string     `json:"font_size"`
	FillColor     string     `json:"fill_color"`
	StrokeColor   string     `json:"stroke_color"`
	StrokeWidth   string     `json:"stroke_width"`
	TextTransform string     `json:"text_transform"`
	Enter         Transition `json:"enter"`
	Exit          Transition `json:"exit"`
}

type AudioElement struct {
	Type         string  `json:"type"`
	Source       string  `json:"source"`
	Time         float64 `json:"time"`
	Duration     float64 `json:"duration"`
	AudioFadeOut float64 `json:"audio_fade_out"`
	Volume       string  `json:"volume"`
}

func (VideoElement) ElementType() string { return TypeVideo }
func (TextElement) ElementType() string  { return TypeText }
func (AudioElement) ElementType() string { return TypeAudio }

// Transition is an enter or exit animation of a text element.
type Transition struct {
	Type       string  `json:"type"`
	Duration   float64 `json:"duration"`
	Easing     string  `json:"easing,omitempty"`
	Direction  string  `json:"direction,omitempty"`
	StartScale string  `json:"start_scale,omitempty"`
}

// Metadata is carried for traceability only; the renderer ignores it.
type Metadata struct {
	BlueprintID string `json:"blueprint_id"`
	Brand       string `json:"brand,omitempty"`
	Caption     string `json:"caption,omitempty"`
	Format      string `json:"format,omitempty"`
	OverlayPack string `json:"overlay_pack,omitempty"`
}
