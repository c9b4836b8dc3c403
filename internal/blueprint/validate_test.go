package blueprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		bp   *SceneBlueprint
		want Validation
	}{
		{
			name: "nil",
			bp:   nil,
			want: Validation{Valid: false, Errors: []string{"No blueprint created yet"}},
		},
		{
			name: "ready",
			bp: &SceneBlueprint{
				Format:      FormatReel,
				AspectRatio: Aspect1x1,
				Scenes:      []Scene{{ClipURL: "clip://a", Start: 0, End: 2}},
			},
			want: Validation{Valid: true, Errors: []string{}},
		},
		{
			name: "empty scenes and missing format both reported",
			bp:   &SceneBlueprint{AspectRatio: Aspect9x16},
			want: Validation{Valid: false, Errors: []string{"No scenes added", "Format not selected"}},
		},
		{
			name: "every defect in declaration order",
			bp: &SceneBlueprint{
				Format:      "carousel",
				AspectRatio: "4:5",
				Scenes: []Scene{
					{ClipURL: "clip://a", Start: 3, End: 3},
					{Start: 0, End: 1},
				},
			},
			want: Validation{Valid: false, Errors: []string{
				"Scene 1: end time must be after start time",
				"Scene 2: clip is missing",
				`Unknown format "carousel"`,
				`Unknown aspect ratio "4:5"`,
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.bp))
		})
	}
}

func TestValidateIsRepeatable(t *testing.T) {
	bp := &SceneBlueprint{Scenes: []Scene{{ClipURL: "x", Start: 5, End: 1}}}
	first := Validate(bp)
	second := Validate(bp)
	assert.Equal(t, first, second)
	assert.Equal(t, 5.0, bp.Scenes[0].Start)
}
