package blueprint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
id: wrap-42
format: reel
aspect_ratio: "9:16"
overlay_pack: impact
text_style: bold
total_duration: 99
scenes:
  - clip_url: https://cdn.example/raw/hood.mp4
    start: 1.5
    end: 4
    text: Satin black hood
    text_position: top
    animation: pop
  - clip_url: https://cdn.example/raw/door.mp4
    start: 0
    end: 2
end_card:
  text: Book your wrap
  duration: 2
`

func TestDecodeYAMLRecomputesTotal(t *testing.T) {
	bp, err := Decode([]byte(sampleYAML), ".yaml")
	require.NoError(t, err)

	assert.Equal(t, "wrap-42", bp.ID)
	assert.Equal(t, Aspect9x16, bp.AspectRatio)
	require.Len(t, bp.Scenes, 2)
	assert.Equal(t, PositionTop, bp.Scenes[0].TextPosition)
	assert.Equal(t, AnimationPop, bp.Scenes[0].Animation)
	assert.Equal(t, 4.5, bp.TotalDuration)
	require.NotNil(t, bp.EndCard)
	assert.Equal(t, 2.0, bp.EndCard.Duration)
}

func TestWriteThenReadFile(t *testing.T) {
	src, err := Decode([]byte(sampleYAML), ".yml")
	require.NoError(t, err)

	dir := t.TempDir()
	for _, name := range []string{"bp.yaml", "bp.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, src))
		got, err := ReadFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, src, got, name)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("{not json"), ".json")
	assert.Error(t, err)
}
