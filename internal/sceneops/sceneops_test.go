package sceneops

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wrapreel/internal/blueprint"
)

func scenes(durations ...float64) []blueprint.Scene {
	out := make([]blueprint.Scene, len(durations))
	for i, d := range durations {
		out[i] = blueprint.Scene{ClipURL: string(rune('a' + i)), Start: 1, End: 1 + d}
	}
	return out
}

func clips(s []blueprint.Scene) string {
	out := ""
	for _, sc := range s {
		out += sc.ClipURL
	}
	return out
}

func TestOptimizers(t *testing.T) {
	in := scenes(3, 1, 5, 2)
	assert.Equal(t, "ab", clips(KeepFirst(2).Transform(in)))
	assert.Equal(t, "abcd", clips(KeepFirst(10).Transform(in)))
	assert.Empty(t, KeepFirst(0).Transform(in))
	assert.Equal(t, "acd", clips(DropShorterThan(2).Transform(in)))
	assert.Equal(t, "ac", clips(Longest(2).Transform(in)))

	capped := CapLength(2).Transform(in)
	assert.Equal(t, []float64{2, 1, 2, 2}, []float64{capped[0].Duration(), capped[1].Duration(), capped[2].Duration(), capped[3].Duration()})
	assert.Equal(t, 4.0, in[0].End, "input must not be modified")
}

func TestResequencers(t *testing.T) {
	in := scenes(1, 2, 3)
	assert.Equal(t, "cba", clips(Reverse().Resequence(in, 6)))
	assert.Equal(t, "bca", clips(Move(0, 2).Resequence(in, 6)))
	assert.Equal(t, "cab", clips(Move(2, 0).Resequence(in, 6)))
	assert.Equal(t, "abc", clips(Move(5, 0).Resequence(in, 6)))
	assert.Equal(t, "abc", clips(in))

	fit := FitDuration(2.5).Resequence(in, 6)
	require.Len(t, fit, 2)
	assert.Equal(t, 2.5, blueprint.SumDurations(fit))
	assert.Equal(t, 6.0, blueprint.SumDurations(FitDuration(10).Resequence(in, 6)))

	stale := FitDuration(2.5).Resequence(in, 0)
	assert.Equal(t, 2.5, blueprint.SumDurations(stale), "a zero total must not skip trimming")
}

func TestResequenceThroughEditor(t *testing.T) {
	e := blueprint.NewEditor()
	bp := blueprint.New("bp")
	bp.Scenes = scenes(4, 4, 4)
	bp.TotalDuration = 12
	e.Replace(bp)

	e.ResequenceScenes(FitDuration(6))
	got, _ := e.Current()
	assert.Equal(t, 6.0, got.TotalDuration)
	assert.Len(t, got.Scenes, 2)
}

func TestByName(t *testing.T) {
	opt, err := OptimizerByName("keep_first", Params{N: 1})
	require.NoError(t, err)
	assert.Len(t, opt.Transform(scenes(1, 1)), 1)

	_, err = OptimizerByName("magic", Params{})
	assert.True(t, errors.Is(err, ErrUnknownStrategy))

	r, err := ResequencerByName("reverse", Params{})
	require.NoError(t, err)
	assert.Equal(t, "ba", clips(r.Resequence(scenes(1, 1), 2)))

	_, err = ResequencerByName("shuffle", Params{})
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
}
