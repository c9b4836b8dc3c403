package blueprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func threeScenes() SceneBlueprint {
	bp := New("bp-1")
	bp.Format = FormatReel
	bp.AspectRatio = Aspect9x16
	bp.TemplateID = "tpl-a"
	bp.OverlayPack = "street"
	bp.Scenes = []Scene{
		{ClipURL: "clip://a", Start: 0, End: 4, Text: "one"},
		{ClipURL: "clip://b", Start: 2, End: 5, Text: "two"},
		{ClipURL: "clip://c", Start: 1, End: 3, Text: "three"},
	}
	bp.TotalDuration = SumDurations(bp.Scenes)
	return bp
}

func TestNewEditorHasNoBlueprint(t *testing.T) {
	e := NewEditor()
	_, ok := e.Current()
	assert.False(t, ok)
	assert.Equal(t, Validation{Valid: false, Errors: []string{"No blueprint created yet"}}, e.Validation())
}

func TestNamedHelpersNoOpWithoutBlueprint(t *testing.T) {
	e := NewEditor()
	calls := 0
	e.OnChange(func(*SceneBlueprint, Validation) { calls++ })

	assert.False(t, e.SetFormat(FormatStory, Aspect1x1, "tpl"))
	assert.False(t, e.SetOverlayPack("impact", "Anton", TextStyleBold))
	assert.False(t, e.SetCaption("hi"))
	assert.False(t, e.SetSceneText([]string{"a"}))
	assert.False(t, e.OptimizeScenes(SceneTransformFunc(func(s []Scene) []Scene { return s })))
	assert.False(t, e.ResequenceScenes(SceneResequencerFunc(func(s []Scene, _ float64) []Scene { return s })))

	_, ok := e.Current()
	assert.False(t, ok)
	assert.Zero(t, calls)
}

func TestSetFormatChangesOnlyRenderContract(t *testing.T) {
	e := NewEditor()
	before := threeScenes()
	e.Replace(before)

	require.True(t, e.SetFormat(FormatShort, Aspect16x9, "tpl-b"))

	got, ok := e.Current()
	require.True(t, ok)
	want := before.Clone()
	want.Format = FormatShort
	want.AspectRatio = Aspect16x9
	want.TemplateID = "tpl-b"
	assert.Equal(t, want, got)
}

func TestSetOverlayPackBindsStyle(t *testing.T) {
	e := NewEditor()
	e.Replace(threeScenes())
	e.SetOverlayPack("luxury", "", TextStyleMinimal)

	got, _ := e.Current()
	assert.Equal(t, "luxury", got.OverlayPack)
	assert.Equal(t, "", got.Font)
	assert.Equal(t, TextStyleMinimal, got.TextStyle)
	assert.Equal(t, FormatReel, got.Format)
}

func TestSetSceneTextPartialOverlay(t *testing.T) {
	e := NewEditor()
	e.Replace(threeScenes())

	require.True(t, e.SetSceneText([]string{"A"}))

	got, _ := e.Current()
	assert.Equal(t, "A", got.Scenes[0].Text)
	assert.Equal(t, "two", got.Scenes[1].Text)
	assert.Equal(t, "three", got.Scenes[2].Text)
}

func TestSetSceneTextIgnoresExtraEntries(t *testing.T) {
	e := NewEditor()
	e.Replace(threeScenes())
	e.SetSceneText([]string{"x", "y", "z", "w"})

	got, _ := e.Current()
	require.Len(t, got.Scenes, 3)
	assert.Equal(t, "z", got.Scenes[2].Text)
}

func TestOptimizeScenesTouchesOnlyScenes(t *testing.T) {
	e := NewEditor()
	before := threeScenes()
	e.Replace(before)

	e.OptimizeScenes(SceneTransformFunc(func(s []Scene) []Scene { return s[:1] }))

	got, _ := e.Current()
	require.Len(t, got.Scenes, 1)
	assert.Equal(t, before.Format, got.Format)
	assert.Equal(t, before.OverlayPack, got.OverlayPack)
	assert.Equal(t, before.TotalDuration, got.TotalDuration)
}

func TestOptimizeScenesInstallsInvalidResult(t *testing.T) {
	e := NewEditor()
	e.Replace(threeScenes())

	e.OptimizeScenes(SceneTransformFunc(func([]Scene) []Scene { return nil }))

	got, ok := e.Current()
	require.True(t, ok)
	assert.Empty(t, got.Scenes)
	assert.NotNil(t, got.Scenes)
	v := e.Validation()
	assert.False(t, v.Valid)
	assert.Equal(t, []string{"No scenes added"}, v.Errors)
}

func TestResequenceScenesRecomputesTotal(t *testing.T) {
	e := NewEditor()
	e.Replace(threeScenes())

	var seenTotal float64
	e.ResequenceScenes(SceneResequencerFunc(func(s []Scene, total float64) []Scene {
		seenTotal = total
		return []Scene{s[2], s[0]}
	}))

	got, _ := e.Current()
	assert.Equal(t, 9.0, seenTotal)
	assert.Equal(t, "clip://c", got.Scenes[0].ClipURL)
	assert.Equal(t, 6.0, got.TotalDuration)
}

func TestMutatorCannotAliasLiveState(t *testing.T) {
	e := NewEditor()
	e.Replace(threeScenes())

	var leaked []Scene
	e.Update(func(bp SceneBlueprint) SceneBlueprint {
		leaked = bp.Scenes
		return bp
	})
	leaked[0].Text = "mutated later"

	got, _ := e.Current()
	assert.Equal(t, "one", got.Scenes[0].Text)
}

func TestReplayIsDeterministic(t *testing.T) {
	run := func() SceneBlueprint {
		e := NewEditor()
		e.Replace(threeScenes())
		e.SetFormat(FormatStory, Aspect1x1, "tpl-c")
		e.SetSceneText([]string{"A", "B"})
		e.SetCaption("Full wrap in matte black")
		got, _ := e.Current()
		return got
	}
	assert.Equal(t, run(), run())
}

func TestValidationTracksEveryWrite(t *testing.T) {
	e := NewEditor()
	var seen []Validation
	e.OnChange(func(bp *SceneBlueprint, v Validation) { seen = append(seen, v) })

	bp := threeScenes()
	bp.Format = ""
	e.Replace(bp)
	assert.False(t, e.Validation().Valid)

	e.SetFormat(FormatReel, Aspect9x16, "tpl")
	assert.True(t, e.Validation().Valid)

	e.Clear()
	assert.Equal(t, []string{"Blueprint cleared"}, e.Validation().Errors)
	_, ok := e.Current()
	assert.False(t, ok)

	require.Len(t, seen, 3)
	assert.False(t, seen[0].Valid)
	assert.True(t, seen[1].Valid)
	assert.False(t, seen[2].Valid)
}

func TestReplaceAfterClear(t *testing.T) {
	e := NewEditor()
	e.Replace(threeScenes())
	e.Clear()
	assert.False(t, e.SetCaption("ignored"))

	e.Replace(threeScenes())
	got, ok := e.Current()
	require.True(t, ok)
	assert.Equal(t, "", got.Caption)
	assert.True(t, e.Validation().Valid)
}

func TestObserversGetIndependentCopies(t *testing.T) {
	e := NewEditor()
	e.OnChange(func(bp *SceneBlueprint, _ Validation) {
		bp.Caption = "hijacked"
		bp.Scenes[0].Text = "hijacked"
	})
	var second SceneBlueprint
	e.OnChange(func(bp *SceneBlueprint, _ Validation) { second = *bp })

	e.Replace(threeScenes())

	assert.Empty(t, second.Caption)
	assert.Equal(t, "one", second.Scenes[0].Text)
	got, _ := e.Current()
	assert.Equal(t, "one", got.Scenes[0].Text)
}
