package blueprint

// Mutator derives the next blueprint from the current one. Mutators receive
// a private copy and must not depend on anything but their input.
type Mutator func(SceneBlueprint) SceneBlueprint

// SceneTransform rewrites the scene list, e.g. to keep the best takes.
type SceneTransform interface {
	Transform(scenes []Scene) []Scene
}

type SceneTransformFunc func(scenes []Scene) []Scene

func (f SceneTransformFunc) Transform(scenes []Scene) []Scene { return f(scenes) }

// SceneResequencer reorders or retimes scenes given the current total.
type SceneResequencer interface {
	Resequence(scenes []Scene, totalDuration float64) []Scene
}

type SceneResequencerFunc func(scenes []Scene, totalDuration float64) []Scene

func (f SceneResequencerFunc) Resequence(scenes []Scene, totalDuration float64) []Scene {
	return f(scenes, totalDuration)
}

// Editor is the single owner of the blueprint being edited. Every write goes
// through Update or Replace, and validation is recomputed before either
// returns. Editor is not safe for concurrent use.
type Editor struct {
	current    *SceneBlueprint
	validation Validation
	observers  []func(*SceneBlueprint, Validation)
}

func NewEditor() *Editor {
	return &Editor{validation: Validate(nil)}
}

// OnChange registers fn to observe every applied write. fn receives a copy.
func (e *Editor) OnChange(fn func(bp *SceneBlueprint, v Validation)) {
	e.observers = append(e.observers, fn)
}

// Current returns a copy of the live blueprint, if there is one.
func (e *Editor) Current() (SceneBlueprint, bool) {
	if e.current == nil {
		return SceneBlueprint{}, false
	}
	return e.current.Clone(), true
}

func (e *Editor) Validation() Validation {
	return Validation{Valid: e.validation.Valid, Errors: append([]string{}, e.validation.Errors...)}
}

// Update applies fn to the current blueprint. Without a blueprint it does
// nothing and reports false.
func (e *Editor) Update(fn Mutator) bool {
	if e.current == nil {
		return false
	}
	next := fn(e.current.Clone())
	if next.Scenes == nil {
		next.Scenes = []Scene{}
	}
	e.current = &next
	e.validation = Validate(e.current)
	e.notify()
	return true
}

// Replace installs bp wholesale, discarding any previous blueprint. It is
// meant for blueprints built from scratch, not for incremental edits.
func (e *Editor) Replace(bp SceneBlueprint) {
	next := bp.Clone()
	e.current = &next
	e.validation = Validate(e.current)
	e.notify()
}

func (e *Editor) Clear() {
	e.current = nil
	e.validation = invalid(msgCleared)
	e.notify()
}

// SetFormat locks the render contract: format, aspect ratio and template
// always change together.
func (e *Editor) SetFormat(format Format, aspect AspectRatio, templateID string) bool {
	return e.Update(func(bp SceneBlueprint) SceneBlueprint {
		bp.Format = format
		bp.AspectRatio = aspect
		bp.TemplateID = templateID
		return bp
	})
}

func (e *Editor) SetOverlayPack(pack, font string, style TextStyle) bool {
	return e.Update(func(bp SceneBlueprint) SceneBlueprint {
		bp.OverlayPack = pack
		bp.Font = font
		bp.TextStyle = style
		return bp
	})
}

func (e *Editor) SetCaption(caption string) bool {
	return e.Update(func(bp SceneBlueprint) SceneBlueprint {
		bp.Caption = caption
		return bp
	})
}

// SetSceneText assigns texts[i] to scene i. Scenes past the end of texts
// keep their text; texts past the last scene are ignored.
func (e *Editor) SetSceneText(texts []string) bool {
	return e.Update(func(bp SceneBlueprint) SceneBlueprint {
		for i := range bp.Scenes {
			if i >= len(texts) {
				break
			}
			bp.Scenes[i].Text = texts[i]
		}
		return bp
	})
}

// OptimizeScenes replaces the scene list with t's output. Nothing outside
// the scene list changes, total_duration included.
func (e *Editor) OptimizeScenes(t SceneTransform) bool {
	return e.Update(func(bp SceneBlueprint) SceneBlueprint {
		bp.Scenes = t.Transform(bp.Scenes)
		return bp
	})
}

// ResequenceScenes is the only edit that recomputes total_duration.
func (e *Editor) ResequenceScenes(r SceneResequencer) bool {
	return e.Update(func(bp SceneBlueprint) SceneBlueprint {
		bp.Scenes = r.Resequence(bp.Scenes, bp.TotalDuration)
		bp.TotalDuration = SumDurations(bp.Scenes)
		return bp
	})
}

// notify hands each observer its own copy.
func (e *Editor) notify() {
	for _, fn := range e.observers {
		var snap *SceneBlueprint
		if e.current != nil {
			c := e.current.Clone()
			snap = &c
		}
		fn(snap, e.Validation())
	}
}
