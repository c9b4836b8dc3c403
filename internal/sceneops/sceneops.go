// Package sceneops holds the scene selection and ordering strategies the
// editor applies through OptimizeScenes and ResequenceScenes.
package sceneops

import (
	"errors"
	"fmt"
	"sort"

	"wrapreel/internal/blueprint"
)

var ErrUnknownStrategy = errors.New("unknown scene strategy")

// KeepFirst keeps the first n scenes.
func KeepFirst(n int) blueprint.SceneTransform {
	return blueprint.SceneTransformFunc(func(scenes []blueprint.Scene) []blueprint.Scene {
		switch {
		case n <= 0:
			return []blueprint.Scene{}
		case n >= len(scenes):
			return scenes
		}
		return scenes[:n]
	})
}

// DropShorterThan removes scenes whose trim window is below min seconds.
func DropShorterThan(min float64) blueprint.SceneTransform {
	return blueprint.SceneTransformFunc(func(scenes []blueprint.Scene) []blueprint.Scene {
		out := make([]blueprint.Scene, 0, len(scenes))
		for _, s := range scenes {
			if s.Duration() >= min {
				out = append(out, s)
			}
		}
		return out
	})
}

// CapLength shortens every scene longer than max seconds by moving its end.
func CapLength(max float64) blueprint.SceneTransform {
	return blueprint.SceneTransformFunc(func(scenes []blueprint.Scene) []blueprint.Scene {
		out := make([]blueprint.Scene, len(scenes))
		for i, s := range scenes {
			if max > 0 && s.Duration() > max {
				s.End = s.Start + max
			}
			out[i] = s
		}
		return out
	})
}

// Longest keeps the n longest scenes in their original order. Ties go to
// the earlier scene.
func Longest(n int) blueprint.SceneTransform {
	return blueprint.SceneTransformFunc(func(scenes []blueprint.Scene) []blueprint.Scene {
		if n >= len(scenes) {
			return scenes
		}
		if n <= 0 {
			return []blueprint.Scene{}
		}
		idx := make([]int, len(scenes))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return scenes[idx[a]].Duration() > scenes[idx[b]].Duration()
		})
		keep := append([]int(nil), idx[:n]...)
		sort.Ints(keep)
		out := make([]blueprint.Scene, 0, n)
		for _, i := range keep {
			out = append(out, scenes[i])
		}
		return out
	})
}

func Reverse() blueprint.SceneResequencer {
	return blueprint.SceneResequencerFunc(func(scenes []blueprint.Scene, _ float64) []blueprint.Scene {
		out := make([]blueprint.Scene, len(scenes))
		for i, s := range scenes {
			out[len(scenes)-1-i] = s
		}
		return out
	})
}

// Move relocates the scene at from to index to. Out of range indexes leave
// the order untouched.
func Move(from, to int) blueprint.SceneResequencer {
	return blueprint.SceneResequencerFunc(func(scenes []blueprint.Scene, _ float64) []blueprint.Scene {
		if from < 0 || from >= len(scenes) || to < 0 || to >= len(scenes) || from == to {
			return scenes
		}
		moved := scenes[from]
		out := make([]blueprint.Scene, 0, len(scenes))
		out = append(out, scenes[:from]...)
		out = append(out, scenes[from+1:]...)
		out = append(out[:to], append([]blueprint.Scene{moved}, out[to:]...)...)
		return out
	})
}

// FitDuration trims the tail of the timeline so it lasts at most target
// seconds, measured from the scenes rather than the total passed in. A
// non-positive target keeps every scene.
func FitDuration(target float64) blueprint.SceneResequencer {
	return blueprint.SceneResequencerFunc(func(scenes []blueprint.Scene, _ float64) []blueprint.Scene {
		if target <= 0 || blueprint.SumDurations(scenes) <= target {
			return scenes
		}
		out := make([]blueprint.Scene, 0, len(scenes))
		remaining := target
		for _, s := range scenes {
			if remaining <= 0 {
				break
			}
			if s.Duration() > remaining {
				s.End = s.Start + remaining
			}
			remaining -= s.Duration()
			out = append(out, s)
		}
		return out
	})
}

// Params are the arguments a named strategy may take.
type Params struct {
	N       int     `json:"n"`
	Seconds float64 `json:"seconds"`
	From    int     `json:"from"`
	To      int     `json:"to"`
}

func OptimizerByName(name string, p Params) (blueprint.SceneTransform, error) {
	switch name {
	case "keep_first":
		return KeepFirst(p.N), nil
	case "drop_shorter_than":
		return DropShorterThan(p.Seconds), nil
	case "cap_length":
		return CapLength(p.Seconds), nil
	case "longest":
		return Longest(p.N), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

func ResequencerByName(name string, p Params) (blueprint.SceneResequencer, error) {
	switch name {
	case "reverse":
		return Reverse(), nil
	case "move":
		return Move(p.From, p.To), nil
	case "fit_duration":
		return FitDuration(p.Seconds), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}
