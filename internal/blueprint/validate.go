package blueprint

import "fmt"

const (
	msgNotCreated = "No blueprint created yet"
	msgCleared    = "Blueprint cleared"
)

type Validation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate reports every structural problem with bp in a fixed order.
// A nil blueprint is never valid.
func Validate(bp *SceneBlueprint) Validation {
	if bp == nil {
		return invalid(msgNotCreated)
	}

	errs := []string{}
	if len(bp.Scenes) == 0 {
		errs = append(errs, "No scenes added")
	}
	for i, s := range bp.Scenes {
		if s.ClipURL == "" {
			errs = append(errs, fmt.Sprintf("Scene %d: clip is missing", i+1))
		}
		if s.End <= s.Start {
			errs = append(errs, fmt.Sprintf("Scene %d: end time must be after start time", i+1))
		}
	}
	switch {
	case bp.Format == "":
		errs = append(errs, "Format not selected")
	case !bp.Format.Known():
		errs = append(errs, fmt.Sprintf("Unknown format %q", bp.Format))
	}
	switch {
	case bp.AspectRatio == "":
		errs = append(errs, "Aspect ratio not selected")
	case !bp.AspectRatio.Known():
		errs = append(errs, fmt.Sprintf("Unknown aspect ratio %q", bp.AspectRatio))
	}

	return Validation{Valid: len(errs) == 0, Errors: errs}
}

func invalid(msg string) Validation {
	return Validation{Valid: false, Errors: []string{msg}}
}
