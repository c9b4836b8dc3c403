package blueprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReadFile loads a blueprint document. YAML is used for .yaml/.yml files,
// JSON otherwise.
func ReadFile(path string) (SceneBlueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SceneBlueprint{}, err
	}
	bp, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return SceneBlueprint{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return bp, nil
}

// Decode parses a document and recomputes total_duration from its scenes.
func Decode(data []byte, ext string) (SceneBlueprint, error) {
	var bp SceneBlueprint
	if isYAML(ext) {
		if err := yaml.Unmarshal(data, &bp); err != nil {
			return SceneBlueprint{}, err
		}
	} else if err := json.Unmarshal(data, &bp); err != nil {
		return SceneBlueprint{}, err
	}
	if bp.Scenes == nil {
		bp.Scenes = []Scene{}
	}
	bp.TotalDuration = SumDurations(bp.Scenes)
	return bp, nil
}

func WriteFile(path string, bp SceneBlueprint) error {
	var (
		data []byte
		err  error
	)
	if isYAML(filepath.Ext(path)) {
		data, err = yaml.Marshal(bp)
	} else {
		data, err = json.MarshalIndent(bp, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isYAML(ext string) bool {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
