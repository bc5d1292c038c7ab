package vocabulary

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
	"gopkg.in/yaml.v3"
)

// File is the on-disk vocabulary overlay:
//
//	terms:
//	  tensión arterial: RestingBP
type File struct {
	Terms map[string]string `yaml:"terms" json:"terms"`
}

// Load merges the terms in path over the default vocabulary. An empty path
// yields the defaults. Field names in the file are matched case-insensitively.
func Load(path string) (*Map, error) {
	if path == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Default(), err
	}

	var file File
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	if len(file.Terms) == 0 {
		return nil, fmt.Errorf("vocabulary %s has no terms", path)
	}

	merged := Default().entries()
	for term, name := range file.Terms {
		field, ok := models.ParseField(name)
		if !ok {
			return nil, fmt.Errorf("vocabulary term %q: unknown field %q", term, name)
		}
		merged[Normalize(term)] = field
	}
	return New(merged)
}
