package extraction

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type PatternRule struct {
	Name    string `yaml:"name" json:"name"`
	Field   string `yaml:"field" json:"field"`
	Pattern string `yaml:"pattern" json:"pattern"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

type PatternsConfig struct {
	Patterns []PatternRule `yaml:"patterns" json:"patterns"`
}

func LoadPatterns(path string) (PatternsConfig, error) {
	if path == "" {
		return DefaultPatterns(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultPatterns(), err
	}

	var cfg PatternsConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return PatternsConfig{}, fmt.Errorf("parse patterns %s: %w", path, err)
	}

	if len(cfg.Patterns) == 0 {
		return PatternsConfig{}, errors.New("no extraction patterns configured")
	}

	return cfg, nil
}

// DefaultPatterns is the unit-anchored table used when no file is configured.
func DefaultPatterns() PatternsConfig {
	return PatternsConfig{Patterns: []PatternRule{
		{Name: "resting-bp", Field: "RestingBP", Pattern: `(?P<value>\d+)\s*(?P<unit>mm[Hh]g|cmHg)`, Enabled: true},
		{Name: "cholesterol", Field: "Cholesterol", Pattern: `(?P<value>\d+)\s*(?P<unit>mm/dl|mg/dl)`, Enabled: true},
		{Name: "max-hr", Field: "MaxHR", Pattern: `(?P<value>\d+)\s*(?P<unit>bpm|lpm)`, Enabled: true},
		{Name: "fasting-bs", Field: "FastingBS", Pattern: `(?P<value>\d+)\s*(?P<unit>mg/dl)`, Enabled: true},
		{Name: "oldpeak", Field: "Oldpeak", Pattern: `(?P<value>\d+\.?\d*)\s*(?P<unit>mm|mv)`, Enabled: true},
		{Name: "age", Field: "Age", Pattern: `(?P<value>\d+)\s*(?P<unit>años|year)`, Enabled: true},
	}}
}
