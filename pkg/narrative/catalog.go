package narrative

import (
	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
	"github.com/synaptica-ai/cardio-extract/pkg/extraction"
	"github.com/synaptica-ai/cardio-extract/pkg/vocabulary"
)

// FieldInfo describes how a canonical field can be recognized.
type FieldInfo struct {
	Name    models.CanonicalField `json:"name"`
	Terms   []string              `json:"terms"`
	Pattern string                `json:"pattern,omitempty"`
}

func BuildCatalog(vocab *vocabulary.Map, rules map[models.CanonicalField]extraction.PatternRule) []FieldInfo {
	fields := models.AllFields()
	out := make([]FieldInfo, 0, len(fields))
	for _, field := range fields {
		info := FieldInfo{Name: field, Terms: vocab.Terms(field)}
		if info.Terms == nil {
			info.Terms = []string{}
		}
		if rule, ok := rules[field]; ok {
			info.Pattern = rule.Pattern
		}
		out = append(out, info)
	}
	return out
}
