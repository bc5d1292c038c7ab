package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
)

// PatternConfidence is assigned to every syntactic match.
const PatternConfidence = 1.0

type compiledPattern struct {
	rule     PatternRule
	field    models.CanonicalField
	re       *regexp.Regexp
	valueIdx int
	unitIdx  int
}

// PatternExtractor matches one regular expression per field. It holds only
// compiled patterns and is safe for concurrent use.
type PatternExtractor struct {
	patterns []compiledPattern
}

func NewPatternExtractor(cfg PatternsConfig) (*PatternExtractor, error) {
	var compiled []compiledPattern
	seen := make(map[models.CanonicalField]string)
	for _, rule := range cfg.Patterns {
		if !rule.Enabled {
			continue
		}
		field, ok := models.ParseField(rule.Field)
		if !ok {
			return nil, fmt.Errorf("pattern %q: unknown field %q", rule.Name, rule.Field)
		}
		if prev, dup := seen[field]; dup {
			return nil, fmt.Errorf("pattern %q: field %s already registered by %q", rule.Name, field, prev)
		}
		expr := rule.Pattern
		if !strings.HasPrefix(expr, "(?i)") {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", rule.Name, err)
		}
		valueIdx, unitIdx := re.SubexpIndex("value"), re.SubexpIndex("unit")
		if valueIdx < 0 || unitIdx < 0 {
			return nil, fmt.Errorf("pattern %q: named groups value and unit are required", rule.Name)
		}
		seen[field] = rule.Name
		compiled = append(compiled, compiledPattern{
			rule:     rule,
			field:    field,
			re:       re,
			valueIdx: valueIdx,
			unitIdx:  unitIdx,
		})
	}
	return &PatternExtractor{patterns: compiled}, nil
}

func (p *PatternExtractor) Name() models.Strategy {
	return models.StrategyPattern
}

// Extract tries each pattern once against text and keeps the leftmost match.
func (p *PatternExtractor) Extract(ctx context.Context, text string) models.ExtractionResult {
	return contain(ctx, p.Name(), text, func() (models.ExtractionResult, error) {
		return p.match(text), nil
	})
}

func (p *PatternExtractor) match(text string) models.ExtractionResult {
	results := make(models.ExtractionResult)
	if p == nil {
		return results
	}
	for _, pattern := range p.patterns {
		m := pattern.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value, err := models.NewValue(m[pattern.valueIdx], m[pattern.unitIdx], PatternConfidence)
		if err != nil {
			continue
		}
		results[pattern.field] = value
	}
	return results
}

// Rules lists the enabled rules keyed by field.
func (p *PatternExtractor) Rules() map[models.CanonicalField]PatternRule {
	out := make(map[models.CanonicalField]PatternRule)
	if p == nil {
		return out
	}
	for _, pattern := range p.patterns {
		out[pattern.field] = pattern.rule
	}
	return out
}
