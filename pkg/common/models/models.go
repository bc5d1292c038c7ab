package models

import (
	"fmt"
	"strings"
	"time"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // document.text, extraction.completed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

const (
	EventDocumentText        = "document.text"
	EventExtractionCompleted = "extraction.completed"
)

// CanonicalField is one of the clinical attributes consumed by the cardiac
// risk model. The string value is the wire name.
type CanonicalField string

const (
	FieldAge            CanonicalField = "Age"
	FieldSex            CanonicalField = "Sex"
	FieldChestPainType  CanonicalField = "ChestPainType"
	FieldRestingBP      CanonicalField = "RestingBP"
	FieldCholesterol    CanonicalField = "Cholesterol"
	FieldFastingBS      CanonicalField = "FastingBS"
	FieldRestingECG     CanonicalField = "RestingECG"
	FieldMaxHR          CanonicalField = "MaxHR"
	FieldRestingHR      CanonicalField = "RestingHR"
	FieldExerciseAngina CanonicalField = "ExerciseAngina"
	FieldOldpeak        CanonicalField = "Oldpeak"
	FieldSTSlope        CanonicalField = "ST_Slope"
	FieldHeartDisease   CanonicalField = "HeartDisease"
)

var allFields = []CanonicalField{
	FieldAge,
	FieldSex,
	FieldChestPainType,
	FieldRestingBP,
	FieldCholesterol,
	FieldFastingBS,
	FieldRestingECG,
	FieldMaxHR,
	FieldRestingHR,
	FieldExerciseAngina,
	FieldOldpeak,
	FieldSTSlope,
	FieldHeartDisease,
}

// AllFields returns the canonical fields in wire order.
func AllFields() []CanonicalField {
	out := make([]CanonicalField, len(allFields))
	copy(out, allFields)
	return out
}

func (f CanonicalField) String() string {
	return string(f)
}

func (f CanonicalField) Valid() bool {
	for _, known := range allFields {
		if f == known {
			return true
		}
	}
	return false
}

// ParseField accepts the exact wire name or a case-insensitive match.
func ParseField(name string) (CanonicalField, bool) {
	name = strings.TrimSpace(name)
	for _, known := range allFields {
		if string(known) == name {
			return known, true
		}
	}
	for _, known := range allFields {
		if strings.EqualFold(string(known), name) {
			return known, true
		}
	}
	return "", false
}

// Strategy identifies the extraction approach that proposed a value.
type Strategy string

const (
	StrategyGenerative Strategy = "generative"
	StrategyPattern    Strategy = "pattern"
	StrategyEntity     Strategy = "entity"
)

// StrategyPriority is the fusion tie-break order, highest priority first.
var StrategyPriority = []Strategy{StrategyGenerative, StrategyPattern, StrategyEntity}

// Priority returns the index of s in StrategyPriority; lower wins ties.
func (s Strategy) Priority() int {
	for idx, candidate := range StrategyPriority {
		if candidate == s {
			return idx
		}
	}
	return len(StrategyPriority)
}

// ExtractedValue is a single candidate for a field. Treat it as immutable.
type ExtractedValue struct {
	Value      string  `json:"value"`
	Unit       *string `json:"unit"`
	Confidence float64 `json:"confidence"`
}

// NewValue builds an ExtractedValue; an empty unit means no unit.
func NewValue(value, unit string, confidence float64) (ExtractedValue, error) {
	if value == "" {
		return ExtractedValue{}, fmt.Errorf("extracted value must not be empty")
	}
	if !(confidence >= 0 && confidence <= 1) {
		return ExtractedValue{}, fmt.Errorf("confidence %v outside [0,1]", confidence)
	}
	v := ExtractedValue{Value: value, Confidence: confidence}
	if unit != "" {
		u := unit
		v.Unit = &u
	}
	return v, nil
}

// UnitString returns the unit or "" when absent.
func (v ExtractedValue) UnitString() string {
	if v.Unit == nil {
		return ""
	}
	return *v.Unit
}

// ExtractionResult holds at most one candidate per field for one strategy.
// A missing field means the strategy has no opinion.
type ExtractionResult map[CanonicalField]ExtractedValue

// FusedValue is the winning candidate for a field and the strategy it came from.
type FusedValue struct {
	ExtractedValue
	Source Strategy `json:"source"`
}

// FusedResult contains only fields proposed by at least one strategy.
type FusedResult map[CanonicalField]FusedValue

// Values drops provenance, leaving the field -> value map.
func (r FusedResult) Values() map[CanonicalField]ExtractedValue {
	out := make(map[CanonicalField]ExtractedValue, len(r))
	for field, fused := range r {
		out[field] = fused.ExtractedValue
	}
	return out
}

// Extraction service
type ExtractRequest struct {
	DocumentID string            `json:"document_id,omitempty"`
	Source     string            `json:"source"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type ExtractResponse struct {
	ID         string           `json:"id"`
	DocumentID string           `json:"document_id,omitempty"`
	Fields     FusedResult      `json:"fields"`
	Strategies map[Strategy]int `json:"strategies"`
	Cached     bool             `json:"cached"`
	Timestamp  time.Time        `json:"timestamp"`
}
