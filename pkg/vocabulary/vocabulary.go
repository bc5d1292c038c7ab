// Package vocabulary maps clinical source terms onto canonical fields.
package vocabulary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Map is an immutable many-to-one lookup from normalized source terms to
// canonical fields. It is safe for concurrent use.
type Map struct {
	terms map[string]models.CanonicalField
}

// New builds a Map. Every target must be a known canonical field.
func New(entries map[string]models.CanonicalField) (*Map, error) {
	terms := make(map[string]models.CanonicalField, len(entries))
	for term, field := range entries {
		if !field.Valid() {
			return nil, fmt.Errorf("term %q maps to unknown field %q", term, field)
		}
		key := Normalize(term)
		if key == "" {
			return nil, fmt.Errorf("empty vocabulary term for field %s", field)
		}
		if existing, ok := terms[key]; ok && existing != field {
			return nil, fmt.Errorf("term %q maps to both %s and %s", term, existing, field)
		}
		terms[key] = field
	}
	return &Map{terms: terms}, nil
}

// Default returns the built-in Spanish vocabulary.
func Default() *Map {
	m, err := New(defaultTerms)
	if err != nil {
		panic(fmt.Sprintf("vocabulary: invalid default table: %v", err))
	}
	return m
}

// Normalize folds case and composes accents so "Años", "AÑOS" and a
// decomposed "años" share one key.
func Normalize(term string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(term)))
}

// Resolve maps a source term or a label already spelled as a canonical field
// name (exact or case-insensitive) to its field.
func (m *Map) Resolve(term string) (models.CanonicalField, bool) {
	if m != nil {
		if field, ok := m.terms[Normalize(term)]; ok {
			return field, true
		}
	}
	return models.ParseField(term)
}

// Terms lists the normalized source terms registered for field, sorted.
func (m *Map) Terms(field models.CanonicalField) []string {
	if m == nil {
		return nil
	}
	var out []string
	for term, target := range m.terms {
		if target == field {
			out = append(out, term)
		}
	}
	sort.Strings(out)
	return out
}

// Missing reports canonical fields that no source term maps to.
func (m *Map) Missing() []models.CanonicalField {
	covered := make(map[models.CanonicalField]bool)
	if m != nil {
		for _, field := range m.terms {
			covered[field] = true
		}
	}
	var missing []models.CanonicalField
	for _, field := range models.AllFields() {
		if !covered[field] {
			missing = append(missing, field)
		}
	}
	return missing
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.terms)
}

// entries returns a copy of the table for merging.
func (m *Map) entries() map[string]models.CanonicalField {
	out := make(map[string]models.CanonicalField, m.Len())
	if m == nil {
		return out
	}
	for term, field := range m.terms {
		out[term] = field
	}
	return out
}

var defaultTerms = map[string]models.CanonicalField{
	"edad":                       models.FieldAge,
	"años":                       models.FieldAge,
	"sexo":                       models.FieldSex,
	"género":                     models.FieldSex,
	"dolor_pecho":                models.FieldChestPainType,
	"dolor torácico":             models.FieldChestPainType,
	"presión_arterial":           models.FieldRestingBP,
	"presión arterial":           models.FieldRestingBP,
	"tensión":                    models.FieldRestingBP,
	"colesterol":                 models.FieldCholesterol,
	"azúcar en sangre en ayunas": models.FieldFastingBS,
	"glucosa":                    models.FieldFastingBS,
	"ecg":                        models.FieldRestingECG,
	"frecuencia máxima":          models.FieldMaxHR,
	"frecuencia cardíaca":        models.FieldMaxHR,
	"frecuencia en reposo":       models.FieldRestingHR,
	"pulso en reposo":            models.FieldRestingHR,
	"angina por ejercicio":       models.FieldExerciseAngina,
	"depresión st":               models.FieldOldpeak,
	"pendiente st":               models.FieldSTSlope,
	"enfermedad cardíaca":        models.FieldHeartDisease,
}
