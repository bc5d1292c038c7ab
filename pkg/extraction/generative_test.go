package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
)

func newGenerative(t *testing.T, c Completer) *GenerativeExtractor {
	t.Helper()
	g, err := NewGenerativeExtractor(c)
	if err != nil {
		t.Fatalf("failed to build generative extractor: %v", err)
	}
	return g
}

func TestGenerativeExtractorParsesScalarsAndObjects(t *testing.T) {
	c := &fakeCompleter{response: `{
		"Age": 62,
		"Sex": "M",
		"Cholesterol": {"value": "250", "unit": "mg/dl"},
		"RestingBP": {"value": 145, "unit": null},
		"Oldpeak": 1.5,
		"ExerciseAngina": true,
		"Smoker": "yes",
		"MaxHR": null
	}`}
	res := newGenerative(t, c).Extract(context.Background(), sampleNarrative)

	check := func(field models.CanonicalField, wantValue, wantUnit string) {
		t.Helper()
		got, ok := res[field]
		if !ok {
			t.Fatalf("expected %s in result %v", field, res)
		}
		if got.Value != wantValue || got.UnitString() != wantUnit || got.Confidence != GenerativeConfidence {
			t.Fatalf("%s: got %+v unit=%q", field, got, got.UnitString())
		}
	}
	check(models.FieldAge, "62", "")
	check(models.FieldSex, "M", "")
	check(models.FieldCholesterol, "250", "mg/dl")
	check(models.FieldRestingBP, "145", "")
	check(models.FieldOldpeak, "1.5", "")
	check(models.FieldExerciseAngina, "true", "")

	if _, ok := res[models.FieldMaxHR]; ok {
		t.Fatal("null value must be treated as no opinion")
	}
	if len(res) != 6 {
		t.Fatalf("unexpected extra fields: %v", res)
	}
	if c.calls.Load() != 1 {
		t.Fatalf("expected a single completion call, got %d", c.calls.Load())
	}
}

func TestGenerativeExtractorPromptListsAllFields(t *testing.T) {
	c := &fakeCompleter{response: `{}`}
	newGenerative(t, c).Extract(context.Background(), "Paciente de 50 años")
	for _, field := range models.AllFields() {
		if !strings.Contains(c.lastPrompt, string(field)) {
			t.Fatalf("prompt does not mention %s", field)
		}
	}
	if !strings.Contains(c.lastPrompt, "Paciente de 50 años") {
		t.Fatal("prompt must embed the narrative")
	}
}

func TestGenerativeExtractorDegradesToEmpty(t *testing.T) {
	cases := map[string]Completer{
		"nil completer":   nil,
		"call failure":    &fakeCompleter{err: errors.New("connection reset")},
		"empty response":  &fakeCompleter{response: "   "},
		"not json":        &fakeCompleter{response: "No encontré valores."},
		"wrapped json":    &fakeCompleter{response: "```json\n{\"Age\": 62}\n```"},
		"trailing text":   &fakeCompleter{response: `{"Age": 62} espero que ayude`},
		"array":           &fakeCompleter{response: `[{"Age": 62}]`},
		"array value":     &fakeCompleter{response: `{"Age": [62, 63]}`},
		"object no value": &fakeCompleter{response: `{"Age": {"unit": "años"}}`},
		"numeric unit":    &fakeCompleter{response: `{"RestingBP": {"value": "145", "unit": 5}}`},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			res := newGenerative(t, c).Extract(context.Background(), sampleNarrative)
			if res == nil || len(res) != 0 {
				t.Fatalf("expected empty result, got %v", res)
			}
		})
	}
}

func TestParseResponseErrors(t *testing.T) {
	_, err := ParseResponse(`{"Age": [1]}`)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}

	_, err = ParseResponse(`not json`)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestDecodePayloadTypedError(t *testing.T) {
	_, err := decodePayload(models.FieldCholesterol, map[string]any{"value": []any{250}})
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if decodeErr.Field != models.FieldCholesterol {
		t.Fatalf("unexpected field %s", decodeErr.Field)
	}
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatal("DecodeError must unwrap to ErrMalformedResponse")
	}

	_, err = decodePayload(models.FieldRestingBP, map[string]any{"unit": "mmHg"})
	if !errors.As(err, &decodeErr) || decodeErr.Field != models.FieldRestingBP {
		t.Fatalf("expected *DecodeError for object without value, got %v", err)
	}
}

func TestParseResponseMatchesFieldNamesExactly(t *testing.T) {
	res, err := ParseResponse(`{"age": "70", "AGE": "71", "cholesterol": {"value": [250]}, "Age": "62"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 1 || res[models.FieldAge].Value != "62" {
		t.Fatalf("expected only the exact Age key, got %v", res)
	}

	res, err = ParseResponse(`{"sex": "M"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 0 {
		t.Fatalf("case variant must be ignored, got %v", res)
	}
}

func TestParseResponseIgnoresUnknownFields(t *testing.T) {
	res, err := ParseResponse(`{"BloodType": {"weird": [1,2]}, "Sex": "F"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 1 || res[models.FieldSex].Value != "F" {
		t.Fatalf("unexpected result %v", res)
	}
}
