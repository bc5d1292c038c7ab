package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
)

func newTestEngine(t *testing.T, completer Completer, recognizer Recognizer, parallel bool) *Engine {
	t.Helper()
	engine, err := NewEngine(
		newGenerative(t, completer),
		newDefaultPatternExtractor(t),
		NewEntityExtractor(recognizer, nil),
		WithParallel(parallel),
	)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	return engine
}

func TestEngineScenarioRestingBP(t *testing.T) {
	engine := newTestEngine(t, nil, nil, false)
	report := engine.Extract(context.Background(), "La presión arterial registrada en reposo es de 145 mmHg.")

	got, ok := report.Fused[models.FieldRestingBP]
	if !ok {
		t.Fatal("expected RestingBP in fused output")
	}
	if got.Value != "145" || got.UnitString() != "mmHg" || got.Confidence != 1.0 || got.Source != models.StrategyPattern {
		t.Fatalf("unexpected fused RestingBP %+v", got)
	}
}

func TestEngineFusesAllStrategies(t *testing.T) {
	completer := &fakeCompleter{response: `{"Cholesterol": "250", "Sex": "M", "ChestPainType": "ATA"}`}
	recognizer := &fakeRecognizer{entities: []Entity{
		{Label: "Sex", Text: "masculino", Score: 0.9},
		{Label: "ChestPainType", Text: "dolor torácico opresivo", Score: 0.95},
		{Label: "Age", Text: "62", Score: 0.7},
		{Label: "Age", Text: "62 años", Score: 0.95},
	}}

	for _, parallel := range []bool{false, true} {
		engine := newTestEngine(t, completer, recognizer, parallel)
		report := engine.Extract(context.Background(), sampleNarrative)

		if v := report.Fused[models.FieldCholesterol]; v.Source != models.StrategyPattern || v.UnitString() != "mg/dl" {
			t.Fatalf("parallel=%v: expected pattern cholesterol, got %+v", parallel, v)
		}
		if v := report.Fused[models.FieldSex]; v.Source != models.StrategyGenerative || v.Value != "M" {
			t.Fatalf("parallel=%v: expected generative Sex on tie, got %+v", parallel, v)
		}
		if v := report.Fused[models.FieldChestPainType]; v.Source != models.StrategyEntity {
			t.Fatalf("parallel=%v: expected entity ChestPainType, got %+v", parallel, v)
		}
		if v := report.Fused[models.FieldAge]; v.Source != models.StrategyPattern || v.Value != "62" {
			t.Fatalf("parallel=%v: expected pattern Age, got %+v", parallel, v)
		}
		if report.Results[models.StrategyEntity][models.FieldAge].Confidence != 0.95 {
			t.Fatal("entity strategy must keep its best Age candidate")
		}
		counts := report.Counts()
		if counts[models.StrategyGenerative] != 3 {
			t.Fatalf("unexpected counts %v", counts)
		}
	}
}

func TestEngineGenerativeFailureIsolation(t *testing.T) {
	recognizer := &fakeRecognizer{entities: []Entity{{Label: "Sex", Text: "masculino", Score: 0.8}}}

	healthy := newTestEngine(t, &fakeCompleter{response: `{}`}, recognizer, true)
	broken := newTestEngine(t, &fakeCompleter{err: errors.New("502 bad gateway")}, recognizer, true)
	garbled := newTestEngine(t, &fakeCompleter{response: `{"Age": 62`}, recognizer, true)

	base := healthy.Extract(context.Background(), sampleNarrative)
	for name, engine := range map[string]*Engine{"call failure": broken, "malformed": garbled} {
		report := engine.Extract(context.Background(), sampleNarrative)
		if len(report.Results[models.StrategyGenerative]) != 0 {
			t.Fatalf("%s: generative result must be empty", name)
		}
		if len(report.Results[models.StrategyPattern]) != len(base.Results[models.StrategyPattern]) {
			t.Fatalf("%s: pattern result changed", name)
		}
		if len(report.Fused) != len(base.Fused) {
			t.Fatalf("%s: fused fields changed: %v vs %v", name, report.Fused, base.Fused)
		}
		if report.Fused[models.FieldSex].Source != models.StrategyEntity {
			t.Fatalf("%s: entity-only field must still surface", name)
		}
	}
}

func TestEngineScenarioTie(t *testing.T) {
	engine, err := NewEngine(
		staticStrategy{name: models.StrategyGenerative, result: models.ExtractionResult{models.FieldRestingECG: value("Normal", "", 0.9)}},
		staticStrategy{name: models.StrategyPattern},
		staticStrategy{name: models.StrategyEntity, result: models.ExtractionResult{models.FieldRestingECG: value("ST", "", 0.9)}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := engine.Extract(context.Background(), "ecg").Fused[models.FieldRestingECG]
	if got.Source != models.StrategyGenerative || got.Value != "Normal" {
		t.Fatalf("expected generative candidate on tie, got %+v", got)
	}
}

func TestNewEngineRejectsMisconfiguredSlots(t *testing.T) {
	gen := staticStrategy{name: models.StrategyGenerative}
	pat := staticStrategy{name: models.StrategyPattern}
	ent := staticStrategy{name: models.StrategyEntity}

	if _, err := NewEngine(gen, nil, ent); err == nil {
		t.Fatal("expected error for missing strategy")
	}
	if _, err := NewEngine(pat, gen, ent); err == nil {
		t.Fatal("expected error for swapped strategies")
	}
}

func TestEngineReportsDegradedStrategies(t *testing.T) {
	recognizer := &fakeRecognizer{err: errors.New("ner timeout")}
	engine := newTestEngine(t, &fakeCompleter{err: errors.New("502 bad gateway")}, recognizer, true)

	report := engine.Extract(context.Background(), sampleNarrative)
	want := []models.Strategy{models.StrategyGenerative, models.StrategyEntity}
	if len(report.Degraded) != 2 || report.Degraded[0] != want[0] || report.Degraded[1] != want[1] {
		t.Fatalf("expected degraded %v, got %v", want, report.Degraded)
	}
	if report.Complete() {
		t.Fatal("report with failed strategies must not be complete")
	}
}

func TestEngineUnconfiguredStrategiesAreNotDegraded(t *testing.T) {
	engine := newTestEngine(t, nil, nil, false)

	report := engine.Extract(context.Background(), sampleNarrative)
	if !report.Complete() || len(report.Degraded) != 0 {
		t.Fatalf("unconfigured strategies must not count as degraded, got %v", report.Degraded)
	}
}
