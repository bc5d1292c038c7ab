package extraction

import (
	"context"
	"sync/atomic"

	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
)

const sampleNarrative = `
Se presenta paciente masculino de 62 años con historial de tabaquismo y
colesterol elevado (250 mg/dl). Refiere dolor torácico opresivo que comenzó
durante el esfuerzo físico intenso. La presión arterial registrada en reposo
es de 145 mmHg. La glucosa en ayunas fue de 160 mg/dl.
`

type fakeRecognizer struct {
	entities []Entity
	err      error
	panicMsg string
	calls    atomic.Int32
}

func (f *fakeRecognizer) Recognize(ctx context.Context, text string) ([]Entity, error) {
	f.calls.Add(1)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.entities, f.err
}

type fakeCompleter struct {
	response   string
	err        error
	lastPrompt string
	calls      atomic.Int32
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	f.lastPrompt = prompt
	return f.response, f.err
}

// staticStrategy returns a fixed result, for engine tests.
type staticStrategy struct {
	name   models.Strategy
	result models.ExtractionResult
}

func (s staticStrategy) Name() models.Strategy { return s.name }

func (s staticStrategy) Extract(ctx context.Context, text string) models.ExtractionResult {
	return s.result
}

func value(v, unit string, confidence float64) models.ExtractedValue {
	out, err := models.NewValue(v, unit, confidence)
	if err != nil {
		panic(err)
	}
	return out
}
