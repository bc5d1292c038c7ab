package extraction

import (
	"context"
	"strings"

	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
	"github.com/synaptica-ai/cardio-extract/pkg/vocabulary"
)

// Entity is one grouped NER span: adjacent tokens sharing a label are
// already merged by the recognizer.
type Entity struct {
	Label string
	Text  string
	Score float64
}

// Recognizer is the NER collaborator.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

// EntityExtractor turns recognizer output into per-field candidates,
// keeping only the highest scoring entity for each field.
type EntityExtractor struct {
	recognizer Recognizer
	vocab      *vocabulary.Map
}

func NewEntityExtractor(recognizer Recognizer, vocab *vocabulary.Map) *EntityExtractor {
	if vocab == nil {
		vocab = vocabulary.Default()
	}
	return &EntityExtractor{recognizer: recognizer, vocab: vocab}
}

func (e *EntityExtractor) Name() models.Strategy {
	return models.StrategyEntity
}

func (e *EntityExtractor) Extract(ctx context.Context, text string) models.ExtractionResult {
	return contain(ctx, e.Name(), text, func() (models.ExtractionResult, error) {
		return e.extract(ctx, text)
	})
}

func (e *EntityExtractor) extract(ctx context.Context, text string) (models.ExtractionResult, error) {
	if e == nil || e.recognizer == nil {
		return nil, ErrStrategyUnavailable
	}
	entities, err := e.recognizer.Recognize(ctx, text)
	if err != nil {
		return nil, err
	}
	return e.reduce(entities), nil
}

func (e *EntityExtractor) reduce(entities []Entity) models.ExtractionResult {
	results := make(models.ExtractionResult)
	for _, entity := range entities {
		field, ok := e.vocab.Resolve(entity.Label)
		if !ok {
			continue
		}
		value, err := models.NewValue(strings.TrimSpace(entity.Text), "", entity.Score)
		if err != nil {
			continue
		}
		// strictly greater: the first of equally scored entities stays
		if current, exists := results[field]; exists && current.Confidence >= value.Confidence {
			continue
		}
		results[field] = value
	}
	return results
}
