package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
)

// GenerativeConfidence is assigned to every value the model returns.
const GenerativeConfidence = 0.9

// Completer is the generative-text collaborator. Implementations should
// sample deterministically (temperature 0).
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type GenerativeExtractor struct {
	completer Completer
}

// NewGenerativeExtractor fails only if the response schema cannot be
// compiled. A nil completer is allowed and yields empty results.
func NewGenerativeExtractor(completer Completer) (*GenerativeExtractor, error) {
	if _, err := responseSchema(); err != nil {
		return nil, err
	}
	return &GenerativeExtractor{completer: completer}, nil
}

func (g *GenerativeExtractor) Name() models.Strategy {
	return models.StrategyGenerative
}

func (g *GenerativeExtractor) Extract(ctx context.Context, text string) models.ExtractionResult {
	return contain(ctx, g.Name(), text, func() (models.ExtractionResult, error) {
		return g.extract(ctx, text)
	})
}

func (g *GenerativeExtractor) extract(ctx context.Context, text string) (models.ExtractionResult, error) {
	if g == nil || g.completer == nil {
		return nil, ErrStrategyUnavailable
	}
	raw, err := g.completer.Complete(ctx, BuildPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("generative completion: %w", err)
	}
	return ParseResponse(raw)
}

// ParseResponse decodes a model answer in two steps: the document must be a
// single JSON object matching the response schema, then every recognized
// field is decoded into a scalar or a value-with-unit payload.
func ParseResponse(raw string) (models.ExtractionResult, error) {
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, err
	}

	schema, err := responseSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is %T, want object", ErrMalformedResponse, doc)
	}

	results := make(models.ExtractionResult)
	for _, key := range sortedKeys(obj) {
		field := models.CanonicalField(key)
		if !field.Valid() {
			continue
		}
		payload, err := decodePayload(field, obj[key])
		if err != nil {
			return nil, err
		}
		if value, ok := payload.extracted(); ok {
			results[field] = value
		}
	}
	return results, nil
}

func decodeDocument(raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	var trailing any
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing content after JSON object", ErrMalformedResponse)
	}
	return doc, nil
}

// sortedKeys fixes the decode order so the first error reported is stable.
// Keys must match a canonical field name exactly; case variants are ignored.
func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

type fieldPayload interface {
	extracted() (models.ExtractedValue, bool)
}

type scalarPayload struct {
	text string
}

func (p scalarPayload) extracted() (models.ExtractedValue, bool) {
	v, err := models.NewValue(p.text, "", GenerativeConfidence)
	return v, err == nil
}

type unitPayload struct {
	text string
	unit string
}

func (p unitPayload) extracted() (models.ExtractedValue, bool) {
	v, err := models.NewValue(p.text, p.unit, GenerativeConfidence)
	return v, err == nil
}

func decodePayload(field models.CanonicalField, raw any) (fieldPayload, error) {
	if obj, ok := raw.(map[string]any); ok {
		inner, present := obj["value"]
		if !present {
			return nil, &DecodeError{Field: field, Reason: "object without value"}
		}
		text, err := scalarText(field, inner)
		if err != nil {
			return nil, err
		}
		var unit string
		switch u := obj["unit"].(type) {
		case nil:
		case string:
			unit = strings.TrimSpace(u)
		default:
			return nil, &DecodeError{Field: field, Reason: fmt.Sprintf("unit is %T, want string", u)}
		}
		return unitPayload{text: text, unit: unit}, nil
	}
	text, err := scalarText(field, raw)
	if err != nil {
		return nil, err
	}
	return scalarPayload{text: text}, nil
}

// scalarText renders a JSON scalar as text; null becomes "".
func scalarText(field models.CanonicalField, raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", &DecodeError{Field: field, Reason: fmt.Sprintf("value is %T, want scalar", raw)}
	}
}
