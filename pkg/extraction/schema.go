package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
)

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// BuildResponseSchema describes the generative answer: an object whose
// canonical keys carry a scalar or a {value, unit} object. Unknown keys are
// allowed and ignored later.
func BuildResponseSchema() map[string]any {
	scalar := map[string]any{"type": []string{"string", "number", "boolean", "null"}}
	withUnit := map[string]any{
		"type":     "object",
		"required": []string{"value"},
		"properties": map[string]any{
			"value": scalar,
			"unit":  map[string]any{"type": []string{"string", "null"}},
		},
	}
	props := make(map[string]any)
	for _, field := range models.AllFields() {
		props[string(field)] = map[string]any{"oneOf": []any{scalar, withUnit}}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": true,
	}
}

func responseSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		b, err := json.Marshal(BuildResponseSchema())
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("generative-response.json", bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("generative-response.json")
	})
	return compiledSchema, schemaErr
}
