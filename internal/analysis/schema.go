package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ResultSchema is the JSON schema the model is asked to follow.
func ResultSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"title", "segments"},
		"properties": map[string]any{
			"title":    map[string]any{"type": "string"},
			"language": map[string]any{"type": "string"},
			"segments": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"type", "content"},
					"properties": map[string]any{
						"type": map[string]any{
							"type": "string",
							"enum": []any{
								string(SegmentText),
								string(SegmentFormula),
								string(SegmentChart),
								string(SegmentTable),
							},
						},
						"content":    map[string]any{"type": "string"},
						"confidence": map[string]any{"type": "number"},
					},
				},
			},
		},
	}
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(ResultSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("result.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("result.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// ValidateJSON checks data against ResultSchema. Mismatches wrap ErrSchema.
func ValidateJSON(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}
