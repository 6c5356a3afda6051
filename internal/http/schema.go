package http

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Request schemas only check shape. Amounts stay loosely typed: a malformed
// income or expense value is normalized downstream, never rejected here.
var (
	chatSchema = map[string]any{
		"type":     "object",
		"required": []any{"message"},
		"properties": map[string]any{
			"message": map[string]any{"type": "string", "minLength": 1, "maxLength": 4000},
		},
	}

	budgetSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expenses": map[string]any{
				"type":          []any{"object", "null"},
				"maxProperties": 100,
			},
		},
	}

	insightsSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expenses": map[string]any{
				"type":          []any{"object", "null"},
				"maxProperties": 100,
			},
			"goals": map[string]any{
				"type":     []any{"array", "null"},
				"maxItems": 20,
				"items":    map[string]any{"type": "string", "maxLength": 500},
			},
		},
	}

	nluSchema = map[string]any{
		"type":     "object",
		"required": []any{"text"},
		"properties": map[string]any{
			"text": map[string]any{"type": "string", "maxLength": 4000},
		},
	}
)

// validateData checks a decoded JSON document against schema and joins the
// violations into one message.
func validateData(schema map[string]any, data any) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("invalid request: %s", strings.Join(errs, "; "))
	}
	return nil
}
