package task

import (
	"fmt"
	"math"

	"github.com/invopop/jsonschema"
)

// OutputSchema reflects a Go result type into the JSON Schema advertised to
// the agent. Phase results are declared as structs, so the schema and the
// decode target can never drift apart.
func OutputSchema(v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	return reflector.Reflect(v)
}

// ValidateOutput performs a structural check of an agent result against the
// descriptor's output schema: required fields must be present and declared
// property types must match. Extra fields are tolerated; agents frequently
// volunteer more than asked.
func ValidateOutput(schema *jsonschema.Schema, payload map[string]any) error {
	if schema == nil {
		return nil
	}
	for _, key := range schema.Required {
		if _, ok := payload[key]; !ok {
			return fmt.Errorf("task: output missing required field %q", key)
		}
	}
	if schema.Properties == nil {
		return nil
	}
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		value, present := payload[pair.Key]
		if !present || value == nil {
			continue
		}
		if err := checkValue(pair.Key, pair.Value, value); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(field string, schema *jsonschema.Schema, value any) error {
	if schema == nil || schema.Type == "" {
		return nil
	}
	switch schema.Type {
	case "string":
		if _, ok := value.(string); !ok {
			return typeError(field, "string", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return typeError(field, "boolean", value)
		}
	case "number":
		if !isNumber(value) {
			return typeError(field, "number", value)
		}
	case "integer":
		if !isInteger(value) {
			return typeError(field, "integer", value)
		}
	case "array":
		items, ok := value.([]any)
		if !ok {
			return typeError(field, "array", value)
		}
		if schema.Items != nil {
			for i, item := range items {
				if err := checkValue(fmt.Sprintf("%s[%d]", field, i), schema.Items, item); err != nil {
					return err
				}
			}
		}
	case "object":
		nested, ok := value.(map[string]any)
		if !ok {
			return typeError(field, "object", value)
		}
		if err := ValidateOutput(schema, nested); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	return nil
}

func typeError(field, expected string, value any) error {
	return fmt.Errorf("task: output field %q expected %s, got %T", field, expected, value)
}

func isNumber(value any) bool {
	switch value.(type) {
	case float64, float32, int, int32, int64:
		return true
	default:
		return false
	}
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int32, int64:
		return true
	case float64:
		return v == math.Trunc(v)
	default:
		return false
	}
}
