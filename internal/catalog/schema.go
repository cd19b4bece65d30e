package catalog

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a named JSON schema definition.
type Schema struct {
	Name       string
	Definition map[string]any
}

// QuestionsExportSchema describes the questions export container.
var QuestionsExportSchema = &Schema{
	Name: "questions-export",
	Definition: map[string]any{
		"type": "array",
	},
}

// TestsExportSchema describes the tests export container.
var TestsExportSchema = &Schema{
	Name: "tests-export",
	Definition: map[string]any{
		"type": "array",
	},
}

// QuestionRecordSchema describes one usable question record. Records that
// fail it are discarded before the semantic checks run.
var QuestionRecordSchema = &Schema{
	Name: "question-record",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{
				"type":    []any{"integer", "string"},
				"pattern": "^\\s*[0-9]+\\s*$",
			},
			"question": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"options": map[string]any{
				"type":     "array",
				"minItems": 2,
			},
			"correct": map[string]any{
				"type":    []any{"integer", "string"},
				"pattern": "^\\s*[0-9]+\\s*$",
			},
			"explain": map[string]any{},
			"image":   map[string]any{},
		},
		"required": []any{"id", "question", "options", "correct"},
	},
}

// DefinitionRecordSchema describes one tests-export entry.
var DefinitionRecordSchema = &Schema{
	Name: "definition-record",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": []any{"string", "null"}},
			"topic": map[string]any{"type": []any{"string", "null"}},
			"type":  map[string]any{"type": []any{"string", "null"}},
		},
	},
}

// schemaCache caches compiled schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// validateDocument validates raw JSON against schema.
func validateDocument(schema *Schema, raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return validateValue(schema, parsed)
}

func validateValue(schema *Schema, v any) error {
	compiled, err := compiledSchema(schema)
	if err != nil {
		return fmt.Errorf("compile schema %q: %w", schema.Name, err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// conforms reports whether a single raw record satisfies schema.
func conforms(schema *Schema, rec json.RawMessage) bool {
	var parsed any
	if err := json.Unmarshal(rec, &parsed); err != nil {
		return false
	}
	return validateValue(schema, parsed) == nil
}

func compiledSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a decoded JSON value, not Go map literals with
	// typed slices, so round-trip the definition.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(url, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
