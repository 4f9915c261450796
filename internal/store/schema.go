package store

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// documentSchema describes the outer shape of a card export. Card bodies
// are left open so legacy exports still validate.
const documentSchema = `{
	"type": "object",
	"required": ["cards"],
	"properties": {
		"format_version": {"type": "integer", "minimum": 1},
		"cards": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"properties": {
					"box": {"type": "integer", "minimum": 0, "maximum": 6},
					"level": {"type": "integer", "minimum": 0, "maximum": 6},
					"difficulty": {"type": "string"},
					"total_attempts": {"type": "integer", "minimum": 0},
					"total_correct": {"type": "integer", "minimum": 0}
				}
			}
		},
		"total_reviews": {"type": "integer", "minimum": 0}
	}
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func documentValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(documentSchema)))
		if err != nil {
			compileErr = fmt.Errorf("parse document schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://card-export.json", doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("schema://card-export.json")
	})
	return compiledSchema, compileErr
}

// ValidateDocument checks raw against the card export schema. It is used
// on files handed in for merging, where a clear error beats a silent
// partial import.
func ValidateDocument(raw []byte) error {
	schema, err := documentValidator()
	if err != nil {
		return err
	}
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
