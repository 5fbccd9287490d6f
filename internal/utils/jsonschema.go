package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchemaValidator handles validation against JSON schemas
type JSONSchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewJSONSchemaValidator creates a new JSONSchemaValidator
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// LoadSchema loads and compiles a JSON schema
func (v *JSONSchemaValidator) LoadSchema(name, schema string) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	v.schemas[name] = compiled
	return nil
}

// ValidateBytes validates a raw JSON document against a named schema
func (v *JSONSchemaValidator) ValidateBytes(name string, document []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("schema %s not found", name)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			messages = append(messages, fmt.Sprintf("%s: %s", resultErr.Field(), resultErr.Description()))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(messages, "; "))
	}

	return nil
}

// JSONSchemaBuilder helps build JSON schemas programmatically
type JSONSchemaBuilder struct {
	properties map[string]interface{}
	required   []string
	title      string
}

// NewJSONSchemaBuilder creates a new JSONSchemaBuilder
func NewJSONSchemaBuilder(title string) *JSONSchemaBuilder {
	return &JSONSchemaBuilder{
		properties: map[string]interface{}{},
		title:      title,
	}
}

func (b *JSONSchemaBuilder) add(name string, property map[string]interface{}, required bool) *JSONSchemaBuilder {
	b.properties[name] = property
	if required {
		b.required = append(b.required, name)
	}
	return b
}

// AddStringProperty adds a string property; required strings must be non-empty
func (b *JSONSchemaBuilder) AddStringProperty(name string, required bool) *JSONSchemaBuilder {
	property := map[string]interface{}{"type": "string"}
	if required {
		property["minLength"] = 1
	}
	return b.add(name, property, required)
}

// AddNumberProperty adds a number property bounded by [min, max]
func (b *JSONSchemaBuilder) AddNumberProperty(name string, min, max float64, required bool) *JSONSchemaBuilder {
	return b.add(name, map[string]interface{}{
		"type":    "number",
		"minimum": min,
		"maximum": max,
	}, required)
}

// Build returns the JSON schema as a string
func (b *JSONSchemaBuilder) Build() (string, error) {
	schema := map[string]interface{}{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"title":      b.title,
		"type":       "object",
		"properties": b.properties,
		"required":   b.required,
	}

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}

	return string(jsonBytes), nil
}
