package modelmap

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	jsonSchemaDraft    = "https://json-schema.org/draft/2020-12/schema"
	jsonSchemaResource = "representation.schema.json"
)

func (s *serializer[T]) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s.schema.fields))
	for _, f := range s.schema.fields {
		properties[f.name] = f.jsonSchemaProperty()
	}
	result := map[string]any{
		"$schema":              jsonSchemaDraft,
		"type":                 "object",
		"properties":           properties,
		"required":             s.schema.Names(),
		"additionalProperties": false,
	}
	if s.title != "" {
		result["title"] = s.title
	}
	return result
}

func (s *serializer[T]) CompileJSONSchema() (*jsonschema.Schema, error) {
	raw, err := json.Marshal(s.JSONSchema())
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err = compiler.AddResource(jsonSchemaResource, doc); err != nil {
		return nil, fmt.Errorf("invalid JSON schema: %w", err)
	}
	return compiler.Compile(jsonSchemaResource)
}

func (f Field[T]) jsonSchemaProperty() map[string]any {
	prop := map[string]any{}
	var typ string
	switch f.kind {
	case KindInteger:
		typ = "integer"
		if f.minValue != nil {
			prop["minimum"] = *f.minValue
		}
		if f.maxValue != nil {
			prop["maximum"] = *f.maxValue
		}
	case KindReference:
		typ = "integer"
		prop["x-references"] = f.references
	case KindString:
		typ = "string"
		if f.maxLength > 0 {
			prop["maxLength"] = f.maxLength
		}
		if len(f.choices) > 0 {
			prop["enum"] = f.choices
		}
	case KindBoolean:
		typ = "boolean"
	case KindDecimal:
		typ = "string"
		prop["format"] = "decimal"
		prop["pattern"] = `^-?[0-9]+(\.[0-9]+)?$`
	case KindDateTime:
		typ = "string"
		prop["format"] = "date-time"
	}
	if f.nullable {
		prop["type"] = []string{typ, "null"}
		if enum, ok := prop["enum"].([]string); ok {
			withNull := make([]any, 0, len(enum)+1)
			for _, e := range enum {
				withNull = append(withNull, e)
			}
			prop["enum"] = append(withNull, nil)
		}
	} else {
		prop["type"] = typ
	}
	if f.readOnly {
		prop["readOnly"] = true
	}
	return prop
}
