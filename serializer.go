package modelmap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrMalformedRepresentation is returned (wrapped) by the JSON reading methods when the input is not valid JSON
var ErrMalformedRepresentation = errors.New("malformed representation")

// ParseError is the error returned by the JSON reading methods when the input is not valid JSON
//
// it matches ErrMalformedRepresentation with errors.Is, Detail is the client facing message
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string {
	return ErrMalformedRepresentation.Error() + ": " + e.Detail
}

func (e *ParseError) Unwrap() error {
	return ErrMalformedRepresentation
}

// Title is an option that can be passed to NewSerializer and sets the title of the generated JSON Schema
type Title string

// Serializer is the interface returned by NewSerializer / MustNewSerializer
//
// it translates between entities of type T and their representation (`map[string]any`) in both directions,
// exposing every field declared on the Schema - with no exclusions, renames or computed fields
type Serializer[T any] interface {
	// Schema returns the schema the serializer was built from
	Schema() *Schema[T]
	// Serialize produces the representation of the entity - containing every declared field
	//
	// if the entity is nil, returns nil
	Serialize(entity *T) map[string]any
	// SerializeMany produces the representations of the entities
	SerializeMany(entities []T) []map[string]any
	// Deserialize validates the representation and, on success, yields a new entity
	//
	// on failure returns ValidationErrors (all field failures are collected) and a nil entity
	Deserialize(ctx context.Context, data map[string]any) (*T, error)
	// DeserializeInto validates the representation and, on success, updates the target entity
	//
	// if partial is true, absent fields are not required and retain their current values
	//
	// the target is left untouched on failure
	DeserializeInto(ctx context.Context, target *T, data map[string]any, partial bool) error
	// WriteJSON writes the representation of the entity as a JSON object (fields in declaration order)
	WriteJSON(w io.Writer, entity *T) error
	// WriteManyJSON writes the representations of the entities as a JSON array
	WriteManyJSON(w io.Writer, entities []T) error
	// ReadJSON reads a JSON representation and deserializes it into a new entity
	ReadJSON(ctx context.Context, r io.Reader) (*T, error)
	// ReadJSONInto reads a JSON representation and deserializes it into the target entity (see DeserializeInto)
	ReadJSONInto(ctx context.Context, r io.Reader, target *T, partial bool) error
	// JSONSchema describes the representation as a JSON Schema (draft 2020-12) document
	JSONSchema() map[string]any
	// CompileJSONSchema compiles the JSONSchema document - which can then be used to validate representations
	CompileJSONSchema() (*jsonschema.Schema, error)
}

// NewSerializer creates a new Serializer for the schema
//
// options can be any of: ReferenceChecker, ErrorTranslator or Title
func NewSerializer[T any](schema *Schema[T], options ...any) (Serializer[T], error) {
	if schema == nil {
		return nil, errors.New("serializer requires a schema")
	}
	result := &serializer[T]{
		schema:          schema,
		errorTranslator: defaultErrorTranslator,
	}
	for _, o := range options {
		if o != nil {
			switch option := o.(type) {
			case Title:
				result.title = string(option)
			case ReferenceChecker:
				result.referenceChecker = option
			case ErrorTranslator:
				result.errorTranslator = option
			default:
				return nil, fmt.Errorf("unknown option type: %T", o)
			}
		}
	}
	return result, nil
}

// MustNewSerializer is the same as NewSerializer, except it panics on error
func MustNewSerializer[T any](schema *Schema[T], options ...any) Serializer[T] {
	s, err := NewSerializer[T](schema, options...)
	if err != nil {
		panic(err)
	}
	return s
}

type serializer[T any] struct {
	schema           *Schema[T]
	title            string
	referenceChecker ReferenceChecker
	errorTranslator  ErrorTranslator
}

var _ Serializer[struct{}] = (*serializer[struct{}])(nil)

func (s *serializer[T]) Schema() *Schema[T] {
	return s.schema
}

func (s *serializer[T]) Serialize(entity *T) map[string]any {
	if entity == nil {
		return nil
	}
	result := make(map[string]any, len(s.schema.fields))
	for _, f := range s.schema.fields {
		result[f.name] = f.Represent(entity)
	}
	return result
}

func (s *serializer[T]) SerializeMany(entities []T) []map[string]any {
	result := make([]map[string]any, 0, len(entities))
	for i := range entities {
		result = append(result, s.Serialize(&entities[i]))
	}
	return result
}

func (s *serializer[T]) Deserialize(ctx context.Context, data map[string]any) (*T, error) {
	var result T
	if err := s.deserialize(ctx, &result, data, false, true); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *serializer[T]) DeserializeInto(ctx context.Context, target *T, data map[string]any, partial bool) error {
	if target == nil {
		return errors.New("deserialize target must not be nil")
	}
	return s.deserialize(ctx, target, data, partial, false)
}

func (s *serializer[T]) deserialize(ctx context.Context, target *T, data map[string]any, partial bool, create bool) error {
	working := *target
	errs := ValidationErrors{}
	for i := range s.schema.fields {
		f := &s.schema.fields[i]
		if f.readOnly {
			continue
		}
		raw, present := data[f.name]
		if !present {
			if partial {
				continue
			}
			if f.IsRequired() {
				errs.Add(f.name, msgRequired)
			} else if create && f.hasDefault {
				f.set(&working, f.defaultValue)
			}
			continue
		}
		if raw == nil {
			if !f.nullable {
				errs.Add(f.name, msgNull)
			} else {
				f.set(&working, nil)
			}
			continue
		}
		v, msgs := f.toInternal(raw)
		if len(msgs) > 0 {
			errs.Add(f.name, msgs...)
			continue
		}
		if f.kind == KindReference && s.referenceChecker != nil {
			pk := v.(int64)
			exists, err := s.referenceChecker.Exists(ctx, f.references, pk)
			if err != nil {
				return translateError(fmt.Errorf("checking %s reference %d: %w", f.references, pk, err), s.errorTranslator)
			}
			if !exists {
				errs.Add(f.name, fmt.Sprintf(`Invalid pk "%d" - object does not exist.`, pk))
				continue
			}
		}
		f.set(&working, v)
	}
	if len(errs) > 0 {
		return errs
	}
	*target = working
	return nil
}

func (s *serializer[T]) WriteJSON(w io.Writer, entity *T) error {
	var buf bytes.Buffer
	if err := s.encodeObject(&buf, entity); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func (s *serializer[T]) WriteManyJSON(w io.Writer, entities []T) (err error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := range entities {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err = s.encodeObject(&buf, &entities[i]); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	_, err = w.Write(buf.Bytes())
	return err
}

func (s *serializer[T]) encodeObject(buf *bytes.Buffer, entity *T) error {
	if entity == nil {
		buf.WriteString("null")
		return nil
	}
	buf.WriteByte('{')
	for i, f := range s.schema.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.name)
		if err != nil {
			return err
		}
		v, err := json.Marshal(f.Represent(entity))
		if err != nil {
			return fmt.Errorf("encoding field %q: %w", f.name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return nil
}

func (s *serializer[T]) ReadJSON(ctx context.Context, r io.Reader) (*T, error) {
	data, err := decodeObject(r)
	if err != nil {
		return nil, err
	}
	return s.Deserialize(ctx, data)
}

func (s *serializer[T]) ReadJSONInto(ctx context.Context, r io.Reader, target *T, partial bool) error {
	data, err := decodeObject(r)
	if err != nil {
		return err
	}
	return s.DeserializeInto(ctx, target, data, partial)
}

// decodeObject decodes a single JSON object - numbers are kept as json.Number so that integers are not degraded to floats
//
// an empty body decodes as an empty object, anything after the object is a parse error
func decodeObject(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, &ParseError{Detail: "JSON parse error - " + err.Error()}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Detail: fmt.Sprintf("JSON parse error - extra data after offset %d", dec.InputOffset())}
	}
	data, ok := v.(map[string]any)
	if !ok {
		return nil, ValidationErrors{
			NonFieldErrorsKey: {fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", representationTypeName(v))},
		}
	}
	return data, nil
}
