package modelmap

import (
	"errors"
	"fmt"
	"strings"
)

// Schema is the immutable, ordered list of fields declared for an entity type T
//
// The set of fields a Serializer exposes is always exactly the set of fields declared on its Schema
type Schema[T any] struct {
	fields   []Field[T]
	byName   map[string]int
	byColumn map[string]int
}

// NewSchema creates a new Schema from the declared fields (in declaration order)
func NewSchema[T any](fields ...Field[T]) (*Schema[T], error) {
	if len(fields) == 0 {
		return nil, errors.New("schema must declare at least one field")
	}
	result := &Schema[T]{
		fields:   make([]Field[T], 0, len(fields)),
		byName:   make(map[string]int, len(fields)),
		byColumn: make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.err != nil {
			return nil, f.err
		}
		if f.name == "" {
			return nil, fmt.Errorf("field %d: name must not be empty", i)
		}
		if f.get == nil || f.set == nil {
			return nil, fmt.Errorf("field %q: missing accessors", f.name)
		}
		if _, exists := result.byName[f.name]; exists {
			return nil, fmt.Errorf("duplicate field %q", f.name)
		}
		if _, exists := result.byColumn[f.Column()]; exists {
			return nil, fmt.Errorf("duplicate column mapping %q", f.Column())
		}
		result.byName[f.name] = i
		result.byColumn[f.Column()] = i
		result.fields = append(result.fields, f)
	}
	return result, nil
}

// MustNewSchema is the same as NewSchema, except it panics on error
func MustNewSchema[T any](fields ...Field[T]) *Schema[T] {
	s, err := NewSchema[T](fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns a copy of the declared fields
func (s *Schema[T]) Fields() []Field[T] {
	return append([]Field[T]{}, s.fields...)
}

// Field returns the named field
func (s *Schema[T]) Field(name string) (Field[T], bool) {
	if i, ok := s.byName[name]; ok {
		return s.fields[i], true
	}
	return Field[T]{}, false
}

// Names returns the field names in declaration order
func (s *Schema[T]) Names() []string {
	result := make([]string, len(s.fields))
	for i, f := range s.fields {
		result[i] = f.name
	}
	return result
}

// Columns returns the column names in declaration order
func (s *Schema[T]) Columns() []string {
	result := make([]string, len(s.fields))
	for i, f := range s.fields {
		result[i] = f.Column()
	}
	return result
}

// WritableColumns returns the column names of the non read-only fields
func (s *Schema[T]) WritableColumns() []string {
	result := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		if !f.readOnly {
			result = append(result, f.Column())
		}
	}
	return result
}

// WritableValues returns the internal values of the non read-only fields (in WritableColumns order)
func (s *Schema[T]) WritableValues(entity *T) []any {
	result := make([]any, 0, len(s.fields))
	for _, f := range s.fields {
		if !f.readOnly {
			result = append(result, f.get(entity))
		}
	}
	return result
}

func (s *Schema[T]) columnList() string {
	return strings.Join(s.Columns(), ",")
}

func (s *Schema[T]) fieldByColumn(col string) (*Field[T], bool) {
	if i, ok := s.byColumn[col]; ok {
		return &s.fields[i], true
	}
	return nil, false
}
