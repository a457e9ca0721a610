package modelmap

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the data type of a declared Field
type Kind int

const (
	KindInteger Kind = iota
	KindString
	KindBoolean
	KindDecimal
	KindDateTime
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindDecimal:
		return "decimal"
	case KindDateTime:
		return "datetime"
	case KindReference:
		return "reference"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ReadOnly is a field option that marks the field as output only (e.g. an auto-increment primary key)
//
// read-only fields are always serialized, but are ignored when deserializing
type ReadOnly bool

// Optional is a field option that marks a writable field as not required
type Optional bool

// AllowBlank is a field option (string fields only) that allows empty strings
type AllowBlank bool

// MaxLength is a field option (string fields only) that limits the number of characters
type MaxLength int

// MaxDigits is a field option (decimal fields only) that limits the total number of digits
type MaxDigits int

// DecimalPlaces is a field option (decimal fields only) that limits the number of decimal places
//
// it also determines the number of decimal places used when serializing
type DecimalPlaces int

// MinValue is a field option (integer fields only) declaring a minimum value
type MinValue int64

// MaxValue is a field option (integer fields only) declaring a maximum value
type MaxValue int64

// Choices is a field option (string fields only) restricting values to the listed choices
type Choices []string

// Column is a field option that sets the database column name (if different from the field name)
type Column string

// Default is a field option that supplies the value used when the field is absent on create
//
// a field with a default is not required
type Default struct {
	Value any
}

// Field is a single statically declared field of an entity type T
//
// Fields are created by the kind specific constructors (IntField, StringField, DecimalField etc.)
// and are collected into a Schema
type Field[T any] struct {
	name          string
	column        string
	kind          Kind
	get           func(*T) any
	set           func(*T, any)
	readOnly      bool
	optional      bool
	nullable      bool
	allowBlank    bool
	hasDefault    bool
	defaultValue  any
	maxLength     int
	maxDigits     int
	decimalPlaces int
	minValue      *int64
	maxValue      *int64
	choices       []string
	references    string
	err           error
}

// IntField declares an integer field
//
// options can be any of ReadOnly, Optional, Default, MinValue, MaxValue or Column
func IntField[T any](name string, get func(*T) int64, set func(*T, int64), options ...any) Field[T] {
	f := Field[T]{name: name, kind: KindInteger}
	if get != nil && set != nil {
		f.get = func(t *T) any { return get(t) }
		f.set = func(t *T, v any) {
			if v == nil {
				set(t, 0)
				return
			}
			set(t, v.(int64))
		}
	}
	return f.withOptions(options)
}

// NullIntField declares a nullable integer field
//
// options can be any of ReadOnly, Default, MinValue, MaxValue or Column
func NullIntField[T any](name string, get func(*T) *int64, set func(*T, *int64), options ...any) Field[T] {
	f := Field[T]{name: name, kind: KindInteger, nullable: true}
	if get != nil && set != nil {
		f.get = func(t *T) any {
			if v := get(t); v != nil {
				return *v
			}
			return nil
		}
		f.set = func(t *T, v any) {
			if v == nil {
				set(t, nil)
				return
			}
			i := v.(int64)
			set(t, &i)
		}
	}
	return f.withOptions(options)
}

// StringField declares a string field
//
// options can be any of ReadOnly, Optional, Default, AllowBlank, MaxLength, Choices or Column
//
// string fields never accept null (use NullStringField for that)
func StringField[T any](name string, get func(*T) string, set func(*T, string), options ...any) Field[T] {
	f := Field[T]{name: name, kind: KindString}
	if get != nil && set != nil {
		f.get = func(t *T) any { return get(t) }
		f.set = func(t *T, v any) {
			if v == nil {
				set(t, "")
				return
			}
			set(t, v.(string))
		}
	}
	return f.withOptions(options)
}

// NullStringField declares a nullable string field
//
// options can be any of ReadOnly, Default, AllowBlank, MaxLength, Choices or Column
func NullStringField[T any](name string, get func(*T) *string, set func(*T, *string), options ...any) Field[T] {
	f := Field[T]{name: name, kind: KindString, nullable: true}
	if get != nil && set != nil {
		f.get = func(t *T) any {
			if v := get(t); v != nil {
				return *v
			}
			return nil
		}
		f.set = func(t *T, v any) {
			if v == nil {
				set(t, nil)
				return
			}
			s := v.(string)
			set(t, &s)
		}
	}
	return f.withOptions(options)
}

// BoolField declares a boolean field
//
// options can be any of ReadOnly, Optional, Default or Column
func BoolField[T any](name string, get func(*T) bool, set func(*T, bool), options ...any) Field[T] {
	f := Field[T]{name: name, kind: KindBoolean}
	if get != nil && set != nil {
		f.get = func(t *T) any { return get(t) }
		f.set = func(t *T, v any) {
			if v == nil {
				set(t, false)
				return
			}
			set(t, v.(bool))
		}
	}
	return f.withOptions(options)
}

// NullBoolField declares a nullable boolean field
//
// options can be any of ReadOnly, Default or Column
func NullBoolField[T any](name string, get func(*T) *bool, set func(*T, *bool), options ...any) Field[T] {
	f := Field[T]{name: name, kind: KindBoolean, nullable: true}
	if get != nil && set != nil {
		f.get = func(t *T) any {
			if v := get(t); v != nil {
				return *v
			}
			return nil
		}
		f.set = func(t *T, v any) {
			if v == nil {
				set(t, nil)
				return
			}
			b := v.(bool)
			set(t, &b)
		}
	}
	return f.withOptions(options)
}

// DecimalField declares a decimal field
//
// options can be any of ReadOnly, Optional, Default, MaxDigits, DecimalPlaces or Column
func DecimalField[T any](name string, get func(*T) decimal.Decimal, set func(*T, decimal.Decimal), options ...any) Field[T] {
	f := Field[T]{name: name, kind: KindDecimal}
	if get != nil && set != nil {
		f.get = func(t *T) any { return get(t) }
		f.set = func(t *T, v any) {
			if v == nil {
				set(t, decimal.Zero)
				return
			}
			set(t, v.(decimal.Decimal))
		}
	}
	return f.withOptions(options)
}

// NullDecimalField declares a nullable decimal field
//
// options can be any of ReadOnly, Default, MaxDigits, DecimalPlaces or Column
func NullDecimalField[T any](name string, get func(*T) decimal.NullDecimal, set func(*T, decimal.NullDecimal), options ...any) Field[T] {
	f := Field[T]{name: name, kind: KindDecimal, nullable: true}
	if get != nil && set != nil {
		f.get = func(t *T) any {
			if v := get(t); v.Valid {
				return v.Decimal
			}
			return nil
		}
		f.set = func(t *T, v any) {
			if v == nil {
				set(t, decimal.NullDecimal{})
				return
			}
			set(t, decimal.NewNullDecimal(v.(decimal.Decimal)))
		}
	}
	return f.withOptions(options)
}

// DateTimeField declares a date-time field
//
// options can be any of ReadOnly, Optional, Default or Column
func DateTimeField[T any](name string, get func(*T) time.Time, set func(*T, time.Time), options ...any) Field[T] {
	f := Field[T]{name: name, kind: KindDateTime}
	if get != nil && set != nil {
		f.get = func(t *T) any { return get(t) }
		f.set = func(t *T, v any) {
			if v == nil {
				set(t, time.Time{})
				return
			}
			set(t, v.(time.Time))
		}
	}
	return f.withOptions(options)
}

// NullDateTimeField declares a nullable date-time field
//
// options can be any of ReadOnly, Default or Column
func NullDateTimeField[T any](name string, get func(*T) *time.Time, set func(*T, *time.Time), options ...any) Field[T] {
	f := Field[T]{name: name, kind: KindDateTime, nullable: true}
	if get != nil && set != nil {
		f.get = func(t *T) any {
			if v := get(t); v != nil {
				return *v
			}
			return nil
		}
		f.set = func(t *T, v any) {
			if v == nil {
				set(t, nil)
				return
			}
			tm := v.(time.Time)
			set(t, &tm)
		}
	}
	return f.withOptions(options)
}

// ReferenceField declares a relational reference field (the primary key of a row of the referenced model)
//
// options can be any of ReadOnly, Optional, Default or Column
//
// referential validity is checked by the ReferenceChecker supplied to the Serializer
func ReferenceField[T any](name string, model string, get func(*T) int64, set func(*T, int64), options ...any) Field[T] {
	return IntField[T](name, get, set).asReference(model, options)
}

// NullReferenceField declares a nullable relational reference field (nil when there is no referenced row)
//
// options can be any of ReadOnly, Default or Column
func NullReferenceField[T any](name string, model string, get func(*T) *int64, set func(*T, *int64), options ...any) Field[T] {
	return NullIntField[T](name, get, set).asReference(model, options)
}

func (f Field[T]) asReference(model string, options []any) Field[T] {
	f.kind = KindReference
	f.references = model
	if model == "" {
		f.err = fmt.Errorf("field %q: reference field must name the referenced model", f.name)
		return f
	}
	return f.withOptions(options)
}

func (f Field[T]) withOptions(options []any) Field[T] {
	f.decimalPlaces = -1
	for _, o := range options {
		if o == nil || f.err != nil {
			continue
		}
		switch option := o.(type) {
		case ReadOnly:
			f.readOnly = bool(option)
		case Optional:
			f.optional = bool(option)
		case Default:
			f.hasDefault = true
			f.defaultValue = option.Value
		case Column:
			f.column = string(option)
		case AllowBlank:
			f.err = f.checkKind(o, KindString)
			f.allowBlank = bool(option)
		case MaxLength:
			f.err = f.checkKind(o, KindString)
			f.maxLength = int(option)
		case Choices:
			f.err = f.checkKind(o, KindString)
			f.choices = append([]string{}, option...)
		case MaxDigits:
			f.err = f.checkKind(o, KindDecimal)
			f.maxDigits = int(option)
		case DecimalPlaces:
			f.err = f.checkKind(o, KindDecimal)
			f.decimalPlaces = int(option)
		case MinValue:
			f.err = f.checkKind(o, KindInteger)
			v := int64(option)
			f.minValue = &v
		case MaxValue:
			f.err = f.checkKind(o, KindInteger)
			v := int64(option)
			f.maxValue = &v
		default:
			f.err = fmt.Errorf("field %q: unknown option type: %T", f.name, o)
		}
	}
	if f.err == nil && f.hasDefault && f.defaultValue == nil && !f.nullable {
		f.err = fmt.Errorf("field %q: null default requires a nullable field", f.name)
	}
	if f.err == nil && f.hasDefault && f.defaultValue != nil {
		if v, msgs := f.toInternal(f.defaultValue); len(msgs) > 0 {
			f.err = fmt.Errorf("field %q: invalid default value: %s", f.name, msgs[0])
		} else {
			f.defaultValue = v
		}
	}
	return f
}

func (f Field[T]) checkKind(option any, kinds ...Kind) error {
	for _, k := range kinds {
		if f.kind == k {
			return nil
		}
	}
	return fmt.Errorf("field %q: option %T cannot be used with %s field", f.name, option, f.kind)
}

// Name returns the field name (the representation key)
func (f Field[T]) Name() string {
	return f.name
}

// Column returns the database column name
func (f Field[T]) Column() string {
	if f.column != "" {
		return f.column
	}
	return f.name
}

func (f Field[T]) Kind() Kind {
	return f.kind
}

func (f Field[T]) IsReadOnly() bool {
	return f.readOnly
}

func (f Field[T]) IsNullable() bool {
	return f.nullable
}

// IsRequired reports whether the field must be present when deserializing a new entity
func (f Field[T]) IsRequired() bool {
	return !f.readOnly && !f.optional && !f.hasDefault && !f.nullable
}

// References returns the referenced model name (reference fields only)
func (f Field[T]) References() string {
	return f.references
}

// Value returns the current internal value of the field for the entity (nil when null)
func (f Field[T]) Value(entity *T) any {
	return f.get(entity)
}

// Represent returns the representation of the field for the entity
func (f Field[T]) Represent(entity *T) any {
	return f.represent(f.get(entity))
}

func (f Field[T]) represent(v any) any {
	if v == nil {
		return nil
	}
	switch f.kind {
	case KindDecimal:
		d := v.(decimal.Decimal)
		if f.decimalPlaces >= 0 {
			return d.StringFixed(int32(f.decimalPlaces))
		}
		return d.String()
	case KindDateTime:
		return v.(time.Time).Format(time.RFC3339Nano)
	}
	return v
}
