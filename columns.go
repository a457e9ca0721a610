package modelmap

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// mysql DATETIME/TIMESTAMP text format (when the driver is not using parseTime)
const sqlDateTimeLayout = "2006-01-02 15:04:05.999999999"

// BoolColumn converts a database column value to a bool
//
// Particularly useful for MySql which only supports BOOL columns as TINYINT
func BoolColumn(src any) (any, error) {
	switch v := src.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case []byte:
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(v)
	case nil:
		return false, nil
	}
	return nil, fmt.Errorf("type %T is not a bool", src)
}

// DecimalColumn converts a database column value to a decimal.Decimal
func DecimalColumn(src any) (any, error) {
	switch v := src.(type) {
	case float32:
		return decimal.NewFromFloat(float64(v)), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.New(v, 0), nil
	case []byte:
		if len(v) > 2 && v[0] == '"' && v[len(v)-1] == '"' {
			return decimal.NewFromString(string(v[1 : len(v)-1]))
		}
		return decimal.NewFromString(string(v))
	case string:
		if len(v) > 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
			return decimal.NewFromString(v[1 : len(v)-1])
		}
		return decimal.NewFromString(v)
	case decimal.Decimal:
		return v, nil
	}
	return nil, fmt.Errorf("type %T is not a decimal", src)
}

// IntColumn converts a database column value to an int64
func IntColumn(src any) (any, error) {
	if i, ok := coerceInt(src); ok {
		return i, nil
	}
	return nil, fmt.Errorf("type %T is not an integer", src)
}

// StringColumn converts a database column value to a string
func StringColumn(src any) (any, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return nil, fmt.Errorf("type %T is not a string", src)
}

// DateTimeColumn converts a database column value to a time.Time
func DateTimeColumn(src any) (any, error) {
	var s string
	switch v := src.(type) {
	case time.Time:
		return v, nil
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return nil, fmt.Errorf("type %T is not a datetime", src)
	}
	for _, layout := range []string{time.RFC3339Nano, sqlDateTimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse %q as datetime", s)
}

func (f Field[T]) fromColumn(src any) (any, error) {
	switch f.kind {
	case KindInteger, KindReference:
		return IntColumn(src)
	case KindString:
		return StringColumn(src)
	case KindBoolean:
		return BoolColumn(src)
	case KindDecimal:
		return DecimalColumn(src)
	case KindDateTime:
		return DateTimeColumn(src)
	}
	return nil, fmt.Errorf("unsupported field kind %s", f.kind)
}

// fieldScanner scans a single column directly into an entity field
type fieldScanner[T any] struct {
	field  *Field[T]
	target *T
}

var _ sql.Scanner = (*fieldScanner[struct{}])(nil)

func (c *fieldScanner[T]) Scan(src any) error {
	if src == nil {
		if !c.field.nullable {
			return fmt.Errorf("column %q: null value for non-nullable field %q", c.field.Column(), c.field.name)
		}
		c.field.set(c.target, nil)
		return nil
	}
	v, err := c.field.fromColumn(src)
	if err != nil {
		return fmt.Errorf("column %q: %w", c.field.Column(), err)
	}
	c.field.set(c.target, v)
	return nil
}

type discardScanner struct{}

func (discardScanner) Scan(any) error {
	return nil
}
