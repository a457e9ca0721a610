package modelmap

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	msgRequired      = "This field is required."
	msgNull          = "This field may not be null."
	msgBlank         = "This field may not be blank."
	msgInvalidInt    = "A valid integer is required."
	msgInvalidString = "Not a valid string."
	msgInvalidBool   = "Must be a valid boolean."
	msgInvalidNumber = "A valid number is required."
	msgInvalidTime   = "Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z]."
)

var trailingZeroFraction = regexp.MustCompile(`\.0*\s*$`)

// accepted date-time input formats, values without a zone are taken as UTC
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
}

// toInternal coerces a representation value (as decoded from JSON or supplied directly) into
// the field's internal value, applying the constraints declared on the field
func (f Field[T]) toInternal(v any) (any, []string) {
	switch f.kind {
	case KindInteger:
		i, ok := coerceInt(v)
		if !ok {
			return nil, []string{msgInvalidInt}
		}
		return i, f.checkRange(i)
	case KindReference:
		i, ok := coerceInt(v)
		if !ok {
			return nil, []string{fmt.Sprintf("Incorrect type. Expected pk value, received %s.", representationTypeName(v))}
		}
		return i, nil
	case KindString:
		s, ok := coerceString(v)
		if !ok {
			return nil, []string{msgInvalidString}
		}
		return s, f.checkString(s)
	case KindBoolean:
		b, ok := coerceBool(v)
		if !ok {
			return nil, []string{msgInvalidBool}
		}
		return b, nil
	case KindDecimal:
		d, ok := coerceDecimal(v)
		if !ok {
			return nil, []string{msgInvalidNumber}
		}
		return d, f.checkDigits(d)
	case KindDateTime:
		t, ok := coerceDateTime(v)
		if !ok {
			return nil, []string{msgInvalidTime}
		}
		return t, nil
	}
	return nil, []string{fmt.Sprintf("unsupported field kind %s", f.kind)}
}

func (f Field[T]) checkRange(i int64) []string {
	if f.minValue != nil && i < *f.minValue {
		return []string{fmt.Sprintf("Ensure this value is greater than or equal to %d.", *f.minValue)}
	}
	if f.maxValue != nil && i > *f.maxValue {
		return []string{fmt.Sprintf("Ensure this value is less than or equal to %d.", *f.maxValue)}
	}
	return nil
}

func (f Field[T]) checkString(s string) (msgs []string) {
	if s == "" && !f.allowBlank {
		return []string{msgBlank}
	}
	if f.maxLength > 0 {
		if n := len([]rune(s)); n > f.maxLength {
			msgs = append(msgs, fmt.Sprintf("Ensure this field has no more than %d characters.", f.maxLength))
		}
	}
	if len(f.choices) > 0 && s != "" {
		found := false
		for _, c := range f.choices {
			if c == s {
				found = true
				break
			}
		}
		if !found {
			msgs = append(msgs, `"`+s+`" is not a valid choice.`)
		}
	}
	return msgs
}

func (f Field[T]) checkDigits(d decimal.Decimal) []string {
	coefficient := d.Coefficient().String()
	coefficient = strings.TrimPrefix(coefficient, "-")
	exp := int(d.Exponent())
	var digits, places int
	if exp >= 0 {
		digits = len(coefficient) + exp
		places = 0
	} else {
		places = -exp
		digits = len(coefficient)
		if places > digits {
			digits = places
		}
	}
	if d.IsZero() && exp >= 0 {
		digits = 1
	}
	whole := digits - places
	if f.maxDigits > 0 && digits > f.maxDigits {
		return []string{fmt.Sprintf("Ensure that there are no more than %d digits in total.", f.maxDigits)}
	}
	if f.decimalPlaces >= 0 && places > f.decimalPlaces {
		return []string{fmt.Sprintf("Ensure that there are no more than %d decimal places.", f.decimalPlaces)}
	}
	if f.maxDigits > 0 && f.decimalPlaces >= 0 && whole > f.maxDigits-f.decimalPlaces {
		return []string{fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", f.maxDigits-f.decimalPlaces)}
	}
	return nil
}

func coerceInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), n <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		return parseIntString(string(n))
	case string:
		return parseIntString(n)
	case []byte:
		return parseIntString(string(n))
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func parseIntString(s string) (int64, bool) {
	s = strings.TrimSpace(trailingZeroFraction.ReplaceAllString(s, ""))
	i, err := strconv.ParseInt(s, 10, 64)
	return i, err == nil
}

func coerceString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), true
	case json.Number:
		return string(s), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", s), true
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	}
	return "", false
}

func coerceBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "t", "yes", "y", "on", "1":
			return true, true
		case "false", "f", "no", "n", "off", "0":
			return false, true
		}
	case json.Number:
		return coerceBool(string(b))
	case int64:
		return b != 0, b == 0 || b == 1
	case int:
		return b != 0, b == 0 || b == 1
	case float64:
		return b != 0, b == 0 || b == 1
	}
	return false, false
}

func coerceDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float32:
		return decimalFromFloat(float64(n))
	case float64:
		return decimalFromFloat(n)
	case int:
		return decimal.New(int64(n), 0), true
	case int32:
		return decimal.New(int64(n), 0), true
	case int64:
		return decimal.New(n, 0), true
	case json.Number:
		return parseDecimalString(string(n))
	case string:
		return parseDecimalString(n)
	case []byte:
		return parseDecimalString(string(n))
	}
	return decimal.Decimal{}, false
}

func decimalFromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(f), true
}

func parseDecimalString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	return d, err == nil
}

func coerceDateTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateTimeLayouts {
			if tm, err := time.Parse(layout, s); err == nil {
				return tm, true
			}
		}
	}
	return time.Time{}, false
}

// representationTypeName names the type of a decoded representation value as a client would see it
func representationTypeName(v any) string {
	switch n := v.(type) {
	case nil:
		return "NoneType"
	case string:
		return "str"
	case bool:
		return "bool"
	case map[string]any:
		return "dict"
	case []any:
		return "list"
	case float32, float64:
		return "float"
	case json.Number:
		if _, err := n.Int64(); err == nil {
			return "int"
		}
		return "float"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "int"
	}
	return fmt.Sprintf("%T", v)
}
