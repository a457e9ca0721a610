package modelmap

import (
	"errors"
	"sort"
	"strings"
)

// NonFieldErrorsKey is the key used for validation errors that do not belong to a single field
const NonFieldErrorsKey = "non_field_errors"

// ValidationErrors is the error returned when a representation cannot be deserialized
//
// it maps each failing field name to its list of human-readable messages (all failures are collected)
type ValidationErrors map[string][]string

var _ error = ValidationErrors{}

// Add appends messages for the named field
func (ve ValidationErrors) Add(field string, messages ...string) {
	ve[field] = append(ve[field], messages...)
}

// Fields returns the names of the failing fields, sorted
func (ve ValidationErrors) Fields() []string {
	result := make([]string, 0, len(ve))
	for k := range ve {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// HasField reports whether there are errors for the named field
func (ve ValidationErrors) HasField(field string) bool {
	return len(ve[field]) > 0
}

func (ve ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed")
	for i, field := range ve.Fields() {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}
		sb.WriteString(field)
		sb.WriteString(": ")
		sb.WriteString(strings.Join(ve[field], " "))
	}
	return sb.String()
}

// AsValidationErrors extracts ValidationErrors from err (if it is, or wraps, ValidationErrors)
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
