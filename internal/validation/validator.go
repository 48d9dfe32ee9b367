// Package validation checks untrusted request payloads against the count
// record schema before anything touches storage. Validation is
// all-or-nothing: every problem is collected up front and no mutation is
// attempted on a payload that fails.
package validation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"bicycle-counts/internal/models"
	"bicycle-counts/internal/schema"
)

// Mode selects between create semantics (full required-field set) and
// update semantics (any subset, no missing-field check).
type Mode int

const (
	Create Mode = iota
	Update
)

// FieldError records one content violation for a submitted field.
type FieldError struct {
	Field  string
	Reason string
}

// Result holds the outcome of validating one payload. Error precedence is
// a contract: unknown fields are reported first, then missing required
// fields, then per-field violations; only the first non-empty category is
// surfaced to the client.
type Result struct {
	Unknown []string
	Missing []string
	Bad     []FieldError
}

// OK reports whether the payload passed every check.
func (r Result) OK() bool {
	return len(r.Unknown) == 0 && len(r.Missing) == 0 && len(r.Bad) == 0
}

// Message renders the first non-empty category as a human-readable error
// naming the offending fields.
func (r Result) Message() string {
	switch {
	case len(r.Unknown) > 0:
		return "unknown fields: " + strings.Join(r.Unknown, ", ")
	case len(r.Missing) > 0:
		return "missing required fields: " + strings.Join(r.Missing, ", ")
	case len(r.Bad) > 0:
		parts := make([]string, len(r.Bad))
		for i, fe := range r.Bad {
			parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Reason)
		}
		return "invalid fields: " + strings.Join(parts, "; ")
	default:
		return ""
	}
}

// Validator validates submitted field maps against the schema registry.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	registry *schema.Registry
}

// NewValidator creates a validator over the given registry.
func NewValidator(registry *schema.Registry) *Validator {
	return &Validator{registry: registry}
}

// Validate checks a decoded JSON payload. Numeric values must be
// json.Number (decode with UseNumber) so integer and float tokens stay
// distinguishable. Pure function over the payload and the registry.
func (v *Validator) Validate(fields map[string]interface{}, mode Mode) Result {
	var result Result

	for name := range fields {
		if !v.registry.Known(name) {
			result.Unknown = append(result.Unknown, name)
		}
	}
	sort.Strings(result.Unknown)

	if mode == Create {
		for _, name := range v.registry.Required() {
			if _, present := fields[name]; !present {
				result.Missing = append(result.Missing, name)
			}
		}
	}

	// Content checks run in registry declaration order for deterministic
	// error output. Server-managed fields are dropped later, not checked.
	for _, name := range v.registry.FieldNames() {
		value, present := fields[name]
		if !present {
			continue
		}
		field, _ := v.registry.Lookup(name)
		if reason := checkField(field, value); reason != "" {
			result.Bad = append(result.Bad, FieldError{Field: name, Reason: reason})
		}
	}

	return result
}

// checkField returns a violation reason for a single value, or "" if the
// value is acceptable.
func checkField(field schema.Field, value interface{}) string {
	switch field.Type {
	case schema.Integer:
		num, ok := value.(json.Number)
		if !ok {
			return fmt.Sprintf("expected %s, got %s", field.Type, typeName(value))
		}
		if _, err := num.Int64(); err != nil {
			return fmt.Sprintf("expected %s, got %s", field.Type, num.String())
		}
	case schema.Float:
		num, ok := value.(json.Number)
		if !ok {
			return fmt.Sprintf("expected %s, got %s", field.Type, typeName(value))
		}
		if _, err := num.Float64(); err != nil {
			return fmt.Sprintf("expected %s, got %s", field.Type, num.String())
		}
	case schema.String:
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("expected %s, got %s", field.Type, typeName(value))
		}
	case schema.Date:
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("expected date string, got %s", typeName(value))
		}
		if _, err := models.ParseDate(s); err != nil {
			return fmt.Sprintf("%q is not a valid YYYY-MM-DD date", s)
		}
		return ""
	}

	if len(field.Allowed) > 0 {
		if !allowed(field.Allowed, valueToken(value)) {
			return fmt.Sprintf("must be one of [%s]", strings.Join(field.Allowed, ", "))
		}
	}
	return ""
}

// valueToken renders a value in the literal form enum membership is
// checked against: strings as-is, numbers as their original token, so
// "1.0" stays distinct from "1".
func valueToken(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func allowed(set []string, token string) bool {
	for _, s := range set {
		if s == token {
			return true
		}
	}
	return false
}

func typeName(value interface{}) string {
	switch value.(type) {
	case json.Number:
		return "number"
	case string:
		return "string"
	case bool:
		return "boolean"
	case nil:
		return "null"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
