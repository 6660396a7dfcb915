package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldViolation describes one field-level validation failure.
// Missing is set when no value was supplied at all, as opposed to a
// value being present but empty or malformed.
type FieldViolation struct {
	FieldID   string
	FieldName string
	Required  bool
	Missing   bool
	Reason    string
}

func (v FieldViolation) String() string {
	return fmt.Sprintf("%s: %s", v.FieldName, v.Reason)
}

// Date layouts accepted for date fields. Stage data arrives as JSON,
// so dates are strings.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ValidateFields checks customData against the stage's declared
// fields and returns every violation found. It never fails: callers
// decide whether violations block an operation or are recorded as
// warnings.
func ValidateFields(stage Stage, data CustomData) []FieldViolation {
	var out []FieldViolation

	for _, f := range stage.Fields {
		val, present := data[f.ID]
		if !present || isEmpty(val) {
			if f.Required {
				out = append(out, FieldViolation{
					FieldID:   f.ID,
					FieldName: f.Name,
					Required:  true,
					Missing:   !present,
					Reason:    "required value is missing",
				})
			}
			continue
		}

		if reason := checkValue(f, val); reason != "" {
			out = append(out, FieldViolation{
				FieldID:   f.ID,
				FieldName: f.Name,
				Required:  f.Required,
				Reason:    reason,
			})
		}
	}

	return out
}

func checkValue(f FieldDefinition, val any) string {
	switch f.Type {
	case FieldSelect:
		s, ok := val.(string)
		if !ok {
			return "select value must be a string"
		}
		for _, opt := range f.Options {
			if s == opt {
				return ""
			}
		}
		return fmt.Sprintf("%q is not one of the declared options", s)

	case FieldNumber:
		switch v := val.(type) {
		case float64, float32, int, int32, int64:
			return ""
		case string:
			if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
				return fmt.Sprintf("%q is not a number", v)
			}
			return ""
		default:
			return "value is not a number"
		}

	case FieldDate:
		s, ok := val.(string)
		if !ok {
			return "date value must be a string"
		}
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return ""
			}
		}
		return fmt.Sprintf("%q is not a valid date", s)

	case FieldCheckbox:
		switch val.(type) {
		case bool:
			return ""
		default:
			return "checkbox value must be a boolean"
		}

	case FieldText, FieldFile:
		if _, ok := val.(string); !ok {
			return "value must be a string"
		}
		return ""
	}

	return ""
}

func isEmpty(val any) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}

// ViolationSummary renders violations as a single comment fragment,
// used when attaching warnings to a history entry.
func ViolationSummary(violations []FieldViolation) string {
	if len(violations) == 0 {
		return ""
	}
	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.String()
	}
	return "warnings: " + strings.Join(msgs, "; ")
}
