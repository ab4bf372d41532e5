package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// JSONSchema defines the structure for step input schemas
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Pattern     *string  `json:"pattern,omitempty"`
	MinLength   *int     `json:"minLength,omitempty"`
	MaxLength   *int     `json:"maxLength,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// GetErrorMessages flattens the errors into printable strings.
func (r *ValidationResult) GetErrorMessages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return msgs
}

// ValidateInput validates input against a JSON schema with detailed errors.
// A required field that is present but holds an empty string also fails the
// required check, since the wizard treats untouched form fields as missing.
func ValidateInput(input map[string]interface{}, schema JSONSchema) *ValidationResult {
	errors := []ValidationError{}

	for _, requiredField := range schema.Required {
		value, exists := input[requiredField]
		if !exists || isEmptyValue(value) {
			errors = append(errors, ValidationError{
				Field:   requiredField,
				Message: "required field missing",
				Code:    "REQUIRED_FIELD_MISSING",
			})
		}
	}

	for fieldName, value := range input {
		prop, exists := schema.Properties[fieldName]
		if !exists {
			continue
		}
		if isEmptyValue(value) && !contains(schema.Required, fieldName) {
			continue
		}
		if fieldErrors := validateField(fieldName, value, prop); len(fieldErrors) > 0 {
			errors = append(errors, fieldErrors...)
		}
	}

	return &ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateField(fieldName string, value interface{}, prop Property) []ValidationError {
	errors := []ValidationError{}

	if typeErr := validateType(value, prop.Type); typeErr != nil {
		errors = append(errors, ValidationError{
			Field:   fieldName,
			Message: typeErr.Error(),
			Code:    "INVALID_TYPE",
		})
		return errors
	}

	if strVal, ok := value.(string); ok {
		if prop.MinLength != nil && len(strVal) < *prop.MinLength {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be at least %d characters", *prop.MinLength),
				Code:    "MIN_LENGTH_VIOLATION",
			})
		}
		if prop.MaxLength != nil && len(strVal) > *prop.MaxLength {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be at most %d characters", *prop.MaxLength),
				Code:    "MAX_LENGTH_VIOLATION",
			})
		}

		if prop.Pattern != nil {
			matched, err := regexp.MatchString(*prop.Pattern, strVal)
			if err != nil || !matched {
				errors = append(errors, ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("value must match pattern %s", *prop.Pattern),
					Code:    "PATTERN_MISMATCH",
				})
			}
		}

		if len(prop.Enum) > 0 {
			found := false
			for _, enumVal := range prop.Enum {
				if strVal == enumVal {
					found = true
					break
				}
			}
			if !found {
				errors = append(errors, ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("value must be one of %v", prop.Enum),
					Code:    "ENUM_VIOLATION",
				})
			}
		}
	}

	if numVal, ok := toFloat(value); ok {
		if prop.Minimum != nil && numVal < *prop.Minimum {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be at least %v", *prop.Minimum),
				Code:    "MINIMUM_VIOLATION",
			})
		}
		if prop.Maximum != nil && numVal > *prop.Maximum {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be at most %v", *prop.Maximum),
				Code:    "MAXIMUM_VIOLATION",
			})
		}
	}

	return errors
}

func validateType(value interface{}, expected string) error {
	switch expected {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "number", "integer":
		if _, ok := toFloat(value); !ok {
			return fmt.Errorf("expected number, got %T", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "array":
		if _, ok := value.([]interface{}); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	}
	return nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func isEmptyValue(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	}
	return false
}

func contains(list []string, item string) bool {
	for _, s := range list {
		if s == item {
			return true
		}
	}
	return false
}
