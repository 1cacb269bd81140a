package tool

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValidationResult reports whether a proposed invocation matches its tool's
// declared schema. Errors holds one message per violation.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks a proposed invocation against the catalog. Inputs arrive
// as strings from the response parser, so type checks verify the value can
// be read as the declared type. An unknown tool name is itself a failure.
func Validate(name string, input map[string]string) ValidationResult {
	spec, ok := Lookup(name)
	if !ok {
		return ValidationResult{Errors: []string{fmt.Sprintf("unknown tool %q", name)}}
	}

	var errs []string
	declared := make(map[string]ParamSpec, len(spec.Params))
	for _, p := range spec.Params {
		declared[p.Name] = p
		if p.Required {
			if _, present := input[p.Name]; !present {
				errs = append(errs, fmt.Sprintf("missing required parameter %q", p.Name))
			}
		}
	}

	for key, value := range input {
		p, known := declared[key]
		if !known {
			errs = append(errs, fmt.Sprintf("unknown parameter %q", key))
			continue
		}
		if err := checkType(p, value); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if len(p.Enum) > 0 && !containsString(p.Enum, value) {
			errs = append(errs, fmt.Sprintf("parameter %q: value %q not in %v", key, value, p.Enum))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func checkType(p ParamSpec, value string) error {
	switch p.Type {
	case TypeString:
		return nil
	case TypeNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("parameter %q: %q is not a number", p.Name, value)
		}
	case TypeBoolean:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("parameter %q: %q is not a boolean", p.Name, value)
		}
	case TypeArray:
		var v []any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			return fmt.Errorf("parameter %q: not a JSON array", p.Name)
		}
	case TypeObject:
		var v map[string]any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			return fmt.Errorf("parameter %q: not a JSON object", p.Name)
		}
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
