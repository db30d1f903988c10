package tools

import "fmt"

// validateArgs checks args against a JSON-Schema-shaped parameter
// definition, as produced by a Tool's Parameters(). It supports the subset
// of JSON-Schema the registry contract names: type, enum, numeric
// minimum/maximum, string minLength/maxLength, object required/properties,
// and array items, applied recursively. Unknown keys are permitted.
func validateArgs(schema map[string]interface{}, args map[string]interface{}) error {
	return validateValue(schema, args)
}

func validateValue(schema map[string]interface{}, value interface{}) error {
	if schema == nil {
		return nil
	}

	if t, ok := schema["type"].(string); ok {
		if err := checkType(t, value); err != nil {
			return err
		}
	}

	if enumVals, ok := schema["enum"].([]string); ok {
		if err := checkEnumStrings(enumVals, value); err != nil {
			return err
		}
	} else if enumVals, ok := schema["enum"].([]interface{}); ok {
		if err := checkEnum(enumVals, value); err != nil {
			return err
		}
	}

	switch v := value.(type) {
	case string:
		if minLen, ok := numericField(schema, "minLength"); ok && len(v) < int(minLen) {
			return fmt.Errorf("string shorter than minLength %d", int(minLen))
		}
		if maxLen, ok := numericField(schema, "maxLength"); ok && len(v) > int(maxLen) {
			return fmt.Errorf("string longer than maxLength %d", int(maxLen))
		}
	case float64:
		if min, ok := numericField(schema, "minimum"); ok && v < min {
			return fmt.Errorf("value %v below minimum %v", v, min)
		}
		if max, ok := numericField(schema, "maximum"); ok && v > max {
			return fmt.Errorf("value %v above maximum %v", v, max)
		}
	case map[string]interface{}:
		if err := validateObject(schema, v); err != nil {
			return err
		}
	case []interface{}:
		if itemSchema, ok := schema["items"].(map[string]interface{}); ok {
			for i, elem := range v {
				if err := validateValue(itemSchema, elem); err != nil {
					return fmt.Errorf("items[%d]: %w", i, err)
				}
			}
		}
	}

	return nil
}

func validateObject(schema map[string]interface{}, obj map[string]interface{}) error {
	if required, ok := schema["required"].([]string); ok {
		for _, key := range required {
			if _, present := obj[key]; !present {
				return fmt.Errorf("missing required field %q", key)
			}
		}
	}

	props, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return nil
	}
	for key, propSchemaRaw := range props {
		propSchema, ok := propSchemaRaw.(map[string]interface{})
		if !ok {
			continue
		}
		if val, present := obj[key]; present {
			if err := validateValue(propSchema, val); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	return nil
}

func checkType(t string, value interface{}) error {
	switch t {
	case "object":
		if _, ok := value.(map[string]interface{}); !ok {
			return fmt.Errorf("expected object")
		}
	case "array":
		if _, ok := value.([]interface{}); !ok {
			return fmt.Errorf("expected array")
		}
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string")
		}
	case "integer", "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("expected number")
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean")
		}
	}
	return nil
}

func checkEnumStrings(allowed []string, value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	for _, a := range allowed {
		if a == s {
			return nil
		}
	}
	return fmt.Errorf("value %q not in enum", s)
}

func checkEnum(allowed []interface{}, value interface{}) error {
	for _, a := range allowed {
		if a == value {
			return nil
		}
	}
	return fmt.Errorf("value %v not in enum", value)
}

func numericField(schema map[string]interface{}, key string) (float64, bool) {
	v, ok := schema[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
