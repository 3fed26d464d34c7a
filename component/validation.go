package component

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/c360/filestreams/errors"
)

// Limits applied to raw component configs and instance names before they
// reach a factory.
const (
	MaxStringLength = 1024        // longest string value, key or instance name
	MaxJSONSize     = 1024 * 1024 // largest raw config in bytes
	MaxConfigDepth  = 10          // deepest object/array nesting
	MaxArrayLength  = 1000        // longest array
)

// Validatable is implemented by configs that check themselves after
// unmarshaling
type Validatable interface {
	Validate() error
}

// ValidateFactoryConfig rejects raw configs that are oversized, malformed,
// too deeply nested, or carry control characters in keys or values.
// An empty config is accepted; factories fill in defaults.
func ValidateFactoryConfig(raw json.RawMessage) error {
	if len(raw) > MaxJSONSize {
		return errors.WrapInvalid(
			fmt.Errorf("config size %d exceeds maximum %d", len(raw), MaxJSONSize),
			"component", "ValidateFactoryConfig", "size check")
	}
	if len(raw) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return errors.WrapInvalid(err, "component", "ValidateFactoryConfig", "decode config")
	}

	if path, err := checkConfigValue(doc, "", 0); err != nil {
		if path == "" {
			path = "(root)"
		}
		return errors.WrapInvalid(fmt.Errorf("%s: %w", path, err),
			"component", "ValidateFactoryConfig", "check config")
	}
	return nil
}

// checkConfigValue walks a decoded config and returns the path of the first
// offending value
func checkConfigValue(v any, path string, depth int) (string, error) {
	if depth > MaxConfigDepth {
		return path, fmt.Errorf("nesting depth exceeds %d", MaxConfigDepth)
	}

	switch val := v.(type) {
	case string:
		return path, checkConfigString(val)
	case json.Number, bool, nil:
		return "", nil
	case []any:
		if len(val) > MaxArrayLength {
			return path, fmt.Errorf("array length %d exceeds %d", len(val), MaxArrayLength)
		}
		for i, elem := range val {
			if p, err := checkConfigValue(elem, fmt.Sprintf("%s[%d]", path, i), depth+1); err != nil {
				return p, err
			}
		}
	case map[string]any:
		for key, elem := range val {
			child := key
			if path != "" {
				child = path + "." + key
			}
			if err := checkConfigString(key); err != nil {
				return child, fmt.Errorf("key: %w", err)
			}
			if p, err := checkConfigValue(elem, child, depth+1); err != nil {
				return p, err
			}
		}
	default:
		return path, fmt.Errorf("unexpected type %T", v)
	}
	return "", nil
}

func checkConfigString(s string) error {
	if len(s) > MaxStringLength {
		return fmt.Errorf("string length %d exceeds %d", len(s), MaxStringLength)
	}
	for _, r := range s {
		// line separators are legitimate config values
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return fmt.Errorf("control character 0x%02x", r)
		}
	}
	return nil
}

// SafeUnmarshal checks raw with ValidateFactoryConfig, decodes it into
// target and, when target is Validatable, runs its Validate. Unknown fields
// are ignored.
func SafeUnmarshal(raw json.RawMessage, target any) error {
	if reflect.TypeOf(target).Kind() != reflect.Ptr {
		return errors.WrapInvalid(fmt.Errorf("target must be a pointer, got %T", target),
			"component", "SafeUnmarshal", "target type check")
	}
	if err := ValidateFactoryConfig(raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return errors.WrapInvalid(err, "component", "SafeUnmarshal", "decode config")
	}
	if v, ok := target.(Validatable); ok {
		if err := v.Validate(); err != nil {
			return errors.Wrap(err, "component", "SafeUnmarshal", "validate config")
		}
	}
	return nil
}

// ValidateComponentName accepts instance names made of letters, digits,
// dash, underscore and dot
func ValidateComponentName(name string) error {
	switch {
	case name == "":
		return errors.WrapInvalid(errors.ErrInvalidConfig, "component", "ValidateComponentName", "empty name")
	case len(name) > MaxStringLength:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "component", "ValidateComponentName", "name too long")
	}
	for _, r := range name {
		if !isNameRune(r) {
			return errors.WrapInvalid(fmt.Errorf("%w: %q in %q", errors.ErrInvalidConfig, r, name),
				"component", "ValidateComponentName", "name characters")
		}
	}
	return nil
}

func isNameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.'
}
