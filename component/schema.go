package component

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError represents a validation error for a specific configuration field.
//
// Codes:
//   - "required": Field is required but missing
//   - "min", "max": Numeric value outside bounds
//   - "enum": Value not in allowed enum values
//   - "type": Value doesn't match expected type
//   - "syntax": Document is not valid JSON
//   - "invalid": Any other schema violation
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// jsonTypes maps schema tag types onto JSON Schema types
var jsonTypes = map[string]string{
	"string": "string",
	"enum":   "string",
	"int":    "integer",
	"float":  "number",
	"bool":   "boolean",
	"array":  "array",
	"object": "object",
	"ports":  "object",
}

// ToJSONSchema renders a ConfigSchema as a JSON Schema document. Unknown
// properties are allowed.
func ToJSONSchema(schema ConfigSchema) map[string]any {
	properties := make(map[string]any, len(schema.Properties))
	for name, prop := range schema.Properties {
		p := map[string]any{"description": prop.Description}
		if t, ok := jsonTypes[prop.Type]; ok {
			p["type"] = t
		}
		if len(prop.Enum) > 0 {
			enum := make([]any, len(prop.Enum))
			for i, v := range prop.Enum {
				enum[i] = v
			}
			p["enum"] = enum
		}
		if prop.Minimum != nil {
			p["minimum"] = *prop.Minimum
		}
		if prop.Maximum != nil {
			p["maximum"] = *prop.Maximum
		}
		if prop.Default != nil {
			p["default"] = prop.Default
		}
		properties[name] = p
	}

	doc := map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": true,
	}
	if len(schema.Required) > 0 {
		required := make([]any, len(schema.Required))
		for i, r := range schema.Required {
			required[i] = r
		}
		doc["required"] = required
	}
	return doc
}

// ValidateConfig validates a raw JSON configuration against a ConfigSchema.
// It returns every violation found; an empty result means the configuration
// is valid. An empty document is treated as {}.
func ValidateConfig(rawConfig json.RawMessage, schema ConfigSchema) []ValidationError {
	if trimmed := strings.TrimSpace(string(rawConfig)); trimmed == "" || trimmed == "null" {
		rawConfig = json.RawMessage("{}")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(ToJSONSchema(schema)),
		gojsonschema.NewBytesLoader(rawConfig),
	)
	if err != nil {
		return []ValidationError{{Field: "(root)", Message: err.Error(), Code: "syntax"}}
	}
	if result.Valid() {
		return nil
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		errs = append(errs, toValidationError(re))
	}
	sort.Slice(errs, func(i, j int) bool {
		if errs[i].Field != errs[j].Field {
			return errs[i].Field < errs[j].Field
		}
		return errs[i].Code < errs[j].Code
	})
	return errs
}

func toValidationError(re gojsonschema.ResultError) ValidationError {
	field := re.Field()
	code := "invalid"

	switch re.Type() {
	case "required":
		code = "required"
		if prop, ok := re.Details()["property"].(string); ok {
			field = prop
		}
	case "number_gte", "number_gt":
		code = "min"
	case "number_lte", "number_lt":
		code = "max"
	case "enum":
		code = "enum"
	case "invalid_type":
		code = "type"
	}

	return ValidationError{Field: field, Message: re.Description(), Code: code}
}

// GetProperties filters schema properties by category. Properties without a
// category count as "advanced"; an empty category returns everything.
func GetProperties(schema ConfigSchema, category string) map[string]PropertySchema {
	filtered := make(map[string]PropertySchema)

	for name, prop := range schema.Properties {
		propCategory := prop.Category
		if propCategory == "" {
			propCategory = "advanced"
		}
		if category == "" || propCategory == category {
			filtered[name] = prop
		}
	}

	return filtered
}

// IsComplexType returns true if a property type cannot be rendered as a
// single scalar value.
func IsComplexType(propType string) bool {
	return propType == "object" || propType == "array" || propType == "ports"
}

// SortedPropertyNames returns property names with "basic" properties first,
// then alphabetically within each category.
func SortedPropertyNames(schema ConfigSchema) []string {
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}

	rank := func(name string) int {
		if schema.Properties[name].Category == "basic" {
			return 0
		}
		return 1
	}
	sort.Slice(names, func(i, j int) bool {
		if ri, rj := rank(names[i]), rank(names[j]); ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})

	return names
}
