// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"strings"

	"google.golang.org/genai"
)

// SchemaToJSONSchema converts schema to a JSON Schema document.
func SchemaToJSONSchema(schema *genai.Schema) map[string]any {
	if schema == nil {
		return map[string]any{}
	}

	out := make(map[string]any)
	if schema.Type != "" && schema.Type != genai.TypeUnspecified {
		typ := strings.ToLower(string(schema.Type))
		if schema.Nullable != nil && *schema.Nullable {
			out["type"] = []any{typ, "null"}
		} else {
			out["type"] = typ
		}
	}
	if schema.Description != "" {
		out["description"] = schema.Description
	}
	if schema.Format != "" && schema.Type == genai.TypeString {
		out["format"] = schema.Format
	}
	if schema.Pattern != "" {
		out["pattern"] = schema.Pattern
	}
	if len(schema.Enum) > 0 {
		enum := make([]any, len(schema.Enum))
		for i, e := range schema.Enum {
			enum[i] = e
		}
		out["enum"] = enum
	}
	if schema.Items != nil {
		out["items"] = SchemaToJSONSchema(schema.Items)
	}
	if len(schema.Properties) > 0 {
		props := make(map[string]any, len(schema.Properties))
		for name, prop := range schema.Properties {
			props[name] = SchemaToJSONSchema(prop)
		}
		out["properties"] = props
	}
	if len(schema.Required) > 0 {
		required := make([]any, len(schema.Required))
		for i, r := range schema.Required {
			required[i] = r
		}
		out["required"] = required
	}
	if len(schema.AnyOf) > 0 {
		anyOf := make([]any, len(schema.AnyOf))
		for i, s := range schema.AnyOf {
			anyOf[i] = SchemaToJSONSchema(s)
		}
		out["anyOf"] = anyOf
	}

	setInt := func(key string, v *int64) {
		if v != nil {
			out[key] = *v
		}
	}
	setInt("minLength", schema.MinLength)
	setInt("maxLength", schema.MaxLength)
	setInt("minItems", schema.MinItems)
	setInt("maxItems", schema.MaxItems)
	setInt("minProperties", schema.MinProperties)
	setInt("maxProperties", schema.MaxProperties)
	if schema.Minimum != nil {
		out["minimum"] = *schema.Minimum
	}
	if schema.Maximum != nil {
		out["maximum"] = *schema.Maximum
	}

	return out
}
