// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-json-experiment/json"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

// TypedFunc is a tool function whose arguments decode into In.
type TypedFunc[In, Out any] func(ctx context.Context, in In, toolCtx *types.ToolContext) (Out, error)

// NewTypedFunctionTool returns a [FunctionTool] whose parameters schema is derived from the struct type In.
//
// Field names follow the json tag, a "description" tag documents the field.
// Pointer and omitempty fields are optional. Struct results are returned to
// the model as JSON objects.
func NewTypedFunctionTool[In, Out any](name, description string, fn TypedFunc[In, Out], opts ...FunctionToolOption) (*FunctionTool, error) {
	inType := reflect.TypeFor[In]()
	for inType.Kind() == reflect.Pointer {
		inType = inType.Elem()
	}
	if inType.Kind() != reflect.Struct {
		return nil, types.NewConfigError("tool %s: arguments must be a struct, got %v", name, inType)
	}
	params, err := TypeToSchema(inType)
	if err != nil {
		return nil, types.NewConfigError("tool %s: %v", name, err)
	}

	call := func(ctx context.Context, args map[string]any, toolCtx *types.ToolContext) (any, error) {
		var in In
		if err := convertJSON(args, &in); err != nil {
			return nil, fmt.Errorf("decode arguments: %w", err)
		}
		out, err := fn(ctx, in, toolCtx)
		if err != nil {
			return nil, err
		}
		return resultValue(out)
	}

	return NewFunctionTool(name, description, call, append([]FunctionToolOption{WithParameters(params)}, opts...)...)
}

// resultValue converts struct results into maps so the model sees their fields.
func resultValue(out any) (any, error) {
	v := reflect.ValueOf(out)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return out, nil
	}
	var m map[string]any
	if err := convertJSON(out, &m); err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return m, nil
}

func convertJSON(in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// TypeToSchema converts a Go type to a [*genai.Schema].
func TypeToSchema(t reflect.Type) (*genai.Schema, error) {
	if t.Kind() == reflect.Pointer {
		return TypeToSchema(t.Elem())
	}

	switch t.Kind() {
	case reflect.String:
		return &genai.Schema{Type: genai.TypeString}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &genai.Schema{Type: genai.TypeInteger}, nil

	case reflect.Float32, reflect.Float64:
		return &genai.Schema{Type: genai.TypeNumber}, nil

	case reflect.Bool:
		return &genai.Schema{Type: genai.TypeBoolean}, nil

	case reflect.Slice, reflect.Array:
		items, err := TypeToSchema(t.Elem())
		if err != nil {
			return nil, err
		}
		return &genai.Schema{Type: genai.TypeArray, Items: items}, nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map keys must be strings, got %v", t.Key().Kind())
		}
		return &genai.Schema{Type: genai.TypeObject}, nil

	case reflect.Struct:
		return structToSchema(t)

	case reflect.Interface:
		return &genai.Schema{}, nil

	default:
		return nil, fmt.Errorf("unsupported type: %v", t.Kind())
	}
}

func structToSchema(t reflect.Type) (*genai.Schema, error) {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema),
	}

	for field := range fields(t) {
		name := jsonFieldName(field)
		if name == "-" {
			continue
		}

		fieldSchema, err := TypeToSchema(field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		if desc := field.Tag.Get("description"); desc != "" {
			fieldSchema.Description = desc
		}
		schema.Properties[name] = fieldSchema
		schema.PropertyOrdering = append(schema.PropertyOrdering, name)

		if isRequiredField(field) {
			schema.Required = append(schema.Required, name)
		}
	}

	return schema, nil
}

func fields(t reflect.Type) func(yield func(reflect.StructField) bool) {
	return func(yield func(reflect.StructField) bool) {
		for i := range t.NumField() {
			if f := t.Field(i); f.IsExported() && !yield(f) {
				return
			}
		}
	}
}

// jsonFieldName returns the name of the field in JSON, "-" for skipped fields.
func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" {
		return field.Name
	}
	return name
}

// isRequiredField reports whether the field is neither a pointer nor omitted when empty.
func isRequiredField(field reflect.StructField) bool {
	if field.Type.Kind() == reflect.Pointer {
		return false
	}
	_, opts, _ := strings.Cut(field.Tag.Get("json"), ",")
	for opt := range strings.SplitSeq(opts, ",") {
		if opt == "omitempty" || opt == "omitzero" {
			return false
		}
	}
	return true
}
