// Package tools describes callable tools: a name, a description, a JSON Schema
// for the input and the function that handles a call.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrInvalidArguments = errors.New("invalid tool arguments")
	ErrToolNotFound     = errors.New("tool not found")
)

// HandlerFunc receives the raw JSON arguments of a call.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (string, error)

// Tool is a schema paired with a handler. Tools built with New or NewFunction
// validate arguments against Schema before the handler runs; a Tool literal does not.
type Tool struct {
	Name        string
	Description string
	Schema      json.RawMessage
	Handler     HandlerFunc

	validator *gojsonschema.Schema
}

// New compiles schema for argument validation.
func New(name, description string, schema json.RawMessage, handler HandlerFunc) (Tool, error) {
	validator, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return Tool{}, fmt.Errorf("tool %s: compile schema: %w", name, err)
	}
	return Tool{
		Name:        name,
		Description: description,
		Schema:      schema,
		Handler:     handler,
		validator:   validator,
	}, nil
}

// NewFunction reflects the input schema from In, so the schema keys are exactly
// the JSON names the handler decodes.
func NewFunction[In any](name, description string, fn func(ctx context.Context, in In) (string, error)) (Tool, error) {
	schema, err := ReflectSchema[In]()
	if err != nil {
		return Tool{}, fmt.Errorf("tool %s: %w", name, err)
	}

	handler := func(ctx context.Context, args json.RawMessage) (string, error) {
		var in In
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		return fn(ctx, in)
	}

	return New(name, description, schema, handler)
}

// MustNewFunction is NewFunction for input types fixed at compile time.
func MustNewFunction[In any](name, description string, fn func(ctx context.Context, in In) (string, error)) Tool {
	t, err := NewFunction(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}

// ReflectSchema returns the inline JSON Schema of In without a $schema marker.
func ReflectSchema[In any]() (json.RawMessage, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	s := r.Reflect(new(In))
	s.Version = ""

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

// Invoke validates args (when the tool has a compiled schema) and runs the handler.
func (t Tool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	if t.Handler == nil {
		return "", fmt.Errorf("tool %s has no handler", t.Name)
	}
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}

	if t.validator != nil {
		result, err := t.validator.Validate(gojsonschema.NewBytesLoader(args))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		if !result.Valid() {
			msgs := make([]string, 0, len(result.Errors()))
			for _, desc := range result.Errors() {
				msgs = append(msgs, desc.String())
			}
			return "", fmt.Errorf("%w: %s", ErrInvalidArguments, strings.Join(msgs, "; "))
		}
	}

	return t.Handler(ctx, args)
}

// Params maps each top-level parameter name to its JSON type.
func (t Tool) Params() map[string]string {
	var s struct {
		Properties map[string]struct {
			Type any `json:"type"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(t.Schema, &s); err != nil {
		return nil
	}

	params := make(map[string]string, len(s.Properties))
	for name, prop := range s.Properties {
		switch v := prop.Type.(type) {
		case string:
			params[name] = v
		case []any:
			parts := make([]string, 0, len(v))
			for _, p := range v {
				parts = append(parts, fmt.Sprint(p))
			}
			params[name] = strings.Join(parts, "|")
		default:
			params[name] = ""
		}
	}
	return params
}

// Find returns the tool called name.
func Find(list []Tool, name string) (Tool, error) {
	for _, t := range list {
		if t.Name == name {
			return t, nil
		}
	}
	return Tool{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
}
