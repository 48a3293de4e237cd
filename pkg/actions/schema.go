package actions

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	schemaOnce sync.Once
	schemas    map[Kind]*jsonschema.Schema
	schemaErr  error
)

// SchemaDocument returns the JSON Schema a reply object of kind k must satisfy.
// Only the parameters the kind requires are constrained; any other key is
// allowed and later ignored.
func SchemaDocument(k Kind) (map[string]any, error) {
	spec, ok := kindIndex[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}

	required := []string{ActionKey}
	props := map[string]any{
		ActionKey: map[string]any{"const": string(k)},
	}
	for _, f := range spec.Required {
		required = append(required, string(f))
		props[string(f)] = fieldSchema(fieldIndex[f])
	}

	return map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"type":       "object",
		"required":   required,
		"properties": props,
	}, nil
}

func fieldSchema(f FieldSpec) map[string]any {
	switch f.Type {
	case TypePoint:
		return map[string]any{
			"type":     "array",
			"minItems": 2,
			"maxItems": 2,
			"items":    map[string]any{"type": "number"},
		}
	case TypeNumber:
		return map[string]any{"type": "number"}
	default:
		s := map[string]any{"type": "string"}
		if len(f.Enum) > 0 {
			s["enum"] = f.Enum
		}
		return s
	}
}

func compileSchemas() {
	schemas = make(map[Kind]*jsonschema.Schema, len(kindTable))
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	for _, k := range kindTable {
		doc, err := SchemaDocument(k.Kind)
		if err != nil {
			schemaErr = err
			return
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			schemaErr = fmt.Errorf("actions: marshal schema %s: %w", k.Kind, err)
			return
		}
		url := fmt.Sprintf("https://screenpilot.schemas.local/actions/%s.schema.json", k.Kind)
		if err := c.AddResource(url, strings.NewReader(string(raw))); err != nil {
			schemaErr = fmt.Errorf("actions: load schema %s: %w", k.Kind, err)
			return
		}
		compiled, err := c.Compile(url)
		if err != nil {
			schemaErr = fmt.Errorf("actions: compile schema %s: %w", k.Kind, err)
			return
		}
		schemas[k.Kind] = compiled
	}
}

// Schema returns the compiled schema for kind k.
func Schema(k Kind) (*jsonschema.Schema, error) {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return nil, schemaErr
	}
	s, ok := schemas[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return s, nil
}

// FromObject builds a Command from a decoded reply object. The object must
// name a known action and carry every parameter that action requires with the
// right JSON shape; unrelated keys are dropped.
func FromObject(obj map[string]any) (Command, error) {
	name, ok := obj[ActionKey].(string)
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrMissingField, ActionKey)
	}
	if !IsKnownKind(name) {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	kind := Kind(name)

	schema, err := Schema(kind)
	if err != nil {
		return Command{}, err
	}
	if err := schema.Validate(obj); err != nil {
		return Command{}, fmt.Errorf("%s reply does not match schema: %w", kind, err)
	}

	cmd := Command{Kind: kind}
	for _, f := range kindIndex[kind].Required {
		switch f {
		case FieldCoordinate:
			p, err := toPoint(obj[string(f)])
			if err != nil {
				return Command{}, err
			}
			cmd.Coordinate = &p
		case FieldCoordinate2:
			p, err := toPoint(obj[string(f)])
			if err != nil {
				return Command{}, err
			}
			cmd.Coordinate2 = &p
		case FieldText:
			s := obj[string(f)].(string)
			cmd.Text = &s
		case FieldTime:
			n, err := toNumber(obj[string(f)])
			if err != nil {
				return Command{}, err
			}
			cmd.DurationSeconds = &n
		case FieldStatus:
			cmd.Status = obj[string(f)].(string)
		}
	}
	return cmd, cmd.Validate()
}

func toPoint(v any) (Point, error) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return Point{}, fmt.Errorf("coordinate must be a pair, got %T", v)
	}
	x, err := toNumber(arr[0])
	if err != nil {
		return Point{}, err
	}
	y, err := toNumber(arr[1])
	if err != nil {
		return Point{}, err
	}
	return Point{x, y}, nil
}

func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
