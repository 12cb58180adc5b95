package abi

import (
	"errors"
	"fmt"

	"github.com/nearabi/nearabi/inspect"
	"github.com/nearabi/nearabi/schema"
)

// UnitResult is the outcome of inspecting one source unit: the functions
// it exports, the definitions they registered and the functions that
// failed.
type UnitResult struct {
	ID        string
	Functions []*inspect.FunctionSpec
	Registry  *schema.Registry
	Failures  []*FunctionError
}

// Assemble merges unit results into one document. Units are taken in the
// given order and functions keep their order within each unit.
//
// A duplicate function name or a type name collision fails the whole batch.
// Per-function failures do not; they are returned alongside the document.
func Assemble(units []UnitResult, meta Metadata) (*Document, []*FunctionError, error) {
	var failures []*FunctionError
	seen := map[string]string{}
	for _, u := range units {
		for _, f := range u.Failures {
			if errors.Is(f.Err, ErrTypeNameCollision) {
				return nil, nil, f
			}
			failures = append(failures, f)
		}
		for _, fn := range u.Functions {
			if first, ok := seen[fn.Name]; ok {
				return nil, nil, &DuplicateError{Name: fn.Name, FirstUnit: first, SecondUnit: u.ID}
			}
			seen[fn.Name] = u.ID
		}
	}

	merged := schema.NewRegistry()
	for _, u := range units {
		if u.Registry == nil {
			continue
		}
		if err := merged.Merge(u.Registry); err != nil {
			return nil, nil, fmt.Errorf("merging definitions of %s: %w", u.ID, err)
		}
	}

	doc := &Document{
		SchemaVersion: SchemaVersion,
		Metadata:      meta,
		Body:          Body{Functions: []Function{}, RootSchema: merged.RootSchema()},
	}
	for _, u := range units {
		for _, spec := range u.Functions {
			fn, err := buildFunction(spec, merged)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %s: %w", u.ID, spec.Name, err)
			}
			doc.Body.Functions = append(doc.Body.Functions, fn)
		}
	}
	return doc, failures, nil
}

func buildFunction(spec *inspect.FunctionSpec, reg *schema.Registry) (Function, error) {
	fn := Function{
		Name:      spec.Name,
		Doc:       spec.Doc,
		Kind:      spec.Kind,
		Modifiers: inspect.SortModifiers(spec.Modifiers),
	}
	if len(fn.Modifiers) == 0 {
		fn.Modifiers = nil
	}

	if len(spec.Params) > 0 {
		fn.Params = &Parameters{SerializationType: spec.Serialization}
		for _, p := range spec.Params {
			ts, err := typeSchema(p.Type, spec.Serialization, reg)
			if err != nil {
				return Function{}, fmt.Errorf("parameter %q: %w", p.Name, err)
			}
			fn.Params.Args = append(fn.Params.Args, Arg{Name: p.Name, TypeSchema: ts})
		}
	}
	if spec.Result != nil {
		ts, err := typeSchema(spec.Result, spec.Serialization, reg)
		if err != nil {
			return Function{}, fmt.Errorf("result: %w", err)
		}
		fn.Result = &TypeInfo{SerializationType: spec.Serialization, TypeSchema: ts}
	}
	return fn, nil
}

func typeSchema(d *schema.Descriptor, mode inspect.Serialization, reg *schema.Registry) (any, error) {
	if err := reg.CheckReferences(d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDanglingReference, err)
	}
	if mode == inspect.SerializationBorsh {
		return schema.Borsh(d, reg)
	}
	return schema.Render(d), nil
}
