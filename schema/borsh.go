package schema

import (
	"fmt"
	"strings"
)

// BorshTypeSchema is the type_schema emitted for borsh-serialized
// parameters and results. Declaration names the type in borsh notation;
// Definitions holds every named type it reaches.
type BorshTypeSchema struct {
	Declaration string                      `json:"declaration"`
	Definitions map[string]*BorshDefinition `json:"definitions,omitempty"`
}

// BorshDefinition is a named borsh type. Exactly one field is set, except
// for opaque types where none is.
type BorshDefinition struct {
	Struct []BorshField `json:"struct,omitempty"`
	Enum   []string     `json:"enum,omitempty"`
	Alias  string       `json:"alias,omitempty"`
}

// BorshField is one struct field.
type BorshField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

var borshAliases = map[string]string{
	"AccountId":    "String",
	"Balance":      "u128",
	"U128":         "u128",
	"Gas":          "u64",
	"U64":          "u64",
	"Timestamp":    "u64",
	"BlockHeight":  "u64",
	"StorageUsage": "u64",
	"PublicKey":    "String",
}

// Borsh renders d as a borsh declaration, resolving references through reg.
func Borsh(d *Descriptor, reg *Registry) (*BorshTypeSchema, error) {
	b := &borshBuilder{reg: reg, defs: map[string]*BorshDefinition{}}
	decl, err := b.decl(d)
	if err != nil {
		return nil, err
	}
	out := &BorshTypeSchema{Declaration: decl}
	if len(b.defs) > 0 {
		out.Definitions = b.defs
	}
	return out, nil
}

type borshBuilder struct {
	reg  *Registry
	defs map[string]*BorshDefinition
}

func (b *borshBuilder) decl(d *Descriptor) (string, error) {
	switch d.Kind {
	case KindPrimitive:
		switch d.Primitive {
		case Null:
			return "()", nil
		case Boolean:
			return "bool", nil
		case Integer:
			return "i64", nil
		case Number:
			return "f64", nil
		case String:
			if d.Format == FormatBinary {
				return "Vec<u8>", nil
			}
			return "String", nil
		}

	case KindOptional:
		inner, err := b.decl(d.Inner)
		if err != nil {
			return "", err
		}
		return "Option<" + inner + ">", nil

	case KindSequence:
		inner, err := b.decl(d.Inner)
		if err != nil {
			return "", err
		}
		if d.Unique {
			return "HashSet<" + inner + ">", nil
		}
		return "Vec<" + inner + ">", nil

	case KindMapping:
		inner, err := b.decl(d.Inner)
		if err != nil {
			return "", err
		}
		return "HashMap<String, " + inner + ">", nil

	case KindTuple:
		parts := make([]string, len(d.Items))
		for i, it := range d.Items {
			p, err := b.decl(it)
			if err != nil {
				return "", err
			}
			parts[i] = p
		}
		return "(" + strings.Join(parts, ", ") + ")", nil

	case KindLiteral:
		if d.Primitive == "" || d.Primitive == Null {
			break
		}
		return b.decl(NewPrimitive(d.Primitive))

	case KindReference:
		return d.Name, b.define(d.Name)
	}
	return "", fmt.Errorf("%w: %s values have no borsh encoding", ErrUnsupportedType, d.Kind)
}

func (b *borshBuilder) define(name string) error {
	if _, ok := b.defs[name]; ok {
		return nil
	}
	def, ok := b.reg.Lookup(name)
	if !ok {
		return fmt.Errorf("unresolved reference %q", name)
	}
	out := &BorshDefinition{}
	// placeholder first so recursive types terminate
	b.defs[name] = out

	if alias, ok := borshAliases[name]; ok && def.QualifiedName == BuiltinQualifier+name {
		out.Alias = alias
		return nil
	}
	switch def.Type.Kind {
	case KindRecord:
		for _, f := range def.Type.Fields {
			t, err := b.decl(f.Type)
			if err != nil {
				return fmt.Errorf("field %s.%s: %w", name, f.Name, err)
			}
			out.Struct = append(out.Struct, BorshField{Name: f.Name, Type: t})
		}
	case KindEnum:
		for _, v := range def.Type.Values {
			out.Enum = append(out.Enum, fmt.Sprint(v))
		}
	default:
		t, err := b.decl(def.Type)
		if err != nil {
			return err
		}
		out.Alias = t
	}
	return nil
}
