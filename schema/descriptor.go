// Package schema derives language-neutral type descriptors from resolved
// Python annotations and renders them as JSON Schema (draft-07) or borsh
// declarations.
//
// Records and enums are never inlined at their use sites. The Deriver stores
// each one in a Registry under its simple name and hands back a Reference,
// which keeps recursive types finite and shared types deduplicated.
package schema

import (
	"reflect"
	"slices"
)

// Kind tags the variant held by a Descriptor.
type Kind int

const (
	KindPrimitive Kind = iota + 1
	KindOptional
	KindSequence
	KindMapping
	KindTuple
	KindUnion
	KindRecord
	KindReference
	KindEnum
	KindLiteral
	KindAny
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindOptional:
		return "optional"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindTuple:
		return "tuple"
	case KindUnion:
		return "union"
	case KindRecord:
		return "record"
	case KindReference:
		return "reference"
	case KindEnum:
		return "enum"
	case KindLiteral:
		return "literal"
	case KindAny:
		return "any"
	default:
		return "unknown"
	}
}

// Primitive is a JSON Schema primitive type name.
type Primitive string

const (
	Null    Primitive = "null"
	Boolean Primitive = "boolean"
	Integer Primitive = "integer"
	Number  Primitive = "number"
	String  Primitive = "string"
)

// FormatBinary marks strings carrying raw bytes.
const FormatBinary = "binary"

// Discriminant selects how a Union renders.
type Discriminant int

const (
	// DiscriminateByType renders {"type": [...]}. Only valid when every
	// variant is a distinct bare primitive.
	DiscriminateByType Discriminant = iota + 1
	// DiscriminateAnyOf renders {"anyOf": [...]}.
	DiscriminateAnyOf
)

// Descriptor is the derived shape of a type.
type Descriptor struct {
	Kind Kind

	Primitive Primitive // KindPrimitive; also the value type of KindEnum/KindLiteral when uniform
	Format    string    // KindPrimitive

	Inner  *Descriptor // KindOptional inner, KindSequence item, KindMapping value
	Unique bool        // KindSequence built from a set type

	Items    []*Descriptor // KindTuple items, KindUnion variants
	Strategy Discriminant  // KindUnion

	Name   string  // KindRecord, KindReference, KindEnum
	Fields []Field // KindRecord
	Values []any   // KindEnum, KindLiteral

	Doc     string
	Pattern string
	Minimum *float64
}

// Field is a record field. Order is declaration order.
type Field struct {
	Name     string
	Type     *Descriptor
	Required bool
}

// NewPrimitive returns a bare primitive descriptor.
func NewPrimitive(p Primitive) *Descriptor {
	return &Descriptor{Kind: KindPrimitive, Primitive: p}
}

// Bytes returns the descriptor for raw byte strings.
func Bytes() *Descriptor {
	return &Descriptor{Kind: KindPrimitive, Primitive: String, Format: FormatBinary}
}

// Any returns the unconstrained descriptor.
func Any() *Descriptor { return &Descriptor{Kind: KindAny} }

// NewSequence returns a homogeneous sequence of item.
func NewSequence(item *Descriptor, unique bool) *Descriptor {
	return &Descriptor{Kind: KindSequence, Inner: item, Unique: unique}
}

// NewMapping returns a string-keyed mapping to value.
func NewMapping(value *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindMapping, Inner: value}
}

// NewTuple returns a fixed-length heterogeneous sequence.
func NewTuple(items ...*Descriptor) *Descriptor {
	return &Descriptor{Kind: KindTuple, Items: items}
}

// NewReference returns a pointer to a registered definition.
func NewReference(name string) *Descriptor {
	return &Descriptor{Kind: KindReference, Name: name}
}

// NewLiteral returns an inline enumeration of the distinct literal values.
// A literal whose only value is None is the null primitive.
func NewLiteral(values ...any) *Descriptor {
	var distinct []any
	for _, v := range values {
		if !slices.Contains(distinct, v) {
			distinct = append(distinct, v)
		}
	}
	values = distinct
	p := uniformPrimitive(values)
	if p == Null {
		return NewPrimitive(Null)
	}
	return &Descriptor{Kind: KindLiteral, Values: values, Primitive: p}
}

// NewOptional wraps inner so that null is also accepted.
//
// Optional(Optional(x)) is Optional(x), Optional(null) is null and Optional
// of a union folds null into the union's variants.
func NewOptional(inner *Descriptor) *Descriptor {
	switch {
	case inner.Kind == KindOptional, inner.Kind == KindAny, inner.IsNull():
		return inner
	case inner.Kind == KindLiteral && inner.AcceptsNull():
		return inner
	case inner.Kind == KindUnion:
		return NewUnion(append(append([]*Descriptor{}, inner.Items...), NewPrimitive(Null)))
	}
	return &Descriptor{Kind: KindOptional, Inner: inner}
}

// NewUnion normalizes variants into the smallest equivalent descriptor.
//
// Nested unions and optionals are flattened and duplicates removed. A single
// remaining non-null variant plus null collapses to Optional, a single
// variant collapses to itself.
func NewUnion(variants []*Descriptor) *Descriptor {
	var flat []*Descriptor
	var walk func(d *Descriptor)
	walk = func(d *Descriptor) {
		switch d.Kind {
		case KindUnion:
			for _, v := range d.Items {
				walk(v)
			}
		case KindOptional:
			walk(d.Inner)
			walk(NewPrimitive(Null))
		default:
			flat = append(flat, d)
		}
	}
	for _, v := range variants {
		walk(v)
	}

	var nonNull []*Descriptor
	hasNull := false
	for _, v := range flat {
		if v.IsNull() {
			hasNull = true
			continue
		}
		if v.Kind == KindAny {
			return Any()
		}
		if !containsEqual(nonNull, v) {
			nonNull = append(nonNull, v)
		}
	}

	switch len(nonNull) {
	case 0:
		return NewPrimitive(Null)
	case 1:
		if hasNull && !nonNull[0].AcceptsNull() {
			return &Descriptor{Kind: KindOptional, Inner: nonNull[0]}
		}
		return nonNull[0]
	}

	items := nonNull
	if hasNull {
		items = append(items, NewPrimitive(Null))
	}
	return &Descriptor{Kind: KindUnion, Items: items, Strategy: chooseStrategy(items)}
}

func chooseStrategy(items []*Descriptor) Discriminant {
	seen := make(map[Primitive]bool, len(items))
	for _, it := range items {
		if !it.isBarePrimitive() || seen[it.Primitive] {
			return DiscriminateAnyOf
		}
		seen[it.Primitive] = true
	}
	// integer is a subset of number, so a type list would not discriminate
	if seen[Integer] && seen[Number] {
		return DiscriminateAnyOf
	}
	return DiscriminateByType
}

// IsNull reports whether d is the null primitive.
func (d *Descriptor) IsNull() bool {
	return d.Kind == KindPrimitive && d.Primitive == Null
}

// AcceptsNull reports whether null is a valid value for d.
func (d *Descriptor) AcceptsNull() bool {
	switch d.Kind {
	case KindOptional, KindAny:
		return true
	case KindPrimitive:
		return d.Primitive == Null
	case KindLiteral:
		for _, v := range d.Values {
			if v == nil {
				return true
			}
		}
	case KindUnion:
		for _, v := range d.Items {
			if v.IsNull() {
				return true
			}
		}
	}
	return false
}

func (d *Descriptor) isBarePrimitive() bool {
	return d.Kind == KindPrimitive && d.Format == "" && d.Pattern == "" && d.Minimum == nil && d.Doc == ""
}

// Equal reports structural equality.
func Equal(a, b *Descriptor) bool {
	return reflect.DeepEqual(a, b)
}

func containsEqual(list []*Descriptor, d *Descriptor) bool {
	for _, x := range list {
		if Equal(x, d) {
			return true
		}
	}
	return false
}

// References returns the names of all references reachable from d without
// following them into the registry.
func References(d *Descriptor) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(*Descriptor)
	walk = func(d *Descriptor) {
		if d == nil {
			return
		}
		if d.Kind == KindReference && !seen[d.Name] {
			seen[d.Name] = true
			out = append(out, d.Name)
		}
		walk(d.Inner)
		for _, it := range d.Items {
			walk(it)
		}
		for _, f := range d.Fields {
			walk(f.Type)
		}
	}
	walk(d)
	return out
}

func uniformPrimitive(values []any) Primitive {
	var p Primitive
	for _, v := range values {
		var q Primitive
		switch v.(type) {
		case string:
			q = String
		case int64, int:
			q = Integer
		case float64:
			q = Number
		case bool:
			q = Boolean
		case nil:
			q = Null
		default:
			return ""
		}
		if p != "" && p != q {
			return ""
		}
		p = q
	}
	return p
}
