package schema

import (
	"fmt"
	"strings"

	"github.com/nearabi/nearabi/typehint"
)

// Location names what is being derived, for error messages.
type Location struct {
	Function string
	Param    string // empty for the return type
}

// Deriver turns annotations into descriptors, registering every record,
// enum and builtin alias it meets in its Registry.
type Deriver struct {
	reg *Registry
}

// NewDeriver returns a Deriver writing into reg.
func NewDeriver(reg *Registry) *Deriver {
	return &Deriver{reg: reg}
}

// Registry returns the registry the Deriver writes into.
func (d *Deriver) Registry() *Registry { return d.reg }

// Derive returns the descriptor for h. On failure nothing registered during
// this call is kept, so a failed derivation never leaves dangling
// references behind.
func (d *Deriver) Derive(h *typehint.Hint, loc Location) (*Descriptor, error) {
	if h == nil {
		return nil, &DeriveError{Function: loc.Function, Param: loc.Param, Err: ErrMissingTypeAnnotation}
	}
	mark := d.reg.Mark()
	desc, err := d.derive(h)
	if err != nil {
		d.reg.Rollback(mark)
		return nil, &DeriveError{Function: loc.Function, Param: loc.Param, Type: h.String(), Err: err}
	}
	return desc, nil
}

func (d *Deriver) derive(h *typehint.Hint) (*Descriptor, error) {
	switch h.Kind {
	case typehint.KindNone:
		return NewPrimitive(Null), nil
	case typehint.KindRecord:
		return d.deriveRecord(h.Record)
	case typehint.KindEnum:
		return d.deriveEnum(h.Enum)
	case typehint.KindEllipsis:
		return nil, fmt.Errorf("%w: ... is only valid as Tuple[T, ...]", ErrUnsupportedType)
	case typehint.KindLiteral:
		return nil, fmt.Errorf("%w: bare literal %s", ErrUnsupportedType, h)
	case typehint.KindName:
		return d.deriveNamed(h)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, h)
}

func (d *Deriver) deriveNamed(h *typehint.Hint) (*Descriptor, error) {
	switch h.Name {
	case "str":
		return d.leaf(h, NewPrimitive(String))
	case "int":
		return d.leaf(h, NewPrimitive(Integer))
	case "float":
		return d.leaf(h, NewPrimitive(Number))
	case "bool":
		return d.leaf(h, NewPrimitive(Boolean))
	case "None", "NoneType":
		return d.leaf(h, NewPrimitive(Null))
	case "bytes", "bytearray":
		return d.leaf(h, Bytes())
	case "Any", "object":
		return d.leaf(h, Any())

	case "Optional":
		if len(h.Args) != 1 {
			return nil, fmt.Errorf("%w: Optional takes exactly one argument", ErrUnsupportedType)
		}
		inner, err := d.derive(h.Args[0])
		if err != nil {
			return nil, err
		}
		return NewOptional(inner), nil

	case "Union":
		if len(h.Args) == 0 {
			return nil, fmt.Errorf("%w: Union needs at least one member", ErrUnderspecifiedContainer)
		}
		variants, err := d.deriveAll(h.Args)
		if err != nil {
			return nil, err
		}
		return NewUnion(variants), nil

	case "List", "list", "Sequence", "MutableSequence", "Iterable", "Collection":
		item, err := d.single(h)
		if err != nil {
			return nil, err
		}
		return NewSequence(item, false), nil

	case "Set", "set", "FrozenSet", "frozenset", "AbstractSet", "MutableSet":
		item, err := d.single(h)
		if err != nil {
			return nil, err
		}
		return NewSequence(item, true), nil

	case "Dict", "dict", "Mapping", "MutableMapping":
		return d.deriveMapping(h)

	case "Tuple", "tuple":
		return d.deriveTuple(h)

	case "Literal":
		return deriveLiteral(h)

	case "Annotated":
		if len(h.Args) == 0 {
			return nil, fmt.Errorf("%w: Annotated needs a type argument", ErrUnsupportedType)
		}
		return d.derive(h.Args[0])
	}

	if IsBuiltin(h.Name) {
		if len(h.Args) > 0 {
			return nil, fmt.Errorf("%w: %s does not take arguments", ErrUnsupportedType, h.Name)
		}
		return d.builtin(h.Name)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, h.Name)
}

// leaf rejects subscripts on scalar names like int[str].
func (d *Deriver) leaf(h *typehint.Hint, desc *Descriptor) (*Descriptor, error) {
	if len(h.Args) > 0 {
		return nil, fmt.Errorf("%w: %s does not take arguments", ErrUnsupportedType, h.Name)
	}
	return desc, nil
}

func (d *Deriver) single(h *typehint.Hint) (*Descriptor, error) {
	switch len(h.Args) {
	case 0:
		return nil, fmt.Errorf("%w: %s needs an element type", ErrUnderspecifiedContainer, h.Name)
	case 1:
		return d.derive(h.Args[0])
	default:
		return nil, fmt.Errorf("%w: %s takes one element type, got %d", ErrUnsupportedType, h.Name, len(h.Args))
	}
}

func (d *Deriver) deriveAll(hints []*typehint.Hint) ([]*Descriptor, error) {
	out := make([]*Descriptor, 0, len(hints))
	for _, a := range hints {
		desc, err := d.derive(a)
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	return out, nil
}

func (d *Deriver) deriveMapping(h *typehint.Hint) (*Descriptor, error) {
	if len(h.Args) != 2 {
		if len(h.Args) == 0 {
			return nil, fmt.Errorf("%w: %s needs key and value types", ErrUnderspecifiedContainer, h.Name)
		}
		return nil, fmt.Errorf("%w: %s takes a key and a value type", ErrUnderspecifiedContainer, h.Name)
	}
	key, err := d.derive(h.Args[0])
	if err != nil {
		return nil, err
	}
	if !d.isStringLike(key) {
		return nil, fmt.Errorf("%w: keys must be strings, got %s", ErrUnsupportedKeyType, h.Args[0])
	}
	value, err := d.derive(h.Args[1])
	if err != nil {
		return nil, err
	}
	return NewMapping(value), nil
}

// isStringLike accepts str, string-valued aliases such as AccountId and
// string-valued enums.
func (d *Deriver) isStringLike(desc *Descriptor) bool {
	if desc.Kind == KindReference {
		def, ok := d.reg.Lookup(desc.Name)
		if !ok {
			return false
		}
		desc = def.Type
	}
	switch desc.Kind {
	case KindPrimitive:
		return desc.Primitive == String && desc.Format == ""
	case KindEnum, KindLiteral:
		return desc.Primitive == String
	}
	return false
}

func (d *Deriver) deriveTuple(h *typehint.Hint) (*Descriptor, error) {
	if len(h.Args) == 0 {
		return nil, fmt.Errorf("%w: %s needs element types", ErrUnderspecifiedContainer, h.Name)
	}
	if len(h.Args) == 2 && h.Args[1].Kind == typehint.KindEllipsis {
		item, err := d.derive(h.Args[0])
		if err != nil {
			return nil, err
		}
		return NewSequence(item, false), nil
	}
	items, err := d.deriveAll(h.Args)
	if err != nil {
		return nil, err
	}
	return NewTuple(items...), nil
}

func deriveLiteral(h *typehint.Hint) (*Descriptor, error) {
	if len(h.Args) == 0 {
		return nil, fmt.Errorf("%w: Literal needs at least one value", ErrUnderspecifiedContainer)
	}
	values := make([]any, 0, len(h.Args))
	for _, a := range h.Args {
		switch a.Kind {
		case typehint.KindLiteral:
			values = append(values, a.Value)
		case typehint.KindNone:
			values = append(values, nil)
		default:
			return nil, fmt.Errorf("%w: Literal accepts only literal values, got %s", ErrUnsupportedType, a)
		}
	}
	return NewLiteral(values...), nil
}

func (d *Deriver) builtin(name string) (*Descriptor, error) {
	if _, ok := d.reg.Lookup(name); !ok {
		if err := d.reg.Add(&Definition{Name: name, QualifiedName: BuiltinQualifier + name, Type: builtins[name]()}); err != nil {
			return nil, err
		}
	}
	return NewReference(name), nil
}

// known reports whether qualified is already registered under name or is
// being derived right now. A different declaration under the same name is
// derived in full so that Registry.Add can compare the two shapes.
func (d *Deriver) known(name, qualified string) bool {
	if d.reg.isPending(name, qualified) {
		return true
	}
	def, ok := d.reg.Lookup(name)
	return ok && def.QualifiedName == qualified
}

func (d *Deriver) deriveRecord(rec *typehint.RecordDef) (*Descriptor, error) {
	if d.known(rec.Name, rec.QualifiedName) {
		return NewReference(rec.Name), nil
	}

	d.reg.claim(rec.Name, rec.QualifiedName)
	defer d.reg.release(rec.Name)

	desc := &Descriptor{Kind: KindRecord, Name: rec.Name, Doc: rec.Doc}
	for _, f := range rec.Fields {
		if rec.Style == typehint.StyleDataclass && strings.HasPrefix(f.Name, "_") {
			continue
		}
		if f.Hint == nil {
			return nil, fmt.Errorf("%w: field %s.%s", ErrMissingTypeAnnotation, rec.Name, f.Name)
		}
		ft, err := d.derive(f.Hint)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", rec.Name, f.Name, err)
		}
		required := !f.HasDefault && !ft.AcceptsNull()
		if rec.Style == typehint.StyleTypedDict && !rec.Total {
			required = false
		}
		desc.Fields = append(desc.Fields, Field{Name: f.Name, Type: ft, Required: required})
	}

	if err := d.reg.Add(&Definition{Name: rec.Name, QualifiedName: rec.QualifiedName, Type: desc}); err != nil {
		return nil, err
	}
	return NewReference(rec.Name), nil
}

func (d *Deriver) deriveEnum(e *typehint.EnumDef) (*Descriptor, error) {
	if d.known(e.Name, e.QualifiedName) {
		return NewReference(e.Name), nil
	}
	if len(e.Members) == 0 {
		return nil, fmt.Errorf("%w: enum %s has no members", ErrUnsupportedType, e.Name)
	}

	values := make([]any, len(e.Members))
	for i, m := range e.Members {
		values[i] = m.Value
	}
	desc := &Descriptor{Kind: KindEnum, Name: e.Name, Doc: e.Doc, Values: values}
	switch e.Base {
	case typehint.EnumInt:
		desc.Primitive = Integer
	case typehint.EnumStr:
		desc.Primitive = String
	default:
		desc.Primitive = uniformPrimitive(values)
	}

	if err := d.reg.Add(&Definition{Name: e.Name, QualifiedName: e.QualifiedName, Type: desc}); err != nil {
		return nil, err
	}
	return NewReference(e.Name), nil
}
