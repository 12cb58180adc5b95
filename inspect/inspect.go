package inspect

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nearabi/nearabi/schema"
	"github.com/nearabi/nearabi/typehint"
)

var (
	// ErrNotAFunction is returned for callables without any contract marker.
	// Callers skip these rather than report them.
	ErrNotAFunction           = errors.New("not a contract function")
	ErrMissingKindMarker      = errors.New("missing view or call marker")
	ErrConflictingKindMarkers = errors.New("both view and call markers present")
	ErrMixedSerialization     = errors.New("parameters and result declare different serialization modes")
	ErrUnknownSerialization   = errors.New("unknown serialization mode")
)

// Inspector derives FunctionSpecs, registering named types in one registry.
type Inspector struct {
	deriver *schema.Deriver
}

// New returns an Inspector writing definitions into reg.
func New(reg *schema.Registry) *Inspector {
	return &Inspector{deriver: schema.NewDeriver(reg)}
}

// Registry returns the registry the Inspector writes into.
func (in *Inspector) Registry() *schema.Registry { return in.deriver.Registry() }

type markerSet struct {
	view, call, init, private, payable bool
	serialization                      Serialization
}

func readMarkers(c *Callable) (markerSet, error) {
	var ms markerSet
	for _, m := range c.Markers {
		name, ok := NormalizeMarker(m.Name)
		if !ok {
			continue
		}
		switch name {
		case MarkerView:
			ms.view = true
		case MarkerCall:
			ms.call = true
		case MarkerInit:
			ms.init = true
		case MarkerPrivate:
			ms.private = true
		case MarkerPayable:
			ms.payable = true
		case MarkerCallback:
			ms.call = true
			ms.private = true
		}
		if v, ok := m.Args["serialization"]; ok {
			mode, err := parseSerialization(v)
			if err != nil {
				return ms, err
			}
			if ms.serialization != "" && ms.serialization != mode {
				return ms, ErrMixedSerialization
			}
			ms.serialization = mode
		}
	}
	return ms, nil
}

func parseSerialization(v string) (Serialization, error) {
	switch Serialization(v) {
	case SerializationJSON, SerializationBorsh:
		return Serialization(v), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSerialization, v)
}

// Inspect derives the FunctionSpec of c. It returns ErrNotAFunction when c carries
// no contract marker. On any other error nothing c registered is kept.
func (in *Inspector) Inspect(c *Callable) (*FunctionSpec, error) {
	if !c.HasMarker() {
		return nil, ErrNotAFunction
	}
	ms, err := readMarkers(c)
	if err != nil {
		return nil, fmt.Errorf("function %q: %w", c.Name, err)
	}
	switch {
	case ms.view && ms.call:
		return nil, fmt.Errorf("function %q: %w", c.Name, ErrConflictingKindMarkers)
	case !ms.view && !ms.call:
		return nil, fmt.Errorf("function %q: %w", c.Name, ErrMissingKindMarker)
	}

	spec := &FunctionSpec{Name: c.Name, Kind: KindView, Doc: c.Doc}
	if ms.call {
		spec.Kind = KindCall
	}
	if ms.init {
		spec.Modifiers = append(spec.Modifiers, ModifierInit)
	}
	if ms.private {
		spec.Modifiers = append(spec.Modifiers, ModifierPrivate)
	}
	if ms.payable {
		spec.Modifiers = append(spec.Modifiers, ModifierPayable)
	}

	reg := in.Registry()
	mark := reg.Mark()
	if err := in.derive(c, ms, spec); err != nil {
		reg.Rollback(mark)
		return nil, err
	}
	return spec, nil
}

func (in *Inspector) derive(c *Callable, ms markerSet, spec *FunctionSpec) error {
	params := c.Params
	if len(params) > 0 && (c.Method || params[0].Name == "self") {
		params = params[1:]
	}

	mode := ms.serialization
	for _, p := range params {
		if p.Variadic {
			return &schema.DeriveError{Function: c.Name, Param: p.Name, Err: fmt.Errorf("%w: variadic parameters", schema.ErrUnsupportedType)}
		}
		if hinted, ok := serializationHint(p.Hint); ok {
			if mode != "" && mode != hinted {
				return fmt.Errorf("function %q: %w", c.Name, ErrMixedSerialization)
			}
			mode = hinted
		}
		desc, err := in.deriver.Derive(p.Hint, schema.Location{Function: c.Name, Param: p.Name})
		if err != nil {
			return err
		}
		spec.Params = append(spec.Params, ParamSpec{Name: p.Name, Type: desc})
	}

	if c.Result != nil {
		if hinted, ok := serializationHint(c.Result); ok {
			if mode != "" && mode != hinted {
				return fmt.Errorf("function %q: %w", c.Name, ErrMixedSerialization)
			}
			mode = hinted
		}
		desc, err := in.deriver.Derive(c.Result, schema.Location{Function: c.Name})
		if err != nil {
			return err
		}
		if !desc.IsNull() {
			spec.Result = desc
		}
	}

	if mode == "" {
		mode = SerializationJSON
	}
	spec.Serialization = mode

	if mode == SerializationBorsh {
		return checkBorsh(spec, in.Registry())
	}
	return nil
}

// serializationHint reads Annotated[T, "borsh"] style metadata.
func serializationHint(h *typehint.Hint) (Serialization, bool) {
	if !h.Is("Annotated") || len(h.Args) < 2 {
		return "", false
	}
	for _, meta := range h.Args[1:] {
		if meta.Kind != typehint.KindLiteral {
			continue
		}
		if s, ok := meta.Value.(string); ok {
			if mode, err := parseSerialization(s); err == nil {
				return mode, true
			}
		}
	}
	return "", false
}

func checkBorsh(spec *FunctionSpec, reg *schema.Registry) error {
	for _, p := range spec.Params {
		if _, err := schema.Borsh(p.Type, reg); err != nil {
			return &schema.DeriveError{Function: spec.Name, Param: p.Name, Err: err}
		}
	}
	if spec.Result != nil {
		if _, err := schema.Borsh(spec.Result, reg); err != nil {
			return &schema.DeriveError{Function: spec.Name, Err: err}
		}
	}
	return nil
}

// SortModifiers puts modifiers in canonical order and drops duplicates.
func SortModifiers(ms []Modifier) []Modifier {
	out := make([]Modifier, 0, len(ms))
	for _, m := range modifierOrder {
		if slices.Contains(ms, m) {
			out = append(out, m)
		}
	}
	return out
}
