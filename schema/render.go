package schema

// DefinitionRef returns the $ref pointer for a registered name.
func DefinitionRef(name string) string {
	return "#/definitions/" + name
}

// Render converts d to a JSON Schema object. References stay references;
// definitions are rendered by RootSchema.
func Render(d *Descriptor) *JSONSchema {
	switch d.Kind {
	case KindPrimitive:
		s := &JSONSchema{Type: Types{d.Primitive}, Format: d.Format, Description: d.Doc, Pattern: d.Pattern}
		if d.Minimum != nil {
			m := *d.Minimum
			s.Minimum = &m
		}
		return s

	case KindOptional:
		return renderOptional(Render(d.Inner))

	case KindSequence:
		return &JSONSchema{
			Type:        Types{"array"},
			Items:       &Items{Single: Render(d.Inner)},
			UniqueItems: d.Unique,
		}

	case KindMapping:
		return &JSONSchema{Type: Types{"object"}, AdditionalProperties: Render(d.Inner)}

	case KindTuple:
		items := make([]*JSONSchema, len(d.Items))
		for i, it := range d.Items {
			items[i] = Render(it)
		}
		n := len(items)
		return &JSONSchema{Type: Types{"array"}, Items: &Items{Tuple: items}, MinItems: &n, MaxItems: &n}

	case KindUnion:
		if d.Strategy == DiscriminateByType {
			types := make(Types, len(d.Items))
			for i, it := range d.Items {
				types[i] = it.Primitive
			}
			return &JSONSchema{Type: types}
		}
		variants := make([]*JSONSchema, len(d.Items))
		for i, it := range d.Items {
			variants[i] = Render(it)
		}
		return &JSONSchema{AnyOf: variants}

	case KindRecord:
		s := &JSONSchema{Type: Types{"object"}, Description: d.Doc}
		for _, f := range d.Fields {
			s.Properties = append(s.Properties, Property{Name: f.Name, Schema: Render(f.Type)})
			if f.Required {
				s.Required = append(s.Required, f.Name)
			}
		}
		return s

	case KindReference:
		return &JSONSchema{Ref: DefinitionRef(d.Name)}

	case KindEnum, KindLiteral:
		s := &JSONSchema{Enum: append([]any(nil), d.Values...), Description: d.Doc}
		if d.Primitive != "" {
			s.Type = Types{d.Primitive}
		}
		return s
	}
	return &JSONSchema{}
}

// renderOptional adds null to a single-typed schema, otherwise wraps it in
// anyOf with {"type": "null"}.
func renderOptional(inner *JSONSchema) *JSONSchema {
	if inner.Ref == "" && len(inner.AnyOf) == 0 && len(inner.Type) == 1 {
		if inner.Type[0] == Null {
			return inner
		}
		inner.Type = Types{inner.Type[0], Null}
		if len(inner.Enum) > 0 && !containsNil(inner.Enum) {
			inner.Enum = append(inner.Enum, nil)
		}
		return inner
	}
	return &JSONSchema{AnyOf: []*JSONSchema{inner, {Type: Types{Null}}}}
}

func containsNil(values []any) bool {
	for _, v := range values {
		if v == nil {
			return true
		}
	}
	return false
}

// RootSchema renders every definition of the registry, sorted by name.
func (r *Registry) RootSchema() *RootSchema {
	root := &RootSchema{Schema: DraftURI, Title: RootTitle, Definitions: Properties{}}
	for _, def := range r.Definitions() {
		root.Definitions = append(root.Definitions, Property{Name: def.Name, Schema: Render(def.Type)})
	}
	return root
}
