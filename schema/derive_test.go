package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearabi/nearabi/typehint"
)

var (
	tStr   = typehint.Named("str")
	tInt   = typehint.Named("int")
	tFloat = typehint.Named("float")
	tBool  = typehint.Named("bool")
)

func derive(t *testing.T, reg *Registry, h *typehint.Hint) *Descriptor {
	t.Helper()
	d, err := NewDeriver(reg).Derive(h, Location{Function: "f", Param: "x"})
	require.NoError(t, err)
	return d
}

func deriveErr(t *testing.T, reg *Registry, h *typehint.Hint) error {
	t.Helper()
	_, err := NewDeriver(reg).Derive(h, Location{Function: "f", Param: "x"})
	require.Error(t, err)
	return err
}

func TestDerivePrimitives(t *testing.T) {
	tests := []struct {
		hint string
		want *Descriptor
	}{
		{"str", NewPrimitive(String)},
		{"int", NewPrimitive(Integer)},
		{"float", NewPrimitive(Number)},
		{"bool", NewPrimitive(Boolean)},
		{"None", NewPrimitive(Null)},
		{"bytes", Bytes()},
		{"Any", Any()},
	}
	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			got := derive(t, NewRegistry(), typehint.Named(tt.hint))
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, NewPrimitive(Null), derive(t, NewRegistry(), typehint.None()))
}

func TestDeriveOptional(t *testing.T) {
	reg := NewRegistry()
	opt := derive(t, reg, typehint.Named("Optional", tInt))
	assert.Equal(t, KindOptional, opt.Kind)
	assert.Equal(t, NewPrimitive(Integer), opt.Inner)

	t.Run("nested optional collapses", func(t *testing.T) {
		nested := derive(t, reg, typehint.Named("Optional", typehint.Named("Optional", tInt)))
		assert.True(t, Equal(opt, nested))
	})
	t.Run("optional none is null", func(t *testing.T) {
		assert.True(t, derive(t, reg, typehint.Named("Optional", typehint.None())).IsNull())
	})
	t.Run("wrong arity", func(t *testing.T) {
		err := deriveErr(t, reg, typehint.Named("Optional", tInt, tStr))
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})
}

func TestDeriveUnion(t *testing.T) {
	t.Run("distinct primitives discriminate by type", func(t *testing.T) {
		d := derive(t, NewRegistry(), typehint.Named("Union", tInt, tStr))
		require.Equal(t, KindUnion, d.Kind)
		assert.Equal(t, DiscriminateByType, d.Strategy)
		assert.Len(t, d.Items, 2)
	})
	t.Run("single variant plus none becomes optional", func(t *testing.T) {
		reg := NewRegistry()
		union := derive(t, reg, typehint.Named("Union", tStr, typehint.None()))
		opt := derive(t, reg, typehint.Named("Optional", tStr))
		assert.True(t, Equal(union, opt))
	})
	t.Run("integer and number use anyOf", func(t *testing.T) {
		d := derive(t, NewRegistry(), typehint.Named("Union", tInt, tFloat))
		assert.Equal(t, DiscriminateAnyOf, d.Strategy)
	})
	t.Run("duplicates removed", func(t *testing.T) {
		d := derive(t, NewRegistry(), typehint.Named("Union", tInt, tInt))
		assert.Equal(t, NewPrimitive(Integer), d)
	})
	t.Run("nested unions flatten", func(t *testing.T) {
		d := derive(t, NewRegistry(), typehint.Named("Union", tInt, typehint.Named("Union", tStr, tBool)))
		require.Equal(t, KindUnion, d.Kind)
		assert.Len(t, d.Items, 3)
	})
	t.Run("containers use anyOf", func(t *testing.T) {
		d := derive(t, NewRegistry(), typehint.Named("Union", typehint.Named("List", tInt), tStr))
		assert.Equal(t, DiscriminateAnyOf, d.Strategy)
	})
	t.Run("three variants with none keep null", func(t *testing.T) {
		d := derive(t, NewRegistry(), typehint.Named("Union", tInt, tStr, typehint.None()))
		require.Equal(t, KindUnion, d.Kind)
		assert.True(t, d.AcceptsNull())
	})
}

func TestDeriveContainers(t *testing.T) {
	reg := NewRegistry()

	seq := derive(t, reg, typehint.Named("List", tStr))
	assert.Equal(t, NewSequence(NewPrimitive(String), false), seq)

	set := derive(t, reg, typehint.Named("Set", tInt))
	assert.True(t, set.Unique)

	m := derive(t, reg, typehint.Named("Dict", tStr, tInt))
	assert.Equal(t, NewMapping(NewPrimitive(Integer)), m)

	variadic := derive(t, reg, typehint.Named("Tuple", tInt, typehint.Ellipsis()))
	assert.Equal(t, NewSequence(NewPrimitive(Integer), false), variadic)

	tuple := derive(t, reg, typehint.Named("Tuple", tInt, tStr))
	assert.Equal(t, NewTuple(NewPrimitive(Integer), NewPrimitive(String)), tuple)

	t.Run("account id keys are allowed", func(t *testing.T) {
		d := derive(t, reg, typehint.Named("Dict", typehint.Named("AccountId"), tInt))
		assert.Equal(t, KindMapping, d.Kind)
	})
}

func TestDeriveErrors(t *testing.T) {
	tests := []struct {
		name string
		hint *typehint.Hint
		want error
	}{
		{"bare list", typehint.Named("List"), ErrUnderspecifiedContainer},
		{"bare dict", typehint.Named("Dict"), ErrUnderspecifiedContainer},
		{"bare tuple", typehint.Named("Tuple"), ErrUnderspecifiedContainer},
		{"int keys", typehint.Named("Dict", tInt, tStr), ErrUnsupportedKeyType},
		{"bytes keys", typehint.Named("Dict", typehint.Named("bytes"), tStr), ErrUnsupportedKeyType},
		{"callable", typehint.Named("Callable", typehint.Named("[int]"), tInt), ErrUnsupportedType},
		{"unknown class", typehint.Named("Contract"), ErrUnsupportedType},
		{"stray ellipsis", typehint.Named("List", typehint.Ellipsis()), ErrUnsupportedType},
		{"misplaced ellipsis", typehint.Named("Tuple", typehint.Ellipsis(), tInt), ErrUnsupportedType},
		{"subscripted scalar", typehint.Named("int", tStr), ErrUnsupportedType},
		{"missing", nil, ErrMissingTypeAnnotation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := deriveErr(t, NewRegistry(), tt.hint)
			assert.ErrorIs(t, err, tt.want)

			var de *DeriveError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, "f", de.Function)
			assert.Equal(t, "x", de.Param)
		})
	}
}

func TestDeriveLiteral(t *testing.T) {
	d := derive(t, NewRegistry(), typehint.Named("Literal", typehint.Literal("a"), typehint.Literal("b")))
	assert.Equal(t, KindLiteral, d.Kind)
	assert.Equal(t, String, d.Primitive)
	assert.Equal(t, []any{"a", "b"}, d.Values)

	mixed := derive(t, NewRegistry(), typehint.Named("Literal", typehint.Literal("a"), typehint.Literal(int64(1))))
	assert.Equal(t, Primitive(""), mixed.Primitive)
	none := derive(t, NewRegistry(), typehint.Named("Literal", typehint.None()))
	assert.True(t, none.IsNull())
	assert.True(t, derive(t, NewRegistry(), typehint.Named("Optional", typehint.Named("Literal", typehint.None()))).IsNull())

	withNone := derive(t, NewRegistry(), typehint.Named("Literal", typehint.Literal("a"), typehint.None()))
	assert.True(t, withNone.AcceptsNull())
	assert.Equal(t, withNone, derive(t, NewRegistry(), typehint.Named("Optional", typehint.Named("Literal", typehint.Literal("a"), typehint.None()))))
}

func TestDeriveBuiltinsRegisterLazily(t *testing.T) {
	reg := NewRegistry()
	derive(t, reg, tStr)
	assert.Equal(t, 0, reg.Len())

	ref := derive(t, reg, typehint.Named("Balance"))
	assert.Equal(t, NewReference("Balance"), ref)

	def, ok := reg.Lookup("Balance")
	require.True(t, ok)
	assert.Equal(t, "near.Balance", def.QualifiedName)
	assert.Equal(t, "^[0-9]+$", def.Type.Pattern)
	assert.Equal(t, []string{"Balance"}, reg.Names())
}

func TestDeriveAnnotatedUsesInnerType(t *testing.T) {
	d := derive(t, NewRegistry(), typehint.Named("Annotated", tInt, typehint.Literal("borsh")))
	assert.Equal(t, NewPrimitive(Integer), d)
}
