package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearabi/nearabi/typehint"
)

func TestBorshDeclarations(t *testing.T) {
	tests := []struct {
		hint *typehint.Hint
		want string
	}{
		{tStr, "String"},
		{typehint.Named("bytes"), "Vec<u8>"},
		{typehint.Named("List", tStr), "Vec<String>"},
		{typehint.Named("Optional", tInt), "Option<i64>"},
		{typehint.Named("Set", tBool), "HashSet<bool>"},
		{typehint.Named("Dict", tStr, tFloat), "HashMap<String, f64>"},
		{typehint.Named("Tuple", tInt, tStr), "(i64, String)"},
		{typehint.Named("Balance"), "Balance"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			reg := NewRegistry()
			b, err := Borsh(derive(t, reg, tt.hint), reg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.Declaration)
		})
	}
}

func TestBorshStructDefinitions(t *testing.T) {
	node := &typehint.RecordDef{Name: "Node", QualifiedName: "m.Node", Style: typehint.StyleDataclass, Total: true}
	node.Fields = []typehint.Field{
		{Name: "owner", Hint: typehint.Named("AccountId")},
		{Name: "next", Hint: typehint.Named("Optional", typehint.Record(node))},
	}
	reg := NewRegistry()
	b, err := Borsh(derive(t, reg, typehint.Record(node)), reg)
	require.NoError(t, err)

	assert.Equal(t, "Node", b.Declaration)
	require.Contains(t, b.Definitions, "Node")
	assert.Equal(t, []BorshField{{Name: "owner", Type: "AccountId"}, {Name: "next", Type: "Option<Node>"}}, b.Definitions["Node"].Struct)
	assert.Equal(t, "String", b.Definitions["AccountId"].Alias)
}

func TestBorshRejectsUntaggedUnions(t *testing.T) {
	reg := NewRegistry()
	_, err := Borsh(derive(t, reg, typehint.Named("Union", tInt, tStr)), reg)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Borsh(Any(), reg)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
