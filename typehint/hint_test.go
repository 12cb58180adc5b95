package typehint

import "testing"

func TestHintString(t *testing.T) {
	rec := &RecordDef{Name: "Account", QualifiedName: "models.Account"}

	tests := []struct {
		name string
		hint *Hint
		want string
	}{
		{"nil", nil, "<missing>"},
		{"bare name", Named("int"), "int"},
		{"subscripted", Named("Dict", Named("str"), Named("List", Named("int"))), "Dict[str, List[int]]"},
		{"tuple with ellipsis", Named("Tuple", Named("int"), Ellipsis()), "Tuple[int, ...]"},
		{"literal", Named("Literal", Literal("a"), Literal(int64(3)), Literal(true)), `Literal["a", 3, True]`},
		{"none", Named("Optional", None()), "Optional[None]"},
		{"record", Named("List", Record(rec)), "List[Account]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.hint.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHintIs(t *testing.T) {
	if !Named("Optional", Named("int")).Is("Optional") {
		t.Error("expected Optional hint to match")
	}
	if Literal("Optional").Is("Optional") {
		t.Error("literal must not match a name")
	}
	var h *Hint
	if h.Is("int") {
		t.Error("nil hint must not match")
	}
}
