// Package typehint models resolved Python type annotations independently of
// how the source was parsed.
//
// A Hint is either a name (builtin, typing construct, or NEAR alias) with
// optional subscript arguments, a literal value, the None constant, the
// Ellipsis marker, or a pointer to a user-defined record or enum declaration.
package typehint

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Hint.
type Kind int

const (
	KindName Kind = iota + 1
	KindNone
	KindEllipsis
	KindLiteral
	KindRecord
	KindEnum
)

// Hint is one node of a resolved annotation.
type Hint struct {
	Kind Kind

	// Name is the normalized name for KindName ("int", "List", "AccountId").
	Name string
	// Args holds subscript arguments: List[int] has one, Dict[str, int] two.
	Args []*Hint

	// Value is the literal for KindLiteral: string, int64, float64 or bool.
	Value any

	Record *RecordDef
	Enum   *EnumDef
}

// Named returns a name hint with optional subscript arguments.
func Named(name string, args ...*Hint) *Hint {
	return &Hint{Kind: KindName, Name: name, Args: args}
}

// None returns the hint for the None constant.
func None() *Hint { return &Hint{Kind: KindNone} }

// Ellipsis returns the `...` marker used by Tuple[T, ...].
func Ellipsis() *Hint { return &Hint{Kind: KindEllipsis} }

// Literal returns a literal value hint.
func Literal(v any) *Hint { return &Hint{Kind: KindLiteral, Value: v} }

// Record returns a hint referring to a record declaration.
func Record(def *RecordDef) *Hint { return &Hint{Kind: KindRecord, Record: def} }

// Enum returns a hint referring to an enum declaration.
func Enum(def *EnumDef) *Hint { return &Hint{Kind: KindEnum, Enum: def} }

// Is reports whether h is a name hint called name.
func (h *Hint) Is(name string) bool {
	return h != nil && h.Kind == KindName && h.Name == name
}

// String renders the hint in Python annotation syntax for messages.
func (h *Hint) String() string {
	if h == nil {
		return "<missing>"
	}
	switch h.Kind {
	case KindNone:
		return "None"
	case KindEllipsis:
		return "..."
	case KindLiteral:
		return formatLiteral(h.Value)
	case KindRecord:
		return h.Record.Name
	case KindEnum:
		return h.Enum.Name
	}
	if len(h.Args) == 0 {
		return h.Name
	}
	parts := make([]string, len(h.Args))
	for i, a := range h.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s[%s]", h.Name, strings.Join(parts, ", "))
}

func formatLiteral(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case nil:
		return "None"
	default:
		return fmt.Sprint(x)
	}
}
