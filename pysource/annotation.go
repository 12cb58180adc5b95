package pysource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Expr is a parsed annotation expression before name resolution.
type Expr struct {
	// Name is the dotted name of a name expression ("List", "typing.Dict").
	Name string
	// Args are the subscript arguments when Subscripted is set.
	Args        []*Expr
	Subscripted bool

	// Union holds the members of an X | Y expression.
	Union []*Expr

	Literal   any // string, int64, float64 or bool when IsLiteral
	IsLiteral bool
	None      bool
	Ellipsis  bool

	// Items holds a bracketed or parenthesized list, as in Callable[[int], str].
	Items  []*Expr
	IsList bool

	Text string
}

var annotationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(\\.|[^"\\])*"|'(\\.|[^'\\])*'`},
	{Name: "Ellipsis", Pattern: `\.\.\.`},
	{Name: "Number", Pattern: `-?\d+(\.\d+)?([eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_]\w*`},
	{Name: "Punct", Pattern: `[\[\](),|.]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

type annUnion struct {
	Members []*annTerm `parser:"@@ ( '|' @@ )*"`
}

type annTerm struct {
	Atom      *annAtom      `parser:"@@"`
	Subscript *annSubscript `parser:"@@?"`
}

type annSubscript struct {
	Args []*annUnion `parser:"'[' ( @@ ( ',' @@ )* ','? )? ']'"`
}

type annAtom struct {
	None     bool      `parser:"  @'None'"`
	Ellipsis bool      `parser:"| @Ellipsis"`
	Bool     *string   `parser:"| @( 'True' | 'False' )"`
	String   *string   `parser:"| @String"`
	Number   *string   `parser:"| @Number"`
	Name     []string  `parser:"| @Ident ( '.' @Ident )*"`
	List     *annList  `parser:"| @@"`
	Paren    *annParen `parser:"| @@"`
}

type annList struct {
	Items []*annUnion `parser:"'[' ( @@ ( ',' @@ )* )? ']'"`
}

type annParen struct {
	Items []*annUnion `parser:"'(' ( @@ ( ',' @@ )* )? ')'"`
}

var annotationParser = participle.MustBuild[annUnion](
	participle.Lexer(annotationLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// ParseAnnotation parses the text of a type annotation.
func ParseAnnotation(text string) (*Expr, error) {
	text = strings.TrimSpace(text)
	ast, err := annotationParser.ParseString("", text)
	if err != nil {
		return nil, fmt.Errorf("invalid annotation %q: %w", text, err)
	}
	e, err := ast.expr()
	if err != nil {
		return nil, fmt.Errorf("invalid annotation %q: %w", text, err)
	}
	e.Text = text
	return e, nil
}

func (u *annUnion) expr() (*Expr, error) {
	if len(u.Members) == 1 {
		return u.Members[0].expr()
	}
	out := &Expr{}
	for _, m := range u.Members {
		e, err := m.expr()
		if err != nil {
			return nil, err
		}
		out.Union = append(out.Union, e)
	}
	return out, nil
}

func (t *annTerm) expr() (*Expr, error) {
	e, err := t.Atom.expr()
	if err != nil {
		return nil, err
	}
	if t.Subscript == nil {
		return e, nil
	}
	if e.Name == "" {
		return nil, fmt.Errorf("only names can be subscripted")
	}
	e.Subscripted = true
	for _, a := range t.Subscript.Args {
		arg, err := a.expr()
		if err != nil {
			return nil, err
		}
		e.Args = append(e.Args, arg)
	}
	// Tuple[()] is the empty tuple.
	if len(e.Args) == 1 && e.Args[0].IsList && len(e.Args[0].Items) == 0 {
		e.Args = nil
	}
	return e, nil
}

func (a *annAtom) expr() (*Expr, error) {
	switch {
	case a.None:
		return &Expr{None: true, Text: "None"}, nil
	case a.Ellipsis:
		return &Expr{Ellipsis: true, Text: "..."}, nil
	case a.Bool != nil:
		return &Expr{IsLiteral: true, Literal: *a.Bool == "True", Text: *a.Bool}, nil
	case a.String != nil:
		return &Expr{IsLiteral: true, Literal: unquote(*a.String), Text: *a.String}, nil
	case a.Number != nil:
		v, err := parseNumber(*a.Number)
		if err != nil {
			return nil, err
		}
		return &Expr{IsLiteral: true, Literal: v, Text: *a.Number}, nil
	case len(a.Name) > 0:
		name := strings.Join(a.Name, ".")
		return &Expr{Name: name, Text: name}, nil
	case a.List != nil:
		return listExpr(a.List.Items, "[", "]")
	case a.Paren != nil:
		if len(a.Paren.Items) == 1 {
			return a.Paren.Items[0].expr()
		}
		return listExpr(a.Paren.Items, "(", ")")
	}
	return nil, fmt.Errorf("empty expression")
}

func listExpr(items []*annUnion, open, close string) (*Expr, error) {
	out := &Expr{IsList: true}
	texts := make([]string, 0, len(items))
	for _, it := range items {
		e, err := it.expr()
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, e)
		texts = append(texts, e.Text)
	}
	out.Text = open + strings.Join(texts, ", ") + close
	return out, nil
}

func parseNumber(s string) (any, error) {
	if strings.ContainsAny(s, ".eE") {
		return strconv.ParseFloat(s, 64)
	}
	return strconv.ParseInt(s, 10, 64)
}

// unquote strips the quotes of a Python string literal and resolves the
// common escapes.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	body := s[1 : len(s)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}
