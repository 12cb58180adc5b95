package pysource

import (
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Module is the syntactic outline of one Python file: what it imports,
// the classes it declares and the functions that may be contract methods.
type Module struct {
	Path string // slash-separated, relative to the scan root
	Name string // dotted module name

	// Imports maps a locally bound name to what it refers to, e.g.
	// "Account" -> "models.account.Account", "t" -> "typing".
	Imports map[string]string

	Classes   []*Class
	Functions []*Function // top-level functions and methods, in source order
}

// Class is a class statement.
type Class struct {
	Name       string
	Line       int
	Bases      []string
	Keywords   map[string]string
	Decorators []Decorator
	Doc        string
	Fields     []ClassField
}

// ClassField is an assignment or annotation in a class body.
type ClassField struct {
	Name       string
	Annotation string // empty for plain assignments
	HasValue   bool
	Value      any  // literal value of the right-hand side, when it is one
	Auto       bool // right-hand side is auto()
	Line       int
}

// Decorator is one @decorator line. Args holds keyword arguments whose
// values are literals, unquoted.
type Decorator struct {
	Name string
	Args map[string]string
}

// Function is a function or method definition.
type Function struct {
	Name       string
	Line       int
	Class      string // enclosing class, empty for module-level functions
	Decorators []Decorator
	Params     []RawParam
	Returns    string // return annotation text, empty when absent
	Doc        *string
}

// RawParam is a parameter as written.
type RawParam struct {
	Name       string
	Annotation string
	HasDefault bool
	Variadic   bool
}

// Parser parses Python source with tree-sitter. It is not safe for
// concurrent use.
type Parser struct {
	ts *sitter.Parser
}

// NewParser returns a Parser with the Python grammar loaded.
func NewParser() (*Parser, error) {
	p := sitter.NewParser()
	if err := p.SetLanguage(sitter.NewLanguage(tree_sitter_python.Language())); err != nil {
		p.Close()
		return nil, fmt.Errorf("pysource: failed to load python grammar: %w", err)
	}
	return &Parser{ts: p}, nil
}

// Close releases the parser.
func (p *Parser) Close() {
	if p == nil || p.ts == nil {
		return
	}
	p.ts.Close()
}

// Parse outlines src. path is recorded on the module and used for errors.
func (p *Parser) Parse(path string, src []byte) (*Module, error) {
	tree := p.ts.Parse(src, nil)
	if tree == nil {
		return nil, &ParseError{File: path, Message: "parser returned no tree"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(path, root)
	}

	w := &walker{src: src, mod: &Module{Path: path, Name: ModuleName(path), Imports: map[string]string{}}}
	w.block(root, "")
	return w.mod, nil
}

// ModuleName derives the dotted module name from a relative file path.
func ModuleName(path string) string {
	path = strings.TrimSuffix(strings.ReplaceAll(path, "\\", "/"), ".py")
	path = strings.TrimSuffix(path, "/__init__")
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", ".")
}

func syntaxError(path string, root *sitter.Node) *ParseError {
	bad := firstNode(root, func(n *sitter.Node) bool { return n.IsError() || n.IsMissing() })
	if bad == nil {
		return &ParseError{File: path, Message: "syntax error"}
	}
	pos := bad.StartPosition()
	msg := "syntax error"
	if bad.IsMissing() {
		msg = fmt.Sprintf("syntax error: missing %s", bad.Kind())
	}
	return &ParseError{File: path, Line: int(pos.Row) + 1, Column: int(pos.Column) + 1, Message: msg}
}

func firstNode(n *sitter.Node, pred func(*sitter.Node) bool) *sitter.Node {
	if n == nil {
		return nil
	}
	if pred(n) {
		return n
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if found := firstNode(n.Child(i), pred); found != nil {
			return found
		}
	}
	return nil
}

type walker struct {
	src []byte
	mod *Module
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(w.src)
}

func line(n *sitter.Node) int { return int(n.StartPosition().Row) + 1 }

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if c := n.NamedChild(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// block walks the statements of a module or class body. class is the
// enclosing class name.
func (w *walker) block(n *sitter.Node, class string) {
	for _, stmt := range namedChildren(n) {
		w.statement(stmt, class, nil)
	}
}

func (w *walker) statement(n *sitter.Node, class string, decorators []Decorator) {
	switch n.Kind() {
	case "import_statement":
		w.importStatement(n)
	case "import_from_statement":
		w.importFrom(n)
	case "if_statement", "try_statement":
		// imports guarded by TYPE_CHECKING or try/except ImportError
		for _, c := range namedChildren(n) {
			if c.Kind() == "block" {
				w.imports(c)
			}
		}
	case "decorated_definition":
		var decs []Decorator
		for _, c := range namedChildren(n) {
			if c.Kind() == "decorator" {
				decs = append(decs, w.decorator(c))
			}
		}
		if def := n.ChildByFieldName("definition"); def != nil {
			w.statement(def, class, decs)
		}
	case "class_definition":
		if class == "" {
			w.class(n, decorators)
		}
	case "function_definition":
		w.function(n, class, decorators)
	}
}

func (w *walker) imports(block *sitter.Node) {
	for _, c := range namedChildren(block) {
		switch c.Kind() {
		case "import_statement":
			w.importStatement(c)
		case "import_from_statement":
			w.importFrom(c)
		}
	}
}

func (w *walker) importStatement(n *sitter.Node) {
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "dotted_name":
			name := w.text(c)
			first := strings.SplitN(name, ".", 2)[0]
			w.mod.Imports[first] = first
		case "aliased_import":
			w.mod.Imports[w.text(c.ChildByFieldName("alias"))] = w.text(c.ChildByFieldName("name"))
		}
	}
}

func (w *walker) importFrom(n *sitter.Node) {
	modNode := n.ChildByFieldName("module_name")
	module := w.text(modNode)
	for _, c := range namedChildren(n) {
		if sameNode(c, modNode) {
			continue
		}
		switch c.Kind() {
		case "dotted_name":
			name := w.text(c)
			w.mod.Imports[name] = joinModule(module, name)
		case "aliased_import":
			name := w.text(c.ChildByFieldName("name"))
			w.mod.Imports[w.text(c.ChildByFieldName("alias"))] = joinModule(module, name)
		}
	}
}

func joinModule(module, name string) string {
	if strings.HasSuffix(module, ".") {
		return module + name
	}
	return module + "." + name
}

func (w *walker) decorator(n *sitter.Node) Decorator {
	kids := namedChildren(n)
	if len(kids) == 0 {
		return Decorator{}
	}
	expr := kids[0]
	if expr.Kind() != "call" {
		return Decorator{Name: w.text(expr)}
	}
	d := Decorator{Name: w.text(expr.ChildByFieldName("function")), Args: map[string]string{}}
	for _, arg := range namedChildren(expr.ChildByFieldName("arguments")) {
		if arg.Kind() != "keyword_argument" {
			continue
		}
		value := arg.ChildByFieldName("value")
		if v, ok := w.literal(value); ok {
			d.Args[w.text(arg.ChildByFieldName("name"))] = fmt.Sprint(v)
		} else {
			d.Args[w.text(arg.ChildByFieldName("name"))] = w.text(value)
		}
	}
	return d
}

func (w *walker) class(n *sitter.Node, decorators []Decorator) {
	c := &Class{
		Name:       w.text(n.ChildByFieldName("name")),
		Line:       line(n),
		Keywords:   map[string]string{},
		Decorators: decorators,
	}
	for _, base := range namedChildren(n.ChildByFieldName("superclasses")) {
		if base.Kind() == "keyword_argument" {
			c.Keywords[w.text(base.ChildByFieldName("name"))] = w.text(base.ChildByFieldName("value"))
			continue
		}
		c.Bases = append(c.Bases, w.text(base))
	}
	w.mod.Classes = append(w.mod.Classes, c)

	body := n.ChildByFieldName("body")
	if doc, ok := w.docstring(body); ok {
		c.Doc = doc
	}
	for _, stmt := range namedChildren(body) {
		switch stmt.Kind() {
		case "expression_statement":
			for _, e := range namedChildren(stmt) {
				if e.Kind() == "assignment" {
					if f, ok := w.classField(e); ok {
						c.Fields = append(c.Fields, f)
					}
				}
			}
		default:
			w.statement(stmt, c.Name, nil)
		}
	}
}

func (w *walker) classField(n *sitter.Node) (ClassField, bool) {
	left := n.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return ClassField{}, false
	}
	f := ClassField{Name: w.text(left), Line: line(n)}
	if t := n.ChildByFieldName("type"); t != nil {
		f.Annotation = w.text(t)
	}
	if right := n.ChildByFieldName("right"); right != nil {
		f.HasValue = true
		if v, ok := w.literal(right); ok {
			f.Value = v
		} else if right.Kind() == "call" && strings.HasSuffix(w.text(right.ChildByFieldName("function")), "auto") {
			f.Auto = true
		}
	}
	return f, true
}

func (w *walker) function(n *sitter.Node, class string, decorators []Decorator) {
	f := &Function{
		Name:       w.text(n.ChildByFieldName("name")),
		Line:       line(n),
		Class:      class,
		Decorators: decorators,
	}
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		f.Returns = w.text(rt)
	}
	for _, p := range namedChildren(n.ChildByFieldName("parameters")) {
		if rp, ok := w.param(p); ok {
			f.Params = append(f.Params, rp)
		}
	}
	if doc, ok := w.docstring(n.ChildByFieldName("body")); ok {
		f.Doc = &doc
	}
	w.mod.Functions = append(w.mod.Functions, f)
}

func (w *walker) param(n *sitter.Node) (RawParam, bool) {
	switch n.Kind() {
	case "identifier":
		return RawParam{Name: w.text(n)}, true
	case "list_splat_pattern", "dictionary_splat_pattern":
		return RawParam{Name: w.splatName(n), Variadic: true}, true
	case "typed_parameter":
		p := RawParam{Annotation: w.text(n.ChildByFieldName("type"))}
		for _, c := range namedChildren(n) {
			switch c.Kind() {
			case "identifier":
				p.Name = w.text(c)
			case "list_splat_pattern", "dictionary_splat_pattern":
				p.Name = w.splatName(c)
				p.Variadic = true
			}
			if p.Name != "" {
				break
			}
		}
		return p, true
	case "default_parameter":
		return RawParam{Name: w.text(n.ChildByFieldName("name")), HasDefault: true}, true
	case "typed_default_parameter":
		return RawParam{
			Name:       w.text(n.ChildByFieldName("name")),
			Annotation: w.text(n.ChildByFieldName("type")),
			HasDefault: true,
		}, true
	}
	// keyword_separator, positional_separator
	return RawParam{}, false
}

func (w *walker) splatName(n *sitter.Node) string {
	for _, c := range namedChildren(n) {
		if c.Kind() == "identifier" {
			return w.text(c)
		}
	}
	return strings.TrimLeft(w.text(n), "*")
}

// docstring returns the leading string statement of a block.
func (w *walker) docstring(body *sitter.Node) (string, bool) {
	kids := namedChildren(body)
	if len(kids) == 0 || kids[0].Kind() != "expression_statement" {
		return "", false
	}
	inner := namedChildren(kids[0])
	if len(inner) != 1 || inner[0].Kind() != "string" {
		return "", false
	}
	return CleanDoc(w.stringValue(inner[0])), true
}

func (w *walker) stringValue(n *sitter.Node) string {
	var parts []string
	for _, c := range namedChildren(n) {
		if c.Kind() == "string_content" {
			parts = append(parts, w.text(c))
		}
	}
	if parts != nil {
		return strings.Join(parts, "")
	}
	return stripQuotes(w.text(n))
}

func stripQuotes(s string) string {
	s = strings.TrimLeft(s, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

// literal evaluates simple literal expressions.
func (w *walker) literal(n *sitter.Node) (any, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Kind() {
	case "string":
		return w.stringValue(n), true
	case "integer":
		v, err := strconv.ParseInt(strings.ReplaceAll(w.text(n), "_", ""), 0, 64)
		return v, err == nil
	case "float":
		v, err := strconv.ParseFloat(strings.ReplaceAll(w.text(n), "_", ""), 64)
		return v, err == nil
	case "true":
		return true, true
	case "false":
		return false, true
	case "none":
		return nil, true
	case "unary_operator":
		v, ok := w.literal(n.ChildByFieldName("argument"))
		if !ok || !strings.HasPrefix(w.text(n), "-") {
			return nil, false
		}
		switch x := v.(type) {
		case int64:
			return -x, true
		case float64:
			return -x, true
		}
	}
	return nil, false
}

// CleanDoc normalizes docstring indentation the way Python's
// inspect.cleandoc does.
func CleanDoc(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "        "), "\n")
	margin := -1
	for _, l := range lines[1:] {
		trimmed := strings.TrimLeft(l, " ")
		if trimmed == "" {
			continue
		}
		if indent := len(l) - len(trimmed); margin < 0 || indent < margin {
			margin = indent
		}
	}
	lines[0] = strings.TrimLeft(lines[0], " ")
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= margin {
				lines[i] = lines[i][margin:]
			} else {
				lines[i] = strings.TrimLeft(lines[i], " ")
			}
		}
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
