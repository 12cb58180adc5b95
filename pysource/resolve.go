package pysource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nearabi/nearabi/inspect"
	"github.com/nearabi/nearabi/typehint"
)

// strippedPrefixes are module paths whose members resolve to bare names.
var strippedPrefixes = []string{
	"typing_extensions.",
	"typing.",
	"collections.abc.",
	"collections.",
	"builtins.",
	"dataclasses.",
	"enum.",
	"pydantic.",
	"near_sdk_py.types.",
	"near_sdk_py.",
	"near_sdk.",
	"near.",
}

// nearRoots are the top-level packages that export contract markers.
var nearRoots = map[string]bool{"near": true, "near_sdk_py": true, "near_sdk": true}

type classKind int

const (
	classOther classKind = iota
	classRecord
	classEnum
)

type classEntry struct {
	mod   *Module
	class *Class
	qual  string

	kind     classKind
	resolved bool
	visiting bool

	record *typehint.RecordDef
	enum   *typehint.EnumDef
}

// Index resolves annotations across a set of modules. Classes declared in
// any indexed module can be referenced from any other.
type Index struct {
	modules  map[string]*Module
	classes  map[string]*classEntry
	bySimple map[string][]*classEntry
}

// NewIndex classifies the classes of mods and builds their record and enum
// declarations. Declarations are created before any field is resolved so
// that records may refer to each other in any order.
func NewIndex(mods []*Module) *Index {
	ix := &Index{
		modules:  make(map[string]*Module, len(mods)),
		classes:  map[string]*classEntry{},
		bySimple: map[string][]*classEntry{},
	}
	for _, m := range mods {
		ix.modules[m.Name] = m
		for _, c := range m.Classes {
			e := &classEntry{mod: m, class: c, qual: qualify(m.Name, c.Name)}
			ix.classes[e.qual] = e
			ix.bySimple[c.Name] = append(ix.bySimple[c.Name], e)
		}
	}

	entries := ix.sortedEntries()
	for _, e := range entries {
		ix.classify(e)
	}
	for _, e := range entries {
		switch e.kind {
		case classRecord:
			e.record.Fields = ix.recordFields(e, map[string]bool{})
		case classEnum:
			e.enum.Members = enumMembers(e)
		}
	}
	return ix
}

func qualify(module, name string) string {
	if module == "" {
		return name
	}
	return module + "." + name
}

func (ix *Index) sortedEntries() []*classEntry {
	out := make([]*classEntry, 0, len(ix.classes))
	for _, e := range ix.classes {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].qual < out[j].qual })
	return out
}

// classify decides whether a class is a record, an enum or neither. Bases
// that are themselves indexed classes pass their kind down.
func (ix *Index) classify(e *classEntry) {
	if e.resolved || e.visiting {
		return
	}
	e.visiting = true
	defer func() { e.visiting = false; e.resolved = true }()

	c := e.class
	var (
		style    typehint.RecordStyle
		enumBase typehint.EnumBase
		isEnum   bool
		mixinStr bool
		mixinInt bool
	)
	for _, base := range c.Bases {
		if parent := ix.lookupClass(e.mod, base); parent != nil {
			ix.classify(parent)
			switch parent.kind {
			case classRecord:
				if style == 0 {
					style = parent.record.Style
				}
			case classEnum:
				isEnum = true
				enumBase = parent.enum.Base
			}
			continue
		}
		switch bareName(ix.canonical(e.mod, base)) {
		case "TypedDict":
			style = typehint.StyleTypedDict
		case "NamedTuple":
			style = typehint.StyleNamedTuple
		case "BaseModel":
			style = typehint.StyleModel
		case "Enum", "Flag":
			isEnum = true
		case "IntEnum", "IntFlag":
			isEnum, enumBase = true, typehint.EnumInt
		case "StrEnum":
			isEnum, enumBase = true, typehint.EnumStr
		case "str":
			mixinStr = true
		case "int":
			mixinInt = true
		}
	}
	if style == 0 {
		for _, d := range c.Decorators {
			if bareName(ix.canonical(e.mod, d.Name)) == "dataclass" {
				style = typehint.StyleDataclass
			}
		}
	}

	switch {
	case isEnum:
		if enumBase == 0 {
			switch {
			case mixinStr:
				enumBase = typehint.EnumStr
			case mixinInt:
				enumBase = typehint.EnumInt
			default:
				enumBase = typehint.EnumPlain
			}
		}
		e.kind = classEnum
		e.enum = &typehint.EnumDef{Name: c.Name, QualifiedName: e.qual, Base: enumBase, Doc: c.Doc}
	case style != 0:
		total := true
		if v, ok := c.Keywords["total"]; ok && v == "False" {
			total = false
		}
		e.kind = classRecord
		e.record = &typehint.RecordDef{Name: c.Name, QualifiedName: e.qual, Style: style, Doc: c.Doc, Total: total}
	}
}

// recordFields collects inherited fields first, then the class's own.
// A redefined field keeps the position of its first declaration.
func (ix *Index) recordFields(e *classEntry, seen map[string]bool) []typehint.Field {
	if seen[e.qual] {
		return nil
	}
	seen[e.qual] = true

	var fields []typehint.Field
	pos := map[string]int{}
	add := func(f typehint.Field) {
		if i, ok := pos[f.Name]; ok {
			fields[i] = f
			return
		}
		pos[f.Name] = len(fields)
		fields = append(fields, f)
	}

	for i := len(e.class.Bases) - 1; i >= 0; i-- {
		parent := ix.lookupClass(e.mod, e.class.Bases[i])
		if parent == nil || parent.kind != classRecord {
			continue
		}
		for _, f := range ix.recordFields(parent, seen) {
			add(f)
		}
	}
	for _, cf := range e.class.Fields {
		if cf.Annotation == "" || ix.isClassVar(e.mod, cf.Annotation) {
			continue
		}
		add(typehint.Field{
			Name:       cf.Name,
			Hint:       ix.Resolve(e.mod, cf.Annotation),
			HasDefault: cf.HasValue,
		})
	}
	return fields
}

func (ix *Index) isClassVar(mod *Module, annotation string) bool {
	expr, err := ParseAnnotation(annotation)
	if err != nil || expr.Name == "" {
		return false
	}
	return bareName(ix.canonical(mod, expr.Name)) == "ClassVar"
}

// enumMembers reads NAME = value lines. auto() yields the lower-cased
// name for string enums and the next integer otherwise.
func enumMembers(e *classEntry) []typehint.EnumMember {
	var (
		members []typehint.EnumMember
		next    int64 = 1
	)
	for _, f := range e.class.Fields {
		if f.Annotation != "" || !f.HasValue || strings.HasPrefix(f.Name, "_") {
			continue
		}
		switch {
		case f.Auto && e.enum.Base == typehint.EnumStr:
			members = append(members, typehint.EnumMember{Name: f.Name, Value: strings.ToLower(f.Name)})
		case f.Auto:
			members = append(members, typehint.EnumMember{Name: f.Name, Value: next})
			next++
		default:
			if n, ok := f.Value.(int64); ok {
				next = n + 1
			}
			members = append(members, typehint.EnumMember{Name: f.Name, Value: f.Value})
		}
	}
	return members
}

// canonical expands a dotted name through the module's imports, relative
// import dots and local class names.
func (ix *Index) canonical(mod *Module, name string) string {
	first, rest, dotted := strings.Cut(name, ".")
	target, imported := mod.Imports[first]
	switch {
	case imported:
		if dotted {
			target += "." + rest
		}
	case !dotted && ix.classes[qualify(mod.Name, name)] != nil:
		return qualify(mod.Name, name)
	default:
		return name
	}
	if strings.HasPrefix(target, ".") {
		target = absolute(mod, target)
	}
	return target
}

// absolute resolves a relative import target against the module's package.
func absolute(mod *Module, target string) string {
	dots := len(target) - len(strings.TrimLeft(target, "."))
	pkg := strings.Split(mod.Name, ".")
	if !strings.HasSuffix(mod.Path, "__init__.py") {
		pkg = pkg[:len(pkg)-1]
	}
	up := dots - 1
	if up > len(pkg) {
		up = len(pkg)
	}
	pkg = pkg[:len(pkg)-up]
	tail := target[dots:]
	if len(pkg) == 0 || (len(pkg) == 1 && pkg[0] == "") {
		return tail
	}
	return strings.Join(pkg, ".") + "." + tail
}

func bareName(name string) string {
	for _, p := range strippedPrefixes {
		if strings.HasPrefix(name, p) {
			return name[len(p):]
		}
	}
	return name
}

func isWellKnown(name string) bool {
	for _, p := range strippedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// lookupClass finds the indexed class a name refers to, if any. A name
// imported from a module outside the index falls back to the only indexed
// class with the same simple name.
func (ix *Index) lookupClass(mod *Module, name string) *classEntry {
	target := ix.canonical(mod, name)
	if e := ix.classes[target]; e != nil {
		return e
	}
	if isWellKnown(target) || target == name && !strings.Contains(name, ".") {
		return nil
	}
	simple := target[strings.LastIndex(target, ".")+1:]
	if cands := ix.bySimple[simple]; len(cands) == 1 {
		return cands[0]
	}
	return nil
}

// Resolve turns annotation text written in mod into a hint. An empty
// annotation yields nil. Text that does not parse becomes an opaque name
// that type derivation rejects.
func (ix *Index) Resolve(mod *Module, annotation string) *typehint.Hint {
	if strings.TrimSpace(annotation) == "" {
		return nil
	}
	expr, err := ParseAnnotation(annotation)
	if err != nil {
		return typehint.Named(strings.TrimSpace(annotation))
	}
	return ix.resolveExpr(mod, expr, 0)
}

const maxForwardDepth = 8

func (ix *Index) resolveExpr(mod *Module, e *Expr, depth int) *typehint.Hint {
	switch {
	case e.None:
		return typehint.None()
	case e.Ellipsis:
		return typehint.Ellipsis()
	case e.IsLiteral:
		// A string in type position is a forward reference.
		if s, ok := e.Literal.(string); ok && depth < maxForwardDepth {
			if inner, err := ParseAnnotation(s); err == nil {
				return ix.resolveExpr(mod, inner, depth+1)
			}
			return typehint.Named(s)
		}
		return typehint.Literal(e.Literal)
	case len(e.Union) > 0:
		args := make([]*typehint.Hint, len(e.Union))
		for i, m := range e.Union {
			args[i] = ix.resolveExpr(mod, m, depth)
		}
		return typehint.Named("Union", args...)
	case e.IsList:
		return typehint.Named(e.Text)
	}

	if c := ix.lookupClass(mod, e.Name); c != nil {
		switch c.kind {
		case classRecord:
			return typehint.Record(c.record)
		case classEnum:
			return typehint.Enum(c.enum)
		}
		return typehint.Named(c.qual)
	}

	name := bareName(ix.canonical(mod, e.Name))
	h := typehint.Named(name)
	for i, a := range e.Args {
		switch {
		case name == "Literal", name == "Annotated" && i > 0:
			h.Args = append(h.Args, literalArg(a))
		default:
			h.Args = append(h.Args, ix.resolveExpr(mod, a, depth))
		}
	}
	return h
}

// literalArg keeps the value of a Literal[...] member or an Annotated
// metadata argument instead of reading it as a type.
func literalArg(e *Expr) *typehint.Hint {
	switch {
	case e.None:
		return typehint.None()
	case e.IsLiteral:
		return typehint.Literal(e.Literal)
	}
	return typehint.Named(e.Text)
}

// Callables converts the functions of mod into inspectable callables.
func (ix *Index) Callables(mod *Module) []*inspect.Callable {
	out := make([]*inspect.Callable, 0, len(mod.Functions))
	for _, fn := range mod.Functions {
		c := &inspect.Callable{
			Name:     fn.Name,
			Doc:      fn.Doc,
			Method:   fn.Class != "",
			Result:   ix.Resolve(mod, fn.Returns),
			Location: fmt.Sprintf("%s:%d", mod.Path, fn.Line),
		}
		for _, d := range fn.Decorators {
			if bareName(ix.canonical(mod, d.Name)) == "staticmethod" || d.Name == "staticmethod" {
				c.Method = false
				continue
			}
			c.Markers = append(c.Markers, inspect.MarkerUse{Name: ix.markerName(mod, d.Name), Args: d.Args})
		}
		for _, p := range fn.Params {
			c.Params = append(c.Params, inspect.Param{
				Name:       p.Name,
				Hint:       ix.Resolve(mod, p.Annotation),
				HasDefault: p.HasDefault,
				Variadic:   p.Variadic,
			})
		}
		out = append(out, c)
	}
	return out
}

// markerName maps a decorator to the form inspect recognizes: markers
// imported from any NEAR SDK module become near.<name>.
func (ix *Index) markerName(mod *Module, name string) string {
	target := ix.canonical(mod, name)
	root, _, _ := strings.Cut(target, ".")
	if nearRoots[root] && strings.Contains(target, ".") {
		return "near." + target[strings.LastIndex(target, ".")+1:]
	}
	return target
}
