package abi

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/nearabi/nearabi/inspect"
	"github.com/nearabi/nearabi/schema"
)

// Unit is one source unit (a Python file) and the callables found in it.
type Unit struct {
	ID        string
	Callables []*inspect.Callable
}

// Result is the outcome of a generation run.
type Result struct {
	Document *Document
	Failures []*FunctionError
	// Skipped counts callables that carried no contract marker.
	Skipped int
}

// Generator runs inspection and assembly over a batch of units.
type Generator struct {
	logger *zap.Logger
}

// NewGenerator returns a Generator. A nil logger discards output.
func NewGenerator(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{logger: logger}
}

// InspectUnit inspects every callable of u against a fresh registry.
func (g *Generator) InspectUnit(u Unit) (UnitResult, int) {
	res := UnitResult{ID: u.ID, Registry: schema.NewRegistry()}
	in := inspect.New(res.Registry)
	skipped := 0
	for _, c := range u.Callables {
		spec, err := in.Inspect(c)
		switch {
		case errors.Is(err, inspect.ErrNotAFunction):
			skipped++
		case err != nil:
			g.logger.Warn("skipping function",
				zap.String("unit", u.ID),
				zap.String("function", c.Name),
				zap.String("location", c.Location),
				zap.Error(err))
			res.Failures = append(res.Failures, &FunctionError{Unit: u.ID, Function: c.Name, Err: err})
		default:
			g.logger.Debug("inspected function",
				zap.String("unit", u.ID),
				zap.String("function", spec.Name),
				zap.String("kind", string(spec.Kind)))
			res.Functions = append(res.Functions, spec)
		}
	}
	return res, skipped
}

// Generate inspects units in ID order and assembles the document.
func (g *Generator) Generate(units []Unit, meta Metadata) (*Result, error) {
	ordered := append([]Unit(nil), units...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	results := make([]UnitResult, 0, len(ordered))
	skipped := 0
	for _, u := range ordered {
		res, n := g.InspectUnit(u)
		skipped += n
		results = append(results, res)
	}

	doc, failures, err := Assemble(results, meta)
	if err != nil {
		g.logger.Error("assembly failed", zap.Error(err))
		return nil, err
	}
	g.logger.Info("generated abi",
		zap.Int("units", len(ordered)),
		zap.Int("functions", len(doc.Body.Functions)),
		zap.Int("definitions", len(doc.Body.RootSchema.Definitions)),
		zap.Int("failures", len(failures)))
	return &Result{Document: doc, Failures: failures, Skipped: skipped}, nil
}
