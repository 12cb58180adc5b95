// Package inspect turns discovered callables into function specs: it reads
// the contract markers, picks the serialization mode and derives parameter
// and result types.
package inspect

import (
	"github.com/nearabi/nearabi/schema"
	"github.com/nearabi/nearabi/typehint"
)

// Kind is whether a function mutates state.
type Kind string

const (
	KindView Kind = "view"
	KindCall Kind = "call"
)

// Modifier is an extra property of a function.
type Modifier string

const (
	ModifierInit    Modifier = "init"
	ModifierPrivate Modifier = "private"
	ModifierPayable Modifier = "payable"
)

// modifierOrder is the canonical output order of modifiers.
var modifierOrder = []Modifier{ModifierInit, ModifierPrivate, ModifierPayable}

// Serialization is the wire encoding of parameters and results.
type Serialization string

const (
	SerializationJSON  Serialization = "json"
	SerializationBorsh Serialization = "borsh"
)

// MarkerUse is one marker applied to a callable, with its keyword
// arguments, e.g. @call(serialization="borsh").
type MarkerUse struct {
	Name string
	Args map[string]string
}

// Param is a declared parameter of a callable.
type Param struct {
	Name       string
	Hint       *typehint.Hint // nil when unannotated
	HasDefault bool
	// Variadic is set for *args and **kwargs.
	Variadic bool
}

// Callable is a function or method as discovered in source.
type Callable struct {
	Name    string
	Markers []MarkerUse
	Params  []Param
	// Result is nil when the callable has no return annotation.
	Result *typehint.Hint
	Doc    *string
	// Method is set for callables defined in a class body, whose first
	// parameter is the instance.
	Method bool
	// Location is "file:line" for messages.
	Location string
}

// ParamSpec is a derived parameter.
type ParamSpec struct {
	Name string
	Type *schema.Descriptor
}

// FunctionSpec is everything the ABI needs about one contract function.
type FunctionSpec struct {
	Name          string
	Kind          Kind
	Modifiers     []Modifier
	Params        []ParamSpec
	Result        *schema.Descriptor // nil when the function returns nothing
	Doc           *string
	Serialization Serialization
}

// HasModifier reports whether m is set on f.
func (f *FunctionSpec) HasModifier(m Modifier) bool {
	for _, x := range f.Modifiers {
		if x == m {
			return true
		}
	}
	return false
}
