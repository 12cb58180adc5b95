// Package abi assembles function specs and type definitions into a NEAR
// contract ABI document (schema 0.4.0).
package abi

import (
	"github.com/nearabi/nearabi/inspect"
	"github.com/nearabi/nearabi/schema"
)

// SchemaVersion is the ABI schema version every document carries.
const SchemaVersion = "0.4.0"

// Document is the ABI root object.
type Document struct {
	SchemaVersion string   `json:"schema_version"`
	Metadata      Metadata `json:"metadata"`
	Body          Body     `json:"body"`
}

// Metadata describes the contract. All fields are optional and passed
// through unchanged.
type Metadata struct {
	Name     string     `json:"name,omitempty"`
	Version  string     `json:"version,omitempty"`
	Authors  []string   `json:"authors,omitempty"`
	Build    *BuildInfo `json:"build,omitempty"`
	WasmHash string     `json:"wasm_hash,omitempty"`
	// Sources lists the scanned Python files, slash-separated and relative
	// to the project root.
	Sources []string `json:"sources,omitempty"`
}

// BuildInfo records how the contract was built.
type BuildInfo struct {
	Compiler string `json:"compiler"`
	Builder  string `json:"builder"`
	Image    string `json:"image,omitempty"`
}

// Body holds the functions and the shared type definitions.
type Body struct {
	Functions  []Function         `json:"functions"`
	RootSchema *schema.RootSchema `json:"root_schema"`
}

// Function is one exported contract function.
type Function struct {
	Name      string             `json:"name"`
	Doc       *string            `json:"doc,omitempty"`
	Kind      inspect.Kind       `json:"kind"`
	Modifiers []inspect.Modifier `json:"modifiers,omitempty"`
	Params    *Parameters        `json:"params,omitempty"`
	Result    *TypeInfo          `json:"result,omitempty"`
}

// Parameters lists the arguments of a function.
type Parameters struct {
	SerializationType inspect.Serialization `json:"serialization_type"`
	Args              []Arg                 `json:"args"`
}

// Arg is a named argument. TypeSchema is a *schema.JSONSchema for json
// functions and a *schema.BorshTypeSchema for borsh ones.
type Arg struct {
	Name       string `json:"name"`
	TypeSchema any    `json:"type_schema"`
}

// TypeInfo is the result type of a function.
type TypeInfo struct {
	SerializationType inspect.Serialization `json:"serialization_type"`
	TypeSchema        any                   `json:"type_schema"`
}

// FunctionNames returns the names of all functions in document order.
func (d *Document) FunctionNames() []string {
	names := make([]string, len(d.Body.Functions))
	for i, f := range d.Body.Functions {
		names[i] = f.Name
	}
	return names
}

// Function returns the function called name.
func (d *Document) Function(name string) (*Function, bool) {
	for i := range d.Body.Functions {
		if d.Body.Functions[i].Name == name {
			return &d.Body.Functions[i], true
		}
	}
	return nil, false
}
