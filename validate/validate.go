// Package validate checks ABI documents against the embedded ABI 0.4.0
// JSON Schema plus a few structural rules the schema cannot express.
package validate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nearabi/nearabi/abi"
)

//go:embed abi_schema.json
var abiSchemaJSON []byte

const schemaURL = "https://nearabi.dev/schemas/abi-0.4.0.json"

// ErrNotTraversable is returned when the document root is not a JSON object.
var ErrNotTraversable = errors.New("abi document is not a JSON object")

// Severity grades a Diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one finding. Path is a JSON pointer into the document.
type Diagnostic struct {
	Path     string   `json:"path"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (d Diagnostic) String() string {
	path := d.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s: %s: %s", d.Severity, path, d.Message)
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validator checks documents against the compiled ABI schema.
type Validator struct {
	schema *jsonschema.Schema
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(schemaURL, bytes.NewReader(abiSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to load abi schema: %w", err)
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile abi schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// ValidateBytes decodes data and validates it.
func (v *Validator) ValidateBytes(data []byte) ([]Diagnostic, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse abi document: %w", err)
	}
	return v.Validate(doc)
}

// ValidateDocument validates a document built in memory.
func (v *Validator) ValidateDocument(doc *abi.Document) ([]Diagnostic, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode abi document: %w", err)
	}
	return v.ValidateBytes(data)
}

// Validate checks a decoded JSON value. Only a root that is not an object
// is an error; everything else is reported as diagnostics.
func (v *Validator) Validate(doc any) ([]Diagnostic, error) {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, ErrNotTraversable
	}

	var diags []Diagnostic
	if err := v.schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, fmt.Errorf("schema validation failed: %w", err)
		}
		diags = append(diags, fromValidationError(ve)...)
	}
	diags = append(diags, checkVersion(root)...)
	diags = append(diags, checkDuplicateNames(root)...)

	sort.SliceStable(diags, func(i, j int) bool { return diags[i].Path < diags[j].Path })
	return diags, nil
}

var quotedName = regexp.MustCompile(`'([^']*)'|"([^"]*)"`)

// fromValidationError flattens the error tree into its leaves. Missing
// required properties get the property appended to the path so the
// diagnostic points at what is absent rather than at its parent.
func fromValidationError(ve *jsonschema.ValidationError) []Diagnostic {
	var out []Diagnostic
	seen := map[string]bool{}
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range selectedBranches(e) {
				walk(c)
			}
			return
		}
		for _, d := range leafDiagnostics(e) {
			key := d.Path + "\x00" + d.Message
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, d)
		}
	}
	walk(ve)
	return out
}

// discriminator is the property that selects a oneOf branch of function
// params and results.
const discriminator = "serialization_type"

// selectedBranches drops the oneOf branches that failed only because they
// describe another serialization_type. When no branch matches the
// discriminator every branch is kept.
func selectedBranches(e *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if !strings.HasSuffix(e.KeywordLocation, "/oneOf") {
		return e.Causes
	}
	at := joinPointer(e.InstanceLocation, discriminator)
	var kept []*jsonschema.ValidationError
	for _, c := range e.Causes {
		if !rejects(c, at) {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return e.Causes
	}
	return kept
}

// rejects reports whether e holds an enum or const failure at location.
func rejects(e *jsonschema.ValidationError, location string) bool {
	if e.InstanceLocation == location &&
		(strings.HasSuffix(e.KeywordLocation, "/enum") || strings.HasSuffix(e.KeywordLocation, "/const")) {
		return true
	}
	for _, c := range e.Causes {
		if rejects(c, location) {
			return true
		}
	}
	return false
}

func leafDiagnostics(e *jsonschema.ValidationError) []Diagnostic {
	if strings.HasSuffix(e.KeywordLocation, "/required") {
		var out []Diagnostic
		for _, m := range quotedName.FindAllStringSubmatch(e.Message, -1) {
			name := m[1] + m[2]
			out = append(out, Diagnostic{
				Path:     joinPointer(e.InstanceLocation, name),
				Message:  fmt.Sprintf("missing required property %q", name),
				Severity: SeverityError,
			})
		}
		if len(out) > 0 {
			return out
		}
	}
	return []Diagnostic{{Path: e.InstanceLocation, Message: e.Message, Severity: SeverityError}}
}

func joinPointer(base, name string) string {
	name = strings.ReplaceAll(strings.ReplaceAll(name, "~", "~0"), "/", "~1")
	return strings.TrimSuffix(base, "/") + "/" + name
}

func checkVersion(root map[string]any) []Diagnostic {
	v, ok := root["schema_version"].(string)
	if !ok || v == abi.SchemaVersion {
		return nil
	}
	return []Diagnostic{{
		Path:     "/schema_version",
		Message:  fmt.Sprintf("schema version %q differs from supported version %q", v, abi.SchemaVersion),
		Severity: SeverityWarning,
	}}
}

func checkDuplicateNames(root map[string]any) []Diagnostic {
	body, _ := root["body"].(map[string]any)
	fns, _ := body["functions"].([]any)
	first := map[string]int{}
	var out []Diagnostic
	for i, f := range fns {
		fn, _ := f.(map[string]any)
		name, ok := fn["name"].(string)
		if !ok {
			continue
		}
		if j, dup := first[name]; dup {
			out = append(out, Diagnostic{
				Path:     fmt.Sprintf("/body/functions/%d/name", i),
				Message:  fmt.Sprintf("duplicate function name %q (first declared at /body/functions/%d)", name, j),
				Severity: SeverityError,
			})
			continue
		}
		first[name] = i
	}
	return out
}
