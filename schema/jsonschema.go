package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DraftURI is the $schema value of every root schema.
const DraftURI = "http://json-schema.org/draft-07/schema#"

// RootTitle is the title of every root schema.
const RootTitle = "NEAR Contract Schema"

// JSONSchema is a draft-07 schema object as emitted in ABI documents.
type JSONSchema struct {
	Ref                  string        `json:"$ref,omitempty"`
	Type                 Types         `json:"type,omitempty"`
	Format               string        `json:"format,omitempty"`
	Description          string        `json:"description,omitempty"`
	Enum                 []any         `json:"enum,omitempty"`
	Pattern              string        `json:"pattern,omitempty"`
	Minimum              *float64      `json:"minimum,omitempty"`
	Properties           Properties    `json:"properties,omitempty"`
	Required             []string      `json:"required,omitempty"`
	Items                *Items        `json:"items,omitempty"`
	MinItems             *int          `json:"minItems,omitempty"`
	MaxItems             *int          `json:"maxItems,omitempty"`
	UniqueItems          bool          `json:"uniqueItems,omitempty"`
	AdditionalProperties *JSONSchema   `json:"additionalProperties,omitempty"`
	AnyOf                []*JSONSchema `json:"anyOf,omitempty"`
}

// Types is the "type" keyword: a string when it holds one name, an array
// otherwise.
type Types []Primitive

func (t Types) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(string(t[0]))
	}
	return json.Marshal([]Primitive(t))
}

func (t *Types) UnmarshalJSON(data []byte) error {
	var one Primitive
	if err := json.Unmarshal(data, &one); err == nil {
		*t = Types{one}
		return nil
	}
	var many []Primitive
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*t = many
	return nil
}

// Items is the "items" keyword: one schema for sequences, a list for tuples.
type Items struct {
	Single *JSONSchema
	Tuple  []*JSONSchema
}

func (it Items) MarshalJSON() ([]byte, error) {
	if it.Tuple != nil {
		return json.Marshal(it.Tuple)
	}
	return json.Marshal(it.Single)
}

func (it *Items) UnmarshalJSON(data []byte) error {
	if len(bytes.TrimSpace(data)) > 0 && bytes.TrimSpace(data)[0] == '[' {
		return json.Unmarshal(data, &it.Tuple)
	}
	return json.Unmarshal(data, &it.Single)
}

// Property is one entry of a "properties" object.
type Property struct {
	Name   string
	Schema *JSONSchema
}

// Properties keeps record fields in declaration order when marshaled.
type Properties []Property

func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(prop.Schema)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("properties: expected an object, got %v", tok)
	}
	out := Properties{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var s JSONSchema
		if err := dec.Decode(&s); err != nil {
			return err
		}
		out = append(out, Property{Name: name, Schema: &s})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// Get returns the schema stored under name.
func (p Properties) Get(name string) (*JSONSchema, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Schema, true
		}
	}
	return nil, false
}

// RootSchema is the body.root_schema of an ABI document.
type RootSchema struct {
	Schema      string     `json:"$schema"`
	Title       string     `json:"title"`
	Definitions Properties `json:"definitions"`
}
