package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedType         = errors.New("unsupported type")
	ErrUnsupportedKeyType      = errors.New("unsupported mapping key type")
	ErrUnderspecifiedContainer = errors.New("container type is missing its element types")
	ErrMissingTypeAnnotation   = errors.New("missing type annotation")
	ErrTypeNameCollision       = errors.New("type name collision")
)

// DeriveError attaches the failing location to a derivation error.
type DeriveError struct {
	Function string
	Param    string // empty for the return type
	Type     string // annotation as written, when known
	Err      error
}

func (e *DeriveError) Error() string {
	var b strings.Builder
	if e.Function != "" {
		fmt.Fprintf(&b, "function %q, ", e.Function)
	}
	if e.Param != "" {
		fmt.Fprintf(&b, "parameter %q: ", e.Param)
	} else {
		b.WriteString("return type: ")
	}
	b.WriteString(e.Err.Error())
	if e.Type != "" {
		fmt.Fprintf(&b, " (%s)", e.Type)
	}
	return b.String()
}

func (e *DeriveError) Unwrap() error { return e.Err }

// CollisionError reports two distinct types registered under one name.
type CollisionError struct {
	Name   string
	First  string // qualified name of the definition already registered
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("type name collision: %q is declared by both %s and %s", e.Name, e.First, e.Second)
}

func (e *CollisionError) Unwrap() error { return ErrTypeNameCollision }
