package abi

import (
	"errors"
	"fmt"

	"github.com/nearabi/nearabi/schema"
)

var (
	ErrDuplicateFunctionName = errors.New("duplicate function name")
	ErrTypeNameCollision     = schema.ErrTypeNameCollision
	ErrDanglingReference     = errors.New("dangling type reference")
)

// FunctionError is a per-function failure. The function is left out of the
// document and generation carries on.
type FunctionError struct {
	Unit     string
	Function string
	Err      error
}

func (e *FunctionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Unit, e.Function, e.Err)
}

func (e *FunctionError) Unwrap() error { return e.Err }

// DuplicateError reports the same function name exported twice in a batch.
type DuplicateError struct {
	Name       string
	FirstUnit  string
	SecondUnit string
}

func (e *DuplicateError) Error() string {
	if e.FirstUnit == e.SecondUnit {
		return fmt.Sprintf("duplicate function name %q in %s", e.Name, e.FirstUnit)
	}
	return fmt.Sprintf("duplicate function name %q in %s and %s", e.Name, e.FirstUnit, e.SecondUnit)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateFunctionName }
