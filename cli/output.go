// Package cli holds the terminal output helpers shared by the nearabi
// commands. Status messages go to the error stream; the standard output
// stream is reserved for ABI documents.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"golang.org/x/term"

	"github.com/nearabi/nearabi/abi"
	"github.com/nearabi/nearabi/schema"
	"github.com/nearabi/nearabi/validate"
)

var (
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

// SetColor turns coloured output on or off for the whole process.
func SetColor(enabled bool) {
	color.NoColor = !enabled
	if enabled {
		pterm.EnableColor()
	} else {
		pterm.DisableColor()
	}
}

// ColorDefault reports whether colour should be on when no flag says
// otherwise: stderr is a terminal and NO_COLOR is unset.
func ColorDefault() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// Printer writes status output to W.
type Printer struct {
	W io.Writer
}

// Stderr returns a Printer on os.Stderr.
func Stderr() *Printer { return &Printer{W: os.Stderr} }

// Info prints an informational message.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.W, msg)
}

// Infof prints a formatted informational message.
func (p *Printer) Infof(format string, args ...any) {
	fmt.Fprintf(p.W, format+"\n", args...)
}

// Success prints a success message.
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.W, green("✓"), msg)
}

// Successf prints a formatted success message.
func (p *Printer) Successf(format string, args ...any) {
	fmt.Fprintf(p.W, green("✓")+" "+format+"\n", args...)
}

// Warn prints a warning message.
func (p *Printer) Warn(msg string) {
	fmt.Fprintln(p.W, yellow("warning:"), msg)
}

// Warnf prints a formatted warning message.
func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintf(p.W, yellow("warning:")+" "+format+"\n", args...)
}

// Error prints an error message.
func (p *Printer) Error(msg string) {
	fmt.Fprintln(p.W, red("error:"), msg)
}

// Errorf prints a formatted error message.
func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintf(p.W, red("error:")+" "+format+"\n", args...)
}

// Diagnostics lists validation findings, errors in red and warnings in
// yellow.
func (p *Printer) Diagnostics(diags []validate.Diagnostic) {
	for _, d := range diags {
		mark := yellow("!")
		if d.Severity == validate.SeverityError {
			mark = red("!")
		}
		fmt.Fprintf(p.W, "  %s %s\n", mark, d)
	}
}

// Failures lists functions that were left out of the document.
func (p *Printer) Failures(failures []*abi.FunctionError) {
	for _, f := range failures {
		fmt.Fprintf(p.W, "  %s %s\n", red("✗"), f)
	}
}

// FunctionTable prints a summary of the document's functions.
func (p *Printer) FunctionTable(doc *abi.Document) error {
	if len(doc.Body.Functions) == 0 {
		p.Warn("no contract functions found in the source")
		return nil
	}

	data := [][]string{{"Function", "Kind", "Modifiers", "Parameters", "Result"}}
	for _, fn := range doc.Body.Functions {
		mods := make([]string, len(fn.Modifiers))
		for i, m := range fn.Modifiers {
			mods[i] = string(m)
		}
		var params []string
		if fn.Params != nil {
			for _, a := range fn.Params.Args {
				params = append(params, a.Name)
			}
		}
		data = append(data, []string{
			cyan(fn.Name),
			string(fn.Kind),
			orDash(strings.Join(mods, ", ")),
			orDash(strings.Join(params, ", ")),
			ResultLabel(fn.Result),
		})
	}

	return p.Table(data)
}

// Table renders rows with the first row as header.
func (p *Printer) Table(rows [][]string) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData(rows)).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	fmt.Fprintln(p.W, out)
	return nil
}

// ResultLabel is a short description of a function's result type: the
// referenced definition name, the JSON type, or the borsh declaration.
func ResultLabel(ti *abi.TypeInfo) string {
	if ti == nil {
		return "-"
	}
	switch s := ti.TypeSchema.(type) {
	case *schema.JSONSchema:
		if s.Ref != "" {
			return strings.TrimPrefix(s.Ref, schema.DefinitionRef(""))
		}
		if len(s.Type) > 0 {
			parts := make([]string, len(s.Type))
			for i, t := range s.Type {
				parts[i] = string(t)
			}
			return strings.Join(parts, " | ")
		}
		if len(s.AnyOf) > 0 {
			return "anyOf"
		}
	case *schema.BorshTypeSchema:
		return s.Declaration
	case map[string]any:
		if ref, ok := s["$ref"].(string); ok {
			return strings.TrimPrefix(ref, schema.DefinitionRef(""))
		}
		if decl, ok := s["declaration"].(string); ok {
			return decl
		}
		switch t := s["type"].(type) {
		case string:
			return t
		case []any:
			parts := make([]string, len(t))
			for i, x := range t {
				parts[i] = fmt.Sprint(x)
			}
			return strings.Join(parts, " | ")
		}
	}
	return "any"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Fatal prints a message to stderr and exits with code 1.
func Fatal(msg string) {
	Stderr().Error(msg)
	os.Exit(1)
}

// FatalErr prints an error message with details to stderr and exits with code 1.
func FatalErr(msg string, err error) {
	Stderr().Errorf("%s: %v", msg, err)
	os.Exit(1)
}
