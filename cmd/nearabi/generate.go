package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nearabi/nearabi/abi"
	"github.com/nearabi/nearabi/abistore"
	"github.com/nearabi/nearabi/metadata"
	"github.com/nearabi/nearabi/pysource"
	"github.com/nearabi/nearabi/validate"
)

// genOptions are the effective generate settings after merging flags over
// nearabi.ini over defaults.
type genOptions struct {
	output    string
	format    abi.Format
	recursive bool
	validate  bool
	exclude   []string
	gitignore bool
	record    bool
}

type genFlags struct {
	output      string
	format      string
	recursive   bool
	noRecursive bool
	validate    bool
	noValidate  bool
	exclude     []string
	noGitignore bool
	record      bool
}

func (f *genFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "write the ABI to this file instead of stdout")
	fl.StringVar(&f.format, "format", "", "output format: json or yaml")
	fl.BoolVar(&f.recursive, "recursive", true, "scan subdirectories")
	fl.BoolVar(&f.noRecursive, "no-recursive", false, "only scan the top directory")
	fl.BoolVar(&f.validate, "validate", true, "validate the generated ABI")
	fl.BoolVar(&f.noValidate, "no-validate", false, "skip validation")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "gitignore-style patterns to skip (repeatable)")
	fl.BoolVar(&f.noGitignore, "no-gitignore", false, "do not apply .gitignore files")
}

// resolve merges the flags that were set over the config.
func (f *genFlags) resolve(cmd *cobra.Command, e *env) (genOptions, error) {
	g := e.cfg.Generate
	o := genOptions{
		output:    g.Output,
		recursive: g.Recursive,
		validate:  g.Validate,
		exclude:   g.Exclude,
		gitignore: g.RespectGitignore,
		record:    f.record,
	}
	if o.output != "" && !filepath.IsAbs(o.output) {
		o.output = filepath.Join(e.root.Dir, o.output)
	}

	fl := cmd.Flags()
	if fl.Changed("output") {
		o.output = f.output
	}
	if fl.Changed("recursive") {
		o.recursive = f.recursive
	}
	if f.noRecursive {
		o.recursive = false
	}
	if fl.Changed("validate") {
		o.validate = f.validate
	}
	if f.noValidate {
		o.validate = false
	}
	if fl.Changed("exclude") {
		o.exclude = append(append([]string{}, o.exclude...), f.exclude...)
	}
	if f.noGitignore {
		o.gitignore = false
	}

	format := g.Format
	if fl.Changed("format") {
		format = f.format
	}
	var err error
	if o.format, err = abi.ParseFormat(format); err != nil {
		return o, err
	}
	return o, nil
}

func (o genOptions) scan() pysource.ScanOptions {
	return pysource.ScanOptions{
		Recursive:        o.recursive,
		Exclude:          o.exclude,
		RespectGitignore: o.gitignore,
	}
}

type sourceLoader interface {
	Load(ctx context.Context, root string) (*pysource.LoadResult, error)
}

// generation is the outcome of one pipeline run.
type generation struct {
	load   *pysource.LoadResult
	result *abi.Result
	diags  []validate.Diagnostic
	data   []byte
}

func (g *generation) failed() bool {
	return len(g.result.Failures) > 0 || validate.HasErrors(g.diags)
}

func newGenerateCmd(gf *globalFlags) *cobra.Command {
	flags := &genFlags{}
	cmd := &cobra.Command{
		Use:   "generate [path]",
		Short: "Generate the ABI of a Python contract (file or directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			e, err := newEnv(cmd, gf, path)
			if err != nil {
				return err
			}
			defer e.close()

			opts, err := flags.resolve(cmd, e)
			if err != nil {
				return err
			}
			gen, err := e.generate(cmd.Context(), pysource.NewLoader(e.logger, opts.scan()), path, opts)
			if err != nil {
				return err
			}
			e.report(gen)

			if validate.HasErrors(gen.diags) {
				e.out.Error("generated ABI failed validation; nothing written")
				return errSilent
			}
			if err := writeOutput(cmd.OutOrStdout(), opts.output, gen.data); err != nil {
				return err
			}
			if opts.output != "" {
				e.out.Successf("Wrote %s (%d functions)", opts.output, len(gen.result.Document.Body.Functions))
			}
			if opts.record {
				if err := e.record(cmd.Context(), gen.result.Document); err != nil {
					return err
				}
			}
			if gen.failed() {
				return errSilent
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.record, "record", false, "store the ABI in the history database")
	return cmd
}

// generate runs load → inspect → assemble → validate → encode.
func (e *env) generate(ctx context.Context, loader sourceLoader, path string, opts genOptions) (*generation, error) {
	load, err := loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	meta, err := metadata.Load(e.root.Dir, "nearabi "+version)
	if err != nil {
		e.logger.Warn("using default metadata", zap.Error(err))
		e.out.Warnf("%v; using defaults", err)
	}
	meta.Sources = load.Files

	result, err := abi.NewGenerator(e.logger).Generate(load.Units, meta)
	if err != nil {
		return nil, err
	}
	gen := &generation{load: load, result: result}

	if opts.validate {
		v, err := validate.New()
		if err != nil {
			return nil, err
		}
		if gen.diags, err = v.ValidateDocument(result.Document); err != nil {
			return nil, err
		}
	}

	if gen.data, err = result.Document.Encode(opts.format); err != nil {
		return nil, err
	}
	e.logger.Debug("generation finished",
		zap.Int("files", len(load.Files)),
		zap.Int("skipped", result.Skipped),
		zap.Int("diagnostics", len(gen.diags)))
	return gen, nil
}

// report prints parse errors, the function table, per-function failures
// and validation diagnostics.
func (e *env) report(gen *generation) {
	for _, perr := range gen.load.Errors {
		e.out.Warnf("skipped %s", perr)
	}
	if err := e.out.FunctionTable(gen.result.Document); err != nil {
		e.logger.Warn("failed to print function table", zap.Error(err))
	}
	if n := len(gen.result.Failures); n > 0 {
		e.out.Errorf("%d function(s) could not be exported:", n)
		e.out.Failures(gen.result.Failures)
	}
	if len(gen.diags) > 0 {
		e.out.Warnf("%d validation finding(s):", len(gen.diags))
		e.out.Diagnostics(gen.diags)
	}
}

func (e *env) record(ctx context.Context, doc *abi.Document) error {
	store, err := abistore.Open(ctx, e.cfg.RegistryURL(), e.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	entry, created, err := store.Record(ctx, doc)
	if err != nil {
		return err
	}
	if created {
		e.out.Successf("Recorded %s %s (%s)", entry.Name, entry.Version, shortDigest(entry.Digest))
	} else {
		e.out.Infof("%s %s (%s) already recorded", entry.Name, entry.Version, shortDigest(entry.Digest))
	}
	return nil
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
