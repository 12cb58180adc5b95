package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nearabi/nearabi/pysource"
	"github.com/nearabi/nearabi/validate"
	"github.com/nearabi/nearabi/watch"
)

// defaultWatchOutput is used when neither -o nor nearabi.ini names a file.
const defaultWatchOutput = "abi.json"

func newWatchCmd(gf *globalFlags) *cobra.Command {
	flags := &genFlags{}
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Regenerate the ABI whenever the contract sources change",
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
			if opts.output == "" || opts.output == "-" {
				opts.output = defaultWatchOutput
			}
			loader, err := pysource.NewCachedLoader(e.logger, opts.scan(), pysource.DefaultCacheSize)
			if err != nil {
				return err
			}

			e.out.Infof("Watching %s, writing %s (Ctrl+C to stop)", path, opts.output)
			w := watch.New(path, debounce, e.logger)
			return w.Run(cmd.Context(), func(ctx context.Context) error {
				return e.regenerate(ctx, loader, path, opts)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "how long changes must settle before regenerating")
	return cmd
}

// regenerate is one watch iteration. Documents with failures are still
// written so the output tracks the sources; invalid ones are not.
func (e *env) regenerate(ctx context.Context, loader *pysource.CachedLoader, path string, opts genOptions) error {
	gen, err := e.generate(ctx, loader, path, opts)
	if err != nil {
		e.out.Errorf("%v", err)
		return err
	}
	e.report(gen)
	if validate.HasErrors(gen.diags) {
		return fmt.Errorf("generated ABI failed validation")
	}
	if err := writeOutput(nil, opts.output, gen.data); err != nil {
		return err
	}
	e.logger.Info("abi regenerated",
		zap.String("output", opts.output),
		zap.Int("functions", len(gen.result.Document.Body.Functions)),
		zap.Int("cached_files", loader.Len()))
	e.out.Successf("Wrote %s (%d functions)", opts.output, len(gen.result.Document.Body.Functions))
	return nil
}
