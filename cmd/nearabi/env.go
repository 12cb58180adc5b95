package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nearabi/nearabi/cli"
	"github.com/nearabi/nearabi/internal/config"
	"github.com/nearabi/nearabi/logging"
	"github.com/nearabi/nearabi/project"
)

// env is what a command needs once the project around its input is known.
type env struct {
	root   *project.Root
	cfg    *config.Config
	logger *zap.Logger
	runID  string
	out    *cli.Printer
}

// newEnv locates the project containing path, loads its nearabi.ini and
// builds the logger.
func newEnv(cmd *cobra.Command, flags *globalFlags, path string) (*env, error) {
	if path == "" {
		path = "."
	}
	root, err := project.FindRootOrSelf(path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root.Dir)
	if err != nil {
		return nil, err
	}

	opts := logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Output:     cmd.ErrOrStderr(),
	}
	if flags.logLevel != "" {
		opts.Level = flags.logLevel
	}
	if flags.verbose {
		opts.Level = "debug"
	}
	if flags.logFormat != "" {
		opts.Format = flags.logFormat
	}
	if flags.logFile != "" {
		opts.File = flags.logFile
	}
	if opts.File != "" && !filepath.IsAbs(opts.File) {
		opts.File = filepath.Join(root.Dir, opts.File)
	}

	logger, err := logging.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	logger, runID := logging.WithRunID(logger.With(zap.String("command", cmd.Name())))
	logger.Debug("project located",
		zap.String("root", root.Dir),
		zap.String("marker", root.Marker),
		zap.Bool("config", cfg.Found))

	return &env{
		root:   root,
		cfg:    cfg,
		logger: logger,
		runID:  runID,
		out:    &cli.Printer{W: cmd.ErrOrStderr()},
	}, nil
}

// close flushes the logger.
func (e *env) close() {
	_ = e.logger.Sync()
}
