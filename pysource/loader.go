package pysource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/nearabi/nearabi/abi"
)

// LoadResult is what a Loader found under a root.
type LoadResult struct {
	// Units holds one unit per file that declares at least one function,
	// in path order.
	Units []abi.Unit
	// Errors lists files that failed to parse. They are skipped.
	Errors []*ParseError
	// Files is every Python file that was scanned.
	Files []string
}

type readFunc func(p *Parser, abs, rel string) (*Module, error)

// Loader scans, parses and resolves the Python sources of a contract.
type Loader struct {
	logger *zap.Logger
	opts   ScanOptions
	read   readFunc
}

// NewLoader returns a Loader. A nil logger discards output.
func NewLoader(logger *zap.Logger, opts ScanOptions) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger, opts: opts, read: readModule}
}

// Load reads every Python file under root. root may be a single file.
func (l *Loader) Load(ctx context.Context, root string) (*LoadResult, error) {
	files, err := Scan(root, l.opts)
	if err != nil {
		return nil, err
	}
	base := root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		base = filepath.Dir(root)
	}

	parser, err := NewParser()
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	res := &LoadResult{Files: files}
	mods := make([]*Module, 0, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mod, err := l.read(parser, filepath.Join(base, filepath.FromSlash(rel)), rel)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				l.logger.Warn("skipping file with syntax error",
					zap.String("file", perr.File),
					zap.Int("line", perr.Line),
					zap.String("error", perr.Message),
				)
				res.Errors = append(res.Errors, perr)
				continue
			}
			return nil, err
		}
		mods = append(mods, mod)
	}

	ix := NewIndex(mods)
	for _, mod := range mods {
		callables := ix.Callables(mod)
		if len(callables) == 0 {
			continue
		}
		res.Units = append(res.Units, abi.Unit{ID: mod.Path, Callables: callables})
	}
	l.logger.Debug("loaded sources",
		zap.String("root", root),
		zap.Int("files", len(files)),
		zap.Int("units", len(res.Units)),
		zap.Int("parse_errors", len(res.Errors)),
	)
	return res, nil
}

func readModule(p *Parser, abs, rel string) (*Module, error) {
	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return p.Parse(rel, src)
}
