package pysource

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// DefaultExcludes are never scanned.
var DefaultExcludes = []string{".git/", "__pycache__/", ".venv/", "venv/"}

// ScanOptions controls which files Scan returns.
type ScanOptions struct {
	// Recursive descends into subdirectories.
	Recursive bool
	// Exclude holds gitignore-syntax patterns relative to the root.
	Exclude []string
	// RespectGitignore applies .gitignore files found under the root.
	RespectGitignore bool
}

// Scan lists the Python files under root as slash-separated paths relative
// to root, sorted. If root is a file it is returned alone.
func Scan(root string, opts ScanOptions) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		if !isPython(root) {
			return nil, fmt.Errorf("%s is not a Python file", root)
		}
		return []string{filepath.Base(root)}, nil
	}

	matcher, err := newMatcher(root, opts)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if d.IsDir() {
			if !opts.Recursive || matcher.Match(parts, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if isPython(path) && !matcher.Match(parts, false) {
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func isPython(path string) bool {
	return strings.HasSuffix(path, ".py")
}

func newMatcher(root string, opts ScanOptions) (gitignore.Matcher, error) {
	var patterns []gitignore.Pattern
	if opts.RespectGitignore {
		ps, err := gitignore.ReadPatterns(osfs.New(root), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read .gitignore under %s: %w", root, err)
		}
		patterns = append(patterns, ps...)
	}
	for _, p := range append(append([]string{}, DefaultExcludes...), opts.Exclude...) {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}
	return gitignore.NewMatcher(patterns), nil
}
