// Package initcmd implements 'nearabi init': it writes a
// nearabi.ini with the default settings and keeps .nearabi/ out of git.
package initcmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nearabi/nearabi/cli"
	"github.com/nearabi/nearabi/internal/config"
)

// ErrConfigExists is returned when nearabi.ini already exists and Force is
// not set.
var ErrConfigExists = errors.New("nearabi.ini already exists")

const gitignoreEntry = ".nearabi/"

// Options configures the init command execution.
type Options struct {
	// Force overwrites an existing nearabi.ini.
	Force bool
	// Output receives the summary. Defaults to os.Stderr.
	Output io.Writer
}

// Result reports what Execute changed.
type Result struct {
	ConfigPath       string
	Overwrote        bool
	UpdatedGitignore bool
}

// Execute initializes dir as a nearabi project.
func Execute(dir string, opts Options) (*Result, error) {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	configPath := filepath.Join(dir, config.ConfigFilename)

	exists, err := config.Exists(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", config.ConfigFilename, err)
	}
	if exists && !opts.Force {
		return nil, fmt.Errorf("%w in %s (use --force to overwrite)", ErrConfigExists, dir)
	}

	// Write atomically: write to temp file then rename
	tmpPath := configPath + ".tmp"
	if err := config.Template().WriteFile(tmpPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to finalize config file: %w", err)
	}

	updated, err := ensureGitignore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to update .gitignore: %w", err)
	}

	res := &Result{ConfigPath: configPath, Overwrote: exists, UpdatedGitignore: updated}
	printSuccess(&cli.Printer{W: opts.Output}, res)
	return res, nil
}

// ensureGitignore creates or updates .gitignore to include .nearabi/.
// Returns true if the file was created or modified.
func ensureGitignore(dir string) (bool, error) {
	gitignorePath := filepath.Join(dir, ".gitignore")

	content, err := os.ReadFile(gitignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	if err == nil {
		for _, line := range strings.Split(string(content), "\n") {
			switch strings.TrimSpace(line) {
			case gitignoreEntry, ".nearabi", "/.nearabi/", "/.nearabi":
				return false, nil
			}
		}
	}

	var newContent string
	if len(content) == 0 {
		newContent = "# nearabi local state\n" + gitignoreEntry + "\n"
	} else {
		existing := string(content)
		if !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		newContent = existing + "\n# nearabi local state\n" + gitignoreEntry + "\n"
	}
	if err := os.WriteFile(gitignorePath, []byte(newContent), 0644); err != nil {
		return false, err
	}
	return true, nil
}

func printSuccess(p *cli.Printer, res *Result) {
	if res.Overwrote {
		p.Successf("Overwrote %s", config.ConfigFilename)
	} else {
		p.Successf("Created %s", config.ConfigFilename)
	}
	if res.UpdatedGitignore {
		p.Info("  Updated .gitignore")
	}
	p.Info("")
	p.Info("Next steps:")
	p.Info("  nearabi generate . -o abi.json")
}
