// Package project locates the root of a Python contract project: the
// nearest enclosing directory holding nearabi.ini or a packaging manifest.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	ConfigFile    = "nearabi.ini"
	PyProjectFile = "pyproject.toml"
	SetupCfgFile  = "setup.cfg"
	CargoFile     = "Cargo.toml"
	GitDir        = ".git"
)

// Markers are checked in order in each directory while walking up.
var Markers = []string{ConfigFile, PyProjectFile, SetupCfgFile, CargoFile, GitDir}

var ErrNotInProject = errors.New("not in a contract project (no nearabi.ini, pyproject.toml, setup.cfg, Cargo.toml or .git found)")

// Root is a located project.
type Root struct {
	// Dir is the absolute path of the project root.
	Dir string
	// Marker is the file that identified it.
	Marker string
}

// HasConfig reports whether the root carries a nearabi.ini.
func (r *Root) HasConfig() bool {
	return Has(r.Dir, ConfigFile)
}

// FindRoot walks up from start looking for a marker. start may be a file,
// in which case the search begins in its directory.
func FindRoot(start string) (*Root, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", start, err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		for _, m := range Markers {
			if Has(dir, m) {
				return &Root{Dir: dir, Marker: m}, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ErrNotInProject
		}
		dir = parent
	}
}

// FindRootOrSelf is FindRoot falling back to start's directory.
func FindRootOrSelf(start string) (*Root, error) {
	root, err := FindRoot(start)
	if err == nil {
		return root, nil
	}
	if !errors.Is(err, ErrNotInProject) {
		return nil, err
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	return &Root{Dir: dir}, nil
}

// Name returns the folder name of the project root, the default contract
// name when no manifest provides one.
func Name(projectRoot string) string {
	return filepath.Base(projectRoot)
}

// Has reports whether name exists directly under dir.
func Has(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
