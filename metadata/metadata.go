// Package metadata fills the ABI document's metadata from the contract's
// packaging manifest: pyproject.toml (PEP 621 or Poetry), setup.cfg or
// Cargo.toml for mixed Rust/Python projects.
package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/nearabi/nearabi/abi"
	"github.com/nearabi/nearabi/inifile"
	"github.com/nearabi/nearabi/project"
)

const (
	DefaultVersion = "0.1.0"
	DefaultAuthor  = "Unknown"
)

// Defaults returns the metadata used when no manifest says otherwise.
// builder is recorded as build.builder.
func Defaults(root, builder string) abi.Metadata {
	return abi.Metadata{
		Name:    project.Name(root),
		Version: DefaultVersion,
		Authors: []string{DefaultAuthor},
		Build:   &abi.BuildInfo{Compiler: "python", Builder: builder},
	}
}

// Load reads the first manifest found in root, in the order pyproject.toml,
// setup.cfg, Cargo.toml, over the defaults. Fields a manifest leaves out
// keep their default. A root without any manifest yields the defaults.
func Load(root, builder string) (abi.Metadata, error) {
	meta := Defaults(root, builder)
	for _, m := range []struct {
		file string
		read func(path string, meta *abi.Metadata) error
	}{
		{project.PyProjectFile, fromPyProject},
		{project.SetupCfgFile, fromSetupCfg},
		{project.CargoFile, fromCargo},
	} {
		path := filepath.Join(root, m.file)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := m.read(path, &meta); err != nil {
			return Defaults(root, builder), fmt.Errorf("failed to read %s: %w", m.file, err)
		}
		return meta, nil
	}
	return meta, nil
}

// pyProject covers the fields of PEP 621 [project] and [tool.poetry].
type pyProject struct {
	Project struct {
		Name           string `toml:"name"`
		Version        string `toml:"version"`
		RequiresPython string `toml:"requires-python"`
		Authors        []any  `toml:"authors"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name         string         `toml:"name"`
			Version      string         `toml:"version"`
			Authors      []string       `toml:"authors"`
			Dependencies map[string]any `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func fromPyProject(path string, meta *abi.Metadata) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc pyProject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return err
	}

	p := doc.Project
	if p.Name == "" && p.Version == "" {
		poetry := doc.Tool.Poetry
		setString(&meta.Name, poetry.Name)
		setString(&meta.Version, poetry.Version)
		setAuthors(meta, poetry.Authors)
		if py, ok := poetry.Dependencies["python"].(string); ok {
			setCompiler(meta, py)
		}
		return nil
	}

	setString(&meta.Name, p.Name)
	setString(&meta.Version, p.Version)
	setCompiler(meta, p.RequiresPython)
	var authors []string
	for _, a := range p.Authors {
		switch v := a.(type) {
		case string:
			authors = append(authors, v)
		case map[string]any:
			if name, ok := v["name"].(string); ok && name != "" {
				authors = append(authors, name)
			} else if email, ok := v["email"].(string); ok {
				authors = append(authors, email)
			}
		}
	}
	setAuthors(meta, authors)
	return nil
}

type cargoManifest struct {
	Package struct {
		Name    string   `toml:"name"`
		Version any      `toml:"version"`
		Authors []string `toml:"authors"`
	} `toml:"package"`
}

func fromCargo(path string, meta *abi.Metadata) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc cargoManifest
	if err := toml.Unmarshal(data, &doc); err != nil {
		return err
	}
	setString(&meta.Name, doc.Package.Name)
	// version.workspace = true leaves the version to the workspace root.
	if v, ok := doc.Package.Version.(string); ok {
		setString(&meta.Version, v)
	}
	setAuthors(meta, doc.Package.Authors)
	return nil
}

func fromSetupCfg(path string, meta *abi.Metadata) error {
	f, err := inifile.ParseFile(path)
	if err != nil {
		return err
	}
	setString(&meta.Name, f.Get("metadata", "name"))
	setString(&meta.Version, f.Get("metadata", "version"))
	setAuthors(meta, f.GetList("metadata", "author"))
	setCompiler(meta, f.Get("options", "python_requires"))
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setAuthors(meta *abi.Metadata, authors []string) {
	if len(authors) > 0 {
		meta.Authors = authors
	}
}

func setCompiler(meta *abi.Metadata, requires string) {
	if requires = strings.TrimSpace(requires); requires != "" {
		meta.Build.Compiler = "python " + requires
	}
}
