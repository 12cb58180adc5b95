// Package config provides configuration loading from nearabi.ini.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nearabi/nearabi/abi"
	"github.com/nearabi/nearabi/dburl"
	"github.com/nearabi/nearabi/inifile"
)

// ConfigFilename is the name of the config file in the project root.
const ConfigFilename = "nearabi.ini"

// RegistryURLEnv overrides an empty [registry] url.
const RegistryURLEnv = "NEARABI_REGISTRY_URL"

// DefaultRegistryPath is the history database used when none is configured,
// relative to the project root.
const DefaultRegistryPath = ".nearabi/history.db"

// ValidLogLevels and ValidLogFormats are the accepted [log] values.
var (
	ValidLogLevels  = []string{"debug", "info", "warn", "error"}
	ValidLogFormats = []string{"console", "json"}
)

// Config holds the complete configuration from nearabi.ini.
type Config struct {
	// ConfigDir is the directory searched for nearabi.ini.
	ConfigDir string
	// Found is false when nearabi.ini does not exist and defaults apply.
	Found bool

	Generate GenerateConfig
	Log      LogConfig
	Registry RegistryConfig
	Publish  PublishConfig
}

// GenerateConfig holds the [generate] section.
type GenerateConfig struct {
	Output           string
	Recursive        bool
	Validate         bool
	Format           string
	Exclude          []string
	RespectGitignore bool
}

// LogConfig holds the [log] section.
type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// RegistryConfig holds the [registry] section.
type RegistryConfig struct {
	URL string
}

// PublishConfig holds the [publish] section and the AWS credentials taken
// from the environment.
type PublishConfig struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	PathStyle bool

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Default returns the configuration used when nearabi.ini is absent.
func Default(dir string) *Config {
	return &Config{
		ConfigDir: dir,
		Generate: GenerateConfig{
			Recursive:        true,
			Validate:         true,
			Format:           string(abi.FormatJSON),
			RespectGitignore: true,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Publish: PublishConfig{
			Prefix: "abi",
			Region: "us-east-1",
		},
	}
}

// Load reads nearabi.ini from dir (or CWD if empty). A missing file is not
// an error; the defaults are returned with Found unset.
func Load(dir string) (*Config, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	cfg := Default(dir)
	iniPath := filepath.Join(dir, ConfigFilename)
	f, err := inifile.ParseFile(iniPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		applyEnv(cfg)
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFilename, err)
	}
	cfg.Found = true

	if err := parseGenerateSection(f, &cfg.Generate); err != nil {
		return nil, err
	}
	if err := parseLogSection(f, &cfg.Log); err != nil {
		return nil, err
	}
	if err := parseRegistrySection(f, &cfg.Registry); err != nil {
		return nil, err
	}
	if err := parsePublishSection(f, &cfg.Publish); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if cfg.Registry.URL == "" {
		cfg.Registry.URL = os.Getenv(RegistryURLEnv)
	}
	cfg.Publish.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.Publish.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	cfg.Publish.SessionToken = os.Getenv("AWS_SESSION_TOKEN")
	if cfg.Publish.Region == "" {
		cfg.Publish.Region = os.Getenv("AWS_REGION")
	}
}

// RegistryURL returns the configured history database URL, or a sqlite
// file under the config directory.
func (c *Config) RegistryURL() string {
	if c.Registry.URL != "" {
		return c.Registry.URL
	}
	return dburl.BuildSQLiteURL(filepath.Join(c.ConfigDir, DefaultRegistryPath))
}

// parseGenerateSection parses the [generate] section from the INI file.
func parseGenerateSection(f *inifile.File, cfg *GenerateConfig) error {
	if v := f.Get("generate", "output"); v != "" {
		cfg.Output = v
	}

	var err error
	if cfg.Recursive, err = f.GetBool("generate", "recursive", cfg.Recursive); err != nil {
		return err
	}
	if cfg.Validate, err = f.GetBool("generate", "validate", cfg.Validate); err != nil {
		return err
	}
	if cfg.RespectGitignore, err = f.GetBool("generate", "respect_gitignore", cfg.RespectGitignore); err != nil {
		return err
	}

	if v := f.Get("generate", "format"); v != "" {
		format, err := abi.ParseFormat(v)
		if err != nil {
			return fmt.Errorf("generate.format: %w", err)
		}
		cfg.Format = string(format)
	}
	cfg.Exclude = f.GetList("generate", "exclude")
	return nil
}

// parseLogSection parses the [log] section from the INI file.
func parseLogSection(f *inifile.File, cfg *LogConfig) error {
	if v := f.Get("log", "level"); v != "" {
		v = strings.ToLower(v)
		if !contains(ValidLogLevels, v) {
			return fmt.Errorf("log.level: invalid level %q (valid: %s)", v, strings.Join(ValidLogLevels, ", "))
		}
		cfg.Level = v
	}
	if v := f.Get("log", "format"); v != "" {
		v = strings.ToLower(v)
		if !contains(ValidLogFormats, v) {
			return fmt.Errorf("log.format: invalid format %q (valid: %s)", v, strings.Join(ValidLogFormats, ", "))
		}
		cfg.Format = v
	}
	cfg.File = f.Get("log", "file")

	for _, n := range []struct {
		key string
		dst *int
	}{
		{"max_size_mb", &cfg.MaxSizeMB},
		{"max_backups", &cfg.MaxBackups},
		{"max_age_days", &cfg.MaxAgeDays},
	} {
		v, err := f.GetInt("log", n.key, *n.dst)
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("log.%s: must not be negative, got %d", n.key, v)
		}
		*n.dst = v
	}
	return nil
}

// parseRegistrySection parses the [registry] section from the INI file.
func parseRegistrySection(f *inifile.File, cfg *RegistryConfig) error {
	v := f.Get("registry", "url")
	if v == "" {
		return nil
	}
	if _, err := dburl.InferDialect(v); err != nil {
		return fmt.Errorf("registry.url: %w", err)
	}
	cfg.URL = v
	return nil
}

// parsePublishSection parses the [publish] section from the INI file.
func parsePublishSection(f *inifile.File, cfg *PublishConfig) error {
	cfg.Bucket = f.Get("publish", "bucket")
	if v, ok := f.Lookup("publish", "prefix"); ok {
		cfg.Prefix = strings.Trim(v, "/")
	}
	if v := f.Get("publish", "region"); v != "" {
		cfg.Region = v
	}
	cfg.Endpoint = f.Get("publish", "endpoint")

	var err error
	cfg.PathStyle, err = f.GetBool("publish", "path_style", cfg.PathStyle)
	return err
}

// Template returns a nearabi.ini holding the defaults, for `nearabi init`.
func Template() *inifile.File {
	d := Default("")
	f := &inifile.File{}
	f.Set("generate", "output", "abi.json")
	f.Set("generate", "recursive", strconv.FormatBool(d.Generate.Recursive))
	f.Set("generate", "validate", strconv.FormatBool(d.Generate.Validate))
	f.Set("generate", "format", d.Generate.Format)
	f.Set("generate", "respect_gitignore", strconv.FormatBool(d.Generate.RespectGitignore))
	f.Set("generate", "exclude", "tests/")
	f.Set("log", "level", d.Log.Level)
	f.Set("log", "format", d.Log.Format)
	f.Set("registry", "url", "")
	f.Set("publish", "bucket", "")
	f.Set("publish", "prefix", d.Publish.Prefix)
	f.Set("publish", "region", d.Publish.Region)
	return f
}

// Exists reports whether dir holds a nearabi.ini.
func Exists(dir string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, ConfigFilename))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
