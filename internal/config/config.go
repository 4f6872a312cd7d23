// Package config loads the daemon configuration from a YAML file.
//
// Defaults cover every field, so a config file only needs the values it
// changes. Command line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"vpnd/internal/diaglog"
	"vpnd/internal/version"
)

// Config is the daemon configuration.
type Config struct {
	// Listen configures the management API listener.
	Listen ListenConfig `yaml:"listen"`

	// Database configures profile storage.
	Database DatabaseConfig `yaml:"database"`

	// Diagnostics configures the diagnostic log.
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`

	// Version describes the published releases the version endpoint compares against.
	Version VersionConfig `yaml:"version"`
}

// ListenConfig configures the management API listener.
type ListenConfig struct {
	// Address is host:port or :port.
	// Default: 127.0.0.1:8091
	Address string `yaml:"address"`

	// Interface, when set, binds to that interface's IPv4 address instead of Address's host.
	Interface string `yaml:"interface"`
}

// DatabaseConfig configures profile storage.
type DatabaseConfig struct {
	// Path is the SQLite file. ":memory:" keeps everything in memory.
	// Default: /var/lib/vpnd/vpnd.db
	Path string `yaml:"path"`
}

// DiagnosticsConfig configures the diagnostic log.
type DiagnosticsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Level is debug, info, warn or error.
	// Default: info
	Level string `yaml:"level"`

	// Path is the log file. Empty writes to stderr.
	Path string `yaml:"path"`
}

// VersionConfig describes the running build and published releases.
type VersionConfig struct {
	// Current overrides the build version, mainly for testing.
	Current string `yaml:"current"`

	Stable []string `yaml:"stable"`
	Beta   []string `yaml:"beta"`

	// MinSupported is the oldest release still supported. Empty supports everything.
	MinSupported string `yaml:"min_supported"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			Address: "127.0.0.1:8091",
		},
		Database: DatabaseConfig{
			Path: "/var/lib/vpnd/vpnd.db",
		},
		Diagnostics: DiagnosticsConfig{
			Level: "info",
		},
	}
}

// LoadFile loads configuration from path on top of the defaults.
// ${VAR} and ${VAR:-default} are expanded in path values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.Database.Path = expandVars(cfg.Database.Path)
	cfg.Diagnostics.Path = expandVars(cfg.Diagnostics.Path)
	return cfg, nil
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Releases returns the release lists in the form version.Evaluate takes.
func (c *Config) Releases() version.Releases {
	return version.Releases{
		Stable:       c.Version.Stable,
		Beta:         c.Version.Beta,
		MinSupported: c.Version.MinSupported,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Listen.Address) == "" {
		errs = append(errs, fmt.Errorf("listen.address is required"))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, fmt.Errorf("database.path is required"))
	}
	if _, err := diaglog.ParseLevel(c.Diagnostics.Level); err != nil {
		errs = append(errs, fmt.Errorf("diagnostics.level: %w", err))
	}
	for _, list := range []struct {
		name     string
		releases []string
	}{
		{"version.stable", c.Version.Stable},
		{"version.beta", c.Version.Beta},
	} {
		for i, release := range list.releases {
			if !version.IsValid(release) {
				errs = append(errs, fmt.Errorf("%s[%d]: invalid version %q", list.name, i, release))
			}
		}
	}
	if c.Version.MinSupported != "" && !version.IsValid(c.Version.MinSupported) {
		errs = append(errs, fmt.Errorf("version.min_supported: invalid version %q", c.Version.MinSupported))
	}
	if c.Version.Current != "" && !version.IsValid(c.Version.Current) {
		errs = append(errs, fmt.Errorf("version.current: invalid version %q", c.Version.Current))
	}

	return errors.Join(errs...)
}
