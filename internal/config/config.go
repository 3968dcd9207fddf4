// Package config loads the dictd TOML configuration file: the listen
// address and the list of dictionaries to serve.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/joshuafuller/dictd/internal/dicterrors"
)

// Fallback is an upstream DICT server to proxy DEFINE to on a local miss.
type Fallback struct {
	DB   string `toml:"db"`
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Database is one entry of the `databases` array.
type Database struct {
	Name      string    `toml:"name"`
	ShortName string    `toml:"short_name"`
	Path      string    `toml:"path"`
	Fallback  *Fallback `toml:"fallback"`
}

// Server is the `server` table: listen host and port.
type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Config is the fully parsed and defaulted configuration file.
type Config struct {
	Server    Server     `toml:"server"`
	Databases []Database `toml:"databases"`
}

// Load reads and parses the configuration file at path, applying the
// short_name/name defaulting rules and validating the result. Any problem
// is reported as a *dicterrors.ConfigError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &dicterrors.ConfigError{Operation: "read " + path, Err: err}
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, &dicterrors.ConfigError{Operation: "parse " + path, Err: err}
	}

	for i := range cfg.Databases {
		applyDefaults(&cfg.Databases[i])
	}

	if err := validate(&cfg); err != nil {
		return nil, &dicterrors.ConfigError{Operation: "validate " + path, Err: err}
	}

	return &cfg, nil
}

func applyDefaults(d *Database) {
	if d.ShortName == "" {
		base := filepath.Base(d.Path)
		if i := strings.IndexByte(base, '.'); i >= 0 {
			base = base[:i]
		}
		d.ShortName = base
	}
	if d.Name == "" {
		d.Name = d.ShortName
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if len(cfg.Databases) == 0 {
		return fmt.Errorf("databases must not be empty")
	}
	seen := make(map[string]bool, len(cfg.Databases))
	for _, d := range cfg.Databases {
		if d.Path == "" {
			return fmt.Errorf("database %q missing path", d.ShortName)
		}
		if seen[d.ShortName] {
			return fmt.Errorf("duplicate short_name %q", d.ShortName)
		}
		seen[d.ShortName] = true
	}
	return nil
}
