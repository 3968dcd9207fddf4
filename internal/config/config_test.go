package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dictd.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesShortNameDefault(t *testing.T) {
	path := writeTemp(t, `
[server]
host = "0.0.0.0"
port = 2628

[[databases]]
path = "/data/web1913.dict"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Databases[0].ShortName != "web1913" {
		t.Errorf("ShortName = %q, want web1913", cfg.Databases[0].ShortName)
	}
	if cfg.Databases[0].Name != "web1913" {
		t.Errorf("Name = %q, want web1913", cfg.Databases[0].Name)
	}
}

func TestLoadExplicitNamesOverrideDefaults(t *testing.T) {
	path := writeTemp(t, `
[server]
host = "0.0.0.0"
port = 2628

[[databases]]
path = "/data/web1913.dict"
short_name = "web"
name = "Webster's 1913"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Databases[0].ShortName != "web" || cfg.Databases[0].Name != "Webster's 1913" {
		t.Errorf("unexpected database: %+v", cfg.Databases[0])
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRejectsEmptyDatabases(t *testing.T) {
	path := writeTemp(t, `
[server]
host = "0.0.0.0"
port = 2628
databases = []
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty databases")
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	path := writeTemp(t, `
[server]
host = "0.0.0.0"
port = 0

[[databases]]
path = "/data/web1913.dict"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestLoadFallbackTarget(t *testing.T) {
	path := writeTemp(t, `
[server]
host = "0.0.0.0"
port = 2628

[[databases]]
path = "/data/foldoc.dict"
short_name = "foldoc"

[databases.fallback]
db = "foldoc"
host = "dict.org"
port = 2628
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fb := cfg.Databases[0].Fallback
	if fb == nil || fb.Host != "dict.org" || fb.Port != 2628 {
		t.Fatalf("unexpected fallback: %+v", fb)
	}
}
