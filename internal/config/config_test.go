package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/bral/git-triage/internal/terminal"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_NoPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_NotFound(t *testing.T) {
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.toml")

	cfg, err := LoadConfig(nonExistentPath)
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("Expected default config when file not found, got %+v", cfg)
	}
}

func TestLoadConfig_Values(t *testing.T) {
	path := writeConfig(t, `
filter = "feature"
local_only = true
backend = "git"
color = "never"
dry_run = true
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	want := Config{Filter: "feature", LocalOnly: true, Backend: BackendGit, Color: string(terminal.ColorNever), DryRun: true}
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("LoadConfig() = %+v, want %+v", cfg, want)
	}
}

func TestLoadConfig_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
backend = ""
local_only = true
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Backend != BackendGoGit || cfg.Color != string(terminal.ColorAuto) {
		t.Errorf("Expected default backend and color, got %+v", cfg)
	}
	if !cfg.LocalOnly {
		t.Error("Expected local_only from file")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "Bad Backend", content: `backend = "svn"`, wantErr: "invalid backend"},
		{name: "Bad Color", content: `color = "rainbow"`, wantErr: "invalid color mode"},
		{name: "Unknown Key", content: `protected_branches = ["develop"]`, wantErr: "unknown keys"},
		{name: "Malformed TOML", content: `filter = `, wantErr: "error decoding"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.content))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("LoadConfig() error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}
