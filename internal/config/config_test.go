package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tsembed/tsembed/internal/compiler"
	"github.com/tsembed/tsembed/internal/fetch"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Compiler.InputFileName != "script1.ts" {
		t.Fatalf("expected input 'script1.ts', got %q", cfg.Compiler.InputFileName)
	}
	if cfg.Compiler.Strictness != compiler.StrictnessLow {
		t.Fatalf("expected strictness 0, got %d", cfg.Compiler.Strictness)
	}
	if len(cfg.Bundle.URLs) != 1 || !strings.HasSuffix(cfg.Bundle.URLs[0], "/v4.5.5/lib/typescriptServices.js") {
		t.Fatalf("unexpected bundle urls: %v", cfg.Bundle.URLs)
	}
	if len(cfg.Libs) != 2 {
		t.Fatalf("expected 2 default libs, got %d", len(cfg.Libs))
	}

	env := cfg.Libs[0]
	if env.Name != "scriptEnvironmentApiDeclaration.d.ts" || len(env.URLs) != 2 {
		t.Fatalf("unexpected environment declaration: %+v", env)
	}
	if !strings.HasSuffix(env.URLs[0], "lib.es5.d.ts") || !strings.HasSuffix(env.URLs[1], "lib.es2015.promise.d.ts") {
		t.Fatalf("environment declaration parts out of order: %v", env.URLs)
	}
	if cfg.Libs[1].Name != "scriptApiDeclaration.d.ts" || cfg.Libs[1].URLs[0] != ScriptAPIURL {
		t.Fatalf("unexpected script api declaration: %+v", cfg.Libs[1])
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}
}

func TestLoadValidJSON(t *testing.T) {
	path := writeConfig(t, "tsembed.json", `{
		"compiler": {
			"strictness": 50,
			"inputFileName": "main.ts",
			"timeout": "30s"
		},
		"bundle": {"name": "typescriptServices.js", "path": "vendor/typescriptServices.js"},
		"libs": [
			{"name": "env.d.ts", "path": "env.d.ts"}
		]
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Compiler.Strictness != 50 || cfg.Compiler.InputFileName != "main.ts" {
		t.Fatalf("unexpected compiler config: %+v", cfg.Compiler)
	}
	if cfg.Bundle.Path != "vendor/typescriptServices.js" {
		t.Fatalf("unexpected bundle: %+v", cfg.Bundle)
	}
	if len(cfg.Libs) != 1 || cfg.Libs[0].Name != "env.d.ts" {
		t.Fatalf("libs must replace the defaults, got %+v", cfg.Libs)
	}
	if d, err := cfg.Timeout(); err != nil || d != 30*time.Second {
		t.Fatalf("Timeout() = %v, %v", d, err)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, "tsembed.json", `{"compiler": {"strictness": 100, "inputFileName": "script1.ts"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should have defaults for unspecified fields
	if cfg.Compiler.Strictness != 100 {
		t.Fatalf("expected overridden strictness, got %d", cfg.Compiler.Strictness)
	}
	if cfg.Compiler.Thresholds != compiler.DefaultThresholds {
		t.Fatalf("expected default thresholds, got %+v", cfg.Compiler.Thresholds)
	}
	if cfg.Bundle.Name != "typescriptServices.js" || len(cfg.Libs) != 2 {
		t.Fatal("expected default bundle and libs")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "tsembed.yaml", `
compiler:
  strictness: 100
  inputFileName: script1.ts
  thresholds:
    medium: 25
    high: 75
  minify: true
libs:
  - name: env.d.ts
    urls:
      - https://example.test/a.d.ts
      - https://example.test/b.d.ts
cacheDir: "off"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Compiler.Thresholds != (compiler.Thresholds{Medium: 25, High: 75}) {
		t.Fatalf("unexpected thresholds: %+v", cfg.Compiler.Thresholds)
	}
	if !cfg.Compiler.Minify {
		t.Fatal("expected minify")
	}
	want := fetch.Source{Name: "env.d.ts", URLs: []string{"https://example.test/a.d.ts", "https://example.test/b.d.ts"}}
	if len(cfg.Libs) != 1 || cfg.Libs[0].Name != want.Name || len(cfg.Libs[0].URLs) != 2 {
		t.Fatalf("unexpected libs: %+v", cfg.Libs)
	}
	if cfg.CacheDir != "off" {
		t.Fatalf("unexpected cacheDir %q", cfg.CacheDir)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"tsembed.json", `{"compiler": {"strictnes": 50}}`},
		{"tsembed.yml", "compiler:\n  strictnes: 50\n"},
	}
	for _, tt := range tests {
		if _, err := Load(writeConfig(t, tt.name, tt.content)); err == nil {
			t.Errorf("%s: expected error for unknown field", tt.name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/tsembed.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	_, err := Load(writeConfig(t, "tsembed.json", "not json"))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	_, err := Load(writeConfig(t, "tsembed.json", `{"compiler": {"inputFileName": ""}}`))
	if err == nil || !strings.Contains(err.Error(), "inputFileName") {
		t.Fatalf("expected inputFileName error, got %v", err)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	if got := Discover(dir); got != "" {
		t.Fatalf("expected no config, got %q", got)
	}

	yml := filepath.Join(dir, "tsembed.yml")
	os.WriteFile(yml, []byte("{}"), 0o644)
	if got := Discover(dir); got != yml {
		t.Fatalf("Discover = %q, want %q", got, yml)
	}

	js := filepath.Join(dir, "tsembed.json")
	os.WriteFile(js, []byte("{}"), 0o644)
	if got := Discover(dir); got != js {
		t.Fatalf("JSON must win: Discover = %q, want %q", got, js)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty input", func(c *Config) { c.Compiler.InputFileName = "" }, "inputFileName"},
		{"inverted thresholds", func(c *Config) { c.Compiler.Thresholds = compiler.Thresholds{Medium: 80, High: 20} }, "thresholds"},
		{"bad timeout", func(c *Config) { c.Compiler.Timeout = "soon" }, "timeout"},
		{"negative timeout", func(c *Config) { c.Compiler.Timeout = "-1s" }, "timeout"},
		{"bundle without location", func(c *Config) { c.Bundle.URLs = nil }, "bundle"},
		{"unnamed lib", func(c *Config) { c.Libs[0].Name = "" }, "libs[0].name"},
		{"duplicate lib", func(c *Config) { c.Libs[1].Name = c.Libs[0].Name }, "already used"},
		{"lib shadows input", func(c *Config) { c.Libs[0].Name = "script1.ts" }, "already used"},
		{"lib without location", func(c *Config) { c.Libs[1].URLs = nil }, "libs[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateDetailed_Warnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Compiler.InputFileName = "script1.js"
	cfg.Libs = append(cfg.Libs, fetch.Source{Name: "env.txt", Path: "env.txt"})

	result := cfg.ValidateDetailed()
	if !result.IsValid() {
		t.Fatalf("warnings must not make the config invalid: %v", result.Errors)
	}
	if len(result.Warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", result.Warnings)
	}

	cfg = DefaultConfig()
	cfg.Libs = nil
	if result := cfg.ValidateDetailed(); len(result.Warnings) != 1 {
		t.Errorf("expected a warning for no libs, got %v", result.Warnings)
	}
}
