package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"gopkg.in/yaml.v3"

	"github.com/tsembed/tsembed/internal/compiler"
	"github.com/tsembed/tsembed/internal/fetch"
)

// TypeScriptRelease is the compiler release the default sources are pinned to.
const TypeScriptRelease = "v4.5.5"

const typeScriptLibBase = "https://github.com/microsoft/TypeScript/raw/refs/tags/" + TypeScriptRelease + "/lib/"

// ScriptAPIURL is the pinned script API declaration used by the default config.
const ScriptAPIURL = "https://github.com/Traeger-GmbH/codabix-samples/raw/5c328111ac8b49cc5b90f297dad7d64d1448f137/scripts/scripts-api.d.ts"

// FileNames are searched, in order, by Discover.
var FileNames = []string{"tsembed.json", "tsembed.yaml", "tsembed.yml"}

// Config represents the tsembed configuration.
type Config struct {
	Compiler CompilerConfig `json:"compiler" yaml:"compiler"`

	// Bundle is the compiler script bundle (typescriptServices.js).
	Bundle fetch.Source `json:"bundle" yaml:"bundle"`

	// Libs are registered as lib files in order.
	Libs []fetch.Source `json:"libs" yaml:"libs"`

	// CacheDir holds downloaded sources. Empty means the user cache directory;
	// "off" disables caching.
	CacheDir string `json:"cacheDir,omitempty" yaml:"cacheDir,omitempty"`
}

// CompilerConfig holds per-compile settings.
type CompilerConfig struct {
	Strictness    compiler.Strictness `json:"strictness" yaml:"strictness"`
	Thresholds    compiler.Thresholds `json:"thresholds" yaml:"thresholds"`
	InputFileName string              `json:"inputFileName" yaml:"inputFileName"`
	Timeout       string              `json:"timeout,omitempty" yaml:"timeout,omitempty"` // e.g. "30s"; empty means no deadline
	Minify        bool                `json:"minify,omitempty" yaml:"minify,omitempty"`
}

// DefaultConfig returns the configuration of the reference host: TypeScript
// 4.5.5, an ES5 plus Promise environment declaration, the script API
// declaration, input "script1.ts" and strictness 0.
func DefaultConfig() Config {
	return Config{
		Compiler: CompilerConfig{
			Strictness:    compiler.StrictnessLow,
			Thresholds:    compiler.DefaultThresholds,
			InputFileName: "script1.ts",
		},
		Bundle: fetch.Source{
			Name: "typescriptServices.js",
			URLs: []string{typeScriptLibBase + "typescriptServices.js"},
		},
		Libs: []fetch.Source{
			{
				Name: "scriptEnvironmentApiDeclaration.d.ts",
				URLs: []string{
					typeScriptLibBase + "lib.es5.d.ts",
					typeScriptLibBase + "lib.es2015.promise.d.ts",
				},
			},
			{
				Name: "scriptApiDeclaration.d.ts",
				URLs: []string{ScriptAPIURL},
			},
		},
	}
}

// Load reads and parses a tsembed config file. ".yaml" and ".yml" files are
// YAML; anything else is JSON. Fields not present keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &config, json.RejectUnknownMembers(true)); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %q: %w", path, err)
	}

	return &config, nil
}

// Discover returns the first of FileNames present in dir, or "".
func Discover(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Timeout parses Compiler.Timeout. Zero means no deadline.
func (c *Config) Timeout() (time.Duration, error) {
	if c.Compiler.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Compiler.Timeout)
	if err != nil {
		return 0, fmt.Errorf("compiler.timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("compiler.timeout: must not be negative, got %s", d)
	}
	return d, nil
}

// Validate checks the config for logical errors.
func (c *Config) Validate() error {
	result := c.ValidateDetailed()
	if !result.IsValid() {
		return fmt.Errorf("%s", strings.Join(result.Errors, "; "))
	}
	return nil
}

// ValidationResult holds config validation results.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// IsValid returns true if there are no errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// ValidateDetailed performs thorough config validation with suggestions.
func (c *Config) ValidateDetailed() *ValidationResult {
	result := &ValidationResult{}
	errorf := func(format string, args ...any) {
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}
	warnf := func(format string, args ...any) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(format, args...))
	}

	// Compiler
	input := c.Compiler.InputFileName
	if input == "" {
		errorf("compiler.inputFileName must not be empty")
	} else if !strings.HasSuffix(input, ".ts") || strings.HasSuffix(input, ".d.ts") {
		warnf("compiler.inputFileName: %q is not a .ts file; the emitted names are derived from it", input)
	}
	if th := c.Compiler.Thresholds; th.Medium > th.High {
		errorf("compiler.thresholds: medium (%d) must not exceed high (%d)", th.Medium, th.High)
	}
	if _, err := c.Timeout(); err != nil {
		errorf("%v", err)
	}

	// Bundle
	if c.Bundle.Name == "" {
		errorf("bundle.name must not be empty")
	}
	if len(c.Bundle.URLs) == 0 && c.Bundle.Path == "" {
		errorf("bundle: either urls or path is required")
	}

	// Libs
	seen := map[string]bool{input: true}
	for i, lib := range c.Libs {
		switch {
		case lib.Name == "":
			errorf("libs[%d].name must not be empty", i)
		case seen[lib.Name]:
			errorf("libs[%d].name: %q is already used", i, lib.Name)
		case !strings.HasSuffix(lib.Name, ".d.ts"):
			warnf("libs[%d].name: %q does not end in .d.ts", i, lib.Name)
		}
		seen[lib.Name] = true
		if len(lib.URLs) == 0 && lib.Path == "" {
			errorf("libs[%d]: either urls or path is required", i)
		}
	}
	if len(c.Libs) == 0 {
		warnf("libs: none configured; scripts compile without any global declarations")
	}

	return result
}
