package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tsembed/tsembed/internal/compiler"
	"github.com/tsembed/tsembed/internal/config"
	"github.com/tsembed/tsembed/internal/engine"
	"github.com/tsembed/tsembed/internal/fetch"
	"github.com/tsembed/tsembed/internal/sourcecache"
)

// TimingReport collects timing data for each phase of a run.
type TimingReport struct {
	Config    time.Duration
	Fetch     time.Duration
	Bootstrap time.Duration
	Compile   time.Duration
	Minify    time.Duration
	Total     time.Duration
}

// Print outputs the timing breakdown.
func (t *TimingReport) Print(w io.Writer) {
	fmt.Fprintf(w, "\n--- timing ---\n")
	fmt.Fprintf(w, "  config:        %s\n", t.Config.Round(time.Millisecond))
	fmt.Fprintf(w, "  fetch:         %s\n", t.Fetch.Round(time.Millisecond))
	fmt.Fprintf(w, "  bootstrap:     %s\n", t.Bootstrap.Round(time.Millisecond))
	fmt.Fprintf(w, "  compile:       %s\n", t.Compile.Round(time.Millisecond))
	if t.Minify > 0 {
		fmt.Fprintf(w, "  minify:        %s\n", t.Minify.Round(time.Millisecond))
	}
	fmt.Fprintf(w, "  total:         %s\n", t.Total.Round(time.Millisecond))
}

// libFlag collects repeated -lib name=path flags.
type libFlag []fetch.Source

func (l *libFlag) String() string {
	parts := make([]string, 0, len(*l))
	for _, s := range *l {
		parts = append(parts, s.Name+"="+s.Path)
	}
	return strings.Join(parts, ",")
}

func (l *libFlag) Set(value string) error {
	name, path, ok := strings.Cut(value, "=")
	if !ok || name == "" || path == "" {
		return fmt.Errorf("expected name=path, got %q", value)
	}
	*l = append(*l, fetch.Source{Name: name, Path: path})
	return nil
}

// compileFlags are the flags shared by compile, watch and fetch.
type compileFlags struct {
	ConfigPath    string
	Strictness    string
	InputFileName string
	BundlePath    string
	Libs          libFlag
	OutDir        string
	JSON          bool
	Timeout       time.Duration
	Minify        bool
	Isolated      bool
	Pretty        bool
	NoCache       bool
	Exec          string

	// ScriptPath is the positional script argument; empty compiles "".
	ScriptPath string
}

// parseCompileArgs parses args for the named subcommand. Flags may follow the
// script path.
func parseCompileArgs(name string, args []string) (*compileFlags, error) {
	f := &compileFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.ConfigPath, "config", "", "Path to tsembed config file (tsembed.json, tsembed.yaml)")
	fs.StringVar(&f.Strictness, "strictness", "", "Strictness level: low, medium, high or a number")
	fs.StringVar(&f.InputFileName, "name", "", "File name the script is compiled under")
	fs.StringVar(&f.BundlePath, "bundle", "", "Path to a local typescriptServices.js")
	fs.Var(&f.Libs, "lib", "Lib file as name=path (repeatable)")
	fs.StringVar(&f.OutDir, "out-dir", "", "Directory to write emitted files to")
	fs.BoolVar(&f.JSON, "json", false, "Print the result as JSON")
	fs.DurationVar(&f.Timeout, "timeout", 0, "Abort compiles that take longer than this")
	fs.BoolVar(&f.Minify, "minify", false, "Minify the emitted JavaScript")
	fs.BoolVar(&f.Isolated, "isolated", false, "Transpile without type checking")
	fs.BoolVar(&f.Pretty, "pretty", compiler.IsPrettyOutput(), "Colored diagnostics with code snippets")
	fs.BoolVar(&f.NoCache, "no-cache", false, "Do not read or write the download cache")
	if name == "watch" {
		fs.StringVar(&f.Exec, "exec", "", "Command to (re)start after each successful compile")
	}

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: tsembed %s [flags] [script.ts]\n\n", name)
		fmt.Fprintln(stderr, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	rest := fs.Args()
	if len(rest) > 0 {
		f.ScriptPath = rest[0]
		if err := fs.Parse(rest[1:]); err != nil {
			return nil, err
		}
		if fs.NArg() > 0 {
			return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
		}
	}
	return f, nil
}

// ConfigResult holds the result of loading a tsembed config file.
type ConfigResult struct {
	Config *config.Config
	Path   string // resolved path to the config file (empty if none found)
	Dir    string // directory containing the config file (defaults to cwd)
}

// loadOrDiscoverConfig loads the config at configPath, or discovers one in
// cwd, or falls back to the defaults. Relative source paths are resolved
// against the config file's directory.
func loadOrDiscoverConfig(configPath, cwd string) (*ConfigResult, error) {
	result := &ConfigResult{Dir: cwd}

	if configPath == "" {
		configPath = config.Discover(cwd)
	} else if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(cwd, configPath)
	}
	if configPath == "" {
		cfg := config.DefaultConfig()
		result.Config = &cfg
		return result, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	result.Config = cfg
	result.Path = configPath
	result.Dir = filepath.Dir(configPath)

	resolve := func(s *fetch.Source) {
		if s.Path != "" && !filepath.IsAbs(s.Path) {
			s.Path = filepath.Join(result.Dir, s.Path)
		}
	}
	resolve(&cfg.Bundle)
	for i := range cfg.Libs {
		resolve(&cfg.Libs[i])
	}
	if cfg.CacheDir != "" && cfg.CacheDir != "off" && !filepath.IsAbs(cfg.CacheDir) {
		cfg.CacheDir = filepath.Join(result.Dir, cfg.CacheDir)
	}
	return result, nil
}

// applyFlags overrides config values with the flags that were given. A -lib
// whose name matches a configured lib replaces it in place.
func applyFlags(cfg *config.Config, f *compileFlags) error {
	if f.Strictness != "" {
		level, err := compiler.ParseStrictness(f.Strictness)
		if err != nil {
			return err
		}
		cfg.Compiler.Strictness = level
	}
	if f.InputFileName != "" {
		cfg.Compiler.InputFileName = f.InputFileName
	}
	if f.BundlePath != "" {
		cfg.Bundle = fetch.Source{Name: filepath.Base(f.BundlePath), Path: f.BundlePath}
	}
	for _, lib := range f.Libs {
		replaced := false
		for i := range cfg.Libs {
			if cfg.Libs[i].Name == lib.Name {
				cfg.Libs[i] = lib
				replaced = true
			}
		}
		if !replaced {
			cfg.Libs = append(cfg.Libs, lib)
		}
	}
	if f.Timeout > 0 {
		cfg.Compiler.Timeout = f.Timeout.String()
	}
	if f.Minify {
		cfg.Compiler.Minify = true
	}
	if f.NoCache {
		cfg.CacheDir = "off"
	}
	return cfg.Validate()
}

// newFetcher builds a fetcher for cfg's cache setting.
func newFetcher(cfg *config.Config) (*fetch.Fetcher, error) {
	var cache *sourcecache.Cache
	switch cfg.CacheDir {
	case "off":
	case "":
		dir, err := sourcecache.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("locating cache directory: %w", err)
		}
		cache = sourcecache.New(dir)
	default:
		cache = sourcecache.New(cfg.CacheDir)
	}
	f := fetch.New(nil, cache)
	f.Logf = func(format string, args ...any) {
		fmt.Fprintf(stderr, format+"\n", args...)
	}
	return f, nil
}

// session is a bootstrapped compiler: fetched sources and a warm runtime pool.
type session struct {
	cfg     *config.Config
	bundle  *engine.Bundle
	libs    []compiler.LibFile
	service *compiler.Service
	timing  TimingReport
}

// bootstrap fetches every source, then compiles and executes the bundle once.
func bootstrap(ctx context.Context, f *compileFlags) (*session, error) {
	s := &session{}

	configStart := time.Now()
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("could not get working directory: %w", err)
	}
	cr, err := loadOrDiscoverConfig(f.ConfigPath, cwd)
	if err != nil {
		return nil, err
	}
	if cr.Path != "" {
		fmt.Fprintf(stderr, "loaded config from %s\n", cr.Path)
	}
	s.cfg = cr.Config
	if err := applyFlags(s.cfg, f); err != nil {
		return nil, err
	}
	for _, w := range s.cfg.ValidateDetailed().Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}
	s.timing.Config = time.Since(configStart)

	fetchStart := time.Now()
	fetcher, err := newFetcher(s.cfg)
	if err != nil {
		return nil, err
	}
	sources := append([]fetch.Source{s.cfg.Bundle}, s.cfg.Libs...)
	texts, err := fetcher.FetchAll(ctx, sources)
	if err != nil {
		return nil, err
	}
	for i, lib := range s.cfg.Libs {
		s.libs = append(s.libs, compiler.LibFile{Name: lib.Name, Text: texts[i+1]})
	}
	s.timing.Fetch = time.Since(fetchStart)

	fmt.Fprintln(stderr, "starting up TypeScript compiler...")
	bootStart := time.Now()
	s.bundle, err = engine.CompileBundle(s.cfg.Bundle.Name, texts[0])
	if err != nil {
		return nil, err
	}
	pool := engine.NewPool(s.bundle, 1)
	rt, err := pool.Get(ctx)
	if err != nil {
		return nil, err
	}
	pool.Put(rt)
	s.service = compiler.NewService(pool)
	s.timing.Bootstrap = time.Since(bootStart)
	fmt.Fprintf(stderr, "TypeScript compiler startup completed after %s\n", s.timing.Bootstrap.Round(time.Millisecond))

	return s, nil
}

// request builds the compile request for script.
func (s *session) request(script string) compiler.Request {
	opts := compiler.BuildOptionsWithThresholds(s.cfg.Compiler.Strictness, s.cfg.Compiler.Thresholds)
	return compiler.Request{
		ScriptText:    script,
		InputFileName: s.cfg.Compiler.InputFileName,
		LibFiles:      s.libs,
		Options:       opts,
	}
}

// compileContext applies the configured compile timeout.
func (s *session) compileContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout, _ := s.cfg.Timeout()
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// readScript returns the script text, or "" when no path was given.
func readScript(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return fetch.Decode(data)
}
