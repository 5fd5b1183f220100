// Package testutil provides test utilities for tsembed: a fake compiler
// bundle that drives the virtual host without network access, access to a
// real compiler bundle when one is available, and txtar compile fixtures.
package testutil

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/tsembed/tsembed/internal/compiler"
	"github.com/tsembed/tsembed/internal/engine"
)

// RealBundleEnv names the environment variable that points at a real
// typescriptServices.js for integration tests.
const RealBundleEnv = "TSEMBED_TYPESCRIPT_JS"

// FakeTypeScript is the source of a stand-in compiler namespace.
//
//go:embed fakets.js
var FakeTypeScript string

// FakeBundle compiles FakeTypeScript.
func FakeBundle(t testing.TB) *engine.Bundle {
	t.Helper()
	b, err := engine.CompileBundle("fakets.js", FakeTypeScript)
	if err != nil {
		t.Fatalf("compiling fake bundle: %v", err)
	}
	return b
}

// FakeRuntime returns a runtime with the fake bundle executed.
func FakeRuntime(t testing.TB) *engine.Runtime {
	t.Helper()
	rt, err := engine.NewRuntime(FakeBundle(t))
	if err != nil {
		t.Fatalf("starting fake runtime: %v", err)
	}
	return rt
}

// RealBundle compiles the bundle named by RealBundleEnv, or skips the test.
func RealBundle(t testing.TB) *engine.Bundle {
	t.Helper()
	path := os.Getenv(RealBundleEnv)
	if path == "" {
		t.Skipf("%s not set; skipping test against the real compiler", RealBundleEnv)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	b, err := engine.CompileBundle(path, string(src))
	if err != nil {
		t.Fatalf("compiling %s: %v", path, err)
	}
	return b
}

// RealLib reads a declaration file shipped next to the real bundle, such as
// "lib.es5.d.ts", or skips the test.
func RealLib(t testing.TB, name string) compiler.LibFile {
	t.Helper()
	path := os.Getenv(RealBundleEnv)
	if path == "" {
		t.Skipf("%s not set; skipping test against the real compiler", RealBundleEnv)
	}
	text, err := os.ReadFile(filepath.Join(filepath.Dir(path), name))
	if err != nil {
		t.Skipf("%s not found next to %s: %v", name, path, err)
	}
	return compiler.LibFile{Name: name, Text: string(text)}
}

// Case is one compile fixture read from a txtar archive.
//
//	-- script1.ts --          the input; the first file not in lib/ or want/
//	-- lib/env.d.ts --        a lib file registered as "env.d.ts"
//	-- want/output.js --      expected main output (optional)
//	-- want/diagnostics --    expected formatted diagnostics (optional)
type Case struct {
	Name          string
	InputFileName string
	ScriptText    string
	LibFiles      []compiler.LibFile
	Want          map[string]string
}

// LoadCase parses the txtar fixture at path.
func LoadCase(t testing.TB, path string) *Case {
	t.Helper()
	ar, err := txtar.ParseFile(path)
	if err != nil {
		t.Fatalf("parsing fixture %s: %v", path, err)
	}

	c := &Case{
		Name: strings.TrimSpace(string(ar.Comment)),
		Want: make(map[string]string),
	}
	for _, f := range ar.Files {
		switch {
		case strings.HasPrefix(f.Name, "lib/"):
			c.LibFiles = append(c.LibFiles, compiler.LibFile{
				Name: strings.TrimPrefix(f.Name, "lib/"),
				Text: string(f.Data),
			})
		case strings.HasPrefix(f.Name, "want/"):
			c.Want[strings.TrimPrefix(f.Name, "want/")] = strings.TrimRight(string(f.Data), "\n")
		case c.InputFileName == "":
			c.InputFileName = f.Name
			c.ScriptText = string(f.Data)
		default:
			t.Fatalf("fixture %s: unexpected extra file %q", path, f.Name)
		}
	}
	if c.InputFileName == "" {
		t.Fatalf("fixture %s has no input file", path)
	}
	return c
}

// Request builds a compile request for the case.
func (c *Case) Request(opts compiler.CompilerOptions) compiler.Request {
	return compiler.Request{
		ScriptText:    c.ScriptText,
		InputFileName: c.InputFileName,
		LibFiles:      c.LibFiles,
		Options:       opts,
	}
}
