package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/dop251/goja"
)

func newTestHost() (*VirtualHost, *EmitCapture) {
	table := NewVirtualFileTable()
	table.Add(NewSourceUnit("script1.ts", goja.Undefined()))
	table.Add(NewSourceUnit("env.d.ts", goja.Undefined()))
	capture := &EmitCapture{}
	return NewVirtualHost("script1.ts", table, NewSourceUnit(DefaultLibFileName, goja.Undefined()), capture), capture
}

func TestVirtualHost_GetSourceFile(t *testing.T) {
	host, _ := newTestHost()

	for _, name := range []string{"script1.ts", DefaultLibFileName, "env.d.ts"} {
		u, err := host.GetSourceFile(name)
		if err != nil {
			t.Errorf("GetSourceFile(%q): %v", name, err)
			continue
		}
		if u.Name() != name {
			t.Errorf("GetSourceFile(%q) returned unit %q", name, u.Name())
		}
	}
}

func TestVirtualHost_UnknownFileFails(t *testing.T) {
	host, _ := newTestHost()

	u, err := host.GetSourceFile("unknown.d.ts")
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if u != nil {
		t.Error("expected no unit for an unknown file")
	}
	if got := host.Unresolved(); len(got) != 1 || got[0] != "unknown.d.ts" {
		t.Errorf("Unresolved() = %v", got)
	}
}

func TestVirtualHost_FileExists(t *testing.T) {
	host, _ := newTestHost()

	tests := []struct {
		name string
		want bool
	}{
		{"script1.ts", true},
		{DefaultLibFileName, true},
		{"env.d.ts", false}, // resolvable, but not reported as existing
		{"other.ts", false},
	}
	for _, tt := range tests {
		if got := host.FileExists(tt.name); got != tt.want {
			t.Errorf("FileExists(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestVirtualHost_FixedAnswers(t *testing.T) {
	host, _ := newTestHost()

	if len(host.GetDirectories("/")) != 0 {
		t.Error("expected no directories")
	}
	if host.GetDefaultLibFileName() != "lib.d.ts" {
		t.Errorf("default lib = %q", host.GetDefaultLibFileName())
	}
	if !host.UseCaseSensitiveFileNames() {
		t.Error("expected case-sensitive names")
	}
	if host.GetCanonicalFileName("Foo/BAR.ts") != "Foo/BAR.ts" {
		t.Error("canonical name must be the identity")
	}
	if host.GetCurrentDirectory() != "" {
		t.Error("expected empty current directory")
	}
	if host.GetNewLine() != "\n" {
		t.Error("expected line feed")
	}
	if host.ReadFile("script1.ts") != "" {
		t.Error("ReadFile must return empty text")
	}
	if !host.DirectoryExists("/anything") {
		t.Error("every directory exists")
	}
}

func TestEmitCapture_ClassifiesBySuffix(t *testing.T) {
	c := &EmitCapture{}
	c.Write("script1.js", "var a;")
	c.Write("script1.js.map", "{}")
	c.Write("script1.d.ts", "declare var a: number;")

	if c.Output.Text != "var a;" || !c.Output.Written {
		t.Errorf("Output = %+v", c.Output)
	}
	if c.SourceMap.Text != "{}" || !c.SourceMap.Written {
		t.Errorf("SourceMap = %+v", c.SourceMap)
	}
	if c.Declaration.Text != "declare var a: number;" || !c.Declaration.Written {
		t.Errorf("Declaration = %+v", c.Declaration)
	}
	if len(c.EmittedFiles) != 3 {
		t.Errorf("EmittedFiles = %v", c.EmittedFiles)
	}

	other := &EmitCapture{}
	other.Write("script1.txt", "")
	if !other.Output.Written || other.SourceMap.Written || other.Declaration.Written {
		t.Errorf("unknown suffix must land in the main output: %+v", other)
	}
}

func TestEmitCapture_EmptyWriteIsWritten(t *testing.T) {
	c := &EmitCapture{}
	if c.Output.Written {
		t.Fatal("fresh capture must be empty")
	}
	c.Write("script1.js", "")
	if !c.Output.Written {
		t.Error("an empty write must still mark the slot written")
	}
}

func TestVirtualFileTable_Names(t *testing.T) {
	table := NewVirtualFileTable()
	table.Add(NewSourceUnit("b.d.ts", nil))
	table.Add(NewSourceUnit("a.d.ts", nil))
	table.Add(NewSourceUnit("b.d.ts", nil))

	names := table.Names()
	if len(names) != 2 || names[0] != "b.d.ts" || names[1] != "a.d.ts" {
		t.Errorf("Names() = %v", names)
	}
}

func TestBindHost_FromEngine(t *testing.T) {
	vm := goja.New()
	host, capture := newTestHost()
	if err := vm.Set("host", bindHost(vm, host)); err != nil {
		t.Fatal(err)
	}

	v, err := vm.RunString(`
		host.fileExists("script1.ts") &&
		!host.fileExists("env.d.ts") &&
		host.getDirectories("").length === 0 &&
		host.getDefaultLibFileName({}) === "lib.d.ts" &&
		host.getNewLine() === "\n" &&
		host.useCaseSensitiveFileNames() === true
	`)
	if err != nil {
		t.Fatal(err)
	}
	if !v.ToBoolean() {
		t.Error("host answers seen from the engine are wrong")
	}

	v, err = vm.RunString(`
		var caught = "";
		try { host.getSourceFile("nope.ts", 1); } catch (e) { caught = String(e); }
		caught
	`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(v.String(), "file not found") {
		t.Errorf("expected a thrown resolution error, got %q", v.String())
	}

	if _, err := vm.RunString(`host.writeFile("script1.d.ts", "declare const x: 1;", false)`); err != nil {
		t.Fatal(err)
	}
	if capture.Declaration.Text != "declare const x: 1;" {
		t.Errorf("declaration not captured: %+v", capture.Declaration)
	}
}
