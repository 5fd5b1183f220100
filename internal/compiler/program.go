package compiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/tsembed/tsembed/internal/diagnostic"
	"github.com/tsembed/tsembed/internal/engine"
)

var (
	// ErrNoDiagnostics is reported when a compile emitted nothing and the
	// compiler gave no reason.
	ErrNoDiagnostics = errors.New("compilation produced no output and no diagnostics")

	// ErrNoInputFileName is returned for a request without an input file name.
	ErrNoInputFileName = errors.New("input file name must not be empty")

	// ErrDuplicateFile is returned when two lib files, or a lib file and the
	// input, share a name.
	ErrDuplicateFile = errors.New("duplicate file name")
)

// LibFile is an ambient declaration file registered as a library.
type LibFile struct {
	Name string
	Text string
}

// Request is one compilation.
type Request struct {
	ScriptText    string
	InputFileName string
	// LibFiles are registered in order.
	LibFiles []LibFile
	Options  CompilerOptions
}

// Result is the outcome of one compilation. Success is Output.Written.
type Result struct {
	Output      Slot
	SourceMap   Slot
	Declaration Slot

	EmittedFiles []string
	EmitSkipped  bool
	Diagnostics  []diagnostic.Diagnostic

	// Sources maps every file name in the compile to its text.
	Sources map[string]string
	// Options are the effective options, including the registered libs.
	Options CompilerOptions
}

// Succeeded reports whether the compiler wrote the main output file.
// An empty emitted file is a success.
func (r *Result) Succeeded() bool {
	return r.Output.Written
}

// Err returns nil on success, a *CompileError when the compiler reported
// diagnostics, and ErrNoDiagnostics when it failed silently.
func (r *Result) Err() error {
	if r.Succeeded() {
		return nil
	}
	if len(r.Diagnostics) == 0 {
		return ErrNoDiagnostics
	}
	return &CompileError{Diagnostics: r.Diagnostics}
}

// CompileError carries the diagnostics of a failed compilation.
type CompileError struct {
	Diagnostics []diagnostic.Diagnostic
}

func (e *CompileError) Error() string {
	return diagnostic.Format(e.Diagnostics)
}

// ResolutionError is returned when the compiler asked for a file outside the
// virtual file table. It matches ErrFileNotFound and wraps the engine error.
type ResolutionError struct {
	FileName string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving %s: %v", e.FileName, e.Err)
}

func (e *ResolutionError) Unwrap() []error {
	return []error{ErrFileNotFound, e.Err}
}

// Compiler drives one engine runtime. It is not safe for concurrent use.
type Compiler struct {
	rt *engine.Runtime
}

// New returns a compiler bound to rt.
func New(rt *engine.Runtime) *Compiler {
	return &Compiler{rt: rt}
}

// Transpile compiles req.ScriptText through a fresh virtual host. Compiler
// diagnostics are reported in the result; engine failures, resolution
// failures and context expiry are returned as errors.
func (c *Compiler) Transpile(ctx context.Context, req Request) (*Result, error) {
	if req.InputFileName == "" {
		return nil, ErrNoInputFileName
	}
	if err := checkNames(req); err != nil {
		return nil, err
	}

	var result *Result
	err := c.rt.Interruptible(ctx, func() error {
		var err error
		result, err = c.transpile(req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func checkNames(req Request) error {
	seen := map[string]bool{req.InputFileName: true}
	for _, lib := range req.LibFiles {
		if seen[lib.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateFile, lib.Name)
		}
		seen[lib.Name] = true
	}
	return nil
}

func (c *Compiler) transpile(req Request) (*Result, error) {
	vm := c.rt.VM()
	opts := req.Options.Clone()
	opts.Lib = nil

	target, err := c.rt.Enum("ScriptTarget", string(opts.Target))
	if err != nil {
		return nil, err
	}

	sources := map[string]string{req.InputFileName: req.ScriptText}
	table := NewVirtualFileTable()

	primary, err := c.parse(req.InputFileName, req.ScriptText, target)
	if err != nil {
		return nil, err
	}
	table.Add(primary)

	for _, lib := range req.LibFiles {
		unit, err := c.parse(lib.Name, lib.Text, target)
		if err != nil {
			return nil, err
		}
		table.Add(unit)
		opts.Lib = append(opts.Lib, lib.Name)
		sources[lib.Name] = lib.Text
	}

	defaultLib, err := c.parse(DefaultLibFileName, "", target)
	if err != nil {
		return nil, err
	}

	capture := &EmitCapture{}
	host := NewVirtualHost(req.InputFileName, table, defaultLib, capture)

	optsObj, err := opts.toObject(vm, c.rt)
	if err != nil {
		return nil, err
	}

	programVal, err := c.rt.CallNamespace("createProgram",
		newStringArray(vm, []string{req.InputFileName}), optsObj, bindHost(vm, host))
	if err != nil {
		return nil, hostError(host, "createProgram", err)
	}
	program := engine.Object(programVal)
	if program == nil {
		return nil, errors.New("createProgram returned no program")
	}

	emitVal, err := c.rt.Call(program, "emit")
	if err != nil {
		return nil, hostError(host, "emit", err)
	}

	var emitSkipped bool
	var raw []goja.Value
	if emitResult := engine.Object(emitVal); emitResult != nil {
		emitSkipped = engine.Bool(emitResult.Get("emitSkipped"))
		raw = engine.Elements(emitResult.Get("diagnostics"))
	}
	if len(raw) == 0 {
		pre, err := c.rt.CallNamespace("getPreEmitDiagnostics", program)
		if err != nil {
			return nil, hostError(host, "getPreEmitDiagnostics", err)
		}
		raw = engine.Elements(pre)
	}

	diags, err := convertDiagnostics(c.rt, raw)
	if err != nil {
		return nil, err
	}

	return &Result{
		Output:       capture.Output,
		SourceMap:    capture.SourceMap,
		Declaration:  capture.Declaration,
		EmittedFiles: capture.EmittedFiles,
		EmitSkipped:  emitSkipped,
		Diagnostics:  diags,
		Sources:      sources,
		Options:      opts,
	}, nil
}

func (c *Compiler) parse(name, text string, target goja.Value) (*SourceUnit, error) {
	v, err := c.rt.CallNamespace("createSourceFile", name, text, target)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return NewSourceUnit(name, v), nil
}

// hostError turns an engine exception raised by a failed file lookup into a
// ResolutionError; other errors are wrapped with the failing step.
func hostError(host *VirtualHost, step string, err error) error {
	if names := host.Unresolved(); len(names) > 0 {
		return &ResolutionError{FileName: names[0], Err: err}
	}
	return fmt.Errorf("%s: %w", step, err)
}
