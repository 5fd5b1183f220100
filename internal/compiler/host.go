package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// DefaultLibFileName is the default library name the host reports. It
// resolves to an empty unit; real libraries are passed as lib files.
const DefaultLibFileName = "lib.d.ts"

// ErrFileNotFound is returned when the compiler asks for a file that is not
// in the virtual file table.
var ErrFileNotFound = errors.New("file not found")

// SourceUnit is one parsed text blob, as produced by the compiler's
// createSourceFile. It is never modified after creation.
type SourceUnit struct {
	name  string
	value goja.Value
}

// NewSourceUnit wraps an engine-side source file object.
func NewSourceUnit(name string, value goja.Value) *SourceUnit {
	return &SourceUnit{name: name, value: value}
}

// Name returns the file name the unit was parsed under.
func (u *SourceUnit) Name() string { return u.name }

// Value returns the engine-side source file object.
func (u *SourceUnit) Value() goja.Value { return u.value }

// VirtualFileTable maps file names to parsed units for one compile call.
type VirtualFileTable struct {
	units map[string]*SourceUnit
	order []string
}

// NewVirtualFileTable returns an empty table.
func NewVirtualFileTable() *VirtualFileTable {
	return &VirtualFileTable{units: make(map[string]*SourceUnit)}
}

// Add registers a unit under its name.
func (t *VirtualFileTable) Add(u *SourceUnit) {
	if _, ok := t.units[u.name]; !ok {
		t.order = append(t.order, u.name)
	}
	t.units[u.name] = u
}

// Lookup returns the unit registered under name.
func (t *VirtualFileTable) Lookup(name string) (*SourceUnit, bool) {
	u, ok := t.units[name]
	return u, ok
}

// Names returns the registered names in insertion order.
func (t *VirtualFileTable) Names() []string {
	return append([]string(nil), t.order...)
}

// Slot is one captured output file. Written distinguishes an emitted empty
// file from no emission at all.
type Slot struct {
	Text    string
	Written bool
}

// EmitCapture collects the compiler's write requests.
type EmitCapture struct {
	Output      Slot
	SourceMap   Slot
	Declaration Slot

	// EmittedFiles lists every written file name in write order.
	EmittedFiles []string
}

// Write stores text in the slot selected by the file name's suffix.
func (c *EmitCapture) Write(name, text string) {
	slot := Slot{Text: text, Written: true}
	switch {
	case strings.HasSuffix(name, ".js.map"):
		c.SourceMap = slot
	case strings.HasSuffix(name, ".d.ts"):
		c.Declaration = slot
	default:
		c.Output = slot
	}
	c.EmittedFiles = append(c.EmittedFiles, name)
}

// CompilerHost is the file system the compiler sees.
type CompilerHost interface {
	GetDirectories(path string) []string
	GetSourceFile(fileName string) (*SourceUnit, error)
	GetDefaultLibFileName() string
	UseCaseSensitiveFileNames() bool
	GetCanonicalFileName(fileName string) string
	GetCurrentDirectory() string
	GetNewLine() string
	FileExists(fileName string) bool
	ReadFile(fileName string) string
	DirectoryExists(path string) bool
	WriteFile(fileName, text string)
}

// VirtualHost answers every compiler query from memory.
type VirtualHost struct {
	inputFileName string
	table         *VirtualFileTable
	defaultLib    *SourceUnit
	capture       *EmitCapture

	unresolved []string
}

var _ CompilerHost = (*VirtualHost)(nil)

// NewVirtualHost creates a host over table. inputFileName must be present in
// the table; defaultLib is returned for DefaultLibFileName.
func NewVirtualHost(inputFileName string, table *VirtualFileTable, defaultLib *SourceUnit, capture *EmitCapture) *VirtualHost {
	return &VirtualHost{
		inputFileName: inputFileName,
		table:         table,
		defaultLib:    defaultLib,
		capture:       capture,
	}
}

func (h *VirtualHost) GetDirectories(string) []string { return nil }

// GetSourceFile resolves the primary input first, then the default library
// sentinel, then the lib files. Anything else is ErrFileNotFound.
func (h *VirtualHost) GetSourceFile(fileName string) (*SourceUnit, error) {
	if fileName == h.inputFileName {
		if u, ok := h.table.Lookup(fileName); ok {
			return u, nil
		}
	} else if fileName == DefaultLibFileName && h.defaultLib != nil {
		return h.defaultLib, nil
	} else if u, ok := h.table.Lookup(fileName); ok {
		return u, nil
	}

	h.unresolved = append(h.unresolved, fileName)
	return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileName)
}

func (h *VirtualHost) GetDefaultLibFileName() string { return DefaultLibFileName }

func (h *VirtualHost) UseCaseSensitiveFileNames() bool { return true }

func (h *VirtualHost) GetCanonicalFileName(fileName string) string { return fileName }

func (h *VirtualHost) GetCurrentDirectory() string { return "" }

func (h *VirtualHost) GetNewLine() string { return "\n" }

// FileExists is true for the primary input and the default library only.
// Lib files resolve through GetSourceFile but are not reported as existing.
func (h *VirtualHost) FileExists(fileName string) bool {
	return fileName == h.inputFileName || fileName == DefaultLibFileName
}

func (h *VirtualHost) ReadFile(string) string { return "" }

func (h *VirtualHost) DirectoryExists(string) bool { return true }

func (h *VirtualHost) WriteFile(fileName, text string) {
	h.capture.Write(fileName, text)
}

// Unresolved returns the names GetSourceFile failed on.
func (h *VirtualHost) Unresolved() []string {
	return append([]string(nil), h.unresolved...)
}

// bindHost exposes host to the engine as a plain object with the method
// names the compiler calls. Resolution failures are thrown into the engine.
func bindHost(vm *goja.Runtime, host CompilerHost) *goja.Object {
	obj := vm.NewObject()
	set := func(name string, fn func(goja.FunctionCall) goja.Value) {
		_ = obj.Set(name, fn)
	}

	set("getDirectories", func(call goja.FunctionCall) goja.Value {
		return newStringArray(vm, host.GetDirectories(call.Argument(0).String()))
	})
	set("getSourceFile", func(call goja.FunctionCall) goja.Value {
		unit, err := host.GetSourceFile(call.Argument(0).String())
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return unit.Value()
	})
	set("getDefaultLibFileName", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(host.GetDefaultLibFileName())
	})
	set("useCaseSensitiveFileNames", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(host.UseCaseSensitiveFileNames())
	})
	set("getCanonicalFileName", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(host.GetCanonicalFileName(call.Argument(0).String()))
	})
	set("getCurrentDirectory", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(host.GetCurrentDirectory())
	})
	set("getNewLine", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(host.GetNewLine())
	})
	set("fileExists", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(host.FileExists(call.Argument(0).String()))
	})
	set("readFile", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(host.ReadFile(call.Argument(0).String()))
	})
	set("directoryExists", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(host.DirectoryExists(call.Argument(0).String()))
	})
	set("writeFile", func(call goja.FunctionCall) goja.Value {
		host.WriteFile(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})

	return obj
}
