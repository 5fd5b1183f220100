// Package engine runs the TypeScript compiler bundle inside an embedded
// ECMAScript 5.1 runtime (goja) and exposes its global namespace object.
//
// A Bundle is compiled once and may be shared by any number of runtimes.
// A Runtime is not safe for concurrent use; use a Pool to hand out runtimes
// to concurrent callers.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// Namespace is the global the compiler bundle defines.
const Namespace = "ts"

var (
	// ErrNoNamespace is returned when an executed bundle does not define
	// the global compiler namespace.
	ErrNoNamespace = errors.New("bundle does not define the compiler namespace")

	// ErrNotFunction is returned by Call when the named property is not callable.
	ErrNotFunction = errors.New("not a function")

	// ErrUnknownEnum is returned by Enum for a missing enum or enum member.
	ErrUnknownEnum = errors.New("unknown enum member")
)

// Bundle is a compiled compiler script. It is immutable once compiled.
type Bundle struct {
	name    string
	program *goja.Program
}

// CompileBundle parses and compiles the compiler bundle source.
func CompileBundle(name, source string) (*Bundle, error) {
	program, err := goja.Compile(name, source, true)
	if err != nil {
		return nil, fmt.Errorf("compiling bundle %s: %w", name, err)
	}
	return &Bundle{name: name, program: program}, nil
}

// Name returns the name the bundle was compiled under.
func (b *Bundle) Name() string { return b.name }

// Program returns the precompiled bundle program.
func (b *Bundle) Program() *goja.Program { return b.program }

// Runtime is one engine realm with the bundle executed in it.
type Runtime struct {
	vm     *goja.Runtime
	ns     *goja.Object
	broken bool
}

// NewRuntime creates a fresh realm and executes the bundle in it.
func NewRuntime(b *Bundle) (*Runtime, error) {
	vm := goja.New()
	if _, err := vm.RunProgram(b.program); err != nil {
		return nil, fmt.Errorf("executing bundle %s: %w", b.name, err)
	}

	ns := vm.Get(Namespace)
	if IsNullish(ns) {
		return nil, fmt.Errorf("%s: %w (%q)", b.name, ErrNoNamespace, Namespace)
	}

	return &Runtime{vm: vm, ns: ns.ToObject(vm)}, nil
}

// VM returns the underlying goja runtime.
func (r *Runtime) VM() *goja.Runtime { return r.vm }

// Namespace returns the compiler namespace object.
func (r *Runtime) Namespace() *goja.Object { return r.ns }

// Broken reports whether the runtime was interrupted and must not be reused.
func (r *Runtime) Broken() bool { return r.broken }

// Call invokes obj[method] with obj as the receiver. Go values in args are
// converted with ToValue; goja values are passed through.
func (r *Runtime) Call(obj *goja.Object, method string, args ...any) (goja.Value, error) {
	fn, ok := goja.AssertFunction(obj.Get(method))
	if !ok {
		return nil, fmt.Errorf("%s: %w", method, ErrNotFunction)
	}
	vals := make([]goja.Value, len(args))
	for i, a := range args {
		vals[i] = r.vm.ToValue(a)
	}
	return fn(obj, vals...)
}

// CallNamespace invokes a function of the compiler namespace.
func (r *Runtime) CallNamespace(method string, args ...any) (goja.Value, error) {
	return r.Call(r.ns, method, args...)
}

// Enum resolves a member of one of the namespace's enums, e.g.
// Enum("ScriptTarget", "ES5").
func (r *Runtime) Enum(enum, member string) (goja.Value, error) {
	e := r.ns.Get(enum)
	if IsNullish(e) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEnum, enum)
	}
	v := e.ToObject(r.vm).Get(member)
	if IsNullish(v) {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownEnum, enum, member)
	}
	return v, nil
}

// Interruptible runs fn and interrupts the engine if ctx ends first.
// After an interrupt the runtime is marked broken and ctx.Err() is returned.
func (r *Runtime) Interruptible(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		r.vm.Interrupt(ctx.Err())
	})

	err := fn()
	if !stop() {
		r.broken = true
		r.vm.ClearInterrupt()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}
