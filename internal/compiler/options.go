package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dop251/goja"
	"github.com/go-json-experiment/json"
)

// Strictness is the editor strictness level a script is compiled under.
type Strictness int

const (
	StrictnessLow    Strictness = 0
	StrictnessMedium Strictness = 50
	StrictnessHigh   Strictness = 100
)

// Thresholds are the levels at which the medium and high option tiers apply.
type Thresholds struct {
	Medium Strictness `json:"medium" yaml:"medium"`
	High   Strictness `json:"high" yaml:"high"`
}

// DefaultThresholds matches the named strictness levels.
var DefaultThresholds = Thresholds{Medium: StrictnessMedium, High: StrictnessHigh}

// ParseStrictness accepts "low", "medium", "high" or an integer level.
func ParseStrictness(s string) (Strictness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return StrictnessLow, nil
	case "medium":
		return StrictnessMedium, nil
	case "high":
		return StrictnessHigh, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid strictness %q: want low, medium, high or an integer", s)
	}
	return Strictness(n), nil
}

// ScriptTarget names a member of the compiler's ScriptTarget enum.
type ScriptTarget string

const (
	TargetES3    ScriptTarget = "ES3"
	TargetES5    ScriptTarget = "ES5"
	TargetES2015 ScriptTarget = "ES2015"
)

// ModuleKind names a member of the compiler's ModuleKind enum.
type ModuleKind string

const (
	ModuleNone     ModuleKind = "None"
	ModuleCommonJS ModuleKind = "CommonJS"
)

// CompilerOptions is the options record handed to the compiler. Enum fields
// hold member names; they are resolved against the engine's enums when the
// record is converted.
type CompilerOptions struct {
	AlwaysStrict                 bool         `json:"alwaysStrict"`
	StrictNullChecks             bool         `json:"strictNullChecks"`
	StrictFunctionTypes          bool         `json:"strictFunctionTypes"`
	StrictPropertyInitialization bool         `json:"strictPropertyInitialization"`
	StrictBindCallApply          bool         `json:"strictBindCallApply"`
	AllowUnreachableCode         bool         `json:"allowUnreachableCode"`
	Target                       ScriptTarget `json:"target"`
	SourceMap                    bool         `json:"sourceMap"`
	Declaration                  bool         `json:"declaration"`
	NoEmitOnError                bool         `json:"noEmitOnError"`
	RemoveComments               bool         `json:"removeComments"`
	AllowNonTsExtensions         bool         `json:"allowNonTsExtensions"`
	NoResolve                    bool         `json:"noResolve"`
	Module                       ModuleKind   `json:"module"`

	// Medium tier.
	NoImplicitAny              bool `json:"noImplicitAny,omitzero"`
	NoImplicitThis             bool `json:"noImplicitThis,omitzero"`
	NoImplicitOverride         bool `json:"noImplicitOverride,omitzero"`
	UseUnknownInCatchVariables bool `json:"useUnknownInCatchVariables,omitzero"`
	NoFallthroughCasesInSwitch bool `json:"noFallthroughCasesInSwitch,omitzero"`

	// High tier.
	NoImplicitReturns                  bool `json:"noImplicitReturns,omitzero"`
	NoUnusedLocals                     bool `json:"noUnusedLocals,omitzero"`
	NoUnusedParameters                 bool `json:"noUnusedParameters,omitzero"`
	NoPropertyAccessFromIndexSignature bool `json:"noPropertyAccessFromIndexSignature,omitzero"`

	// Lib lists the declaration files registered as ambient libraries.
	Lib []string `json:"lib,omitempty"`
}

// BaselineOptions returns the options applied at every strictness level.
func BaselineOptions() CompilerOptions {
	return CompilerOptions{
		AlwaysStrict:                 true,
		StrictNullChecks:             true,
		StrictFunctionTypes:          true,
		StrictPropertyInitialization: true,
		StrictBindCallApply:          true,
		AllowUnreachableCode:         false,
		Target:                       TargetES5,
		SourceMap:                    true,
		Declaration:                  true,
		NoEmitOnError:                true,
		RemoveComments:               true,
		AllowNonTsExtensions:         true,
		NoResolve:                    true,
		Module:                       ModuleNone,
	}
}

// BuildOptions returns the options for a strictness level using DefaultThresholds.
func BuildOptions(level Strictness) CompilerOptions {
	return BuildOptionsWithThresholds(level, DefaultThresholds)
}

// BuildOptionsWithThresholds returns the baseline plus every tier whose
// threshold level reaches.
func BuildOptionsWithThresholds(level Strictness, th Thresholds) CompilerOptions {
	opts := BaselineOptions()

	if level >= th.Medium {
		opts.NoImplicitAny = true
		opts.NoImplicitThis = true
		opts.NoImplicitOverride = true
		opts.UseUnknownInCatchVariables = true
		opts.NoFallthroughCasesInSwitch = true
	}

	if level >= th.High {
		opts.NoImplicitReturns = true
		opts.NoUnusedLocals = true
		opts.NoUnusedParameters = true
		opts.NoPropertyAccessFromIndexSignature = true
	}

	return opts
}

// Clone returns a copy that shares no mutable state with o.
func (o CompilerOptions) Clone() CompilerOptions {
	c := o
	if o.Lib != nil {
		c.Lib = append([]string(nil), o.Lib...)
	}
	return c
}

// Fields returns the options as the flat name/value record the compiler reads.
// Enum fields are left as member names.
func (o CompilerOptions) Fields() (map[string]any, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshaling compiler options: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("unmarshaling compiler options: %w", err)
	}
	return fields, nil
}

// enumResolver resolves enum member names inside the engine.
type enumResolver interface {
	Enum(enum, member string) (goja.Value, error)
}

// toObject builds the engine-side options object. The lib list is always
// present, so an empty list keeps the compiler from loading its default library.
func (o CompilerOptions) toObject(vm *goja.Runtime, enums enumResolver) (*goja.Object, error) {
	fields, err := o.Fields()
	if err != nil {
		return nil, err
	}

	obj := vm.NewObject()
	for name, value := range fields {
		switch name {
		case "target":
			v, err := enums.Enum("ScriptTarget", string(o.Target))
			if err != nil {
				return nil, err
			}
			_ = obj.Set(name, v)
		case "module":
			v, err := enums.Enum("ModuleKind", string(o.Module))
			if err != nil {
				return nil, err
			}
			_ = obj.Set(name, v)
		case "lib":
		default:
			_ = obj.Set(name, value)
		}
	}
	_ = obj.Set("lib", newStringArray(vm, o.Lib))

	return obj, nil
}

func newStringArray(vm *goja.Runtime, items []string) *goja.Object {
	vals := make([]any, len(items))
	for i, s := range items {
		vals[i] = s
	}
	return vm.NewArray(vals...)
}
