package compiler

import (
	"context"
	"strings"

	"github.com/clarkmcc/go-typescript"

	"github.com/tsembed/tsembed/internal/engine"
)

// Service runs compilations on a pool of runtimes. Each call gets exclusive
// use of one runtime and builds its own host, file table and capture, so
// Service is safe for concurrent use.
type Service struct {
	pool *engine.Pool
}

// NewService returns a service drawing runtimes from pool.
func NewService(pool *engine.Pool) *Service {
	return &Service{pool: pool}
}

// Transpile compiles req on a pooled runtime.
func (s *Service) Transpile(ctx context.Context, req Request) (*Result, error) {
	rt, err := s.pool.Get(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(rt)

	return New(rt).Transpile(ctx, req)
}

// TranspileIsolated transpiles with the bundle's transpileModule entry point:
// no type checking, no libraries, no diagnostics.
func (s *Service) TranspileIsolated(ctx context.Context, script string, opts CompilerOptions) (string, error) {
	return TranspileIsolated(ctx, s.pool.Bundle(), script, opts)
}

// TranspileIsolated runs script through transpileModule on a runtime of its own.
func TranspileIsolated(ctx context.Context, bundle *engine.Bundle, script string, opts CompilerOptions) (string, error) {
	compileOptions, err := isolatedOptions(opts)
	if err != nil {
		return "", err
	}
	return typescript.TranspileCtx(
		ctx, strings.NewReader(script),
		withBundle(bundle),
		typescript.WithCompileOptions(compileOptions),
	)
}

func withBundle(bundle *engine.Bundle) typescript.TranspileOptionFunc {
	return func(config *typescript.Config) {
		config.TypescriptSource = bundle.Program()
	}
}

// isolatedOptions converts opts to the string-valued form transpileModule
// accepts. Emit-only settings that transpileModule overrides are dropped.
func isolatedOptions(opts CompilerOptions) (map[string]any, error) {
	fields, err := opts.Fields()
	if err != nil {
		return nil, err
	}
	fields["target"] = strings.ToLower(string(opts.Target))
	fields["module"] = strings.ToLower(string(opts.Module))
	for _, name := range []string{"declaration", "sourceMap", "noEmitOnError", "noResolve", "lib"} {
		delete(fields, name)
	}
	return fields, nil
}
