package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/tsembed/tsembed/internal/compiler"
	"github.com/tsembed/tsembed/internal/minify"
)

// runCompile implements "tsembed compile": bootstrap the compiler, compile one
// script, report the outcome.
func runCompile(args []string) int {
	f, err := parseCompileArgs("compile", args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	sess, err := bootstrap(ctx, f)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	script, err := readScript(f.ScriptPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintln(stderr, "compiling script...")
	code := sess.compileScript(ctx, f, script, start)
	sess.timing.Total = time.Since(start)
	if !f.JSON {
		sess.timing.Print(stderr)
	}
	return code
}

// outcome is everything one compile produced.
type outcome struct {
	result   *compiler.Result
	minified *minify.Result
	err      error
}

// compileScript compiles script and reports the outcome. since is the start of
// the measured interval printed in the final status line.
func (s *session) compileScript(ctx context.Context, f *compileFlags, script string, since time.Time) int {
	o := s.compile(ctx, f, script)
	elapsed := time.Since(since).Round(time.Millisecond)

	if f.JSON {
		if err := writeJSONReport(stdout, s, o); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	}

	if o.err != nil {
		if o.result != nil && f.Pretty && !f.JSON {
			report := compiler.CreateDiagnosticReporter(stderr, o.result.Sources, true)
			for _, d := range o.result.Diagnostics {
				report(d)
			}
			compiler.WriteErrorSummary(stderr, o.result.Diagnostics)
		}
		fmt.Fprintf(stderr, "compilation of TypeScript code failed after %s: %v\n", elapsed, o.err)
		return 1
	}

	if f.OutDir != "" {
		written, err := writeOutputs(f.OutDir, s.cfg.Compiler.InputFileName, o)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stderr, "wrote %d file(s) to %s\n", written, f.OutDir)
	} else if !f.JSON {
		if o.minified != nil {
			fmt.Fprintln(stdout, o.minified.Code)
		} else {
			fmt.Fprint(stdout, o.result.Output.Text)
		}
	}

	fmt.Fprintf(stderr, "compilation succeeded after %s.\n", elapsed)
	return 0
}

// compile runs the type-checked or isolated path, then the optional minify
// step. Failures of any kind end up in outcome.err.
func (s *session) compile(ctx context.Context, f *compileFlags, script string) *outcome {
	o := &outcome{}
	cctx, cancel := s.compileContext(ctx)
	defer cancel()

	compileStart := time.Now()
	if f.Isolated {
		req := s.request(script)
		js, err := compiler.TranspileIsolated(cctx, s.bundle, script, req.Options)
		if err != nil {
			o.err = err
			return o
		}
		o.result = &compiler.Result{
			Output:       compiler.Slot{Text: js, Written: true},
			EmittedFiles: []string{outputBase(req.InputFileName) + ".js"},
			Options:      req.Options,
		}
	} else {
		res, err := s.service.Transpile(cctx, s.request(script))
		if err != nil {
			o.err = err
			return o
		}
		o.result = res
		if err := res.Err(); err != nil {
			o.err = err
			return o
		}
	}
	s.timing.Compile = time.Since(compileStart)

	if s.cfg.Compiler.Minify {
		minifyStart := time.Now()
		m, err := minify.JavaScript(o.result.Output.Text, outputBase(s.cfg.Compiler.InputFileName)+".js")
		if err != nil {
			o.err = err
			return o
		}
		o.minified = m
		s.timing.Minify = time.Since(minifyStart)
	}
	return o
}

// outputBase strips the script extension: "script1.ts" -> "script1".
func outputBase(inputFileName string) string {
	return strings.TrimSuffix(inputFileName, filepath.Ext(inputFileName))
}

type outputFile struct {
	path string
	slot compiler.Slot
}

// writeOutputs writes every captured file into dir and returns the count.
func writeOutputs(dir, inputFileName string, o *outcome) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	base := filepath.Join(dir, outputBase(filepath.Base(inputFileName)))

	files := []outputFile{
		{base + ".js", o.result.Output},
		{base + ".js.map", o.result.SourceMap},
		{base + ".d.ts", o.result.Declaration},
	}
	if o.minified != nil {
		files = append(files,
			outputFile{base + ".min.js", compiler.Slot{Text: o.minified.Code, Written: true}},
			outputFile{base + ".min.js.map", compiler.Slot{Text: o.minified.SourceMap, Written: o.minified.SourceMap != ""}},
		)
	}

	written := 0
	for _, file := range files {
		if !file.slot.Written {
			continue
		}
		if err := os.WriteFile(file.path, []byte(file.slot.Text), 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", file.path, err)
		}
		written++
	}
	return written, nil
}
