package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tsembed/tsembed/internal/compiler"
	"github.com/tsembed/tsembed/internal/fetch"
	"github.com/tsembed/tsembed/internal/runner"
	"github.com/tsembed/tsembed/internal/watcher"
)

const watchDebounce = 200 * time.Millisecond

// runWatch implements "tsembed watch": compile once, then recompile whenever
// the script or a lib file read from disk changes. The engine is bootstrapped
// only once. With -exec, the command is restarted after every successful
// compile; TSEMBED_OUTPUT_DIR and TSEMBED_INPUT tell it where to look.
func runWatch(args []string) int {
	f, err := parseCompileArgs("watch", args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	if f.ScriptPath == "" {
		fmt.Fprintln(stderr, "error: watch needs a script path")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := bootstrap(ctx, f)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	child := newExecRunner(f, sess)
	if child != nil {
		defer child.Stop()
	}

	rebuild := func() {
		start := time.Now()
		if err := sess.reloadLocalLibs(ctx); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return
		}
		script, err := readScript(f.ScriptPath)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return
		}
		if sess.compileScript(ctx, f, script, start) != 0 || child == nil {
			return
		}
		fmt.Fprintf(stderr, "restarting %s\n", child)
		if err := child.Restart(); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
	}

	rebuild()

	paths := append([]string{f.ScriptPath}, sess.localLibPaths()...)
	changes := make(chan []watcher.Event, 1)
	w := watcher.New(paths, watchDebounce, func(events []watcher.Event) {
		select {
		case changes <- events:
		default:
			// a rebuild is already queued
		}
	})

	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()
	fmt.Fprintf(stderr, "watching %d file(s) for changes...\n", len(paths))

	for {
		select {
		case <-ctx.Done():
			<-done
			fmt.Fprintln(stderr, "\nstopped watching")
			return 0
		case events := <-changes:
			for _, e := range events {
				fmt.Fprintf(stderr, "%s: %s\n", e.Op, e.Path)
			}
			rebuild()
		}
	}
}

// newExecRunner builds the -exec runner, or returns nil without -exec.
func newExecRunner(f *compileFlags, s *session) *runner.Runner {
	r := runner.Parse(f.Exec, "")
	if r == nil {
		return nil
	}
	r.Stdout = stdout
	r.Stderr = stderr
	r.DisableStdin = true
	r.Env = []string{
		"TSEMBED_INPUT=" + s.cfg.Compiler.InputFileName,
		"TSEMBED_OUTPUT_DIR=" + f.OutDir,
	}
	return r
}

// localLibPaths returns the paths of libs read from disk.
func (s *session) localLibPaths() []string {
	var paths []string
	for _, lib := range s.cfg.Libs {
		if lib.Path != "" {
			paths = append(paths, lib.Path)
		}
	}
	return paths
}

// reloadLocalLibs re-reads every lib that comes from disk. Remote libs keep
// the text fetched at bootstrap.
func (s *session) reloadLocalLibs(ctx context.Context) error {
	fetcher := fetch.New(nil, nil)
	libs := make([]compiler.LibFile, len(s.cfg.Libs))
	for i, src := range s.cfg.Libs {
		if src.Path == "" {
			libs[i] = s.libs[i]
			continue
		}
		text, err := fetcher.Fetch(ctx, src)
		if err != nil {
			return err
		}
		libs[i] = compiler.LibFile{Name: src.Name, Text: text}
	}
	s.libs = libs
	return nil
}
