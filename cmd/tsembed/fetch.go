package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/tsembed/tsembed/internal/fetch"
)

// runFetch implements "tsembed fetch": download the bundle and every lib so
// later runs start from the cache.
func runFetch(args []string) int {
	f, err := parseCompileArgs("fetch", args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	if f.ScriptPath != "" {
		fmt.Fprintln(stderr, "error: fetch takes no script argument")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "error: could not get working directory: %v\n", err)
		return 1
	}
	cr, err := loadOrDiscoverConfig(f.ConfigPath, cwd)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	cfg := cr.Config
	if err := applyFlags(cfg, f); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	fetcher, err := newFetcher(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	start := time.Now()
	sources := append([]fetch.Source{cfg.Bundle}, cfg.Libs...)
	texts, err := fetcher.FetchAll(ctx, sources)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	for i, src := range sources {
		origin := "remote"
		if src.Path != "" {
			origin = src.Path
		}
		fmt.Fprintf(stdout, "%-40s %10d bytes  %s\n", src.Name, len(texts[i]), origin)
	}
	fmt.Fprintf(stderr, "fetched %d source(s) in %s\n", len(sources), time.Since(start).Round(time.Millisecond))
	return 0
}
