package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const version = "0.1.0-dev"

// Output streams. Results go to stdout; progress, timings and diagnostics go
// to stderr.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		// No subcommand: compile the empty script with the default config.
		return runCompile(args)
	}

	switch args[0] {
	case "compile":
		return runCompile(args[1:])
	case "fetch":
		return runFetch(args[1:])
	case "watch":
		return runWatch(args[1:])
	case "--version", "-v":
		fmt.Fprintln(stdout, "tsembed", version)
		return 0
	case "--help", "-h", "help":
		printUsage(stdout)
		return 0
	default:
		// A flag or a script path, not a subcommand
		if strings.HasPrefix(args[0], "-") || strings.HasSuffix(args[0], ".ts") {
			return runCompile(args)
		}
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "tsembed - TypeScript compiler hosted in an embedded JavaScript engine")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tsembed [flags] [script.ts]          Compile a script (default)")
	fmt.Fprintln(w, "  tsembed compile [flags] [script.ts]  Compile a script")
	fmt.Fprintln(w, "  tsembed watch [flags] script.ts      Recompile whenever the script or a local lib changes")
	fmt.Fprintln(w, "  tsembed fetch [flags]                Download the compiler bundle and libs into the cache")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Flags:")
	fmt.Fprintln(w, "  --version, -v          Print version and exit")
	fmt.Fprintln(w, "  --help, -h             Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compile Flags:")
	fmt.Fprintln(w, "  -config <path>         Path to tsembed.json or tsembed.yaml")
	fmt.Fprintln(w, "  -strictness <level>    low, medium, high or a number (default: from config)")
	fmt.Fprintln(w, "  -name <file>           Name the script is compiled under (default: script1.ts)")
	fmt.Fprintln(w, "  -bundle <path>         Local typescriptServices.js instead of the configured URL")
	fmt.Fprintln(w, "  -lib <name=path>       Add or replace a lib file (repeatable)")
	fmt.Fprintln(w, "  -out-dir <dir>         Write the emitted files to dir")
	fmt.Fprintln(w, "  -json                  Print the result as JSON")
	fmt.Fprintln(w, "  -timeout <duration>    Abort a compile that runs longer than this")
	fmt.Fprintln(w, "  -minify                Minify the emitted JavaScript")
	fmt.Fprintln(w, "  -isolated              Transpile without type checking")
	fmt.Fprintln(w, "  -pretty                Colored diagnostics with code snippets")
	fmt.Fprintln(w, "  -no-cache              Do not read or write the download cache")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Watch Flags:")
	fmt.Fprintln(w, "  -exec <command>        Restart command after each successful compile")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  tsembed")
	fmt.Fprintln(w, "  tsembed compile -strictness high script1.ts")
	fmt.Fprintln(w, "  tsembed -bundle node_modules/typescript/lib/typescriptServices.js -lib env.d.ts=./env.d.ts main.ts")
	fmt.Fprintln(w, "  tsembed watch -out-dir dist -exec \"node dist/script1.js\" script1.ts")
	fmt.Fprintln(w)
}
