package compiler

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/dop251/goja"

	"github.com/tsembed/tsembed/internal/diagnostic"
	"github.com/tsembed/tsembed/internal/engine"
)

// convertDiagnostics reads the engine's diagnostic objects in order. Positions
// are resolved with the engine's own getLineAndCharacterOfPosition.
func convertDiagnostics(rt *engine.Runtime, raw []goja.Value) ([]diagnostic.Diagnostic, error) {
	diags := make([]diagnostic.Diagnostic, 0, len(raw))
	for _, v := range raw {
		obj := engine.Object(v)
		if obj == nil {
			continue
		}

		var d diagnostic.Diagnostic
		d.Code, _ = engine.Int(obj.Get("code"))
		if cat, ok := engine.Int(obj.Get("category")); ok {
			d.Category = diagnostic.Category(cat)
		} else {
			d.Category = diagnostic.CategoryError
		}
		d.Message = convertMessage(obj.Get("messageText"))

		if file := engine.Object(obj.Get("file")); file != nil {
			d.File, _ = engine.String(file.Get("fileName"))
			if start, ok := engine.Int(obj.Get("start")); ok {
				lc, err := rt.CallNamespace("getLineAndCharacterOfPosition", file, start)
				if err != nil {
					return nil, fmt.Errorf("resolving diagnostic position in %s: %w", d.File, err)
				}
				pos := &diagnostic.Position{Start: start}
				pos.Length, _ = engine.Int(obj.Get("length"))
				if lcObj := engine.Object(lc); lcObj != nil {
					pos.Line, _ = engine.Int(lcObj.Get("line"))
					pos.Character, _ = engine.Int(lcObj.Get("character"))
				}
				d.Position = pos
			}
		}

		diags = append(diags, d)
	}
	return diags, nil
}

// convertMessage reads a flat message or a message chain. Chains carry their
// children in "next", either as an array or, in older compilers, one object.
func convertMessage(v goja.Value) diagnostic.MessageChain {
	if s, ok := engine.String(v); ok {
		return diagnostic.MessageChain{Text: s}
	}
	obj := engine.Object(v)
	if obj == nil {
		if engine.IsNullish(v) {
			return diagnostic.MessageChain{}
		}
		return diagnostic.MessageChain{Text: v.String()}
	}

	chain := diagnostic.MessageChain{}
	chain.Text, _ = engine.String(obj.Get("messageText"))

	next := obj.Get("next")
	if nextObj := engine.Object(next); nextObj != nil {
		if _, isArray := engine.Int(nextObj.Get("length")); isArray {
			for _, n := range engine.Elements(next) {
				chain.Next = append(chain.Next, convertMessage(n))
			}
		} else {
			chain.Next = append(chain.Next, convertMessage(next))
		}
	}
	return chain
}

// ANSI color constants matching tsc's pretty output.
const (
	colorReset  = "\u001b[0m"
	colorRed    = "\u001b[91m"
	colorYellow = "\u001b[93m"
	colorCyan   = "\u001b[96m"
	colorGrey   = "\u001b[90m"
	colorGutter = "\u001b[7m" // reverse video
)

func categoryColor(cat diagnostic.Category) string {
	switch cat {
	case diagnostic.CategoryError:
		return colorRed
	case diagnostic.CategoryWarning:
		return colorYellow
	case diagnostic.CategorySuggestion:
		return colorGrey
	case diagnostic.CategoryMessage:
		return "\u001b[94m" // blue
	}
	return ""
}

// DiagnosticReporter formats and writes a single diagnostic.
type DiagnosticReporter func(d diagnostic.Diagnostic)

// IsPrettyOutput determines if we should use colored output with code snippets:
// NO_COLOR, FORCE_COLOR, then whether stderr is a terminal.
func IsPrettyOutput() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// CreateDiagnosticReporter creates a reporter that formats diagnostics in tsc
// style. sources supplies file text for code snippets in pretty mode.
//
//	plain:  file(line,col): error TS1005: message
//	pretty: file:line:col - error TS1005: message, then the code snippet
func CreateDiagnosticReporter(w io.Writer, sources map[string]string, pretty bool) DiagnosticReporter {
	if pretty {
		return func(d diagnostic.Diagnostic) {
			writePrettyDiagnostic(w, d, sources)
			fmt.Fprint(w, "\n")
		}
	}
	return func(d diagnostic.Diagnostic) {
		writePlainDiagnostic(w, d)
	}
}

func writePlainDiagnostic(w io.Writer, d diagnostic.Diagnostic) {
	if d.Position != nil {
		fmt.Fprintf(w, "%s(%d,%d): ", d.File, d.Position.Line+1, d.Position.Character+1)
	}
	fmt.Fprintf(w, "%s TS%d: %s\n", d.Category, d.Code, d.Message.Flatten())
}

func writePrettyDiagnostic(w io.Writer, d diagnostic.Diagnostic, sources map[string]string) {
	if d.Position != nil {
		fmt.Fprintf(w, "%s%s%s:%s%d%s:%s%d%s",
			colorCyan, d.File, colorReset,
			colorYellow, d.Position.Line+1, colorReset,
			colorYellow, d.Position.Character+1, colorReset)
		fmt.Fprint(w, " - ")
	}

	fmt.Fprintf(w, "%s%s%s %sTS%d:%s %s",
		categoryColor(d.Category), d.Category, colorReset,
		colorGrey, d.Code, colorReset,
		d.Message.Flatten())

	if d.Position != nil {
		if text, ok := sources[d.File]; ok {
			fmt.Fprint(w, "\n")
			writeCodeSnippet(w, text, d.Position, categoryColor(d.Category))
			fmt.Fprint(w, "\n")
		}
	}
}

// writeCodeSnippet writes the source lines a diagnostic spans with gutter line
// numbers and squiggles. Spans longer than five lines are elided in the middle.
func writeCodeSnippet(w io.Writer, text string, pos *diagnostic.Position, squiggleColor string) {
	lines := strings.Split(text, "\n")
	firstLine, firstLineChar := pos.Line, pos.Character
	if firstLine >= len(lines) {
		return
	}
	lastLine, lastLineChar := endOfSpan(lines, firstLine, firstLineChar, pos.Length)
	if pos.Length == 0 {
		lastLineChar++
	}

	hasMoreThanFiveLines := lastLine-firstLine >= 4
	gutterWidth := len(strconv.Itoa(lastLine + 1))
	if hasMoreThanFiveLines && len("...") > gutterWidth {
		gutterWidth = len("...")
	}

	for i := firstLine; i <= lastLine; i++ {
		if hasMoreThanFiveLines && firstLine+1 < i && i < lastLine-1 {
			fmt.Fprintf(w, "%s%*s%s %s\n",
				colorGutter, gutterWidth, "...", colorReset, "")
			i = lastLine - 1
		}

		lineContent := strings.TrimRightFunc(lines[i], unicode.IsSpace)
		lineContent = strings.ReplaceAll(lineContent, "\t", " ")
		lineWidth := len([]rune(lineContent))

		fmt.Fprintf(w, "%s%*d%s %s\n",
			colorGutter, gutterWidth, i+1, colorReset, lineContent)

		fmt.Fprintf(w, "%s%*s%s ", colorGutter, gutterWidth, "", colorReset)
		fmt.Fprint(w, squiggleColor)
		switch i {
		case firstLine:
			lastCharForLine := lastLineChar
			if i != lastLine {
				lastCharForLine = lineWidth
			}
			fmt.Fprint(w, strings.Repeat(" ", firstLineChar))
			squiggleLen := lastCharForLine - firstLineChar
			if squiggleLen < 1 {
				squiggleLen = 1
			}
			fmt.Fprint(w, strings.Repeat("~", squiggleLen))
		case lastLine:
			if lastLineChar > 0 {
				fmt.Fprint(w, strings.Repeat("~", lastLineChar))
			}
		default:
			fmt.Fprint(w, strings.Repeat("~", lineWidth))
		}
		fmt.Fprint(w, colorReset)
		if i != lastLine {
			fmt.Fprint(w, "\n")
		}
	}
}

// endOfSpan walks length characters forward from (line, char), counting each
// line break as one character.
func endOfSpan(lines []string, line, char, length int) (int, int) {
	remaining := length
	for line < len(lines) {
		width := len([]rune(lines[line]))
		if char+remaining <= width || line == len(lines)-1 {
			return line, char + remaining
		}
		remaining -= width - char + 1
		line++
		char = 0
	}
	return line, char
}

// WriteErrorSummary writes the "Found N errors" summary (pretty mode only).
// Only error diagnostics are counted.
func WriteErrorSummary(w io.Writer, diags []diagnostic.Diagnostic) {
	errorCount := 0
	var first *diagnostic.Diagnostic
	fileErrors := make(map[string]int)

	for i, d := range diags {
		if d.Category != diagnostic.CategoryError {
			continue
		}
		errorCount++
		if errorCount == 1 && d.Position != nil {
			first = &diags[i]
		}
		if d.File != "" {
			fileErrors[d.File]++
		}
	}

	if errorCount == 0 {
		return
	}

	numFiles := len(fileErrors)
	fmt.Fprint(w, "\n")

	if errorCount == 1 {
		if first != nil {
			fmt.Fprintf(w, "Found 1 error in %s%s:%d%s\n",
				first.File, colorGrey, first.Position.Line+1, colorReset)
		} else {
			fmt.Fprintln(w, "Found 1 error.")
		}
	} else if numFiles <= 1 {
		if first != nil {
			fmt.Fprintf(w, "Found %d errors in the same file, starting at: %s%s:%d%s\n",
				errorCount, first.File, colorGrey, first.Position.Line+1, colorReset)
		} else {
			fmt.Fprintf(w, "Found %d errors.\n", errorCount)
		}
	} else {
		fmt.Fprintf(w, "Found %d errors in %d files.\n", errorCount, numFiles)
	}
	fmt.Fprint(w, "\n")
}
