package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/tsembed/tsembed/internal/compiler"
	"github.com/tsembed/tsembed/internal/diagnostic"
)

// jsonReport is the -json output of one compile.
type jsonReport struct {
	Succeeded     bool   `json:"succeeded"`
	Error         string `json:"error,omitempty"`
	InputFileName string `json:"inputFileName"`
	Strictness    int    `json:"strictness"`

	Output      *string `json:"output,omitempty"`
	SourceMap   *string `json:"sourceMap,omitempty"`
	Declaration *string `json:"declaration,omitempty"`
	Minified    *string `json:"minified,omitempty"`

	EmittedFiles []string         `json:"emittedFiles"`
	Libs         []string         `json:"libs"`
	Diagnostics  []jsonDiagnostic `json:"diagnostics"`
	Timing       jsonTiming       `json:"timing"`
}

type jsonDiagnostic struct {
	File      string        `json:"file,omitempty"`
	Position  *jsonPosition `json:"position,omitempty"`
	Code      int           `json:"code"`
	Category  string        `json:"category"`
	Message   string        `json:"message"`
	Formatted string        `json:"formatted"`
}

// jsonPosition uses 1-based line and character numbers.
type jsonPosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
	Start     int `json:"start"`
	Length    int `json:"length"`
}

// jsonTiming holds phase durations in milliseconds.
type jsonTiming struct {
	Config    float64 `json:"config"`
	Fetch     float64 `json:"fetch"`
	Bootstrap float64 `json:"bootstrap"`
	Compile   float64 `json:"compile"`
	Minify    float64 `json:"minify,omitzero"`
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func slotText(slot compiler.Slot) *string {
	if !slot.Written {
		return nil
	}
	text := slot.Text
	return &text
}

func newJSONDiagnostic(d diagnostic.Diagnostic) jsonDiagnostic {
	jd := jsonDiagnostic{
		File:      d.File,
		Code:      d.Code,
		Category:  d.Category.String(),
		Message:   d.Message.Flatten(),
		Formatted: d.String(),
	}
	if d.Position != nil {
		jd.Position = &jsonPosition{
			Line:      d.Position.Line + 1,
			Character: d.Position.Character + 1,
			Start:     d.Position.Start,
			Length:    d.Position.Length,
		}
	}
	return jd
}

func buildJSONReport(s *session, o *outcome) *jsonReport {
	r := &jsonReport{
		Succeeded:     o.err == nil,
		InputFileName: s.cfg.Compiler.InputFileName,
		Strictness:    int(s.cfg.Compiler.Strictness),
		Timing: jsonTiming{
			Config:    millis(s.timing.Config),
			Fetch:     millis(s.timing.Fetch),
			Bootstrap: millis(s.timing.Bootstrap),
			Compile:   millis(s.timing.Compile),
			Minify:    millis(s.timing.Minify),
		},
	}
	for _, lib := range s.libs {
		r.Libs = append(r.Libs, lib.Name)
	}
	if o.err != nil {
		var compileErr *compiler.CompileError
		if !errors.As(o.err, &compileErr) {
			r.Error = o.err.Error()
		}
	}
	if res := o.result; res != nil {
		r.Output = slotText(res.Output)
		r.SourceMap = slotText(res.SourceMap)
		r.Declaration = slotText(res.Declaration)
		r.EmittedFiles = res.EmittedFiles
		for _, d := range res.Diagnostics {
			r.Diagnostics = append(r.Diagnostics, newJSONDiagnostic(d))
		}
	}
	if o.minified != nil {
		code := o.minified.Code
		r.Minified = &code
	}
	return r
}

func writeJSONReport(w io.Writer, s *session, o *outcome) error {
	data, err := json.Marshal(buildJSONReport(s, o), jsontext.WithIndent("  "))
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
