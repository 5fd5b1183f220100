// Package minify shrinks the JavaScript the compiler emits. Output stays ES5
// so it runs wherever the unminified output runs.
package minify

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
)

// Result is minified code and the source map that maps it back to the
// compiler's output.
type Result struct {
	Code      string
	SourceMap string
}

// Error is the first problem esbuild reported.
type Error struct {
	File   string
	Line   int // 1-based
	Column int // 0-based
	Text   string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("minify %s:%d:%d: %s", e.File, e.Line, e.Column, e.Text)
	}
	return fmt.Sprintf("minify %s: %s", e.File, e.Text)
}

// JavaScript minifies code. fileName names the input in the source map and
// in errors.
func JavaScript(code, fileName string) (*Result, error) {
	result := api.Transform(code, api.TransformOptions{
		Loader:            api.LoaderJS,
		Sourcefile:        fileName,
		Target:            api.ES5,
		Format:            api.FormatDefault,
		Sourcemap:         api.SourceMapExternal,
		SourcesContent:    api.SourcesContentInclude,
		LegalComments:     api.LegalCommentsNone,
		Platform:          api.PlatformNeutral,
		LogLevel:          api.LogLevelSilent,
		Charset:           api.CharsetUTF8,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
	})

	if len(result.Errors) > 0 {
		msg := result.Errors[0]
		err := &Error{File: fileName, Text: msg.Text}
		if msg.Location != nil {
			err.Line = msg.Location.Line
			err.Column = msg.Location.Column
		}
		return nil, err
	}

	return &Result{Code: string(result.Code), SourceMap: string(result.Map)}, nil
}
