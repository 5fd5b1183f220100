// Package diagnostic holds compiler diagnostics read back from the engine and
// formats them for people.
package diagnostic

import (
	"fmt"
	"strings"
)

// Category mirrors the compiler's DiagnosticCategory enum values.
type Category int

const (
	CategoryWarning    Category = 0
	CategoryError      Category = 1
	CategorySuggestion Category = 2
	CategoryMessage    Category = 3
)

func (c Category) String() string {
	switch c {
	case CategoryWarning:
		return "warning"
	case CategoryError:
		return "error"
	case CategorySuggestion:
		return "suggestion"
	case CategoryMessage:
		return "message"
	default:
		return "unknown"
	}
}

// MessageChain is a diagnostic message with optional nested detail messages.
// A flat message is a chain with no Next entries.
type MessageChain struct {
	Text string
	Next []MessageChain
}

// Head returns the first link of the chain only.
func (m MessageChain) Head() string {
	return m.Text
}

// Flatten renders the whole chain. Each nested level starts on a new line,
// indented two spaces per depth.
func (m MessageChain) Flatten() string {
	var sb strings.Builder
	m.flatten(&sb, 0)
	return sb.String()
}

func (m MessageChain) flatten(sb *strings.Builder, depth int) {
	if depth > 0 {
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("  ", depth))
	}
	sb.WriteString(m.Text)
	for _, next := range m.Next {
		next.flatten(sb, depth+1)
	}
}

// Position locates a diagnostic in its file.
type Position struct {
	Start     int // UTF-16 offset into the file text
	Length    int
	Line      int // 0-based, as reported by the engine
	Character int // 0-based, as reported by the engine
}

// Diagnostic is one compiler error, warning or message.
type Diagnostic struct {
	File     string    // empty for global diagnostics
	Position *Position // nil when the diagnostic has no location
	Code     int
	Category Category
	Message  MessageChain
}

// String formats the diagnostic as "<file>: Line <n>: <message>".
// Line numbers are 1-based. Diagnostics without a position render the
// message only.
func (d Diagnostic) String() string {
	var sb strings.Builder
	if d.Position != nil {
		sb.WriteString(fmt.Sprintf("%s: Line %d: ", d.File, d.Position.Line+1))
	}
	sb.WriteString(d.Message.Flatten())
	return sb.String()
}

// Format renders diagnostics in order, one per line.
func Format(diags []Diagnostic) string {
	if len(diags) == 0 {
		return ""
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n")
}

// CountErrors returns the number of error diagnostics.
func CountErrors(diags []Diagnostic) int {
	count := 0
	for _, d := range diags {
		if d.Category == CategoryError {
			count++
		}
	}
	return count
}

// HasErrors returns true if any error diagnostics exist.
func HasErrors(diags []Diagnostic) bool {
	return CountErrors(diags) > 0
}

// Summary returns a summary line like "2 error(s), 1 warning(s)".
func Summary(diags []Diagnostic) string {
	errors := CountErrors(diags)
	warnings := 0
	for _, d := range diags {
		if d.Category == CategoryWarning {
			warnings++
		}
	}

	parts := []string{}
	if errors > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", errors))
	}
	if warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", warnings))
	}
	if len(parts) == 0 {
		return "no issues"
	}
	return strings.Join(parts, ", ")
}
