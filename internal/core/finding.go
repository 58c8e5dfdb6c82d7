package core

import "strings"

// Severity classifies a single finding. Ordering matters: truncation keeps
// the highest severities first.
type Severity string

const (
	SeverityError      Severity = "error"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

// Rank returns the sort weight of the severity, lower means more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// CoerceSeverity maps untrusted severity text onto the closed enum. Unknown
// values become SeveritySuggestion, the least disruptive classification.
func CoerceSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "error":
		return SeverityError
	case "warning":
		return SeverityWarning
	default:
		return SeveritySuggestion
	}
}

// AnalysisFinding is a single AI-derived observation about one file.
type AnalysisFinding struct {
	Path     string
	Severity Severity
	Category string
	Message  string

	// Line anchors the finding inside the file's diff. Zero means the
	// finding is unanchored and rendered as a file-level comment.
	Line int

	// Suggestion and CodeExample are optional elaborations the provider
	// may attach.
	Suggestion  string
	CodeExample string
}

// Anchored reports whether the finding points at a concrete diff line.
func (f AnalysisFinding) Anchored() bool {
	return f.Line > 0
}
