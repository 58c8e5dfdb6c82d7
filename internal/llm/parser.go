package llm

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/sevigo/boxedbot/internal/core"
)

// hunkHeaderRegex captures the new-file start line and line count from a
// unified diff hunk header: @@ -a,b +c,d @@
var hunkHeaderRegex = regexp.MustCompile(`@@ -\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

// LineRanges is the set of new-file line spans a diff touches. Findings
// anchored outside these spans cannot be positioned on the diff.
type LineRanges []lineSpan

type lineSpan struct {
	start, end int
}

// Contains reports whether the line falls inside any span.
func (r LineRanges) Contains(line int) bool {
	for _, span := range r {
		if line >= span.start && line <= span.end {
			return true
		}
	}
	return false
}

// DiffLineRanges extracts the new-file line spans from a unified diff
// patch.
func DiffLineRanges(patch string) LineRanges {
	var ranges LineRanges
	for _, match := range hunkHeaderRegex.FindAllStringSubmatch(patch, -1) {
		start, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		count := 1
		if match[2] != "" {
			if count, err = strconv.Atoi(match[2]); err != nil {
				continue
			}
		}
		if count <= 0 {
			continue
		}
		ranges = append(ranges, lineSpan{start: start, end: start + count - 1})
	}
	return ranges
}

// rawFinding is the JSON record the provider is asked to emit. Unknown
// fields are dropped by the struct decode; nothing else is trusted either.
type rawFinding struct {
	Line        int    `json:"line"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Message     string `json:"message"`
	Suggestion  string `json:"suggestion"`
	CodeExample string `json:"code_example"`
}

// ParseFindings turns the provider's raw completion text into validated
// findings for one file. AI output is untrusted input: malformed JSON or a
// non-array payload yields zero findings, individually malformed records
// are dropped, unknown severities are coerced to suggestion, and line
// numbers outside the diff are demoted to unanchored file-level findings.
// This function never fails past its boundary.
func ParseFindings(raw, path string, ranges LineRanges, logger *slog.Logger) []core.AnalysisFinding {
	stripped := stripJSONFence(raw)

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(stripped), &records); err != nil {
		logger.Warn("provider output is not a JSON array, discarding", "file", path, "error", err)
		return nil
	}

	findings := make([]core.AnalysisFinding, 0, len(records))
	for _, record := range records {
		var rf rawFinding
		if err := json.Unmarshal(record, &rf); err != nil {
			logger.Debug("malformed finding record dropped", "file", path, "error", err)
			continue
		}
		if rf.Message == "" || rf.Line <= 0 {
			logger.Debug("incomplete finding record dropped", "file", path)
			continue
		}

		line := rf.Line
		if !ranges.Contains(line) {
			logger.Debug("finding outside diff range demoted to file level", "file", path, "line", line)
			line = 0
		}

		findings = append(findings, core.AnalysisFinding{
			Path:        path,
			Line:        line,
			Severity:    core.CoerceSeverity(rf.Type),
			Category:    strings.ToLower(strings.TrimSpace(rf.Category)),
			Message:     strings.TrimSpace(rf.Message),
			Suggestion:  strings.TrimSpace(rf.Suggestion),
			CodeExample: rf.CodeExample,
		})
	}
	return findings
}

// stripJSONFence removes a ```json ... ``` wrapping that some models add
// around their output.
func stripJSONFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
	} else {
		return trimmed
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
