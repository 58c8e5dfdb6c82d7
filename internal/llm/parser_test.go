package llm

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/boxedbot/internal/core"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

const samplePatch = `@@ -10,4 +10,6 @@ func handler() {
 	existing()
+	added1()
+	added2()
 	more()
@@ -40,2 +42,3 @@ func other() {
 	keep()
+	late()
`

func TestDiffLineRanges(t *testing.T) {
	ranges := DiffLineRanges(samplePatch)
	require.Len(t, ranges, 2)

	assert.True(t, ranges.Contains(10))
	assert.True(t, ranges.Contains(15))
	assert.False(t, ranges.Contains(16))
	assert.True(t, ranges.Contains(42))
	assert.True(t, ranges.Contains(44))
	assert.False(t, ranges.Contains(45))
	assert.False(t, ranges.Contains(1))
}

func TestDiffLineRanges_SingleLineHunk(t *testing.T) {
	// A count of 1 may be omitted in the hunk header.
	ranges := DiffLineRanges("@@ -5 +7 @@\n+one line")
	require.Len(t, ranges, 1)
	assert.True(t, ranges.Contains(7))
	assert.False(t, ranges.Contains(8))
}

func TestDiffLineRanges_NoHunks(t *testing.T) {
	assert.Empty(t, DiffLineRanges(""))
	assert.Empty(t, DiffLineRanges("Binary files differ"))
}

func TestParseFindings(t *testing.T) {
	ranges := DiffLineRanges(samplePatch)

	t.Run("valid array", func(t *testing.T) {
		raw := `[
			{"line": 11, "type": "error", "category": "security", "message": "SQL injection risk", "suggestion": "use placeholders"},
			{"line": 43, "type": "warning", "category": "performance", "message": "N+1 query"}
		]`
		findings := ParseFindings(raw, "app.py", ranges, discardLogger())
		require.Len(t, findings, 2)

		assert.Equal(t, "app.py", findings[0].Path)
		assert.Equal(t, 11, findings[0].Line)
		assert.Equal(t, core.SeverityError, findings[0].Severity)
		assert.Equal(t, "security", findings[0].Category)
		assert.Equal(t, "SQL injection risk", findings[0].Message)
		assert.Equal(t, "use placeholders", findings[0].Suggestion)
		assert.True(t, findings[0].Anchored())
	})

	t.Run("fenced output is unwrapped", func(t *testing.T) {
		raw := "```json\n[{\"line\": 11, \"type\": \"error\", \"message\": \"bug\"}]\n```"
		findings := ParseFindings(raw, "app.py", ranges, discardLogger())
		require.Len(t, findings, 1)
		assert.Equal(t, 11, findings[0].Line)
	})

	t.Run("bare fence is unwrapped", func(t *testing.T) {
		raw := "```\n[{\"line\": 11, \"type\": \"error\", \"message\": \"bug\"}]\n```"
		findings := ParseFindings(raw, "app.py", ranges, discardLogger())
		assert.Len(t, findings, 1)
	})

	t.Run("non-JSON output yields nothing", func(t *testing.T) {
		assert.Empty(t, ParseFindings("I could not analyze this file.", "app.py", ranges, discardLogger()))
	})

	t.Run("non-array JSON yields nothing", func(t *testing.T) {
		assert.Empty(t, ParseFindings(`{"line": 11, "message": "bug"}`, "app.py", ranges, discardLogger()))
	})

	t.Run("malformed record is dropped, valid siblings survive", func(t *testing.T) {
		raw := `[
			{"line": "eleven", "type": "error", "message": "bad line type"},
			{"line": 11, "type": "error", "message": "good"}
		]`
		findings := ParseFindings(raw, "app.py", ranges, discardLogger())
		require.Len(t, findings, 1)
		assert.Equal(t, "good", findings[0].Message)
	})

	t.Run("missing message or line drops the record", func(t *testing.T) {
		raw := `[
			{"line": 11, "type": "error"},
			{"line": 0, "type": "error", "message": "zero line"},
			{"line": -4, "type": "error", "message": "negative line"}
		]`
		assert.Empty(t, ParseFindings(raw, "app.py", ranges, discardLogger()))
	})

	t.Run("unknown severity coerces to suggestion", func(t *testing.T) {
		raw := `[{"line": 11, "type": "catastrophic", "message": "hmm"}]`
		findings := ParseFindings(raw, "app.py", ranges, discardLogger())
		require.Len(t, findings, 1)
		assert.Equal(t, core.SeveritySuggestion, findings[0].Severity)
	})

	t.Run("line outside diff demotes to file level", func(t *testing.T) {
		raw := `[{"line": 999, "type": "warning", "message": "out of range"}]`
		findings := ParseFindings(raw, "app.py", ranges, discardLogger())
		require.Len(t, findings, 1)
		assert.Equal(t, 0, findings[0].Line)
		assert.False(t, findings[0].Anchored())
	})
}
