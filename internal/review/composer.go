// Package review composes and submits the final pull request review:
// deduplication, deterministic ordering, severity-first truncation, and
// idempotent posting.
package review

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sevigo/boxedbot/internal/core"
)

// Marker returns the hidden HTML comment embedded in every review summary.
// Scanning existing reviews for the current head SHA's marker is the
// idempotency check: at most one review per (repo, PR, head SHA).
func Marker(headSHA string) string {
	return "<!-- boxedbot:review:" + headSHA + " -->"
}

var severityBadges = map[core.Severity]string{
	core.SeverityError:      "🚨",
	core.SeverityWarning:    "⚠️",
	core.SeveritySuggestion: "💡",
}

// Composer turns raw findings into one ReviewSubmission.
type Composer struct {
	logger *slog.Logger
}

// NewComposer creates a Composer.
func NewComposer(logger *slog.Logger) *Composer {
	return &Composer{logger: logger}
}

// Compose deduplicates, orders and truncates findings into a submission.
// Ordering is severity first (error > warning > suggestion), then file
// path, then line, so the final output is independent of the completion
// order of the concurrent analysis calls. Findings beyond the policy's
// max-comments cap are dropped highest-severity-last and reported in the
// summary. Unanchored findings are folded into the summary instead of
// being positioned comments.
func (c *Composer) Compose(findings []core.AnalysisFinding, pol *core.RepoPolicy, headSHA string, skippedFiles int) *core.ReviewSubmission {
	deduped := dedupe(findings)

	sort.SliceStable(deduped, func(i, j int) bool {
		a, b := deduped[i], deduped[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Line < b.Line
	})

	truncated := 0
	if limit := pol.MaxCommentsPerPR; limit > 0 && len(deduped) > limit {
		truncated = len(deduped) - limit
		deduped = deduped[:limit]
	}

	var comments []core.ReviewComment
	var unanchored []core.AnalysisFinding
	for _, f := range deduped {
		if !f.Anchored() {
			unanchored = append(unanchored, f)
			continue
		}
		comments = append(comments, core.ReviewComment{
			Path: f.Path,
			Line: f.Line,
			Body: formatCommentBody(f),
		})
	}

	sub := &core.ReviewSubmission{
		HeadSHA:      headSHA,
		Comments:     comments,
		Truncated:    truncated,
		SkippedFiles: skippedFiles,
	}
	sub.Summary = c.buildSummary(deduped, unanchored, sub)

	if truncated > 0 {
		c.logger.Info("findings truncated to comment cap", "kept", len(deduped), "truncated", truncated)
	}
	return sub
}

// dedupe collapses findings identical in (file, line, normalized message),
// keeping the first occurrence.
func dedupe(findings []core.AnalysisFinding) []core.AnalysisFinding {
	type key struct {
		path    string
		line    int
		message string
	}
	seen := make(map[key]bool, len(findings))
	out := make([]core.AnalysisFinding, 0, len(findings))
	for _, f := range findings {
		k := key{path: f.Path, line: f.Line, message: normalizeMessage(f.Message)}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}

// normalizeMessage lowercases, collapses whitespace and strips trailing
// punctuation so trivially rephrased duplicates still collide.
func normalizeMessage(msg string) string {
	msg = strings.ToLower(strings.TrimSpace(msg))
	msg = strings.Join(strings.Fields(msg), " ")
	return strings.TrimRight(msg, ".!?;:")
}

func formatCommentBody(f core.AnalysisFinding) string {
	var sb strings.Builder

	badge := severityBadges[f.Severity]
	sb.WriteString(fmt.Sprintf("%s **%s**", badge, titleCase(string(f.Severity))))
	if f.Category != "" {
		sb.WriteString(fmt.Sprintf(" *(%s)*", titleCase(f.Category)))
	}
	sb.WriteString("\n\n")
	sb.WriteString(f.Message)

	if f.Suggestion != "" {
		sb.WriteString("\n\n**Suggestion:**\n")
		sb.WriteString(f.Suggestion)
	}
	if f.CodeExample != "" {
		sb.WriteString("\n\n**Example:**\n```\n")
		sb.WriteString(f.CodeExample)
		sb.WriteString("\n```")
	}

	sb.WriteString("\n\n---\n*🤖 Generated by BoxedBot*")
	return sb.String()
}

func (c *Composer) buildSummary(findings, unanchored []core.AnalysisFinding, sub *core.ReviewSubmission) string {
	var sb strings.Builder
	sb.WriteString("🤖 **BoxedBot Review Summary**\n\n")

	if len(findings) == 0 {
		sb.WriteString("✅ No issues found in this PR!\n")
	} else {
		severityCounts := map[core.Severity]int{}
		categoryCounts := map[string]int{}
		for _, f := range findings {
			severityCounts[f.Severity]++
			if f.Category != "" {
				categoryCounts[f.Category]++
			}
		}

		sb.WriteString(fmt.Sprintf("Found %d potential %s:\n\n", len(findings), plural("improvement", len(findings))))
		for _, sev := range []core.Severity{core.SeverityError, core.SeverityWarning, core.SeveritySuggestion} {
			if n := severityCounts[sev]; n > 0 {
				sb.WriteString(fmt.Sprintf("- %s %d %s\n", severityBadges[sev], n, plural(string(sev), n)))
			}
		}

		if len(categoryCounts) > 0 {
			categories := make([]string, 0, len(categoryCounts))
			for cat := range categoryCounts {
				categories = append(categories, cat)
			}
			sort.Strings(categories)

			sb.WriteString("\n**Areas of Focus:**\n")
			for _, cat := range categories {
				n := categoryCounts[cat]
				sb.WriteString(fmt.Sprintf("- %s: %d %s\n", titleCase(cat), n, plural("issue", n)))
			}
		}
	}

	if len(unanchored) > 0 {
		sb.WriteString("\n**File-level notes:**\n")
		for _, f := range unanchored {
			sb.WriteString(fmt.Sprintf("- %s `%s`: %s\n", severityBadges[f.Severity], f.Path, f.Message))
		}
	}

	if sub.Truncated > 0 {
		sb.WriteString(fmt.Sprintf("\n%d additional lower-severity %s omitted to stay within the comment limit.\n",
			sub.Truncated, plural("finding", sub.Truncated)))
	}
	if sub.SkippedFiles > 0 {
		sb.WriteString(fmt.Sprintf("\n%d %s skipped (too large or analysis unavailable).\n",
			sub.SkippedFiles, plural("file", sub.SkippedFiles)))
	}

	sb.WriteString("\n")
	sb.WriteString(Marker(sub.HeadSHA))
	return sb.String()
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
