package llm

import (
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/sevigo/boxedbot/internal/core"
)

//go:embed prompts/*.prompt
var promptFiles embed.FS

// focusAreaDescriptions expands focus areas into reviewer instructions.
var focusAreaDescriptions = map[string]string{
	"security":        "Look for security vulnerabilities, authentication issues, input validation problems, and potential exploits",
	"performance":     "Identify performance bottlenecks, inefficient algorithms, memory leaks, and scalability issues",
	"maintainability": "Check code organization, readability, complexity, and long-term maintainability",
	"style":           "Review code formatting, naming conventions, and adherence to best practices",
	"testing":         "Evaluate test coverage, test quality, and missing test cases",
}

// levelInstructions maps the review level onto the strictness brief.
var levelInstructions = map[core.ReviewLevel]string{
	core.ReviewLevelMinimal:  "Only flag critical security issues, bugs, and major architectural problems. Skip minor style issues.",
	core.ReviewLevelStandard: "Provide balanced feedback on security, performance, and maintainability. Include important style issues.",
	core.ReviewLevelStrict:   "Comprehensive review including all issues, style problems, and potential improvements. Be thorough.",
}

type promptData struct {
	Filename          string
	FileType          string
	PRTitle           string
	Additions         int
	Deletions         int
	Patch             string
	LevelInstructions string
	FocusAreasText    string
	Categories        string
}

// PromptBuilder renders the per-file analysis prompt from the embedded
// template.
type PromptBuilder struct {
	tmpl *template.Template
}

// NewPromptBuilder parses the embedded prompt template.
func NewPromptBuilder() (*PromptBuilder, error) {
	content, err := promptFiles.ReadFile("prompts/code_review.prompt")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded prompt file: %w", err)
	}
	tmpl, err := template.New("code_review").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return &PromptBuilder{tmpl: tmpl}, nil
}

// Build renders one prompt from a file's diff, the review level and the
// policy's focus areas.
func (b *PromptBuilder) Build(diff core.FileDiff, prCtx *core.PullRequestContext, policy *core.RepoPolicy) (string, error) {
	instructions, ok := levelInstructions[policy.ReviewLevel]
	if !ok {
		instructions = levelInstructions[core.ReviewLevelStandard]
	}

	data := promptData{
		Filename:          diff.Path,
		FileType:          strings.TrimPrefix(filepath.Ext(diff.Path), "."),
		PRTitle:           prCtx.PRTitle,
		Additions:         diff.Additions,
		Deletions:         diff.Deletions,
		Patch:             diff.Patch,
		LevelInstructions: instructions,
		FocusAreasText:    buildFocusAreasText(policy.FocusAreas),
		Categories:        strings.Join(policy.FocusAreas, ", "),
	}

	var sb strings.Builder
	if err := b.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render prompt for %s: %w", diff.Path, err)
	}
	return sb.String(), nil
}

func buildFocusAreasText(areas []string) string {
	lines := make([]string, 0, len(areas))
	for _, area := range areas {
		desc, ok := focusAreaDescriptions[area]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("- **%s**: %s", titleCase(area), desc))
	}
	return strings.Join(lines, "\n")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
