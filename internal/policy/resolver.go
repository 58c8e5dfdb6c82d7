// Package policy resolves the effective per-repository review policy from
// the repository's policy document. Resolution never fails: missing files,
// parse errors and invalid field values fall back to the compiled-in
// default for that field only.
package policy

import (
	"context"
	"errors"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/boxedbot/internal/core"
	"github.com/sevigo/boxedbot/internal/github"
)

// FileName is the policy document looked up in each repository root.
const FileName = ".boxedbot.yml"

const (
	minCommentsPerPR = 1
	maxCommentsPerPR = 50
)

// document is the raw YAML shape of the policy file. Pointer fields
// distinguish an absent key from an explicit false.
type document struct {
	Enabled          *bool    `yaml:"enabled"`
	Include          []string `yaml:"include"`
	Exclude          []string `yaml:"exclude"`
	ReviewLevel      string   `yaml:"review_level"`
	FocusAreas       []string `yaml:"focus_areas"`
	MaxCommentsPerPR int      `yaml:"max_comments_per_pr"`
	SkipDraftPRs     *bool    `yaml:"skip_draft_prs"`
	ModelOverride    string   `yaml:"model_override"`
}

// Resolver produces the effective RepoPolicy for a pull request.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a policy resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve reads the policy document at the PR's head SHA and folds it over
// the defaults. It is pure with respect to (repo, head SHA, file content)
// and never returns an error: any failure recovers to defaults.
func (r *Resolver) Resolve(ctx context.Context, client github.Client, prCtx *core.PullRequestContext) *core.RepoPolicy {
	content, err := client.GetFileContent(ctx, prCtx.RepoOwner, prCtx.RepoName, FileName, prCtx.HeadSHA)
	if err != nil {
		if github.IsNotFound(err) {
			r.logger.Debug("no policy file in repository, using defaults", "repo", prCtx.RepoFullName)
		} else {
			r.logger.Warn("failed to fetch policy file, using defaults", "repo", prCtx.RepoFullName, "error", err)
		}
		return core.DefaultRepoPolicy()
	}

	return r.Parse([]byte(content), prCtx.RepoFullName)
}

// Parse builds a RepoPolicy from raw document bytes. A yaml.TypeError still
// fills the fields that did decode, so partial validity is preserved rather
// than discarding the whole document.
func (r *Resolver) Parse(data []byte, repo string) *core.RepoPolicy {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		var typeErr *yaml.TypeError
		if !errors.As(err, &typeErr) {
			r.logger.Warn("policy file is not valid yaml, using defaults", "repo", repo, "error", err)
			return core.DefaultRepoPolicy()
		}
		r.logger.Warn("policy file has mistyped fields, keeping valid ones", "repo", repo, "error", err)
	}

	policy := core.DefaultRepoPolicy()

	if doc.Enabled != nil {
		policy.Enabled = *doc.Enabled
	}
	if doc.SkipDraftPRs != nil {
		policy.SkipDraftPRs = *doc.SkipDraftPRs
	}
	if len(doc.Include) > 0 {
		policy.Include = doc.Include
	}
	if len(doc.Exclude) > 0 {
		policy.Exclude = doc.Exclude
	}

	if doc.ReviewLevel != "" {
		level := core.ReviewLevel(doc.ReviewLevel)
		if level.Valid() {
			policy.ReviewLevel = level
		} else {
			r.logger.Warn("invalid review_level in policy, using default", "repo", repo, "value", doc.ReviewLevel)
		}
	}

	if doc.MaxCommentsPerPR != 0 {
		if doc.MaxCommentsPerPR >= minCommentsPerPR && doc.MaxCommentsPerPR <= maxCommentsPerPR {
			policy.MaxCommentsPerPR = doc.MaxCommentsPerPR
		} else {
			r.logger.Warn("max_comments_per_pr out of range, using default", "repo", repo, "value", doc.MaxCommentsPerPR)
		}
	}

	if len(doc.FocusAreas) > 0 {
		areas := make([]string, 0, len(doc.FocusAreas))
		for _, area := range doc.FocusAreas {
			if core.ValidFocusAreas[area] {
				areas = append(areas, area)
			} else {
				r.logger.Warn("unknown focus area dropped", "repo", repo, "area", area)
			}
		}
		// An all-invalid list falls back rather than silencing every area.
		if len(areas) > 0 {
			policy.FocusAreas = areas
		}
	}

	policy.ModelOverride = doc.ModelOverride

	return policy
}
