// Package analyzer orchestrates the AI analysis of one pull request:
// policy filtering, model tier selection, and the bounded-concurrency
// fan-out of per-file provider calls.
package analyzer

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/boxedbot/internal/config"
	"github.com/sevigo/boxedbot/internal/core"
	"github.com/sevigo/boxedbot/internal/llm"
	"github.com/sevigo/boxedbot/internal/policy"
)

// Analyzer fans prompts out to the AI provider under a fixed concurrency
// cap and collects validated findings.
type Analyzer struct {
	cfg      *config.Config
	provider llm.Provider
	prompts  *llm.PromptBuilder
	logger   *slog.Logger
}

// New creates an Analyzer.
func New(cfg *config.Config, provider llm.Provider, prompts *llm.PromptBuilder, logger *slog.Logger) *Analyzer {
	return &Analyzer{cfg: cfg, provider: provider, prompts: prompts, logger: logger}
}

// Result aggregates one fan-out: the findings that survived parsing plus
// the per-file failure count, which the composer reports as skips.
type Result struct {
	Findings []core.AnalysisFinding
	Analyzed int
	Failed   int
}

// Filter applies the policy's include/exclude globs and the size-guard
// marks. It returns the files to analyze and the count of files that
// matched the policy but cannot be analyzed (too large, no patch); those
// still show up in the review summary.
func (a *Analyzer) Filter(diffs []core.FileDiff, pol *core.RepoPolicy) (files []core.FileDiff, unanalyzable int) {
	matcher := policy.NewMatcher(pol, a.logger)
	for _, d := range diffs {
		if !matcher.Match(d.Path) {
			a.logger.Debug("file excluded by policy", "file", d.Path)
			continue
		}
		if !d.Analyzable() {
			a.logger.Debug("file matched policy but is not analyzable", "file", d.Path, "changes", d.Changes)
			unanalyzable++
			continue
		}
		files = append(files, d)
	}
	return files, unanalyzable
}

// Analyze runs one provider call per file under the concurrency cap. Each
// file gets its own timeout; a per-file provider or parse failure
// contributes zero findings and never aborts the job. When the
// job context expires mid-flight, results already collected survive.
func (a *Analyzer) Analyze(ctx context.Context, prCtx *core.PullRequestContext, files []core.FileDiff, pol *core.RepoPolicy, totalChanges int) *Result {
	model := llm.SelectModel(a.cfg, totalChanges, pol.ModelOverride)
	a.logger.Info("starting analysis fan-out",
		"repo", prCtx.RepoFullName,
		"pr", prCtx.PRNumber,
		"files", len(files),
		"model", model,
		"total_changes", totalChanges,
	)

	concurrency := a.cfg.AnalysisConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	result := &Result{}
	var mu sync.Mutex

	g := &errgroup.Group{}
	g.SetLimit(concurrency)

	for _, file := range files {
		g.Go(func() error {
			findings, err := a.analyzeFile(ctx, prCtx, file, pol, model)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.logger.Warn("file analysis failed, continuing without it",
					"repo", prCtx.RepoFullName, "file", file.Path, "error", err)
				result.Failed++
				return nil
			}
			result.Analyzed++
			result.Findings = append(result.Findings, findings...)
			return nil
		})
	}

	// Join point: workers never return errors, so Wait only synchronizes.
	_ = g.Wait()

	a.logger.Info("analysis fan-out finished",
		"repo", prCtx.RepoFullName,
		"pr", prCtx.PRNumber,
		"analyzed", result.Analyzed,
		"failed", result.Failed,
		"findings", len(result.Findings),
	)
	return result
}

func (a *Analyzer) analyzeFile(ctx context.Context, prCtx *core.PullRequestContext, file core.FileDiff, pol *core.RepoPolicy, model string) ([]core.AnalysisFinding, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.OpenAITimeout)
	defer cancel()

	prompt, err := a.prompts.Build(file, prCtx, pol)
	if err != nil {
		return nil, err
	}

	raw, err := a.provider.Complete(callCtx, model, prompt)
	if err != nil {
		return nil, err
	}

	ranges := llm.DiffLineRanges(file.Patch)
	return llm.ParseFindings(raw, file.Path, ranges, a.logger), nil
}
