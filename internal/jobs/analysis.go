package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/boxedbot/internal/analyzer"
	"github.com/sevigo/boxedbot/internal/config"
	"github.com/sevigo/boxedbot/internal/core"
	"github.com/sevigo/boxedbot/internal/github"
	"github.com/sevigo/boxedbot/internal/policy"
	"github.com/sevigo/boxedbot/internal/retry"
	"github.com/sevigo/boxedbot/internal/review"
)

// clientFactory builds an installation-scoped API client. Indirection here
// lets tests substitute a mock client without a real token exchange.
type clientFactory func(ctx context.Context, installationID int64) (github.Client, error)

// AnalysisJob runs the full review pipeline for one pull request: fetch
// metadata and diffs, resolve the repository policy, fan analysis out over
// the changed files, and submit the composed review.
type AnalysisJob struct {
	cfg       *config.Config
	broker    *github.TokenBroker
	resolver  *policy.Resolver
	analyzer  *analyzer.Analyzer
	composer  *review.Composer
	submitter *review.Submitter
	clients   clientFactory
	fetchPol  retry.Policy
	logger    *slog.Logger
}

// NewAnalysisJob wires the pipeline stages into a runnable job.
func NewAnalysisJob(
	cfg *config.Config,
	broker *github.TokenBroker,
	resolver *policy.Resolver,
	anlz *analyzer.Analyzer,
	composer *review.Composer,
	submitter *review.Submitter,
	logger *slog.Logger,
) *AnalysisJob {
	fetchPol := retry.DefaultPolicy()
	fetchPol.Retryable = github.IsRetryable

	return &AnalysisJob{
		cfg:       cfg,
		broker:    broker,
		resolver:  resolver,
		analyzer:  anlz,
		composer:  composer,
		submitter: submitter,
		clients: func(ctx context.Context, installationID int64) (github.Client, error) {
			return github.NewInstallationClient(ctx, broker, installationID, logger)
		},
		fetchPol: fetchPol,
		logger:   logger,
	}
}

// Run executes the analysis pipeline for a single pull request. The whole
// job runs under one deadline; partial results that exist when the deadline
// fires are still submitted.
func (j *AnalysisJob) Run(ctx context.Context, prCtx *core.PullRequestContext) (core.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, j.cfg.JobTimeout)
	defer cancel()

	log := j.logger.With("job_id", prCtx.JobID, "repo", prCtx.RepoFullName, "pr", prCtx.PRNumber)

	client, err := j.clients(ctx, prCtx.InstallationID)
	if err != nil {
		return core.OutcomeFailed, fmt.Errorf("failed to create installation client: %w", err)
	}

	err = j.withReauth(ctx, prCtx, &client, func(c github.Client) error {
		return j.refreshPullRequest(ctx, c, prCtx)
	})
	if err != nil {
		return core.OutcomeFailed, fmt.Errorf("failed to fetch pull request %s#%d: %w", prCtx.RepoFullName, prCtx.PRNumber, err)
	}

	pol := j.resolver.Resolve(ctx, client, prCtx)
	if !pol.Enabled {
		log.Info("analysis disabled by repository policy")
		return core.OutcomeSkippedNoMatch, nil
	}
	if pol.SkipDraftPRs && prCtx.Draft {
		log.Info("skipping draft pull request")
		return core.OutcomeSkippedNoMatch, nil
	}

	var diffs []core.FileDiff
	err = j.withReauth(ctx, prCtx, &client, func(c github.Client) error {
		var ferr error
		diffs, ferr = j.fetchChangedFiles(ctx, c, prCtx)
		return ferr
	})
	if err != nil {
		return core.OutcomeFailed, fmt.Errorf("failed to list changed files for %s#%d: %w", prCtx.RepoFullName, prCtx.PRNumber, err)
	}

	totalChanges := core.TotalChanges(diffs)
	files, unanalyzable := j.analyzer.Filter(diffs, pol)
	if len(files) == 0 {
		log.Info("no files matched the repository policy", "changed_files", len(diffs), "unanalyzable", unanalyzable)
		return core.OutcomeSkippedNoMatch, nil
	}

	result := j.analyzer.Analyze(ctx, prCtx, files, pol, totalChanges)
	skippedFiles := unanalyzable + result.Failed

	if len(result.Findings) == 0 {
		if ctx.Err() != nil && result.Analyzed == 0 {
			log.Warn("job deadline expired before any file finished analysis")
			return core.OutcomeSkippedTimeout, nil
		}
		log.Info("analysis produced no findings, nothing to post",
			"analyzed", result.Analyzed, "failed", result.Failed)
		if skippedFiles > 0 {
			return core.OutcomeCompletedWithSkips, nil
		}
		return core.OutcomeCompleted, nil
	}

	sub := j.composer.Compose(result.Findings, pol, prCtx.HeadSHA, skippedFiles)
	var outcome core.Outcome
	err = j.withReauth(ctx, prCtx, &client, func(c github.Client) error {
		var serr error
		outcome, serr = j.submitter.Submit(ctx, c, prCtx, sub)
		return serr
	})
	if err != nil {
		return outcome, err
	}
	if outcome == core.OutcomeCompleted && skippedFiles > 0 {
		outcome = core.OutcomeCompletedWithSkips
	}
	return outcome, nil
}

// withReauth runs one host API step and, when it fails with a 401, drops the
// cached installation token, rebuilds the client with a fresh exchange and
// retries the step once. The client pointer is updated in place so later
// steps keep using the fresh client.
func (j *AnalysisJob) withReauth(ctx context.Context, prCtx *core.PullRequestContext, client *github.Client, fn func(github.Client) error) error {
	err := fn(*client)
	if err == nil || !github.IsAuthError(err) {
		return err
	}

	j.broker.Invalidate(prCtx.InstallationID)
	fresh, cerr := j.clients(ctx, prCtx.InstallationID)
	if cerr != nil {
		return fmt.Errorf("failed to re-authenticate installation: %w", cerr)
	}
	*client = fresh
	return fn(*client)
}

// refreshPullRequest re-reads the pull request so the job operates on the
// current head, not the possibly stale delivery payload.
func (j *AnalysisJob) refreshPullRequest(ctx context.Context, client github.Client, prCtx *core.PullRequestContext) error {
	return retry.Do(ctx, j.fetchPol, func(ctx context.Context) error {
		pr, err := client.GetPullRequest(ctx, prCtx.RepoOwner, prCtx.RepoName, prCtx.PRNumber)
		if err != nil {
			return err
		}
		if sha := pr.GetHead().GetSHA(); sha != "" {
			prCtx.HeadSHA = sha
		}
		if sha := pr.GetBase().GetSHA(); sha != "" {
			prCtx.BaseSHA = sha
		}
		prCtx.PRTitle = pr.GetTitle()
		prCtx.PRBody = pr.GetBody()
		prCtx.Draft = pr.GetDraft()
		return nil
	})
}

// fetchChangedFiles lists the pull request's file diffs and flags files whose
// change count exceeds the analyzable ceiling.
func (j *AnalysisJob) fetchChangedFiles(ctx context.Context, client github.Client, prCtx *core.PullRequestContext) ([]core.FileDiff, error) {
	var diffs []core.FileDiff
	err := retry.Do(ctx, j.fetchPol, func(ctx context.Context) error {
		var err error
		diffs, err = client.ListChangedFiles(ctx, prCtx.RepoOwner, prCtx.RepoName, prCtx.PRNumber)
		return err
	})
	if err != nil {
		return nil, err
	}

	for i := range diffs {
		if diffs[i].Changes > j.cfg.MaxFileChanges {
			diffs[i].SkipTooLarge = true
			j.logger.Debug("file exceeds change ceiling, excluded from analysis",
				"job_id", prCtx.JobID, "path", diffs[i].Path, "changes", diffs[i].Changes)
		}
	}
	return diffs, nil
}
