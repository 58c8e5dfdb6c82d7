package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/boxedbot/internal/core"
	"github.com/sevigo/boxedbot/internal/github"
	"github.com/sevigo/boxedbot/internal/retry"
)

// lateSubmitTimeout bounds the submission of partial results after the
// job's own deadline has already expired.
const lateSubmitTimeout = 30 * time.Second

// Submitter posts composed reviews idempotently.
type Submitter struct {
	policy retry.Policy
	logger *slog.Logger
}

// NewSubmitter creates a Submitter with the shared retry policy bound to
// the host API's transient-error predicate.
func NewSubmitter(logger *slog.Logger) *Submitter {
	policy := retry.DefaultPolicy()
	policy.Retryable = github.IsRetryable
	return &Submitter{policy: policy, logger: logger}
}

// Submit posts one atomic review (summary plus all positioned comments).
// If a review for the submission's head SHA already exists, nothing is
// posted and the outcome is skipped-duplicate. Transient posting failures
// are retried with backoff and jitter; exhausting the retries yields
// failed, with the composed content retained on the submission for
// diagnostics.
//
// Submission still proceeds when the job context has expired, under its
// own short deadline, so findings collected before a job timeout are not
// thrown away.
func (s *Submitter) Submit(ctx context.Context, client github.Client, prCtx *core.PullRequestContext, sub *core.ReviewSubmission) (core.Outcome, error) {
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), lateSubmitTimeout)
		defer cancel()
	}

	exists, err := client.HasReviewWithMarker(ctx, prCtx.RepoOwner, prCtx.RepoName, prCtx.PRNumber, Marker(sub.HeadSHA))
	if err != nil {
		s.logger.Warn("duplicate-review lookup failed, posting anyway", "repo", prCtx.RepoFullName, "pr", prCtx.PRNumber, "error", err)
	} else if exists {
		s.logger.Info("review already posted for head SHA, skipping",
			"repo", prCtx.RepoFullName, "pr", prCtx.PRNumber, "head_sha", sub.HeadSHA)
		return core.OutcomeSkippedDuplicate, nil
	}

	err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
		return client.CreateReview(ctx, prCtx.RepoOwner, prCtx.RepoName, prCtx.PRNumber, sub.HeadSHA, sub.Summary, sub.Comments)
	})
	if err != nil {
		s.logger.Error("review submission failed after retries, content retained",
			"repo", prCtx.RepoFullName,
			"pr", prCtx.PRNumber,
			"head_sha", sub.HeadSHA,
			"comments", len(sub.Comments),
			"error", err,
		)
		return core.OutcomeFailed, fmt.Errorf("failed to submit review: %w", err)
	}

	s.logger.Info("review posted",
		"repo", prCtx.RepoFullName,
		"pr", prCtx.PRNumber,
		"head_sha", sub.HeadSHA,
		"comments", len(sub.Comments),
		"truncated", sub.Truncated,
	)
	return core.OutcomeCompleted, nil
}
