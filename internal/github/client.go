// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/boxedbot/internal/core"
)

// Client defines the set of host API operations the analysis pipeline needs:
// pull request metadata, per-file diffs, the repository policy document, and
// review creation with an idempotency lookup.
//
//go:generate mockgen -destination=../../mocks/mock_github_client.go -package=mocks . Client
type Client interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]core.FileDiff, error)
	GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error)
	CreateReview(ctx context.Context, owner, repo string, number int, commitID, body string, comments []core.ReviewComment) error
	HasReviewWithMarker(ctx context.Context, owner, repo string, number int, marker string) (bool, error)
}

type gitHubClient struct {
	client *github.Client
	logger *slog.Logger
}

// NewClient wraps the official go-github client to provide a focused,
// testable interface for application-specific GitHub operations.
func NewClient(client *github.Client, logger *slog.Logger) Client {
	return &gitHubClient{client: client, logger: logger}
}

// NewInstallationClient creates a client authenticated with an installation
// token obtained from the broker.
func NewInstallationClient(ctx context.Context, broker *TokenBroker, installationID int64, logger *slog.Logger) (Client, error) {
	token, _, err := broker.InstallationToken(ctx, installationID)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain installation token: %w", err)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return NewClient(github.NewClient(tc), logger), nil
}

// GetPullRequest retrieves a single pull request by its number.
func (g *gitHubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		g.logger.Error("failed to get pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
		return nil, err
	}
	return pr, nil
}

// ListChangedFiles retrieves the files modified in a pull request as
// FileDiffs. It handles pagination to ensure all files are fetched, since
// the GitHub API returns at most 100 files per page. Removed files are
// dropped; duplicate paths keep the last entry.
func (g *gitHubClient) ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]core.FileDiff, error) {
	var diffs []core.FileDiff
	opts := &github.ListOptions{PerPage: 100}

	for {
		files, resp, err := g.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			g.logger.Error("failed to list files for pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}

		for _, file := range files {
			if file.GetStatus() == "removed" {
				continue
			}
			diffs = append(diffs, core.FileDiff{
				Path:      file.GetFilename(),
				Additions: file.GetAdditions(),
				Deletions: file.GetDeletions(),
				Changes:   file.GetChanges(),
				Patch:     file.GetPatch(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return core.DedupFileDiffs(diffs), nil
}

// GetFileContent fetches the decoded content of a repository file at the
// given ref. A missing file surfaces as a 404 for the caller to classify.
func (g *gitHubClient) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}
	fileContent, _, _, err := g.client.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return "", err
	}
	if fileContent == nil {
		return "", fmt.Errorf("%s is not a file", path)
	}
	content, err := fileContent.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode content of %s: %w", path, err)
	}
	return content, nil
}

// CreateReview posts one review bundling the summary and all positioned
// comments in a single API transaction.
func (g *gitHubClient) CreateReview(ctx context.Context, owner, repo string, number int, commitID, body string, comments []core.ReviewComment) error {
	var ghComments []*github.DraftReviewComment
	for _, c := range comments {
		comment := c
		ghComments = append(ghComments, &github.DraftReviewComment{
			Path: &comment.Path,
			Line: &comment.Line,
			Side: github.Ptr("RIGHT"),
			Body: &comment.Body,
		})
	}

	reviewRequest := &github.PullRequestReviewRequest{
		CommitID: &commitID,
		Body:     &body,
		Event:    github.Ptr("COMMENT"),
		Comments: ghComments,
	}

	_, _, err := g.client.PullRequests.CreateReview(ctx, owner, repo, number, reviewRequest)
	if err != nil {
		g.logger.Error("failed to create pull request review", "owner", owner, "repo", repo, "pr", number, "error", err)
	}
	return err
}

// HasReviewWithMarker reports whether any existing review on the pull
// request carries the given marker in its body. The composer embeds a
// head-SHA marker in every summary, which makes this the idempotency check.
func (g *gitHubClient) HasReviewWithMarker(ctx context.Context, owner, repo string, number int, marker string) (bool, error) {
	opts := &github.ListOptions{PerPage: 100}
	for {
		reviews, resp, err := g.client.PullRequests.ListReviews(ctx, owner, repo, number, opts)
		if err != nil {
			g.logger.Error("failed to list reviews", "owner", owner, "repo", repo, "pr", number, "error", err)
			return false, err
		}
		for _, review := range reviews {
			if strings.Contains(review.GetBody(), marker) {
				return true, nil
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return false, nil
}

// IsNotFound reports whether err is a 404 from the host API. Not-found
// conditions are terminal for a job: retrying cannot make a deleted PR
// reappear.
func IsNotFound(err error) bool {
	var ger *github.ErrorResponse
	return errors.As(err, &ger) && ger.Response != nil && ger.Response.StatusCode == http.StatusNotFound
}

// IsAuthError reports whether err is a 401, which signals an expired or
// revoked installation token.
func IsAuthError(err error) bool {
	var ger *github.ErrorResponse
	return errors.As(err, &ger) && ger.Response != nil && ger.Response.StatusCode == http.StatusUnauthorized
}

// IsRetryable classifies host API errors for the retry policy. Rate limits,
// 5xx responses and transport-level failures are transient; any other API
// rejection is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}

	var ger *github.ErrorResponse
	if errors.As(err, &ger) {
		return ger.Response != nil && ger.Response.StatusCode >= http.StatusInternalServerError
	}

	// No structured API error means the request never completed (DNS,
	// connection reset, timeout).
	return true
}
