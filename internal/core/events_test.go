package core

import (
	"testing"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyEvent(t *testing.T) {
	testCases := []struct {
		name      string
		eventType string
		action    string
		expected  EventAction
	}{
		{"pull request opened", "pull_request", "opened", ActionPROpened},
		{"pull request synchronized", "pull_request", "synchronize", ActionPRUpdated},
		{"pull request reopened", "pull_request", "reopened", ActionPRReopened},
		{"pull request closed", "pull_request", "closed", ActionIgnored},
		{"pull request labeled", "pull_request", "labeled", ActionIgnored},
		{"issue comment", "issue_comment", "created", ActionIgnored},
		{"push event", "push", "", ActionIgnored},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyEvent(tc.eventType, tc.action))
		})
	}
}

func validPullRequestEvent() *github.PullRequestEvent {
	return &github.PullRequestEvent{
		Repo: &github.Repository{
			Name:     github.Ptr("hello-world"),
			FullName: github.Ptr("octocat/hello-world"),
			Owner:    &github.User{Login: github.Ptr("octocat")},
		},
		PullRequest: &github.PullRequest{
			Number: github.Ptr(42),
			Title:  github.Ptr("Add feature"),
			Body:   github.Ptr("Description"),
			User:   &github.User{Login: github.Ptr("contributor")},
			Head:   &github.PullRequestBranch{SHA: github.Ptr("abc123")},
			Base:   &github.PullRequestBranch{SHA: github.Ptr("def456")},
			Draft:  github.Ptr(false),
		},
		Installation: &github.Installation{ID: github.Ptr(int64(777))},
	}
}

func TestContextFromPullRequestEvent(t *testing.T) {
	t.Run("valid event", func(t *testing.T) {
		prCtx, err := ContextFromPullRequestEvent(validPullRequestEvent())
		require.NoError(t, err)

		assert.Equal(t, "octocat", prCtx.RepoOwner)
		assert.Equal(t, "hello-world", prCtx.RepoName)
		assert.Equal(t, "octocat/hello-world", prCtx.RepoFullName)
		assert.Equal(t, 42, prCtx.PRNumber)
		assert.Equal(t, "Add feature", prCtx.PRTitle)
		assert.Equal(t, "contributor", prCtx.Author)
		assert.Equal(t, "abc123", prCtx.HeadSHA)
		assert.Equal(t, "def456", prCtx.BaseSHA)
		assert.Equal(t, int64(777), prCtx.InstallationID)
		assert.False(t, prCtx.Draft)
	})

	t.Run("missing repository", func(t *testing.T) {
		event := validPullRequestEvent()
		event.Repo = nil
		_, err := ContextFromPullRequestEvent(event)
		assert.ErrorContains(t, err, "repository")
	})

	t.Run("missing pull request", func(t *testing.T) {
		event := validPullRequestEvent()
		event.PullRequest = nil
		_, err := ContextFromPullRequestEvent(event)
		assert.ErrorContains(t, err, "pull request")
	})

	t.Run("missing head sha", func(t *testing.T) {
		event := validPullRequestEvent()
		event.PullRequest.Head = nil
		_, err := ContextFromPullRequestEvent(event)
		assert.ErrorContains(t, err, "head SHA")
	})

	t.Run("missing installation", func(t *testing.T) {
		event := validPullRequestEvent()
		event.Installation = nil
		_, err := ContextFromPullRequestEvent(event)
		assert.ErrorContains(t, err, "installation")
	})
}
