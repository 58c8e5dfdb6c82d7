// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"fmt"

	"github.com/google/go-github/v73/github"
)

// EventAction classifies an inbound webhook delivery into the small set of
// actions the analysis pipeline reacts to.
type EventAction string

const (
	ActionPROpened   EventAction = "pr_opened"
	ActionPRUpdated  EventAction = "pr_updated"
	ActionPRReopened EventAction = "pr_reopened"
	ActionIgnored    EventAction = "ignored"
)

// ClassifyEvent maps a raw (event type, action) pair onto an EventAction.
// Anything outside the accepted set classifies as ActionIgnored, which is a
// no-op for the pipeline rather than an error.
func ClassifyEvent(eventType, action string) EventAction {
	if eventType != "pull_request" {
		return ActionIgnored
	}
	switch action {
	case "opened":
		return ActionPROpened
	case "synchronize":
		return ActionPRUpdated
	case "reopened":
		return ActionPRReopened
	default:
		return ActionIgnored
	}
}

// PullRequestContext is the internal view of one pull request under analysis.
// It is built once per accepted webhook delivery and passed through the
// pipeline unchanged.
type PullRequestContext struct {
	JobID string

	RepoOwner    string
	RepoName     string
	RepoFullName string

	PRNumber int
	PRTitle  string
	PRBody   string
	Author   string
	HeadSHA  string
	BaseSHA  string
	Draft    bool

	InstallationID int64
}

// ContextFromPullRequestEvent transforms a raw GitHub PullRequestEvent into the
// application's internal PullRequestContext. It acts as an anti-corruption
// layer, ensuring the incoming payload carries all data the pipeline needs
// before a job is dispatched.
func ContextFromPullRequestEvent(event *github.PullRequestEvent) (*PullRequestContext, error) {
	repo := event.GetRepo()
	if repo == nil || repo.GetOwner() == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("repository or owner information is missing from the event")
	}

	pr := event.GetPullRequest()
	if pr == nil {
		return nil, fmt.Errorf("pull request payload is missing from the event")
	}
	if pr.GetNumber() <= 0 {
		return nil, fmt.Errorf("invalid pull request number: %d", pr.GetNumber())
	}
	if pr.GetHead().GetSHA() == "" {
		return nil, fmt.Errorf("pull request %d has no head SHA", pr.GetNumber())
	}

	if event.GetInstallation() == nil || event.GetInstallation().GetID() == 0 {
		return nil, fmt.Errorf("installation ID is missing from the event")
	}

	return &PullRequestContext{
		RepoOwner:      repo.GetOwner().GetLogin(),
		RepoName:       repo.GetName(),
		RepoFullName:   repo.GetFullName(),
		PRNumber:       pr.GetNumber(),
		PRTitle:        pr.GetTitle(),
		PRBody:         pr.GetBody(),
		Author:         pr.GetUser().GetLogin(),
		HeadSHA:        pr.GetHead().GetSHA(),
		BaseSHA:        pr.GetBase().GetSHA(),
		Draft:          pr.GetDraft(),
		InstallationID: event.GetInstallation().GetID(),
	}, nil
}
