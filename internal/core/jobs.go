package core

import (
	"context"
)

// JobDispatcher defines the contract for a system that can accept and queue
// background jobs for asynchronous processing. This interface decouples the
// event source (the webhook handler) from the job execution mechanism.
type JobDispatcher interface {
	// Dispatch accepts a PullRequestContext and queues it for processing.
	// It returns an error if the job cannot be queued, for example, if the
	// queue is full, providing a mechanism for backpressure.
	Dispatch(ctx context.Context, prCtx *PullRequestContext) error

	// Stop gracefully shuts down the dispatcher, draining queued jobs and
	// waiting for in-flight workers to finish.
	Stop()
}

// Job represents a single, executable unit of work that can be processed by
// the application's job dispatcher. Each job analyzes one pull request and
// terminates in one of the defined Outcome tags.
type Job interface {
	// Run executes the job's logic. The returned Outcome is always set,
	// even when err is non-nil.
	Run(ctx context.Context, prCtx *PullRequestContext) (Outcome, error)
}
