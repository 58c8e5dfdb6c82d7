// Package jobs defines background tasks: the worker-pool dispatcher and
// the pull request analysis job.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sevigo/boxedbot/internal/config"
	"github.com/sevigo/boxedbot/internal/core"
)

// dispatcher implements core.JobDispatcher and manages a pool of worker
// goroutines that process accepted webhook deliveries as analysis jobs.
type dispatcher struct {
	job        core.Job
	jobQueue   chan *core.PullRequestContext
	maxWorkers int
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewDispatcher initializes a dispatcher with a worker pool sized by
// cfg.MaxWorkers. A zero or negative setting falls back to one worker.
func NewDispatcher(job core.Job, cfg *config.Config, logger *slog.Logger) core.JobDispatcher {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	d := &dispatcher{
		job:        job,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan *core.PullRequestContext, 100),
		logger:     logger,
	}
	d.startWorkers()
	return d
}

// startWorkers launches maxWorkers goroutines to process jobs from the queue.
func (d *dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

// startWorker processes jobs from the queue until it's closed.
func (d *dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Info("starting analysis worker", "id", workerID)

	for prCtx := range d.jobQueue {
		d.processJob(workerID, prCtx)
	}

	d.logger.Info("shutting down analysis worker", "id", workerID)
}

// processJob runs one analysis job. Jobs are detached from the inbound
// request: the webhook sender already received its acknowledgement, so
// errors here are recorded for operators only.
func (d *dispatcher) processJob(workerID int, prCtx *core.PullRequestContext) {
	d.logger.Info("worker processing job",
		"worker_id", workerID,
		"job_id", prCtx.JobID,
		"repo", prCtx.RepoFullName,
		"pr", prCtx.PRNumber,
	)

	outcome, err := d.job.Run(context.Background(), prCtx)
	if err != nil {
		d.logger.Error("analysis job failed",
			"job_id", prCtx.JobID,
			"repo", prCtx.RepoFullName,
			"pr", prCtx.PRNumber,
			"outcome", outcome,
			"error", err,
		)
		return
	}
	d.logger.Info("analysis job finished",
		"job_id", prCtx.JobID,
		"repo", prCtx.RepoFullName,
		"pr", prCtx.PRNumber,
		"outcome", outcome,
	)
}

// Dispatch queues a pull request context for processing by a worker.
func (d *dispatcher) Dispatch(_ context.Context, prCtx *core.PullRequestContext) error {
	d.logger.Info("queuing analysis job", "job_id", prCtx.JobID, "repo", prCtx.RepoFullName, "pr", prCtx.PRNumber)

	select {
	case d.jobQueue <- prCtx:
		return nil
	default:
		return fmt.Errorf("job queue is full, cannot accept new analysis job")
	}
}

// Stop gracefully shuts down the dispatcher, waiting for all workers to finish.
func (d *dispatcher) Stop() {
	d.logger.Info("stopping dispatcher and waiting for jobs to finish")
	close(d.jobQueue)
	d.wg.Wait()
	d.logger.Info("all analysis jobs have finished")
}
