package domain

import "context"

// JobSubmitter starts extraction jobs on the external worker
type JobSubmitter interface {
	// Submit starts a job for the request's tier.
	// A refusal is returned as *SubmissionRejectedError; ErrNotConfigured means no worker is set up.
	Submit(ctx context.Context, req ExtractionRequest) (*Job, error)
}

// ProgressFetcher reads the current state of a job
type ProgressFetcher interface {
	// FetchProgress returns one normalized sample for the job.
	// An error is a transient read failure; explicit job failure is reported via ProgressSample.Failed.
	FetchProgress(ctx context.Context, jobID string) (*ProgressSample, error)
}

// ExtractionWorker is the full client surface of the worker
type ExtractionWorker interface {
	JobSubmitter
	ProgressFetcher

	// Configured reports whether the worker endpoint is set up
	Configured() bool
}
