package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/sonova-go/internal/domain"
)

// ProgressPoller waits for a submitted job to reach a terminal state
type ProgressPoller struct {
	fetcher domain.ProgressFetcher
	logger  *zap.Logger
}

// NewProgressPoller creates a new progress poller
func NewProgressPoller(fetcher domain.ProgressFetcher, logger *zap.Logger) *ProgressPoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressPoller{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Await polls job every interval until it completes, fails, or timeout elapses.
// It returns *domain.PollFailedError or *domain.PollTimedOutError on a terminal failure,
// and the context error if ctx ends first.
func (p *ProgressPoller) Await(ctx context.Context, job *domain.Job, interval, timeout time.Duration) (*domain.ResolvedStream, error) {
	deadline := time.Now().Add(timeout)
	pollCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *domain.ProgressSample
	timedOut := func() error {
		return &domain.PollTimedOutError{
			JobID:      job.ID,
			Tier:       job.RequestTier,
			Timeout:    timeout.String(),
			LastSample: last,
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, timedOut()
		case <-ticker.C:
		}

		sample, err := p.fetcher.FetchProgress(pollCtx, job.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, domain.ErrNotConfigured) {
				return nil, err
			}
			if time.Now().After(deadline) {
				return nil, timedOut()
			}
			p.logger.Debug("Progress read failed, retrying",
				zap.String("job_id", job.ID),
				zap.Error(err))
			continue
		}

		last = sample
		p.logger.Debug("Job progress",
			zap.String("job_id", job.ID),
			zap.String("tier", string(job.RequestTier)),
			zap.Int("progress", sample.Progress),
			zap.String("status", sample.StatusText))

		if sample.IsComplete() {
			stream := domain.NewResolvedStream(job.RequestTier, sample.ResolvedURL)
			stream.Title = job.Title
			return stream, nil
		}
		if sample.Failed {
			return nil, &domain.PollFailedError{
				JobID:  job.ID,
				Tier:   job.RequestTier,
				Sample: *sample,
			}
		}
		if time.Now().After(deadline) {
			return nil, timedOut()
		}
	}
}
