package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yourusername/sonova-go/internal/domain"
	"github.com/yourusername/sonova-go/internal/infrastructure"
)

// JobAwaiter waits for a submitted job to finish
type JobAwaiter interface {
	Await(ctx context.Context, job *domain.Job, interval, timeout time.Duration) (*domain.ResolvedStream, error)
}

// Resolver turns a canonical media URL and a requested tier into a resolved stream,
// degrading through the quality cascade when a tier cannot be produced
type Resolver struct {
	submitter domain.JobSubmitter
	poller    JobAwaiter
	catalog   domain.QualityCatalog
	config    *domain.ResolverConfig
	metrics   *infrastructure.Metrics
	logger    *zap.Logger
	inFlight  singleflight.Group
}

// NewResolver creates a new resolver
func NewResolver(
	submitter domain.JobSubmitter,
	poller JobAwaiter,
	catalog domain.QualityCatalog,
	config *domain.ResolverConfig,
	metrics *infrastructure.Metrics,
	logger *zap.Logger,
) *Resolver {
	if catalog == nil {
		catalog = domain.DefaultQualityCatalog()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		submitter: submitter,
		poller:    poller,
		catalog:   catalog,
		config:    config,
		metrics:   metrics,
		logger:    logger,
	}
}

// Resolve resolves canonicalURL at tier, trying lower tiers in cascade order when
// opts.FallbackEnabled is set. It returns *domain.ResolutionExhaustedError when every
// candidate failed.
func (r *Resolver) Resolve(ctx context.Context, canonicalURL string, tier domain.QualityTier, opts domain.ResolveOptions) (*domain.ResolvedStream, error) {
	if !tier.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTier, tier)
	}
	if strings.TrimSpace(canonicalURL) == "" {
		return nil, fmt.Errorf("%w: empty url", domain.ErrInvalidMediaURL)
	}

	if !r.config.DeduplicateInFly {
		return r.resolve(ctx, canonicalURL, tier, opts)
	}

	// Identical concurrent requests share one run. The run outlives any single caller,
	// so it is detached from the caller's cancellation and bounded by the poll timeouts.
	key := flightKey(canonicalURL, tier, opts)
	ch := r.inFlight.DoChan(key, func() (interface{}, error) {
		return r.resolve(context.WithoutCancel(ctx), canonicalURL, tier, opts)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			r.logger.Debug("Joined in-flight resolution", zap.String("key", key))
		}
		stream := *res.Val.(*domain.ResolvedStream)
		return &stream, nil
	}
}

// Candidates returns the tiers Resolve would try, in order
func (r *Resolver) Candidates(tier domain.QualityTier, fallbackEnabled bool) []domain.QualityTier {
	candidates := []domain.QualityTier{tier}
	if fallbackEnabled {
		candidates = append(candidates, r.catalog.Cascade(tier)...)
	}
	return candidates
}

func (r *Resolver) resolve(ctx context.Context, canonicalURL string, requested domain.QualityTier, opts domain.ResolveOptions) (*domain.ResolvedStream, error) {
	resolutionID := uuid.New().String()
	candidates := r.Candidates(requested, opts.FallbackEnabled)
	log := r.logger.With(
		zap.String("resolution_id", resolutionID),
		zap.String("url", canonicalURL),
		zap.String("requested", requested.Label()),
		zap.Bool("fallback", opts.FallbackEnabled))

	log.Info("Resolving media", zap.Int("candidates", len(candidates)))

	attempts := make([]domain.AttemptOutcome, 0, len(candidates))
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			r.metrics.ObserveResolution(infrastructure.OutcomeCancelled, false)
			return nil, err
		}

		attemptLog := log.With(zap.String("tier", candidate.Label()), zap.Int("attempt", i+1))
		req := domain.NewExtractionRequest(canonicalURL, candidate, opts)

		job, err := r.submitter.Submit(ctx, req)
		if err != nil {
			if abort := r.abortError(ctx, err); abort != nil {
				return nil, abort
			}
			r.metrics.ObserveAttempt(candidate, infrastructure.OutcomeRejected)
			attemptLog.Warn("Submission rejected", zap.Error(err))
			attempts = append(attempts, domain.AttemptOutcome{Tier: candidate, Message: err.Error()})
			continue
		}

		attemptLog.Info("Job submitted", zap.String("job_id", job.ID))

		stream, err := r.poller.Await(ctx, job, r.config.PollInterval, r.config.PollTimeout)
		if err == nil {
			r.metrics.ObserveAttempt(candidate, infrastructure.OutcomeSuccess)
			r.metrics.ObserveResolution(infrastructure.OutcomeSuccess, candidate != requested)
			attemptLog.Info("Media resolved",
				zap.String("job_id", job.ID),
				zap.Duration("elapsed", time.Since(job.SubmittedAt)))
			return stream, nil
		}

		if abort := r.abortError(ctx, err); abort != nil {
			return nil, abort
		}

		outcome := infrastructure.OutcomeFailed
		if errors.Is(err, domain.ErrPollTimedOut) {
			outcome = infrastructure.OutcomeTimedOut
		}
		r.metrics.ObserveAttempt(candidate, outcome)
		attemptLog.Warn("Job did not complete",
			zap.String("job_id", job.ID),
			zap.String("outcome", outcome),
			zap.Error(err))
		attempts = append(attempts, domain.AttemptOutcome{Tier: candidate, Message: err.Error()})
	}

	exhausted := &domain.ResolutionExhaustedError{
		Requested: requested,
		Attempts:  attempts,
	}
	if len(attempts) > 0 {
		exhausted.LastMessage = attempts[len(attempts)-1].Message
	}

	r.metrics.ObserveResolution(infrastructure.OutcomeExhausted, false)
	log.Warn("All candidate tiers failed", zap.Strings("tried", exhausted.AttemptedTiers()))
	return nil, exhausted
}

// abortError returns the error that must end the cascade instead of advancing it, or nil
func (r *Resolver) abortError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		r.metrics.ObserveResolution(infrastructure.OutcomeCancelled, false)
		return ctxErr
	}
	if errors.Is(err, domain.ErrNotConfigured) {
		r.metrics.ObserveResolution(infrastructure.OutcomeError, false)
		return err
	}
	return nil
}

func flightKey(canonicalURL string, tier domain.QualityTier, opts domain.ResolveOptions) string {
	clip := func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%g", *v)
	}
	return fmt.Sprintf("%s|%s|%d|%s|%s|%t",
		canonicalURL, tier, opts.AudioBitrate, clip(opts.ClipStart), clip(opts.ClipEnd), opts.FallbackEnabled)
}
