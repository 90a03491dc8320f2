package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sonova-go/internal/domain"
	"github.com/yourusername/sonova-go/internal/infrastructure"
)

const testCanonical = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

// fakeSubmitter accepts only the tiers in accept and records every submission
type fakeSubmitter struct {
	mu        sync.Mutex
	accept    map[domain.QualityTier]bool
	err       error
	submitted []domain.ExtractionRequest
}

func (f *fakeSubmitter) Submit(ctx context.Context, req domain.ExtractionRequest) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)

	if f.err != nil {
		return nil, f.err
	}
	if !f.accept[req.RequestedQuality] {
		return nil, &domain.SubmissionRejectedError{Tier: req.RequestedQuality, Reason: "format not offered"}
	}
	return &domain.Job{ID: "job-" + string(req.RequestedQuality), SubmittedAt: time.Now(), RequestTier: req.RequestedQuality}, nil
}

func (f *fakeSubmitter) Tiers() []domain.QualityTier {
	f.mu.Lock()
	defer f.mu.Unlock()
	tiers := make([]domain.QualityTier, 0, len(f.submitted))
	for _, r := range f.submitted {
		tiers = append(tiers, r.RequestedQuality)
	}
	return tiers
}

// fakeAwaiter resolves every job unless its tier is listed in fail
type fakeAwaiter struct {
	fail  map[domain.QualityTier]error
	delay time.Duration
	calls atomic.Int32
}

func (a *fakeAwaiter) Await(ctx context.Context, job *domain.Job, interval, timeout time.Duration) (*domain.ResolvedStream, error) {
	a.calls.Add(1)
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := a.fail[job.RequestTier]; ok {
		return nil, err
	}
	return domain.NewResolvedStream(job.RequestTier, "https://video.cdn.example/"+job.ID), nil
}

func testResolverConfig() *domain.ResolverConfig {
	return &domain.ResolverConfig{
		PollInterval:     time.Millisecond,
		PollTimeout:      10 * time.Millisecond,
		DeduplicateInFly: false,
	}
}

func TestResolve_AllRejectedTriesEveryCandidateInOrder(t *testing.T) {
	submitter := &fakeSubmitter{}
	resolver := NewResolver(submitter, &fakeAwaiter{}, nil, testResolverConfig(), nil, nil)

	_, err := resolver.Resolve(context.Background(), testCanonical, domain.Quality1080, domain.DefaultResolveOptions())

	var exhausted *domain.ResolutionExhaustedError
	require.True(t, errors.As(err, &exhausted))
	want := resolver.Candidates(domain.Quality1080, true)
	assert.Equal(t, want, submitter.Tiers())
	assert.Equal(t, []domain.QualityTier{
		domain.Quality1080, domain.Quality720, domain.Quality480, domain.Quality360, domain.Quality240, domain.Quality144,
	}, want)
	assert.Equal(t, domain.Quality1080, exhausted.Requested)
	assert.Len(t, exhausted.Attempts, len(want))
	assert.Contains(t, exhausted.LastMessage, "144p")
}

func TestResolve_StopsAtFirstSuccess(t *testing.T) {
	submitter := &fakeSubmitter{accept: map[domain.QualityTier]bool{
		domain.Quality480: true,
		domain.Quality360: true,
	}}
	resolver := NewResolver(submitter, &fakeAwaiter{}, nil, testResolverConfig(), nil, nil)

	stream, err := resolver.Resolve(context.Background(), testCanonical, domain.Quality1080, domain.DefaultResolveOptions())

	require.NoError(t, err)
	assert.Equal(t, "480p", stream.Quality)
	assert.Equal(t, domain.Quality480, stream.Tier)
	assert.Equal(t, []domain.QualityTier{domain.Quality1080, domain.Quality720, domain.Quality480}, submitter.Tiers())
}

func TestResolve_FallbackDisabledMakesOneAttempt(t *testing.T) {
	submitter := &fakeSubmitter{accept: map[domain.QualityTier]bool{domain.Quality480: true}}
	resolver := NewResolver(submitter, &fakeAwaiter{}, nil, testResolverConfig(), nil, nil)

	opts := domain.DefaultResolveOptions()
	opts.FallbackEnabled = false
	_, err := resolver.Resolve(context.Background(), testCanonical, domain.Quality720, opts)

	assert.ErrorIs(t, err, domain.ErrResolutionExhausted)
	assert.Equal(t, []domain.QualityTier{domain.Quality720}, submitter.Tiers())
}

func TestResolve_AudioMakesOneSubmission(t *testing.T) {
	submitter := &fakeSubmitter{}
	resolver := NewResolver(submitter, &fakeAwaiter{}, nil, testResolverConfig(), nil, nil)

	opts := domain.DefaultResolveOptions()
	opts.AudioBitrate = 192
	_, err := resolver.Resolve(context.Background(), testCanonical, domain.QualityMP3, opts)

	assert.ErrorIs(t, err, domain.ErrResolutionExhausted)
	require.Len(t, submitter.submitted, 1)
	assert.Equal(t, 192, submitter.submitted[0].AudioBitrate)
}

func TestResolve_PollFailureAdvancesCascade(t *testing.T) {
	submitter := &fakeSubmitter{accept: map[domain.QualityTier]bool{
		domain.Quality720: true,
		domain.Quality480: true,
	}}
	awaiter := &fakeAwaiter{fail: map[domain.QualityTier]error{
		domain.Quality720: &domain.PollTimedOutError{JobID: "job-720", Tier: domain.Quality720, Timeout: "10ms"},
	}}
	reg := prometheus.NewRegistry()
	metrics := infrastructure.NewMetrics(reg)
	resolver := NewResolver(submitter, awaiter, nil, testResolverConfig(), metrics, nil)

	stream, err := resolver.Resolve(context.Background(), testCanonical, domain.Quality720, domain.DefaultResolveOptions())

	require.NoError(t, err)
	assert.Equal(t, domain.Quality480, stream.Tier)
	expected := `
# HELP sonova_resolution_degraded_total Resolutions that succeeded at a lower tier than requested.
# TYPE sonova_resolution_degraded_total counter
sonova_resolution_degraded_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "sonova_resolution_degraded_total"))
}

func TestResolve_ClipOptionsReachEverySubmission(t *testing.T) {
	submitter := &fakeSubmitter{accept: map[domain.QualityTier]bool{domain.Quality360: true}}
	resolver := NewResolver(submitter, &fakeAwaiter{}, nil, testResolverConfig(), nil, nil)

	start, end := 10.0, 25.5
	opts := domain.DefaultResolveOptions()
	opts.ClipStart = &start
	opts.ClipEnd = &end
	_, err := resolver.Resolve(context.Background(), testCanonical, domain.Quality720, opts)

	require.NoError(t, err)
	for _, req := range submitter.submitted {
		require.NotNil(t, req.ClipStart)
		assert.Equal(t, 10.0, *req.ClipStart)
		assert.Equal(t, 25.5, *req.ClipEnd)
		assert.Equal(t, testCanonical, req.CanonicalURL)
	}
}

func TestResolve_NotConfiguredAborts(t *testing.T) {
	submitter := &fakeSubmitter{err: fmt.Errorf("%w: no worker", domain.ErrNotConfigured)}
	resolver := NewResolver(submitter, &fakeAwaiter{}, nil, testResolverConfig(), nil, nil)

	_, err := resolver.Resolve(context.Background(), testCanonical, domain.Quality720, domain.DefaultResolveOptions())

	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.Len(t, submitter.submitted, 1)
}

func TestResolve_InvalidInput(t *testing.T) {
	resolver := NewResolver(&fakeSubmitter{}, &fakeAwaiter{}, nil, testResolverConfig(), nil, nil)

	_, err := resolver.Resolve(context.Background(), testCanonical, domain.QualityTier("999"), domain.DefaultResolveOptions())
	assert.ErrorIs(t, err, domain.ErrInvalidTier)

	_, err = resolver.Resolve(context.Background(), " ", domain.Quality720, domain.DefaultResolveOptions())
	assert.ErrorIs(t, err, domain.ErrInvalidMediaURL)
}

func TestResolve_CancelledContextStopsCascade(t *testing.T) {
	submitter := &fakeSubmitter{accept: map[domain.QualityTier]bool{domain.Quality720: true}}
	awaiter := &fakeAwaiter{delay: time.Second}
	resolver := NewResolver(submitter, awaiter, nil, testResolverConfig(), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := resolver.Resolve(ctx, testCanonical, domain.Quality720, domain.DefaultResolveOptions())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []domain.QualityTier{domain.Quality720}, submitter.Tiers())
}

func TestResolve_DeduplicatesConcurrentRequests(t *testing.T) {
	submitter := &fakeSubmitter{accept: map[domain.QualityTier]bool{domain.Quality720: true}}
	awaiter := &fakeAwaiter{delay: 50 * time.Millisecond}
	config := testResolverConfig()
	config.DeduplicateInFly = true
	resolver := NewResolver(submitter, awaiter, nil, config, nil, nil)

	var wg sync.WaitGroup
	results := make([]*domain.ResolvedStream, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stream, err := resolver.Resolve(context.Background(), testCanonical, domain.Quality720, domain.DefaultResolveOptions())
			assert.NoError(t, err)
			results[i] = stream
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), awaiter.calls.Load())
	assert.Len(t, submitter.submitted, 1)
	for _, stream := range results {
		require.NotNil(t, stream)
		assert.Equal(t, "720p", stream.Quality)
	}
	// Each caller gets its own copy
	results[0].DirectURL = "changed"
	assert.NotEqual(t, "changed", results[1].DirectURL)
}
