package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSubmissionRejected  = errors.New("submission rejected")
	ErrPollFailed          = errors.New("extraction failed")
	ErrPollTimedOut        = errors.New("extraction timed out")
	ErrResolutionExhausted = errors.New("format not available")
	ErrDisallowedOrigin    = errors.New("origin not allowed")
	ErrUpstreamFetchFailed = errors.New("upstream fetch failed")
	ErrInvalidTier         = errors.New("unsupported quality")
	ErrInvalidMediaURL     = errors.New("invalid media url")
	ErrNotConfigured       = errors.New("service misconfigured")
)

// SubmissionRejectedError means the worker would not start a job for a tier
type SubmissionRejectedError struct {
	Tier   QualityTier
	Reason string
	Cause  error
}

func (e *SubmissionRejectedError) Error() string {
	msg := fmt.Sprintf("submission rejected for %s", e.Tier.Label())
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SubmissionRejectedError) Is(target error) bool { return target == ErrSubmissionRejected }
func (e *SubmissionRejectedError) Unwrap() error        { return e.Cause }

// PollFailedError means the worker reported failure mid-job
type PollFailedError struct {
	JobID  string
	Tier   QualityTier
	Sample ProgressSample
}

func (e *PollFailedError) Error() string {
	msg := fmt.Sprintf("job %s for %s failed", e.JobID, e.Tier.Label())
	if e.Sample.StatusText != "" {
		msg += ": " + e.Sample.StatusText
	}
	return msg
}

func (e *PollFailedError) Is(target error) bool { return target == ErrPollFailed }

// PollTimedOutError means no terminal sample was observed within the timeout.
// LastSample is nil when no sample was received at all.
type PollTimedOutError struct {
	JobID      string
	Tier       QualityTier
	Timeout    string
	LastSample *ProgressSample
}

func (e *PollTimedOutError) Error() string {
	msg := fmt.Sprintf("job %s for %s timed out after %s", e.JobID, e.Tier.Label(), e.Timeout)
	if e.LastSample != nil {
		msg += fmt.Sprintf(" (progress %d/%d", e.LastSample.Progress, ProgressComplete)
		if e.LastSample.StatusText != "" {
			msg += ", status: " + e.LastSample.StatusText
		}
		msg += ")"
	}
	return msg
}

func (e *PollTimedOutError) Is(target error) bool { return target == ErrPollTimedOut }

// AttemptOutcome records one candidate tier's failure
type AttemptOutcome struct {
	Tier    QualityTier `json:"tier"`
	Message string      `json:"message"`
}

// ResolutionExhaustedError means every candidate tier failed
type ResolutionExhaustedError struct {
	Requested   QualityTier
	LastMessage string
	Attempts    []AttemptOutcome
}

func (e *ResolutionExhaustedError) Error() string {
	msg := fmt.Sprintf("format %s is not available for this media; try a lower quality", e.Requested.Label())
	if e.LastMessage != "" {
		msg += " (" + e.LastMessage + ")"
	}
	return msg
}

func (e *ResolutionExhaustedError) Is(target error) bool { return target == ErrResolutionExhausted }

// AttemptedTiers lists the tiers tried, in order
func (e *ResolutionExhaustedError) AttemptedTiers() []string {
	tiers := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		tiers = append(tiers, a.Tier.Label())
	}
	return tiers
}

// DisallowedOriginError means a proxy target host is not allow-listed
type DisallowedOriginError struct {
	Host string
}

func (e *DisallowedOriginError) Error() string {
	return fmt.Sprintf("host not allowed: %s", e.Host)
}

func (e *DisallowedOriginError) Is(target error) bool { return target == ErrDisallowedOrigin }

// UpstreamFetchFailedError means the outbound fetch to an allowed origin failed
type UpstreamFetchFailedError struct {
	StatusCode int // 0 on transport failure
	Message    string
	Cause      error
}

func (e *UpstreamFetchFailedError) Error() string {
	parts := []string{"upstream fetch failed"}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status %d", e.StatusCode))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *UpstreamFetchFailedError) Is(target error) bool { return target == ErrUpstreamFetchFailed }
func (e *UpstreamFetchFailedError) Unwrap() error        { return e.Cause }
