package domain

import "time"

// ProgressComplete is the progress value reported by the worker for a finished job
const ProgressComplete = 1000

// ExtractionRequest is one submission to the extraction worker for a single tier
type ExtractionRequest struct {
	CanonicalURL     string      `json:"canonical_url"`
	RequestedQuality QualityTier `json:"requested_quality"`
	AudioBitrate     int         `json:"audio_bitrate,omitempty"`
	ClipStart        *float64    `json:"clip_start,omitempty"` // Seconds
	ClipEnd          *float64    `json:"clip_end,omitempty"`   // Seconds
}

// NewExtractionRequest creates a request for tier carrying the caller's options
func NewExtractionRequest(canonicalURL string, tier QualityTier, opts ResolveOptions) ExtractionRequest {
	return ExtractionRequest{
		CanonicalURL:     canonicalURL,
		RequestedQuality: tier,
		AudioBitrate:     opts.AudioBitrate,
		ClipStart:        opts.ClipStart,
		ClipEnd:          opts.ClipEnd,
	}
}

// Job is a handle to an in-progress extraction task on the worker
type Job struct {
	ID          string      `json:"id"`
	SubmittedAt time.Time   `json:"submitted_at"`
	RequestTier QualityTier `json:"request_tier"`
	Title       string      `json:"title,omitempty"` // Media title when the worker reports one
}

// ProgressSample is one observation of a job's state
type ProgressSample struct {
	Success     bool   `json:"success"`
	Progress    int    `json:"progress"` // Permille, 0..1000
	ResolvedURL string `json:"download_url,omitempty"`
	StatusText  string `json:"text,omitempty"`
	Failed      bool   `json:"failed,omitempty"` // Worker explicitly reported failure
}

// IsComplete reports whether the sample is a terminal success
func (s *ProgressSample) IsComplete() bool {
	return s.Success && s.Progress == ProgressComplete && s.ResolvedURL != ""
}

// ResolvedStream is a directly fetchable media URL plus its metadata
type ResolvedStream struct {
	Tier      QualityTier `json:"tier"`
	Quality   string      `json:"quality"`
	Container string      `json:"format"`
	DirectURL string      `json:"url"`
	HasAudio  bool        `json:"has_audio"`
	HasVideo  bool        `json:"has_video"`
	Title     string      `json:"title,omitempty"`
}

// NewResolvedStream builds the stream for a completed job at tier
func NewResolvedStream(tier QualityTier, directURL string) *ResolvedStream {
	return &ResolvedStream{
		Tier:      tier,
		Quality:   tier.Label(),
		Container: tier.Container(),
		DirectURL: directURL,
		HasAudio:  true,
		HasVideo:  !tier.IsAudio(),
	}
}

// ResolveOptions tunes a single resolution
type ResolveOptions struct {
	FallbackEnabled bool
	AudioBitrate    int
	ClipStart       *float64
	ClipEnd         *float64
}

// DefaultResolveOptions returns options with fallback enabled
func DefaultResolveOptions() ResolveOptions {
	return ResolveOptions{FallbackEnabled: true}
}
