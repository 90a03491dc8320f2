package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/sonova-go/internal/domain"
)

const maxWorkerResponseBytes = 1 << 20

var _ domain.ExtractionWorker = (*WorkerClient)(nil)

// WorkerClient implements domain.ExtractionWorker over the worker's HTTP API
type WorkerClient struct {
	config *domain.WorkerConfig
	client *http.Client
	logger *zap.Logger
}

// NewWorkerClient creates a new worker client.
// client may be nil, in which case a pooled client bounded by config.RequestTimeout is used.
func NewWorkerClient(config *domain.WorkerConfig, client *http.Client, logger *zap.Logger) *WorkerClient {
	if client == nil {
		client = NewHTTPClient(config.RequestTimeout, config.RequestTimeout)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerClient{
		config: config,
		client: client,
		logger: logger,
	}
}

// Configured reports whether a worker endpoint is set up
func (w *WorkerClient) Configured() bool {
	return strings.TrimSpace(w.config.BaseURL) != ""
}

// submitPayload is the body sent to the worker to start a job
type submitPayload struct {
	TargetURL    string   `json:"targetUrl"`
	Format       string   `json:"format"`
	AudioQuality int      `json:"audio_quality,omitempty"`
	StartTime    *float64 `json:"start_time,omitempty"`
	EndTime      *float64 `json:"end_time,omitempty"`
}

// submitFields holds the fields a start response may carry at either nesting level
type submitFields struct {
	Success flexBool   `json:"success"`
	ID      flexString `json:"id"`
	Message flexString `json:"message"`
	Error   flexString `json:"error"`
	Info    *mediaInfo `json:"info"`
}

type mediaInfo struct {
	Title flexString `json:"title"`
	Image flexString `json:"image"`
}

type submitItem struct {
	submitFields
	ResponseData *submitFields `json:"responseData"`
}

// Submit starts an extraction job for the request's tier
func (w *WorkerClient) Submit(ctx context.Context, req domain.ExtractionRequest) (*domain.Job, error) {
	if !w.Configured() {
		return nil, fmt.Errorf("%w: extraction worker base url not set", domain.ErrNotConfigured)
	}

	reject := func(reason string, cause error) error {
		return &domain.SubmissionRejectedError{Tier: req.RequestedQuality, Reason: reason, Cause: cause}
	}

	payload := submitPayload{
		TargetURL:    req.CanonicalURL,
		Format:       string(req.RequestedQuality),
		AudioQuality: req.AudioBitrate,
		StartTime:    req.ClipStart,
		EndTime:      req.ClipEnd,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, reject("encode request", err)
	}

	endpoint := w.endpoint(w.config.SubmitPath)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, reject("build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	w.authorize(httpReq)

	w.logger.Debug("Submitting extraction job",
		zap.String("endpoint", endpoint),
		zap.String("format", payload.Format))

	resp, err := w.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, reject("transport error", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxWorkerResponseBytes))
	if err != nil {
		return nil, reject("read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, reject(fmt.Sprintf("worker returned status %d: %s", resp.StatusCode, truncate(string(raw), 300)), nil)
	}

	item, err := decodeSubmitItem(raw)
	if err != nil {
		return nil, reject("decode response", err)
	}

	id, success, message, title := item.normalize()
	if success.set && !success.value {
		if message == "" {
			message = "worker declined the job"
		}
		return nil, reject(message, nil)
	}
	if id == "" {
		if message == "" {
			message = "response carried no job id"
		}
		return nil, reject(message, nil)
	}

	return &domain.Job{
		ID:          id,
		SubmittedAt: time.Now(),
		RequestTier: req.RequestedQuality,
		Title:       title,
	}, nil
}

// progressResponse is the worker's progress payload
type progressResponse struct {
	Success     flexBool        `json:"success"`
	Progress    flexInt         `json:"progress"`
	DownloadURL flexString      `json:"download_url"`
	Text        flexString      `json:"text"`
	Message     flexString      `json:"message"`
	Error       json.RawMessage `json:"error"`
}

// FetchProgress reads one progress sample for jobID
func (w *WorkerClient) FetchProgress(ctx context.Context, jobID string) (*domain.ProgressSample, error) {
	if !w.Configured() {
		return nil, fmt.Errorf("%w: extraction worker base url not set", domain.ErrNotConfigured)
	}

	endpoint := w.endpoint(w.config.ProgressPath) + "?id=" + url.QueryEscape(jobID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build progress request: %w", err)
	}
	w.authorize(httpReq)

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("progress request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxWorkerResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read progress response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("progress endpoint returned status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		// The worker no longer knows the job, it will not complete
		return &domain.ProgressSample{
			Failed:     true,
			StatusText: fmt.Sprintf("progress endpoint returned status %d: %s", resp.StatusCode, truncate(string(raw), 200)),
		}, nil
	}

	var pr progressResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("failed to decode progress response: %w", err)
	}

	return pr.sample(), nil
}

func (w *WorkerClient) endpoint(path string) string {
	return strings.TrimRight(w.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (w *WorkerClient) authorize(req *http.Request) {
	if w.config.APIKey == "" {
		return
	}
	header := w.config.APIKeyHeader
	if header == "" {
		header = "x-api-key"
	}
	req.Header.Set(header, w.config.APIKey)
}

// decodeSubmitItem accepts a single object or an array of items (first item wins)
func decodeSubmitItem(raw []byte) (*submitItem, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response")
	}

	if trimmed[0] == '[' {
		var items []submitItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, errors.New("empty item list")
		}
		return &items[0], nil
	}

	var item submitItem
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// normalize folds the nested and top-level fields into one view, nested first
func (i *submitItem) normalize() (id string, success flexBool, message, title string) {
	success = i.Success
	id = string(i.ID)
	message = firstNonEmpty(string(i.Message), string(i.Error))
	title = i.title()

	if nested := i.ResponseData; nested != nil {
		if nested.Success.set {
			success = nested.Success
		}
		if nested.ID != "" {
			id = string(nested.ID)
		}
		message = firstNonEmpty(string(nested.Message), string(nested.Error), message)
		title = firstNonEmpty(nested.title(), title)
	}
	return strings.TrimSpace(id), success, message, title
}

func (f *submitFields) title() string {
	if f.Info == nil {
		return ""
	}
	return strings.TrimSpace(string(f.Info.Title))
}

func (p *progressResponse) sample() *domain.ProgressSample {
	progress := int(p.Progress)
	if progress < 0 {
		progress = 0
	}
	if progress > domain.ProgressComplete {
		progress = domain.ProgressComplete
	}

	status := firstNonEmpty(string(p.Text), string(p.Message))
	sample := &domain.ProgressSample{
		Success:     p.Success.set && p.Success.value,
		Progress:    progress,
		ResolvedURL: strings.TrimSpace(string(p.DownloadURL)),
		StatusText:  status,
	}

	if reported, failed := workerError(p.Error); failed {
		sample.Failed = true
		sample.StatusText = firstNonEmpty(status, reported)
	} else if looksFailed(status) && !sample.IsComplete() {
		sample.Failed = true
	}

	return sample
}

// workerError reports whether a progress error field signals failure.
// Falsy values (null, false, 0, "", {}, []) mean no error.
func workerError(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", false
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		s = strings.TrimSpace(s)
		return s, s != ""
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil || len(fields) == 0 {
			return "", false
		}
		var detail struct {
			Message flexString `json:"message"`
		}
		_ = json.Unmarshal(trimmed, &detail)
		return firstNonEmpty(string(detail.Message), string(trimmed)), true
	case 't':
		return "worker reported an error", string(trimmed) == "true"
	}
	return "", false
}

func looksFailed(status string) bool {
	s := strings.ToLower(status)
	return strings.Contains(s, "error") || strings.Contains(s, "fail")
}

// flexBool decodes true/false, 0/1 and their string forms; set is false for null or absent
type flexBool struct {
	set   bool
	value bool
}

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.ToLower(strings.Trim(strings.TrimSpace(string(data)), `"`))
	switch s {
	case "", "null":
		*b = flexBool{}
	case "true", "yes", "ok":
		*b = flexBool{set: true, value: true}
	case "false", "no":
		*b = flexBool{set: true, value: false}
	default:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", s)
		}
		*b = flexBool{set: true, value: n != 0}
	}
	return nil
}

// flexInt decodes a number or numeric string
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	*n = flexInt(f)
	return nil
}

// flexString decodes a string or a scalar rendered as text; objects become their raw JSON
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || string(trimmed) == "null" || string(trimmed) == "false":
		*s = ""
	case trimmed[0] == '"':
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return err
		}
		*s = flexString(str)
	default:
		*s = flexString(trimmed)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
