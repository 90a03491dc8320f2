package domain

// DeferredOption is a quality/format choice that is resolved only when the caller activates it
type DeferredOption struct {
	Quality      string      `json:"quality"`
	Tier         QualityTier `json:"tier"`
	Format       string      `json:"format"`
	AudioBitrate int         `json:"audio_bitrate,omitempty"`
	HasAudio     bool        `json:"has_audio"`
	HasVideo     bool        `json:"has_video"`
	URL          string      `json:"url"` // Client-callable resolve endpoint
}

// CatalogSummary aggregates the options offered in a catalog
type CatalogSummary struct {
	TotalVideo         int      `json:"total_video"`
	TotalAudio         int      `json:"total_audio"`
	AvailableQualities []string `json:"available_qualities"`
	AvailableFormats   []string `json:"available_formats"`
	HasPreview         bool     `json:"has_preview"`
}

// StreamCatalog is the set of options offered for one media item
type StreamCatalog struct {
	VideoID         string           `json:"video_id"`
	CanonicalURL    string           `json:"canonical_url"`
	Title           string           `json:"title,omitempty"` // Known only when the preview resolved
	Thumbnail       string           `json:"thumbnail"`
	PreviewStream   *ResolvedStream  `json:"preview_stream,omitempty"`
	PreviewProxyURL string           `json:"preview_proxy_url,omitempty"`
	VideoFormats    []DeferredOption `json:"video_formats"`
	AudioFormats    []DeferredOption `json:"audio_formats"`
	Summary         CatalogSummary   `json:"summary"`
}
