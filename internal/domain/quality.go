package domain

import (
	"fmt"
	"strings"
)

// QualityTier represents a requested resolution bucket or the audio-only bucket
type QualityTier string

const (
	Quality144  QualityTier = "144"
	Quality240  QualityTier = "240"
	Quality360  QualityTier = "360"
	Quality480  QualityTier = "480"
	Quality720  QualityTier = "720"
	Quality1080 QualityTier = "1080"
	Quality1440 QualityTier = "1440"
	Quality4K   QualityTier = "4k"
	Quality8K   QualityTier = "8k"
	QualityMP3  QualityTier = "mp3" // Audio only
)

// Container formats produced by the extraction worker
const (
	ContainerMP4 = "mp4"
	ContainerMP3 = "mp3"
)

// videoTiers is ordered highest to lowest and drives cascade traversal
var videoTiers = []QualityTier{
	Quality8K,
	Quality4K,
	Quality1440,
	Quality1080,
	Quality720,
	Quality480,
	Quality360,
	Quality240,
	Quality144,
}

var tierLabels = map[QualityTier]string{
	Quality144:  "144p",
	Quality240:  "240p",
	Quality360:  "360p",
	Quality480:  "480p",
	Quality720:  "720p",
	Quality1080: "1080p",
	Quality1440: "1440p",
	Quality4K:   "4K",
	Quality8K:   "8K",
	QualityMP3:  "MP3",
}

// tierAliases maps user-facing spellings onto tier codes
var tierAliases = map[string]QualityTier{
	"144p":    Quality144,
	"240p":    Quality240,
	"360p":    Quality360,
	"480p":    Quality480,
	"720p":    Quality720,
	"hd":      Quality720,
	"1080p":   Quality1080,
	"full hd": Quality1080,
	"1440p":   Quality1440,
	"2k":      Quality1440,
	"2160":    Quality4K,
	"2160p":   Quality4K,
	"4320":    Quality8K,
	"4320p":   Quality8K,
	"audio":   QualityMP3,
}

// defaultAudioBitrates lists the audio bitrates (kbps) offered to callers, highest first
var defaultAudioBitrates = []int{320, 256, 192, 128, 96, 64}

// ParseQualityTier parses a tier code or one of its common labels
func ParseQualityTier(s string) (QualityTier, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return "", fmt.Errorf("%w: empty quality", ErrInvalidTier)
	}

	tier := QualityTier(normalized)
	if tier.IsValid() {
		return tier, nil
	}
	if alias, ok := tierAliases[normalized]; ok {
		return alias, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
}

// IsValid checks if the tier is a member of the catalog
func (q QualityTier) IsValid() bool {
	_, ok := tierLabels[q]
	return ok
}

// IsAudio reports whether the tier is the audio-only bucket
func (q QualityTier) IsAudio() bool {
	return q == QualityMP3
}

// Label returns the human-readable label, e.g. "480p"
func (q QualityTier) Label() string {
	if label, ok := tierLabels[q]; ok {
		return label
	}
	return string(q)
}

// Container returns the container format delivered for this tier
func (q QualityTier) Container() string {
	if q.IsAudio() {
		return ContainerMP3
	}
	return ContainerMP4
}

// String implements fmt.Stringer
func (q QualityTier) String() string {
	return string(q)
}

// QualityCatalog is the read-only lookup over the tier table
type QualityCatalog interface {
	// Cascade returns the tiers to try after tier fails, strictly descending and excluding tier
	Cascade(tier QualityTier) []QualityTier

	// VideoTiers returns all video tiers, highest first
	VideoTiers() []QualityTier

	// AudioBitrates returns the supported audio bitrates in kbps, highest first
	AudioBitrates() []int
}

type staticQualityCatalog struct {
	video   []QualityTier
	bitrate []int
}

var defaultCatalog = &staticQualityCatalog{
	video:   videoTiers,
	bitrate: defaultAudioBitrates,
}

// DefaultQualityCatalog returns the process-wide tier table
func DefaultQualityCatalog() QualityCatalog {
	return defaultCatalog
}

func (c *staticQualityCatalog) Cascade(tier QualityTier) []QualityTier {
	if tier.IsAudio() {
		return []QualityTier{}
	}
	for i, t := range c.video {
		if t == tier {
			lower := make([]QualityTier, len(c.video)-i-1)
			copy(lower, c.video[i+1:])
			return lower
		}
	}
	return []QualityTier{}
}

func (c *staticQualityCatalog) VideoTiers() []QualityTier {
	tiers := make([]QualityTier, len(c.video))
	copy(tiers, c.video)
	return tiers
}

func (c *staticQualityCatalog) AudioBitrates() []int {
	bitrates := make([]int, len(c.bitrate))
	copy(bitrates, c.bitrate)
	return bitrates
}
