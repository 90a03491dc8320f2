package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	videoIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	watchURLPattern = regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/v/|youtube\.com/shorts/|youtube\.com/live/)([a-zA-Z0-9_-]{11})`)
)

// ExtractVideoID extracts the 11-character video id from a watch URL or a bare id
func ExtractVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if videoIDPattern.MatchString(input) {
		return input, nil
	}
	if !strings.Contains(input, "://") {
		input = "https://" + input
	}
	if !IsSupportedMediaURL(input) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMediaURL, input)
	}
	if m := watchURLPattern.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: no video id in %q", ErrInvalidMediaURL, input)
}

// IsSupportedMediaURL checks if the URL points at the video platform
func IsSupportedMediaURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return host == "youtube.com" || strings.HasSuffix(host, ".youtube.com") ||
		host == "youtu.be" || strings.HasSuffix(host, ".youtu.be")
}

// CanonicalURL returns the canonical watch-page URL for a video id
func CanonicalURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// Canonicalize turns a URL or bare id into the canonical watch URL, stripping tracking parameters
func Canonicalize(input string) (canonical string, videoID string, err error) {
	videoID, err = ExtractVideoID(input)
	if err != nil {
		return "", "", err
	}
	return CanonicalURL(videoID), videoID, nil
}

// ThumbnailURL returns the default high quality thumbnail for a video id
func ThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", videoID)
}
