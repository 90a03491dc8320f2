package app

import (
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "clip.mp4", "clip.mp4"},
		{"forbidden chars", `a<b>c:d"e/f\g|h?i*j`, "abcdefghij"},
		{"control chars", "bad\x00name\x1f", "badname"},
		{"whitespace", "  my    clip  ", "my clip"},
		{"url encoded", "my%20clip%2Fpart", "my clippart"},
		{"unicode kept", "música", "música"},
		{"empty falls back", "///", "video"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input, "video"))
		})
	}
}

func TestSanitizeFilename_TruncatesOnRuneBoundary(t *testing.T) {
	name := strings.Repeat("é", 150) // 300 bytes

	got := SanitizeFilename(name, "video")

	assert.LessOrEqual(t, len(got), maxFilenameLength)
	assert.True(t, utf8.ValidString(got))
}

func TestDownloadFilename(t *testing.T) {
	target, _ := url.Parse("https://video.cdn.example/videoplayback/clip.webm?sig=1")

	assert.Equal(t, "clip.webm", downloadFilename("", target, "video/webm", "video"))
	assert.Equal(t, "song.mp3", downloadFilename("song", target, "audio/mpeg", "video"))
	assert.Equal(t, "video.mp4", downloadFilename("", &url.URL{Path: "/"}, "video/mp4; codecs=avc1", "video"))
	assert.Equal(t, "video", downloadFilename("", nil, "application/x-unknown", "video"))
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename="clip.mp4"; filename*=UTF-8''clip.mp4`, contentDisposition("clip.mp4"))
	assert.Equal(t, `attachment; filename="m_sica.mp3"; filename*=UTF-8''m%C3%BAsica.mp3`, contentDisposition("música.mp3"))
}
