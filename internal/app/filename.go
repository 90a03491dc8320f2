package app

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxFilenameLength = 200

var (
	forbiddenFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	controlChars           = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)
	repeatedSpaces         = regexp.MustCompile(`\s+`)
)

var extensionByType = map[string]string{
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
	"audio/mpeg": ".mp3",
	"audio/mp4":  ".m4a",
	"audio/webm": ".weba",
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// SanitizeFilename makes a caller-supplied name safe for a Content-Disposition header.
// An empty result is replaced by fallback.
func SanitizeFilename(name, fallback string) string {
	if decoded, err := url.QueryUnescape(name); err == nil {
		name = decoded
	}

	name = forbiddenFilenameChars.ReplaceAllString(name, "")
	name = controlChars.ReplaceAllString(name, "")
	name = repeatedSpaces.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)

	if len(name) > maxFilenameLength {
		name = name[:maxFilenameLength]
		for !utf8.ValidString(name) {
			name = name[:len(name)-1]
		}
	}

	if name == "" {
		return fallback
	}
	return name
}

// downloadFilename picks the attachment name: the requested one, else the URL's last path segment
func downloadFilename(requested string, target *url.URL, contentType, fallback string) string {
	name := requested
	if name == "" && target != nil {
		if base := path.Base(target.Path); base != "/" && base != "." {
			name = base
		}
	}
	name = SanitizeFilename(name, fallback)

	if !strings.Contains(name, ".") {
		name += extensionFor(contentType)
	}
	return name
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return extensionByType[strings.ToLower(mediaType)]
}

// contentDisposition renders an attachment header with an ASCII fallback and an RFC 5987 name
func contentDisposition(filename string) string {
	ascii := strings.Map(func(r rune) rune {
		if r > 0x7e || r < 0x20 {
			return '_'
		}
		return r
	}, filename)
	return `attachment; filename="` + ascii + `"; filename*=UTF-8''` + url.PathEscape(filename)
}
