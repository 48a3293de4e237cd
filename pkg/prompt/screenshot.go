package prompt

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
)

const defaultImageType = "image/png"

// NormalizeScreenshot returns an image reference the model service accepts.
// data: URLs and http(s) URLs pass through unchanged; bare base64 is wrapped
// into a data URL whose MIME type is sniffed from the decoded bytes.
func NormalizeScreenshot(s string) (string, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)

	switch {
	case strings.HasPrefix(lower, "data:"):
		if !strings.Contains(s, ",") {
			return "", &ValidationError{Field: "screenshot", Reason: "is a malformed data URL"}
		}
		return s, nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return "", &ValidationError{Field: "screenshot", Reason: "is not a valid URL"}
		}
		return s, nil
	}

	compact := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	raw, err := decodeBase64(compact)
	if err != nil || len(raw) == 0 {
		return "", &ValidationError{Field: "screenshot", Reason: "must be a data URL, an http(s) URL or base64 image data"}
	}

	mime := http.DetectContentType(raw)
	if !strings.HasPrefix(mime, "image/") {
		mime = defaultImageType
	}
	return "data:" + mime + ";base64," + compact, nil
}

func decodeBase64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
