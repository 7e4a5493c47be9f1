package validation

import (
	"net/url"
	"strings"
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateVideoID accepts any non-blank identifier. Whether the video exists
// is left to the provider.
func ValidateVideoID(videoID string) error {
	if strings.TrimSpace(videoID) == "" {
		return &ValidationError{Message: "video ID is required"}
	}
	return nil
}

// ExtractVideoID accepts either a bare video ID or a YouTube URL (watch,
// youtu.be, shorts, embed, live) and returns the ID.
func ExtractVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if err := ValidateVideoID(input); err != nil {
		return "", err
	}

	if !strings.Contains(input, "/") && !strings.Contains(input, "?") {
		return input, nil
	}

	raw := input
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", &ValidationError{Message: "invalid URL format"}
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = firstSegment(u.Path)
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if u.Path == "/watch" {
			id = u.Query().Get("v")
			break
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/", "/v/"} {
			if strings.HasPrefix(u.Path, prefix) {
				id = firstSegment(strings.TrimPrefix(u.Path, prefix))
				break
			}
		}
	default:
		return "", &ValidationError{Message: "only YouTube URLs are supported"}
	}

	if id == "" {
		return "", &ValidationError{Message: "URL does not contain a video ID"}
	}
	return id, nil
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.Index(path, "/"); i >= 0 {
		path = path[:i]
	}
	return path
}
