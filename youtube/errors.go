package youtube

import "github.com/pkg/errors"

var (
	// ErrVideoUnavailable means the video does not exist, was removed, or is private.
	ErrVideoUnavailable = errors.New("video is unavailable")

	// ErrTranscriptsDisabled means the owner turned captions off for the video.
	ErrTranscriptsDisabled = errors.New("transcripts are disabled for this video")

	// ErrNoTranscriptAvailable means the video exists but has no caption tracks.
	ErrNoTranscriptAvailable = errors.New("no transcript is available for this video")

	// ErrNoTranscriptFound means no track matched the requested languages.
	ErrNoTranscriptFound = errors.New("no transcript found for the requested languages")
)
