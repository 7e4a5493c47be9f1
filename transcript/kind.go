package transcript

import (
	"github.com/nijaru/yt-transcript/youtube"
	"github.com/pkg/errors"
)

// Kind classifies why a lookup failed. The zero value means success.
type Kind string

const (
	KindNone                     Kind = ""
	KindCaptionsDisabled         Kind = "captions_disabled"
	KindVideoUnavailable         Kind = "video_unavailable"
	KindNoTranscriptAvailable    Kind = "no_transcript_available"
	KindNoMatchFallbackExhausted Kind = "no_match_fallback_exhausted"
	KindUnclassified             Kind = "unclassified"
)

// Classify maps a provider error onto a Kind. Anything the provider does not
// recognize is KindUnclassified.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, youtube.ErrTranscriptsDisabled):
		return KindCaptionsDisabled
	case errors.Is(err, youtube.ErrVideoUnavailable):
		return KindVideoUnavailable
	case errors.Is(err, youtube.ErrNoTranscriptAvailable):
		return KindNoTranscriptAvailable
	default:
		return KindUnclassified
	}
}

// Message is the human-readable error reported for k. cause is only used by
// KindUnclassified, whose message embeds it.
func (k Kind) Message(cause error) string {
	switch k {
	case KindNone:
		return ""
	case KindCaptionsDisabled:
		return "Captions are disabled for this video."
	case KindVideoUnavailable:
		return "The video could not be found or is private."
	case KindNoTranscriptAvailable, KindNoMatchFallbackExhausted:
		return "No usable transcript is available for this video."
	default:
		if cause == nil {
			return "Transcript extraction failed."
		}
		return "Transcript extraction failed: " + cause.Error()
	}
}
