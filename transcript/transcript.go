// Package transcript picks the caption track to use for a video and turns its
// segments into a Result.
package transcript

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/nijaru/yt-transcript/youtube"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultLanguages is the priority list used when the caller supplies none.
var DefaultLanguages = []string{"ko", "en"}

// Provider is the captions backend the Service selects from.
type Provider interface {
	ListTracks(ctx context.Context, videoID string) (youtube.TrackList, error)
	FetchSegments(ctx context.Context, track youtube.Track) ([]youtube.Segment, error)
}

// Segment is a caption entry with times rounded to hundredths of a second.
type Segment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// Result is either a successful transcript with segments or a failure with
// an error message, never both.
type Result struct {
	Success     bool      `json:"success"`
	VideoID     string    `json:"video_id"`
	Language    string    `json:"language"`
	IsGenerated bool      `json:"is_generated"`
	Segments    []Segment `json:"segments"`
	FullText    string    `json:"full_text"`
	Error       string    `json:"error,omitempty"`
	ErrorKind   Kind      `json:"error_kind,omitempty"`
}

// Language describes one available caption track.
type Language struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	IsGenerated bool   `json:"is_generated"`
}

// LanguageList is the outcome of ListLanguages.
type LanguageList struct {
	Success   bool       `json:"success"`
	VideoID   string     `json:"video_id"`
	Languages []Language `json:"languages"`
	Error     string     `json:"error,omitempty"`
	ErrorKind Kind       `json:"error_kind,omitempty"`
}

// Service selects and fetches transcripts through a Provider.
type Service struct {
	provider         Provider
	defaultLanguages []string
	logger           *logrus.Logger
}

type Option func(*Service)

// WithDefaultLanguages overrides DefaultLanguages for this Service.
func WithDefaultLanguages(languages []string) Option {
	return func(s *Service) {
		if len(languages) > 0 {
			s.defaultLanguages = languages
		}
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService returns a Service using DefaultLanguages unless overridden.
func NewService(provider Provider, opts ...Option) *Service {
	s := &Service{
		provider:         provider,
		defaultLanguages: DefaultLanguages,
		logger:           logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultLanguages returns the priority list applied when none is given.
func (s *Service) DefaultLanguages() []string {
	return s.defaultLanguages
}

// SelectAndFetch picks a track for videoID and downloads it. Manual tracks in
// priority order win over generated ones; if neither matches, the first track
// the provider lists is used. A nil priority list means the defaults; an empty
// one goes straight to the first listed track. Failures are reported in the
// Result.
func (s *Service) SelectAndFetch(ctx context.Context, videoID string, languages []string) (result Result) {
	if languages == nil {
		languages = s.defaultLanguages
	}
	logger := s.logger.WithFields(logrus.Fields{
		"video_id":  videoID,
		"languages": strings.Join(languages, ","),
	})

	defer func() {
		if rec := recover(); rec != nil {
			err := errors.Errorf("provider panic: %v", rec)
			logger.WithError(err).Error("Recovered while fetching transcript")
			result = failure(videoID, KindUnclassified, err)
		}
	}()

	tracks, err := s.provider.ListTracks(ctx, videoID)
	if err != nil {
		kind := Classify(err)
		logger.WithError(err).WithField("kind", kind).Warn("Listing caption tracks failed")
		return failure(videoID, kind, err)
	}

	track, ok := Select(tracks, languages)
	if !ok {
		logger.Warn("No caption track to fall back to")
		return failure(videoID, KindNoMatchFallbackExhausted, nil)
	}

	raw, err := s.provider.FetchSegments(ctx, track)
	if err != nil {
		kind := Classify(err)
		logger.WithError(err).WithField("kind", kind).Warn("Fetching caption segments failed")
		return failure(videoID, kind, err)
	}

	result = build(videoID, track, raw)
	logger.WithFields(logrus.Fields{
		"language":     result.Language,
		"is_generated": result.IsGenerated,
		"segments":     len(result.Segments),
	}).Info("Transcript fetched")
	return result
}

// Select applies the priority policy to tracks: manual by priority, then
// generated by priority, then the first listed track.
func Select(tracks youtube.TrackList, languages []string) (youtube.Track, bool) {
	if t, err := tracks.FindManual(languages...); err == nil {
		return t, true
	}
	if t, err := tracks.FindGenerated(languages...); err == nil {
		return t, true
	}
	if len(tracks) == 0 {
		return youtube.Track{}, false
	}
	return tracks[0], true
}

func build(videoID string, track youtube.Track, raw []youtube.Segment) Result {
	segments := make([]Segment, len(raw))
	lines := make([]string, len(raw))
	for i, seg := range raw {
		segments[i] = Segment{
			Start:    round2(seg.Start),
			Duration: round2(seg.Duration),
			Text:     seg.Text,
		}
		lines[i] = seg.Text
	}

	return Result{
		Success:     true,
		VideoID:     videoID,
		Language:    track.LanguageCode,
		IsGenerated: track.IsGenerated,
		Segments:    segments,
		FullText:    strings.Join(lines, "\n"),
	}
}

func failure(videoID string, kind Kind, cause error) Result {
	return Result{
		VideoID:   videoID,
		Segments:  []Segment{},
		Error:     kind.Message(cause),
		ErrorKind: kind,
	}
}

// round2 rounds half to even at two decimals, so 0.125 becomes 0.12.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// ListLanguages reports every track available for videoID in provider order.
func (s *Service) ListLanguages(ctx context.Context, videoID string) (list LanguageList) {
	list = LanguageList{VideoID: videoID, Languages: []Language{}}

	defer func() {
		if rec := recover(); rec != nil {
			list = LanguageList{
				VideoID:   videoID,
				Languages: []Language{},
				Error:     fmt.Sprintf("provider panic: %v", rec),
				ErrorKind: KindUnclassified,
			}
		}
	}()

	tracks, err := s.provider.ListTracks(ctx, videoID)
	if err != nil {
		s.logger.WithError(err).WithField("video_id", videoID).Warn("Listing languages failed")
		list.Error = err.Error()
		list.ErrorKind = Classify(err)
		return list
	}

	for _, t := range tracks {
		list.Languages = append(list.Languages, Language{
			Code:        t.LanguageCode,
			Name:        t.Language,
			IsGenerated: t.IsGenerated,
		})
	}
	list.Success = true
	return list
}
