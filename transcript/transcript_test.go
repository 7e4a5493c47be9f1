package transcript

import (
	"context"
	"strings"
	"testing"

	"github.com/nijaru/yt-transcript/youtube"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	tracks   map[string]youtube.TrackList
	listErr  map[string]error
	segments map[string][]youtube.Segment
	fetchErr error
	panicky  bool
	fetched  []youtube.Track
}

func (f *fakeProvider) ListTracks(_ context.Context, videoID string) (youtube.TrackList, error) {
	if f.panicky {
		panic("provider exploded")
	}
	if err, ok := f.listErr[videoID]; ok {
		return nil, err
	}
	return f.tracks[videoID], nil
}

func (f *fakeProvider) FetchSegments(_ context.Context, track youtube.Track) ([]youtube.Segment, error) {
	f.fetched = append(f.fetched, track)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.segments[track.VideoID+"/"+track.LanguageCode], nil
}

func track(videoID, code, name string, generated bool) youtube.Track {
	return youtube.Track{VideoID: videoID, LanguageCode: code, Language: name, IsGenerated: generated}
}

func TestSelectAndFetch_Selection(t *testing.T) {
	tests := []struct {
		name          string
		tracks        youtube.TrackList
		languages     []string
		wantLanguage  string
		wantGenerated bool
	}{
		{
			name:         "manual track in priority list",
			tracks:       youtube.TrackList{track("v", "en", "English", false)},
			languages:    []string{"ko", "en"},
			wantLanguage: "en",
		},
		{
			name: "manual preferred over generated in same language",
			tracks: youtube.TrackList{
				track("v", "ko", "Korean (auto-generated)", true),
				track("v", "ko", "Korean", false),
			},
			languages:    []string{"ko"},
			wantLanguage: "ko",
		},
		{
			name: "manual in lower priority beats generated in higher priority",
			tracks: youtube.TrackList{
				track("v", "ko", "Korean (auto-generated)", true),
				track("v", "en", "English", false),
			},
			languages:    []string{"ko", "en"},
			wantLanguage: "en",
		},
		{
			name: "generated when no manual matches",
			tracks: youtube.TrackList{
				track("v", "de", "German", false),
				track("v", "en", "English (auto-generated)", true),
			},
			languages:     []string{"ko", "en"},
			wantLanguage:  "en",
			wantGenerated: true,
		},
		{
			name: "priority order decides among generated",
			tracks: youtube.TrackList{
				track("v", "en", "English (auto-generated)", true),
				track("v", "ko", "Korean (auto-generated)", true),
			},
			languages:     []string{"ko", "en"},
			wantLanguage:  "ko",
			wantGenerated: true,
		},
		{
			name: "falls back to first listed track",
			tracks: youtube.TrackList{
				track("v", "ja", "Japanese (auto-generated)", true),
				track("v", "fr", "French", false),
			},
			languages:     []string{"ko", "en"},
			wantLanguage:  "ja",
			wantGenerated: true,
		},
		{
			name: "empty priority takes first listed track",
			tracks: youtube.TrackList{
				track("v", "fr", "French", false),
				track("v", "ko", "Korean", false),
			},
			languages:    []string{},
			wantLanguage: "fr",
		},
		{
			name:         "nil priority uses defaults",
			tracks:       youtube.TrackList{track("v", "fr", "French", false), track("v", "ko", "Korean", false)},
			languages:    nil,
			wantLanguage: "ko",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{
				tracks: map[string]youtube.TrackList{"v": tt.tracks},
				segments: map[string][]youtube.Segment{
					"v/" + tt.wantLanguage: {{Start: 1, Duration: 2, Text: "hello"}},
				},
			}
			result := NewService(provider).SelectAndFetch(context.Background(), "v", tt.languages)

			require.True(t, result.Success, result.Error)
			assert.Equal(t, tt.wantLanguage, result.Language)
			assert.Equal(t, tt.wantGenerated, result.IsGenerated)
			assert.Empty(t, result.Error)
			assert.Equal(t, KindNone, result.ErrorKind)
			require.Len(t, provider.fetched, 1)
			assert.Equal(t, tt.wantGenerated, provider.fetched[0].IsGenerated)
		})
	}
}

func TestSelectAndFetch_Segments(t *testing.T) {
	provider := &fakeProvider{
		tracks: map[string]youtube.TrackList{
			"dQw4w9WgXcQ": {track("dQw4w9WgXcQ", "en", "English (auto-generated)", true)},
		},
		segments: map[string][]youtube.Segment{
			"dQw4w9WgXcQ/en": {
				{Start: 0.2449, Duration: 2.0161, Text: "Never gonna"},
				{Start: 2.256, Duration: 1.006, Text: "give you up"},
				{Start: 3.999, Duration: 0, Text: ""},
				{Start: 4.125, Duration: 1.375, Text: "half"},
				{Start: 6.625, Duration: 0.875, Text: "halves"},
			},
		},
	}

	result := NewService(provider).SelectAndFetch(context.Background(), "dQw4w9WgXcQ", []string{"ko", "en"})

	require.True(t, result.Success)
	assert.Equal(t, "dQw4w9WgXcQ", result.VideoID)
	assert.Equal(t, "en", result.Language)
	assert.True(t, result.IsGenerated)
	assert.Equal(t, []Segment{
		{Start: 0.24, Duration: 2.02, Text: "Never gonna"},
		{Start: 2.26, Duration: 1.01, Text: "give you up"},
		{Start: 4, Duration: 0, Text: ""},
		{Start: 4.12, Duration: 1.38, Text: "half"},
		{Start: 6.62, Duration: 0.88, Text: "halves"},
	}, result.Segments)

	texts := make([]string, len(result.Segments))
	for i, seg := range result.Segments {
		texts[i] = seg.Text
	}
	assert.Equal(t, strings.Join(texts, "\n"), result.FullText)
	assert.Equal(t, "Never gonna\ngive you up\n\nhalf\nhalves", result.FullText)
}

func TestSelectAndFetch_Idempotent(t *testing.T) {
	provider := &fakeProvider{
		tracks: map[string]youtube.TrackList{
			"v": {track("v", "ja", "Japanese", false), track("v", "en", "English", true)},
		},
		segments: map[string][]youtube.Segment{"v/en": {{Start: 1, Duration: 1, Text: "a"}}},
	}
	svc := NewService(provider)

	first := svc.SelectAndFetch(context.Background(), "v", []string{"en"})
	second := svc.SelectAndFetch(context.Background(), "v", []string{"en"})
	assert.Equal(t, first, second)
}

func TestSelectAndFetch_Failures(t *testing.T) {
	provider := &fakeProvider{
		tracks: map[string]youtube.TrackList{"empty": {}},
		listErr: map[string]error{
			"invalid_id": errors.Wrap(youtube.ErrVideoUnavailable, "video invalid_id: Video unavailable"),
			"disabled":   errors.Wrap(youtube.ErrTranscriptsDisabled, "video disabled"),
			"none":       errors.Wrap(youtube.ErrNoTranscriptAvailable, "video none"),
			"network":    errors.New("dial tcp: connection refused"),
		},
	}
	svc := NewService(provider)

	tests := []struct {
		videoID  string
		wantKind Kind
		contains string
	}{
		{"invalid_id", KindVideoUnavailable, "could not be found"},
		{"disabled", KindCaptionsDisabled, "disabled"},
		{"none", KindNoTranscriptAvailable, "No usable transcript"},
		{"empty", KindNoMatchFallbackExhausted, "No usable transcript"},
		{"network", KindUnclassified, "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.videoID, func(t *testing.T) {
			result := svc.SelectAndFetch(context.Background(), tt.videoID, []string{"ko", "en"})
			assert.False(t, result.Success)
			assert.Equal(t, tt.videoID, result.VideoID)
			assert.Equal(t, tt.wantKind, result.ErrorKind)
			assert.Contains(t, result.Error, tt.contains)
			assert.NotNil(t, result.Segments)
			assert.Empty(t, result.Segments)
			assert.Empty(t, result.FullText)
			assert.Empty(t, result.Language)
		})
	}
}

func TestSelectAndFetch_FetchFailure(t *testing.T) {
	provider := &fakeProvider{
		tracks:   map[string]youtube.TrackList{"v": {track("v", "en", "English", false)}},
		fetchErr: errors.New("timedtext request: HTTP 429: slow down"),
	}

	result := NewService(provider).SelectAndFetch(context.Background(), "v", nil)
	assert.False(t, result.Success)
	assert.Equal(t, KindUnclassified, result.ErrorKind)
	assert.Equal(t, "Transcript extraction failed: timedtext request: HTTP 429: slow down", result.Error)
	assert.Empty(t, result.Segments)
}

func TestSelectAndFetch_RecoversPanic(t *testing.T) {
	result := NewService(&fakeProvider{panicky: true}).SelectAndFetch(context.Background(), "v", nil)
	assert.False(t, result.Success)
	assert.Equal(t, KindUnclassified, result.ErrorKind)
	assert.Contains(t, result.Error, "provider exploded")
	assert.Empty(t, result.Segments)
}

func TestListLanguages(t *testing.T) {
	provider := &fakeProvider{
		tracks: map[string]youtube.TrackList{
			"v": {track("v", "en", "English", false), track("v", "ko", "Korean", true)},
		},
		listErr: map[string]error{
			"gone": errors.Wrap(youtube.ErrVideoUnavailable, "video gone: Video unavailable"),
		},
	}
	svc := NewService(provider)

	list := svc.ListLanguages(context.Background(), "v")
	require.True(t, list.Success)
	assert.Equal(t, "v", list.VideoID)
	assert.Equal(t, []Language{
		{Code: "en", Name: "English", IsGenerated: false},
		{Code: "ko", Name: "Korean", IsGenerated: true},
	}, list.Languages)
	assert.Empty(t, list.Error)

	list = svc.ListLanguages(context.Background(), "gone")
	assert.False(t, list.Success)
	assert.NotNil(t, list.Languages)
	assert.Empty(t, list.Languages)
	assert.Equal(t, "video gone: Video unavailable: video is unavailable", list.Error)
	assert.Equal(t, KindVideoUnavailable, list.ErrorKind)

	list = NewService(&fakeProvider{panicky: true}).ListLanguages(context.Background(), "v")
	assert.False(t, list.Success)
	assert.Contains(t, list.Error, "provider exploded")
}

func TestWithDefaultLanguages(t *testing.T) {
	svc := NewService(&fakeProvider{}, WithDefaultLanguages([]string{"en"}))
	assert.Equal(t, []string{"en"}, svc.DefaultLanguages())

	svc = NewService(&fakeProvider{}, WithDefaultLanguages(nil))
	assert.Equal(t, DefaultLanguages, svc.DefaultLanguages())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindNone, Classify(nil))
	assert.Equal(t, KindCaptionsDisabled, Classify(errors.Wrap(youtube.ErrTranscriptsDisabled, "x")))
	assert.Equal(t, KindVideoUnavailable, Classify(youtube.ErrVideoUnavailable))
	assert.Equal(t, KindNoTranscriptAvailable, Classify(errors.WithStack(youtube.ErrNoTranscriptAvailable)))
	assert.Equal(t, KindUnclassified, Classify(youtube.ErrNoTranscriptFound))
	assert.Equal(t, KindUnclassified, Classify(errors.New("boom")))
}
