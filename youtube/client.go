// Package youtube talks to YouTube's Innertube player endpoint to enumerate
// caption tracks and to the timedtext endpoint to download their segments.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"html"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://www.youtube.com"

	playerPath       = "/youtubei/v1/player"
	androidVersion   = "20.10.38"
	androidUserAgent = "com.google.android.youtube/" + androidVersion + " (Linux; U; Android 11) gzip"

	maxPlayerBody    = 4 * 1024 * 1024
	maxTimedTextBody = 5 * 1024 * 1024

	statusOK            = "OK"
	statusError         = "ERROR"
	statusLoginRequired = "LOGIN_REQUIRED"
)

var markupRE = regexp.MustCompile(`<[^>]*>`)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HL         string
	GL         string
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	hl         string
	gl         string
	httpClient *http.Client
	logger     *logrus.Logger
}

type Option func(*Client)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		hl:         cfg.HL,
		gl:         cfg.GL,
		httpClient: cfg.HTTPClient,
		logger:     logrus.StandardLogger(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.hl == "" {
		c.hl = "en"
	}
	if c.gl == "" {
		c.gl = "US"
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListTracks enumerates every caption track available for videoID, in the
// order YouTube lists them.
func (c *Client) ListTracks(ctx context.Context, videoID string) (TrackList, error) {
	body, err := json.Marshal(playerRequest{
		VideoID: videoID,
		Context: playerContext{
			Client: playerClient{
				ClientName:        "ANDROID",
				ClientVersion:     androidVersion,
				AndroidSdkVersion: 30,
				Hl:                c.hl,
				Gl:                c.gl,
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode player request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+playerPath+"?prettyPrint=false", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build player request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", androidUserAgent)
	req.Header.Set("X-Youtube-Client-Name", "3")
	req.Header.Set("X-Youtube-Client-Version", androidVersion)

	c.logger.WithField("video_id", videoID).Debug("Requesting caption tracks")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "player request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, errors.Errorf("player request: HTTP %d: %s", resp.StatusCode, snippet)
	}

	var player playerResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPlayerBody)).Decode(&player); err != nil {
		return nil, errors.Wrap(err, "decode player response")
	}

	tracks, err := player.trackList(videoID)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"video_id": videoID,
		"tracks":   len(tracks),
	}).Debug("Caption tracks listed")
	return tracks, nil
}

func (p *playerResponse) trackList(videoID string) (TrackList, error) {
	if ps := p.PlayabilityStatus; ps != nil && ps.Status != "" && ps.Status != statusOK {
		switch {
		case ps.Status == statusError:
			return nil, errors.Wrapf(ErrVideoUnavailable, "video %s: %s", videoID, ps.Reason)
		case ps.Status == statusLoginRequired && strings.Contains(strings.ToLower(ps.Reason), "private"):
			return nil, errors.Wrapf(ErrVideoUnavailable, "video %s: %s", videoID, ps.Reason)
		default:
			return nil, errors.Errorf("video %s is not playable (%s): %s", videoID, ps.Status, ps.Reason)
		}
	}

	if p.Captions == nil {
		return nil, errors.Wrapf(ErrTranscriptsDisabled, "video %s", videoID)
	}

	raw := p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(raw) == 0 {
		return nil, errors.Wrapf(ErrNoTranscriptAvailable, "video %s", videoID)
	}

	tracks := make(TrackList, 0, len(raw))
	for _, t := range raw {
		tracks = append(tracks, Track{
			VideoID:      videoID,
			LanguageCode: t.LanguageCode,
			Language:     t.Name.String(),
			IsGenerated:  t.Kind == "asr",
			BaseURL:      strings.Replace(t.BaseURL, "&fmt=srv3", "", 1),
		})
	}
	// Manual tracks are listed before generated ones, each group in player order.
	sort.SliceStable(tracks, func(i, j int) bool {
		return !tracks[i].IsGenerated && tracks[j].IsGenerated
	})
	return tracks, nil
}

// FetchSegments downloads the timedtext document behind track and returns its
// segments in document order.
func (c *Client) FetchSegments(ctx context.Context, track Track) ([]Segment, error) {
	if track.BaseURL == "" {
		return nil, errors.Errorf("track %s/%s has no caption URL", track.VideoID, track.LanguageCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build timedtext request")
	}
	req.Header.Set("User-Agent", androidUserAgent)
	req.Header.Set("Accept-Language", c.hl)

	c.logger.WithFields(logrus.Fields{
		"video_id": track.VideoID,
		"language": track.LanguageCode,
	}).Debug("Fetching caption segments")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "timedtext request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, errors.Errorf("timedtext request: HTTP %d: %s", resp.StatusCode, snippet)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTimedTextBody))
	if err != nil {
		return nil, errors.Wrap(err, "read timedtext")
	}

	return parseTimedText(data)
}

func parseTimedText(data []byte) ([]Segment, error) {
	var doc timedText
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse timedtext XML")
	}

	segments := make([]Segment, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		if line.Text == "" {
			continue
		}
		start, err := parseSeconds(line.Start)
		if err != nil {
			return nil, errors.Wrapf(err, "segment start %q", line.Start)
		}
		dur, err := parseSeconds(line.Dur)
		if err != nil {
			return nil, errors.Wrapf(err, "segment duration %q", line.Dur)
		}
		segments = append(segments, Segment{
			Start:    start,
			Duration: dur,
			Text:     markupRE.ReplaceAllString(html.UnescapeString(line.Text), ""),
		})
	}
	return segments, nil
}

func parseSeconds(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
