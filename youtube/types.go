package youtube

import (
	"strings"

	"github.com/pkg/errors"
)

// Track is one caption stream the provider offers for a video.
type Track struct {
	VideoID      string `json:"video_id"`
	LanguageCode string `json:"language_code"`
	Language     string `json:"language"`
	IsGenerated  bool   `json:"is_generated"`
	BaseURL      string `json:"-"`
}

// Segment is a single timed caption entry. Start and Duration are seconds.
type Segment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// TrackList keeps tracks in the order the provider enumerated them.
type TrackList []Track

// FindManual returns the first manually authored track matching one of the
// language codes, trying codes in order.
func (l TrackList) FindManual(languageCodes ...string) (Track, error) {
	return l.find(false, languageCodes)
}

// FindGenerated is FindManual for automatically generated tracks.
func (l TrackList) FindGenerated(languageCodes ...string) (Track, error) {
	return l.find(true, languageCodes)
}

func (l TrackList) find(generated bool, languageCodes []string) (Track, error) {
	for _, code := range languageCodes {
		for _, t := range l {
			if t.IsGenerated == generated && t.LanguageCode == code {
				return t, nil
			}
		}
	}
	return Track{}, errors.Wrapf(ErrNoTranscriptFound, "languages %s", strings.Join(languageCodes, ","))
}

// --- Innertube /player (ANDROID client) ---

type playerRequest struct {
	VideoID        string        `json:"videoId"`
	Context        playerContext `json:"context"`
	RacyCheckOk    bool          `json:"racyCheckOk"`
	ContentCheckOk bool          `json:"contentCheckOk"`
}

type playerContext struct {
	Client playerClient `json:"client"`
}

type playerClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type playerResponse struct {
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type captionTrack struct {
	BaseURL      string    `json:"baseUrl"`
	Name         trackName `json:"name"`
	LanguageCode string    `json:"languageCode"`
	Kind         string    `json:"kind"` // "asr" = auto-generated
}

type trackName struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (n trackName) String() string {
	if n.SimpleText != "" {
		return n.SimpleText
	}
	var sb strings.Builder
	for _, r := range n.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// --- timedtext XML ---

type timedText struct {
	Lines []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}
