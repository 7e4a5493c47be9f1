// Package handlers exposes the transcript service over HTTP.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/nijaru/yt-transcript/db"
	"github.com/nijaru/yt-transcript/middleware"
	"github.com/nijaru/yt-transcript/transcript"
	"github.com/nijaru/yt-transcript/utils"
	"github.com/nijaru/yt-transcript/validation"
	"github.com/sirupsen/logrus"
)

// TranscriptService is the part of transcript.Service the handlers call.
type TranscriptService interface {
	SelectAndFetch(ctx context.Context, videoID string, languages []string) transcript.Result
	ListLanguages(ctx context.Context, videoID string) transcript.LanguageList
	DefaultLanguages() []string
}

// Recorder receives one entry per lookup. *db.Journal implements it.
type Recorder interface {
	Record(ctx context.Context, l db.Lookup) error
}

type Handler struct {
	service  TranscriptService
	recorder Recorder
	logger   *logrus.Logger
}

func NewHandler(service TranscriptService, recorder Recorder, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		service:  service,
		recorder: recorder,
		logger:   logger,
	}
}

// HandleTranscript serves GET /api/transcript?v=<id>&lang=<codes>. Lookup
// failures are reported in the body with status 200.
func (h *Handler) HandleTranscript(w http.ResponseWriter, r *http.Request) {
	videoID := strings.TrimSpace(r.URL.Query().Get("v"))
	if err := validation.ValidateVideoID(videoID); err != nil {
		utils.HandleError(w, "v parameter is required", http.StatusBadRequest)
		return
	}

	languages := h.service.DefaultLanguages()
	if query := r.URL.Query(); query.Has("lang") {
		languages = ParseLanguages(query.Get("lang"))
	}
	result := h.service.SelectAndFetch(r.Context(), videoID, languages)

	h.record(r, db.Lookup{
		VideoID:          videoID,
		Operation:        db.OperationTranscript,
		Languages:        languages,
		SelectedLanguage: result.Language,
		IsGenerated:      result.IsGenerated,
		Success:          result.Success,
		ErrorKind:        string(result.ErrorKind),
		SegmentCount:     len(result.Segments),
	})

	utils.RespondWithJSON(w, http.StatusOK, result)
}

// HandleLanguages serves GET /api/languages?v=<id>.
func (h *Handler) HandleLanguages(w http.ResponseWriter, r *http.Request) {
	videoID := strings.TrimSpace(r.URL.Query().Get("v"))
	if err := validation.ValidateVideoID(videoID); err != nil {
		utils.HandleError(w, "v parameter is required", http.StatusBadRequest)
		return
	}

	list := h.service.ListLanguages(r.Context(), videoID)

	h.record(r, db.Lookup{
		VideoID:   videoID,
		Operation: db.OperationLanguages,
		Success:   list.Success,
		ErrorKind: string(list.ErrorKind),
	})

	utils.RespondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// record writes to the journal when one is configured. Journal errors are
// logged and never change the response.
func (h *Handler) record(r *http.Request, l db.Lookup) {
	if h.recorder == nil {
		return
	}
	if err := h.recorder.Record(r.Context(), l); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.RequestIDFromContext(r.Context()),
			"video_id":   l.VideoID,
		}).Warn("Failed to record lookup")
	}
}

// ParseLanguages splits a comma-separated priority list into trimmed,
// non-empty codes. A blank list yields an empty, non-nil slice.
func ParseLanguages(raw string) []string {
	languages := []string{}
	for _, code := range strings.Split(raw, ",") {
		if code = strings.TrimSpace(code); code != "" {
			languages = append(languages, code)
		}
	}
	return languages
}
