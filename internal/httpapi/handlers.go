package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"mergeanddown/internal/core/domain"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]bool, len(s.opts.Dependencies))
	status := http.StatusOK
	for name, check := range s.opts.Dependencies {
		ok := check()
		deps[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, map[string]any{
		"ok":           status == http.StatusOK,
		"dependencies": deps,
	})
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	raw := query(r, "url")
	if raw == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}

	classified, err := s.opts.Catalog.Classified(r.Context(), domain.MediaID(raw))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewQualityView(classified))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	page := query(r, "url")
	if page == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}

	links, err := s.opts.Finder.FindLinks(r.Context(), page)
	if err != nil {
		s.logger.Error().Err(err).Str("page", page).Msg("page scan failed")
		http.Error(w, "failed to search the page", http.StatusBadGateway)
		return
	}
	if links == nil {
		links = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": page, "videos": links})
}

func (s *Server) handleMergeDownload(w http.ResponseWriter, r *http.Request) {
	raw, video, audio := query(r, "url"), query(r, "videoItag"), query(r, "audioItag")
	if raw == "" || video == "" || audio == "" {
		http.Error(w, "incomplete parameters: url, videoItag and audioItag are required", http.StatusBadRequest)
		return
	}

	dst := &responseDelivery{w: w}
	err := s.opts.Merger.MuxDownload(r.Context(), domain.MergeRequest{
		Media:           domain.MediaID(raw),
		VideoEncodingID: video,
		AudioEncodingID: audio,
	}, dst)
	if err != nil {
		s.failDelivery(w, r, dst, err)
	}
}

func (s *Server) handleDirectDownload(w http.ResponseWriter, r *http.Request) {
	raw, itag := query(r, "url"), query(r, "itag")
	if raw == "" || itag == "" {
		http.Error(w, "incomplete parameters: url and itag are required", http.StatusBadRequest)
		return
	}

	dst := &responseDelivery{w: w}
	err := s.opts.Direct.Download(r.Context(), domain.DirectRequest{
		Media:      domain.MediaID(raw),
		EncodingID: itag,
	}, dst)
	if err != nil {
		s.failDelivery(w, r, dst, err)
	}
}

// failDelivery reports err unless the body already started, in which case
// the only honest signal left is a truncated response.
func (s *Server) failDelivery(w http.ResponseWriter, r *http.Request, dst *responseDelivery, err error) {
	if dst.started() {
		s.logger.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int64("bytes", dst.written).
			Msg("download aborted mid-response")
		return
	}
	dst.reset()
	s.fail(w, r, err)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	evt := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		evt = s.logger.Error()
	}
	evt.Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("kind", string(domain.KindOf(err))).
		Int("status", status).
		Msg("request failed")
	http.Error(w, messageFor(err), status)
}

func query(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
