package api

import (
	"net/http"
	"time"

	"github.com/entrhq/browserd/pkg/browser"
)

// Timeouts arrive in milliseconds, matching the driver convention
// clients already know.
func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

type visitRequest struct {
	URL      string `json:"url"`
	Headless *bool  `json:"headless,omitempty"`
	Timeout  int    `json:"timeout,omitempty"`
}

type visitResponse struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Headless  bool   `json:"headless"`
}

func (s *Server) handleVisit(w http.ResponseWriter, r *http.Request) {
	var req visitRequest
	if !decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		respondBadRequest(w, "url is required")
		return
	}

	sess, err := s.manager.Create(r.Context(), req.URL, req.Headless, msToDuration(req.Timeout))
	if err != nil {
		s.respondError(w, err)
		return
	}

	info, err := s.dispatcher.Info(r.Context(), sess.ID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, visitResponse{
		SessionID: sess.ID,
		Title:     info.Title,
		URL:       info.URL,
		Headless:  sess.Headless,
	})
}

type clickRequest struct {
	SessionID string `json:"session_id"`
	Selector  string `json:"selector"`
	Timeout   int    `json:"timeout,omitempty"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.Selector == "" {
		respondBadRequest(w, "session_id and selector are required")
		return
	}

	if err := s.dispatcher.Click(r.Context(), req.SessionID, req.Selector, msToDuration(req.Timeout)); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"session_id": req.SessionID,
		"message":    "clicked " + req.Selector,
	})
}

type typeRequest struct {
	SessionID string `json:"session_id"`
	Selector  string `json:"selector"`
	Text      string `json:"text"`
	Timeout   int    `json:"timeout,omitempty"`
}

func (s *Server) handleType(w http.ResponseWriter, r *http.Request) {
	var req typeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.Selector == "" {
		respondBadRequest(w, "session_id and selector are required")
		return
	}

	if err := s.dispatcher.Type(r.Context(), req.SessionID, req.Selector, req.Text, msToDuration(req.Timeout)); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"session_id": req.SessionID,
		"message":    "typed into " + req.Selector,
	})
}

type scrollRequest struct {
	SessionID string `json:"session_id"`
	Direction string `json:"direction,omitempty"`
	Pixels    int    `json:"pixels,omitempty"`
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	var req scrollRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		respondBadRequest(w, "session_id is required")
		return
	}
	if req.Direction == "" {
		req.Direction = string(browser.ScrollDown)
	}
	if req.Pixels <= 0 {
		req.Pixels = 500
	}
	direction := browser.ScrollDirection(req.Direction)
	switch direction {
	case browser.ScrollUp, browser.ScrollDown, browser.ScrollLeft, browser.ScrollRight:
	default:
		respondBadRequest(w, "direction must be one of up, down, left, right")
		return
	}

	if err := s.dispatcher.Scroll(r.Context(), req.SessionID, direction, req.Pixels); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"session_id": req.SessionID,
		"message":    "scrolled " + req.Direction,
	})
}

type waitRequest struct {
	SessionID string `json:"session_id"`
	Selector  string `json:"selector"`
	Timeout   int    `json:"timeout,omitempty"`
}

func (s *Server) handleWait(w http.ResponseWriter, r *http.Request) {
	var req waitRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		respondBadRequest(w, "session_id is required")
		return
	}

	// Without a selector the wait is a plain pause for timeout ms.
	if req.Selector == "" {
		if err := s.dispatcher.Sleep(r.Context(), req.SessionID, msToDuration(req.Timeout)); err != nil {
			s.respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{
			"session_id": req.SessionID,
			"message":    "waited",
		})
		return
	}

	if err := s.dispatcher.WaitFor(r.Context(), req.SessionID, req.Selector, msToDuration(req.Timeout)); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"session_id": req.SessionID,
		"message":    "element " + req.Selector + " appeared",
	})
}

type extractRequest struct {
	SessionID string `json:"session_id"`
	Selector  string `json:"selector"`
	Attribute string `json:"attribute,omitempty"`
}

type extractResponse struct {
	SessionID string   `json:"session_id"`
	Data      []string `json:"data"`
	Count     int      `json:"count"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.Selector == "" {
		respondBadRequest(w, "session_id and selector are required")
		return
	}

	values, err := s.dispatcher.Extract(r.Context(), req.SessionID, req.Selector, req.Attribute)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if values == nil {
		values = []string{}
	}
	respondJSON(w, http.StatusOK, extractResponse{
		SessionID: req.SessionID,
		Data:      values,
		Count:     len(values),
	})
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		respondBadRequest(w, "session_id is required")
		return
	}

	img, err := s.dispatcher.Screenshot(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		respondBadRequest(w, "session_id is required")
		return
	}

	info, err := s.dispatcher.Info(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"session_id": id,
		"title":      info.Title,
		"url":        info.URL,
	})
}

type closeRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		respondBadRequest(w, "session_id is required")
		return
	}

	if err := s.dispatcher.Close(r.Context(), req.SessionID); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": req.SessionID,
		"closed":     true,
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	summaries := s.manager.List()
	respondJSON(w, http.StatusOK, map[string]any{
		"sessions": summaries,
		"count":    len(summaries),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"environment": s.resolver.Environment(),
		"headless":    s.resolver.Resolve(nil).Headless,
		"sessions":    s.manager.Len(),
	})
}
