// Package api is the thin HTTP marshaling layer over the browser
// session core. Handlers decode requests, call the dispatcher and
// encode results; all session semantics live in pkg/browser.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/entrhq/browserd/pkg/browser"
)

// Server hosts the JSON/HTTP agent API.
type Server struct {
	manager    *browser.Manager
	dispatcher *browser.Dispatcher
	resolver   *browser.Resolver
	log        logrus.FieldLogger
}

// NewServer builds the HTTP layer over an existing manager and
// dispatcher.
func NewServer(m *browser.Manager, d *browser.Dispatcher, r *browser.Resolver, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{manager: m, dispatcher: d, resolver: r, log: log}
}

// Routes returns the server's router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/agent", func(r chi.Router) {
		r.Post("/visit", s.handleVisit)
		r.Post("/click", s.handleClick)
		r.Post("/type", s.handleType)
		r.Post("/scroll", s.handleScroll)
		r.Post("/wait", s.handleWait)
		r.Post("/extract", s.handleExtract)
		r.Get("/screenshot", s.handleScreenshot)
		r.Get("/info", s.handleInfo)
		r.Post("/close", s.handleClose)
		r.Get("/sessions", s.handleSessions)
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch browser.CodeOf(err) {
	case browser.CodeSessionNotFound, browser.CodeSessionClosed:
		return http.StatusNotFound
	case browser.CodeSessionBusy:
		return http.StatusConflict
	case browser.CodeElementNotFound:
		return http.StatusUnprocessableEntity
	case browser.CodeNavigation:
		return http.StatusBadGateway
	case browser.CodeActionTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(err), errorResponse{
		Error: err.Error(),
		Code:  string(browser.CodeOf(err)),
	})
}

func respondBadRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondBadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}
