// Package server exposes the assessment pipeline and list management over
// HTTP.
package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pagesentry/internal/aggregator"
	"pagesentry/internal/blocklist"
	"pagesentry/internal/common"
	"pagesentry/internal/detector"
	"pagesentry/internal/pagetext"
)

// Server wires the HTTP API.
type Server struct {
	agg        *aggregator.Aggregator
	controller *detector.Controller
	lists      *blocklist.Manager
	router     *mux.Router
	logger     *slog.Logger
}

// New creates a server. Pass nil for logger to disable logging.
func New(agg *aggregator.Aggregator, controller *detector.Controller, lists *blocklist.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		agg:        agg,
		controller: controller,
		lists:      lists,
		router:     mux.NewRouter(),
		logger:     logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/v1/assess", s.handleAssess).Methods(http.MethodPost)

	s.router.HandleFunc("/v1/blacklist", s.handleListHosts).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/blacklist", s.handleAddHost).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/blacklist/{host}", s.handleRemoveHost).Methods(http.MethodDelete)

	s.router.HandleFunc("/v1/keywords", s.handleListKeywords).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/keywords", s.handleAddKeyword).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/keywords/{word}", s.handleRemoveKeyword).Methods(http.MethodDelete)

	s.router.HandleFunc("/v1/active", s.handleSetActive).Methods(http.MethodPut)
	s.router.HandleFunc("/v1/status", s.handleStatus).Methods(http.MethodGet)
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler { return s.router }

// StartMetrics serves the prometheus endpoint on its own listener.
func (s *Server) StartMetrics(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server error", "error", err)
		}
	}()
}

type assessRequest struct {
	URL       string `json:"url"`
	PageText  string `json:"page_text,omitempty"`
	FetchPage bool   `json:"fetch_page,omitempty"`
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	if req.FetchPage && req.PageText == "" {
		text, err := pagetext.Fetch(r.Context(), nil, req.URL)
		if err != nil {
			// The assessment still runs on the URL alone.
			s.logger.Warn("page fetch failed", "url", req.URL, "error", err)
		} else {
			req.PageText = text
		}
	}

	assessment := s.agg.Assess(r.Context(), aggregator.Query{URL: req.URL, PageText: req.PageText})
	s.writeJSON(w, http.StatusOK, assessment)
}

func (s *Server) handleListHosts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"hosts": s.lists.Hosts(r.Context())})
}

type hostRequest struct {
	Host string `json:"host"`
}

func (s *Server) handleAddHost(w http.ResponseWriter, r *http.Request) {
	var req hostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Host == "" {
		s.writeError(w, http.StatusBadRequest, "host is required")
		return
	}
	added, err := s.lists.AddHost(r.Context(), req.Host)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "storing host failed")
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, map[string]any{"host": blocklist.NormalizeHost(req.Host), "added": added})
}

func (s *Server) handleRemoveHost(w http.ResponseWriter, r *http.Request) {
	host := mux.Vars(r)["host"]
	removed, err := s.lists.RemoveHost(r.Context(), host)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "removing host failed")
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "host not on the blacklist")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"host": blocklist.NormalizeHost(host), "removed": true})
}

func (s *Server) handleListKeywords(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"keywords": s.lists.Keywords(r.Context())})
}

type keywordRequest struct {
	Word string `json:"word"`
}

func (s *Server) handleAddKeyword(w http.ResponseWriter, r *http.Request) {
	var req keywordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Word == "" {
		s.writeError(w, http.StatusBadRequest, "word is required")
		return
	}
	added, err := s.lists.AddKeyword(r.Context(), req.Word)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "storing keyword failed")
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, map[string]any{"word": req.Word, "added": added})
}

func (s *Server) handleRemoveKeyword(w http.ResponseWriter, r *http.Request) {
	word := mux.Vars(r)["word"]
	removed, err := s.lists.RemoveKeyword(r.Context(), word)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "removing keyword failed")
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "keyword not on the custom list")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"word": word, "removed": true})
}

type activeRequest struct {
	Active bool `json:"active"`
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.controller.SetActive(r.Context(), req.Active); err != nil {
		s.writeError(w, http.StatusInternalServerError, "updating active flag failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"active": req.Active})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"version":        common.Version,
		"active":         s.controller.Active(),
		"blacklist_size": len(s.lists.Hosts(r.Context())),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
