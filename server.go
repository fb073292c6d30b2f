package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes agent status over HTTP.
type Server struct {
	token    string
	updater  *CardUpdater
	gatherer prometheus.Gatherer
	log      *zap.Logger
}

func newServer(token string, updater *CardUpdater, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	return &Server{
		token:    token,
		updater:  updater,
		gatherer: gatherer,
		log:      log,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, map[string]string{"status": "ok"})
	})
	mux.Handle("/groups", s.requireAuth(http.HandlerFunc(s.handleGroups)))
	mux.Handle("/card", s.requireAuth(http.HandlerFunc(s.handleCard)))
	mux.Handle("/metrics", s.requireAuth(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	return mux
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !checkAuth(r, s.token) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleGroups lists the last recorded attempt per group.
func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	attempts := s.updater.throttle.snapshot()
	result := make(map[string]string, len(attempts))
	for _, a := range attempts {
		result[strconv.FormatInt(a.GroupID, 10)] = a.At.Format(time.RFC3339)
	}
	s.writeJSON(w, result)
}

// handleCard previews the card from the stored snapshot without sampling.
func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	tmpl := loadTemplate(s.updater.templatePath, s.log)
	fields := latestFields(r.Context(), s.updater.store, nil, s.log)
	s.writeJSON(w, map[string]string{"card": tmpl.Render(fields)})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("writing response", zap.Error(err))
	}
}
