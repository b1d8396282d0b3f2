package server

import (
	"net/http"
	"runtime"
	"time"
)

type infoResponse struct {
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	GoVersion string   `json:"go_version"`
	Uptime    string   `json:"uptime"`
	Handlers  []string `json:"handlers"`
	Audit     bool     `json:"audit"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, infoResponse{
		Service:   "docbatch",
		Version:   "0.1.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Handlers:  s.queue.Registry().Names(),
		Audit:     s.audit != nil,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, map[string]any{
		"status": "healthy",
		"queue":  s.queue.Stats(),
	})
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, s.queue.Stats())
}

func (s *Server) handleClearCompleted(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	removed := s.queue.ClearCompleted()
	s.logger.Info("completed operations cleared", "removed", removed)
	respondOK(w, reqID, map[string]int{"removed": removed})
}
