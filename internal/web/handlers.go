package web

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

const defaultListLimit = 100

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.service.Status())
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.service.ActiveLevelSnapshots())
}

func (s *Server) handleCompletedLevels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.service.CompletedLevelSnapshots())
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.service.LiveOrders())
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := s.audit.ListCycles(r.Context(), listLimit(r))
	if err != nil {
		s.logger.Error("Failed to list cycles", zap.Error(err))
		http.Error(w, "Failed to list cycles", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, cycles)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.audit.ListEvents(r.Context(), listLimit(r))
	if err != nil {
		s.logger.Error("Failed to list events", zap.Error(err))
		http.Error(w, "Failed to list events", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, events)
}

func (s *Server) handleCloseAll(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ForceCloseAll(r.Context()); err != nil {
		s.logger.Error("Failed to close all levels", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]string{"result": "ok"})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	drift, corrected, err := s.service.Reconcile(r.Context())
	if err != nil {
		s.logger.Error("Reconcile failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"drift":     drift,
		"corrected": corrected,
	})
}

func listLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return limit
}
