package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// handleHealth returns service health
// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := s.db.Conn().Ping(); err != nil {
		status = "degraded"
		s.log.Error().Err(err).Msg("Database ping failed")
	}

	s.writeJSON(w, map[string]string{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleRunPipeline triggers a full pipeline run in the background
// POST /api/pipeline/run
func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	// The run outlives the request; progress is visible via /api/pipeline/runs.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := s.pipeline.Run(ctx); err != nil {
			s.log.Error().Err(err).Msg("Triggered pipeline run failed")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "started",
		"message": "Pipeline run started, see /api/pipeline/runs",
	}); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// handleReplayPipeline re-runs enrichment against the latest raw snapshot
// POST /api/pipeline/replay
func (s *Server) handleReplayPipeline(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 50*time.Second)
	defer cancel()

	run, err := s.pipeline.Replay(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Replay failed")
		http.Error(w, "Replay failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, run)
}

// handleListRuns returns recent pipeline runs
// GET /api/pipeline/runs?limit=N
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := s.runs.ListRuns(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list runs")
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, runs)
}

// writeJSON writes JSON response
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
