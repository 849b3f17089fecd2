package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mattjoyce/hearth/internal/history"
	"github.com/mattjoyce/hearth/internal/schedule"
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	st := s.engine.Stats()
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		BootID:        st.BootID,
		Running:       st.Running,
		Tick:          st.Tick,
		FPS:           st.FPS,
	})
}

// handleSchedule handles GET /schedule.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	plan := s.engine.Plan()
	if plan == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no schedule committed")
		return
	}
	par := plan.Schedule(schedule.Parallel)
	names := par.Names()

	var waves [][]string
	for _, wave := range par.Waves() {
		labels := make([]string, len(wave))
		for i, idx := range wave {
			labels[i] = names[idx]
		}
		waves = append(waves, labels)
	}

	st := s.engine.Stats()
	respondJSON(w, http.StatusOK, ScheduleResponse{
		BootID:      st.BootID,
		Workers:     st.Workers,
		Parallel:    par,
		ThreadLocal: plan.Schedule(schedule.ThreadLocal),
		Waves:       waves,
	})
}

// handleProfile handles GET /profile?format=csv|json&boot=<id>. Without a
// boot id it serves the live engine; with one it reads the history store.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	bootID := r.URL.Query().Get("boot")

	if bootID != "" && bootID != s.engine.Stats().BootID {
		if s.history == nil {
			s.writeError(w, http.StatusNotFound, "history not available")
			return
		}
		boot, totals, err := s.history.LastProfile(r.Context(), bootID)
		if errors.Is(err, history.ErrNoHistory) {
			s.writeError(w, http.StatusNotFound, "no profile recorded for boot")
			return
		}
		if err != nil {
			s.logger.Error("failed to read profile history", "boot_id", bootID, "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to read profile history")
			return
		}
		respondJSON(w, http.StatusOK, ProfileResponse{BootID: boot, Totals: totals})
		return
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s.engine.ProfileCSV()))
	case "", "json":
		respondJSON(w, http.StatusOK, ProfileResponse{
			BootID: s.engine.Stats().BootID,
			Live:   true,
			Totals: s.engine.Profile(),
		})
	default:
		s.writeError(w, http.StatusBadRequest, "format must be csv or json")
	}
}

// handleHistory handles GET /history?limit=N.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, "history not available")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	snaps, err := s.history.ListSchedules(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list schedules", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list schedules")
		return
	}
	respondJSON(w, http.StatusOK, HistoryResponse{Schedules: snaps})
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
