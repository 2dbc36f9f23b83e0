package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/claude/replift/internal/analytics"
	"github.com/claude/replift/internal/storage"
	"github.com/claude/replift/internal/tracker"
)

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Overview(r.Context(), s.now()))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Summary(r.Context(), s.now()))
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	local := now.In(s.tracker.Location())
	year, month := local.Year(), local.Month()

	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid year"})
			return
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid month"})
			return
		}
		month = time.Month(m)
	}
	writeJSON(w, http.StatusOK, s.tracker.Calendar(r.Context(), year, month, now))
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	writeJSON(w, http.StatusOK, s.tracker.Records(r.Context(), limit))
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	a, err := s.tracker.Achievements(r.Context(), s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleEvolutions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Evolutions(r.Context()))
}

func (s *Server) handleEvolution(w http.ResponseWriter, r *http.Request) {
	period, err := analytics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid exercise name"})
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Evolution(r.Context(), name, period, s.now()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, tracker.ErrNoActiveSession):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, tracker.ErrEmptySession):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		s.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// decodeJSON reads a JSON request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

const maxBodySize = 32 << 20

// parseTimeRange reads optional start/end query parameters. A date-only end
// covers the whole day. Missing bounds are left zero.
func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	if v := r.URL.Query().Get("start"); v != "" {
		start, _, err = parseFlexTime(v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
		}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		var dateOnly bool
		end, dateOnly, err = parseFlexTime(v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
		}
		if dateOnly {
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return start, end, nil
}

func parseFlexTime(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	return t, true, err
}
