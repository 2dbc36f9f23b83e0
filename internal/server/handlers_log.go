package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claude/replift/internal/models"
	"github.com/claude/replift/internal/tracker"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Sessions(r.Context(), tracker.SessionFilter{
		Start:   start,
		End:     end,
		Program: r.URL.Query().Get("program"),
	}))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.tracker.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleAddSession(w http.ResponseWriter, r *http.Request) {
	var sess models.Session
	if !decodeJSON(w, r, &sess) {
		return
	}
	added, err := s.tracker.AddSession(r.Context(), sess, s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Programs(r.Context()))
}

func (s *Server) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	p, err := s.tracker.Program(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleLastSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.tracker.LastSessionForProgram(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleAddProgram(w http.ResponseWriter, r *http.Request) {
	var p models.Program
	if !decodeJSON(w, r, &p) {
		return
	}
	if p.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}
	added, err := s.tracker.AddProgram(r.Context(), p, s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleUpdateProgram(w http.ResponseWriter, r *http.Request) {
	var p models.Program
	if !decodeJSON(w, r, &p) {
		return
	}
	if p.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}
	updated, err := s.tracker.UpdateProgram(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProgram(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteProgram(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetActiveSession(w http.ResponseWriter, r *http.Request) {
	a, err := s.tracker.ActiveSession(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type startSessionRequest struct {
	ProgramID string `json:"program_id"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProgramID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "program_id required"})
		return
	}
	a, err := s.tracker.StartSession(r.Context(), req.ProgramID, s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

type updateSessionRequest struct {
	Exercises []models.ExerciseEntry `json:"exercises"`
}

func (s *Server) handleUpdateActiveSession(w http.ResponseWriter, r *http.Request) {
	var req updateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := s.tracker.UpdateActiveSession(r.Context(), req.Exercises)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.tracker.FinishSession(r.Context(), s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DiscardActiveSession(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
