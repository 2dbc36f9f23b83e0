package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/claude/replift/internal/ingest"
	"github.com/claude/replift/internal/ingest/document"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := document.Encode(&buf, s.tracker.Export(r.Context())); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", document.BackupFilename(s.now())))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	doc, err := document.Decode(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		msg := err.Error()
		if errors.Is(err, document.ErrInvalidDocument) {
			msg = "invalid format: expected programs or sessions"
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if err := s.tracker.Import(r.Context(), doc); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"programs": len(doc.Programs),
		"sessions": len(doc.Sessions),
	})
}

func (s *Server) handleImportAlpha(w http.ResponseWriter, r *http.Request) {
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	result, err := s.tracker.ImportAlpha(r.Context(), http.MaxBytesReader(w, r.Body, maxBodySize), s.now(), dryRun)
	if errors.Is(err, ingest.ErrInvalidInput) {
		s.log.Warn("alpha import rejected", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Reset(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
