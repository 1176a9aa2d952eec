package api

import (
	"errors"
	"net/http"

	"github.com/davisjt/quantcloud/internal/model"
	"github.com/davisjt/quantcloud/internal/store"
)

type createCompileRequest struct {
	ProjectID int `json:"projectId"`
}

type readCompileRequest struct {
	ProjectID int    `json:"projectId"`
	CompileID string `json:"compileId"`
}

// handleCreateCompile allocates a compile job record and hands it to the
// engine, which simulates the build in the background. The response is the
// initial queued snapshot.
func (s *Server) handleCreateCompile(w http.ResponseWriter, r *http.Request) {
	var req createCompileRequest
	if !s.decode(w, r, &req) {
		return
	}

	if _, err := s.store.GetProject(r.Context(), req.ProjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeAPIError(w, "Project not found")
			return
		}
		s.logger.Error("get project for compile", "error", err)
		s.writeServerError(w, "failed to create compile job")
		return
	}

	c := model.NewCompile(req.ProjectID)
	if err := s.engine.SubmitCompile(r.Context(), c); err != nil {
		s.logger.Error("submit compile", "error", err)
		s.writeServerError(w, "failed to create compile job")
		return
	}

	s.writeJSON(w, http.StatusOK, c)
}

// handleReadCompile returns the current snapshot of a compile job. It never
// waits for the job to finish; clients poll until they observe a terminal
// state.
func (s *Server) handleReadCompile(w http.ResponseWriter, r *http.Request) {
	var req readCompileRequest
	if !s.decode(w, r, &req) {
		return
	}

	c, err := s.store.GetCompile(r.Context(), req.CompileID)
	if errors.Is(err, store.ErrNotFound) {
		s.writeAPIError(w, "Compile job not found")
		return
	}
	if err != nil {
		s.logger.Error("get compile", "error", err)
		s.writeServerError(w, "failed to read compile job")
		return
	}

	s.writeJSON(w, http.StatusOK, c)
}
