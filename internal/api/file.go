package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/davisjt/quantcloud/internal/model"
	"github.com/davisjt/quantcloud/internal/store"
)

type createFileRequest struct {
	ProjectID int    `json:"projectId"`
	Name      string `json:"name"`
	Content   string `json:"content"`
}

type readFilesRequest struct {
	ProjectID int    `json:"projectId"`
	FileName  string `json:"fileName"`
}

// filesResponse wraps file payloads in the success/errors envelope.
type filesResponse struct {
	Success bool                 `json:"success"`
	Files   []*model.ProjectFile `json:"files"`
	Errors  []string             `json:"errors"`
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var req createFileRequest
	if !s.decode(w, r, &req) {
		return
	}

	if _, err := s.store.GetProject(r.Context(), req.ProjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeJSON(w, http.StatusOK, filesResponse{Files: []*model.ProjectFile{}, Errors: []string{"Project not found"}})
			return
		}
		s.logger.Error("get project for file", "error", err)
		s.writeServerError(w, "failed to create file")
		return
	}

	f := &model.ProjectFile{
		Name:     req.Name,
		Content:  req.Content,
		Modified: time.Now().UTC(),
	}
	if err := s.store.PutFile(r.Context(), req.ProjectID, f); err != nil {
		s.logger.Error("put file", "error", err)
		s.writeServerError(w, "failed to create file")
		return
	}

	// The platform client expects the full file list back after a write.
	files, err := s.store.ListFiles(r.Context(), req.ProjectID)
	if err != nil {
		s.logger.Error("list files", "error", err)
		s.writeServerError(w, "failed to list files")
		return
	}

	s.writeJSON(w, http.StatusOK, filesResponse{Success: true, Files: files, Errors: []string{}})
}

func (s *Server) handleReadFiles(w http.ResponseWriter, r *http.Request) {
	var req readFilesRequest
	if !s.decode(w, r, &req) {
		return
	}

	if _, err := s.store.GetProject(r.Context(), req.ProjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeJSON(w, http.StatusOK, filesResponse{Files: []*model.ProjectFile{}, Errors: []string{"Project not found"}})
			return
		}
		s.logger.Error("get project for files", "error", err)
		s.writeServerError(w, "failed to read files")
		return
	}

	if req.FileName != "" {
		f, err := s.store.GetFile(r.Context(), req.ProjectID, req.FileName)
		if errors.Is(err, store.ErrNotFound) {
			s.writeJSON(w, http.StatusOK, filesResponse{Files: []*model.ProjectFile{}, Errors: []string{"File not found"}})
			return
		}
		if err != nil {
			s.logger.Error("get file", "error", err)
			s.writeServerError(w, "failed to read file")
			return
		}
		s.writeJSON(w, http.StatusOK, filesResponse{Success: true, Files: []*model.ProjectFile{f}, Errors: []string{}})
		return
	}

	files, err := s.store.ListFiles(r.Context(), req.ProjectID)
	if err != nil {
		s.logger.Error("list files", "error", err)
		s.writeServerError(w, "failed to list files")
		return
	}
	if files == nil {
		files = []*model.ProjectFile{}
	}
	s.writeJSON(w, http.StatusOK, filesResponse{Success: true, Files: files, Errors: []string{}})
}
