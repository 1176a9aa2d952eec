package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/davisjt/quantcloud/internal/model"
	"github.com/davisjt/quantcloud/internal/store"
)

type createProjectRequest struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

type readProjectsRequest struct {
	ProjectID int `json:"projectId"`
}

// projectsResponse wraps project payloads in the success/errors envelope.
type projectsResponse struct {
	Success  bool             `json:"success"`
	Projects []*model.Project `json:"projects"`
	Errors   []string         `json:"errors"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		req.Name = "Untitled Project"
	}
	if req.Language == "" {
		req.Language = "C#"
	}

	now := time.Now().UTC()
	p := &model.Project{
		Name:     req.Name,
		Language: req.Language,
		Created:  now,
		Modified: now,
	}
	if err := s.store.CreateProject(r.Context(), p); err != nil {
		s.logger.Error("create project", "error", err)
		s.writeServerError(w, "failed to create project")
		return
	}

	s.writeJSON(w, http.StatusOK, projectsResponse{
		Success:  true,
		Projects: []*model.Project{p},
		Errors:   []string{},
	})
}

func (s *Server) handleReadProjects(w http.ResponseWriter, r *http.Request) {
	var req readProjectsRequest
	if !s.decode(w, r, &req) {
		return
	}

	// A zero projectId means list everything.
	if req.ProjectID == 0 {
		projects, err := s.store.ListProjects(r.Context())
		if err != nil {
			s.logger.Error("list projects", "error", err)
			s.writeServerError(w, "failed to list projects")
			return
		}
		if projects == nil {
			projects = []*model.Project{}
		}
		s.writeJSON(w, http.StatusOK, projectsResponse{Success: true, Projects: projects, Errors: []string{}})
		return
	}

	p, err := s.store.GetProject(r.Context(), req.ProjectID)
	if errors.Is(err, store.ErrNotFound) {
		s.writeJSON(w, http.StatusOK, projectsResponse{Projects: []*model.Project{}, Errors: []string{"Project not found"}})
		return
	}
	if err != nil {
		s.logger.Error("get project", "error", err)
		s.writeServerError(w, "failed to get project")
		return
	}

	s.writeJSON(w, http.StatusOK, projectsResponse{Success: true, Projects: []*model.Project{p}, Errors: []string{}})
}
