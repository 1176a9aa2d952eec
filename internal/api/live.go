package api

import (
	"errors"
	"net/http"

	"github.com/davisjt/quantcloud/internal/model"
	"github.com/davisjt/quantcloud/internal/store"
)

type createLiveRequest struct {
	ProjectID int    `json:"projectId"`
	CompileID string `json:"compileId"`
}

type readLiveRequest struct {
	ProjectID int    `json:"projectId"`
	DeployID  string `json:"deployId"`
}

type liveLogsRequest struct {
	ProjectID   int    `json:"projectId"`
	AlgorithmID string `json:"algorithmId"`
}

// liveCreateResponse flattens the deployment record into the success/errors
// envelope.
type liveCreateResponse struct {
	*model.LiveAlgorithm
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

type liveListResponse struct {
	Success    bool                   `json:"success"`
	Algorithms []*model.LiveAlgorithm `json:"Algorithms"`
	Errors     []string               `json:"errors"`
}

type liveLogsResponse struct {
	Success  bool     `json:"success"`
	LiveLogs []string `json:"LiveLogs"`
	Errors   []string `json:"errors"`
}

func (s *Server) handleCreateLive(w http.ResponseWriter, r *http.Request) {
	var req createLiveRequest
	if !s.decode(w, r, &req) {
		return
	}

	if _, err := s.store.GetProject(r.Context(), req.ProjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeAPIError(w, "Project not found")
			return
		}
		s.logger.Error("get project for live deploy", "error", err)
		s.writeServerError(w, "failed to deploy live algorithm")
		return
	}

	l := model.NewLiveAlgorithm(req.ProjectID)
	if err := s.store.CreateLive(r.Context(), l); err != nil {
		s.logger.Error("create live deployment", "error", err)
		s.writeServerError(w, "failed to deploy live algorithm")
		return
	}

	s.writeJSON(w, http.StatusOK, liveCreateResponse{
		LiveAlgorithm: l,
		Success:       true,
		Errors:        []string{},
	})
}

func (s *Server) handleReadLive(w http.ResponseWriter, r *http.Request) {
	var req readLiveRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.DeployID != "" {
		l, err := s.store.GetLive(r.Context(), req.DeployID)
		if errors.Is(err, store.ErrNotFound) {
			s.writeAPIError(w, "Live algorithm not found")
			return
		}
		if err != nil {
			s.logger.Error("get live deployment", "error", err)
			s.writeServerError(w, "failed to read live algorithm")
			return
		}
		s.writeJSON(w, http.StatusOK, liveListResponse{Success: true, Algorithms: []*model.LiveAlgorithm{l}, Errors: []string{}})
		return
	}

	deployments, err := s.store.ListLive(r.Context(), req.ProjectID)
	if err != nil {
		s.logger.Error("list live deployments", "error", err)
		s.writeServerError(w, "failed to list live algorithms")
		return
	}
	if deployments == nil {
		deployments = []*model.LiveAlgorithm{}
	}
	s.writeJSON(w, http.StatusOK, liveListResponse{Success: true, Algorithms: deployments, Errors: []string{}})
}

func (s *Server) handleStopLive(w http.ResponseWriter, r *http.Request) {
	s.updateLiveStatus(w, r, model.LiveStatusStopped)
}

func (s *Server) handleLiquidateLive(w http.ResponseWriter, r *http.Request) {
	s.updateLiveStatus(w, r, model.LiveStatusLiquidated)
}

func (s *Server) updateLiveStatus(w http.ResponseWriter, r *http.Request, status string) {
	var req readLiveRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.store.StopLive(r.Context(), req.ProjectID, status); err != nil {
		s.logger.Error("stop live deployments", "status", status, "error", err)
		s.writeServerError(w, "failed to update live algorithm")
		return
	}

	s.writeJSON(w, http.StatusOK, errorResponse{Success: true, Errors: []string{}})
}

func (s *Server) handleReadLiveLogs(w http.ResponseWriter, r *http.Request) {
	var req liveLogsRequest
	if !s.decode(w, r, &req) {
		return
	}

	logs := model.DefaultLiveLogs()
	if req.AlgorithmID != "" {
		l, err := s.store.GetLive(r.Context(), req.AlgorithmID)
		if err == nil {
			logs = l.Logs
		} else if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("get live deployment for logs", "error", err)
			s.writeServerError(w, "failed to read live logs")
			return
		}
	}

	s.writeJSON(w, http.StatusOK, liveLogsResponse{Success: true, LiveLogs: logs, Errors: []string{}})
}
