package api

import (
	"errors"
	"net/http"

	"github.com/davisjt/quantcloud/internal/model"
	"github.com/davisjt/quantcloud/internal/store"
)

type createBacktestRequest struct {
	ProjectID    int    `json:"projectId"`
	CompileID    string `json:"compileId"`
	BacktestName string `json:"backtestName"`
}

type readBacktestsRequest struct {
	ProjectID  int    `json:"projectId"`
	BacktestID string `json:"backtestId"`
}

// backtestListResponse wraps the all-backtests-for-a-project read.
type backtestListResponse struct {
	Success   bool              `json:"success"`
	Backtests []*model.Backtest `json:"backtests"`
	Errors    []string          `json:"errors"`
}

type backtestReportResponse struct {
	Success bool     `json:"success"`
	Report  string   `json:"report"`
	Errors  []string `json:"errors"`
}

// backtestReport mirrors the fixed statistics every simulated backtest ends
// with.
const backtestReport = `
    <html>
    <head><title>Backtest Report</title></head>
    <body>
        <h1>Backtest Report</h1>
        <p>This is a mock backtest report for demonstration purposes.</p>
        <p>Total Trades: 25</p>
        <p>Win Rate: 68%</p>
        <p>Total Return: 15%</p>
        <p>Sharpe Ratio: 1.2</p>
    </body>
    </html>
    `

// handleCreateBacktest allocates a backtest job record at zero progress and
// hands it to the engine. The compile id is recorded but not validated.
func (s *Server) handleCreateBacktest(w http.ResponseWriter, r *http.Request) {
	var req createBacktestRequest
	if !s.decode(w, r, &req) {
		return
	}

	if _, err := s.store.GetProject(r.Context(), req.ProjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeAPIError(w, "Project not found")
			return
		}
		s.logger.Error("get project for backtest", "error", err)
		s.writeServerError(w, "failed to create backtest")
		return
	}

	b := model.NewBacktest(req.ProjectID, req.CompileID, req.BacktestName)
	if err := s.engine.SubmitBacktest(r.Context(), b); err != nil {
		s.logger.Error("submit backtest", "error", err)
		s.writeServerError(w, "failed to create backtest")
		return
	}

	s.writeJSON(w, http.StatusOK, b)
}

// handleReadBacktests returns the current snapshot of one backtest, or every
// backtest of a project when backtestId is omitted.
func (s *Server) handleReadBacktests(w http.ResponseWriter, r *http.Request) {
	var req readBacktestsRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.BacktestID != "" {
		b, err := s.store.GetBacktest(r.Context(), req.BacktestID)
		if errors.Is(err, store.ErrNotFound) {
			s.writeAPIError(w, "Backtest not found")
			return
		}
		if err != nil {
			s.logger.Error("get backtest", "error", err)
			s.writeServerError(w, "failed to read backtest")
			return
		}
		s.writeJSON(w, http.StatusOK, b)
		return
	}

	backtests, err := s.store.ListBacktests(r.Context(), req.ProjectID)
	if err != nil {
		s.logger.Error("list backtests", "error", err)
		s.writeServerError(w, "failed to list backtests")
		return
	}
	if backtests == nil {
		backtests = []*model.Backtest{}
	}
	s.writeJSON(w, http.StatusOK, backtestListResponse{Success: true, Backtests: backtests, Errors: []string{}})
}

func (s *Server) handleReadBacktestReport(w http.ResponseWriter, r *http.Request) {
	var req readBacktestsRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.writeJSON(w, http.StatusOK, backtestReportResponse{
		Success: true,
		Report:  backtestReport,
		Errors:  []string{},
	})
}
