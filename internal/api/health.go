package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
	ProjectsCount  int    `json:"projects_count"`
	CompilesCount  int    `json:"compiles_count"`
	BacktestsCount int    `json:"backtests_count"`
	LiveCount      int    `json:"live_count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.Counts(r.Context())
	if err != nil {
		s.logger.Error("entity counts", "error", err)
		s.writeServerError(w, "failed to read entity counts")
		return
	}

	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:         "healthy",
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		ProjectsCount:  counts.Projects,
		CompilesCount:  counts.Compiles,
		BacktestsCount: counts.Backtests,
		LiveCount:      counts.Live,
	})
}
