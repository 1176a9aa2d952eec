package api

import "net/http"

type dataReadResponse struct {
	Success bool     `json:"success"`
	Link    string   `json:"link"`
	Errors  []string `json:"errors"`
}

// sampleDataLink is the canned download link returned for every data read.
const sampleDataLink = "https://example.com/data/sample.csv"

func (s *Server) handleReadData(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID int `json:"projectId"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	s.writeJSON(w, http.StatusOK, dataReadResponse{
		Success: true,
		Link:    sampleDataLink,
		Errors:  []string{},
	})
}

type rootResponse struct {
	Message        string   `json:"message"`
	Version        string   `json:"version"`
	Endpoints      []string `json:"endpoints"`
	Authentication string   `json:"authentication"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, rootResponse{
		Message: "quantcloud mock algorithm platform",
		Version: "1.0.0",
		Endpoints: []string{
			"/api/v2/authenticate",
			"/api/v2/projects/create",
			"/api/v2/projects/read",
			"/api/v2/files/create",
			"/api/v2/files/read",
			"/api/v2/compile/create",
			"/api/v2/compile/read",
			"/api/v2/backtests/create",
			"/api/v2/backtests/read",
			"/api/v2/backtests/read/report",
			"/api/v2/live/create",
			"/api/v2/live/read",
			"/api/v2/data/read",
			"/health",
			"/metrics",
		},
		Authentication: "Bearer token required",
	})
}
