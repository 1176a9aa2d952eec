package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const maxBodySize = 1 << 20 // 1 MB

// errorResponse is the uniform error payload: the platform client inspects
// success/errors fields rather than HTTP status codes.
type errorResponse struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeAPIError reports a recoverable condition such as an unknown id. These
// go out as HTTP 200 with success:false, matching the platform contract.
func (s *Server) writeAPIError(w http.ResponseWriter, messages ...string) {
	s.writeJSON(w, http.StatusOK, errorResponse{Errors: messages})
}

// writeServerError reports an internal fault in the payload error shape.
func (s *Server) writeServerError(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{Errors: []string{message}})
}

// decode parses the JSON request body into v, reporting malformed input to
// the client. An empty body is accepted and leaves v at its zero value, since
// several read endpoints treat all parameters as optional.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Errors: []string{"Invalid JSON body"}})
		return false
	}
	return true
}
