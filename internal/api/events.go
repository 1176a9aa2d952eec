package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/davisjt/quantcloud/internal/model"
	"github.com/davisjt/quantcloud/internal/store"
)

// handleJobEvents streams a job's lifecycle events (progress ticks, state
// changes) as server-sent events. Polling compile/read and backtests/read is
// the primary interface; this stream exists so test clients can follow a job
// without choosing a poll cadence.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	terminal, err := s.jobTerminal(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeAPIError(w, "Job not found")
		return
	}
	if err != nil {
		s.logger.Error("get job for events", "error", err)
		s.writeServerError(w, "failed to read job")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// A terminal job has no further events; return an empty stream.
	if terminal {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Disable the write timeout for the long-lived stream.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	// Safe even if the job finished between the terminal check and here:
	// subscribing to a finished stream returns a closed channel and the loop
	// exits immediately.
	ch, unsub := s.engine.Broker().Subscribe(id)
	defer unsub()

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
	}

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				_ = writeSSEEvent(w, "done", "stream complete")
				if canFlush {
					flusher.Flush()
				}
				return
			}
			if err := writeSSEData(w, event); err != nil {
				return // Client gone.
			}
			if canFlush {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

// jobTerminal looks the id up as a compile and then as a backtest, reporting
// whether the job already reached a terminal state.
func (s *Server) jobTerminal(ctx context.Context, id string) (bool, error) {
	c, err := s.store.GetCompile(ctx, id)
	if err == nil {
		return model.CompileTerminal(c.State), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	b, err := s.store.GetBacktest(ctx, id)
	if err != nil {
		return false, err
	}
	return b.Terminal(), nil
}

// writeSSEData writes an event as an SSE data record. Multi-line strings are
// split so that each segment gets its own "data:" prefix, per the SSE spec.
func writeSSEData(w http.ResponseWriter, event string) error {
	for _, seg := range strings.Split(event, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", seg); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, "\n")
	return err
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
