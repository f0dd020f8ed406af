// Package web exposes the robot over HTTP: a small dashboard, JSON
// control endpoints, an SSE event feed, and a websocket frame stream.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/swiftbotics/swiftbot/internal/debug"
)

// Server hosts the dashboard and control API.
type Server struct {
	srv    *http.Server
	events *EventBroadcaster
}

// NewServer builds the full route table over the device.
func NewServer(port int, dev Device, events *EventBroadcaster, recordingsDir string) *Server {
	mux := http.NewServeMux()
	NewHandlers(dev, events, recordingsDir).Register(mux)
	mux.Handle("GET /", http.FileServerFS(staticFS()))

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		events: events,
	}
}

// Events returns the server's broadcaster so other components (button
// relay, debug tee) can publish into the SSE feed.
func (s *Server) Events() *EventBroadcaster {
	return s.events
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		debug.Info("web interface listening on %s", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
