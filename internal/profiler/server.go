// Package profiler exposes pprof over HTTP for long-running watch mode.
package profiler

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/hay-kot/daygap/internal/core/logging"
)

// Server serves the pprof handlers on a loopback-only listener.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	port       int
}

// New builds a profiler server for the given port. Port 0 picks a free one.
func New(port int) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return &Server{
		httpServer: &http.Server{Handler: mux},
		port:       port,
	}
}

// Start begins serving. The listener binds to localhost only; pprof is a
// debugging tool, never a network surface.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("create listener: %w", err)
	}
	s.listener = listener

	logger := logging.Component("profiler")
	logger.Info().
		Str("addr", listener.Addr().String()).
		Msg("profiler listening")

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("profiler failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting for in-flight profile requests.
func (s *Server) Shutdown(ctx context.Context) error {
	logger := logging.Component("profiler")
	logger.Info().Msg("profiler stopping")
	return s.httpServer.Shutdown(ctx)
}
