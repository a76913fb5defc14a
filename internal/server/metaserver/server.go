// Package metaserver exposes the MetadataNode façade over HTTP: a
// small JSON admin/status API plus the Prometheus metrics endpoint
// gateways and operators poll directly.
package metaserver

import (
	"context"
	"net/http"
)

// Server wraps the HTTP listener around a Handler.
type Server struct {
	httpServer *http.Server
}

// New creates a Server bound to addr, serving handler.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: handler,
		},
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
