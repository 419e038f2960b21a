// Package httpbridge exposes the bridge API the browser extension's
// popup, options page and background script talk to.
package httpbridge

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/altsmith/altbridge/pkg/config"
	"github.com/altsmith/altbridge/pkg/orchestrator"
)

// Server represents the bridge HTTP server.
type Server struct {
	store    *config.Store
	orch     *orchestrator.Orchestrator
	hub      *EventHub
	debounce *Debouncer
	mux      *http.ServeMux
	ctx      context.Context
}

// NewServer creates a new bridge server.
func NewServer(ctx context.Context, store *config.Store, orch *orchestrator.Orchestrator) *Server {
	server := &Server{
		store:    store,
		orch:     orch,
		hub:      NewEventHub(ctx, orch.Events()),
		debounce: NewDebouncer(300 * time.Millisecond),
		mux:      http.NewServeMux(),
		ctx:      ctx,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/generate", s.handleGenerate)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/update", s.handleUpdate)
	s.mux.HandleFunc("/api/sync", s.handleSync)
	s.mux.HandleFunc("/api/navigated", s.handleNavigated)
	s.mux.HandleFunc("/api/altsync/status", s.handleAltSyncStatus)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.hub.ServeHTTP)
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the HTTP server.
func (s *Server) Run(addr string) error {
	log.Printf("Starting altbridge server on %s", addr)
	return http.ListenAndServe(addr, s.mux)
}
