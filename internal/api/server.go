package api

import (
	"log"
	"net/http"
	"time"

	"arena-duel/internal/connpolicy"
	"arena-duel/internal/game"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the per-match WebSocket hub.
type Server struct {
	registry    *game.Registry
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter
}

// NewServer creates a new API server with default production configuration.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// This enables testing by allowing the server to be constructed without
// starting goroutines or opening network listeners.
//
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(registry *game.Registry, coordinator *connpolicy.Coordinator, reconnectWindow time.Duration) *Server {
	s := &Server{
		registry: registry,
		hub:      NewHub(registry, coordinator, reconnectWindow),
	}

	s.rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)

	s.router = NewRouter(RouterConfig{
		Registry:    registry,
		RateLimiter: s.rateLimiter,
	})

	// WebSocket route needs the hub instance, so it can't live in the
	// generic NewRouter factory.
	s.router.Get("/ws", s.hub.HandleWebSocket)

	return s
}

// Hub returns the WebSocket hub, which the match registry uses as its
// broadcaster.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins the HTTP server AND starts background workers.
// This is the ONLY method that starts goroutines or opens network listeners.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	log.Printf("API server starting on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler for use with httptest.
// Use this in integration tests instead of calling Start().
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop performs graceful shutdown of background workers.
func (s *Server) Stop() {
	s.hub.Stop()
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}
