// Package web serves the admin HTTP API: face bindings, chats and bot
// connection state.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"facerelay/internal/bot"
	"facerelay/internal/store"
	"facerelay/internal/web/handlers"
	"facerelay/internal/web/middleware"
)

// Server represents the admin web server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a new admin web server
func NewServer(host string, port int, deps Dependencies) *Server {
	r := chi.NewRouter()

	s := &Server{router: r}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORS())

	s.setupRoutes(deps)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Dependencies carries everything the API handlers operate on.
type Dependencies struct {
	Scopes    store.ScopeRepository
	Faces     store.FaceRepository
	Commands  *bot.Commands
	Transport bot.Transport
	State     handlers.BotState
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting admin server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down admin server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
