package web

import (
	"github.com/go-chi/chi/v5"

	"facerelay/internal/web/handlers"
)

func (s *Server) setupRoutes(deps Dependencies) {
	facesHandler := handlers.NewFacesHandler(deps.Faces, deps.Commands, deps.Transport)
	chatsHandler := handlers.NewChatsHandler(deps.Scopes, deps.Faces, deps.Commands, deps.Transport)
	botHandler := handlers.NewBotHandler(deps.State)

	s.router.Get("/api/health", handlers.HealthCheck)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/faces", facesHandler.List)
		r.Put("/faces/{owner}/{faceName}", facesHandler.Put)
		r.Delete("/faces/{owner}/{faceName}", facesHandler.Delete)

		r.Get("/chats", chatsHandler.List)
		r.Delete("/chats/{chatID}", chatsHandler.Delete)

		r.Get("/bot/state", botHandler.State)
		r.Get("/bot/qr", botHandler.QR)
	})
}
