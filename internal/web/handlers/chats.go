package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"facerelay/internal/bot"
	"facerelay/internal/store"
)

// ChatsHandler serves the chat endpoints.
type ChatsHandler struct {
	scopes    store.ScopeRepository
	faces     store.FaceRepository
	commands  *bot.Commands
	transport bot.Transport
}

func NewChatsHandler(scopes store.ScopeRepository, faces store.FaceRepository, commands *bot.Commands, transport bot.Transport) *ChatsHandler {
	return &ChatsHandler{scopes: scopes, faces: faces, commands: commands, transport: transport}
}

// List returns the chats known to the transport.
func (h *ChatsHandler) List(w http.ResponseWriter, r *http.Request) {
	chats, err := h.transport.Chats(r.Context())
	if err != nil {
		log.Printf("Failed to list chats: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list chats")
		return
	}
	respondJSON(w, http.StatusOK, chats)
}

// Delete disconnects a chat from the bot: every face sourced from it
// is removed through the normal cascade and its capability scope is
// dropped.
func (h *ChatsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	ctx := r.Context()

	faces, err := h.faces.ListBySource(ctx, chatID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list chat faces")
		return
	}
	for _, face := range faces {
		if err := h.commands.Delete(ctx, face.OwnerID, face.FaceName); err != nil {
			log.Printf("Failed to delete face %q while disconnecting %s: %v", face.FaceName, chatID, err)
			respondError(w, http.StatusInternalServerError, "failed to delete chat faces")
			return
		}
	}

	if err := h.scopes.Delete(ctx, chatID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete chat scope")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
