package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"facerelay/internal/bot"
	"facerelay/internal/store"
)

// FacesHandler serves the face-binding endpoints.
type FacesHandler struct {
	faces     store.FaceRepository
	commands  *bot.Commands
	transport bot.Transport
}

func NewFacesHandler(faces store.FaceRepository, commands *bot.Commands, transport bot.Transport) *FacesHandler {
	return &FacesHandler{faces: faces, commands: commands, transport: transport}
}

type faceResponse struct {
	Owner           string `json:"owner"`
	FaceName        string `json:"faceName"`
	Source          string `json:"source"`
	SourceName      string `json:"sourceName,omitempty"`
	Destination     string `json:"destination,omitempty"`
	DestinationName string `json:"destinationName,omitempty"`
	Pending         bool   `json:"pending"`
}

// List returns all face bindings with chat names resolved where the
// transport knows them.
func (h *FacesHandler) List(w http.ResponseWriter, r *http.Request) {
	faces, err := h.faces.ListAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list faces")
		return
	}

	names := make(map[string]string)
	if chats, err := h.transport.Chats(r.Context()); err != nil {
		log.Printf("Failed to resolve chat names: %v", err)
	} else {
		for _, chat := range chats {
			names[chat.ID] = chat.Name
		}
	}

	response := make([]faceResponse, 0, len(faces))
	for _, face := range faces {
		response = append(response, faceResponse{
			Owner:           face.OwnerID,
			FaceName:        face.FaceName,
			Source:          face.SourceID,
			SourceName:      names[face.SourceID],
			Destination:     face.DestinationID,
			DestinationName: names[face.DestinationID],
			Pending:         face.AuthCode != "",
		})
	}
	respondJSON(w, http.StatusOK, response)
}

type putFaceRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Put registers a face binding. Owner in the URL is the phone number.
func (h *FacesHandler) Put(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	faceName := chi.URLParam(r, "faceName")

	var req putFaceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Source == "" {
		respondError(w, http.StatusBadRequest, "source is required")
		return
	}

	face, err := h.commands.Add(r.Context(), owner, faceName, req.Source, req.Destination)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			respondError(w, http.StatusConflict, "face already exists")
			return
		}
		log.Printf("Failed to add face %q: %v", faceName, err)
		respondError(w, http.StatusInternalServerError, "failed to add face")
		return
	}

	respondJSON(w, http.StatusCreated, faceResponse{
		Owner:       face.OwnerID,
		FaceName:    face.FaceName,
		Source:      face.SourceID,
		Destination: face.DestinationID,
		Pending:     face.AuthCode != "",
	})
}

// Delete removes a face binding and its cascades.
func (h *FacesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	faceName := chi.URLParam(r, "faceName")

	if err := h.commands.Delete(r.Context(), bot.ContactID(owner), faceName); err != nil {
		log.Printf("Failed to delete face %q: %v", faceName, err)
		respondError(w, http.StatusInternalServerError, "failed to delete face")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
