package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"facerelay/internal/recognition"
	"facerelay/internal/store"
)

// ForwardingHandler watches recognition-enabled source chats: photos
// containing a trained face are forwarded to the face's bound
// destination chat.
type ForwardingHandler struct {
	faces     store.FaceRepository
	backend   recognition.Client
	transport Transport
}

func NewForwardingHandler(faces store.FaceRepository, backend recognition.Client, transport Transport) *ForwardingHandler {
	return &ForwardingHandler{faces: faces, backend: backend, transport: transport}
}

func (h *ForwardingHandler) TryHandle(ctx context.Context, msg Message, scope *store.CapabilityScope) (bool, error) {
	if !scope.Has(store.CapFaceRecognition) || !msg.HasMedia() {
		return false, nil
	}

	media, err := msg.DownloadMedia(ctx)
	if err != nil {
		return true, fmt.Errorf("download media: %w", err)
	}
	if !media.IsImage() {
		return true, nil
	}

	sourceID := msg.From()
	detected, err := h.backend.Detect(ctx, media.Data, recognition.GroupID(sourceID))
	if err != nil {
		return true, fmt.Errorf("detect faces: %w", err)
	}
	if len(detected) == 0 {
		return true, nil
	}

	bindings, err := h.faces.ListBySource(ctx, sourceID)
	if err != nil {
		return true, fmt.Errorf("list source faces: %w", err)
	}

	forwarded := make(map[string]bool)
	for _, binding := range bindings {
		if binding.DestinationID == "" || forwarded[binding.DestinationID] {
			continue
		}
		if !matchesAny(binding.FaceID, detected) {
			continue
		}

		chat, err := h.transport.ChatByID(ctx, binding.DestinationID)
		if err != nil {
			return true, fmt.Errorf("resolve destination chat: %w", err)
		}
		if chat == nil {
			log.Printf("Destination chat %s for face %q not found, skipping", binding.DestinationID, binding.FaceName)
			continue
		}

		if err := msg.Forward(ctx, binding.DestinationID); err != nil {
			return true, fmt.Errorf("forward to %s: %w", binding.DestinationID, err)
		}
		forwarded[binding.DestinationID] = true
	}
	return true, nil
}

// matchesAny compares backend face ids case-insensitively; some
// backends change id casing between create and identify.
func matchesAny(faceID string, detected []string) bool {
	for _, id := range detected {
		if strings.EqualFold(faceID, id) {
			return true
		}
	}
	return false
}
