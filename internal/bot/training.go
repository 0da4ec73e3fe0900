package bot

import (
	"context"
	"fmt"
	"strings"

	"facerelay/internal/recognition"
	"facerelay/internal/store"
)

// TrainingHandler lets face owners teach the backend: a photo sent by
// an owner trains their faces with it. A captionless photo trains every
// owned face; a caption narrows training to the face names it mentions.
type TrainingHandler struct {
	faces   store.FaceRepository
	backend recognition.Client
}

func NewTrainingHandler(faces store.FaceRepository, backend recognition.Client) *TrainingHandler {
	return &TrainingHandler{faces: faces, backend: backend}
}

func (h *TrainingHandler) TryHandle(ctx context.Context, msg Message, scope *store.CapabilityScope) (bool, error) {
	if !scope.Has(store.CapFaceOwner) || !msg.HasMedia() {
		return false, nil
	}

	owned, err := h.faces.ListByOwner(ctx, SenderID(msg))
	if err != nil {
		return false, fmt.Errorf("list owner faces: %w", err)
	}
	if len(owned) == 0 {
		return false, nil
	}

	media, err := msg.DownloadMedia(ctx)
	if err != nil {
		return true, fmt.Errorf("download media: %w", err)
	}
	if !media.IsImage() {
		// Leave non-image media to the handlers further down the chain.
		return false, nil
	}

	selected := owned
	if msg.Body() != "" {
		selected = nil
		for _, face := range owned {
			if mentionsName(msg.Body(), face.FaceName) {
				selected = append(selected, face)
			}
		}
	}

	var trained []string
	for _, face := range selected {
		groupID := recognition.GroupID(face.SourceID)
		ok, err := h.backend.Train(ctx, groupID, face.FaceID, media.Data)
		if err != nil {
			return true, fmt.Errorf("train face %q: %w", face.FaceName, err)
		}
		if !ok {
			return true, msg.Reply(ctx, fmt.Sprintf(
				"Could not learn %q from this photo. Use a clear photo with exactly one face.",
				face.FaceName))
		}
		trained = append(trained, face.FaceName)
	}

	return true, msg.Reply(ctx, fmt.Sprintf(
		"Trained %d face(s): %s", len(trained), strings.Join(trained, ", ")))
}
