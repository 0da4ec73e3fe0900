package bot

import (
	"context"
	"fmt"
	"strings"

	"facerelay/internal/store"
)

const handshakePrefix = "!fconnect"

// HandshakeHandler binds a face's destination chat. The face owner
// posts the one-time !fconnect command in the chat that should receive
// forwards; a matching pending code binds that chat and burns the code.
type HandshakeHandler struct {
	faces store.FaceRepository
}

func NewHandshakeHandler(faces store.FaceRepository) *HandshakeHandler {
	return &HandshakeHandler{faces: faces}
}

func (h *HandshakeHandler) TryHandle(ctx context.Context, msg Message, scope *store.CapabilityScope) (bool, error) {
	if !strings.HasPrefix(msg.Body(), handshakePrefix) {
		return false, nil
	}

	fields := strings.Fields(msg.Body())
	if len(fields) < 3 {
		return true, nil
	}
	code := fields[len(fields)-1]
	faceName := strings.Join(fields[1:len(fields)-1], " ")

	face, err := h.faces.Get(ctx, SenderID(msg), faceName)
	if err != nil {
		return true, fmt.Errorf("load face %q: %w", faceName, err)
	}
	if face == nil || face.AuthCode == "" || face.AuthCode != code {
		return true, nil
	}

	face.AuthCode = ""
	face.DestinationID = msg.From()
	if err := h.faces.AddOrUpdate(ctx, face); err != nil {
		return true, fmt.Errorf("bind destination: %w", err)
	}
	return true, msg.Reply(ctx, "Done")
}
