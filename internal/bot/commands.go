package bot

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"facerelay/internal/recognition"
	"facerelay/internal/store"
)

// Commands implements the face lifecycle operations shared by the chat
// handlers, the admin API and the CLI.
type Commands struct {
	scopes  store.ScopeRepository
	faces   store.FaceRepository
	backend recognition.Client
}

func NewCommands(scopes store.ScopeRepository, faces store.FaceRepository, backend recognition.Client) *Commands {
	return &Commands{scopes: scopes, faces: faces, backend: backend}
}

// Add registers a named face for an owner. The source chat gains the
// face-recognition capability and the owner contact the face-owner
// capability. When no destination is given, a one-time auth code is
// generated for the destination handshake.
func (c *Commands) Add(ctx context.Context, ownerNumber, faceName, sourceID, destinationID string) (*store.RecognizedFace, error) {
	ownerID := ContactID(ownerNumber)

	existing, err := c.faces.Get(ctx, ownerID, faceName)
	if err != nil {
		return nil, fmt.Errorf("check face: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("face %q already exists for %s: %w", faceName, ownerID, store.ErrConflict)
	}

	if err := store.EnsureCapability(ctx, c.scopes, sourceID, store.CapFaceRecognition); err != nil {
		return nil, fmt.Errorf("grant source capability: %w", err)
	}
	if err := store.EnsureCapability(ctx, c.scopes, ownerID, store.CapFaceOwner); err != nil {
		return nil, fmt.Errorf("grant owner capability: %w", err)
	}

	groupID := recognition.GroupID(sourceID)
	if err := c.backend.CreateGroupIfAbsent(ctx, groupID); err != nil {
		return nil, fmt.Errorf("ensure group: %w", err)
	}
	faceID, err := c.backend.CreateFace(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("create backend face: %w", err)
	}

	face := &store.RecognizedFace{
		OwnerID:       ownerID,
		FaceName:      faceName,
		SourceID:      sourceID,
		DestinationID: destinationID,
		FaceID:        faceID,
	}
	if destinationID == "" {
		face.AuthCode = uuid.NewString()
	}

	if err := c.faces.Add(ctx, face); err != nil {
		return nil, fmt.Errorf("store face: %w", err)
	}
	return face, nil
}

// Delete removes a face binding and unwinds whatever the binding was
// the last user of: the backend group and the source's recognition
// capability when it was the source's last face, and the owner's
// face-owner capability when it was the owner's last face. Deleting an
// absent face is a no-op.
func (c *Commands) Delete(ctx context.Context, ownerID, faceName string) error {
	face, err := c.faces.Get(ctx, ownerID, faceName)
	if err != nil {
		return fmt.Errorf("load face: %w", err)
	}
	if face == nil {
		return nil
	}

	// Snapshot sibling bindings before the record disappears; the
	// counts decide which cascades fire.
	sourceFaces, err := c.faces.ListBySource(ctx, face.SourceID)
	if err != nil {
		return fmt.Errorf("list source faces: %w", err)
	}
	ownerFaces, err := c.faces.ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list owner faces: %w", err)
	}

	groupID := recognition.GroupID(face.SourceID)
	if len(sourceFaces) <= 1 {
		if err := c.backend.DeleteGroup(ctx, groupID); err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		if err := store.RevokeCapability(ctx, c.scopes, face.SourceID, store.CapFaceRecognition); err != nil {
			return fmt.Errorf("revoke source capability: %w", err)
		}
	} else if err := c.backend.DeleteFace(ctx, groupID, face.FaceID); err != nil {
		return fmt.Errorf("delete backend face: %w", err)
	}

	if err := c.faces.Delete(ctx, ownerID, faceName); err != nil {
		return fmt.Errorf("delete face: %w", err)
	}

	if len(ownerFaces) <= 1 {
		if err := store.RevokeCapability(ctx, c.scopes, ownerID, store.CapFaceOwner); err != nil {
			return fmt.Errorf("revoke owner capability: %w", err)
		}
	}
	return nil
}

// DeleteAll removes every face binding through the normal delete
// cascade, then sweeps the backend for anything left behind. onDeleted
// is called after each binding is removed; nil is allowed.
func (c *Commands) DeleteAll(ctx context.Context, onDeleted func(store.RecognizedFace)) error {
	faces, err := c.faces.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list faces: %w", err)
	}

	for _, face := range faces {
		if err := c.Delete(ctx, face.OwnerID, face.FaceName); err != nil {
			return err
		}
		if onDeleted != nil {
			onDeleted(face)
		}
	}

	if err := c.backend.DeleteAll(ctx); err != nil {
		return fmt.Errorf("sweep backend: %w", err)
	}
	return nil
}
