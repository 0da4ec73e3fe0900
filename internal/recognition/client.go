// Package recognition defines the face-recognition backend contract
// and its two implementations: a remote face service and a local
// descriptor-matching backend.
package recognition

import (
	"context"
	"crypto/md5"
	"encoding/hex"
)

// Client is the backend-agnostic recognition contract. Groups
// aggregate the trained faces of one source chat; faces are trained
// incrementally from sample images and detected against their group.
type Client interface {
	CreateGroupIfAbsent(ctx context.Context, groupID string) error
	// CreateFace allocates a new trainable face in the group and
	// returns its backend id.
	CreateFace(ctx context.Context, groupID string) (string, error)
	// Train adds one sample image to a face. It returns false (with a
	// nil error) when the image is unusable: no face, more than one
	// face, or detection confidence below the training threshold.
	Train(ctx context.Context, groupID, faceID string, image []byte) (bool, error)
	// Detect returns the ids of group faces recognized in the image
	// above the backend's confidence threshold. Calls are independent
	// and restartable.
	Detect(ctx context.Context, image []byte, groupID string) ([]string, error)
	DeleteFace(ctx context.Context, groupID, faceID string) error
	DeleteGroup(ctx context.Context, groupID string) error
	DeleteAll(ctx context.Context) error
}

// GroupID derives the backend group id for a source chat identity.
// The hash keeps chat ids out of backend group names and satisfies the
// remote service's group-id character restrictions.
func GroupID(sourceID string) string {
	sum := md5.Sum([]byte(sourceID))
	return hex.EncodeToString(sum[:])
}
