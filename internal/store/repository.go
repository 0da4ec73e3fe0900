package store

import (
	"context"
	"errors"
)

var (
	// ErrConflict is returned when adding an entity whose key already
	// exists, or when a conditional update's concurrency token no
	// longer matches the stored record.
	ErrConflict = errors.New("store: conflict")

	// ErrNotFound is returned by conditional updates against a record
	// that no longer exists.
	ErrNotFound = errors.New("store: not found")
)

// ScopeRepository persists capability scopes keyed by chat/contact identity.
// Get returns nil, nil when no scope exists for the identity.
type ScopeRepository interface {
	Get(ctx context.Context, sourceID string) (*CapabilityScope, error)
	Add(ctx context.Context, scope *CapabilityScope) error
	AddOrUpdate(ctx context.Context, scope *CapabilityScope) error
	Delete(ctx context.Context, sourceID string) error
}

// FaceRepository persists recognized-face bindings keyed by
// (owner identity, face name). Get returns nil, nil when absent.
type FaceRepository interface {
	Get(ctx context.Context, ownerID, faceName string) (*RecognizedFace, error)
	ListAll(ctx context.Context) ([]RecognizedFace, error)
	ListByOwner(ctx context.Context, ownerID string) ([]RecognizedFace, error)
	ListBySource(ctx context.Context, sourceID string) ([]RecognizedFace, error)
	Add(ctx context.Context, face *RecognizedFace) error
	AddOrUpdate(ctx context.Context, face *RecognizedFace) error
	Delete(ctx context.Context, ownerID, faceName string) error
}

// DescriptorRepository persists biometric descriptor records keyed by
// (group id, face id). Get returns nil, nil when absent. Update is
// conditional on the record's ETag and returns the new token.
type DescriptorRepository interface {
	Get(ctx context.Context, groupID, faceID string) (*FaceDescriptor, error)
	ListAll(ctx context.Context) ([]FaceDescriptor, error)
	ListByGroup(ctx context.Context, groupID string) ([]FaceDescriptor, error)
	Add(ctx context.Context, desc *FaceDescriptor) error
	AddOrUpdate(ctx context.Context, desc *FaceDescriptor) error
	Update(ctx context.Context, desc *FaceDescriptor) (etag string, err error)
	Delete(ctx context.Context, groupID, faceID string) error
}

// EnsureCapability grants a capability to an identity, creating the
// scope record on first grant. Granting an already-held capability is
// a no-op.
func EnsureCapability(ctx context.Context, repo ScopeRepository, sourceID string, c Capability) error {
	scope, err := repo.Get(ctx, sourceID)
	if err != nil {
		return err
	}

	if scope == nil {
		return repo.Add(ctx, &CapabilityScope{
			SourceID:     sourceID,
			Capabilities: []Capability{c},
		})
	}

	if scope.Has(c) {
		return nil
	}

	scope.Capabilities = append(scope.Capabilities, c)
	return repo.AddOrUpdate(ctx, scope)
}

// RevokeCapability removes a capability from an identity's scope. The
// record is deleted when the last capability is removed; revoking a
// capability the identity does not hold is a no-op.
func RevokeCapability(ctx context.Context, repo ScopeRepository, sourceID string, c Capability) error {
	scope, err := repo.Get(ctx, sourceID)
	if err != nil {
		return err
	}
	if scope == nil || !scope.Has(c) {
		return nil
	}

	remaining := make([]Capability, 0, len(scope.Capabilities)-1)
	for _, have := range scope.Capabilities {
		if have != c {
			remaining = append(remaining, have)
		}
	}

	if len(remaining) == 0 {
		return repo.Delete(ctx, sourceID)
	}

	scope.Capabilities = remaining
	return repo.AddOrUpdate(ctx, scope)
}
