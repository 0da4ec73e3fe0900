// Package mock provides in-memory implementations of the store
// repositories for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"facerelay/internal/store"

	"github.com/google/uuid"
)

// ScopeRepository is an in-memory store.ScopeRepository.
type ScopeRepository struct {
	mu     sync.RWMutex
	scopes map[string]store.CapabilityScope

	// Error injection
	GetError    error
	AddError    error
	UpdateError error
	DeleteError error
}

func NewScopeRepository() *ScopeRepository {
	return &ScopeRepository{scopes: make(map[string]store.CapabilityScope)}
}

func (m *ScopeRepository) Get(ctx context.Context, sourceID string) (*store.CapabilityScope, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	scope, ok := m.scopes[sourceID]
	if !ok {
		return nil, nil
	}
	copied := scope
	copied.Capabilities = append([]store.Capability(nil), scope.Capabilities...)
	return &copied, nil
}

func (m *ScopeRepository) Add(ctx context.Context, scope *store.CapabilityScope) error {
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scopes[scope.SourceID]; ok {
		return store.ErrConflict
	}
	m.scopes[scope.SourceID] = *scope
	return nil
}

func (m *ScopeRepository) AddOrUpdate(ctx context.Context, scope *store.CapabilityScope) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scopes[scope.SourceID] = *scope
	return nil
}

func (m *ScopeRepository) Delete(ctx context.Context, sourceID string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scopes, sourceID)
	return nil
}

// FaceRepository is an in-memory store.FaceRepository.
type FaceRepository struct {
	mu    sync.RWMutex
	faces map[string]store.RecognizedFace

	// Error injection
	GetError    error
	ListError   error
	AddError    error
	UpdateError error
	DeleteError error
}

func NewFaceRepository() *FaceRepository {
	return &FaceRepository{faces: make(map[string]store.RecognizedFace)}
}

func faceKey(ownerID, faceName string) string {
	return ownerID + "\x00" + faceName
}

func (m *FaceRepository) Get(ctx context.Context, ownerID, faceName string) (*store.RecognizedFace, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	face, ok := m.faces[faceKey(ownerID, faceName)]
	if !ok {
		return nil, nil
	}
	copied := face
	return &copied, nil
}

func (m *FaceRepository) ListAll(ctx context.Context) ([]store.RecognizedFace, error) {
	return m.list(func(store.RecognizedFace) bool { return true })
}

func (m *FaceRepository) ListByOwner(ctx context.Context, ownerID string) ([]store.RecognizedFace, error) {
	return m.list(func(f store.RecognizedFace) bool { return f.OwnerID == ownerID })
}

func (m *FaceRepository) ListBySource(ctx context.Context, sourceID string) ([]store.RecognizedFace, error) {
	return m.list(func(f store.RecognizedFace) bool { return f.SourceID == sourceID })
}

func (m *FaceRepository) list(match func(store.RecognizedFace) bool) ([]store.RecognizedFace, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []store.RecognizedFace
	for _, face := range m.faces {
		if match(face) {
			result = append(result, face)
		}
	}
	return result, nil
}

func (m *FaceRepository) Add(ctx context.Context, face *store.RecognizedFace) error {
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := faceKey(face.OwnerID, face.FaceName)
	if _, ok := m.faces[key]; ok {
		return store.ErrConflict
	}
	m.faces[key] = *face
	return nil
}

func (m *FaceRepository) AddOrUpdate(ctx context.Context, face *store.RecognizedFace) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces[faceKey(face.OwnerID, face.FaceName)] = *face
	return nil
}

func (m *FaceRepository) Delete(ctx context.Context, ownerID, faceName string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.faces, faceKey(ownerID, faceName))
	return nil
}

// DescriptorRepository is an in-memory store.DescriptorRepository with
// etag-conditional updates.
type DescriptorRepository struct {
	mu    sync.RWMutex
	descs map[string]store.FaceDescriptor

	// Error injection
	GetError    error
	ListError   error
	AddError    error
	UpdateError error
	DeleteError error
}

func NewDescriptorRepository() *DescriptorRepository {
	return &DescriptorRepository{descs: make(map[string]store.FaceDescriptor)}
}

func descKey(groupID, faceID string) string {
	return groupID + "\x00" + faceID
}

func (m *DescriptorRepository) Get(ctx context.Context, groupID, faceID string) (*store.FaceDescriptor, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	desc, ok := m.descs[descKey(groupID, faceID)]
	if !ok {
		return nil, nil
	}
	copied := desc
	copied.Samples = append([][]float32(nil), desc.Samples...)
	return &copied, nil
}

func (m *DescriptorRepository) ListAll(ctx context.Context) ([]store.FaceDescriptor, error) {
	return m.list(func(store.FaceDescriptor) bool { return true })
}

func (m *DescriptorRepository) ListByGroup(ctx context.Context, groupID string) ([]store.FaceDescriptor, error) {
	return m.list(func(d store.FaceDescriptor) bool { return d.GroupID == groupID })
}

func (m *DescriptorRepository) list(match func(store.FaceDescriptor) bool) ([]store.FaceDescriptor, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []store.FaceDescriptor
	for _, desc := range m.descs {
		if match(desc) {
			result = append(result, desc)
		}
	}
	return result, nil
}

func (m *DescriptorRepository) Add(ctx context.Context, desc *store.FaceDescriptor) error {
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := descKey(desc.GroupID, desc.FaceID)
	if _, ok := m.descs[key]; ok {
		return store.ErrConflict
	}
	stored := *desc
	stored.ETag = uuid.NewString()
	stored.UpdatedAt = time.Now()
	m.descs[key] = stored
	desc.ETag = stored.ETag
	desc.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *DescriptorRepository) AddOrUpdate(ctx context.Context, desc *store.FaceDescriptor) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *desc
	stored.ETag = uuid.NewString()
	stored.UpdatedAt = time.Now()
	m.descs[descKey(desc.GroupID, desc.FaceID)] = stored
	desc.ETag = stored.ETag
	desc.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *DescriptorRepository) Update(ctx context.Context, desc *store.FaceDescriptor) (string, error) {
	if m.UpdateError != nil {
		return "", m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := descKey(desc.GroupID, desc.FaceID)
	current, ok := m.descs[key]
	if !ok {
		return "", store.ErrNotFound
	}
	if current.ETag != desc.ETag {
		return "", store.ErrConflict
	}
	stored := *desc
	stored.ETag = uuid.NewString()
	stored.UpdatedAt = time.Now()
	m.descs[key] = stored
	return stored.ETag, nil
}

func (m *DescriptorRepository) Delete(ctx context.Context, groupID, faceID string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.descs, descKey(groupID, faceID))
	return nil
}

// SetUpdatedAt rewrites a stored descriptor's timestamp, for tests
// that need to age the training lock.
func (m *DescriptorRepository) SetUpdatedAt(groupID, faceID string, ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := descKey(groupID, faceID)
	if desc, ok := m.descs[key]; ok {
		desc.UpdatedAt = ts
		m.descs[key] = desc
	}
}
