package store

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// cacheTTL bounds how long a read is served from memory. The cache is
// process-local; writes invalidate synchronously before delegating so
// a read that follows a local write never sees the pre-write value.
const cacheTTL = 30 * time.Second

const cacheSize = 4096

// CachedScopeRepository is a read-through cache in front of a
// ScopeRepository.
type CachedScopeRepository struct {
	inner  ScopeRepository
	scopes *expirable.LRU[string, *CapabilityScope]
}

func NewCachedScopeRepository(inner ScopeRepository) *CachedScopeRepository {
	return &CachedScopeRepository{
		inner:  inner,
		scopes: expirable.NewLRU[string, *CapabilityScope](cacheSize, nil, cacheTTL),
	}
}

func (r *CachedScopeRepository) Get(ctx context.Context, sourceID string) (*CapabilityScope, error) {
	if scope, ok := r.scopes.Get(sourceID); ok {
		return scope, nil
	}

	scope, err := r.inner.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if scope != nil {
		r.scopes.Add(sourceID, scope)
	}
	return scope, nil
}

func (r *CachedScopeRepository) Add(ctx context.Context, scope *CapabilityScope) error {
	r.scopes.Remove(scope.SourceID)
	return r.inner.Add(ctx, scope)
}

func (r *CachedScopeRepository) AddOrUpdate(ctx context.Context, scope *CapabilityScope) error {
	r.scopes.Remove(scope.SourceID)
	return r.inner.AddOrUpdate(ctx, scope)
}

func (r *CachedScopeRepository) Delete(ctx context.Context, sourceID string) error {
	r.scopes.Remove(sourceID)
	return r.inner.Delete(ctx, sourceID)
}

// CachedFaceRepository is a read-through cache in front of a
// FaceRepository. Single records and the per-owner/per-source lists
// are cached separately; ListAll always hits the inner store.
type CachedFaceRepository struct {
	inner   FaceRepository
	faces   *expirable.LRU[string, *RecognizedFace]
	owners  *expirable.LRU[string, []RecognizedFace]
	sources *expirable.LRU[string, []RecognizedFace]
}

func NewCachedFaceRepository(inner FaceRepository) *CachedFaceRepository {
	return &CachedFaceRepository{
		inner:   inner,
		faces:   expirable.NewLRU[string, *RecognizedFace](cacheSize, nil, cacheTTL),
		owners:  expirable.NewLRU[string, []RecognizedFace](cacheSize, nil, cacheTTL),
		sources: expirable.NewLRU[string, []RecognizedFace](cacheSize, nil, cacheTTL),
	}
}

func faceKey(ownerID, faceName string) string {
	return ownerID + "\x00" + faceName
}

// invalidate drops every cache entry a write to the face could make stale.
func (r *CachedFaceRepository) invalidate(face *RecognizedFace) {
	r.faces.Remove(faceKey(face.OwnerID, face.FaceName))
	r.owners.Remove(face.OwnerID)
	r.sources.Remove(face.SourceID)
}

func (r *CachedFaceRepository) Get(ctx context.Context, ownerID, faceName string) (*RecognizedFace, error) {
	key := faceKey(ownerID, faceName)
	if face, ok := r.faces.Get(key); ok {
		return face, nil
	}

	face, err := r.inner.Get(ctx, ownerID, faceName)
	if err != nil {
		return nil, err
	}
	if face != nil {
		r.faces.Add(key, face)
	}
	return face, nil
}

func (r *CachedFaceRepository) ListAll(ctx context.Context) ([]RecognizedFace, error) {
	return r.inner.ListAll(ctx)
}

func (r *CachedFaceRepository) ListByOwner(ctx context.Context, ownerID string) ([]RecognizedFace, error) {
	if faces, ok := r.owners.Get(ownerID); ok {
		return faces, nil
	}

	faces, err := r.inner.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(faces) > 0 {
		r.owners.Add(ownerID, faces)
	}
	return faces, nil
}

func (r *CachedFaceRepository) ListBySource(ctx context.Context, sourceID string) ([]RecognizedFace, error) {
	if faces, ok := r.sources.Get(sourceID); ok {
		return faces, nil
	}

	faces, err := r.inner.ListBySource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if len(faces) > 0 {
		r.sources.Add(sourceID, faces)
	}
	return faces, nil
}

func (r *CachedFaceRepository) Add(ctx context.Context, face *RecognizedFace) error {
	r.invalidate(face)
	return r.inner.Add(ctx, face)
}

func (r *CachedFaceRepository) AddOrUpdate(ctx context.Context, face *RecognizedFace) error {
	r.invalidate(face)
	return r.inner.AddOrUpdate(ctx, face)
}

func (r *CachedFaceRepository) Delete(ctx context.Context, ownerID, faceName string) error {
	// The source list key is unknown without the record; fetch it so
	// the per-source list cannot serve the deleted face. When the
	// lookup fails the key stays unknown, so drop every source list
	// rather than let one hold the face for the rest of its TTL.
	face, err := r.Get(ctx, ownerID, faceName)
	switch {
	case err != nil:
		r.sources.Purge()
	case face != nil:
		r.sources.Remove(face.SourceID)
	}
	r.faces.Remove(faceKey(ownerID, faceName))
	r.owners.Remove(ownerID)
	return r.inner.Delete(ctx, ownerID, faceName)
}

// CachedDescriptorRepository is a read-through cache in front of a
// DescriptorRepository.
type CachedDescriptorRepository struct {
	inner  DescriptorRepository
	descs  *expirable.LRU[string, *FaceDescriptor]
	groups *expirable.LRU[string, []FaceDescriptor]
}

func NewCachedDescriptorRepository(inner DescriptorRepository) *CachedDescriptorRepository {
	return &CachedDescriptorRepository{
		inner:  inner,
		descs:  expirable.NewLRU[string, *FaceDescriptor](cacheSize, nil, cacheTTL),
		groups: expirable.NewLRU[string, []FaceDescriptor](cacheSize, nil, cacheTTL),
	}
}

func descriptorKey(groupID, faceID string) string {
	return groupID + "\x00" + faceID
}

func (r *CachedDescriptorRepository) invalidate(groupID, faceID string) {
	r.descs.Remove(descriptorKey(groupID, faceID))
	r.groups.Remove(groupID)
}

func (r *CachedDescriptorRepository) Get(ctx context.Context, groupID, faceID string) (*FaceDescriptor, error) {
	key := descriptorKey(groupID, faceID)
	if desc, ok := r.descs.Get(key); ok {
		return desc, nil
	}

	desc, err := r.inner.Get(ctx, groupID, faceID)
	if err != nil {
		return nil, err
	}
	if desc != nil {
		r.descs.Add(key, desc)
	}
	return desc, nil
}

func (r *CachedDescriptorRepository) ListAll(ctx context.Context) ([]FaceDescriptor, error) {
	return r.inner.ListAll(ctx)
}

func (r *CachedDescriptorRepository) ListByGroup(ctx context.Context, groupID string) ([]FaceDescriptor, error) {
	if descs, ok := r.groups.Get(groupID); ok {
		return descs, nil
	}

	descs, err := r.inner.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(descs) > 0 {
		r.groups.Add(groupID, descs)
	}
	return descs, nil
}

func (r *CachedDescriptorRepository) Add(ctx context.Context, desc *FaceDescriptor) error {
	r.invalidate(desc.GroupID, desc.FaceID)
	return r.inner.Add(ctx, desc)
}

func (r *CachedDescriptorRepository) AddOrUpdate(ctx context.Context, desc *FaceDescriptor) error {
	r.invalidate(desc.GroupID, desc.FaceID)
	return r.inner.AddOrUpdate(ctx, desc)
}

func (r *CachedDescriptorRepository) Update(ctx context.Context, desc *FaceDescriptor) (string, error) {
	r.invalidate(desc.GroupID, desc.FaceID)
	return r.inner.Update(ctx, desc)
}

func (r *CachedDescriptorRepository) Delete(ctx context.Context, groupID, faceID string) error {
	r.invalidate(groupID, faceID)
	return r.inner.Delete(ctx, groupID, faceID)
}
