package recognition

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"facerelay/internal/config"
	"facerelay/internal/store"
)

const (
	// trainLockTimeout is the abandonment window: a training lock older
	// than this is treated as left behind by a crashed trainer.
	trainLockTimeout = 90 * time.Second
	// trainPollInterval spaces the waiter's lock checks.
	trainPollInterval = 5 * time.Second
	// trainWaitAttempts bounds the waiter's polling loop.
	trainWaitAttempts = 20
)

// FaceDetector produces face descriptors from an image. Satisfied by
// DetectorClient; tests substitute a fake.
type FaceDetector interface {
	DetectFaces(ctx context.Context, imageData []byte) ([]DetectedFace, error)
}

// Local is the in-process recognition backend. Faces are descriptor
// records in the store; detection matches probe descriptors against a
// group's stored samples, and training appends one sample under the
// record's cooperative lock.
type Local struct {
	descriptors store.DescriptorRepository
	detector    FaceDetector
	thresholds  config.MatchingThresholds

	// sleep is replaced in tests to skip real lock-poll waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewLocal(descriptors store.DescriptorRepository, detector FaceDetector, thresholds config.MatchingThresholds) *Local {
	return &Local{
		descriptors: descriptors,
		detector:    detector,
		thresholds:  thresholds,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CreateGroupIfAbsent is a no-op: local groups exist implicitly
// through their descriptor records.
func (l *Local) CreateGroupIfAbsent(ctx context.Context, groupID string) error {
	return nil
}

func (l *Local) CreateFace(ctx context.Context, groupID string) (string, error) {
	faceID := uuid.NewString()
	desc := &store.FaceDescriptor{
		GroupID: groupID,
		FaceID:  faceID,
	}
	if err := l.descriptors.Add(ctx, desc); err != nil {
		return "", fmt.Errorf("create face descriptor: %w", err)
	}
	return faceID, nil
}

func (l *Local) Detect(ctx context.Context, image []byte, groupID string) ([]string, error) {
	probes, err := l.detector.DetectFaces(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	if len(probes) == 0 {
		return nil, nil
	}

	descriptors, err := l.descriptors.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load group descriptors: %w", err)
	}
	m := newMatcher(descriptors)

	var matched []string
	for _, probe := range probes {
		if faceID := m.BestMatch(probe.Descriptor, l.thresholds.MaxDistance); faceID != "" {
			matched = append(matched, faceID)
		}
	}
	return matched, nil
}

// Train appends one descriptor sample to the face. The sample image
// must contain exactly one face with a detection score above the
// training threshold; otherwise Train reports false without error.
// Concurrent trainers on the same face are serialized through the
// record's IsTraining flag: the waiter polls until the flag clears,
// treating locks older than trainLockTimeout as abandoned, then claims
// the lock with a token-checked update.
func (l *Local) Train(ctx context.Context, groupID, faceID string, image []byte) (bool, error) {
	probes, err := l.detector.DetectFaces(ctx, image)
	if err != nil {
		return false, fmt.Errorf("detect training face: %w", err)
	}
	if len(probes) != 1 {
		return false, nil
	}
	probe := probes[0]
	if len(probe.Descriptor) == 0 || probe.Score < l.thresholds.MinTrainScore {
		return false, nil
	}

	desc, err := l.waitForLock(ctx, groupID, faceID)
	if err != nil {
		return false, err
	}

	// Claim the lock. A conflict means another trainer claimed it
	// between our read and write.
	desc.IsTraining = true
	etag, err := l.descriptors.Update(ctx, desc)
	if err != nil {
		return false, fmt.Errorf("claim training lock: %w", err)
	}
	desc.ETag = etag

	desc.Samples = append(desc.Samples, probe.Descriptor)
	desc.IsTraining = false
	if _, err := l.descriptors.Update(ctx, desc); err != nil {
		log.Printf("Failed to train face %s in group %s: %v", faceID, groupID, err)
		return false, nil
	}
	return true, nil
}

// waitForLock polls until the face's training lock is free or
// abandoned, returning the latest descriptor record.
func (l *Local) waitForLock(ctx context.Context, groupID, faceID string) (*store.FaceDescriptor, error) {
	for attempt := 0; attempt < trainWaitAttempts; attempt++ {
		desc, err := l.descriptors.Get(ctx, groupID, faceID)
		if err != nil {
			return nil, fmt.Errorf("load descriptor: %w", err)
		}
		if desc == nil {
			return nil, fmt.Errorf("face %s in group %s: %w", faceID, groupID, store.ErrNotFound)
		}
		if !desc.IsTraining || time.Since(desc.UpdatedAt) > trainLockTimeout {
			return desc, nil
		}
		if err := l.sleep(ctx, trainPollInterval); err != nil {
			return nil, err
		}
	}

	// Give up waiting and use the latest state; the conditional update
	// still protects against a concurrent claim.
	desc, err := l.descriptors.Get(ctx, groupID, faceID)
	if err != nil {
		return nil, fmt.Errorf("load descriptor: %w", err)
	}
	if desc == nil {
		return nil, fmt.Errorf("face %s in group %s: %w", faceID, groupID, store.ErrNotFound)
	}
	return desc, nil
}

func (l *Local) DeleteFace(ctx context.Context, groupID, faceID string) error {
	return l.descriptors.Delete(ctx, groupID, faceID)
}

func (l *Local) DeleteGroup(ctx context.Context, groupID string) error {
	descriptors, err := l.descriptors.ListByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list group descriptors: %w", err)
	}
	for _, desc := range descriptors {
		if err := l.descriptors.Delete(ctx, desc.GroupID, desc.FaceID); err != nil {
			return err
		}
	}
	return nil
}

func (l *Local) DeleteAll(ctx context.Context) error {
	descriptors, err := l.descriptors.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list descriptors: %w", err)
	}
	for _, desc := range descriptors {
		if err := l.descriptors.Delete(ctx, desc.GroupID, desc.FaceID); err != nil {
			return err
		}
	}
	return nil
}
