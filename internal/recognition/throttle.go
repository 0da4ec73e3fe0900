package recognition

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	// maxInFlight bounds concurrent backend calls.
	maxInFlight = 5
	// dispatchInterval is the minimum spacing between dispatches.
	dispatchInterval = 1000 * time.Millisecond
)

// throttled decorates a Client with a shared limiter: at most
// maxInFlight calls run concurrently and dispatches are spaced at
// least dispatchInterval apart, across training and detection alike.
type throttled struct {
	inner   Client
	slots   *semaphore.Weighted
	limiter *rate.Limiter
}

// Throttled wraps a backend in the uniform rate limiter. Every
// operation passes through the same limiter instance.
func Throttled(inner Client) Client {
	return &throttled{
		inner:   inner,
		slots:   semaphore.NewWeighted(maxInFlight),
		limiter: rate.NewLimiter(rate.Every(dispatchInterval), 1),
	}
}

func (t *throttled) acquire(ctx context.Context) (release func(), err error) {
	if err := t.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := t.limiter.Wait(ctx); err != nil {
		t.slots.Release(1)
		return nil, err
	}
	return func() { t.slots.Release(1) }, nil
}

func (t *throttled) CreateGroupIfAbsent(ctx context.Context, groupID string) error {
	release, err := t.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return t.inner.CreateGroupIfAbsent(ctx, groupID)
}

func (t *throttled) CreateFace(ctx context.Context, groupID string) (string, error) {
	release, err := t.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return t.inner.CreateFace(ctx, groupID)
}

func (t *throttled) Train(ctx context.Context, groupID, faceID string, image []byte) (bool, error) {
	release, err := t.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()
	return t.inner.Train(ctx, groupID, faceID, image)
}

func (t *throttled) Detect(ctx context.Context, image []byte, groupID string) ([]string, error) {
	release, err := t.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return t.inner.Detect(ctx, image, groupID)
}

func (t *throttled) DeleteFace(ctx context.Context, groupID, faceID string) error {
	release, err := t.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return t.inner.DeleteFace(ctx, groupID, faceID)
}

func (t *throttled) DeleteGroup(ctx context.Context, groupID string) error {
	release, err := t.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return t.inner.DeleteGroup(ctx, groupID)
}

func (t *throttled) DeleteAll(ctx context.Context) error {
	release, err := t.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return t.inner.DeleteAll(ctx)
}
