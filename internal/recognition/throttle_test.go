package recognition

import (
	"context"
	"errors"
	"testing"
)

type recordingClient struct {
	calls []string
	err   error
}

func (c *recordingClient) CreateGroupIfAbsent(ctx context.Context, groupID string) error {
	c.calls = append(c.calls, "CreateGroupIfAbsent")
	return c.err
}

func (c *recordingClient) CreateFace(ctx context.Context, groupID string) (string, error) {
	c.calls = append(c.calls, "CreateFace")
	return "face-1", c.err
}

func (c *recordingClient) Train(ctx context.Context, groupID, faceID string, image []byte) (bool, error) {
	c.calls = append(c.calls, "Train")
	return true, c.err
}

func (c *recordingClient) Detect(ctx context.Context, image []byte, groupID string) ([]string, error) {
	c.calls = append(c.calls, "Detect")
	return []string{"face-1"}, c.err
}

func (c *recordingClient) DeleteFace(ctx context.Context, groupID, faceID string) error {
	c.calls = append(c.calls, "DeleteFace")
	return c.err
}

func (c *recordingClient) DeleteGroup(ctx context.Context, groupID string) error {
	c.calls = append(c.calls, "DeleteGroup")
	return c.err
}

func (c *recordingClient) DeleteAll(ctx context.Context) error {
	c.calls = append(c.calls, "DeleteAll")
	return c.err
}

func TestThrottledPassThrough(t *testing.T) {
	inner := &recordingClient{}
	client := Throttled(inner)

	matched, err := client.Detect(context.Background(), []byte("img"), "g1")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(matched) != 1 || matched[0] != "face-1" {
		t.Errorf("expected [face-1], got %v", matched)
	}
	if len(inner.calls) != 1 || inner.calls[0] != "Detect" {
		t.Errorf("expected one Detect call, got %v", inner.calls)
	}
}

func TestThrottledPropagatesErrors(t *testing.T) {
	inner := &recordingClient{err: errors.New("backend down")}
	client := Throttled(inner)

	if err := client.DeleteGroup(context.Background(), "g1"); err == nil {
		t.Error("expected inner error to propagate")
	}
}

func TestThrottledCancelledContext(t *testing.T) {
	inner := &recordingClient{}
	client := Throttled(inner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Burn the initial rate token so the next call has to wait, then
	// check the cancelled context aborts before reaching the backend.
	if err := client.CreateGroupIfAbsent(context.Background(), "g1"); err != nil {
		t.Fatalf("warm-up call failed: %v", err)
	}
	if _, err := client.CreateFace(ctx, "g1"); err == nil {
		t.Error("expected cancelled context to abort the call")
	}
	if len(inner.calls) != 1 {
		t.Errorf("expected only the warm-up call, got %v", inner.calls)
	}
}
