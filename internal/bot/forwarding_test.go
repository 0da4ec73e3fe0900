package bot

import (
	"context"
	"testing"

	"facerelay/internal/store"
	"facerelay/internal/store/mock"
)

func sourceScope() *store.CapabilityScope {
	return &store.CapabilityScope{
		SourceID:     "source@g.us",
		Capabilities: []store.Capability{store.CapFaceRecognition},
	}
}

func newForwardingFixture(t *testing.T) (*ForwardingHandler, *fakeBackend, *fakeTransport) {
	t.Helper()
	faces := mock.NewFaceRepository()
	ctx := context.Background()
	faces.Add(ctx, &store.RecognizedFace{
		OwnerID: "owner@c.us", FaceName: "Anna",
		SourceID: "source@g.us", DestinationID: "dest-anna@g.us", FaceID: "face-anna",
	})
	faces.Add(ctx, &store.RecognizedFace{
		OwnerID: "owner@c.us", FaceName: "Pending",
		SourceID: "source@g.us", AuthCode: "code", FaceID: "face-pending",
	})

	backend := newFakeBackend()
	transport := newFakeTransport()
	transport.chats = []Chat{
		{ID: "dest-anna@g.us", Name: "Anna's family", IsGroup: true},
	}
	return NewForwardingHandler(faces, backend, transport), backend, transport
}

func TestForwardingMatchedFace(t *testing.T) {
	handler, backend, _ := newForwardingFixture(t)
	backend.detectIDs = []string{"FACE-ANNA"} // id casing differs between backends

	msg := &fakeMessage{
		from:  "source@g.us",
		media: &Media{MimeType: "image/jpeg", Data: []byte("img")},
	}
	handled, err := handler.TryHandle(context.Background(), msg, sourceScope())
	if err != nil {
		t.Fatalf("TryHandle failed: %v", err)
	}
	if !handled {
		t.Fatal("expected forwarding to claim the photo")
	}
	if len(msg.forwards) != 1 || msg.forwards[0] != "dest-anna@g.us" {
		t.Errorf("expected forward to dest-anna@g.us, got %v", msg.forwards)
	}
}

func TestForwardingNoMatch(t *testing.T) {
	handler, backend, _ := newForwardingFixture(t)
	backend.detectIDs = nil

	msg := &fakeMessage{
		from:  "source@g.us",
		media: &Media{MimeType: "image/jpeg", Data: []byte("img")},
	}
	handled, err := handler.TryHandle(context.Background(), msg, sourceScope())
	if err != nil {
		t.Fatalf("TryHandle failed: %v", err)
	}
	if !handled {
		t.Error("expected the photo to be claimed even without matches")
	}
	if len(msg.forwards) != 0 {
		t.Errorf("expected no forwards, got %v", msg.forwards)
	}
}

func TestForwardingSkipsUnboundFaces(t *testing.T) {
	handler, backend, _ := newForwardingFixture(t)
	backend.detectIDs = []string{"face-pending"}

	msg := &fakeMessage{
		from:  "source@g.us",
		media: &Media{MimeType: "image/jpeg", Data: []byte("img")},
	}
	if _, err := handler.TryHandle(context.Background(), msg, sourceScope()); err != nil {
		t.Fatalf("TryHandle failed: %v", err)
	}
	if len(msg.forwards) != 0 {
		t.Errorf("expected no forward for a face without a destination, got %v", msg.forwards)
	}
}

func TestForwardingSkipsUnresolvableDestination(t *testing.T) {
	handler, backend, transport := newForwardingFixture(t)
	backend.detectIDs = []string{"face-anna"}
	transport.chats = nil // destination chat no longer exists

	msg := &fakeMessage{
		from:  "source@g.us",
		media: &Media{MimeType: "image/jpeg", Data: []byte("img")},
	}
	handled, err := handler.TryHandle(context.Background(), msg, sourceScope())
	if err != nil {
		t.Fatalf("TryHandle failed: %v", err)
	}
	if !handled {
		t.Error("expected the photo to stay claimed")
	}
	if len(msg.forwards) != 0 {
		t.Errorf("expected no forwards to a missing chat, got %v", msg.forwards)
	}
}

func TestForwardingRequiresRecognitionScope(t *testing.T) {
	handler, backend, _ := newForwardingFixture(t)
	backend.detectIDs = []string{"face-anna"}

	msg := &fakeMessage{
		from:  "source@g.us",
		media: &Media{MimeType: "image/jpeg", Data: []byte("img")},
	}
	handled, err := handler.TryHandle(context.Background(), msg, nil)
	if err != nil {
		t.Fatalf("TryHandle failed: %v", err)
	}
	if handled {
		t.Error("expected no claim without the face-recognition capability")
	}
}

func TestForwardingIgnoresNonImageMedia(t *testing.T) {
	handler, backend, _ := newForwardingFixture(t)
	backend.detectIDs = []string{"face-anna"}

	msg := &fakeMessage{
		from:  "source@g.us",
		media: &Media{MimeType: "audio/ogg", Data: []byte("voice")},
	}
	handled, err := handler.TryHandle(context.Background(), msg, sourceScope())
	if err != nil {
		t.Fatalf("TryHandle failed: %v", err)
	}
	if !handled {
		t.Error("expected non-image media in a source chat to be claimed")
	}
	if len(msg.forwards) != 0 {
		t.Errorf("expected no forwards for non-image media, got %v", msg.forwards)
	}
}
