package bot

import (
	"context"
	"strings"
	"testing"

	"facerelay/internal/recognition"
	"facerelay/internal/store"
	"facerelay/internal/store/mock"
)

func ownerScope() *store.CapabilityScope {
	return &store.CapabilityScope{
		SourceID:     "owner@c.us",
		Capabilities: []store.Capability{store.CapFaceOwner},
	}
}

func newTrainingFixture(t *testing.T) (*TrainingHandler, *fakeBackend) {
	t.Helper()
	faces := mock.NewFaceRepository()
	ctx := context.Background()
	faces.Add(ctx, &store.RecognizedFace{
		OwnerID: "owner@c.us", FaceName: "Anna",
		SourceID: "source@g.us", FaceID: "face-anna",
	})
	faces.Add(ctx, &store.RecognizedFace{
		OwnerID: "owner@c.us", FaceName: "Beáta",
		SourceID: "source@g.us", FaceID: "face-beata",
	})

	backend := newFakeBackend()
	return NewTrainingHandler(faces, backend), backend
}

func TestTrainingMentionedFaces(t *testing.T) {
	handler, backend := newTrainingFixture(t)
	msg := &fakeMessage{
		from: "owner@c.us", body: "a photo of Anna",
		media: &Media{MimeType: "image/jpeg", Data: []byte("img")},
	}

	handled, err := handler.TryHandle(context.Background(), msg, ownerScope())
	if err != nil {
		t.Fatalf("TryHandle failed: %v", err)
	}
	if !handled {
		t.Fatal("expected training to claim the message")
	}

	if len(backend.trained) != 1 || backend.trained[0].faceID != "face-anna" {
		t.Errorf("expected face-anna trained, got %v", backend.trained)
	}
	if backend.trained[0].groupID != recognition.GroupID("source@g.us") {
		t.Errorf("expected training against the source group, got %q", backend.trained[0].groupID)
	}
	if len(msg.replies) != 1 || !strings.Contains(msg.replies[0], "Anna") {
		t.Errorf("expected a confirmation naming Anna, got %v", msg.replies)
	}
}

func TestTrainingNormalizedNameMatch(t *testing.T) {
	handler, backend := newTrainingFixture(t)
	// Accent-free lowercase mention of "Beáta".
	msg := &fakeMessage{
		from: "owner@c.us", body: "this is beata!",
		media: &Media{MimeType: "image/jpeg", Data: []byte("img")},
	}

	if _, err := handler.TryHandle(context.Background(), msg, ownerScope()); err != nil {
		t.Fatalf("TryHandle failed: %v", err)
	}
	if len(backend.trained) != 1 || backend.trained[0].faceID != "face-beata" {
		t.Errorf("expected face-beata trained, got %v", backend.trained)
	}
}

func TestTrainingCaptionlessPhotoTrainsAllOwnedFaces(t *testing.T) {
	handler, backend := newTrainingFixture(t)
	msg := &fakeMessage{
		from:  "owner@c.us",
		media: &Media{MimeType: "image/jpeg", Data: []byte("img")},
	}

	handled, err := handler.TryHandle(context.Background(), msg, ownerScope())
	if err != nil {
		t.Fatalf("TryHandle failed: %v", err)
	}
	if !handled {
		t.Fatal("expected a captionless owner photo to be claimed")
	}
	if len(backend.trained) != 2 {
		t.Errorf("expected both owned faces trained, got %v", backend.trained)
	}
	if len(msg.replies) != 1 || !strings.Contains(msg.replies[0], "Trained 2") {
		t.Errorf("expected a confirmation counting both faces, got %v", msg.replies)
	}
}

func TestTrainingUnmatchedCaptionTrainsNothing(t *testing.T) {
	handler, backend := newTrainingFixture(t)
	msg := &fakeMessage{
		from: "owner@c.us", body: "random caption",
		media: &Media{MimeType: "image/jpeg", Data: []byte("img")},
	}

	handled, err := handler.TryHandle(context.Background(), msg, ownerScope())
	if err != nil {
		t.Fatalf("TryHandle failed: %v", err)
	}
	if !handled {
		t.Fatal("expected the owner photo to stay claimed")
	}
	if len(backend.trained) != 0 {
		t.Error("expected no training calls")
	}
	if len(msg.replies) != 1 || !strings.Contains(msg.replies[0], "Trained 0") {
		t.Errorf("expected a zero-count confirmation, got %v", msg.replies)
	}
}

func TestTrainingNoOwnedFacesPassesThrough(t *testing.T) {
	handler, backend := newTrainingFixture(t)
	msg := &fakeMessage{
		from:  "stranger@c.us",
		media: &Media{MimeType: "image/jpeg", Data: []byte("img")},
	}
	scope := &store.CapabilityScope{
		SourceID:     "stranger@c.us",
		Capabilities: []store.Capability{store.CapFaceOwner},
	}

	handled, err := handler.TryHandle(context.Background(), msg, scope)
	if err != nil {
		t.Fatalf("TryHandle failed: %v", err)
	}
	if handled {
		t.Error("expected a sender without faces to pass through")
	}
	if len(backend.trained) != 0 {
		t.Error("expected no training calls")
	}
}

func TestTrainingRequiresOwnerScope(t *testing.T) {
	handler, _ := newTrainingFixture(t)
	msg := &fakeMessage{
		from: "owner@c.us", body: "Anna",
		media: &Media{MimeType: "image/jpeg", Data: []byte("img")},
	}

	handled, err := handler.TryHandle(context.Background(), msg, nil)
	if err != nil {
		t.Fatalf("TryHandle failed: %v", err)
	}
	if handled {
		t.Error("expected no claim without the face-owner capability")
	}
}

func TestTrainingDeclinesNonImageMedia(t *testing.T) {
	handler, backend := newTrainingFixture(t)
	msg := &fakeMessage{
		from: "owner@c.us", body: "Anna",
		media: &Media{MimeType: "video/mp4", Data: []byte("vid")},
	}

	handled, err := handler.TryHandle(context.Background(), msg, ownerScope())
	if err != nil {
		t.Fatalf("TryHandle failed: %v", err)
	}
	if handled {
		t.Error("expected non-image media to pass through")
	}
	if len(backend.trained) != 0 {
		t.Error("expected no training from non-image media")
	}
	if len(msg.replies) != 0 {
		t.Errorf("expected no reply, got %v", msg.replies)
	}
}

func TestTrainingRejectedSampleReportsFailure(t *testing.T) {
	handler, backend := newTrainingFixture(t)
	backend.trainOK = false
	msg := &fakeMessage{
		from: "owner@c.us", body: "Anna and Beáta",
		media: &Media{MimeType: "image/jpeg", Data: []byte("img")},
	}

	handled, err := handler.TryHandle(context.Background(), msg, ownerScope())
	if err != nil {
		t.Fatalf("TryHandle failed: %v", err)
	}
	if !handled {
		t.Error("expected failed training to be claimed")
	}
	if len(msg.replies) != 1 || !strings.Contains(msg.replies[0], "Could not learn") {
		t.Errorf("expected a failure reply, got %v", msg.replies)
	}
}
