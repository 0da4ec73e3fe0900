package recognition

import (
	"context"
	"errors"
	"testing"
	"time"

	"facerelay/internal/config"
	"facerelay/internal/store"
	"facerelay/internal/store/mock"
)

type fakeDetector struct {
	faces []DetectedFace
	err   error
}

func (f *fakeDetector) DetectFaces(ctx context.Context, imageData []byte) ([]DetectedFace, error) {
	return f.faces, f.err
}

func testThresholds() config.MatchingThresholds {
	return config.MatchingThresholds{
		MaxDistance:           0.43,
		MinTrainScore:         0.85,
		MinIdentifyConfidence: 0.7,
	}
}

func newTestLocal(detector *fakeDetector) (*Local, *mock.DescriptorRepository) {
	repo := mock.NewDescriptorRepository()
	local := NewLocal(repo, detector, testThresholds())
	local.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return local, repo
}

func TestLocalCreateFace(t *testing.T) {
	local, repo := newTestLocal(&fakeDetector{})
	ctx := context.Background()

	faceID, err := local.CreateFace(ctx, "group-1")
	if err != nil {
		t.Fatalf("CreateFace failed: %v", err)
	}
	if faceID == "" {
		t.Error("expected non-empty face id")
	}

	desc, err := repo.Get(ctx, "group-1", faceID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if desc == nil {
		t.Fatal("expected descriptor record to exist")
	}
	if len(desc.Samples) != 0 {
		t.Errorf("expected no samples on a new face, got %d", len(desc.Samples))
	}
}

func TestLocalTrainAppendsSample(t *testing.T) {
	detector := &fakeDetector{faces: []DetectedFace{
		{Descriptor: []float32{1, 0, 0}, Score: 0.95},
	}}
	local, repo := newTestLocal(detector)
	ctx := context.Background()

	faceID, err := local.CreateFace(ctx, "group-1")
	if err != nil {
		t.Fatalf("CreateFace failed: %v", err)
	}

	ok, err := local.Train(ctx, "group-1", faceID, []byte("img"))
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if !ok {
		t.Fatal("expected training to succeed")
	}

	desc, err := repo.Get(ctx, "group-1", faceID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(desc.Samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(desc.Samples))
	}
	if desc.IsTraining {
		t.Error("expected training lock to be released")
	}
}

func TestLocalTrainRejectsUnusableImages(t *testing.T) {
	tests := []struct {
		name  string
		faces []DetectedFace
	}{
		{"no face", nil},
		{"two faces", []DetectedFace{
			{Descriptor: []float32{1, 0, 0}, Score: 0.95},
			{Descriptor: []float32{0, 1, 0}, Score: 0.95},
		}},
		{"low score", []DetectedFace{
			{Descriptor: []float32{1, 0, 0}, Score: 0.5},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local, repo := newTestLocal(&fakeDetector{faces: tt.faces})
			ctx := context.Background()

			faceID, err := local.CreateFace(ctx, "group-1")
			if err != nil {
				t.Fatalf("CreateFace failed: %v", err)
			}

			ok, err := local.Train(ctx, "group-1", faceID, []byte("img"))
			if err != nil {
				t.Fatalf("Train failed: %v", err)
			}
			if ok {
				t.Error("expected training to be rejected")
			}

			desc, _ := repo.Get(ctx, "group-1", faceID)
			if len(desc.Samples) != 0 {
				t.Errorf("expected no samples, got %d", len(desc.Samples))
			}
		})
	}
}

func TestLocalTrainDetectorError(t *testing.T) {
	local, _ := newTestLocal(&fakeDetector{err: errors.New("detector down")})

	_, err := local.Train(context.Background(), "group-1", "face-1", []byte("img"))
	if err == nil {
		t.Error("expected detector error to propagate")
	}
}

func TestLocalTrainMissingFace(t *testing.T) {
	detector := &fakeDetector{faces: []DetectedFace{
		{Descriptor: []float32{1, 0, 0}, Score: 0.95},
	}}
	local, _ := newTestLocal(detector)

	_, err := local.Train(context.Background(), "group-1", "missing", []byte("img"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalTrainWaitsForLock(t *testing.T) {
	detector := &fakeDetector{faces: []DetectedFace{
		{Descriptor: []float32{1, 0, 0}, Score: 0.95},
	}}
	local, repo := newTestLocal(detector)
	ctx := context.Background()

	faceID, err := local.CreateFace(ctx, "group-1")
	if err != nil {
		t.Fatalf("CreateFace failed: %v", err)
	}

	// Another trainer holds the lock; release it after the first poll.
	desc, _ := repo.Get(ctx, "group-1", faceID)
	desc.IsTraining = true
	if _, err := repo.Update(ctx, desc); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	polls := 0
	local.sleep = func(ctx context.Context, d time.Duration) error {
		polls++
		locked, _ := repo.Get(ctx, "group-1", faceID)
		locked.IsTraining = false
		if _, err := repo.Update(ctx, locked); err != nil {
			t.Fatalf("release failed: %v", err)
		}
		return nil
	}

	ok, err := local.Train(ctx, "group-1", faceID, []byte("img"))
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if !ok {
		t.Fatal("expected training to succeed after the lock cleared")
	}
	if polls != 1 {
		t.Errorf("expected 1 poll wait, got %d", polls)
	}
}

func TestLocalTrainProceedsPastAbandonedLock(t *testing.T) {
	detector := &fakeDetector{faces: []DetectedFace{
		{Descriptor: []float32{1, 0, 0}, Score: 0.95},
	}}
	local, repo := newTestLocal(detector)
	ctx := context.Background()

	faceID, err := local.CreateFace(ctx, "group-1")
	if err != nil {
		t.Fatalf("CreateFace failed: %v", err)
	}

	// A crashed trainer left the lock set long ago.
	desc, _ := repo.Get(ctx, "group-1", faceID)
	desc.IsTraining = true
	if _, err := repo.Update(ctx, desc); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	repo.SetUpdatedAt("group-1", faceID, time.Now().Add(-2*time.Minute))

	local.sleep = func(ctx context.Context, d time.Duration) error {
		t.Fatal("should not wait on an abandoned lock")
		return nil
	}

	ok, err := local.Train(ctx, "group-1", faceID, []byte("img"))
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if !ok {
		t.Fatal("expected training to proceed past the abandoned lock")
	}

	trained, _ := repo.Get(ctx, "group-1", faceID)
	if len(trained.Samples) != 1 {
		t.Errorf("expected 1 sample, got %d", len(trained.Samples))
	}
}

func TestLocalDetect(t *testing.T) {
	detector := &fakeDetector{faces: []DetectedFace{
		{Descriptor: []float32{1, 0, 0}, Score: 0.95},
	}}
	local, repo := newTestLocal(detector)
	ctx := context.Background()

	faceID, err := local.CreateFace(ctx, "group-1")
	if err != nil {
		t.Fatalf("CreateFace failed: %v", err)
	}
	if _, err := local.Train(ctx, "group-1", faceID, []byte("img")); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	// A different face in another group must not match.
	otherID, _ := local.CreateFace(ctx, "group-2")
	other, _ := repo.Get(ctx, "group-2", otherID)
	other.Samples = [][]float32{{1, 0, 0}}
	if _, err := repo.Update(ctx, other); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	matched, err := local.Detect(ctx, []byte("img"), "group-1")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(matched) != 1 || matched[0] != faceID {
		t.Errorf("expected [%s], got %v", faceID, matched)
	}
}

func TestLocalDetectNoMatchBeyondThreshold(t *testing.T) {
	// The probe points in a different direction than the trained sample.
	detector := &fakeDetector{faces: []DetectedFace{
		{Descriptor: []float32{0, 1, 0}, Score: 0.95},
	}}
	local, repo := newTestLocal(detector)
	ctx := context.Background()

	faceID, _ := local.CreateFace(ctx, "group-1")
	desc, _ := repo.Get(ctx, "group-1", faceID)
	desc.Samples = [][]float32{{1, 0, 0}}
	if _, err := repo.Update(ctx, desc); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	matched, err := local.Detect(ctx, []byte("img"), "group-1")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(matched) != 0 {
		t.Errorf("expected no matches, got %v", matched)
	}
}

func TestLocalDetectNoFacesInImage(t *testing.T) {
	local, _ := newTestLocal(&fakeDetector{})

	matched, err := local.Detect(context.Background(), []byte("img"), "group-1")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if matched != nil {
		t.Errorf("expected nil matches, got %v", matched)
	}
}

func TestLocalDeleteGroup(t *testing.T) {
	local, repo := newTestLocal(&fakeDetector{})
	ctx := context.Background()

	id1, _ := local.CreateFace(ctx, "group-1")
	id2, _ := local.CreateFace(ctx, "group-1")
	kept, _ := local.CreateFace(ctx, "group-2")

	if err := local.DeleteGroup(ctx, "group-1"); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}

	for _, id := range []string{id1, id2} {
		if desc, _ := repo.Get(ctx, "group-1", id); desc != nil {
			t.Errorf("expected face %s to be deleted", id)
		}
	}
	if desc, _ := repo.Get(ctx, "group-2", kept); desc == nil {
		t.Error("expected other group's face to survive")
	}
}

func TestLocalDeleteAll(t *testing.T) {
	local, repo := newTestLocal(&fakeDetector{})
	ctx := context.Background()

	local.CreateFace(ctx, "group-1")
	local.CreateFace(ctx, "group-2")

	if err := local.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}

	all, _ := repo.ListAll(ctx)
	if len(all) != 0 {
		t.Errorf("expected empty store, got %d descriptors", len(all))
	}
}
