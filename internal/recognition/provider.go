package recognition

import (
	"facerelay/internal/config"
	"facerelay/internal/store"
)

// NewClient builds the configured recognition backend. A configured
// face-service URL selects the remote backend; otherwise faces are
// matched locally against stored descriptors. Either backend is
// wrapped in the shared rate limiter.
func NewClient(cfg *config.Config, descriptors store.DescriptorRepository) Client {
	if cfg.Recognition.FaceServiceURL != "" {
		return Throttled(NewRemote(cfg.Recognition.FaceServiceURL, cfg.Recognition.FaceServiceKey, cfg.Thresholds.Matching))
	}
	detector := NewDetectorClient(cfg.Recognition.DetectorURL)
	return Throttled(NewLocal(descriptors, detector, cfg.Thresholds.Matching))
}
