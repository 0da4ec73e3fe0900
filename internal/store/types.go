package store

import (
	"time"
)

// Capability is a tag granted to a chat or contact identity that
// enables specific handler behavior.
type Capability string

const (
	CapFaceRecognition           Capability = "face-recognition"
	CapFaceOwner                 Capability = "face-owner"
	CapBotManagement             Capability = "bot-management"
	CapFaceRecognitionManagement Capability = "face-recognition-management"
)

// CapabilityScope holds the capabilities granted to a single chat or
// contact identity. A scope record exists only while its capability
// set is non-empty.
type CapabilityScope struct {
	SourceID     string
	Capabilities []Capability
}

// Has reports whether the scope includes the given capability.
// A nil scope has no capabilities.
func (s *CapabilityScope) Has(c Capability) bool {
	if s == nil {
		return false
	}
	for _, have := range s.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// RecognizedFace binds a named face to the chat supplying photos and
// the chat receiving forwards. DestinationID stays empty until the
// destination handshake completes; AuthCode holds the pending one-time
// code and is cleared exactly once when the handshake succeeds.
type RecognizedFace struct {
	OwnerID       string // contact id of the face owner
	FaceName      string
	SourceID      string // chat supplying photos
	DestinationID string // chat receiving forwards, empty until bound
	AuthCode      string // pending handshake code, empty once bound
	FaceID        string // handle into the recognition backend
}

// FaceDescriptor stores the biometric samples for one face of one
// group, used only by the local recognition backend. IsTraining is a
// cooperative lock; waiters treat a lock older than the abandonment
// window as stale. ETag is the optimistic concurrency token,
// regenerated on every write.
type FaceDescriptor struct {
	GroupID    string
	FaceID     string
	Samples    [][]float32
	IsTraining bool
	UpdatedAt  time.Time
	ETag       string
}
