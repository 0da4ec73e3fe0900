package recognition

import (
	"fmt"

	"github.com/coder/hnsw"

	"facerelay/internal/store"
)

const matcherMaxNeighbors = 16

// matcher answers nearest-neighbor queries over the descriptor
// samples of one group. Each sample is its own node so a face matches
// on any of its trained samples.
type matcher struct {
	graph    *hnsw.Graph[string]
	sampleOf map[string]string // node key -> face id
}

// newMatcher builds an in-memory index over the group's descriptors.
// Faces without samples are skipped; an empty matcher matches nothing.
func newMatcher(descriptors []store.FaceDescriptor) *matcher {
	g := hnsw.NewGraph[string]()
	g.M = matcherMaxNeighbors
	g.Ml = 1.0 / float64(matcherMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	m := &matcher{
		graph:    g,
		sampleOf: make(map[string]string),
	}

	for _, desc := range descriptors {
		for i, sample := range desc.Samples {
			if len(sample) == 0 {
				continue
			}
			key := fmt.Sprintf("%s#%d", desc.FaceID, i)
			g.Add(hnsw.MakeNode(key, sample))
			m.sampleOf[key] = desc.FaceID
		}
	}

	return m
}

// BestMatch returns the face whose nearest sample is within
// maxDistance of the query descriptor, or "" when nothing qualifies.
func (m *matcher) BestMatch(query []float32, maxDistance float64) string {
	if len(m.sampleOf) == 0 {
		return ""
	}

	neighbors := m.graph.Search(query, 1)
	if len(neighbors) == 0 {
		return ""
	}

	// Recompute the exact distance from the node's own vector; the
	// graph's internal metric is approximate at the edges.
	best := neighbors[0]
	if CosineDistance(query, best.Value) > maxDistance {
		return ""
	}
	return m.sampleOf[best.Key]
}
