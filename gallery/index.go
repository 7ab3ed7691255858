/*
Package gallery holds the enrolled-employee side of face recognition:
a roster of employees with their face embeddings, an HNSW index for
nearest-neighbour identity lookup, and a client for the external
detection/embedding service.

The vision pipeline itself stays external. This package consumes
embeddings and produces identities; an identity is "recognized" when
its cosine distance to the best enrolled match is at or under the
configured threshold.
*/
package gallery

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"
)

// DefaultThreshold is the cosine-distance cutoff for accepting a match.
const DefaultThreshold = 0.4

// Match is a recognized identity with its distance to the query.
type Match struct {
	EmployeeID string
	Name       string
	Distance   float64
}

// Index is an HNSW graph over enrolled employee embeddings, keyed by
// employee ID. Safe for concurrent use. All embeddings share one
// dimension, fixed by the first enrollment; the graph panics on mixed
// dimensions, so Enroll and Identify validate before touching it.
type Index struct {
	mu        sync.RWMutex
	graph     *hnsw.Graph[string]
	names     map[string]string
	dims      int // embedding dimension, 0 until first enrollment
	threshold float64
}

// NewIndex creates an empty index with the given distance threshold.
// A non-positive threshold falls back to DefaultThreshold.
func NewIndex(threshold float64) *Index {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Index{
		names:     make(map[string]string),
		threshold: threshold,
	}
}

// NewIndexFromRoster builds an index over all enrolled employees.
// Fails when the roster holds embeddings of mixed dimensions.
func NewIndexFromRoster(r *Roster, threshold float64) (*Index, error) {
	idx := NewIndex(threshold)
	for _, emp := range r.List() {
		if len(emp.Embedding) == 0 {
			continue
		}
		if err := idx.Enroll(emp.ID, emp.Name, emp.Embedding); err != nil {
			return nil, fmt.Errorf("enroll %s: %w", emp.ID, err)
		}
	}
	return idx, nil
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = 16
	g.Ml = 1.0 / 16.0
	g.Distance = hnsw.CosineDistance
	return g
}

// Enroll adds or replaces an employee's embedding in the index. The
// first enrollment fixes the embedding dimension.
func (idx *Index) Enroll(employeeID, name string, embedding []float32) error {
	if len(embedding) == 0 {
		return errors.New("empty embedding")
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dims == 0 {
		idx.dims = len(embedding)
	} else if len(embedding) != idx.dims {
		return fmt.Errorf("embedding dimension mismatch: %d vs %d", idx.dims, len(embedding))
	}

	if idx.graph == nil {
		idx.graph = newGraph()
	}
	idx.graph.Add(hnsw.MakeNode(employeeID, embedding))
	idx.names[employeeID] = name
	return nil
}

// Remove deletes an employee from the index.
func (idx *Index) Remove(employeeID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.graph != nil {
		idx.graph.Delete(employeeID)
	}
	delete(idx.names, employeeID)

	// An empty index no longer has a fixed dimension.
	if len(idx.names) == 0 {
		idx.graph = nil
		idx.dims = 0
	}
}

// Len returns the number of enrolled employees.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.names)
}

// Identify returns the best match for the embedding when its cosine
// distance is within the threshold, or nil when the face is unknown.
func (idx *Index) Identify(embedding []float32) (*Match, error) {
	if len(embedding) == 0 {
		return nil, errors.New("empty embedding")
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil || len(idx.names) == 0 {
		return nil, nil
	}
	// The graph panics on a query of the wrong dimension; reject it as
	// an ordinary error before searching.
	if len(embedding) != idx.dims {
		return nil, fmt.Errorf("embedding dimension mismatch: %d vs %d", idx.dims, len(embedding))
	}

	neighbors := idx.graph.Search(embedding, 1)
	if len(neighbors) == 0 {
		return nil, nil
	}

	best := neighbors[0]
	dist, err := cosineDistance(embedding, best.Value)
	if err != nil {
		return nil, err
	}
	if dist > idx.threshold {
		return nil, nil
	}

	return &Match{
		EmployeeID: best.Key,
		Name:       idx.names[best.Key],
		Distance:   dist,
	}, nil
}

// cosineDistance is 1 - cosine similarity.
func cosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, errors.New("zero-magnitude embedding")
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
}
