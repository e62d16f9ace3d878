package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hyperjump/zukan/internal/models"
)

// MemoryIndex is an exact in-memory index using brute-force inner product search.
type MemoryIndex struct {
	dimensions int
	defaultK   int
	model      string

	mu    sync.RWMutex
	state *snapshot
}

// snapshot is an immutable built index. A new one is constructed completely before it
// replaces the old one.
type snapshot struct {
	id      string
	units   []models.ContentUnit
	vectors [][]float32
}

// MemoryIndexOption configures a MemoryIndex.
type MemoryIndexOption func(*MemoryIndex)

// WithDefaultK sets the result count used when Search is called with k <= 0.
func WithDefaultK(k int) MemoryIndexOption {
	return func(m *MemoryIndex) {
		if k > 0 {
			m.defaultK = k
		}
	}
}

// WithModel records the embedding model name in saved metadata.
func WithModel(name string) MemoryIndexOption {
	return func(m *MemoryIndex) { m.model = name }
}

// NewMemoryIndex creates an empty index for vectors of the given dimension.
func NewMemoryIndex(dimensions int, opts ...MemoryIndexOption) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	m := &MemoryIndex{dimensions: dimensions, defaultK: DefaultK}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Build replaces the index with units and their embeddings. On error the previous
// contents are kept.
func (m *MemoryIndex) Build(ctx context.Context, units []models.ContentUnit, embeddings [][]float32) error {
	s, err := m.newSnapshot(uuid.NewString(), units, embeddings)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) newSnapshot(id string, units []models.ContentUnit, embeddings [][]float32) (*snapshot, error) {
	if len(units) == 0 || len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: no content units or embeddings", ErrBuild)
	}
	if len(units) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d units but %d embeddings", ErrBuild, len(units), len(embeddings))
	}
	s := &snapshot{
		id:      id,
		units:   make([]models.ContentUnit, len(units)),
		vectors: make([][]float32, len(embeddings)),
	}
	copy(s.units, units)
	for i, v := range embeddings {
		if len(v) != m.dimensions {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, expected %d", ErrBuild, i, len(v), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, v)
		s.vectors[i] = vec
	}
	return s, nil
}

// Search returns the k units most similar to query by inner product, best first. Equal
// scores keep insertion order. k <= 0 uses the default; k larger than the index is clamped.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]models.SearchHit, error) {
	m.mu.RLock()
	s := m.state
	m.mu.RUnlock()
	if s == nil {
		return nil, ErrNotInitialized
	}
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	if k <= 0 {
		k = m.defaultK
	}
	if k > len(s.units) {
		k = len(s.units)
	}

	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, len(s.vectors))
	for i, vec := range s.vectors {
		scores[i] = scored{pos: i, score: InnerProduct(query, vec)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	hits := make([]models.SearchHit, k)
	for i := 0; i < k; i++ {
		hits[i] = models.SearchHit{
			Unit:  s.units[scores[i].pos],
			Score: scores[i].score,
			Rank:  i + 1,
		}
	}
	return hits, nil
}

// Units returns a copy of the indexed units, or nil when uninitialized.
func (m *MemoryIndex) Units() []models.ContentUnit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return nil
	}
	out := make([]models.ContentUnit, len(m.state.units))
	copy(out, m.state.units)
	return out
}

// ID returns the identifier of the current build, or "" when uninitialized.
func (m *MemoryIndex) ID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return ""
	}
	return m.state.id
}

// Size returns the number of indexed units.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return 0
	}
	return len(m.state.units)
}

// Dimensions returns the vector dimension the index accepts.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Initialized reports whether Build or Load has succeeded.
func (m *MemoryIndex) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state != nil
}
