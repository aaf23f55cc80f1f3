// Package index holds the retrieval indices built over the corpus: an
// append-only vector index (in-memory flat or pgvector-backed) and a
// BM25 keyword index. Index rows are never authoritative; they reference
// corpus positions and chunk ids that must be resolved back through the
// chunk store.
package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"manualqa/types"
)

// VectorIndex is the dense-retrieval collaborator. Rows are append-only and
// row i corresponds to corpus position i; Search returns positions ordered
// best-first by inner product (cosine, vectors being unit-normalized).
type VectorIndex interface {
	Add(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]int, error)
	Rows(ctx context.Context) (int, error)
}

// KeywordIndex is the lexical-retrieval collaborator, BM25-family relevance
// over title and text fields.
type KeywordIndex interface {
	Add(ctx context.Context, chunks []types.Chunk) error
	Search(ctx context.Context, query string, k int) ([]types.KeywordHit, error)
}

// MemoryVectorIndex is a flat inner-product index over normalized vectors,
// the default single-replica backend.
type MemoryVectorIndex struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
}

func NewMemoryVectorIndex() *MemoryVectorIndex {
	return &MemoryVectorIndex{}
}

func (m *MemoryVectorIndex) Add(_ context.Context, vectors [][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range vectors {
		if m.dim == 0 {
			m.dim = len(v)
		}
		if len(v) != m.dim {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(v), m.dim)
		}
	}
	m.vectors = append(m.vectors, vectors...)
	return nil
}

func (m *MemoryVectorIndex) Search(_ context.Context, vector []float32, k int) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.vectors) == 0 {
		return nil, nil
	}

	scores := make([]float32, len(m.vectors))
	for i, v := range m.vectors {
		scores[i] = dot(v, vector)
	}
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx, nil
}

func (m *MemoryVectorIndex) Rows(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors), nil
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
