package qa

import (
	"context"
	"log"
	"sort"

	"manualqa/types"
)

// VectorSearcher returns the best-first, internally deduplicated chunks for a
// query. Implementations embed the query themselves.
type VectorSearcher interface {
	SearchVector(ctx context.Context, query string, k int) ([]types.Chunk, error)
}

// KeywordSearcher returns scored chunk ids for a query. The hit list carries
// no ordering contract.
type KeywordSearcher interface {
	SearchKeyword(ctx context.Context, query string, k int) ([]types.KeywordHit, error)
}

// ChunkResolver resolves a chunk id back to the authoritative chunk.
type ChunkResolver interface {
	ChunkByID(id string) (types.Chunk, bool)
}

// Fuser merges vector and keyword candidate lists into one deduplicated,
// weighted ranking. Vector ranks contribute reciprocal-rank scores
// (Alpha / (RRFK + rank)); keyword hits contribute linearly rescaled raw
// scores ((1-Alpha) * score/KeywordDivisor). The constants are empirically
// tuned defaults, not principled values.
type Fuser struct {
	Vector  VectorSearcher
	Keyword KeywordSearcher
	Chunks  ChunkResolver

	Alpha          float64
	RRFK           float64
	KeywordDivisor float64
}

// NewFuser returns a Fuser with the default tuning (alpha 0.6, smoothing 60,
// keyword divisor 100).
func NewFuser(vec VectorSearcher, kw KeywordSearcher, chunks ChunkResolver) *Fuser {
	return &Fuser{
		Vector:         vec,
		Keyword:        kw,
		Chunks:         chunks,
		Alpha:          0.6,
		RRFK:           60.0,
		KeywordDivisor: 100.0,
	}
}

// Search returns at most k distinct chunks for the query. Both sources are
// over-fetched to build a wide pool before truncation; collaborator failures
// degrade that source to an empty list. Slots left after ranking are
// backfilled from the raw vector order.
func (f *Fuser) Search(ctx context.Context, query string, k int) []types.Chunk {
	vecDocs, err := f.Vector.SearchVector(ctx, query, max(k*3, 12))
	if err != nil {
		log.Printf("[FUSION] vector search failed: %v", err)
		vecDocs = nil
	}
	kwHits, err := f.Keyword.SearchKeyword(ctx, query, max(k*6, 24))
	if err != nil {
		log.Printf("[FUSION] keyword search failed: %v", err)
		kwHits = nil
	}
	return f.Fuse(vecDocs, kwHits, k)
}

// Fuse merges already-retrieved candidate lists; split out from Search so the
// scoring is testable without collaborators.
func (f *Fuser) Fuse(vecDocs []types.Chunk, kwHits []types.KeywordHit, k int) []types.Chunk {
	pool := f.Scores(vecDocs, kwHits)

	ranked := make([]string, 0, len(pool))
	for id := range pool {
		ranked = append(ranked, id)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if pool[ranked[i]] != pool[ranked[j]] {
			return pool[ranked[i]] > pool[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	out := make([]types.Chunk, 0, k)
	seen := make(map[string]bool, k)
	for _, id := range ranked {
		if len(out) >= k {
			break
		}
		if seen[id] {
			continue
		}
		doc, ok := f.Chunks.ChunkByID(id)
		if !ok {
			continue
		}
		seen[id] = true
		out = append(out, doc)
	}
	// Backfill from the raw vector order when the pool came up short.
	for _, d := range vecDocs {
		if len(out) >= k {
			break
		}
		if !seen[d.ID] {
			seen[d.ID] = true
			out = append(out, d)
		}
	}
	return out
}

// Scores pools the per-source contributions, keyed by chunk id so both
// sources accumulate on the same entry.
func (f *Fuser) Scores(vecDocs []types.Chunk, kwHits []types.KeywordHit) map[string]float64 {
	pool := make(map[string]float64)
	for rank, d := range vecDocs {
		pool[d.ID] += f.Alpha / (f.RRFK + float64(rank+1))
	}
	for _, h := range kwHits {
		pool[h.ID] += (1.0 - f.Alpha) * (h.Score / f.KeywordDivisor)
	}
	return pool
}
