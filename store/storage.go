package store

import (
	"context"
	"fmt"
	"log"
	"sync"

	"manualqa/index"
	"manualqa/model"
	"manualqa/qa"
	"manualqa/types"
)

// Default chunking window, in characters.
const (
	DefaultChunkSize    = 400
	DefaultChunkOverlap = 80
)

// Corpus is the shared in-memory ground truth: an append-only chunk store
// plus the vector and keyword indices built over it. Vector row i always maps
// to the chunk at position i (the index bijection); ingestion is a
// single-writer critical section so readers never observe a partial batch.
type Corpus struct {
	mu     sync.RWMutex
	chunks []types.Chunk
	byID   map[string]int

	embedder model.Embedder
	vectors  index.VectorIndex
	keywords index.KeywordIndex

	ChunkSize    int
	ChunkOverlap int
}

func NewCorpus(embedder model.Embedder, vectors index.VectorIndex, keywords index.KeywordIndex) *Corpus {
	return &Corpus{
		byID:         make(map[string]int),
		embedder:     embedder,
		vectors:      vectors,
		keywords:     keywords,
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
	}
}

// Ingest chunks raw document text and appends the batch to the chunk store
// and both indices as one atomic step. Returns the number of chunks added.
func (c *Corpus) Ingest(ctx context.Context, title, text string) (int, error) {
	pieces := qa.ChunkText(text, c.ChunkSize, c.ChunkOverlap)

	c.mu.Lock()
	defer c.mu.Unlock()

	batch := make([]types.Chunk, 0, len(pieces))
	start := len(c.chunks)
	for i, piece := range pieces {
		idx := start + i
		batch = append(batch, types.Chunk{
			ID:       fmt.Sprintf("%s:%d", title, idx),
			Title:    title,
			ChunkIdx: idx,
			Text:     piece,
		})
	}
	return len(batch), c.appendLocked(ctx, batch)
}

// IngestPages ingests a PDF's extracted per-page text. Page boundaries are
// kept out of the chunk windows; ids carry the page number.
func (c *Corpus) IngestPages(ctx context.Context, title string, pages []string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var batch []types.Chunk
	start := len(c.chunks)
	added := 0
	for pi, page := range pages {
		for _, piece := range qa.ChunkText(page, c.ChunkSize, c.ChunkOverlap) {
			idx := start + added
			batch = append(batch, types.Chunk{
				ID:       fmt.Sprintf("%s:p%d:%d", title, pi, idx),
				Title:    title,
				ChunkIdx: idx,
				Text:     piece,
			})
			added++
		}
	}
	return added, c.appendLocked(ctx, batch)
}

// appendLocked applies one ingestion batch: embed, add keyword documents,
// add vectors, verify the bijection postcondition, and only then append the
// chunks. The order makes a failed batch recoverable: keyword documents whose
// ids never resolve are skipped by retrieval, while an orphaned vector row
// would shift every later position, so vectors go last and nothing becomes
// visible until the row count matches. The caller holds the write lock for
// the whole sequence.
func (c *Corpus) appendLocked(ctx context.Context, batch []types.Chunk) error {
	if len(batch) == 0 {
		return nil
	}

	texts := make([]string, len(batch))
	for i, ch := range batch {
		texts[i] = ch.Text
	}
	vecs, err := c.embedder.Embed(ctx, texts, model.RolePassage)
	if err != nil {
		return fmt.Errorf("embed passages: %w", err)
	}
	if len(vecs) != len(batch) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(batch))
	}

	if err := c.keywords.Add(ctx, batch); err != nil {
		return fmt.Errorf("add keyword documents: %w", err)
	}
	if err := c.vectors.Add(ctx, vecs); err != nil {
		return fmt.Errorf("add vectors: %w", err)
	}

	rows, err := c.vectors.Rows(ctx)
	if err != nil {
		return fmt.Errorf("count vector rows: %w", err)
	}
	if want := len(c.chunks) + len(batch); rows != want {
		return fmt.Errorf("index bijection violated: %d vector rows for %d chunks", rows, want)
	}

	for _, ch := range batch {
		c.byID[ch.ID] = len(c.chunks)
		c.chunks = append(c.chunks, ch)
	}
	log.Printf("[INGEST] added=%d total=%d vector_rows=%d", len(batch), len(c.chunks), rows)
	return nil
}

// SearchVector embeds the query and returns the best-first chunks for it,
// deduplicated by chunk. The index is over-fetched threefold before the
// position dedup, mirroring the over-fetch the fusion stage expects.
func (c *Corpus) SearchVector(ctx context.Context, query string, k int) ([]types.Chunk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.chunks) == 0 {
		return nil, nil
	}
	qvs, err := c.embedder.Embed(ctx, []string{query}, model.RoleQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qvs) == 0 {
		return nil, fmt.Errorf("embedder returned no query vector")
	}

	positions, err := c.vectors.Search(ctx, qvs[0], max(k*3, 6))
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	seen := make(map[int]bool, len(positions))
	var picked []types.Chunk
	for _, pos := range positions {
		if pos < 0 || pos >= len(c.chunks) || seen[pos] {
			continue
		}
		seen[pos] = true
		picked = append(picked, c.chunks[pos])
		if len(picked) >= k {
			break
		}
	}
	return picked, nil
}

// SearchKeyword returns scored chunk ids from the keyword index.
func (c *Corpus) SearchKeyword(ctx context.Context, query string, k int) ([]types.KeywordHit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keywords.Search(ctx, query, k)
}

// ChunkByID resolves an id back to the authoritative chunk.
func (c *Corpus) ChunkByID(id string) (types.Chunk, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pos, ok := c.byID[id]
	if !ok {
		return types.Chunk{}, false
	}
	return c.chunks[pos], true
}

// All returns a snapshot of every chunk in append order.
func (c *Corpus) All() []types.Chunk {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.Chunk, len(c.chunks))
	copy(out, c.chunks)
	return out
}

// Len reports the number of stored chunks.
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chunks)
}

// VectorRows reports the vector index row count, for health reporting.
func (c *Corpus) VectorRows(ctx context.Context) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rows, err := c.vectors.Rows(ctx)
	if err != nil {
		log.Printf("[STORE] count vector rows: %v", err)
		return 0
	}
	return rows
}
