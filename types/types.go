package types

import "fmt"

// Chunk is the atomic retrieval unit: a fixed-size, overlap-linked window of
// an ingested manual document. Chunks are immutable once created and owned by
// the chunk store; index rows only hold back-references to them.
type Chunk struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ChunkIdx int    `json:"chunk_idx"`
	Text     string `json:"text"`
}

// EvidenceID is the citation form of a chunk reference, e.g. "배송정책#3".
func (c Chunk) EvidenceID() string {
	return fmt.Sprintf("%s#%d", c.Title, c.ChunkIdx)
}

// KeywordHit is a single keyword-search result. Score is an opaque relevance
// magnitude (BM25-family); the hit list carries no ordering contract.
type KeywordHit struct {
	Score float64
	ID    string
}

// EvidenceBullet is one prompt evidence entry, built fresh per query.
// Text holds a trimmed, intent-filtered subset of the chunk's sentences.
type EvidenceBullet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// AnswerResult is the parsed generator output for one query.
type AnswerResult struct {
	FinalAnswer string   `json:"final_answer"`
	Support     []string `json:"support"`
	Citations   []string `json:"citations"`
}

// IngestResponse reports a completed ingestion batch.
type IngestResponse struct {
	OK         bool   `json:"ok"`
	DocID      string `json:"doc_id"`
	Added      int    `json:"added"`
	TotalDocs  int    `json:"total_docs"`
	VectorRows int    `json:"vector_rows"`
}

// AskResponse is the composed answer plus the raw context list, in rank order.
type AskResponse struct {
	Answer   string  `json:"answer"`
	Contexts []Chunk `json:"contexts"`
}
