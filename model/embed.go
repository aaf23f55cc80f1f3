// Package model holds the clients for the external model collaborators:
// embedding, and cross-encoder reranking.
package model

import "context"

// Embedding roles select the bge-style instruction prefix; queries and
// passages are embedded into the same space but with different prefixes.
const (
	RoleQuery   = "query"
	RolePassage = "passage"
)

// Embedder converts texts into unit-normalized vectors, so inner product
// equals cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, texts []string, role string) ([][]float32, error)
}
