package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPReranker calls a cross-encoder reranking service: pairwise
// query/passage relevance, not embedding similarity.
type HTTPReranker struct {
	apiURL string
	client *http.Client
}

type rerankRequest struct {
	Query    string   `json:"query"`
	Passages []string `json:"passages"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

func NewHTTPReranker(apiURL string) *HTTPReranker {
	return &HTTPReranker{
		apiURL: apiURL,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Rerank returns one relevance score per passage, in input order.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, passages []string) ([]float64, error) {
	body, err := json.Marshal(rerankRequest{Query: query, Passages: passages})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", r.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("reranker API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var rr rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(rr.Scores) != len(passages) {
		return nil, fmt.Errorf("reranker returned %d scores for %d passages", len(rr.Scores), len(passages))
	}
	return rr.Scores, nil
}
