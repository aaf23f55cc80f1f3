// Package agent implements the generation collaborator: an Ollama
// /api/generate client expected (but not trusted) to emit a single JSON
// object per the extractive-answer schema.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/pkoukk/tiktoken-go"
)

type generateRequest struct {
	Model     string          `json:"model"`
	Prompt    string          `json:"prompt"`
	Stream    bool            `json:"stream"`
	KeepAlive string          `json:"keep_alive"`
	Options   generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumCtx      int     `json:"num_ctx"`
	NumThread   int     `json:"num_thread"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Ollama generates answers through the Ollama HTTP API with an explicit
// per-call timeout; a timed-out call is abandoned, never retried.
type Ollama struct {
	url     string
	model   string
	timeout time.Duration
	client  *http.Client
}

// NewOllamaFromEnv reads OLLAMA_URL, OLLAMA_MODEL, and OLLAMA_TIMEOUT
// (seconds, default 300).
func NewOllamaFromEnv() *Ollama {
	url := os.Getenv("OLLAMA_URL")
	if url == "" {
		url = "http://127.0.0.1:11434"
	}
	model := os.Getenv("OLLAMA_MODEL")
	if model == "" {
		model = "llama3.1:8b"
	}
	timeout := 300
	if s := os.Getenv("OLLAMA_TIMEOUT"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			timeout = v
		}
	}
	return &Ollama{
		url:     url,
		model:   model,
		timeout: time.Duration(timeout) * time.Second,
		client:  &http.Client{},
	}
}

// Generate sends the prompt and collects the raw model text. Both plain and
// chunk-streamed response bodies are handled.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	defer func() {
		log.Printf("[AGENT] LLM answer took %v", time.Since(start))
	}()

	reqBody, err := json.Marshal(generateRequest{
		Model:     o.model,
		Prompt:    prompt,
		Stream:    false,
		KeepAlive: "1h",
		Options: generateOptions{
			NumPredict:  64,
			Temperature: 0.1,
			TopP:        0.9,
			NumCtx:      1024,
			NumThread:   runtime.NumCPU(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	if count, err := countTokens(reqBody); err == nil {
		log.Printf("[AGENT] prompt size: %d tokens, %d bytes", count, len(reqBody))
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.url+"/api/generate", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err == nil && genResp.Response != "" {
		return genResp.Response, nil
	}

	// Streamed body: collect the chunk responses into one string.
	var output string
	decoder := json.NewDecoder(bytes.NewReader(body))
	for decoder.More() {
		var chunk generateResponse
		if err := decoder.Decode(&chunk); err != nil {
			break
		}
		output += chunk.Response
	}
	return output, nil
}

func countTokens(data []byte) (int, error) {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(string(data), nil, nil)), nil
}
