package qa

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"manualqa/types"
)

// Advisory responses for the two terminal no-context conditions. These are
// defined outcomes, not errors.
const (
	MsgEmptyCorpus = "먼저 /ingest 또는 /ingest_pdf 로 메뉴얼을 업로드해 주세요."
	MsgNoEvidence  = "관련 근거를 찾지 못했습니다. 담당자에게 확인 후 안내드립니다."
)

// CorpusReader is the read side of the shared corpus.
type CorpusReader interface {
	VectorSearcher
	KeywordSearcher
	ChunkResolver
	Len() int
	All() []types.Chunk
}

// Reranker scores query/passage pairs with cross-encoder semantics.
type Reranker interface {
	Rerank(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Generator produces raw text for a prompt; expected but not trusted to be a
// single JSON object.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Engine sequences the answer pipeline: normalization, retrieval fusion,
// reranking, generation, grounding validation, and response assembly. Every
// stage degrades to the next one; no query terminates with an error.
type Engine struct {
	corpus    CorpusReader
	fuser     *Fuser
	reranker  Reranker
	generator Generator
	embedder  Embedder
	answerer  *Extractive
	validator *Validator
	logger    *slog.Logger
}

// NewEngine wires the pipeline. reranker, generator, and embedder may be nil:
// a nil reranker keeps the fused order, a nil generator routes straight to
// extraction, a nil embedder falls back to positional snippet selection.
func NewEngine(corpus CorpusReader, reranker Reranker, generator Generator, embedder Embedder) *Engine {
	answerer := NewExtractive()
	return &Engine{
		corpus:    corpus,
		fuser:     NewFuser(corpus, corpus, corpus),
		reranker:  reranker,
		generator: generator,
		embedder:  embedder,
		answerer:  answerer,
		validator: &Validator{Answerer: answerer},
		logger:    slog.Default(),
	}
}

// Ask answers one query against the corpus with topK contexts.
func (e *Engine) Ask(ctx context.Context, query string, topK int) types.AskResponse {
	if e.corpus.Len() == 0 {
		return types.AskResponse{Answer: MsgEmptyCorpus, Contexts: []types.Chunk{}}
	}

	qn := NormalizeQuery(query)
	cands := e.fuser.Search(ctx, qn, max(topK, 12))
	contexts := e.rerank(ctx, qn, cands, topK)

	if len(contexts) == 0 {
		contexts = e.scanCorpus(qn, topK)
	}
	if len(contexts) == 0 {
		return types.AskResponse{Answer: MsgNoEvidence, Contexts: []types.Chunk{}}
	}

	brief, cites := e.answer(ctx, query, contexts)

	if len(cites) == 0 {
		cites = make([]string, 0, len(contexts))
		for _, c := range contexts {
			cites = append(cites, c.EvidenceID())
		}
	}

	var evidence strings.Builder
	for i, c := range contexts {
		if i > 0 {
			evidence.WriteString("\n\n")
		}
		fmt.Fprintf(&evidence, "[근거 %d] %s", i+1, c.Text)
	}

	answer := fmt.Sprintf(
		"답변(요약, ~합니다): %s\n- 근거 출처: %s\n\n아래는 인용된 근거입니다.\n\n%s",
		brief, strings.Join(cites, ", "), evidence.String(),
	)
	return types.AskResponse{Answer: answer, Contexts: contexts}
}

// answer runs the generation-validation-extraction cascade. Generation and
// parse failures fall back to two extracted sentences with no citations;
// grounding failures are corrected inside the validator.
func (e *Engine) answer(ctx context.Context, query string, contexts []types.Chunk) (string, []string) {
	if e.generator == nil {
		return e.answerer.Answer(query, contexts, 2), nil
	}

	prompt := BuildPrompt(ctx, e.embedder, query, contexts)
	raw, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		e.logger.Warn("generation failed, falling back to extraction", "error", err)
		return e.answerer.Answer(query, contexts, 2), nil
	}
	parsed, err := ParseGenerated(raw)
	if err != nil {
		e.logger.Warn("generator JSON parse failed, falling back to extraction", "error", err)
		return e.answerer.Answer(query, contexts, 2), nil
	}
	return e.validator.Validate(parsed, query, contexts)
}

// rerank refines the fused candidates with the cross-encoder collaborator.
// A nil reranker truncates the fused order; a failing one degrades to no
// contexts so the full-scan fallback can take over.
func (e *Engine) rerank(ctx context.Context, query string, cands []types.Chunk, topK int) []types.Chunk {
	if len(cands) == 0 {
		return nil
	}
	if e.reranker == nil {
		if len(cands) > topK {
			cands = cands[:topK]
		}
		return cands
	}

	passages := make([]string, len(cands))
	for i, c := range cands {
		passages[i] = c.Text
	}
	scores, err := e.reranker.Rerank(ctx, query, passages)
	if err != nil || len(scores) != len(cands) {
		e.logger.Warn("rerank failed", "error", err)
		return nil
	}

	idx := make([]int, len(cands))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	if len(idx) > topK {
		idx = idx[:topK]
	}
	out := make([]types.Chunk, 0, len(idx))
	for _, i := range idx {
		out = append(out, cands[i])
	}
	return out
}

// scanCorpus is the retrieval fallback of last resort: a linear pass scoring
// every chunk by raw query-token substring counts, no boosts.
func (e *Engine) scanCorpus(query string, topK int) []types.Chunk {
	tokens := Tokenize(strings.ToLower(Normalize(query)))
	type scored struct {
		score int
		chunk types.Chunk
	}
	var all []scored
	for _, c := range e.corpus.All() {
		lowered := strings.ToLower(c.Text)
		score := 0
		for _, t := range tokens {
			score += strings.Count(lowered, t)
		}
		all = append(all, scored{score: score, chunk: c})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	var out []types.Chunk
	for _, s := range all {
		if len(out) >= topK {
			break
		}
		if s.score > 0 {
			out = append(out, s.chunk)
		}
	}
	return out
}
