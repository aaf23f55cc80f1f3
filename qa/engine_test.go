package qa

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manualqa/types"
)

// fakeCorpus is an in-memory CorpusReader whose vector and keyword sides can
// be scripted independently.
type fakeCorpus struct {
	chunks  []types.Chunk
	vecErr  error
	kwHits  []types.KeywordHit
	scanOut bool // when true, vector and keyword searches return nothing
}

func (f *fakeCorpus) SearchVector(_ context.Context, _ string, k int) ([]types.Chunk, error) {
	if f.vecErr != nil {
		return nil, f.vecErr
	}
	if f.scanOut {
		return nil, nil
	}
	if k > len(f.chunks) {
		k = len(f.chunks)
	}
	return f.chunks[:k], nil
}

func (f *fakeCorpus) SearchKeyword(_ context.Context, _ string, _ int) ([]types.KeywordHit, error) {
	if f.scanOut {
		return nil, nil
	}
	return f.kwHits, nil
}

func (f *fakeCorpus) ChunkByID(id string) (types.Chunk, bool) {
	for _, c := range f.chunks {
		if c.ID == id {
			return c, true
		}
	}
	return types.Chunk{}, false
}

func (f *fakeCorpus) Len() int { return len(f.chunks) }

func (f *fakeCorpus) All() []types.Chunk { return f.chunks }

type stubReranker struct {
	scores []float64
	err    error
}

func (s *stubReranker) Rerank(_ context.Context, _ string, passages []string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.scores[:len(passages)], nil
}

type stubGenerator struct {
	raw string
	err error
}

func (s *stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	return s.raw, s.err
}

func returnChunk() types.Chunk {
	return types.Chunk{
		ID:    "정책 매뉴얼:0",
		Title: "정책 매뉴얼",
		Text:  "반품은 구매일로부터 7일 이내 가능합니다.",
	}
}

func TestAskEmptyCorpus(t *testing.T) {
	e := NewEngine(&fakeCorpus{}, nil, nil, nil)

	resp := e.Ask(context.Background(), "반품 며칠 가능해요?", 4)
	assert.Equal(t, MsgEmptyCorpus, resp.Answer)
	assert.Empty(t, resp.Contexts)
	assert.NotNil(t, resp.Contexts)
}

func TestAskNoEvidence(t *testing.T) {
	corpus := &fakeCorpus{
		chunks:  []types.Chunk{returnChunk()},
		scanOut: true,
	}
	e := NewEngine(corpus, nil, nil, nil)

	// Nothing retrieved and the full scan finds no token overlap either.
	resp := e.Ask(context.Background(), "xyzzy", 4)
	assert.Equal(t, MsgNoEvidence, resp.Answer)
	assert.Empty(t, resp.Contexts)
}

func TestAskExtractiveWithoutGenerator(t *testing.T) {
	corpus := &fakeCorpus{chunks: []types.Chunk{returnChunk()}}
	e := NewEngine(corpus, nil, nil, nil)

	resp := e.Ask(context.Background(), "반품 며칠 가능해요?", 4)
	assert.Contains(t, resp.Answer, "답변(요약, ~합니다):")
	assert.Contains(t, resp.Answer, "7일")
	assert.Contains(t, resp.Answer, "정책 매뉴얼#0")
	assert.Contains(t, resp.Answer, "[근거 1] 반품은 구매일로부터 7일 이내 가능합니다.")
	require.Len(t, resp.Contexts, 1)
}

func TestAskFullScanFallback(t *testing.T) {
	corpus := &fakeCorpus{
		chunks:  []types.Chunk{returnChunk()},
		scanOut: true,
	}
	e := NewEngine(corpus, nil, nil, nil)

	// Retrieval returns nothing, but the linear corpus scan still finds the
	// chunk by token overlap.
	resp := e.Ask(context.Background(), "반품 며칠 가능해요?", 4)
	assert.Contains(t, resp.Answer, "7일")
	require.Len(t, resp.Contexts, 1)
}

func TestAskRerankerFailureDegradesToScan(t *testing.T) {
	corpus := &fakeCorpus{chunks: []types.Chunk{returnChunk()}}
	e := NewEngine(corpus, &stubReranker{err: errors.New("rerank backend down")}, nil, nil)

	resp := e.Ask(context.Background(), "반품 며칠 가능해요?", 4)
	assert.Contains(t, resp.Answer, "7일")
}

func TestAskRerankerReorders(t *testing.T) {
	shipping := types.Chunk{
		ID:    "정책 매뉴얼:1",
		Title: "정책 매뉴얼",
		Text:  "기본 배송은 2~3영업일 소요됩니다.",
	}
	corpus := &fakeCorpus{chunks: []types.Chunk{returnChunk(), shipping}}
	e := NewEngine(corpus, &stubReranker{scores: []float64{0.1, 0.9}}, nil, nil)

	resp := e.Ask(context.Background(), "배송은 얼마나 걸리나요", 1)
	require.Len(t, resp.Contexts, 1)
	assert.Equal(t, shipping.ID, resp.Contexts[0].ID)
}

func TestAskGeneratorOutputValidated(t *testing.T) {
	corpus := &fakeCorpus{chunks: []types.Chunk{returnChunk()}}
	gen := &stubGenerator{
		raw: `{"final_answer": "반품은 7일 이내 가능합니다.", "support": ["7일 이내 가능합니다"], "citations": ["정책 매뉴얼#0"]}`,
	}
	e := NewEngine(corpus, nil, gen, nil)

	resp := e.Ask(context.Background(), "반품 며칠 가능해요?", 4)
	assert.Contains(t, resp.Answer, "반품은 7일 이내 가능합니다.")
	assert.Contains(t, resp.Answer, "근거 출처: 정책 매뉴얼#0")
}

func TestAskGeneratorFailureFallsBackToExtraction(t *testing.T) {
	corpus := &fakeCorpus{chunks: []types.Chunk{returnChunk()}}
	e := NewEngine(corpus, nil, &stubGenerator{err: errors.New("model offline")}, nil)

	resp := e.Ask(context.Background(), "반품 며칠 가능해요?", 4)
	assert.Contains(t, resp.Answer, "7일")
	// Fallback answers carry default evidence-id citations.
	assert.Contains(t, resp.Answer, "정책 매뉴얼#0")
}

func TestAskGeneratorGibberishFallsBackToExtraction(t *testing.T) {
	corpus := &fakeCorpus{chunks: []types.Chunk{returnChunk()}}
	e := NewEngine(corpus, nil, &stubGenerator{raw: "JSON 없이 말로만 답합니다"}, nil)

	resp := e.Ask(context.Background(), "반품 며칠 가능해요?", 4)
	assert.Contains(t, resp.Answer, "7일")
}

func TestAskAnswerLayout(t *testing.T) {
	corpus := &fakeCorpus{chunks: []types.Chunk{returnChunk()}}
	e := NewEngine(corpus, nil, nil, nil)

	resp := e.Ask(context.Background(), "반품 며칠 가능해요?", 4)
	lines := strings.Split(resp.Answer, "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.True(t, strings.HasPrefix(lines[0], "답변(요약, ~합니다): "))
	assert.True(t, strings.HasPrefix(lines[1], "- 근거 출처: "))
	assert.Equal(t, "아래는 인용된 근거입니다.", lines[3])
}
