package qa

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"manualqa/types"
)

// Embedder produces L2-normalized vectors for texts in the given role, so
// inner product equals cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, texts []string, role string) ([][]float32, error)
}

// Embedding roles select the bge-style instruction prefix.
const (
	RoleQuery   = "query"
	RolePassage = "passage"
)

const systemPrompt = "당신은 고객지원 에이전트입니다. 반드시 '근거 텍스트'에서만 답을 추출하세요. " +
	"출력은 JSON 한 줄만, 다른 말 금지.\n" +
	"요구사항:\n" +
	"- final_answer에는 근거에서 발견한 정확한 숫자/단위(예: 7일, 2~3영업일)를 그대로 포함하세요.\n" +
	"- 근거에 없으면 '메뉴얼에 근거가 없어 답변드리기 어렵습니다.'로 하세요.\n" +
	"JSON 스키마:\n" +
	`{"final_answer": "한국어 존댓말 한 문장, 50자 이내",` +
	`"support": ["근거에서 그대로 복사한 문장 1개"],` +
	`"citations": ["문장이 나온 근거 id(예: 문서명#청크)"]}`

// BuildPrompt assembles the extractive-JSON generation prompt: the fixed
// system instructions, the normalized question, and one evidence bullet per
// context chunk.
func BuildPrompt(ctx context.Context, emb Embedder, query string, contexts []types.Chunk) string {
	qn := NormalizeQuery(query)
	intent := IntentOf(qn)

	bullets := make([]types.EvidenceBullet, 0, len(contexts))
	for _, c := range contexts {
		snippet := topSentencesForPrompt(ctx, emb, c.Text, qn, intent, 2, 200)
		if snippet == "" {
			snippet = headRunes(c.Text, 200)
		}
		bullets = append(bullets, types.EvidenceBullet{ID: c.EvidenceID(), Text: snippet})
	}
	evidence, _ := json.Marshal(bullets)

	return fmt.Sprintf("%s\n\n질문:\n%s\n\n근거:\n%s\n\nJSON:", systemPrompt, qn, evidence)
}

// topSentencesForPrompt picks the chunk sentences closest to the query in
// embedding space, after an intent vocabulary filter. The snippet is capped
// at maxChars characters with an ellipsis. Embedding failures degrade to an
// empty snippet so the caller can substitute the raw chunk head.
func topSentencesForPrompt(ctx context.Context, emb Embedder, text, query string, intent Intent, maxSents, maxChars int) string {
	sents := SplitSentences(text)
	if len(sents) == 0 {
		return ""
	}
	pat := RequiredPattern(intent)
	var cand []string
	for _, s := range sents {
		if pat == nil || pat.MatchString(s) {
			cand = append(cand, s)
		}
	}
	if len(cand) == 0 {
		cand = sents
	}
	if emb == nil {
		cand = cand[:min(maxSents, len(cand))]
		return headRunes(strings.Join(cand, " "), maxChars)
	}

	vecs, err := emb.Embed(ctx, cand, RolePassage)
	if err != nil {
		log.Printf("[PROMPT] sentence embedding failed: %v", err)
		return ""
	}
	qvs, err := emb.Embed(ctx, []string{query}, RoleQuery)
	if err != nil || len(qvs) == 0 {
		log.Printf("[PROMPT] query embedding failed: %v", err)
		return ""
	}
	qv := qvs[0]

	type scored struct {
		idx   int
		score float32
	}
	scores := make([]scored, len(cand))
	for i, v := range vecs {
		scores[i] = scored{idx: i, score: dot(v, qv)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	n := min(maxSents, len(scores))
	picked := make([]string, 0, n)
	for _, s := range scores[:n] {
		picked = append(picked, cand[s.idx])
	}
	return headRunes(strings.Join(picked, " "), maxChars)
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func dot(a, b []float32) float32 {
	n := min(len(a), len(b))
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
