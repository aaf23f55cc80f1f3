package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manualqa/types"
)

type mapResolver map[string]types.Chunk

func (m mapResolver) ChunkByID(id string) (types.Chunk, bool) {
	c, ok := m[id]
	return c, ok
}

func chunkFixture(id string) types.Chunk {
	return types.Chunk{ID: id, Title: "매뉴얼", Text: id + " 내용입니다."}
}

func newTestFuser(chunks ...types.Chunk) *Fuser {
	resolver := mapResolver{}
	for _, c := range chunks {
		resolver[c.ID] = c
	}
	return NewFuser(nil, nil, resolver)
}

func TestFuserScoresVectorOnly(t *testing.T) {
	a := chunkFixture("a")
	f := newTestFuser(a)

	scores := f.Scores([]types.Chunk{a}, nil)
	assert.InDelta(t, 0.6/61.0, scores["a"], 1e-12)
}

func TestFuserScoresKeywordOnly(t *testing.T) {
	f := newTestFuser()

	scores := f.Scores(nil, []types.KeywordHit{{Score: 50, ID: "b"}})
	assert.InDelta(t, 0.4*0.5, scores["b"], 1e-12)
}

func TestFuserScoresAccumulateOnSameChunk(t *testing.T) {
	a := chunkFixture("a")
	f := newTestFuser(a)

	scores := f.Scores([]types.Chunk{a}, []types.KeywordHit{{Score: 50, ID: "a"}})
	assert.InDelta(t, 0.6/61.0+0.2, scores["a"], 1e-12)
}

func TestFuseRanksKeywordHeavyFirst(t *testing.T) {
	a, b := chunkFixture("a"), chunkFixture("b")
	f := newTestFuser(a, b)

	// b has a strong keyword score; a only a vector rank.
	out := f.Fuse([]types.Chunk{a}, []types.KeywordHit{{Score: 80, ID: "b"}}, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, "a", out[1].ID)
}

func TestFuseDeduplicatesAndTruncates(t *testing.T) {
	a, b, c := chunkFixture("a"), chunkFixture("b"), chunkFixture("c")
	f := newTestFuser(a, b, c)

	out := f.Fuse(
		[]types.Chunk{a, b, c},
		[]types.KeywordHit{{Score: 90, ID: "a"}, {Score: 10, ID: "b"}},
		2,
	)
	require.Len(t, out, 2)
	seen := map[string]bool{}
	for _, d := range out {
		assert.False(t, seen[d.ID], "chunk %s repeated", d.ID)
		seen[d.ID] = true
	}
	assert.Equal(t, "a", out[0].ID)
}

func TestFuseSkipsUnresolvedIDs(t *testing.T) {
	a := chunkFixture("a")
	f := newTestFuser(a)

	out := f.Fuse([]types.Chunk{a}, []types.KeywordHit{{Score: 99, ID: "ghost"}}, 2)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestFuseBackfillsFromVectorOrder(t *testing.T) {
	a, b, c := chunkFixture("a"), chunkFixture("b"), chunkFixture("c")
	// Resolver knows only a: b and c drop out of the ranked pool and come
	// back through the vector-order backfill.
	f := newTestFuser(a)

	out := f.Fuse([]types.Chunk{a, b, c}, nil, 3)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{out[0].ID, out[1].ID, out[2].ID})
}

func TestFuseEmptySources(t *testing.T) {
	f := newTestFuser()
	assert.Empty(t, f.Fuse(nil, nil, 4))
}

func TestFuseDeterministicOrder(t *testing.T) {
	a, b, c := chunkFixture("a"), chunkFixture("b"), chunkFixture("c")
	f := newTestFuser(a, b, c)

	vec := []types.Chunk{a, b, c}
	kw := []types.KeywordHit{{Score: 30, ID: "c"}, {Score: 30, ID: "b"}}
	first := f.Fuse(vec, kw, 3)
	for i := 0; i < 10; i++ {
		again := f.Fuse(vec, kw, 3)
		assert.Equal(t, first, again)
	}
}
