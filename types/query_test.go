package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAskParamsValidate(t *testing.T) {
	ok := &AskParams{Query: "반품 며칠 가능해요?", TopK: 4}
	assert.Nil(t, ok.Validate())

	noTopK := &AskParams{Query: "반품 며칠 가능해요?"}
	assert.Nil(t, noTopK.Validate())

	missing := &AskParams{TopK: 4}
	errs := missing.Validate()
	assert.Contains(t, errs, "Query")

	badTopK := &AskParams{Query: "반품", TopK: -1}
	errs = badTopK.Validate()
	assert.Contains(t, errs, "TopK")
}

func TestChunkEvidenceID(t *testing.T) {
	c := Chunk{ID: "정책 매뉴얼:3", Title: "정책 매뉴얼", ChunkIdx: 3}
	assert.Equal(t, "정책 매뉴얼#3", c.EvidenceID())
}
