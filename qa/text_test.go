package qa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "반품 안내 7일", Normalize("  반품 \t안내\n\n7일  "))
}

func TestIsHeaderLike(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"3자", true},                         // too short
		{"[섹션1]", true},                      // bracket-enclosed
		{"배송 섹션 안내문입니다.", true},             // section marker
		{"배송 안내:", true},                    // label-colon, no sentence ending
		{"반품은 구매일로부터 7일 이내 가능합니다.", false}, // real sentence
		{"Delivery takes 2-3 days.", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsHeaderLike(tt.in), "input %q", tt.in)
	}
}

func TestSplitSentences(t *testing.T) {
	text := "[섹션1]\n배송 안내: - 기본 배송은 2~3영업일 소요됩니다. • 제주 지역은 하루 더 걸립니다.\n반품은 7일 이내 가능합니다."
	sents := SplitSentences(text)

	require.Len(t, sents, 3)
	assert.Equal(t, "기본 배송은 2~3영업일 소요됩니다.", sents[0])
	assert.Equal(t, "제주 지역은 하루 더 걸립니다.", sents[1])
	assert.Equal(t, "반품은 7일 이내 가능합니다.", sents[2])
}

func TestSplitSentencesDropsShortAndHeaderLike(t *testing.T) {
	sents := SplitSentences("3일차;[섹션1];반품은 구매일로부터 7일 이내 가능합니다.")
	require.Len(t, sents, 1)
	assert.Equal(t, "반품은 구매일로부터 7일 이내 가능합니다.", sents[0])
}

func TestSplitSentencesIsPure(t *testing.T) {
	text := "기본 배송은 2~3영업일 소요됩니다. 반품은 7일 이내 가능합니다."
	first := SplitSentences(text)
	second := SplitSentences(text)
	assert.Equal(t, first, second)
}

func TestChunkTextCoversWholeText(t *testing.T) {
	text := strings.Repeat("가나다라마바사 ", 120) // well past one window
	const size, overlap = 400, 80

	chunks := ChunkText(text, size, overlap)
	require.NotEmpty(t, chunks)

	normalized := []rune(Normalize(text))
	// Windows advance by size-overlap; their covered ranges must tile the
	// normalized text with no gaps.
	pos := 0
	for i, ch := range chunks {
		runes := []rune(ch)
		assert.Equal(t, string(normalized[pos:pos+len(runes)]), ch, "chunk %d", i)
		if i < len(chunks)-1 {
			assert.Len(t, runes, size)
			pos += size - overlap
		} else {
			assert.Equal(t, len(normalized), pos+len(runes))
		}
	}
}

func TestChunkTextShortInput(t *testing.T) {
	chunks := ChunkText("짧은 문서입니다.", 400, 80)
	require.Len(t, chunks, 1)
	assert.Equal(t, "짧은 문서입니다.", chunks[0])
}

func TestChunkTextEmptyInput(t *testing.T) {
	assert.Empty(t, ChunkText("   ", 400, 80))
}
