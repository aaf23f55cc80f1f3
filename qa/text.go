package qa

import (
	"regexp"
	"strings"
)

var (
	wsRe        = regexp.MustCompile(`\s+`)
	tokenRe     = regexp.MustCompile(`[\w가-힣]+`)
	fragmentRe  = regexp.MustCompile(`(?:\r?\n| - |•|·|;)`)
	sentenceRe  = regexp.MustCompile(`.+?(?:다\.|요\.|습니다\.|[.!?])`)
	labelLineRe = regexp.MustCompile(`^[A-Za-z가-힣0-9\s\-/_,.]+[:：]?$`)
	sentEndRe   = regexp.MustCompile(`[.!?]|다\.|요\.|입니다\.`)
	dayUnitRe   = regexp.MustCompile(`\d+\s*(영업)?일`)
)

// Normalize collapses all whitespace runs to single spaces and trims.
func Normalize(text string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(text, " "))
}

// Tokenize returns the word/character tokens of a query or sentence.
func Tokenize(text string) []string {
	return tokenRe.FindAllString(text, -1)
}

// IsHeaderLike reports whether a fragment is header/label noise rather than a
// content sentence: very short, bracket-enclosed, a section marker, or a
// label-colon line without sentence-final punctuation.
func IsHeaderLike(s string) bool {
	ss := Normalize(s)
	if len([]rune(ss)) <= 4 {
		return true
	}
	if strings.HasPrefix(ss, "[") && strings.HasSuffix(ss, "]") {
		return true
	}
	if strings.Contains(ss, "섹션") {
		return true
	}
	if labelLineRe.MatchString(ss) && !sentEndRe.MatchString(ss) {
		return true
	}
	return false
}

// SplitSentences splits normalized chunk text into clean sentence units.
// Line breaks and clause delimiters cut first, then each fragment is split on
// sentence-final markers (markers kept). Header-like fragments and fragments
// shorter than two characters are dropped; source order is preserved.
func SplitSentences(text string) []string {
	s := Normalize(text)
	var out []string
	for _, part := range fragmentRe.Split(s, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if matches := sentenceRe.FindAllString(part, -1); matches != nil {
			for _, m := range matches {
				out = append(out, strings.Trim(m, " -•·"))
			}
		} else {
			out = append(out, part)
		}
	}
	kept := out[:0]
	for _, x := range out {
		if len([]rune(x)) >= 2 && !IsHeaderLike(x) {
			kept = append(kept, x)
		}
	}
	return kept
}

// ChunkText splits raw text into overlapping fixed-size windows over the
// normalized text. Each window after the first starts overlap runes before
// the previous window's end; the last window may be arbitrarily short.
func ChunkText(text string, size, overlap int) []string {
	t := []rune(Normalize(text))
	var chunks []string
	start := 0
	for start < len(t) {
		end := start + size
		if end > len(t) {
			end = len(t)
		}
		chunks = append(chunks, string(t[start:end]))
		if end >= len(t) {
			break
		}
		start = end - overlap
	}
	return chunks
}
