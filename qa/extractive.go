package qa

import (
	"sort"
	"strings"

	"manualqa/types"
)

// Accepted sentence-final endings for a finished answer.
var acceptedEndings = []string{"입니다.", "니다.", "요.", "."}

const defaultEnding = "입니다."

func hasAcceptedEnding(s string) bool {
	for _, e := range acceptedEndings {
		if strings.HasSuffix(s, e) {
			return true
		}
	}
	return false
}

// Extractive is the deterministic fallback answerer: it selects and joins the
// best-matching sentences from the retrieved chunks, with no generation
// collaborator involved.
type Extractive struct {
	// DayBoost rewards sentences carrying a number-plus-day-unit pattern;
	// IntentBoost rewards intent vocabulary matches. Tuned defaults.
	DayBoost    int
	IntentBoost int
}

func NewExtractive() *Extractive {
	return &Extractive{DayBoost: 2, IntentBoost: 1}
}

type scoredSentence struct {
	score int
	text  string
}

// Answer builds an answer from context text only. Sentences are scored by
// query-token occurrence counts plus the day-unit and intent boosts, ranked
// by (score desc, length asc) - on equal score the shorter sentence wins -
// and the top topn sentences with positive score are joined. The fallback
// ladder below guarantees a non-empty result whenever contexts exist.
func (e *Extractive) Answer(query string, contexts []types.Chunk, topn int) string {
	if len(contexts) == 0 {
		return ""
	}
	intent := IntentOf(query)
	qTokens := Tokenize(strings.ToLower(Normalize(query)))

	var cands []scoredSentence
	for _, c := range contexts {
		for _, sent := range SplitSentences(c.Text) {
			if IsHeaderLike(sent) {
				continue
			}
			lowered := strings.ToLower(sent)
			score := 0
			for _, t := range qTokens {
				score += strings.Count(lowered, t)
			}
			if dayUnitRe.MatchString(sent) {
				score += e.DayBoost
			}
			if intent == IntentReturnWindow && returnVocabRe.MatchString(sent) {
				score += e.IntentBoost
			}
			if intent == IntentShippingTime && shippingVocabRe.MatchString(sent) {
				score += e.IntentBoost
			}
			cands = append(cands, scoredSentence{score: score, text: sent})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return len([]rune(cands[i].text)) < len([]rune(cands[j].text))
	})

	var picked []string
	for _, c := range cands {
		if c.score > 0 && len(picked) < topn {
			picked = append(picked, c.text)
		}
	}
	if len(picked) == 0 {
		// Back up to any sentence carrying a number-plus-day pattern.
		for _, c := range cands {
			if dayUnitRe.MatchString(c.text) {
				picked = []string{c.text}
				break
			}
		}
	}
	if len(picked) == 0 {
		if sents := SplitSentences(contexts[0].Text); len(sents) > 0 {
			picked = sents[:1]
		} else {
			picked = []string{contexts[0].Text}
		}
	}

	summary := strings.TrimSpace(strings.Join(picked, " "))
	if !hasAcceptedEnding(summary) {
		summary += defaultEnding
	}
	return summary
}
