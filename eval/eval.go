// Package eval holds the answer-judging logic for the batch accuracy
// harness. It depends only on the Ask response text.
package eval

import (
	"regexp"
	"strings"
)

var wsRe = regexp.MustCompile(`\s+`)

// Norm lowercases, strips all whitespace, and removes the ignore tokens, so
// span matching tolerates spacing and phrasing variants (e.g. 영업일 vs 일).
func Norm(s string, ignoreTokens []string) string {
	t := strings.ToLower(s)
	t = wsRe.ReplaceAllString(t, "")
	for _, tok := range ignoreTokens {
		t = strings.ReplaceAll(t, tok, "")
	}
	return t
}

// Label is the three-way judgement of one prediction.
type Label string

const (
	LabelOK      Label = "OK"
	LabelPartial Label = "PARTIAL"
	LabelWrong   Label = "WRONG"
)

// Case is one labeled query from the eval set.
type Case struct {
	Query          string   `json:"query"`
	AnswerSpan     string   `json:"answer_span"`
	RequiredSpans  []string `json:"required_spans"`
	ForbiddenSpans []string `json:"forbidden_spans"`
	OptionalSpans  []string `json:"optional_spans"`
}

// BasicHit reports whether the gold span appears in the prediction, both
// normalized.
func BasicHit(prediction, gold string, ignoreTokens []string) bool {
	return strings.Contains(Norm(prediction, ignoreTokens), Norm(gold, ignoreTokens))
}

// SpanHits counts how many of the given spans appear in the normalized
// prediction.
func SpanHits(prediction string, spans []string, ignoreTokens []string) int {
	p := Norm(prediction, ignoreTokens)
	hits := 0
	for _, s := range spans {
		if strings.Contains(p, Norm(s, ignoreTokens)) {
			hits++
		}
	}
	return hits
}

// Judge applies the v2 rule set: any forbidden span makes the prediction
// WRONG; otherwise all required spans present is OK, at least one is
// PARTIAL, and none is WRONG.
func Judge(c Case, prediction string, ignoreTokens []string) Label {
	if SpanHits(prediction, c.ForbiddenSpans, ignoreTokens) > 0 {
		return LabelWrong
	}
	reqHits := SpanHits(prediction, c.RequiredSpans, ignoreTokens)
	switch {
	case len(c.RequiredSpans) > 0 && reqHits == len(c.RequiredSpans):
		return LabelOK
	case reqHits >= 1:
		return LabelPartial
	default:
		return LabelWrong
	}
}

// Summary aggregates v2 labels. Blended weighs PARTIAL at half credit.
type Summary struct {
	OK      int
	Partial int
	Wrong   int
}

func (s *Summary) Add(l Label) {
	switch l {
	case LabelOK:
		s.OK++
	case LabelPartial:
		s.Partial++
	default:
		s.Wrong++
	}
}

func (s Summary) Total() int {
	return s.OK + s.Partial + s.Wrong
}

func (s Summary) Strict() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.OK) / float64(s.Total())
}

func (s Summary) Blended() float64 {
	if s.Total() == 0 {
		return 0
	}
	return (float64(s.OK) + 0.5*float64(s.Partial)) / float64(s.Total())
}
