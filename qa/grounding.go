package qa

import (
	"encoding/json"
	"regexp"
	"strings"

	"manualqa/types"
)

var braceBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// maxAnswerRunes caps a generated final answer before the ending check.
const maxAnswerRunes = 60

// ParseGenerated extracts the single JSON object a generator is expected to
// emit. Surrounding code fences are stripped, and when the remaining text
// does not start with an opening brace the first brace-delimited block is
// taken instead. Any malformed payload is an error, never a panic.
func ParseGenerated(raw string) (types.AnswerResult, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.Trim(s, "` \n")
		if strings.HasPrefix(strings.ToLower(s), "json") {
			s = strings.TrimSpace(s[4:])
		}
	}
	if !strings.HasPrefix(s, "{") {
		if m := braceBlockRe.FindString(s); m != "" {
			s = m
		}
	}

	var data struct {
		FinalAnswer string `json:"final_answer"`
		Support     []any  `json:"support"`
		Citations   []any  `json:"citations"`
	}
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		return types.AnswerResult{}, err
	}

	res := types.AnswerResult{FinalAnswer: strings.TrimSpace(data.FinalAnswer)}
	for _, v := range data.Support {
		if s, ok := v.(string); ok {
			res.Support = append(res.Support, s)
		}
	}
	for _, v := range data.Citations {
		if s, ok := v.(string); ok {
			res.Citations = append(res.Citations, s)
		}
	}
	return res, nil
}

// Validator checks generator output against the retrieved evidence and the
// query's intent, substituting extractive output on any failure. It never
// raises to the caller.
type Validator struct {
	Answerer *Extractive
}

// Validate enforces the grounding contract on a parsed result:
//   - the final answer is capped at 60 characters and closed with an
//     accepted sentence-final ending;
//   - at least one support entry must appear verbatim in the retrieved text;
//   - when the original query carries a shipping/return intent, the answer
//     must mention that intent's vocabulary.
//
// On a grounding failure the generated answer is discarded and replaced with
// the single best extractive sentence. Citations pass through as-is; the
// orchestrator fills defaults when they are empty.
func (v *Validator) Validate(res types.AnswerResult, query string, contexts []types.Chunk) (string, []string) {
	final := []rune(strings.TrimSpace(res.FinalAnswer))
	if len(final) > maxAnswerRunes {
		final = []rune(strings.TrimRight(string(final[:maxAnswerRunes]), " ") + "...")
	}
	answer := string(final)
	if !hasAcceptedEnding(answer) {
		answer += defaultEnding
	}

	var corpus strings.Builder
	for i, c := range contexts {
		if i > 0 {
			corpus.WriteString(" ")
		}
		corpus.WriteString(c.Text)
	}
	supportOK := false
	for _, s := range res.Support {
		if s != "" && strings.Contains(corpus.String(), s) {
			supportOK = true
			break
		}
	}

	need := RequiredPattern(IntentOf(query))
	if (need != nil && !need.MatchString(answer)) || !supportOK {
		answer = v.Answerer.Answer(query, contexts, 1)
	}
	return answer, res.Citations
}
