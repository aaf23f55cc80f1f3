package qa

import (
	"regexp"
	"strings"
)

// rewriteRule rewrites a colloquial asking into its canonical phrase.
// Rules apply first to last, each replacing every case-insensitive match.
type rewriteRule struct {
	pattern *regexp.Regexp
	to      string
}

var rewriteRules = []rewriteRule{
	{regexp.MustCompile(`(?i)배송\s*몇[일칠]\??`), "기본 배송 소요 기간은 며칠인가요?"},
	{regexp.MustCompile(`(?i)배송\s*얼마나`), "기본 배송 소요 기간은 며칠인가요?"},
	{regexp.MustCompile(`(?i)배송.*언제`), "기본 배송 소요 기간은 며칠인가요?"},
	{regexp.MustCompile(`(?i)도착.*언제`), "기본 배송 소요 기간은 며칠인가요?"},
	{regexp.MustCompile(`(?i)언제\s*오(나요|는지)`), "기본 배송 소요 기간은 며칠인가요?"},
	{regexp.MustCompile(`(?i)반품\s*(언제|몇일|며칠|기간|가능)`), "반품 가능 기간은 언제까지인가요?"},
	{regexp.MustCompile(`(?i)교환\s*(언제|몇일|며칠|기간|가능)`), "교환 가능 조건과 기간은 어떻게 되나요?"},
	{regexp.MustCompile(`(?i)(as|a/s)`), "A/S"},
	{regexp.MustCompile(`(?i)카드\s*취소\s*며칠`), "카드 결제 취소 처리 기간은 며칠인가요?"},
}

// NormalizeQuery rewrites colloquial phrasings about shipping timing, return
// windows, exchanges, after-sales service, and payment cancellation into
// canonical question forms.
func NormalizeQuery(q string) string {
	s := Normalize(q)
	for _, r := range rewriteRules {
		s = r.pattern.ReplaceAllString(s, r.to)
	}
	return s
}

// Intent is a query's topical focus, used to bias sentence selection and to
// verify generated answers.
type Intent string

const (
	IntentReturnWindow Intent = "return_window"
	IntentShippingTime Intent = "shipping_time"
	IntentGeneric      Intent = "generic"
)

var intentRules = []struct {
	pattern *regexp.Regexp
	intent  Intent
}{
	{regexp.MustCompile(`(반품|반환).*(언제|기간|기한|며칠|몇일|가능)`), IntentReturnWindow},
	{regexp.MustCompile(`(배송|도착|소요).*(언제|며칠|몇일|얼마나|기간|걸리)`), IntentShippingTime},
}

// IntentOf classifies a query; first matching rule wins, generic otherwise.
func IntentOf(q string) Intent {
	s := strings.ToLower(Normalize(q))
	for _, r := range intentRules {
		if r.pattern.MatchString(s) {
			return r.intent
		}
	}
	return IntentGeneric
}

// RequiredPattern returns the vocabulary an answer must mention for the given
// intent, or nil when any phrasing is acceptable.
func RequiredPattern(intent Intent) *regexp.Regexp {
	switch intent {
	case IntentShippingTime:
		return shippingVocabRe
	case IntentReturnWindow:
		return returnVocabRe
	}
	return nil
}

var (
	shippingVocabRe = regexp.MustCompile(`(배송|소요|도착)`)
	returnVocabRe   = regexp.MustCompile(`(반품|반환)`)
)
