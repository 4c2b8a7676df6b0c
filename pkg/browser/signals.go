package browser

import (
	"regexp"
	"strings"

	"github.com/entrhq/aegis/pkg/types"
)

// maxExcerptLen bounds the DOM excerpt carried in a snapshot.
const maxExcerptLen = 4000

// amountPattern matches a visible dollar amount ("$142.50", "$1,200").
var amountPattern = regexp.MustCompile(`\$\s?(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`)

// payeePattern matches payee wording near payment surfaces ("pay to PG&E",
// "payable to Pacific Gas").
var payeePattern = regexp.MustCompile(`(?i)pay(?:able)?(?:ment)?\s+to[:\s]+([A-Za-z][A-Za-z0-9&.\- ]{1,40})`)

// urgencyPhrases are scare-tactic signals scanned in page text.
var urgencyPhrases = []string{
	"act now",
	"urgent",
	"account suspended",
	"suspended",
	"verify now",
	"immediately",
	"final notice",
	"limited time",
}

// BuildSnapshot assembles an immutable snapshot from raw page observations,
// running the shared signal extraction: detected amount and payee, and
// urgency phrases found in the URL or visible text.
func BuildSnapshot(url, title, visibleText string, fields []types.FormField) *types.PageSnapshot {
	excerpt := strings.TrimSpace(visibleText)
	if len(excerpt) > maxExcerptLen {
		excerpt = excerpt[:maxExcerptLen]
	}

	amount, payee := detectPayment(visibleText)
	return &types.PageSnapshot{
		URL:            url,
		Title:          title,
		DOMExcerpt:     excerpt,
		FormFields:     fields,
		DetectedAmount: amount,
		DetectedPayee:  payee,
		UrgencySignals: detectUrgency(url, visibleText),
	}
}

// detectPayment finds the first dollar amount and, when present, the payee
// named next to payment wording. The amount is normalized to a plain
// decimal string without the currency sign or thousands separators.
func detectPayment(text string) (amount, payee string) {
	if m := amountPattern.FindStringSubmatch(text); m != nil {
		amount = strings.ReplaceAll(m[1], ",", "")
	}
	if m := payeePattern.FindStringSubmatch(text); m != nil {
		payee = cleanPayee(m[1])
	}
	return amount, payee
}

// payeeStopWords end a payee capture; "payment to PG&E now" names PG&E,
// not "PG&E now".
var payeeStopWords = []string{" now", " today", " immediately", " before", " by ", " within"}

func cleanPayee(raw string) string {
	payee := strings.TrimSpace(raw)
	lower := strings.ToLower(payee)
	for _, stop := range payeeStopWords {
		if idx := strings.Index(lower, stop); idx >= 0 {
			payee = payee[:idx]
			lower = lower[:idx]
		}
	}
	return strings.TrimRight(strings.TrimSpace(payee), ".-")
}

// detectUrgency returns the urgency phrases present in the URL or text,
// in scan order, without duplicates.
func detectUrgency(url, text string) []string {
	haystack := strings.ToLower(url + " " + text)
	var found []string
	for _, phrase := range urgencyPhrases {
		if strings.Contains(haystack, phrase) {
			found = append(found, phrase)
		}
	}
	return found
}
