package confirm

import (
	"strings"
)

// ReplyKind categorizes one utterance against a pending confirmation.
type ReplyKind int

const (
	// ReplyUnmatched means the utterance neither affirmed nor denied.
	ReplyUnmatched ReplyKind = iota

	// ReplyAffirm means the utterance satisfies the required phrase.
	ReplyAffirm

	// ReplyDeny means the utterance declined the action.
	ReplyDeny
)

// affirmTokens are accepted as a generic affirmation for non-amount-bound
// phrases. Matched on word boundaries.
var affirmTokens = []string{"yes", "proceed", "continue", "confirm"}

// denyTokens cancel the pending action. Matched on word boundaries; the
// apostrophe variants collapse to "dont" during normalization.
var denyTokens = []string{"no", "stop", "cancel", "dont"}

// MatchReply classifies an utterance against the pending confirmation.
//
// Deny tokens always win: "no, don't proceed" cancels even though it
// contains "proceed". An exact restatement of the required phrase always
// confirms. For amount-bound phrases anything short of restating the amount
// and payee is unmatched; a bare "yes" must not confirm the wrong payment.
func MatchReply(text string, pending *PendingConfirmation) ReplyKind {
	norm := normalize(text)
	if norm == "" {
		return ReplyUnmatched
	}

	if hasAnyToken(norm, denyTokens) {
		return ReplyDeny
	}

	if norm == normalize(pending.PhraseRequired) {
		return ReplyAffirm
	}

	if pending.AmountBound {
		if mentionsPayee(norm, pending.Payee) && mentionsAmount(norm, pending.Amount) {
			return ReplyAffirm
		}
		return ReplyUnmatched
	}

	if hasAnyToken(norm, affirmTokens) || strings.Contains(norm, "go ahead") {
		return ReplyAffirm
	}
	return ReplyUnmatched
}

// normalize lowercases, strips apostrophes and commas, and collapses
// whitespace so spoken transcripts compare predictably.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, "’", "")
	s = strings.ReplaceAll(s, ",", "")
	return strings.Join(strings.Fields(s), " ")
}

// hasAnyToken reports whether any of tokens appears as a whole word.
func hasAnyToken(norm string, tokens []string) bool {
	words := strings.FieldsFunc(norm, func(r rune) bool {
		return !isWordRune(r)
	})
	for _, w := range words {
		for _, tok := range tokens {
			if w == tok {
				return true
			}
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// mentionsPayee reports whether the reply names the payee. Comparison
// ignores case and punctuation so "PG&E" matches "p g and e" transcripts
// only loosely: the squashed payee must appear in the squashed reply.
func mentionsPayee(norm, payee string) bool {
	if payee == "" {
		return true
	}
	return strings.Contains(squash(norm), squash(payee))
}

// mentionsAmount reports whether the reply restates the amount. Accepts the
// numeric form ("142.50", "$142.50") and the spoken form ("142 dollars and
// 50 cents").
func mentionsAmount(norm, amount string) bool {
	if amount == "" {
		return true
	}

	dollars, cents := splitAmount(amount)

	if strings.Contains(norm, dollars+"."+cents) {
		return true
	}
	if cents != "00" {
		return strings.Contains(norm, dollars) && strings.Contains(norm, cents+" cent")
	}
	return strings.Contains(norm, dollars+" dollar")
}

// splitAmount separates a decimal amount string into dollar and cent parts,
// zero-padding cents to two digits.
func splitAmount(amount string) (dollars, cents string) {
	amount = strings.TrimPrefix(strings.TrimSpace(amount), "$")
	dollars, cents, found := strings.Cut(amount, ".")
	if !found || cents == "" {
		cents = "00"
	}
	if len(cents) == 1 {
		cents += "0"
	}
	return dollars, cents
}

// squash keeps only letters and digits, for punctuation-insensitive
// containment checks.
func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if isWordRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
