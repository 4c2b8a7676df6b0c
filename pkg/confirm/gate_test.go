package confirm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/aegis/pkg/types"
)

func paymentPlan() *types.ActionPlan {
	return &types.ActionPlan{
		ActionType:  types.ActionAct,
		Instruction: "Click the Pay button",
	}
}

func TestHoldEntersPending(t *testing.T) {
	g := NewGate()
	pc := g.Hold(paymentPlan(), "", "142.50", "PG&E")

	assert.Equal(t, StatePending, g.State())
	assert.True(t, g.Pending())
	assert.Equal(t, "yes, pay $142.50 to PG&E", pc.PhraseRequired)
	assert.True(t, pc.AmountBound)
}

func TestHoldGenericPhrase(t *testing.T) {
	g := NewGate()
	pc := g.Hold(paymentPlan(), "", "", "")

	assert.Equal(t, "yes, proceed safely", pc.PhraseRequired)
	assert.False(t, pc.AmountBound)
}

func TestAmountBoundSpokenFormConfirms(t *testing.T) {
	g := NewGate()
	held := paymentPlan()
	g.Hold(held, "", "142.50", "PG&E")

	d := g.HandleUtterance("yes, pay 142 dollars and 50 cents to PG&E")

	require.Equal(t, OutcomeConfirmed, d.Outcome)
	assert.Same(t, held, d.Plan)
	assert.Equal(t, StateConfirmed, g.LastResolved())
	assert.Equal(t, StateIdle, g.State())
	assert.False(t, g.Pending())
}

func TestAmountBoundExactPhraseConfirms(t *testing.T) {
	g := NewGate()
	g.Hold(paymentPlan(), "", "142.50", "PG&E")

	d := g.HandleUtterance("Yes, pay $142.50 to PG&E")
	assert.Equal(t, OutcomeConfirmed, d.Outcome)
}

func TestAmountBoundBareYesIsRejected(t *testing.T) {
	g := NewGate()
	g.Hold(paymentPlan(), "", "142.50", "PG&E")

	d := g.HandleUtterance("yes")

	assert.Equal(t, OutcomeReprompt, d.Outcome)
	assert.Contains(t, d.Prompt, "yes, pay $142.50 to PG&E")
	assert.Equal(t, StatePending, g.State())
	assert.Equal(t, 1, g.PendingRecord().RepromptCount)
}

func TestAmountBoundWrongAmountIsRejected(t *testing.T) {
	g := NewGate()
	g.Hold(paymentPlan(), "", "142.50", "PG&E")

	d := g.HandleUtterance("yes, pay 99 dollars to PG&E")
	assert.Equal(t, OutcomeReprompt, d.Outcome)
}

func TestAmountBoundMissingPayeeIsRejected(t *testing.T) {
	g := NewGate()
	g.Hold(paymentPlan(), "", "142.50", "PG&E")

	d := g.HandleUtterance("yes, pay 142 dollars and 50 cents")
	assert.Equal(t, OutcomeReprompt, d.Outcome)
}

func TestGenericAffirmTokens(t *testing.T) {
	for _, reply := range []string{"yes", "please proceed", "continue", "go ahead", "confirm"} {
		g := NewGate()
		held := paymentPlan()
		g.Hold(held, "yes, proceed safely", "", "")

		d := g.HandleUtterance(reply)
		assert.Equal(t, OutcomeConfirmed, d.Outcome, "reply %q", reply)
		assert.Same(t, held, d.Plan)
	}
}

func TestDenyTokensCancel(t *testing.T) {
	for _, reply := range []string{"no", "stop", "cancel that", "don't do it", "dont"} {
		g := NewGate()
		g.Hold(paymentPlan(), "", "", "")

		d := g.HandleUtterance(reply)
		assert.Equal(t, OutcomeCancelled, d.Outcome, "reply %q", reply)
		assert.Equal(t, StateCancelled, g.LastResolved(), "reply %q", reply)
	}
}

func TestDenyBeatsAffirmInOneUtterance(t *testing.T) {
	g := NewGate()
	g.Hold(paymentPlan(), "", "", "")

	// "proceed" is an affirm token but the deny must win.
	d := g.HandleUtterance("no, don't proceed")
	assert.Equal(t, OutcomeCancelled, d.Outcome)
}

func TestDenyBeatsAmountRestatement(t *testing.T) {
	g := NewGate()
	g.Hold(paymentPlan(), "", "142.50", "PG&E")

	d := g.HandleUtterance("no, don't pay 142 dollars and 50 cents to PG&E")
	assert.Equal(t, OutcomeCancelled, d.Outcome)
}

func TestRepromptBoundExhausts(t *testing.T) {
	g := NewGate()
	g.Hold(paymentPlan(), "", "142.50", "PG&E")

	d := g.HandleUtterance("what?")
	assert.Equal(t, OutcomeReprompt, d.Outcome)

	d = g.HandleUtterance("maybe")
	assert.Equal(t, OutcomeReprompt, d.Outcome)

	d = g.HandleUtterance("hmm")
	assert.Equal(t, OutcomeExhausted, d.Outcome)
	assert.Equal(t, StateTimeoutExhausted, g.LastResolved())
	assert.Equal(t, StateIdle, g.State())
	assert.Nil(t, g.PendingRecord())

	// Pending plan was discarded; a later "yes" confirms nothing.
	d = g.HandleUtterance("yes")
	assert.Nil(t, d.Plan)
}

func TestExpiryBehavesLikeCancel(t *testing.T) {
	current := time.Now()
	g := NewGate(
		WithExpiry(30*time.Second),
		WithClock(func() time.Time { return current }),
	)
	g.Hold(paymentPlan(), "", "", "")

	current = current.Add(31 * time.Second)
	d := g.HandleUtterance("yes")

	assert.Equal(t, OutcomeExpired, d.Outcome)
	assert.Nil(t, d.Plan)
	assert.Equal(t, StateCancelled, g.LastResolved())
}

func TestCancelDiscardsPending(t *testing.T) {
	g := NewGate()
	g.Hold(paymentPlan(), "", "", "")

	g.Cancel()
	assert.Equal(t, StateCancelled, g.LastResolved())
	assert.Equal(t, StateIdle, g.State())
	assert.Nil(t, g.PendingRecord())
}

func TestMatchReplyNormalization(t *testing.T) {
	pending := &PendingConfirmation{PhraseRequired: "yes, proceed safely"}

	assert.Equal(t, ReplyAffirm, MatchReply("  YES, Proceed Safely  ", pending))
	assert.Equal(t, ReplyUnmatched, MatchReply("", pending))
	assert.Equal(t, ReplyUnmatched, MatchReply("tell me more", pending))
}
