// Package confirm implements the confirmation gate: the state machine that
// decides when a browser action needs an explicit spoken confirmation,
// matches free-form affirm/deny phrasing, and bounds reprompting so a
// confused exchange can never loop forever.
//
// While a confirmation is pending, every user utterance is routed here
// first, never to the planner. No action executes between PENDING entry and
// its resolution.
package confirm

import (
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/aegis/pkg/types"
)

// State identifies the gate's position in its lifecycle.
type State int

const (
	// StateIdle means no confirmation is outstanding.
	StateIdle State = iota

	// StatePending means an action is held awaiting confirmation.
	StatePending

	// StateConfirmed means the user confirmed; the held action was
	// released to the caller.
	StateConfirmed

	// StateCancelled means the user declined or the pending
	// confirmation expired; the held action was discarded.
	StateCancelled

	// StateTimeoutExhausted means the reprompt bound was hit; the held
	// action was discarded and the user must restate their goal.
	StateTimeoutExhausted
)

// String returns a readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePending:
		return "PENDING"
	case StateConfirmed:
		return "CONFIRMED"
	case StateCancelled:
		return "CANCELLED"
	case StateTimeoutExhausted:
		return "TIMEOUT_EXHAUSTED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome categorizes the gate's decision for one utterance.
type Outcome int

const (
	// OutcomeConfirmed releases the held plan for execution.
	OutcomeConfirmed Outcome = iota

	// OutcomeCancelled discards the held plan at the user's request.
	OutcomeCancelled

	// OutcomeReprompt keeps the gate pending and re-issues a simplified
	// restatement of the required phrase.
	OutcomeReprompt

	// OutcomeExhausted discards the held plan after too many
	// non-matching replies.
	OutcomeExhausted

	// OutcomeExpired discards the held plan because the confirmation's
	// wall-clock window elapsed. Behaves identically to a cancel; the
	// triggering utterance should be treated as a fresh goal.
	OutcomeExpired
)

// Decision is the gate's response to one utterance while pending.
type Decision struct {
	// Outcome categorizes the decision.
	Outcome Outcome

	// Plan is the released action plan; set only on OutcomeConfirmed.
	Plan *types.ActionPlan

	// Prompt is the text to speak back on OutcomeReprompt.
	Prompt string
}

// PendingConfirmation records one outstanding confirmation request.
type PendingConfirmation struct {
	// PhraseRequired is the phrase the user is asked to speak.
	PhraseRequired string

	// AmountBound marks monetary confirmations: the reply must restate
	// the amount and payee, a bare "yes" is insufficient.
	AmountBound bool

	// Amount is the decimal amount string for amount-bound phrases.
	Amount string

	// Payee is the payee name for amount-bound phrases.
	Payee string

	// RepromptCount is the number of non-matching replies so far.
	RepromptCount int

	// ExpiresAfter is the wall-clock window for a reply.
	ExpiresAfter time.Duration

	// CreatedAt is when the gate entered PENDING.
	CreatedAt time.Time
}

const (
	// DefaultRepromptLimit is the number of non-matching replies before
	// the gate gives up and requires the user to restate their goal.
	DefaultRepromptLimit = 3

	// DefaultExpiry is the wall-clock window for a confirmation reply.
	DefaultExpiry = 2 * time.Minute
)

// Gate is the confirmation state machine. Methods are safe for concurrent
// use, though callers are expected to linearize gate access with the step
// loop under the session's single-writer discipline.
type Gate struct {
	mu            sync.Mutex
	state         State
	lastResolved  State
	pending       *PendingConfirmation
	held          *types.ActionPlan
	repromptLimit int
	expiry        time.Duration
	now           func() time.Time
}

// GateOption configures a gate.
type GateOption func(*Gate)

// WithRepromptLimit overrides the reprompt bound.
func WithRepromptLimit(limit int) GateOption {
	return func(g *Gate) {
		g.repromptLimit = limit
	}
}

// WithExpiry overrides the confirmation reply window.
func WithExpiry(d time.Duration) GateOption {
	return func(g *Gate) {
		g.expiry = d
	}
}

// WithClock overrides the gate's time source.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		g.now = now
	}
}

// NewGate creates an idle confirmation gate.
func NewGate(opts ...GateOption) *Gate {
	g := &Gate{
		state:         StateIdle,
		repromptLimit: DefaultRepromptLimit,
		expiry:        DefaultExpiry,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the gate's current state: IDLE or PENDING. Terminal states
// are transient; they resolve back to IDLE and are reported by LastResolved.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// LastResolved returns the terminal state of the most recently resolved
// confirmation, or StateIdle when none has resolved yet.
func (g *Gate) LastResolved() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastResolved
}

// Pending reports whether a confirmation is outstanding.
func (g *Gate) Pending() bool {
	return g.State() == StatePending
}

// PendingRecord returns a copy of the outstanding confirmation, or nil.
func (g *Gate) PendingRecord() *PendingConfirmation {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return nil
	}
	copied := *g.pending
	return &copied
}

// Hold transitions the gate to PENDING, holding plan until the user speaks
// the required phrase. For monetary actions pass amount and payee so the
// reply is required to restate both; for non-monetary high-risk actions
// leave them empty and a generic affirmation is accepted.
//
// The caller provides phrase when the risk assessment produced one; when
// empty a default is derived.
func (g *Gate) Hold(plan *types.ActionPlan, phrase, amount, payee string) *PendingConfirmation {
	g.mu.Lock()
	defer g.mu.Unlock()

	amountBound := amount != ""
	if phrase == "" {
		if amountBound {
			phrase = AmountPhrase(amount, payee)
		} else {
			phrase = "yes, proceed safely"
		}
	}

	g.state = StatePending
	g.held = plan
	g.pending = &PendingConfirmation{
		PhraseRequired: phrase,
		AmountBound:    amountBound,
		Amount:         amount,
		Payee:          payee,
		ExpiresAfter:   g.expiry,
		CreatedAt:      g.now(),
	}
	copied := *g.pending
	return &copied
}

// HandleUtterance resolves one user utterance against the pending
// confirmation. Must only be called while the gate is pending.
func (g *Gate) HandleUtterance(text string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StatePending || g.pending == nil {
		return Decision{Outcome: OutcomeCancelled}
	}

	if g.now().After(g.pending.CreatedAt.Add(g.pending.ExpiresAfter)) {
		g.resolve(StateCancelled)
		return Decision{Outcome: OutcomeExpired}
	}

	switch MatchReply(text, g.pending) {
	case ReplyAffirm:
		plan := g.held
		g.resolve(StateConfirmed)
		return Decision{Outcome: OutcomeConfirmed, Plan: plan}

	case ReplyDeny:
		g.resolve(StateCancelled)
		return Decision{Outcome: OutcomeCancelled}

	default:
		g.pending.RepromptCount++
		if g.pending.RepromptCount >= g.repromptLimit {
			g.resolve(StateTimeoutExhausted)
			return Decision{Outcome: OutcomeExhausted}
		}
		return Decision{
			Outcome: OutcomeReprompt,
			Prompt:  fmt.Sprintf("To continue, please say: %q. To stop, say no.", g.pending.PhraseRequired),
		}
	}
}

// Cancel discards any pending confirmation without a user reply. Used when
// a turn is torn down.
func (g *Gate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StatePending {
		g.resolve(StateCancelled)
	}
}

// resolve completes the lifecycle: the terminal outcome is recorded and the
// gate returns to IDLE with all held state discarded. Caller must hold g.mu.
func (g *Gate) resolve(terminal State) {
	g.lastResolved = terminal
	g.state = StateIdle
	g.pending = nil
	g.held = nil
}

// AmountPhrase builds the required phrase for a monetary confirmation.
func AmountPhrase(amount, payee string) string {
	if payee == "" {
		return fmt.Sprintf("yes, pay $%s", amount)
	}
	return fmt.Sprintf("yes, pay $%s to %s", amount, payee)
}
