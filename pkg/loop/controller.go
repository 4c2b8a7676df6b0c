// Package loop implements the step loop controller: the seat of control
// flow for one conversation. It routes utterances between the confirmation
// gate and the planner, bounds each turn to a fixed number of executed
// actions, runs the fast risk pass before anything executes, fans out the
// deep pass and the domain verification concurrently after each action,
// and turns the fused assessment into narration, confirmation holds, or a
// hard stop.
//
// Stop conditions are evaluated in priority order: a DANGER classification
// beats a pending confirmation pause, which beats the step budget, which
// beats a planner stop.
package loop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/aegis/pkg/browser"
	"github.com/entrhq/aegis/pkg/confirm"
	"github.com/entrhq/aegis/pkg/llm"
	"github.com/entrhq/aegis/pkg/logging"
	"github.com/entrhq/aegis/pkg/risk"
	"github.com/entrhq/aegis/pkg/session"
	"github.com/entrhq/aegis/pkg/types"
	"github.com/entrhq/aegis/pkg/verify"
	"github.com/entrhq/aegis/pkg/voice"
)

// EventSink receives every client-facing event the controller emits.
type EventSink func(*types.ServerEvent)

// stepOutcome tells the turn loop what to do after one step.
type stepOutcome int

const (
	stepContinue stepOutcome = iota // keep planning
	stepPause                       // confirmation pending, stop planning
	stepStop                        // turn is over
)

// DefaultPlanTimeout bounds one model planning call.
const DefaultPlanTimeout = 10 * time.Second

// Controller owns one conversation's control flow. Turn bodies are
// serialized, but an utterance arriving mid-turn bumps the session
// generation immediately, so the in-flight turn discards its remaining
// steps at the next staleness check before the new utterance is handled.
type Controller struct {
	mu sync.Mutex

	sess       *session.Session
	gate       *confirm.Gate
	classifier *risk.Classifier
	overlay    *verify.Overlay
	browser    browser.Controller
	planner    llm.Planner
	fallback   llm.Planner

	emit         EventSink
	logger       *logging.Logger
	failClosed   bool
	livenessTick time.Duration
	planTimeout  time.Duration

	history        []string
	claimedService string
}

// Option configures a controller.
type Option func(*Controller)

// WithPlanner sets the model-backed planner. Without one the deterministic
// fallback planner serves every turn.
func WithPlanner(p llm.Planner) Option {
	return func(c *Controller) {
		c.planner = p
	}
}

// WithLogger sets the session logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithFailClosed makes unverifiable domain identities escalate to CAUTION
// instead of the default fail-open caveat.
func WithFailClosed(failClosed bool) Option {
	return func(c *Controller) {
		c.failClosed = failClosed
	}
}

// WithLivenessTick overrides the silence bound while the deep pass runs.
func WithLivenessTick(d time.Duration) Option {
	return func(c *Controller) {
		c.livenessTick = d
	}
}

// WithPlanTimeout overrides the bound on one model planning call.
func WithPlanTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.planTimeout = d
	}
}

// NewController wires the loop's collaborators together. sink receives all
// client-facing events and must not block.
func NewController(
	sess *session.Session,
	gate *confirm.Gate,
	classifier *risk.Classifier,
	overlay *verify.Overlay,
	browserCtrl browser.Controller,
	sink EventSink,
	opts ...Option,
) *Controller {
	c := &Controller{
		sess:         sess,
		gate:         gate,
		classifier:   classifier,
		overlay:      overlay,
		browser:      browserCtrl,
		fallback:     llm.NewFallbackPlanner(),
		emit:         sink,
		livenessTick: voice.LivenessThreshold,
		planTimeout:  DefaultPlanTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.emit == nil {
		c.emit = func(*types.ServerEvent) {}
	}
	return c
}

// HandleTranscript processes one user utterance. While a confirmation is
// pending the utterance is routed to the gate and never to the planner;
// otherwise it begins a fresh turn.
func (c *Controller) HandleTranscript(ctx context.Context, transcript string) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return
	}

	// Supersede any in-flight turn before waiting for it: the bump makes
	// its generation checks observe this newer utterance and discard the
	// remaining steps.
	c.sess.BumpGeneration()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gate.Pending() {
		c.handleGateReply(ctx, transcript)
		return
	}
	c.runTurn(ctx, transcript)
}

// handleGateReply resolves an utterance against the pending confirmation.
func (c *Controller) handleGateReply(ctx context.Context, transcript string) {
	gen := c.sess.BumpGeneration()
	decision := c.gate.HandleUtterance(transcript)

	switch decision.Outcome {
	case confirm.OutcomeConfirmed:
		c.logf("gate confirmed, executing held action")
		fast := c.classifier.FastPass(ctx, c.sess.Goal(), decision.Plan.Target)
		if level := c.sess.EscalateRisk(fast.Level); level == types.RiskDanger {
			c.emit(types.NewRiskUpdateEvent(level))
			c.sayOr(fast.VoiceMessage, "I'm not going to do that after all; it doesn't look safe.", voice.PhaseSafetyCheck)
			return
		}
		c.say("Confirmed. Doing that now.", voice.PhaseAck)
		c.runStep(ctx, gen, decision.Plan, fast, true)

	case confirm.OutcomeCancelled:
		level := c.sess.RestoreStableRisk()
		c.emit(types.NewRiskUpdateEvent(level))
		c.say("Okay, I won't do that. Nothing was submitted.", voice.PhaseResult)

	case confirm.OutcomeReprompt:
		c.say(decision.Prompt, voice.PhaseSafetyCheck)

	case confirm.OutcomeExhausted:
		level := c.sess.RestoreStableRisk()
		c.emit(types.NewRiskUpdateEvent(level))
		c.say("I didn't catch a clear yes or no, so I've set that aside. Tell me again what you'd like to do.", voice.PhaseResult)

	case confirm.OutcomeExpired:
		level := c.sess.RestoreStableRisk()
		c.emit(types.NewRiskUpdateEvent(level))
		c.logf("pending confirmation expired, treating utterance as a fresh goal")
		c.runTurn(ctx, transcript)
	}
}

// runTurn plans and executes actions for one goal until a stop condition.
func (c *Controller) runTurn(ctx context.Context, goal string) {
	gen := c.sess.BeginTurn(goal)
	c.sess.SetRisk(types.RiskSafe)
	c.history = c.history[:0]
	c.claimedService = ""
	c.emitVoice(types.RiskSafe, voice.PhaseAck)
	c.emit(types.NewStatusEvent("Working on it."))

	for {
		if c.sess.IsStale(gen) {
			return
		}
		if c.sess.RiskLevel() == types.RiskDanger {
			c.say("I've stopped here because this doesn't look safe.", voice.PhaseSafetyCheck)
			return
		}
		if c.sess.StepCount() >= session.MaxSteps {
			c.say("I've done as much as I can in one go. Tell me how you'd like to continue.", voice.PhaseResult)
			return
		}

		plan, degraded := c.plan(ctx, goal)
		if degraded {
			c.say("I'm having trouble working out a next step. Could you say that a different way?", voice.PhaseResult)
			return
		}
		c.logf("plan: type=%s target=%q reason=%q", plan.ActionType, plan.Target, plan.Reason)
		if plan.ClaimedServiceName != "" {
			c.claimedService = plan.ClaimedServiceName
		}

		if plan.ActionType == types.ActionStop {
			c.sayOr(plan.Reason, "All done.", voice.PhaseResult)
			return
		}

		fast := c.classifier.FastPass(ctx, goal, plan.Target)
		level := c.sess.EscalateRisk(fast.Level)
		c.emit(types.NewRiskUpdateEvent(level))

		// DANGER stops the turn outright, whatever the assessor
		// recommended alongside it.
		if fast.RecommendedAction == types.ActionBlock || level == types.RiskDanger {
			c.sess.EscalateRisk(types.RiskDanger)
			c.emit(types.NewRiskUpdateEvent(c.sess.RiskLevel()))
			c.sayOr(fast.VoiceMessage, "I'm not going to do that; it doesn't look safe.", voice.PhaseSafetyCheck)
			return
		}

		if blocked := c.blockUnsafePayment(goal, plan); blocked {
			return
		}

		if plan.ActionType == types.ActionConfirm || plan.RequiresConfirmation ||
			(fast.Level >= types.RiskHighRisk && fast.RecommendedAction >= types.ActionWarn) {
			c.holdForConfirmation(plan, fast.ConfirmationPhrase, nil)
			return
		}

		switch c.runStep(ctx, gen, plan, fast, false) {
		case stepPause, stepStop:
			return
		}
	}
}

// plan asks the model planner for the next action under the plan timeout,
// re-requests once on a schema violation, and falls back to the
// deterministic planner. degraded is true only when no plan at all could be
// produced.
func (c *Controller) plan(ctx context.Context, goal string) (*types.ActionPlan, bool) {
	currentURL := c.browser.CurrentURL()

	if c.planner != nil {
		planCtx := ctx
		if c.planTimeout > 0 {
			var cancel context.CancelFunc
			planCtx, cancel = context.WithTimeout(ctx, c.planTimeout)
			defer cancel()
		}

		plan, err := c.planner.Plan(planCtx, goal, currentURL, c.history)
		if err != nil && errors.Is(err, types.ErrInvalidPlanSchema) {
			c.logf("plan rejected (%v), re-requesting once", err)
			plan, err = c.planner.Plan(planCtx, goal, currentURL, c.history)
		}
		if err == nil && plan != nil {
			return plan, false
		}
		c.logf("model planner failed (%v), using fallback", err)
	}

	plan, err := c.fallback.Plan(ctx, goal, currentURL, c.history)
	if err != nil || plan == nil {
		return nil, true
	}
	return plan, false
}

// paymentIntentKeywords mirror the fast classifier's payment signals for
// the pre-execution allowlist check.
var paymentIntentKeywords = []string{"pay", "payment", "bill", "card", "checkout"}

// blockUnsafePayment refuses payment-class actions outside the safe
// payment allowlist before anything executes. Both the plan's own
// confirmation flag and payment wording in the goal mark an action as
// payment-class; either way the destination domain must be allowlisted.
func (c *Controller) blockUnsafePayment(goal string, plan *types.ActionPlan) bool {
	paymentClass := plan.RequiresConfirmation
	if !paymentClass {
		lower := strings.ToLower(goal)
		for _, kw := range paymentIntentKeywords {
			if strings.Contains(lower, kw) {
				paymentClass = true
				break
			}
		}
	}
	if !paymentClass || len(c.sess.SafeDomains()) == 0 {
		return false
	}

	domain := verify.NormalizeDomain(plan.Target)
	if domain == "" {
		domain = verify.NormalizeDomain(c.browser.CurrentURL())
	}
	if domain == "" || c.sess.IsSafeDomain(domain) {
		return false
	}

	c.sess.EscalateRisk(types.RiskDanger)
	c.emit(types.NewRiskUpdateEvent(c.sess.RiskLevel()))
	c.say(fmt.Sprintf(
		"I only handle payments on sites we've marked as safe, and %s isn't one of them. Nothing was submitted.", domain),
		voice.PhaseSafetyCheck)
	c.logf("payment blocked on non-allowlisted domain %q", domain)
	return true
}

// holdForConfirmation parks the plan behind the gate and asks the user to
// speak the required phrase. Amount and payee come from the most recent
// page snapshot when one is available.
func (c *Controller) holdForConfirmation(plan *types.ActionPlan, phrase string, snapshot *types.PageSnapshot) {
	if phrase == "" {
		phrase = plan.ConfirmationPhrase
	}
	var amount, payee string
	if snapshot != nil {
		amount = snapshot.DetectedAmount
		payee = snapshot.DetectedPayee
	}

	c.sess.MarkStableRisk()
	level := c.sess.EscalateRisk(types.RiskHighRisk)
	c.emit(types.NewRiskUpdateEvent(level))
	pending := c.gate.Hold(plan, phrase, amount, payee)
	c.logf("holding for confirmation: %q", pending.PhraseRequired)
	c.say(fmt.Sprintf("Before I continue, please say: %q. To stop, just say no.", pending.PhraseRequired), voice.PhaseSafetyCheck)
}

// runStep executes one planned action and runs the post-execution
// classification. confirmed marks a step released by the gate; it is never
// re-held for the same confirmation.
func (c *Controller) runStep(ctx context.Context, gen uint64, plan *types.ActionPlan, fast *types.RiskAssessment, confirmed bool) stepOutcome {
	result := c.execute(ctx, plan)
	c.sess.RecordStep()
	c.history = append(c.history, fmt.Sprintf("%s: %s", plan.ActionType, plan.Reason))

	if !result.Success {
		c.sayOr(result.Message, "That didn't work, so I've stopped there.", voice.PhaseResult)
		return stepStop
	}

	if result.ResultingURL != "" {
		c.sess.VisitDomain(result.ResultingURL, verify.NormalizeDomain(result.ResultingURL))
		c.emit(types.NewBrowserUpdateEvent(result.ResultingURL))
	}

	snapshot, err := c.browser.Snapshot(ctx)
	if err != nil {
		c.logf("snapshot failed: %v", err)
		c.sayOr(result.Message, "Done.", voice.PhaseResult)
		return stepContinue
	}

	deep, verification := c.classifyPage(ctx, snapshot)
	if c.sess.IsStale(gen) {
		c.logf("discarding stale classification for generation %d", gen)
		return stepStop
	}

	fused := risk.Fuse(fast, deep, verification, c.failClosed)
	level := c.sess.EscalateRisk(fused.Level)
	c.emit(types.NewRiskUpdateEvent(level))
	c.logf("fused risk=%s action=%s reasons=%d", fused.Level, fused.RecommendedAction, len(fused.Reasons))

	// An effective level of DANGER ends the turn no matter what handling
	// the assessment recommended alongside it.
	if level == types.RiskDanger || fused.RecommendedAction == types.ActionBlock {
		c.sayOr(fused.VoiceMessage, "Stop. This page doesn't look safe, so I won't continue here.", voice.PhaseSafetyCheck)
		return stepStop
	}

	switch fused.RecommendedAction {
	case types.ActionWarn:
		if confirmed {
			// Already confirmed by the user; describe instead of re-asking.
			c.sayOr(fused.VoiceMessage, "Done. Let me know what's next.", voice.PhaseResult)
			return stepStop
		}
		c.holdForConfirmation(plan, fused.ConfirmationPhrase, snapshot)
		return stepPause

	case types.ActionNarrate:
		c.sayOr(fused.VoiceMessage, describeResult(plan, result), voice.PhaseResult)
		return stepContinue

	default:
		if fused.VoiceMessage != "" {
			c.say(fused.VoiceMessage, voice.PhaseResult)
		} else if plan.ActionType == types.ActionExtract {
			c.say(describeResult(plan, result), voice.PhaseResult)
		}
		return stepContinue
	}
}

// execute dispatches the plan to the browser, retrying a failed action at
// most once.
func (c *Controller) execute(ctx context.Context, plan *types.ActionPlan) *types.ExecutionResult {
	result := c.dispatch(ctx, plan)
	if !result.Success {
		c.logf("action failed (%s), retrying once", result.Error)
		result = c.dispatch(ctx, plan)
	}
	return result
}

func (c *Controller) dispatch(ctx context.Context, plan *types.ActionPlan) *types.ExecutionResult {
	c.emitVoice(c.sess.RiskLevel(), voice.PhaseWorking)
	switch plan.ActionType {
	case types.ActionNavigate:
		return c.browser.Navigate(ctx, plan.Target)
	case types.ActionAct:
		return c.browser.Act(ctx, plan.Instruction)
	case types.ActionExtract:
		return c.browser.Extract(ctx, plan.Instruction)
	default:
		return &types.ExecutionResult{
			Success:      true,
			Message:      plan.Reason,
			ResultingURL: c.browser.CurrentURL(),
		}
	}
}

// classifyPage fans out the deep pass and the domain verification
// concurrently and waits for both, emitting a safety-check tick whenever
// the wait crosses the liveness bound so the user never sits in silence.
func (c *Controller) classifyPage(ctx context.Context, snapshot *types.PageSnapshot) (*types.RiskAssessment, *types.DomainVerificationResult) {
	deepCh := make(chan *types.RiskAssessment, 1)
	verifyCh := make(chan *types.DomainVerificationResult, 1)

	goal := c.sess.Goal()
	claimed := c.claimedService

	go func() {
		deep, err := c.classifier.DeepPass(ctx, goal, snapshot)
		if err != nil {
			c.logf("deep pass degraded: %v", err)
			deep = nil
		}
		deepCh <- deep
	}()
	go func() {
		verifyCh <- c.overlay.Verify(ctx, claimed, snapshot.URL)
	}()

	ticker := time.NewTicker(c.livenessTick)
	defer ticker.Stop()

	var deep *types.RiskAssessment
	var verification *types.DomainVerificationResult
	for deepCh != nil || verifyCh != nil {
		select {
		case deep = <-deepCh:
			deepCh = nil
		case verification = <-verifyCh:
			verifyCh = nil
		case <-ticker.C:
			c.emitVoice(c.sess.RiskLevel(), voice.PhaseSafetyCheck)
			c.emit(types.NewStatusEvent("Still checking this page for safety."))
		}
	}
	return deep, verification
}

// say emits narration together with the matching voice profile.
func (c *Controller) say(text string, phase voice.Phase) {
	c.emitVoice(c.sess.RiskLevel(), phase)
	c.emit(types.NewAgentResponseEvent(text))
}

// sayOr speaks text, or fallback when text is empty.
func (c *Controller) sayOr(text, fallback string, phase voice.Phase) {
	if text == "" {
		text = fallback
	}
	c.say(text, phase)
}

func (c *Controller) emitVoice(level types.RiskLevel, phase voice.Phase) {
	c.emit(types.NewVoiceStateEvent(voice.Profile(level, phase)))
}

func (c *Controller) logf(format string, v ...interface{}) {
	if c.logger != nil {
		c.logger.Infof(format, v...)
	}
}

// describeResult builds a short spoken summary of an execution result.
func describeResult(plan *types.ActionPlan, result *types.ExecutionResult) string {
	if plan.ActionType == types.ActionExtract && result.ExtractedData != "" {
		excerpt := result.ExtractedData
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		return fmt.Sprintf("Here's what I can see: %s", excerpt)
	}
	if result.Message != "" {
		return result.Message
	}
	return "Done."
}
