// Package risk implements the two-stage risk classifier: a fast provisional
// pass that gates action execution, a deeper authoritative pass over the
// captured page snapshot, and the escalation-only fusion rule that combines
// them with the domain verification overlay.
//
// Every pass is bounded by an explicit timeout with a deterministic
// fallback; classification never blocks the loop indefinitely and never
// fails the turn outright.
package risk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/aegis/pkg/types"
)

// ErrClassificationTimeout indicates a classifier pass exceeded its bound.
// Never fatal: the fast pass falls back to the keyword rule and the deep
// pass degrades to the fast result.
var ErrClassificationTimeout = errors.New("risk classification timed out")

// Assessor produces structured risk judgments. Implemented by the reasoning
// provider; the classifier consumes its structured output only.
type Assessor interface {
	// AssessTranscript is the fast pre-execution pass over the user's
	// transcript and the proposed target URL.
	AssessTranscript(ctx context.Context, transcript, targetURL string) (*types.RiskAssessment, error)

	// AssessSnapshot is the deep post-execution pass over the captured
	// page snapshot and the user's stated goal.
	AssessSnapshot(ctx context.Context, goal string, snapshot *types.PageSnapshot) (*types.RiskAssessment, error)
}

const (
	// DefaultFastTimeout bounds the provisional pass.
	DefaultFastTimeout = 2 * time.Second

	// DefaultDeepTimeout bounds the authoritative pass.
	DefaultDeepTimeout = 10 * time.Second
)

// Classifier runs the two classification passes with bounded timeouts.
type Classifier struct {
	assessor    Assessor
	fastTimeout time.Duration
	deepTimeout time.Duration
}

// ClassifierOption configures a classifier.
type ClassifierOption func(*Classifier)

// WithFastTimeout overrides the fast pass bound.
func WithFastTimeout(d time.Duration) ClassifierOption {
	return func(c *Classifier) {
		c.fastTimeout = d
	}
}

// WithDeepTimeout overrides the deep pass bound.
func WithDeepTimeout(d time.Duration) ClassifierOption {
	return func(c *Classifier) {
		c.deepTimeout = d
	}
}

// NewClassifier creates a classifier backed by the given assessor. A nil
// assessor is valid and leaves only the deterministic keyword rules.
func NewClassifier(assessor Assessor, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		assessor:    assessor,
		fastTimeout: DefaultFastTimeout,
		deepTimeout: DefaultDeepTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FastPass runs the provisional pre-execution check. It always returns an
// assessment: on assessor timeout or failure it falls back to the
// deterministic keyword rule with degraded confidence. The static keyword
// scan contributes even when the assessor answers, so a keyword signal is
// never lost to an optimistic model.
func (c *Classifier) FastPass(ctx context.Context, transcript, targetURL string) *types.RiskAssessment {
	keyword := keywordAssessment(transcript, targetURL)

	if c.assessor == nil {
		return keyword
	}

	callCtx, cancel := context.WithTimeout(ctx, c.fastTimeout)
	defer cancel()

	assessed, err := c.assessor.AssessTranscript(callCtx, transcript, targetURL)
	if err != nil || assessed == nil {
		return keyword
	}
	assessed.Confidence.Fast = types.ConfidenceFull

	// Escalation-only: the keyword scan can raise the model's answer,
	// never the other way around.
	if keyword.Level > assessed.Level {
		assessed.Level = keyword.Level
		assessed.RecommendedAction = assessed.RecommendedAction.MoreRestrictive(keyword.RecommendedAction)
		assessed.Reasons = append(assessed.Reasons, keyword.Reasons...)
	}
	return assessed
}

// DeepPass runs the authoritative post-execution check. On timeout or
// assessor failure it returns ErrClassificationTimeout; the caller retains
// the fast-pass level with degraded deep confidence.
func (c *Classifier) DeepPass(ctx context.Context, goal string, snapshot *types.PageSnapshot) (*types.RiskAssessment, error) {
	if c.assessor == nil {
		return nil, fmt.Errorf("%w: no assessor configured", ErrClassificationTimeout)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.deepTimeout)
	defer cancel()

	assessed, err := c.assessor.AssessSnapshot(callCtx, goal, snapshot)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrClassificationTimeout, err)
		}
		return nil, err
	}
	if assessed == nil {
		return nil, fmt.Errorf("%w: assessor returned no result", ErrClassificationTimeout)
	}
	assessed.Confidence.Deep = types.ConfidenceFull
	return assessed, nil
}

// urgencyKeywords are scare-tactic phrases scanned in transcripts and URLs.
var urgencyKeywords = []string{"urgent", "act now", "suspended", "terminated", "verify now"}

// paymentKeywords signal financial intent.
var paymentKeywords = []string{"pay", "payment", "bill", "card", "checkout"}

// credentialKeywords signal sensitive-information intent.
var credentialKeywords = []string{"login", "password", "account", "ssn", "personal"}

// keywordAssessment is the deterministic fallback rule for the fast pass.
// It produces at worst CAUTION and never an unexplained SAFE: the result
// always carries a reason and degraded confidence so downstream fusion
// knows the model did not weigh in.
func keywordAssessment(transcript, targetURL string) *types.RiskAssessment {
	text := strings.ToLower(transcript)
	url := strings.ToLower(targetURL)

	level := types.RiskSafe
	action := types.ActionProceed
	var reasons []string

	if containsAny(url, urgencyKeywords) || containsAny(text, urgencyKeywords) {
		level = types.RiskCaution
		action = types.ActionWarn
		reasons = append(reasons, "Urgency wording detected in the request or target URL.")
	}
	if containsAny(text, paymentKeywords) {
		level = level.Max(types.RiskCaution)
		action = action.MoreRestrictive(types.ActionWarn)
		reasons = append(reasons, "Payment intent detected in the request.")
	}
	if containsAny(text, credentialKeywords) {
		level = level.Max(types.RiskCaution)
		action = action.MoreRestrictive(types.ActionNarrate)
		reasons = append(reasons, "Request involves account or personal information.")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "Keyword scan found no risk signals; full classification unavailable.")
	}

	return &types.RiskAssessment{
		Level:             level,
		Reasons:           reasons,
		RecommendedAction: action,
		VoiceMessage:      "",
		Confidence: types.Confidence{
			Fast: types.ConfidenceDegraded,
			Deep: types.ConfidenceMissing,
		},
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
