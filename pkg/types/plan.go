package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPlanSchema is returned when a reasoning provider response cannot
// be validated into a well-formed ActionPlan. Malformed plans are rejected
// and re-requested once; they are never coerced into a best guess.
var ErrInvalidPlanSchema = errors.New("invalid action plan schema")

// ActionType identifies the kind of browser action a plan proposes.
type ActionType string

const (
	// ActionNavigate loads a URL in the browser.
	ActionNavigate ActionType = "navigate"

	// ActionAct performs an in-page interaction described by an
	// instruction ("click the Sign In button").
	ActionAct ActionType = "act"

	// ActionExtract reads page content described by an instruction.
	ActionExtract ActionType = "extract"

	// ActionConfirm asks the user to confirm before anything executes.
	ActionConfirm ActionType = "confirm"

	// ActionStop ends the current turn as directed by the planner.
	ActionStop ActionType = "stop"
)

// ParseActionType validates a provider-supplied action type string.
func ParseActionType(s string) (ActionType, error) {
	switch ActionType(s) {
	case ActionNavigate, ActionAct, ActionExtract, ActionConfirm, ActionStop:
		return ActionType(s), nil
	}
	return "", fmt.Errorf("%w: unknown action type %q", ErrInvalidPlanSchema, s)
}

// ActionPlan is a single candidate browser action produced by the reasoning
// collaborator. Plans are schema-validated before any use.
type ActionPlan struct {
	// ActionType is the kind of action proposed.
	ActionType ActionType `json:"action_type"`

	// Target is the navigation target URL for navigate actions.
	Target string `json:"target,omitempty"`

	// Instruction is the natural-language instruction for act and
	// extract actions.
	Instruction string `json:"instruction,omitempty"`

	// ClaimedServiceName is the service the planner believes the target
	// belongs to ("PG&E", "Google"). Drives domain verification.
	ClaimedServiceName string `json:"claimed_service_name,omitempty"`

	// Reason is the planner's short justification for the action.
	Reason string `json:"reason,omitempty"`

	// RequiresConfirmation marks the plan as needing an explicit spoken
	// confirmation before it executes.
	RequiresConfirmation bool `json:"requires_confirmation"`

	// ConfirmationPhrase is the phrase the planner wants spoken back.
	// The confirmation gate may replace it with a stricter one.
	ConfirmationPhrase string `json:"confirmation_phrase,omitempty"`
}

// Validate checks that the plan is well formed: a known action type and the
// fields that action type requires. Returns an error wrapping
// ErrInvalidPlanSchema otherwise.
func (p *ActionPlan) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil plan", ErrInvalidPlanSchema)
	}
	if _, err := ParseActionType(string(p.ActionType)); err != nil {
		return err
	}
	switch p.ActionType {
	case ActionNavigate:
		if strings.TrimSpace(p.Target) == "" {
			return fmt.Errorf("%w: navigate plan missing target", ErrInvalidPlanSchema)
		}
	case ActionAct, ActionExtract:
		if strings.TrimSpace(p.Instruction) == "" {
			return fmt.Errorf("%w: %s plan missing instruction", ErrInvalidPlanSchema, p.ActionType)
		}
	}
	return nil
}

// ExecutionResult reports the outcome of a browser action.
type ExecutionResult struct {
	// Success indicates the action completed.
	Success bool `json:"success"`

	// Message is a short human-readable description of the outcome.
	Message string `json:"message"`

	// ResultingURL is the page URL after the action, when known.
	ResultingURL string `json:"resulting_url,omitempty"`

	// ExtractedData holds the text returned by extract actions.
	ExtractedData string `json:"extracted_data,omitempty"`

	// Error carries the failure description when Success is false.
	Error string `json:"error,omitempty"`
}
