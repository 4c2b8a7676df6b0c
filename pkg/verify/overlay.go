// Package verify implements the domain verification overlay: an identity
// check that compares the domain the browser is actually on against the
// canonical domain of the service the planner claimed to be visiting.
//
// The overlay can only escalate risk, never lower it. A mismatch is an
// absolute DANGER override. An oracle timeout yields an unverified result
// which is fail-open by default — it does not raise the risk level on its
// own, but is always surfaced to the user as a caveat and logged. That
// trade-off favors availability over strictness and is a deliberate,
// configurable policy point: stricter deployments run fail-closed, which
// escalates unverified checks to CAUTION.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/aegis/pkg/types"
)

// ErrOracleTimeout indicates the domain oracle did not answer in time.
var ErrOracleTimeout = errors.New("domain oracle timed out")

// Oracle looks up the canonical domain for a claimed service name.
type Oracle interface {
	// Lookup returns the canonical registrable domain for the service,
	// or an error when the lookup fails or times out.
	Lookup(ctx context.Context, serviceName string) (string, error)
}

// DefaultTimeout bounds one oracle lookup.
const DefaultTimeout = 3 * time.Second

// Overlay runs identity checks with a bounded oracle timeout.
type Overlay struct {
	oracle  Oracle
	timeout time.Duration
}

// OverlayOption configures an overlay.
type OverlayOption func(*Overlay)

// WithTimeout overrides the oracle lookup bound.
func WithTimeout(d time.Duration) OverlayOption {
	return func(o *Overlay) {
		o.timeout = d
	}
}

// NewOverlay creates an overlay backed by the given oracle. A nil oracle
// is valid; every check then resolves to unverified.
func NewOverlay(oracle Oracle, opts ...OverlayOption) *Overlay {
	o := &Overlay{
		oracle:  oracle,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Verify checks whether observedURL belongs to the claimed service. It
// always returns a result; oracle failure is reported through the
// unverified status, never as a hard error to the loop.
func (o *Overlay) Verify(ctx context.Context, claimedService, observedURL string) *types.DomainVerificationResult {
	observed := NormalizeDomain(observedURL)
	result := &types.DomainVerificationResult{
		ClaimedServiceName: claimedService,
		ObservedDomain:     observed,
		Status:             types.VerificationUnverified,
	}

	if strings.TrimSpace(claimedService) == "" || observed == "" || o.oracle == nil {
		return result
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	canonical, err := o.oracle.Lookup(callCtx, claimedService)
	if err != nil {
		return result
	}

	verified := NormalizeDomain(canonical)
	if verified == "" {
		return result
	}

	result.VerifiedDomain = verified
	result.Matched = DomainsMatch(observed, verified)
	if result.Matched {
		result.Status = types.VerificationMatched
	} else {
		result.Status = types.VerificationMismatched
	}
	return result
}

// Describe renders a short log line for a verification result.
func Describe(v *types.DomainVerificationResult) string {
	return fmt.Sprintf("verify service=%q observed=%q verified=%q status=%s",
		v.ClaimedServiceName, v.ObservedDomain, v.VerifiedDomain, v.Status)
}
