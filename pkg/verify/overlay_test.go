package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/aegis/pkg/types"
)

type stubOracle struct {
	domain string
	err    error
	delay  time.Duration
}

func (s *stubOracle) Lookup(ctx context.Context, serviceName string) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.domain, s.err
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://www.pge.com/", "pge.com"},
		{"https://accounts.google.com/signin", "google.com"},
		{"http://pge-billing-urgent.com", "pge-billing-urgent.com"},
		{"www.example.co.uk", "example.co.uk"},
		{"https://shop.amazon.co.uk/cart", "amazon.co.uk"},
		{"pge.com", "pge.com"},
		{"PGE.COM.", "pge.com"},
		{"example.com:8080", "example.com"},
		{"about:blank", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDomain(tt.input), "input %q", tt.input)
	}
}

func TestDomainsMatch(t *testing.T) {
	assert.True(t, DomainsMatch("pge.com", "pge.com"))
	assert.True(t, DomainsMatch("billing.pge.com", "pge.com"))
	assert.False(t, DomainsMatch("pge-billing-urgent.com", "pge.com"))
	assert.False(t, DomainsMatch("notpge.com", "pge.com"))
	assert.False(t, DomainsMatch("", "pge.com"))
	assert.False(t, DomainsMatch("pge.com", ""))
}

func TestVerifyMatched(t *testing.T) {
	o := NewOverlay(&stubOracle{domain: "pge.com"})

	got := o.Verify(context.Background(), "PG&E", "https://www.pge.com/billing")

	assert.Equal(t, types.VerificationMatched, got.Status)
	assert.True(t, got.Matched)
	assert.Equal(t, "pge.com", got.VerifiedDomain)
	assert.Equal(t, "pge.com", got.ObservedDomain)
}

func TestVerifyMismatched(t *testing.T) {
	o := NewOverlay(&stubOracle{domain: "pge.com"})

	got := o.Verify(context.Background(), "PG&E", "https://baygrid-utilities.com/pay")

	assert.Equal(t, types.VerificationMismatched, got.Status)
	assert.False(t, got.Matched)
	assert.Equal(t, "baygrid-utilities.com", got.ObservedDomain)
}

func TestVerifyOracleTimeoutIsUnverified(t *testing.T) {
	o := NewOverlay(
		&stubOracle{domain: "pge.com", delay: 200 * time.Millisecond},
		WithTimeout(10*time.Millisecond),
	)

	got := o.Verify(context.Background(), "PG&E", "https://www.pge.com")

	assert.Equal(t, types.VerificationUnverified, got.Status)
	assert.False(t, got.Matched)
	assert.Empty(t, got.VerifiedDomain)
}

func TestVerifyOracleErrorIsUnverified(t *testing.T) {
	o := NewOverlay(&stubOracle{err: errors.New("lookup failed")})

	got := o.Verify(context.Background(), "PG&E", "https://www.pge.com")
	assert.Equal(t, types.VerificationUnverified, got.Status)
}

func TestVerifyNoClaimedService(t *testing.T) {
	o := NewOverlay(&stubOracle{domain: "pge.com"})

	got := o.Verify(context.Background(), "", "https://www.pge.com")
	assert.Equal(t, types.VerificationUnverified, got.Status)
}

func TestVerifyNilOracle(t *testing.T) {
	o := NewOverlay(nil)

	got := o.Verify(context.Background(), "PG&E", "https://www.pge.com")
	assert.Equal(t, types.VerificationUnverified, got.Status)
}
