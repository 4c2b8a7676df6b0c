// Package session holds the per-conversation mutable state for the Aegis
// copilot: effective risk level, step budget, visited-domain history, the
// safe-domain allowlist, and the turn generation counter used for
// cooperative cancellation.
//
// A session is single-writer: one turn's control flow mutates it at a time.
// Asynchronous work captures the generation at dispatch and discards its
// result if the generation has moved on by the time it completes.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"

	"github.com/entrhq/aegis/pkg/types"
)

// MaxSteps is the maximum number of executed actions per user turn.
const MaxSteps = 4

// Session is the mutable context for one conversation.
type Session struct {
	mu sync.Mutex

	id         string
	riskLevel  types.RiskLevel
	stableRisk types.RiskLevel // last non-pending risk, restored on cancel
	stepCount  int
	generation uint64

	goal           string
	lastURL        string
	visitedDomains []string

	safeDomains  []string
	safeMatchers []glob.Glob

	createdAt time.Time
}

// Option configures a session.
type Option func(*Session)

// WithSafeDomains sets the safe-domain allowlist. Entries are glob patterns
// matched against normalized domains ("pge.com", "*.google.com").
func WithSafeDomains(domains []string) Option {
	return func(s *Session) {
		for _, d := range domains {
			d = strings.ToLower(strings.TrimSpace(d))
			if d == "" {
				continue
			}
			g, err := glob.Compile(d, '.')
			if err != nil {
				continue
			}
			s.safeDomains = append(s.safeDomains, d)
			s.safeMatchers = append(s.safeMatchers, g)
		}
	}
}

// New creates a session with a fresh identifier.
func New(opts ...Option) *Session {
	s := &Session{
		id:        uuid.New().String(),
		lastURL:   "about:blank",
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// BeginTurn increments the turn generation, records the user's goal, and
// resets the step counter. It returns the new generation; in-flight work
// tagged with an older generation must discard its result.
func (s *Session) BeginTurn(goal string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.goal = goal
	s.stepCount = 0
	return s.generation
}

// BumpGeneration increments the turn generation without starting a new
// planning turn. Every incoming utterance bumps it so that an in-flight
// turn's staleness checks observe the newer utterance and discard the
// remaining work.
func (s *Session) BumpGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// Generation returns the current turn generation.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// IsStale reports whether work tagged with gen belongs to a superseded turn.
func (s *Session) IsStale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.generation
}

// Goal returns the user's stated goal for the current turn.
func (s *Session) Goal() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goal
}

// StepCount returns the number of actions executed this turn.
func (s *Session) StepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepCount
}

// RecordStep increments the step counter and returns the new count. The
// caller enforces the MaxSteps bound before executing another action.
func (s *Session) RecordStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepCount++
	return s.stepCount
}

// RiskLevel returns the current effective risk level.
func (s *Session) RiskLevel() types.RiskLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.riskLevel
}

// EscalateRisk raises the effective risk level to at least level. Risk only
// escalates through this path; it never silently decreases mid-turn.
func (s *Session) EscalateRisk(level types.RiskLevel) types.RiskLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.riskLevel = s.riskLevel.Max(level)
	return s.riskLevel
}

// SetRisk sets the effective risk level directly. Used at turn boundaries
// where a fresh action legitimately starts a new assessment.
func (s *Session) SetRisk(level types.RiskLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.riskLevel = level
}

// MarkStableRisk records the current level as the value to restore if a
// pending confirmation is cancelled or expires.
func (s *Session) MarkStableRisk() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stableRisk = s.riskLevel
}

// RestoreStableRisk resets the effective level to the last non-pending
// value and returns it.
func (s *Session) RestoreStableRisk() types.RiskLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.riskLevel = s.stableRisk
	return s.riskLevel
}

// LastURL returns the browser's last known URL.
func (s *Session) LastURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastURL
}

// VisitDomain records a navigation: the URL becomes the last known URL and
// the domain is appended to the ordered visit history if it changed.
func (s *Session) VisitDomain(url, domain string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastURL = url
	if domain == "" {
		return
	}
	n := len(s.visitedDomains)
	if n == 0 || s.visitedDomains[n-1] != domain {
		s.visitedDomains = append(s.visitedDomains, domain)
	}
}

// VisitedDomains returns a copy of the ordered domain history.
func (s *Session) VisitedDomains() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.visitedDomains...)
}

// IsSafeDomain reports whether the normalized domain matches the allowlist.
func (s *Session) IsSafeDomain(domain string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	domain = strings.ToLower(strings.TrimSpace(domain))
	for _, g := range s.safeMatchers {
		if g.Match(domain) {
			return true
		}
	}
	return false
}

// SafeDomains returns the configured allowlist patterns.
func (s *Session) SafeDomains() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.safeDomains...)
}
