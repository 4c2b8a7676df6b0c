// Package oracle resolves a claimed service name ("PG&E", "Chase") to its
// canonical registrable domain. The Client queries a neural search API for
// the service's official website and takes the top result's domain; the
// Static oracle serves a fixed registry for offline operation and tests.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/aegis/pkg/verify"
)

// DefaultBaseURL is the search API endpoint queried for official sites.
const DefaultBaseURL = "https://api.exa.ai"

// Client implements verify.Oracle against a neural search API. For each
// claimed service it searches "<service> official website" and returns the
// registrable domain of the top result.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	numResults int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different search endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a search-backed oracle.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("oracle API key is required")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		numResults: 5,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type searchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"numResults"`
	Type       string `json:"type"`
}

type searchResponse struct {
	Results []struct {
		URL string `json:"url"`
	} `json:"results"`
}

// Lookup returns the canonical registrable domain for the service.
// Deadline overruns are reported as verify.ErrOracleTimeout so the
// verification overlay degrades to unverified instead of failing.
func (c *Client) Lookup(ctx context.Context, serviceName string) (string, error) {
	query := fmt.Sprintf("%s official website", serviceName)
	body, err := json.Marshal(searchRequest{
		Query:      query,
		NumResults: c.numResults,
		Type:       "neural",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", verify.ErrOracleTimeout, err)
		}
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("search request failed with status %d: %s", resp.StatusCode, string(msg))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("malformed search response: %w", err)
	}

	for _, result := range parsed.Results {
		if domain := verify.NormalizeDomain(result.URL); domain != "" {
			return domain, nil
		}
	}
	return "", fmt.Errorf("no domain found for service %q", serviceName)
}

// Static is an in-memory oracle backed by a fixed service registry. Keys
// are matched case-insensitively.
type Static struct {
	mu      sync.RWMutex
	domains map[string]string
}

// NewStatic creates a static oracle from a service-to-domain registry.
func NewStatic(registry map[string]string) *Static {
	domains := make(map[string]string, len(registry))
	for name, domain := range registry {
		domains[strings.ToLower(strings.TrimSpace(name))] = verify.NormalizeDomain(domain)
	}
	return &Static{domains: domains}
}

// Register adds or replaces a service entry.
func (s *Static) Register(serviceName, domain string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains[strings.ToLower(strings.TrimSpace(serviceName))] = verify.NormalizeDomain(domain)
}

// Lookup returns the registered domain for the service.
func (s *Static) Lookup(ctx context.Context, serviceName string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	domain, ok := s.domains[strings.ToLower(strings.TrimSpace(serviceName))]
	if !ok || domain == "" {
		return "", fmt.Errorf("no registry entry for service %q", serviceName)
	}
	return domain, nil
}
