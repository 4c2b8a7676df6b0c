package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/entrhq/aegis/pkg/types"
)

// StubController is a deterministic in-memory controller used when no
// browser engine is configured, and by tests. It tracks the current URL
// and serves canned page text per URL.
type StubController struct {
	mu         sync.Mutex
	currentURL string
	pages      map[string]StubPage
	started    bool
}

// StubPage is the canned content the stub serves for a URL.
type StubPage struct {
	Title      string
	Text       string
	FormFields []types.FormField
}

// NewStubController creates a stub starting at about:blank.
func NewStubController() *StubController {
	return &StubController{
		currentURL: "about:blank",
		pages:      make(map[string]StubPage),
	}
}

// SetPage registers canned content for a URL.
func (c *StubController) SetPage(url string, page StubPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[url] = page
}

// Start marks the stub as running.
func (c *StubController) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	return nil
}

// Shutdown stops the stub.
func (c *StubController) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
	return nil
}

// Navigate records the URL as current.
func (c *StubController) Navigate(ctx context.Context, url string) *types.ExecutionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentURL = url
	return &types.ExecutionResult{
		Success:      true,
		Message:      "Navigation complete.",
		ResultingURL: url,
	}
}

// Act pretends to perform the instruction.
func (c *StubController) Act(ctx context.Context, instruction string) *types.ExecutionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &types.ExecutionResult{
		Success:      true,
		Message:      fmt.Sprintf("Action executed: %s", instruction),
		ResultingURL: c.currentURL,
	}
}

// Extract returns the canned page text.
func (c *StubController) Extract(ctx context.Context, instruction string) *types.ExecutionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	page := c.pages[c.currentURL]
	return &types.ExecutionResult{
		Success:       true,
		Message:       "Extract complete.",
		ResultingURL:  c.currentURL,
		ExtractedData: page.Text,
	}
}

// Snapshot captures the canned page state for the current URL.
func (c *StubController) Snapshot(ctx context.Context) (*types.PageSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	page := c.pages[c.currentURL]
	return BuildSnapshot(c.currentURL, page.Title, page.Text, page.FormFields), nil
}

// CurrentURL returns the stub's current URL.
func (c *StubController) CurrentURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentURL
}
