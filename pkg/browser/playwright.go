package browser

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/aegis/pkg/types"
)

// Default values for the Playwright controller.
const (
	DefaultTimeout        = 30000.0 // milliseconds
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// PlaywrightController drives a single Chromium session through
// Playwright. One controller serves one conversation.
type PlaywrightController struct {
	mu         sync.Mutex
	pw         *playwright.Playwright
	browser    playwright.Browser
	browserCtx playwright.BrowserContext
	page       playwright.Page
	headless   bool
	timeout    float64
	currentURL string
}

// PlaywrightOption configures the controller.
type PlaywrightOption func(*PlaywrightController)

// WithHeadless controls whether the browser runs without a window.
func WithHeadless(headless bool) PlaywrightOption {
	return func(c *PlaywrightController) {
		c.headless = headless
	}
}

// WithActionTimeout sets the default operation timeout in milliseconds.
func WithActionTimeout(ms float64) PlaywrightOption {
	return func(c *PlaywrightController) {
		c.timeout = ms
	}
}

// NewPlaywrightController creates an unstarted controller.
func NewPlaywrightController(opts ...PlaywrightOption) *PlaywrightController {
	c := &PlaywrightController{
		headless:   true,
		timeout:    DefaultTimeout,
		currentURL: "about:blank",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start installs and launches Playwright and opens a page.
func (c *PlaywrightController) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pw != nil {
		return nil
	}

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &c.headless,
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return fmt.Errorf("failed to create context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		pw.Stop()
		return fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(c.timeout)

	c.pw = pw
	c.browser = browser
	c.browserCtx = browserCtx
	c.page = page
	return nil
}

// Shutdown closes the page, context, browser, and Playwright runtime.
func (c *PlaywrightController) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pw == nil {
		return nil
	}
	_ = c.page.Close()
	_ = c.browserCtx.Close()
	_ = c.browser.Close()
	err := c.pw.Stop()
	c.pw = nil
	c.page = nil
	return err
}

// Navigate loads the URL and waits for the page to be ready.
func (c *PlaywrightController) Navigate(ctx context.Context, url string) *types.ExecutionResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page == nil {
		return failure("Navigation failed: browser not started.", c.currentURL)
	}

	_, err := c.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return failure(fmt.Sprintf("Navigation failed: %v", err), c.currentURL)
	}

	c.currentURL = c.page.URL()
	return &types.ExecutionResult{
		Success:      true,
		Message:      "Navigation complete.",
		ResultingURL: c.currentURL,
	}
}

// Act performs a natural-language instruction against the page. Only the
// two shapes the planner produces are supported: clicking an element by
// its visible text and typing a value into a labeled field.
func (c *PlaywrightController) Act(ctx context.Context, instruction string) *types.ExecutionResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page == nil {
		return failure("Action failed: browser not started.", c.currentURL)
	}

	lower := strings.ToLower(instruction)
	var err error
	switch {
	case strings.HasPrefix(lower, "click"):
		target := cleanTarget(instruction[len("click"):])
		err = c.page.Click(fmt.Sprintf("text=%s", target))

	case strings.Contains(lower, " in ") && (strings.HasPrefix(lower, "type") || strings.HasPrefix(lower, "enter")):
		value, field := splitTypeInstruction(instruction)
		err = c.page.Fill(fmt.Sprintf("[name=%q], [placeholder=%q], [aria-label=%q]", field, field, field), value)

	default:
		return failure(fmt.Sprintf("Action failed: unsupported instruction %q.", instruction), c.currentURL)
	}
	if err != nil {
		return failure(fmt.Sprintf("Action failed: %v", err), c.currentURL)
	}

	c.currentURL = c.page.URL()
	return &types.ExecutionResult{
		Success:      true,
		Message:      "Action executed.",
		ResultingURL: c.currentURL,
	}
}

// Extract reads the page's visible text, bounded to the excerpt limit.
func (c *PlaywrightController) Extract(ctx context.Context, instruction string) *types.ExecutionResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page == nil {
		return failure("Extract failed: browser not started.", c.currentURL)
	}

	text, err := c.visibleText()
	if err != nil {
		return failure(fmt.Sprintf("Extract failed: %v", err), c.currentURL)
	}

	return &types.ExecutionResult{
		Success:       true,
		Message:       "Extract complete.",
		ResultingURL:  c.currentURL,
		ExtractedData: text,
	}
}

// Snapshot captures the current page: URL, title, visible text, and form
// field descriptors, with the shared signal extraction applied.
func (c *PlaywrightController) Snapshot(ctx context.Context) (*types.PageSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page == nil {
		return nil, fmt.Errorf("%w: browser not started", ErrBrowserAction)
	}

	title, err := c.page.Title()
	if err != nil {
		title = ""
	}
	text, err := c.visibleText()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserAction, err)
	}
	fields, err := c.formFields()
	if err != nil {
		fields = nil
	}

	return BuildSnapshot(c.page.URL(), title, text, fields), nil
}

// CurrentURL returns the last known page URL.
func (c *PlaywrightController) CurrentURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentURL
}

// visibleText extracts body text. Caller must hold c.mu.
func (c *PlaywrightController) visibleText() (string, error) {
	body, err := c.page.QuerySelector("body")
	if err != nil {
		return "", fmt.Errorf("body query failed: %w", err)
	}
	if body == nil {
		return "", fmt.Errorf("no body element found")
	}
	text, err := body.TextContent()
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	if len(text) > maxExcerptLen {
		text = text[:maxExcerptLen]
	}
	return text, nil
}

// formFields lists input descriptors on the page. Caller must hold c.mu.
func (c *PlaywrightController) formFields() ([]types.FormField, error) {
	elements, err := c.page.QuerySelectorAll("input, select, textarea")
	if err != nil {
		return nil, err
	}

	var fields []types.FormField
	for _, el := range elements {
		name, _ := el.GetAttribute("name")
		fieldType, _ := el.GetAttribute("type")
		label, _ := el.GetAttribute("aria-label")
		if label == "" {
			label, _ = el.GetAttribute("placeholder")
		}
		if name == "" && label == "" {
			continue
		}
		if fieldType == "" {
			fieldType = "text"
		}
		fields = append(fields, types.FormField{
			Name:  name,
			Type:  fieldType,
			Label: label,
		})
	}
	return fields, nil
}

// cleanTarget strips filler words from a click target description.
func cleanTarget(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	for _, prefix := range []string{"the ", "on "} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimSuffix(s, " button")
	s = strings.TrimSuffix(s, " link")
	return strings.TrimSpace(s)
}

// splitTypeInstruction parses "type <value> in <field>" shapes.
func splitTypeInstruction(instruction string) (value, field string) {
	lower := strings.ToLower(instruction)
	idx := strings.LastIndex(lower, " in ")
	if idx < 0 {
		return strings.TrimSpace(instruction), ""
	}
	value = strings.TrimSpace(instruction[:idx])
	for _, prefix := range []string{"type ", "enter ", "Type ", "Enter "} {
		value = strings.TrimPrefix(value, prefix)
	}
	value = strings.Trim(value, `"'`)

	field = strings.TrimSpace(instruction[idx+len(" in "):])
	field = strings.TrimPrefix(field, "the ")
	field = strings.TrimSuffix(field, " field")
	return value, strings.TrimSpace(field)
}

func failure(message, url string) *types.ExecutionResult {
	return &types.ExecutionResult{
		Success:      false,
		Message:      message,
		ResultingURL: url,
		Error:        message,
	}
}
