// Package browser drives the real browser on behalf of the loop: navigate,
// in-page actions, content extraction, and page snapshot capture for the
// deep risk classifier.
//
// Two controllers are provided: a Playwright-backed one for real sessions
// and a deterministic stub used when no browser engine is available and in
// tests. Both capture immutable PageSnapshots with the same signal
// extraction rules.
package browser

import (
	"context"
	"errors"

	"github.com/entrhq/aegis/pkg/types"
)

// ErrBrowserAction indicates a browser action failed. The step is aborted
// and reported; the controller retries at most once per action.
var ErrBrowserAction = errors.New("browser action failed")

// Controller performs browser actions and captures page snapshots.
type Controller interface {
	// Start brings up the browser engine.
	Start(ctx context.Context) error

	// Shutdown tears the browser down.
	Shutdown(ctx context.Context) error

	// Navigate loads a URL.
	Navigate(ctx context.Context, url string) *types.ExecutionResult

	// Act performs a natural-language in-page interaction.
	Act(ctx context.Context, instruction string) *types.ExecutionResult

	// Extract reads page content per the instruction.
	Extract(ctx context.Context, instruction string) *types.ExecutionResult

	// Snapshot captures the current page state. The returned snapshot
	// is immutable; a later action produces a new snapshot.
	Snapshot(ctx context.Context) (*types.PageSnapshot, error)

	// CurrentURL returns the last known page URL.
	CurrentURL() string
}
