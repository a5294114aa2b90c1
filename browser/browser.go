// Package browser is the boundary between the buyer's sequential logic
// and the underlying browser automation. Everything above it works on
// these interfaces only, so it can run against a fake in tests.
package browser

import (
	"context"
	"time"
)

// Browser creates isolated browsing contexts (tabs).
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
}

// Page is one isolated, navigable browsing context.
//
// Query returns (nil, nil) when no element matches; QueryAll returns an
// empty slice. Both only fail on transport-level errors.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	Location(ctx context.Context) (string, error)

	Query(ctx context.Context, selector string) (Element, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error

	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	WaitHidden(ctx context.Context, selector string, timeout time.Duration) error
	// WaitNavigation blocks until the page's location differs from
	// from, or the timeout expires.
	WaitNavigation(ctx context.Context, from string, timeout time.Duration) error

	Screenshot(ctx context.Context) ([]byte, error)
	HTML(ctx context.Context) (string, error)
	PDF(ctx context.Context) ([]byte, error)

	// Close releases the browsing context. Idempotent.
	Close() error
}

// Element is a handle to one rendered DOM element. Handles are only
// valid for the lifetime of the render that produced them; a page
// reload invalidates every handle obtained before it.
type Element interface {
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
	Click(ctx context.Context) error

	Query(ctx context.Context, selector string) (Element, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
}
