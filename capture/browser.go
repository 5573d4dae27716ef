package capture

import (
	"context"

	"github.com/hazyhaar/hyperaide-sync/cookie"
)

// Launcher starts an isolated, visible browser.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a launched browser as seen by the Controller. Implementations
// must start delivering navigations as soon as Launch returns, for every page
// of the session including the ones the user opens by hand.
type Browser interface {
	// Navigate loads url in the first page and waits for the document.
	Navigate(ctx context.Context, url string) error

	// SetContent replaces the first page's document with html.
	SetContent(html string) error

	// Navigations delivers the URL of every top-level frame navigation.
	Navigations() <-chan string

	// Finished is closed when a page script asks to end the session.
	Finished() <-chan struct{}

	// PageCount returns the number of open pages. An error means the
	// browser is no longer reachable.
	PageCount() (int, error)

	// Cookies reads the complete live cookie jar.
	Cookies() ([]cookie.Cookie, error)

	// Close shuts the browser down. It must tolerate an already closed
	// or crashed browser.
	Close() error
}
