package browser

import "time"

// Driver is the capability surface the session manager requires from a
// browser automation library. Keeping it narrow lets the lifecycle and
// concurrency core run against a fake driver in tests.
type Driver interface {
	// Launch starts a fresh browser instance with the resolved
	// configuration.
	Launch(cfg LaunchConfig) (Browser, error)

	// Close stops the driver process itself. Sessions must be closed
	// first.
	Close() error
}

// Browser is one launched browser instance, exclusively owned by a
// single session.
type Browser interface {
	// NewPage opens the session's page. One active page per session.
	NewPage() (Page, error)

	// Close releases the browser instance.
	Close() error
}

// ScrollDirection names a scroll axis and sign.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// Page is the single page owned by a session. Implementations return
// errors already classified with the package taxonomy, marking them
// fatal when the browser connection is gone.
type Page interface {
	Navigate(url string, timeout time.Duration) error
	Click(selector string, timeout time.Duration) error
	Type(selector, text string, timeout time.Duration) error
	Scroll(direction ScrollDirection, pixels int) error
	WaitFor(selector string, timeout time.Duration) error
	Extract(selector, attribute string) ([]string, error)
	Screenshot() ([]byte, error)
	Title() (string, error)
	URL() string
	Close() error
}
