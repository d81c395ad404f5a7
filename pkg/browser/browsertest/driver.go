// Package browsertest provides an in-memory Driver implementation so
// the session manager's lifecycle and concurrency behavior can be
// exercised without launching real browsers.
package browsertest

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/entrhq/browserd/pkg/browser"
)

// Driver is a fake browser.Driver. The zero value is usable; configure
// the exported fields before launching sessions.
type Driver struct {
	// LaunchErr, when set, fails every Launch.
	LaunchErr error

	// NavigateErr, when set, fails every navigation.
	NavigateErr error

	// CaptureErr, when set, fails every screenshot.
	CaptureErr error

	// Titles maps a URL to the title reported after navigating to it.
	// Unknown URLs report "Fake Page".
	Titles map[string]string

	// Missing lists selectors that resolve to zero elements.
	Missing map[string]bool

	// Slow lists selectors whose wait always exceeds the timeout.
	Slow map[string]bool

	// ExtractData maps selector to the values Extract returns.
	ExtractData map[string][]string

	// ActionDelay is slept inside every page call, to make lock
	// contention observable in tests.
	ActionDelay time.Duration

	mu       sync.Mutex
	launches []browser.LaunchConfig
	pages    []*Page
}

var _ browser.Driver = (*Driver)(nil)

// Launch records the resolved config and hands out a fake browser.
func (d *Driver) Launch(cfg browser.LaunchConfig) (browser.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.LaunchErr != nil {
		return nil, d.LaunchErr
	}
	d.launches = append(d.launches, cfg)
	return &Browser{driver: d}, nil
}

func (d *Driver) Close() error { return nil }

// Launches returns the launch configs seen so far.
func (d *Driver) Launches() []browser.LaunchConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]browser.LaunchConfig(nil), d.launches...)
}

// Pages returns every page created across all launches, in creation
// order.
func (d *Driver) Pages() []*Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Page(nil), d.pages...)
}

// Browser is a fake browser instance.
type Browser struct {
	driver     *Driver
	closeCount atomic.Int32
}

func (b *Browser) NewPage() (browser.Page, error) {
	p := &Page{driver: b.driver}
	p.url.Store("about:blank")

	b.driver.mu.Lock()
	b.driver.pages = append(b.driver.pages, p)
	b.driver.mu.Unlock()
	return p, nil
}

func (b *Browser) Close() error {
	b.closeCount.Add(1)
	return nil
}

// CloseCount reports how many times the browser handle was released.
func (b *Browser) CloseCount() int {
	return int(b.closeCount.Load())
}

// Page is a fake page. It tracks concurrent entry so tests can assert
// the session lock's mutual exclusion, and can be crashed to simulate
// a dead browser.
type Page struct {
	driver *Driver

	url        atomic.Value // string
	closeCount atomic.Int32
	crashed    atomic.Bool
	inFlight   atomic.Int32
	raced      atomic.Bool
}

var _ browser.Page = (*Page)(nil)

// Crash makes every subsequent action fail fatally, as if the browser
// process died.
func (p *Page) Crash() {
	p.crashed.Store(true)
}

// Raced reports whether two actions were ever in flight on this page
// at the same time.
func (p *Page) Raced() bool {
	return p.raced.Load()
}

// CloseCount reports how many times the page handle was released.
func (p *Page) CloseCount() int {
	return int(p.closeCount.Load())
}

func (p *Page) enter() error {
	if p.inFlight.Add(1) > 1 {
		p.raced.Store(true)
	}
	if d := p.driver.ActionDelay; d > 0 {
		time.Sleep(d)
	}
	if p.crashed.Load() {
		return browser.NewFatalError(browser.CodeActionTimeout, errors.New("browser connection lost"))
	}
	return nil
}

func (p *Page) exit() {
	p.inFlight.Add(-1)
}

func (p *Page) Navigate(url string, timeout time.Duration) error {
	if err := p.enter(); err != nil {
		p.exit()
		return err
	}
	defer p.exit()

	if p.driver.NavigateErr != nil {
		return browser.NewError(browser.CodeNavigation, p.driver.NavigateErr)
	}
	p.url.Store(url)
	return nil
}

func (p *Page) checkSelector(selector string) error {
	if p.driver.Missing[selector] {
		return browser.Errorf(browser.CodeElementNotFound, "no element matches selector %q", selector)
	}
	if p.driver.Slow[selector] {
		return browser.Errorf(browser.CodeActionTimeout, "timed out waiting for selector %q", selector)
	}
	return nil
}

func (p *Page) Click(selector string, timeout time.Duration) error {
	if err := p.enter(); err != nil {
		p.exit()
		return err
	}
	defer p.exit()
	return p.checkSelector(selector)
}

func (p *Page) Type(selector, text string, timeout time.Duration) error {
	if err := p.enter(); err != nil {
		p.exit()
		return err
	}
	defer p.exit()
	return p.checkSelector(selector)
}

func (p *Page) Scroll(direction browser.ScrollDirection, pixels int) error {
	if err := p.enter(); err != nil {
		p.exit()
		return err
	}
	defer p.exit()

	switch direction {
	case browser.ScrollUp, browser.ScrollDown, browser.ScrollLeft, browser.ScrollRight:
		return nil
	default:
		return fmt.Errorf("unsupported scroll direction %q", direction)
	}
}

func (p *Page) WaitFor(selector string, timeout time.Duration) error {
	if err := p.enter(); err != nil {
		p.exit()
		return err
	}
	defer p.exit()
	return p.checkSelector(selector)
}

func (p *Page) Extract(selector, attribute string) ([]string, error) {
	if err := p.enter(); err != nil {
		p.exit()
		return nil, err
	}
	defer p.exit()

	return append([]string(nil), p.driver.ExtractData[selector]...), nil
}

func (p *Page) Screenshot() ([]byte, error) {
	if err := p.enter(); err != nil {
		p.exit()
		return nil, err
	}
	defer p.exit()

	if p.driver.CaptureErr != nil {
		return nil, browser.NewError(browser.CodeCapture, p.driver.CaptureErr)
	}
	return []byte("fake-png"), nil
}

func (p *Page) Title() (string, error) {
	if err := p.enter(); err != nil {
		p.exit()
		return "", err
	}
	defer p.exit()

	if title, ok := p.driver.Titles[p.URL()]; ok {
		return title, nil
	}
	return "Fake Page", nil
}

func (p *Page) URL() string {
	return p.url.Load().(string)
}

func (p *Page) Close() error {
	p.closeCount.Add(1)
	return nil
}
