package browser

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightDriver implements Driver on playwright-go. A single
// Playwright process serves all sessions; each Launch starts a fresh
// Chromium instance.
type PlaywrightDriver struct {
	pw *playwright.Playwright
}

// NewPlaywrightDriver installs the browser binaries if needed and
// starts the Playwright process. Driver output is discarded so
// Playwright chatter never interleaves with the server logs.
func NewPlaywrightDriver() (*PlaywrightDriver, error) {
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	return &PlaywrightDriver{pw: pw}, nil
}

// Launch starts a Chromium instance with the resolved configuration.
func (d *PlaywrightDriver) Launch(cfg LaunchConfig) (Browser, error) {
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	}
	if len(cfg.SandboxArgs) > 0 {
		launchOpts.Args = cfg.SandboxArgs
	}

	b, err := d.pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return &playwrightBrowser{browser: b}, nil
}

// Close stops the Playwright process.
func (d *PlaywrightDriver) Close() error {
	if err := d.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

type playwrightBrowser struct {
	browser playwright.Browser
	context playwright.BrowserContext
}

func (b *playwrightBrowser) NewPage() (Page, error) {
	context, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	b.context = context
	return &playwrightPage{page: page, browser: b.browser}, nil
}

func (b *playwrightBrowser) Close() error {
	if b.context != nil {
		_ = b.context.Close() // ignore errors, continue cleanup
	}
	return b.browser.Close()
}

type playwrightPage struct {
	page    playwright.Page
	browser playwright.Browser
}

func ms(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

// classify wraps a driver failure with a taxonomy code, marking it
// fatal when the browser connection itself is gone.
func (p *playwrightPage) classify(code Code, err error) error {
	cerr := NewError(code, err)
	if !p.browser.IsConnected() || p.page.IsClosed() {
		cerr.Fatal = true
	}
	return cerr
}

// ensureElement distinguishes a missing element from a slow one:
// absent right now is element_not_found, present but not actionable
// before the deadline is action_timeout.
func (p *playwrightPage) ensureElement(selector string, timeout time.Duration) error {
	state := playwright.WaitForSelectorState("visible")
	_, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   &state,
		Timeout: playwright.Float(ms(timeout)),
	})
	if err == nil {
		return nil
	}

	element, qerr := p.page.QuerySelector(selector)
	if qerr == nil && element == nil {
		return p.classify(CodeElementNotFound, fmt.Errorf("no element matches selector %q", selector))
	}
	return p.classify(CodeActionTimeout, err)
}

func (p *playwrightPage) Navigate(url string, timeout time.Duration) error {
	waitUntil := playwright.WaitUntilState("load")
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: &waitUntil,
		Timeout:   playwright.Float(ms(timeout)),
	})
	if err != nil {
		return p.classify(CodeNavigation, err)
	}
	return nil
}

func (p *playwrightPage) Click(selector string, timeout time.Duration) error {
	if err := p.ensureElement(selector, timeout); err != nil {
		return err
	}
	err := p.page.Click(selector, playwright.PageClickOptions{
		Timeout: playwright.Float(ms(timeout)),
	})
	if err != nil {
		return p.classify(CodeActionTimeout, err)
	}
	return nil
}

func (p *playwrightPage) Type(selector, text string, timeout time.Duration) error {
	if err := p.ensureElement(selector, timeout); err != nil {
		return err
	}
	err := p.page.Fill(selector, text, playwright.PageFillOptions{
		Timeout: playwright.Float(ms(timeout)),
	})
	if err != nil {
		return p.classify(CodeActionTimeout, err)
	}
	return nil
}

func (p *playwrightPage) Scroll(direction ScrollDirection, pixels int) error {
	var expr string
	switch direction {
	case ScrollUp:
		expr = fmt.Sprintf("window.scrollBy(0, -%d)", pixels)
	case ScrollDown:
		expr = fmt.Sprintf("window.scrollBy(0, %d)", pixels)
	case ScrollLeft:
		expr = fmt.Sprintf("window.scrollBy(-%d, 0)", pixels)
	case ScrollRight:
		expr = fmt.Sprintf("window.scrollBy(%d, 0)", pixels)
	default:
		return fmt.Errorf("unsupported scroll direction %q", direction)
	}

	if _, err := p.page.Evaluate(expr); err != nil {
		return p.classify(CodeActionTimeout, err)
	}
	return nil
}

func (p *playwrightPage) WaitFor(selector string, timeout time.Duration) error {
	return p.ensureElement(selector, timeout)
}

func (p *playwrightPage) Extract(selector, attribute string) ([]string, error) {
	elements, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, p.classify(CodeElementNotFound, err)
	}

	values := make([]string, 0, len(elements))
	for _, element := range elements {
		var value string
		var verr error
		if attribute == "" || attribute == "text" {
			value, verr = element.TextContent()
		} else {
			value, verr = element.GetAttribute(attribute)
		}
		if verr != nil {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			values = append(values, value)
		}
	}
	return values, nil
}

func (p *playwrightPage) Screenshot() ([]byte, error) {
	img, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return nil, p.classify(CodeCapture, err)
	}
	return img, nil
}

func (p *playwrightPage) Title() (string, error) {
	title, err := p.page.Title()
	if err != nil {
		return "", p.classify(CodeCapture, err)
	}
	return title, nil
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}
