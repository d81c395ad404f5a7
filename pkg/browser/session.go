package browser

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Session wraps one browser instance and its single page. The session
// exclusively owns both handles and releases them exactly once, on
// close. A per-session lock serializes actions: at most one action is
// in flight per session, while actions on different sessions run
// concurrently.
//
// All action methods assume the caller holds the session lock for
// their full duration; the Dispatcher is the component that acquires
// it. State, last-activity and current-URL metadata are atomic so
// listing can read them without the lock.
type Session struct {
	// ID is the opaque unique token addressing this session. Never
	// reused.
	ID string

	// Headless records the resolved headless flag the browser was
	// launched with.
	Headless bool

	// CreatedAt is when the session was created.
	CreatedAt time.Time

	browser Browser
	page    Page

	state    atomic.Int32
	lastUsed atomic.Int64 // unix nanoseconds
	url      atomic.Value // string

	lock      *semaphore.Weighted
	closeOnce sync.Once
}

func newSession(id string, b Browser, p Page, headless bool) *Session {
	s := &Session{
		ID:        id,
		Headless:  headless,
		CreatedAt: time.Now(),
		browser:   b,
		page:      p,
		lock:      semaphore.NewWeighted(1),
	}
	s.state.Store(int32(StateCreated))
	s.url.Store("about:blank")
	s.touch()
	return s
}

// acquire blocks until the session lock is granted or ctx expires.
func (s *Session) acquire(ctx context.Context) error {
	return s.lock.Acquire(ctx, 1)
}

// tryAcquire grabs the session lock only if it is free. Used by the
// idle sweep so a session mid-action is skipped, never force-closed.
func (s *Session) tryAcquire() bool {
	return s.lock.TryAcquire(1)
}

func (s *Session) release() {
	s.lock.Release(1)
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// LastUsedAt returns the timestamp of the last successful action.
func (s *Session) LastUsedAt() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// CurrentURL returns the last observed page URL.
func (s *Session) CurrentURL() string {
	return s.url.Load().(string)
}

func (s *Session) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// activate transitions Created -> Active once the first navigation has
// succeeded.
func (s *Session) activate() {
	s.state.CompareAndSwap(int32(StateCreated), int32(StateActive))
}

func (s *Session) requireOpen() error {
	if s.State() == StateClosed {
		return Errorf(CodeSessionClosed, "session %s is closed", s.ID)
	}
	return nil
}

// Navigate loads url in the session's page.
func (s *Session) Navigate(url string, timeout time.Duration) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if err := s.page.Navigate(url, timeout); err != nil {
		return err
	}
	s.url.Store(s.page.URL())
	s.touch()
	return nil
}

// Click clicks the first element matching selector.
func (s *Session) Click(selector string, timeout time.Duration) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if err := s.page.Click(selector, timeout); err != nil {
		return err
	}
	// A click may have triggered navigation.
	s.url.Store(s.page.URL())
	s.touch()
	return nil
}

// Type fills the element matching selector with text.
func (s *Session) Type(selector, text string, timeout time.Duration) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if err := s.page.Type(selector, text, timeout); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Scroll scrolls the page by pixels in the given direction.
func (s *Session) Scroll(direction ScrollDirection, pixels int) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if err := s.page.Scroll(direction, pixels); err != nil {
		return err
	}
	s.touch()
	return nil
}

// WaitFor waits until an element matching selector is present.
func (s *Session) WaitFor(selector string, timeout time.Duration) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if err := s.page.WaitFor(selector, timeout); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Sleep pauses for d without driving the page, for clients that want a
// fixed settling delay between actions. Counts as activity.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.touch()
	return nil
}

// Extract returns the text content, or the named attribute, of every
// element matching selector.
func (s *Session) Extract(selector, attribute string) ([]string, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	values, err := s.page.Extract(selector, attribute)
	if err != nil {
		return nil, err
	}
	s.touch()
	return values, nil
}

// Screenshot captures the full page as PNG bytes. Does not mutate page
// state.
func (s *Session) Screenshot() ([]byte, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	img, err := s.page.Screenshot()
	if err != nil {
		return nil, err
	}
	s.touch()
	return img, nil
}

// Info returns current page metadata. Read-only; permitted in any
// non-closed state.
func (s *Session) Info() (PageInfo, error) {
	if err := s.requireOpen(); err != nil {
		return PageInfo{}, err
	}
	title, err := s.page.Title()
	if err != nil {
		return PageInfo{}, err
	}
	info := PageInfo{Title: title, URL: s.page.URL()}
	s.touch()
	return info, nil
}

// Close transitions the session to Closed and releases the page and
// browser handles exactly once. Idempotent: closing an already-closed
// session is a no-op. Close never depends on the outcome of a prior
// action, so a poisoned session can always be torn down.
func (s *Session) Close() {
	s.state.Store(int32(StateClosed))
	s.closeOnce.Do(func() {
		_ = s.page.Close()    // ignore errors, continue cleanup
		_ = s.browser.Close() // ignore errors, continue cleanup
	})
}
