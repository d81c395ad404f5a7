package browser_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/browserd/pkg/browser"
	"github.com/entrhq/browserd/pkg/browser/browsertest"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestManager(t *testing.T, driver *browsertest.Driver, opts browser.Options) *browser.Manager {
	t.Helper()
	resolver := browser.NewResolverWithLookup(func(string) (string, bool) { return "", false }, true)
	return browser.NewManager(driver, resolver, opts, testLogger())
}

func TestManager_CreateAndGet(t *testing.T) {
	driver := &browsertest.Driver{}
	manager := newTestManager(t, driver, browser.Options{})

	sess, err := manager.Create(context.Background(), "https://example.com", nil, 0)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, browser.StateActive, sess.State())
	assert.True(t, sess.Headless)
	assert.Equal(t, "https://example.com", sess.CurrentURL())

	got, err := manager.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestManager_GetUnknown(t *testing.T) {
	manager := newTestManager(t, &browsertest.Driver{}, browser.Options{})

	_, err := manager.Get("nonexistent")
	assert.True(t, browser.IsCode(err, browser.CodeSessionNotFound))
}

func TestManager_CreateLaunchFailure(t *testing.T) {
	driver := &browsertest.Driver{LaunchErr: errors.New("no chromium executable")}
	manager := newTestManager(t, driver, browser.Options{})

	_, err := manager.Create(context.Background(), "https://example.com", nil, 0)
	require.Error(t, err)
	assert.True(t, browser.IsCode(err, browser.CodeLaunchFailure))
	assert.Equal(t, 0, manager.Len())
}

func TestManager_CreateNavigationFailureTearsDown(t *testing.T) {
	driver := &browsertest.Driver{NavigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	manager := newTestManager(t, driver, browser.Options{})

	_, err := manager.Create(context.Background(), "https://unreachable.invalid", nil, 0)
	require.Error(t, err)
	assert.True(t, browser.IsCode(err, browser.CodeNavigation))
	assert.Equal(t, 0, manager.Len())

	// The just-launched handles were released.
	pages := driver.Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].CloseCount())
}

func TestManager_MaxSessions(t *testing.T) {
	driver := &browsertest.Driver{}
	manager := newTestManager(t, driver, browser.Options{MaxSessions: 2})

	_, err := manager.Create(context.Background(), "https://a.test", nil, 0)
	require.NoError(t, err)
	_, err = manager.Create(context.Background(), "https://b.test", nil, 0)
	require.NoError(t, err)

	_, err = manager.Create(context.Background(), "https://c.test", nil, 0)
	require.Error(t, err)
	assert.True(t, browser.IsCode(err, browser.CodeLaunchFailure))
	assert.Equal(t, 2, manager.Len())
}

func TestManager_HeadlessPreferencePassedToDriver(t *testing.T) {
	driver := &browsertest.Driver{}
	manager := newTestManager(t, driver, browser.Options{})

	headful := false
	sess, err := manager.Create(context.Background(), "https://example.com", &headful, 0)
	require.NoError(t, err)
	assert.False(t, sess.Headless)

	launches := driver.Launches()
	require.Len(t, launches, 1)
	assert.False(t, launches[0].Headless)
	assert.Empty(t, launches[0].SandboxArgs)
}

func TestManager_List(t *testing.T) {
	driver := &browsertest.Driver{}
	manager := newTestManager(t, driver, browser.Options{})

	first, err := manager.Create(context.Background(), "https://a.test", nil, 0)
	require.NoError(t, err)
	second, err := manager.Create(context.Background(), "https://b.test", nil, 0)
	require.NoError(t, err)

	summaries := manager.List()
	require.Len(t, summaries, 2)

	byID := make(map[string]browser.SessionSummary, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = s
	}
	assert.Equal(t, "https://a.test", byID[first.ID].URL)
	assert.Equal(t, "https://b.test", byID[second.ID].URL)
	assert.Equal(t, "active", byID[first.ID].State)
	assert.False(t, byID[first.ID].LastUsedAt.IsZero())
}

func TestManager_CloseSessionRemovesAndReleasesOnce(t *testing.T) {
	driver := &browsertest.Driver{}
	manager := newTestManager(t, driver, browser.Options{})

	sess, err := manager.Create(context.Background(), "https://example.com", nil, 0)
	require.NoError(t, err)

	require.NoError(t, manager.CloseSession(context.Background(), sess.ID))
	assert.Equal(t, browser.StateClosed, sess.State())
	assert.Empty(t, manager.List())

	// Closing again is a no-op, not an error.
	require.NoError(t, manager.CloseSession(context.Background(), sess.ID))

	pages := driver.Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].CloseCount())

	_, err = manager.Get(sess.ID)
	assert.True(t, browser.IsCode(err, browser.CodeSessionNotFound))
}

func TestManager_ConcurrentCloseReleasesHandlesExactlyOnce(t *testing.T) {
	driver := &browsertest.Driver{}
	manager := newTestManager(t, driver, browser.Options{})

	sess, err := manager.Create(context.Background(), "https://example.com", nil, 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = manager.CloseSession(context.Background(), sess.ID)
		}()
	}
	wg.Wait()

	pages := driver.Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].CloseCount())
	assert.Equal(t, 0, manager.Len())
}

func TestManager_CloseSessionAcksWhenDrainExpires(t *testing.T) {
	driver := &browsertest.Driver{ActionDelay: 100 * time.Millisecond}
	manager := newTestManager(t, driver, browser.Options{})
	dispatcher := browser.NewDispatcher(manager, testLogger())

	sess, err := manager.Create(context.Background(), "https://example.com", nil, 0)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- dispatcher.WaitFor(context.Background(), sess.ID, "#content", time.Second)
	}()
	time.Sleep(20 * time.Millisecond)

	// The drain context expires while the action still holds the lock.
	// Close acks anyway and the session is gone.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.NoError(t, manager.CloseSession(ctx, sess.ID))

	assert.Equal(t, browser.StateClosed, sess.State())
	_, err = manager.Get(sess.ID)
	assert.True(t, browser.IsCode(err, browser.CodeSessionNotFound))
	<-done
}

func TestManager_SweepReclaimsIdleSessions(t *testing.T) {
	driver := &browsertest.Driver{}
	manager := newTestManager(t, driver, browser.Options{IdleTimeout: 20 * time.Millisecond})

	sess, err := manager.Create(context.Background(), "https://example.com", nil, 0)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, manager.Sweep())

	assert.Equal(t, browser.StateClosed, sess.State())
	assert.Empty(t, manager.List())
	_, err = manager.Get(sess.ID)
	assert.True(t, browser.IsCode(err, browser.CodeSessionNotFound))
}

func TestManager_SweepSkipsFreshSessions(t *testing.T) {
	driver := &browsertest.Driver{}
	manager := newTestManager(t, driver, browser.Options{IdleTimeout: time.Hour})

	_, err := manager.Create(context.Background(), "https://example.com", nil, 0)
	require.NoError(t, err)

	assert.Equal(t, 0, manager.Sweep())
	assert.Equal(t, 1, manager.Len())
}

func TestManager_SweepSkipsSessionMidAction(t *testing.T) {
	driver := &browsertest.Driver{ActionDelay: 100 * time.Millisecond}
	manager := newTestManager(t, driver, browser.Options{IdleTimeout: time.Nanosecond})
	dispatcher := browser.NewDispatcher(manager, testLogger())

	sess, err := manager.Create(context.Background(), "https://example.com", nil, 0)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- dispatcher.WaitFor(context.Background(), sess.ID, "#content", time.Second)
	}()

	// Give the action time to take the session lock, then sweep while
	// it is mid-flight.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, manager.Sweep())
	assert.Equal(t, browser.StateActive, sess.State())

	require.NoError(t, <-done)
}

func TestManager_ShutdownClosesEverything(t *testing.T) {
	driver := &browsertest.Driver{}
	manager := newTestManager(t, driver, browser.Options{})

	for _, url := range []string{"https://a.test", "https://b.test", "https://c.test"} {
		_, err := manager.Create(context.Background(), url, nil, 0)
		require.NoError(t, err)
	}

	manager.Shutdown(context.Background())
	assert.Equal(t, 0, manager.Len())
	for _, page := range driver.Pages() {
		assert.Equal(t, 1, page.CloseCount())
	}
}
