package browser

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Manager owns the id->session mapping: creation, lookup, enumeration
// and disposal. The registry lock guards only the map itself and is
// never held across a browser action, so registry mutations never
// block on a long-running action in an unrelated session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	driver   Driver
	resolver *Resolver
	opts     Options
	log      logrus.FieldLogger
}

// NewManager builds a session manager on the given driver and launch
// resolver.
func NewManager(driver Driver, resolver *Resolver, opts Options, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		driver:   driver,
		resolver: resolver,
		opts:     opts.withDefaults(),
		log:      log,
	}
}

// Create launches a browser, navigates it to url and registers the
// resulting session in Active state. Creation and first navigation are
// atomic from the caller's view: a navigation failure tears the
// just-launched browser down and registers nothing. Launch failures
// propagate as launch_failure without retry; they are typically
// environment-fatal, not transient.
func (m *Manager) Create(ctx context.Context, url string, requestedHeadless *bool, timeout time.Duration) (*Session, error) {
	m.mu.RLock()
	full := len(m.sessions) >= m.opts.MaxSessions
	m.mu.RUnlock()
	if full {
		return nil, Errorf(CodeLaunchFailure, "maximum number of sessions (%d) reached", m.opts.MaxSessions)
	}
	if timeout <= 0 {
		timeout = m.opts.NavTimeout
	}

	cfg := m.resolver.Resolve(requestedHeadless)
	b, err := m.driver.Launch(cfg)
	if err != nil {
		return nil, NewError(CodeLaunchFailure, err)
	}
	p, err := b.NewPage()
	if err != nil {
		_ = b.Close()
		return nil, NewError(CodeLaunchFailure, err)
	}

	sess := newSession(uuid.NewString(), b, p, cfg.Headless)
	if err := sess.Navigate(url, timeout); err != nil {
		sess.Close()
		if CodeOf(err) == "" {
			err = NewError(CodeNavigation, err)
		}
		return nil, err
	}
	sess.activate()

	// The limit is re-checked at insert; the registry lock is never
	// held across the launch above.
	m.mu.Lock()
	if len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		sess.Close()
		return nil, Errorf(CodeLaunchFailure, "maximum number of sessions (%d) reached", m.opts.MaxSessions)
	}
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	metricSessionsStarted.Inc()
	metricActiveSessions.Inc()
	m.log.WithFields(logrus.Fields{
		"session":  sess.ID,
		"url":      url,
		"headless": cfg.Headless,
	}).Info("session started")
	return sess, nil
}

// Get returns the session for id, or session_not_found if the id is
// unknown or already disposed.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, Errorf(CodeSessionNotFound, "session %q not found", id)
	}
	return sess, nil
}

// List returns a snapshot of all live sessions. Reads only atomic
// metadata, so it never blocks on an individual session's lock.
func (m *Manager) List() []SessionSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]SessionSummary, 0, len(m.sessions))
	for _, sess := range m.sessions {
		summaries = append(summaries, SessionSummary{
			ID:         sess.ID,
			URL:        sess.CurrentURL(),
			State:      sess.State().String(),
			Headless:   sess.Headless,
			CreatedAt:  sess.CreatedAt,
			LastUsedAt: sess.LastUsedAt(),
		})
	}
	return summaries
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Remove drops the registry entry for id. Idempotent. Callers must
// have released the session's handles first: the entry is removed only
// after close.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		metricActiveSessions.Dec()
	}
}

// CloseSession closes a session and removes it from the registry.
// Unknown ids are a no-op: close is idempotent from the client's view.
// The call queues on the session lock so that an in-flight action
// finishes first; if ctx expires while queued the session is closed
// anyway, so close itself never fails.
func (m *Manager) CloseSession(ctx context.Context, id string) error {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	acquired := sess.acquire(ctx) == nil
	if !acquired {
		m.log.WithField("session", id).Warn("closing session without draining its in-flight action")
	}
	sess.Close()
	if acquired {
		sess.release()
	}
	m.Remove(id)

	metricSessionsClosed.WithLabelValues("explicit").Inc()
	m.log.WithField("session", id).Info("session closed")
	return nil
}

// Sweep closes and removes sessions idle past the configured
// threshold. The idle check runs under the same per-session lock an
// action would hold, so a session mid-action is simply skipped and
// never force-closed underneath a request. Returns the number of
// sessions reclaimed.
func (m *Manager) Sweep() int {
	m.mu.RLock()
	candidates := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		candidates = append(candidates, sess)
	}
	m.mu.RUnlock()

	cutoff := time.Now().Add(-m.opts.IdleTimeout)
	reclaimed := 0
	for _, sess := range candidates {
		if sess.LastUsedAt().After(cutoff) {
			continue
		}
		if !sess.tryAcquire() {
			// Mid-action; the activity timestamp will move anyway.
			continue
		}
		// Re-check under the lock: the action that just released it
		// may have touched the session.
		if sess.State() != StateClosed && !sess.LastUsedAt().After(cutoff) {
			sess.Close()
			sess.release()
			m.Remove(sess.ID)
			metricSessionsClosed.WithLabelValues("idle").Inc()
			m.log.WithFields(logrus.Fields{
				"session":   sess.ID,
				"last_used": sess.LastUsedAt(),
			}).Info("idle session reclaimed")
			reclaimed++
			continue
		}
		sess.release()
	}
	return reclaimed
}

// RunSweeper runs the idle sweep on a ticker until ctx is cancelled.
func (m *Manager) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Shutdown closes every session. In-flight actions are drained by
// acquiring each session's lock; if ctx expires first the session is
// closed anyway so no browser process outlives the server.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for id, sess := range sessions {
		acquired := sess.acquire(ctx) == nil
		sess.Close()
		if acquired {
			sess.release()
		}
		metricActiveSessions.Dec()
		metricSessionsClosed.WithLabelValues("shutdown").Inc()
		m.log.WithField("session", id).Debug("session closed on shutdown")
	}
}
