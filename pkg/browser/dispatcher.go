package browser

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Dispatcher executes actions against sessions: it resolves the
// session, acquires its lock with a bounded wait, invokes the matching
// operation, releases the lock on every path and surfaces failures in
// the package taxonomy. Driver failures are never swallowed and never
// retried; retry policy is a client concern.
type Dispatcher struct {
	manager *Manager
	log     logrus.FieldLogger
}

// NewDispatcher builds a dispatcher over the given manager.
func NewDispatcher(m *Manager, log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{manager: m, log: log}
}

// withSession runs fn with the session lock held. The lock wait is
// bounded: contention past the configured limit surfaces as
// session_busy instead of queueing indefinitely. A fatal driver error
// poisons the session: it is closed, its handles released and its
// registry entry removed before the error is returned.
func (d *Dispatcher) withSession(ctx context.Context, id, action string, fn func(*Session) error) error {
	sess, err := d.manager.Get(id)
	if err != nil {
		metricActions.WithLabelValues(action, "error").Inc()
		return err
	}

	lockCtx, cancel := context.WithTimeout(ctx, d.manager.opts.LockWait)
	defer cancel()
	if err := sess.acquire(lockCtx); err != nil {
		metricActions.WithLabelValues(action, "busy").Inc()
		return Errorf(CodeSessionBusy, "session %s is busy", id)
	}
	defer sess.release()

	// A close or the idle sweep may have won the race while we queued.
	if sess.State() == StateClosed {
		metricActions.WithLabelValues(action, "error").Inc()
		return Errorf(CodeSessionClosed, "session %s is closed", id)
	}

	if err := fn(sess); err != nil {
		if IsFatal(err) {
			sess.Close()
			d.manager.Remove(id)
			metricSessionsClosed.WithLabelValues("poisoned").Inc()
			d.log.WithFields(logrus.Fields{
				"session": id,
				"action":  action,
			}).WithError(err).Warn("session poisoned by unrecoverable driver failure")
		}
		metricActions.WithLabelValues(action, "error").Inc()
		return err
	}
	metricActions.WithLabelValues(action, "ok").Inc()
	return nil
}

func (d *Dispatcher) actionTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return d.manager.opts.ActionTimeout
	}
	return timeout
}

// Navigate loads url in an existing session.
func (d *Dispatcher) Navigate(ctx context.Context, id, url string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = d.manager.opts.NavTimeout
	}
	return d.withSession(ctx, id, "navigate", func(s *Session) error {
		return s.Navigate(url, timeout)
	})
}

// Click clicks the first element matching selector.
func (d *Dispatcher) Click(ctx context.Context, id, selector string, timeout time.Duration) error {
	return d.withSession(ctx, id, "click", func(s *Session) error {
		return s.Click(selector, d.actionTimeout(timeout))
	})
}

// Type fills the element matching selector with text.
func (d *Dispatcher) Type(ctx context.Context, id, selector, text string, timeout time.Duration) error {
	return d.withSession(ctx, id, "type", func(s *Session) error {
		return s.Type(selector, text, d.actionTimeout(timeout))
	})
}

// Scroll scrolls the page by pixels in the given direction.
func (d *Dispatcher) Scroll(ctx context.Context, id string, direction ScrollDirection, pixels int) error {
	return d.withSession(ctx, id, "scroll", func(s *Session) error {
		return s.Scroll(direction, pixels)
	})
}

// WaitFor blocks until an element matching selector is present.
func (d *Dispatcher) WaitFor(ctx context.Context, id, selector string, timeout time.Duration) error {
	return d.withSession(ctx, id, "wait", func(s *Session) error {
		return s.WaitFor(selector, d.actionTimeout(timeout))
	})
}

// Sleep pauses for the given duration with the session lock held, so
// the pause serializes with other actions and counts as activity.
func (d *Dispatcher) Sleep(ctx context.Context, id string, timeout time.Duration) error {
	return d.withSession(ctx, id, "wait", func(s *Session) error {
		return s.Sleep(ctx, d.actionTimeout(timeout))
	})
}

// Extract returns text or attribute values for all elements matching
// selector.
func (d *Dispatcher) Extract(ctx context.Context, id, selector, attribute string) ([]string, error) {
	var values []string
	err := d.withSession(ctx, id, "extract", func(s *Session) error {
		var err error
		values, err = s.Extract(selector, attribute)
		return err
	})
	return values, err
}

// Screenshot captures the session's page as PNG bytes.
func (d *Dispatcher) Screenshot(ctx context.Context, id string) ([]byte, error) {
	var img []byte
	err := d.withSession(ctx, id, "screenshot", func(s *Session) error {
		var err error
		img, err = s.Screenshot()
		return err
	})
	return img, err
}

// Info returns current page metadata.
func (d *Dispatcher) Info(ctx context.Context, id string) (PageInfo, error) {
	var info PageInfo
	err := d.withSession(ctx, id, "info", func(s *Session) error {
		var err error
		info, err = s.Info()
		return err
	})
	return info, err
}

// Close closes a session. Idempotent; unknown ids succeed.
func (d *Dispatcher) Close(ctx context.Context, id string) error {
	return d.manager.CloseSession(ctx, id)
}
