package browser

import "time"

// Default values for manager options.
const (
	DefaultMaxSessions   = 5
	DefaultIdleTimeout   = 5 * time.Minute
	DefaultSweepInterval = 30 * time.Second
	DefaultLockWait      = 10 * time.Second
	DefaultActionTimeout = 5 * time.Second
	DefaultNavTimeout    = 30 * time.Second

	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// Options configures the session manager.
type Options struct {
	// MaxSessions caps the number of concurrently live sessions.
	MaxSessions int

	// IdleTimeout is how long a session may sit without a successful
	// action before the sweep reclaims it.
	IdleTimeout time.Duration

	// SweepInterval is how often the idle sweep runs.
	SweepInterval time.Duration

	// LockWait bounds how long a dispatched action waits for the
	// session lock before failing with session_busy.
	LockWait time.Duration

	// ActionTimeout is the default driver-level timeout for element
	// actions (click, type, wait).
	ActionTimeout time.Duration

	// NavTimeout is the default driver-level timeout for navigation.
	NavTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxSessions <= 0 {
		o.MaxSessions = DefaultMaxSessions
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.LockWait <= 0 {
		o.LockWait = DefaultLockWait
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = DefaultActionTimeout
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = DefaultNavTimeout
	}
	return o
}

// SessionState is the lifecycle state of a session.
type SessionState int32

const (
	// StateCreated is the transient state between launch and first
	// navigation. Not externally observable: sessions enter the
	// registry already Active.
	StateCreated SessionState = iota

	// StateActive accepts actions.
	StateActive

	// StateClosed is terminal. Handles are released and no further
	// actions are accepted.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PageInfo is the read-only metadata returned by the info action.
type PageInfo struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SessionSummary is the snapshot returned by List. Built from atomic
// metadata only, so listing never blocks on a session lock.
type SessionSummary struct {
	ID         string    `json:"session_id"`
	URL        string    `json:"url"`
	State      string    `json:"state"`
	Headless   bool      `json:"headless"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}
