// Package browser implements the browserd session core: lifecycle,
// concurrency discipline and launch configuration for remotely driven
// browser instances.
//
// # Architecture
//
// The package is built around four components:
//
//  1. Resolver: derives browser launch parameters (headless flag,
//     sandbox args) from the runtime environment
//  2. Session: wraps one browser instance plus its single page and
//     owns their lifecycle and a per-session lock
//  3. Manager: the registry mapping opaque session ids to sessions,
//     owning creation, lookup, enumeration and disposal
//  4. Dispatcher: resolves a session for an action request, serializes
//     access through the session lock and maps driver failures onto
//     the error taxonomy
//
// The actual automation library sits behind the Driver capability
// interface; PlaywrightDriver is the production implementation and
// the browsertest package provides an in-memory fake.
//
// # Session Lifecycle
//
// Sessions move through Created -> Active -> Closed. Created is
// transient: a session enters the registry already Active, after its
// launch and first navigation both succeeded. Close is idempotent and
// releases the browser and page handles exactly once; the registry
// entry is removed only after release. Idle sessions are reclaimed by
// a background sweep.
//
// # Concurrency
//
// Requests are concurrent across sessions but serialized within one:
// every action holds its session's lock across the full driver call,
// so a second request on the same session queues instead of racing
// in-flight browser state. Lock acquisition uses a single bounded
// wait; contention past the limit surfaces as session_busy. The
// registry's own lock guards only the map and is never held across a
// driver call.
//
// # Example Usage
//
//	driver, err := browser.NewPlaywrightDriver()
//	manager := browser.NewManager(driver, browser.NewResolver(true), browser.Options{}, log)
//	dispatcher := browser.NewDispatcher(manager, log)
//
//	sess, err := manager.Create(ctx, "https://example.com", nil, 0)
//	info, err := dispatcher.Info(ctx, sess.ID)
//	err = dispatcher.Close(ctx, sess.ID)
package browser
