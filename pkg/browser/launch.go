package browser

import "os"

// constrainedMarkers are the environment variables whose presence
// indicates a constrained container deployment (Render and similar
// platforms) where Chromium must run headless and without a sandbox.
var constrainedMarkers = []string{
	"RENDER",
	"RENDER_SERVICE_ID",
}

// containerArgs are the Chromium flags required inside constrained
// containers.
var containerArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--no-first-run",
	"--no-zygote",
	"--single-process",
	"--disable-web-security",
	"--disable-features=VizDisplayCompositor",
}

// LaunchConfig holds the resolved browser start parameters.
type LaunchConfig struct {
	// Headless controls whether the browser runs without a visible
	// window. Forced true in constrained environments.
	Headless bool

	// SandboxArgs are extra Chromium flags, injected only when a
	// constrained-container marker is detected.
	SandboxArgs []string
}

// Resolver derives launch configuration from a snapshot of the process
// environment. Resolution is cheap, side-effect-free and deterministic
// given the environment.
type Resolver struct {
	lookup          func(string) (string, bool)
	defaultHeadless bool
}

// NewResolver builds a resolver reading the real process environment.
// defaultHeadless applies when the caller states no preference.
func NewResolver(defaultHeadless bool) *Resolver {
	return &Resolver{lookup: os.LookupEnv, defaultHeadless: defaultHeadless}
}

// NewResolverWithLookup builds a resolver with an injected environment
// lookup. Used by tests and embedders with synthetic environments.
func NewResolverWithLookup(lookup func(string) (string, bool), defaultHeadless bool) *Resolver {
	return &Resolver{lookup: lookup, defaultHeadless: defaultHeadless}
}

func (r *Resolver) constrained() bool {
	for _, marker := range constrainedMarkers {
		if _, ok := r.lookup(marker); ok {
			return true
		}
	}
	return false
}

// Resolve returns the launch configuration for a new session.
// requested is the caller's headless preference; nil means no
// preference. In a constrained environment the headless flag is forced
// true regardless of the caller's preference and the container sandbox
// args are injected.
func (r *Resolver) Resolve(requested *bool) LaunchConfig {
	if r.constrained() {
		return LaunchConfig{
			Headless:    true,
			SandboxArgs: append([]string(nil), containerArgs...),
		}
	}

	headless := r.defaultHeadless
	if requested != nil {
		headless = *requested
	}
	return LaunchConfig{Headless: headless}
}

// Environment names the detected deployment target, for health
// reporting.
func (r *Resolver) Environment() string {
	if r.constrained() {
		return "render"
	}
	return "local"
}
