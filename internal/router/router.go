package router

import (
	"context"
	"log/slog"
	"sync"
)

// AuthSource reports the current authentication flag. *store.Store satisfies it.
type AuthSource interface {
	IsAuthenticated() bool
}

// Navigation is the outcome of one Navigate call.
type Navigation struct {
	Requested Match
	Decision  Decision
	// Final is where the session ends up: the requested match on Allow,
	// otherwise the redirect target (which is not guarded again).
	Final Match
}

// Redirected reports whether the guard sent the session elsewhere.
func (n Navigation) Redirected() bool { return n.Decision.Outcome != Allow }

// Router runs navigations against an auth source and remembers the location.
type Router struct {
	auth   AuthSource
	logger *slog.Logger

	mu      sync.Mutex
	current Match
}

func New(auth AuthSource, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{auth: auth, logger: logger, current: Resolve(HomePath)}
}

// Navigate resolves path, guards it and records the final location.
func (r *Router) Navigate(ctx context.Context, path string) Navigation {
	m := Resolve(path)
	authenticated := r.auth != nil && r.auth.IsAuthenticated()
	d := Guard(m.Route, authenticated)

	nav := Navigation{Requested: m, Decision: d, Final: m}
	if d.Outcome != Allow {
		nav.Final = Resolve(d.Redirect)
	}

	r.mu.Lock()
	r.current = nav.Final
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "navigation",
		"path", m.Path,
		"view", string(m.Route.Name),
		"authenticated", authenticated,
		"outcome", d.Outcome.String(),
		"final", nav.Final.Path,
	)
	return nav
}

// Current returns the last recorded location.
func (r *Router) Current() Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}
