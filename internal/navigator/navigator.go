// Package navigator implements the screen-transition state machine.
package navigator

import (
	"time"

	"go.uber.org/zap"

	"github.com/and161185/fleamarket/internal/metrics"
	"github.com/and161185/fleamarket/internal/screen"
	"github.com/and161185/fleamarket/internal/session"
)

// Listener observes transitions. prev is nil for the initial screen.
type Listener func(prev, next screen.Screen)

// Navigator holds the current screen. The graph is flat: any screen may be
// requested from any other, and the request replaces the current screen.
// The only rule is the session guard: a protected screen requested without
// a token resolves to Login.
type Navigator struct {
	store   session.Store
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	current  screen.Screen
	userID   string
	listener Listener
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(n *Navigator) { n.log = l } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option { return func(n *Navigator) { n.metrics = m } }

// WithClock overrides time.Now for token expiry checks.
func WithClock(now func() time.Time) Option { return func(n *Navigator) { n.now = now } }

// New returns a Navigator whose initial screen is Home when a live token is
// stored and Login otherwise.
func New(store session.Store, opts ...Option) *Navigator {
	n := &Navigator{store: store, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(n)
	}
	n.userID = store.UserID()
	if n.authenticated() {
		n.current = screen.Home{}
	} else {
		n.current = screen.Login{}
	}
	n.log.Debug("navigator start", zap.String("screen", screen.String(n.current)))
	return n
}

// OnChange registers l and immediately reports the current screen to it.
func (n *Navigator) OnChange(l Listener) {
	n.listener = l
	if l != nil {
		l(nil, n.current)
	}
}

// Current returns the current screen.
func (n *Navigator) Current() screen.Screen { return n.current }

// UserID returns the user id cached at the last auth transition.
func (n *Navigator) UserID() string { return n.userID }

// authenticated is the cheap synchronous guard. An expired JWT is treated as
// absent and the session is cleared, which is how external invalidation is
// noticed lazily.
func (n *Navigator) authenticated() bool {
	tok, ok := n.store.Token()
	if !ok {
		return false
	}
	if session.Expired(tok, n.now()) {
		n.log.Info("session expired, clearing")
		if err := n.store.Clear(); err != nil {
			n.log.Warn("clear expired session", zap.Error(err))
		}
		return false
	}
	return true
}

// Navigate makes requested current and returns the screen actually entered.
func (n *Navigator) Navigate(requested screen.Screen) screen.Screen {
	if requested == nil {
		return n.current
	}
	next := requested
	if !next.Public() && !n.authenticated() {
		n.log.Debug("no session, redirecting to login", zap.String("requested", screen.String(requested)))
		next = screen.Login{}
	}

	prev := n.current
	if prev.Public() && !next.Public() {
		// login/signup wrote the session just before navigating
		n.userID = n.store.UserID()
	}
	if next.Kind() == screen.KindLogin {
		n.userID = n.store.UserID()
	}
	n.current = next

	n.metrics.Navigate(string(next.Kind()))
	n.log.Debug("navigate",
		zap.String("from", screen.String(prev)),
		zap.String("to", screen.String(next)),
	)
	if n.listener != nil {
		n.listener(prev, next)
	}
	return next
}

// Recheck re-runs the session guard without a user request, e.g. after a
// gateway reported Unauthorized. It returns the current screen afterwards.
func (n *Navigator) Recheck() screen.Screen {
	if n.current.Public() || n.authenticated() {
		return n.current
	}
	return n.Navigate(screen.Login{})
}
