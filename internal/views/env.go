// Package views holds one controller per screen.
//
// A view is mounted when its screen becomes current and unmounted when it is
// replaced. It owns its entity caches and a cache.Scope; every fetch result
// is checked against the scope before it is applied, so responses arriving
// after unmount are dropped. Exported fields are the render state; methods
// are user intents. Everything runs on the loop goroutine.
package views

import (
	"context"

	"go.uber.org/zap"

	"github.com/and161185/fleamarket/internal/errs"
	"github.com/and161185/fleamarket/internal/gateway"
	"github.com/and161185/fleamarket/internal/loop"
	"github.com/and161185/fleamarket/internal/mutation"
	"github.com/and161185/fleamarket/internal/screen"
	"github.com/and161185/fleamarket/internal/session"
)

// View is a mounted screen.
type View interface {
	Screen() screen.Screen
	Mount(ctx context.Context)
	Unmount()
}

// Summarizer generates a short description of a listing. Optional; a failure
// only affects the summary area.
type Summarizer interface {
	Summarize(ctx context.Context, productID string) (string, error)
}

// Uploader stores a local image and returns its public URL. Optional.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// Env is what views share: the loop, the gateway, the session and the
// navigator hooks.
type Env struct {
	Loop      *loop.Loop
	Gateway   gateway.Gateway
	Session   session.Store
	Mutations *mutation.Controller
	Log       *zap.Logger

	// Set by app.New.
	Navigate func(screen.Screen) screen.Screen
	UserID   func() string
	Recheck  func() screen.Screen

	Summarizer Summarizer
	Uploader   Uploader

	// Changed is called after any asynchronous state change so the
	// renderer can redraw.
	Changed func()
}

func (e *Env) token() string {
	t, _ := e.Session.Token()
	return t
}

func (e *Env) userID() string {
	if e.UserID != nil {
		return e.UserID()
	}
	return e.Session.UserID()
}

func (e *Env) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

func (e *Env) changed() {
	if e.Changed != nil {
		e.Changed()
	}
}

func (e *Env) navigate(s screen.Screen) {
	if e.Navigate != nil {
		e.Navigate(s)
	}
}

// fail converts err for the inline error region. Unauthorized triggers the
// session re-check so an expired session lands on Login.
func (e *Env) fail(err error) string {
	if errs.Classify(err) == errs.ErrUnauthorized && e.Recheck != nil {
		e.Recheck()
	}
	return errs.Message(err)
}

// fetch runs fn off the loop and hands the result to then unless stale
// reports true by the time it arrives.
func fetch[T any](e *Env, ctx context.Context, stale func() bool, fn func(context.Context) (T, error), then func(T, error)) {
	loop.Call(e.Loop, ctx, fn, func(v T, err error) {
		if stale() {
			e.logger().Debug("dropping stale result", zap.Error(err))
			return
		}
		then(v, err)
		e.changed()
	})
}
