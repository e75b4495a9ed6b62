// Package app ties the navigator to the views: every transition unmounts the
// previous view and mounts the one for the new screen.
package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/and161185/fleamarket/internal/navigator"
	"github.com/and161185/fleamarket/internal/screen"
	"github.com/and161185/fleamarket/internal/views"
)

// App owns the mounted view. All methods run on the loop goroutine.
type App struct {
	ctx  context.Context
	nav  *navigator.Navigator
	env  *views.Env
	view views.View
}

// New wires env to nav and mounts the initial screen.
func New(ctx context.Context, nav *navigator.Navigator, env *views.Env) *App {
	a := &App{ctx: ctx, nav: nav, env: env}
	env.Navigate = nav.Navigate
	env.UserID = nav.UserID
	env.Recheck = nav.Recheck
	if env.Log == nil {
		env.Log = zap.NewNop()
	}
	nav.OnChange(a.change)
	return a
}

func (a *App) change(prev, next screen.Screen) {
	if a.view != nil {
		a.view.Unmount()
	}
	a.view = Build(a.env, next)
	a.env.Log.Debug("mount", zap.String("screen", screen.String(next)))
	a.view.Mount(a.ctx)
	if a.env.Changed != nil {
		a.env.Changed()
	}
}

// View returns the mounted view.
func (a *App) View() views.View { return a.view }

// Screen returns the current screen.
func (a *App) Screen() screen.Screen { return a.nav.Current() }

// Navigate requests s and returns the screen entered.
func (a *App) Navigate(s screen.Screen) screen.Screen { return a.nav.Navigate(s) }

// Close unmounts the current view.
func (a *App) Close() {
	if a.view != nil {
		a.view.Unmount()
		a.view = nil
	}
}

// Build returns an unmounted view for s.
func Build(env *views.Env, s screen.Screen) views.View {
	switch s := s.(type) {
	case screen.Login:
		return views.NewLogin(env)
	case screen.Signup:
		return views.NewSignup(env)
	case screen.Home:
		return views.NewHome(env)
	case screen.ProductDetail:
		return views.NewProductDetail(env, s)
	case screen.CreateListing:
		return views.NewCreateListing(env)
	case screen.Inbox:
		return views.NewInbox(env, s)
	case screen.Chat:
		return views.NewChat(env, s)
	case screen.MyPage:
		return views.NewMyPage(env)
	case screen.PurchaseConfirm:
		return views.NewPurchaseConfirm(env, s)
	case screen.PurchaseDone:
		return views.NewPurchaseDone(env, s)
	default:
		return views.NewLogin(env)
	}
}
