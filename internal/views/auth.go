package views

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/fleamarket/internal/cache"
	"github.com/and161185/fleamarket/internal/errs"
	"github.com/and161185/fleamarket/internal/model"
	"github.com/and161185/fleamarket/internal/screen"
)

// Login exchanges credentials for a session.
type Login struct {
	env   *Env
	ctx   context.Context
	scope *cache.Scope

	Busy bool
	Err  string
}

func NewLogin(env *Env) *Login { return &Login{env: env} }

func (v *Login) Screen() screen.Screen { return screen.Login{} }

func (v *Login) Mount(ctx context.Context) {
	v.ctx, v.scope = ctx, cache.NewScope()
}

func (v *Login) Unmount() { v.scope.Close() }

// Submit logs in. On success the session is stored before navigating Home,
// so the navigator picks up the new user id.
func (v *Login) Submit(userID, password string) {
	if v.Busy {
		return
	}
	userID = strings.TrimSpace(userID)
	if userID == "" || password == "" {
		v.Err = "user id and password are required"
		return
	}
	v.Busy, v.Err = true, ""
	fetch(v.env, v.ctx, v.scope.Closed,
		func(ctx context.Context) (string, error) {
			return v.env.Gateway.Login(ctx, userID, password)
		},
		func(token string, err error) {
			v.Busy = false
			if err != nil {
				v.Err = loginMessage(err)
				return
			}
			if err := v.env.Session.Set(token, userID); err != nil {
				v.env.logger().Error("store session", zap.Error(err))
				v.Err = "could not save the session: " + err.Error()
				return
			}
			v.env.navigate(screen.Home{})
		},
	)
}

// Signup goes to the registration screen.
func (v *Login) Signup() { v.env.navigate(screen.Signup{}) }

func loginMessage(err error) string {
	if errors.Is(err, errs.ErrUnauthorized) {
		return "wrong user id or password"
	}
	return errs.Message(err)
}

// Signup registers an account and logs straight in.
type Signup struct {
	env   *Env
	ctx   context.Context
	scope *cache.Scope

	Busy bool
	Err  string
}

func NewSignup(env *Env) *Signup { return &Signup{env: env} }

func (v *Signup) Screen() screen.Screen { return screen.Signup{} }

func (v *Signup) Mount(ctx context.Context) {
	v.ctx, v.scope = ctx, cache.NewScope()
}

func (v *Signup) Unmount() { v.scope.Close() }

// Submit validates the form, registers, logs in and caches the chosen MBTI.
func (v *Signup) Submit(userID, password, displayName, mbti string) {
	if v.Busy {
		return
	}
	userID = strings.TrimSpace(userID)
	displayName = strings.TrimSpace(displayName)
	mbti = strings.ToUpper(strings.TrimSpace(mbti))
	switch {
	case userID == "" || password == "":
		v.Err = "user id and password are required"
		return
	case !model.ValidMBTI(mbti):
		v.Err = fmt.Sprintf("choose one of the 16 MBTI types (%s)", strings.Join(model.MBTITypes, " "))
		return
	}
	if displayName == "" {
		displayName = userID
	}

	v.Busy, v.Err = true, ""
	fetch(v.env, v.ctx, v.scope.Closed,
		func(ctx context.Context) (string, error) {
			if err := v.env.Gateway.Signup(ctx, userID, password, displayName, mbti); err != nil {
				return "", fmt.Errorf("signup: %w", err)
			}
			return v.env.Gateway.Login(ctx, userID, password)
		},
		func(token string, err error) {
			v.Busy = false
			if err != nil {
				if errors.Is(err, errs.ErrConflict) {
					v.Err = "that user id is already taken"
					return
				}
				v.Err = errs.Message(err)
				return
			}
			if err := v.env.Session.Set(token, userID); err != nil {
				v.Err = "could not save the session: " + err.Error()
				return
			}
			if err := v.env.Session.SetMBTI(mbti); err != nil {
				v.env.logger().Warn("cache mbti", zap.Error(err))
			}
			v.env.navigate(screen.Home{})
		},
	)
}

// Login goes back to the login screen.
func (v *Signup) Login() { v.env.navigate(screen.Login{}) }
