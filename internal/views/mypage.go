package views

import (
	"context"

	"go.uber.org/zap"

	"github.com/and161185/fleamarket/internal/model"
	"github.com/and161185/fleamarket/internal/screen"
)

// MyPage shows the current user's profile and own listings.
type MyPage struct {
	products

	Profile    model.Profile
	ProfileErr string
}

func NewMyPage(env *Env) *MyPage { return &MyPage{products: products{env: env}} }

func (v *MyPage) Screen() screen.Screen { return screen.MyPage{} }

func (v *MyPage) Mount(ctx context.Context) {
	v.mount(ctx)
	v.Profile = model.Profile{UserID: v.env.userID(), MBTI: v.env.Session.MBTI()}
	v.loadProfile()
	v.load(nil)
}

func (v *MyPage) Unmount() { v.scope.Close() }

func (v *MyPage) loadProfile() {
	fetch(v.env, v.ctx, v.scope.Closed,
		func(ctx context.Context) (model.Profile, error) {
			return v.env.Gateway.FetchMe(ctx, v.env.token())
		},
		func(p model.Profile, err error) {
			if err != nil {
				v.ProfileErr = v.env.fail(err)
				return
			}
			v.ProfileErr = ""
			v.Profile = p
		},
	)
}

// Listings returns the listings the current user sells.
func (v *MyPage) Listings() []model.Product {
	me := v.env.userID()
	var out []model.Product
	for _, p := range v.cache.Values() {
		if p.SellerID == me {
			out = append(out, p)
		}
	}
	return out
}

// Liking reports whether a like on the listing is in flight.
func (v *MyPage) Liking(id string) bool { return v.liking(id) }

func (v *MyPage) Refresh() {
	v.loadProfile()
	v.load(nil)
}

// Open shows one of the listings.
func (v *MyPage) Open(id string) {
	s, err := screen.NewProductDetail(id)
	if err != nil {
		v.Err = err.Error()
		return
	}
	v.env.navigate(s)
}

// Logout clears the session and returns to Login.
func (v *MyPage) Logout() {
	if err := v.env.Session.Clear(); err != nil {
		v.env.logger().Error("clear session", zap.Error(err))
		v.Err = "could not clear the session: " + err.Error()
		return
	}
	v.env.navigate(screen.Login{})
}

func (v *MyPage) Sell() { v.env.navigate(screen.CreateListing{}) }
func (v *MyPage) Home() { v.env.navigate(screen.Home{}) }
