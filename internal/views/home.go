package views

import (
	"context"

	"github.com/and161185/fleamarket/internal/cache"
	"github.com/and161185/fleamarket/internal/model"
	"github.com/and161185/fleamarket/internal/mutation"
	"github.com/and161185/fleamarket/internal/screen"
)

func productID(p model.Product) string { return p.ID }

// products is the listing cache shared by every view that shows listings.
type products struct {
	env   *Env
	ctx   context.Context
	scope *cache.Scope
	cache *cache.Cache[string, model.Product]

	Loading bool
	Loaded  bool
	Err     string
}

func (s *products) mount(ctx context.Context) {
	s.ctx = ctx
	s.scope = cache.NewScope()
	s.cache = cache.New[string, model.Product]()
}

// load refetches the listing. A newer load supersedes one still in flight.
func (s *products) load(then func()) {
	s.Loading, s.Err = true, ""
	tk := s.scope.Ticket()
	fetch(s.env, s.ctx, tk.Stale,
		func(ctx context.Context) ([]model.Product, error) {
			return s.env.Gateway.FetchProducts(ctx, s.env.token())
		},
		func(list []model.Product, err error) {
			s.Loading = false
			if err != nil {
				s.Err = s.env.fail(err)
				return
			}
			s.Loaded = true
			s.cache.Replace(list, productID)
			if then != nil {
				then()
			}
		},
	)
}

// toggleLike runs a like toggle through the mutation controller.
func (s *products) toggleLike(id string) {
	err := s.env.Mutations.ToggleLike(s.ctx, s.scope, s.cache, id, s.env.token(), func(err error) {
		if s.scope.Closed() {
			return
		}
		if err != nil {
			s.Err = s.env.fail(err)
		}
		s.env.changed()
	})
	if err != nil {
		s.Err = s.env.fail(err)
		return
	}
	s.Err = ""
}

func (s *products) liking(id string) bool {
	return s.env.Mutations.Phase(mutation.Key{EntityID: id, Kind: mutation.KindLike}) != mutation.Idle
}

// Home lists every listing.
type Home struct {
	products

	Query string
}

func NewHome(env *Env) *Home { return &Home{products: products{env: env}} }

func (v *Home) Screen() screen.Screen { return screen.Home{} }

func (v *Home) Mount(ctx context.Context) {
	v.mount(ctx)
	v.load(nil)
}

func (v *Home) Unmount() { v.scope.Close() }

// Products returns the listings matching Query, in server order.
func (v *Home) Products() []model.Product {
	all := v.cache.Values()
	out := all[:0]
	for _, p := range all {
		if p.Matches(v.Query) {
			out = append(out, p)
		}
	}
	return out
}

// Search filters the list by title or description.
func (v *Home) Search(q string) { v.Query = q }

// Refresh refetches the listing.
func (v *Home) Refresh() { v.load(nil) }

// ToggleLike flips the like on id. The new count shows immediately.
func (v *Home) ToggleLike(id string) { v.toggleLike(id) }

// Liking reports whether a like toggle on id is in flight.
func (v *Home) Liking(id string) bool { return v.liking(id) }

// Open shows one listing.
func (v *Home) Open(id string) {
	s, err := screen.NewProductDetail(id)
	if err != nil {
		v.Err = err.Error()
		return
	}
	v.env.navigate(s)
}

func (v *Home) Sell()   { v.env.navigate(screen.CreateListing{}) }
func (v *Home) MyPage() { v.env.navigate(screen.MyPage{}) }
