package views

import (
	"context"
	"errors"

	"github.com/and161185/fleamarket/internal/model"
	"github.com/and161185/fleamarket/internal/screen"
)

// ProductDetail shows one listing. A missing id is a display state
// (NotFound), not a navigation error.
type ProductDetail struct {
	products

	ProductID  string
	SellerName string

	Summary     string
	Summarizing bool
	SummaryErr  string
}

func NewProductDetail(env *Env, s screen.ProductDetail) *ProductDetail {
	return &ProductDetail{products: products{env: env}, ProductID: s.ProductID}
}

func (v *ProductDetail) Screen() screen.Screen { return screen.ProductDetail{ProductID: v.ProductID} }

func (v *ProductDetail) Mount(ctx context.Context) {
	v.mount(ctx)
	v.load(v.loadSeller)
}

func (v *ProductDetail) Unmount() { v.scope.Close() }

func (v *ProductDetail) loadSeller() {
	p, ok := v.Product()
	if !ok {
		return
	}
	v.SellerName = p.SellerID
	fetch(v.env, v.ctx, v.scope.Closed,
		func(ctx context.Context) (model.Profile, error) {
			return v.env.Gateway.FetchUserByID(ctx, p.SellerID)
		},
		func(u model.Profile, err error) {
			// the seller id stays as the name when the profile is unavailable
			if err == nil {
				v.SellerName = u.Name()
			}
		},
	)
}

// Product returns the listing, if loaded and present.
func (v *ProductDetail) Product() (model.Product, bool) {
	return v.cache.Get(v.ProductID)
}

// NotFound reports that the listing was loaded and the id is absent.
func (v *ProductDetail) NotFound() bool {
	_, ok := v.Product()
	return v.Loaded && !ok
}

// Own reports whether the current user is the seller.
func (v *ProductDetail) Own() bool {
	p, ok := v.Product()
	return ok && p.SellerID == v.env.userID()
}

// CanBuy reports whether the purchase button is enabled.
func (v *ProductDetail) CanBuy() bool {
	p, ok := v.Product()
	return ok && !v.Own() && p.Status == model.StatusAvailable
}

func (v *ProductDetail) ToggleLike()  { v.toggleLike(v.ProductID) }
func (v *ProductDetail) Liking() bool { return v.liking(v.ProductID) }
func (v *ProductDetail) Refresh()     { v.load(v.loadSeller) }
func (v *ProductDetail) Back()        { v.env.navigate(screen.Home{}) }

// Buy goes to the purchase form.
func (v *ProductDetail) Buy() {
	if !v.CanBuy() {
		v.Err = v.buyBlocked().Error()
		return
	}
	s, err := screen.NewPurchaseConfirm(v.ProductID)
	if err != nil {
		v.Err = err.Error()
		return
	}
	v.env.navigate(s)
}

func (v *ProductDetail) buyBlocked() error {
	p, ok := v.Product()
	switch {
	case !ok:
		return errors.New("listing not found")
	case v.Own():
		return errors.New("this is your own listing")
	case p.Status == model.StatusSold:
		return errors.New("this item is sold")
	default:
		return errors.New("the seller has not set a price yet")
	}
}

// Message opens the conversation with the seller.
func (v *ProductDetail) Message() {
	p, ok := v.Product()
	if !ok {
		v.Err = "listing not found"
		return
	}
	if v.Own() {
		v.Err = "this is your own listing, open the inbox instead"
		return
	}
	s, err := screen.NewChat(p.SellerID, v.SellerName, p.ID)
	if err != nil {
		v.Err = err.Error()
		return
	}
	v.env.navigate(s)
}

// Inbox lists buyers who wrote about an own listing.
func (v *ProductDetail) Inbox() {
	if !v.Own() {
		v.Err = "only the seller can open the inbox"
		return
	}
	s, err := screen.NewInbox(v.ProductID)
	if err != nil {
		v.Err = err.Error()
		return
	}
	v.env.navigate(s)
}

// Summarize asks the summarizer for a digest of the listing. A failure is
// shown in the summary area only.
func (v *ProductDetail) Summarize() {
	if v.Summarizing {
		return
	}
	if v.env.Summarizer == nil {
		v.SummaryErr = "summaries are not available"
		return
	}
	v.Summarizing, v.SummaryErr = true, ""
	fetch(v.env, v.ctx, v.scope.Closed,
		func(ctx context.Context) (string, error) {
			return v.env.Summarizer.Summarize(ctx, v.ProductID)
		},
		func(text string, err error) {
			v.Summarizing = false
			if err != nil {
				v.SummaryErr = "summary failed: " + err.Error()
				return
			}
			v.Summary = text
		},
	)
}
