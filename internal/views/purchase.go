package views

import (
	"context"
	"strings"

	"github.com/and161185/fleamarket/internal/errs"
	"github.com/and161185/fleamarket/internal/model"
	"github.com/and161185/fleamarket/internal/mutation"
	"github.com/and161185/fleamarket/internal/screen"
)

// PaymentForm is the buyer's input. It is only checked for completeness and
// never sent anywhere; there is no payment processing.
type PaymentForm struct {
	Name       string
	Phone      string
	Address    string
	CardNumber string
	Expiry     string
	CVC        string
}

// Complete reports whether every field is filled in.
func (f PaymentForm) Complete() bool {
	for _, s := range []string{f.Name, f.Phone, f.Address, f.CardNumber, f.Expiry, f.CVC} {
		if strings.TrimSpace(s) == "" {
			return false
		}
	}
	return true
}

// PurchaseConfirm collects the payment form and buys the listing.
type PurchaseConfirm struct {
	products

	ProductID  string
	SellerName string
	Form       PaymentForm
}

func NewPurchaseConfirm(env *Env, s screen.PurchaseConfirm) *PurchaseConfirm {
	return &PurchaseConfirm{products: products{env: env}, ProductID: s.ProductID}
}

func (v *PurchaseConfirm) Screen() screen.Screen {
	return screen.PurchaseConfirm{ProductID: v.ProductID}
}

func (v *PurchaseConfirm) Mount(ctx context.Context) {
	v.mount(ctx)
	v.load(v.loadSeller)
}

func (v *PurchaseConfirm) Unmount() { v.scope.Close() }

func (v *PurchaseConfirm) loadSeller() {
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
			if err == nil {
				v.SellerName = u.Name()
			}
		},
	)
}

// Product returns the listing being bought.
func (v *PurchaseConfirm) Product() (model.Product, bool) { return v.cache.Get(v.ProductID) }

// NotFound reports that the listing was loaded and the id is absent.
func (v *PurchaseConfirm) NotFound() bool {
	_, ok := v.Product()
	return v.Loaded && !ok
}

// Buying reports whether the purchase request is in flight.
func (v *PurchaseConfirm) Buying() bool {
	return v.env.Mutations.Phase(mutation.Key{EntityID: v.ProductID, Kind: mutation.KindPurchase}) != mutation.Idle
}

// CanSubmit reports whether the purchase button is enabled.
func (v *PurchaseConfirm) CanSubmit() bool {
	p, ok := v.Product()
	return ok && p.Status == model.StatusAvailable && v.Form.Complete() && !v.Buying()
}

// Submit purchases the listing. On success the user lands on PurchaseDone;
// on failure the form stays filled in and Err explains why.
func (v *PurchaseConfirm) Submit() {
	token, ok := v.env.Session.Token()
	if !ok {
		v.Err = errs.Message(errs.ErrUnauthorized)
		return
	}
	p, ok := v.Product()
	if !ok {
		if v.Loaded {
			v.Err = "listing not found"
		} else {
			v.Err = "the listing is still loading"
		}
		return
	}
	if !v.Form.Complete() {
		v.Err = "fill in every field"
		return
	}
	if p.Status != model.StatusAvailable {
		v.Err = "this item can no longer be purchased"
		return
	}
	sellerID, sellerName := p.SellerID, v.SellerName
	err := v.env.Mutations.Purchase(v.ctx, v.scope, v.cache, v.ProductID, token, func(_ model.Receipt, err error) {
		if v.scope.Closed() {
			return
		}
		if err != nil {
			v.Err = v.env.fail(err)
			v.env.changed()
			return
		}
		done, serr := screen.NewPurchaseDone(v.ProductID, sellerID, sellerName)
		if serr != nil {
			v.Err = serr.Error()
			v.env.changed()
			return
		}
		v.env.navigate(done)
	})
	if err != nil {
		v.Err = v.env.fail(err)
		return
	}
	v.Err = ""
}

func (v *PurchaseConfirm) Back() { v.env.navigate(screen.ProductDetail{ProductID: v.ProductID}) }

// PurchaseDone thanks the buyer and offers to contact the seller.
type PurchaseDone struct {
	env *Env

	ProductID  string
	SellerID   string
	SellerName string
}

func NewPurchaseDone(env *Env, s screen.PurchaseDone) *PurchaseDone {
	return &PurchaseDone{env: env, ProductID: s.ProductID, SellerID: s.SellerID, SellerName: s.SellerName}
}

func (v *PurchaseDone) Screen() screen.Screen {
	return screen.PurchaseDone{ProductID: v.ProductID, SellerID: v.SellerID, SellerName: v.SellerName}
}

func (v *PurchaseDone) Mount(context.Context) {}
func (v *PurchaseDone) Unmount()              {}

// ContactSeller opens the chat with the seller about the purchased item.
func (v *PurchaseDone) ContactSeller() {
	s, err := screen.NewChat(v.SellerID, v.SellerName, v.ProductID)
	if err != nil {
		return
	}
	v.env.navigate(s)
}

func (v *PurchaseDone) Home() { v.env.navigate(screen.Home{}) }
