// Package screen defines the closed set of client screens.
//
// A Screen carries everything its view needs to render (ids, names), so
// navigation needs no history stack. Variants with payloads are built through
// constructors that reject empty ids.
package screen

import (
	"errors"
	"fmt"
)

// Kind names a Screen variant.
type Kind string

const (
	KindLogin           Kind = "login"
	KindSignup          Kind = "signup"
	KindHome            Kind = "home"
	KindProductDetail   Kind = "productDetail"
	KindCreateListing   Kind = "createListing"
	KindInbox           Kind = "inbox"
	KindChat            Kind = "chat"
	KindMyPage          Kind = "myPage"
	KindPurchaseConfirm Kind = "purchaseConfirm"
	KindPurchaseDone    Kind = "purchaseDone"
)

// Screen is implemented only by the variants in this package.
type Screen interface {
	Kind() Kind
	// Public reports whether the screen is reachable without a session.
	Public() bool
	isScreen()
}

// ErrInvalid reports a variant built with a missing field.
var ErrInvalid = errors.New("invalid screen")

type Login struct{}
type Signup struct{}
type Home struct{}
type CreateListing struct{}
type MyPage struct{}

// ProductDetail shows one listing.
type ProductDetail struct{ ProductID string }

// Inbox lists who has messaged the seller about a listing.
type Inbox struct{ ProductID string }

// Chat is the conversation with one user about one listing.
type Chat struct {
	OtherUserID   string
	OtherUserName string
	ProductID     string
}

// PurchaseConfirm collects the buyer's details before purchasing.
type PurchaseConfirm struct{ ProductID string }

// PurchaseDone reports a completed purchase.
type PurchaseDone struct {
	ProductID  string
	SellerID   string
	SellerName string
}

func (Login) Kind() Kind           { return KindLogin }
func (Signup) Kind() Kind          { return KindSignup }
func (Home) Kind() Kind            { return KindHome }
func (CreateListing) Kind() Kind   { return KindCreateListing }
func (MyPage) Kind() Kind          { return KindMyPage }
func (ProductDetail) Kind() Kind   { return KindProductDetail }
func (Inbox) Kind() Kind           { return KindInbox }
func (Chat) Kind() Kind            { return KindChat }
func (PurchaseConfirm) Kind() Kind { return KindPurchaseConfirm }
func (PurchaseDone) Kind() Kind    { return KindPurchaseDone }

func (Login) Public() bool           { return true }
func (Signup) Public() bool          { return true }
func (Home) Public() bool            { return false }
func (CreateListing) Public() bool   { return false }
func (MyPage) Public() bool          { return false }
func (ProductDetail) Public() bool   { return false }
func (Inbox) Public() bool           { return false }
func (Chat) Public() bool            { return false }
func (PurchaseConfirm) Public() bool { return false }
func (PurchaseDone) Public() bool    { return false }

func (Login) isScreen()           {}
func (Signup) isScreen()          {}
func (Home) isScreen()            {}
func (CreateListing) isScreen()   {}
func (MyPage) isScreen()          {}
func (ProductDetail) isScreen()   {}
func (Inbox) isScreen()           {}
func (Chat) isScreen()            {}
func (PurchaseConfirm) isScreen() {}
func (PurchaseDone) isScreen()    {}

// NewProductDetail builds a ProductDetail screen.
func NewProductDetail(productID string) (ProductDetail, error) {
	if productID == "" {
		return ProductDetail{}, fmt.Errorf("%w: %s needs a product id", ErrInvalid, KindProductDetail)
	}
	return ProductDetail{ProductID: productID}, nil
}

// NewInbox builds an Inbox screen.
func NewInbox(productID string) (Inbox, error) {
	if productID == "" {
		return Inbox{}, fmt.Errorf("%w: %s needs a product id", ErrInvalid, KindInbox)
	}
	return Inbox{ProductID: productID}, nil
}

// NewChat builds a Chat screen. An empty name falls back to the user id.
func NewChat(otherUserID, otherUserName, productID string) (Chat, error) {
	if otherUserID == "" || productID == "" {
		return Chat{}, fmt.Errorf("%w: %s needs a user id and a product id", ErrInvalid, KindChat)
	}
	if otherUserName == "" {
		otherUserName = otherUserID
	}
	return Chat{OtherUserID: otherUserID, OtherUserName: otherUserName, ProductID: productID}, nil
}

// NewPurchaseConfirm builds a PurchaseConfirm screen.
func NewPurchaseConfirm(productID string) (PurchaseConfirm, error) {
	if productID == "" {
		return PurchaseConfirm{}, fmt.Errorf("%w: %s needs a product id", ErrInvalid, KindPurchaseConfirm)
	}
	return PurchaseConfirm{ProductID: productID}, nil
}

// NewPurchaseDone builds a PurchaseDone screen.
func NewPurchaseDone(productID, sellerID, sellerName string) (PurchaseDone, error) {
	if productID == "" || sellerID == "" {
		return PurchaseDone{}, fmt.Errorf("%w: %s needs a product id and a seller id", ErrInvalid, KindPurchaseDone)
	}
	if sellerName == "" {
		sellerName = sellerID
	}
	return PurchaseDone{ProductID: productID, SellerID: sellerID, SellerName: sellerName}, nil
}

// String renders s for logs.
func String(s Screen) string {
	switch v := s.(type) {
	case nil:
		return "<nil>"
	case ProductDetail:
		return fmt.Sprintf("%s{%s}", v.Kind(), v.ProductID)
	case Inbox:
		return fmt.Sprintf("%s{%s}", v.Kind(), v.ProductID)
	case Chat:
		return fmt.Sprintf("%s{%s,%s}", v.Kind(), v.OtherUserID, v.ProductID)
	case PurchaseConfirm:
		return fmt.Sprintf("%s{%s}", v.Kind(), v.ProductID)
	case PurchaseDone:
		return fmt.Sprintf("%s{%s,%s}", v.Kind(), v.ProductID, v.SellerID)
	default:
		return string(s.Kind())
	}
}
