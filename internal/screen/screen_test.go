package screen

import (
	"errors"
	"testing"
)

func TestConstructors_RejectEmptyIDs(t *testing.T) {
	t.Parallel()

	checks := []error{
		func() error { _, err := NewProductDetail(""); return err }(),
		func() error { _, err := NewInbox(""); return err }(),
		func() error { _, err := NewChat("", "n", "p1"); return err }(),
		func() error { _, err := NewChat("u2", "n", ""); return err }(),
		func() error { _, err := NewPurchaseConfirm(""); return err }(),
		func() error { _, err := NewPurchaseDone("", "s", "n"); return err }(),
		func() error { _, err := NewPurchaseDone("p1", "", "n"); return err }(),
	}
	for i, err := range checks {
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("case %d: want ErrInvalid, got %v", i, err)
		}
	}
}

func TestConstructors_OK(t *testing.T) {
	t.Parallel()

	pd, err := NewProductDetail("p1")
	if err != nil || pd.ProductID != "p1" {
		t.Fatalf("product detail: %+v %v", pd, err)
	}
	c, err := NewChat("u2", "", "p1")
	if err != nil || c.OtherUserName != "u2" {
		t.Fatalf("chat should default the name: %+v %v", c, err)
	}
	d, err := NewPurchaseDone("p1", "s1", "")
	if err != nil || d.SellerName != "s1" {
		t.Fatalf("purchase done should default the seller name: %+v %v", d, err)
	}
}

func TestPublic(t *testing.T) {
	t.Parallel()

	public := []Screen{Login{}, Signup{}}
	protected := []Screen{Home{}, CreateListing{}, MyPage{}, ProductDetail{"p"}, Inbox{"p"},
		Chat{"u", "n", "p"}, PurchaseConfirm{"p"}, PurchaseDone{"p", "s", "n"}}
	for _, s := range public {
		if !s.Public() {
			t.Fatalf("%s must be public", s.Kind())
		}
	}
	for _, s := range protected {
		if s.Public() {
			t.Fatalf("%s must be protected", s.Kind())
		}
	}
}

func TestString(t *testing.T) {
	t.Parallel()

	if String(Home{}) != "home" {
		t.Fatalf("home: %s", String(Home{}))
	}
	if String(ProductDetail{ProductID: "p1"}) != "productDetail{p1}" {
		t.Fatalf("detail: %s", String(ProductDetail{ProductID: "p1"}))
	}
	if String(nil) != "<nil>" {
		t.Fatalf("nil")
	}
}
