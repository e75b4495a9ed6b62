package memgw

import (
	"fmt"

	"github.com/and161185/fleamarket/internal/errs"
	"github.com/and161185/fleamarket/internal/model"
)

// AddUser registers an account directly, bypassing counters and faults.
func (g *Gateway) AddUser(userID, password, displayName, mbti string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.signup(userID, password, displayName, mbti)
}

// AddProduct stores a listing directly, bypassing counters and faults.
func (g *Gateway) AddProduct(np model.NewProduct) (model.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.create(np)
}

// SetLikes replaces the set of users who like productID.
func (g *Gateway) SetLikes(productID string, userIDs ...string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	l := g.find(productID)
	if l == nil {
		return fmt.Errorf("product %s: %w", productID, errs.ErrNotFound)
	}
	l.likes = map[string]bool{}
	for _, u := range userIDs {
		l.likes[u] = true
	}
	return nil
}

// Seed loads a small demo marketplace used by the offline CLI.
// Every demo account has the password "password".
func Seed(g *Gateway) error {
	users := []struct{ id, name, mbti string }{
		{"alice", "Alice", "ENFP"},
		{"bob", "Bob", "ISTJ"},
		{"carol", "Carol", "INTP"},
	}
	for _, u := range users {
		if err := g.AddUser(u.id, "password", u.name, u.mbti); err != nil {
			return err
		}
	}
	items := []model.NewProduct{
		{Title: "Vintage camera", Price: 12000, Description: "Film camera, works fine, small scratch on the body.", SellerID: "alice"},
		{Title: "Desk lamp", Price: 1500, Description: "LED lamp with three brightness levels.", SellerID: "bob"},
		{Title: "Textbook bundle", Description: "First year economics, price to be discussed.", SellerID: "carol", Status: model.StatusConsidering},
		{Title: "Bicycle", Price: 8000, Description: "City bike, 26 inch.", SellerID: "bob", Status: model.StatusSold},
	}
	for i, np := range items {
		p, err := g.AddProduct(np)
		if err != nil {
			return err
		}
		if i == 0 {
			if err := g.SetLikes(p.ID, "bob", "carol"); err != nil {
				return err
			}
		}
	}
	return nil
}
