// Package gateway declares the remote marketplace contract consumed by the client core.
package gateway

import (
	"context"

	"github.com/and161185/fleamarket/internal/model"
)

// Gateway is the remote marketplace service. Implementations report failures
// wrapped around the errs sentinels (ErrUnauthorized, ErrNotFound,
// ErrConflict, ErrTransient); anything else is treated as transient.
type Gateway interface {
	// FetchProducts lists all listings. An empty token yields LikedByMe=false everywhere.
	FetchProducts(ctx context.Context, token string) ([]model.Product, error)
	// CreateProduct stores a new listing.
	CreateProduct(ctx context.Context, p model.NewProduct) (model.Product, error)
	// ToggleLike flips the caller's like and returns the authoritative state.
	ToggleLike(ctx context.Context, productID, token string) (model.LikeState, error)
	// PurchaseProduct marks the listing sold. ErrConflict when already sold.
	PurchaseProduct(ctx context.Context, productID, token string) (model.Receipt, error)
	// FetchMessages returns the conversation with otherUserID about productID, oldest first.
	FetchMessages(ctx context.Context, otherUserID, productID, token string) ([]model.Message, error)
	// SendMessage stores a message; id and timestamp are assigned by the server.
	SendMessage(ctx context.Context, toUserID, productID, body, token string) (model.Message, error)
	// FetchUserByID returns a public profile.
	FetchUserByID(ctx context.Context, userID string) (model.Profile, error)
	// FetchProductChats lists users who messaged the seller about productID.
	FetchProductChats(ctx context.Context, productID, token string) ([]model.ChatUser, error)
	// Login exchanges credentials for a bearer token.
	Login(ctx context.Context, userID, password string) (string, error)
	// Signup registers a user. It does not log in.
	Signup(ctx context.Context, userID, password, displayName, mbti string) error
	// FetchMe returns the profile owning token.
	FetchMe(ctx context.Context, token string) (model.Profile, error)
}
