package memgw

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/fleamarket/internal/crypto"
	"github.com/and161185/fleamarket/internal/errs"
	"github.com/and161185/fleamarket/internal/model"
	"github.com/and161185/fleamarket/internal/session"
)

func newGW(t *testing.T, opts ...Option) *Gateway {
	t.Helper()
	g := New(append([]Option{WithHashParams(crypto.FastParams)}, opts...)...)
	require.NoError(t, g.AddUser("alice", "pw-a", "Alice", "enfp"))
	require.NoError(t, g.AddUser("bob", "pw-b", "Bob", "ISTJ"))
	return g
}

func login(t *testing.T, g *Gateway, user, pw string) string {
	t.Helper()
	tok, err := g.Login(context.Background(), user, pw)
	require.NoError(t, err)
	return tok
}

func TestSignupLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := newGW(t)

	require.NoError(t, g.Signup(ctx, "carol", "pw-c", "Carol", "INTP"))
	err := g.Signup(ctx, "carol", "x", "", "")
	require.True(t, errors.Is(err, errs.ErrConflict), "duplicate user: %v", err)
	require.True(t, errors.Is(g.Signup(ctx, "", "x", "", ""), errs.ErrValidation))

	tok := login(t, g, "carol", "pw-c")
	me, err := g.FetchMe(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, model.Profile{UserID: "carol", DisplayName: "Carol", MBTI: "INTP"}, me)

	_, err = g.Login(ctx, "carol", "wrong")
	require.True(t, errors.Is(err, errs.ErrUnauthorized))
	_, err = g.Login(ctx, "nobody", "pw")
	require.True(t, errors.Is(err, errs.ErrUnauthorized))
}

func TestTokenExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	g := newGW(t, WithClock(clock), WithTokenTTL(time.Hour))
	tok := login(t, g, "alice", "pw-a")

	require.False(t, session.Expired(tok, now))
	now = now.Add(2 * time.Hour)
	require.True(t, session.Expired(tok, now))

	_, err := g.FetchMe(ctx, tok)
	require.True(t, errors.Is(err, errs.ErrUnauthorized), "expired token: %v", err)
}

func TestForeignToken(t *testing.T) {
	t.Parallel()
	a := newGW(t, WithSignKey([]byte("a")))
	b := newGW(t, WithSignKey([]byte("b")))
	tok := login(t, a, "alice", "pw-a")

	_, err := b.FetchMe(context.Background(), tok)
	require.True(t, errors.Is(err, errs.ErrUnauthorized))
}

func TestCreateProduct(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := newGW(t)

	p, err := g.CreateProduct(ctx, model.NewProduct{Title: "Lamp", Price: 100, SellerID: "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.Equal(t, model.StatusAvailable, p.Status)

	p, err = g.CreateProduct(ctx, model.NewProduct{Title: "Books", Price: 900, SellerID: "alice", Status: model.StatusConsidering})
	require.NoError(t, err)
	require.Equal(t, 0, p.Price, "considering listings have no price")

	_, err = g.CreateProduct(ctx, model.NewProduct{Title: "X", SellerID: "alice", Status: "lost"})
	require.True(t, errors.Is(err, errs.ErrValidation))
	_, err = g.CreateProduct(ctx, model.NewProduct{SellerID: "alice"})
	require.True(t, errors.Is(err, errs.ErrValidation))
}

func TestToggleLike(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := newGW(t)
	p, err := g.AddProduct(model.NewProduct{Title: "Lamp", SellerID: "alice"})
	require.NoError(t, err)
	require.NoError(t, g.SetLikes(p.ID, "alice"))
	tok := login(t, g, "bob", "pw-b")

	st, err := g.ToggleLike(ctx, p.ID, tok)
	require.NoError(t, err)
	require.Equal(t, model.LikeState{Liked: true, Count: 2}, st)

	list, err := g.FetchProducts(ctx, tok)
	require.NoError(t, err)
	require.True(t, list[0].LikedByMe)
	require.Equal(t, 2, list[0].LikeCount)

	anon, err := g.FetchProducts(ctx, "")
	require.NoError(t, err)
	require.False(t, anon[0].LikedByMe)
	require.Equal(t, 2, anon[0].LikeCount)

	st, err = g.ToggleLike(ctx, p.ID, tok)
	require.NoError(t, err)
	require.Equal(t, model.LikeState{Liked: false, Count: 1}, st)

	_, err = g.ToggleLike(ctx, p.ID, "")
	require.True(t, errors.Is(err, errs.ErrUnauthorized))
	_, err = g.ToggleLike(ctx, "missing", tok)
	require.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestPurchase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := newGW(t)
	p, err := g.AddProduct(model.NewProduct{Title: "Lamp", Price: 10, SellerID: "alice"})
	require.NoError(t, err)
	c, err := g.AddProduct(model.NewProduct{Title: "Books", SellerID: "alice", Status: model.StatusConsidering})
	require.NoError(t, err)
	tok := login(t, g, "bob", "pw-b")

	_, err = g.PurchaseProduct(ctx, p.ID, "")
	require.True(t, errors.Is(err, errs.ErrUnauthorized))

	r, err := g.PurchaseProduct(ctx, p.ID, tok)
	require.NoError(t, err)
	require.Equal(t, model.Receipt{ProductID: p.ID, Status: model.StatusSold}, r)

	_, err = g.PurchaseProduct(ctx, p.ID, tok)
	require.True(t, errors.Is(err, errs.ErrConflict), "double purchase: %v", err)
	_, err = g.PurchaseProduct(ctx, c.ID, tok)
	require.True(t, errors.Is(err, errs.ErrConflict))
	_, err = g.PurchaseProduct(ctx, "missing", tok)
	require.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestMessagesAndChats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g := newGW(t, WithClock(func() time.Time { now = now.Add(time.Second); return now }))
	require.NoError(t, g.AddUser("carol", "pw-c", "Carol", ""))
	p, err := g.AddProduct(model.NewProduct{Title: "Lamp", SellerID: "alice"})
	require.NoError(t, err)

	alice := login(t, g, "alice", "pw-a")
	bob := login(t, g, "bob", "pw-b")
	carol := login(t, g, "carol", "pw-c")

	m1, err := g.SendMessage(ctx, "alice", p.ID, "is it available?", bob)
	require.NoError(t, err)
	require.Equal(t, "bob", m1.FromUserID)
	require.NotEmpty(t, m1.ID)
	_, err = g.SendMessage(ctx, "bob", p.ID, "yes", alice)
	require.NoError(t, err)
	_, err = g.SendMessage(ctx, "alice", p.ID, "me too", carol)
	require.NoError(t, err)
	_, err = g.SendMessage(ctx, "alice", p.ID, "", carol)
	require.True(t, errors.Is(err, errs.ErrValidation))

	conv, err := g.FetchMessages(ctx, "alice", p.ID, bob)
	require.NoError(t, err)
	require.Len(t, conv, 2)
	require.Equal(t, "is it available?", conv[0].Body)
	require.Equal(t, "yes", conv[1].Body)

	chats, err := g.FetchProductChats(ctx, p.ID, alice)
	require.NoError(t, err)
	require.Equal(t, []model.ChatUser{{UserID: "bob", DisplayName: "Bob"}, {UserID: "carol", DisplayName: "Carol"}}, chats)

	empty, err := g.FetchMessages(ctx, "carol", p.ID, bob)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestFetchUserByID(t *testing.T) {
	t.Parallel()
	g := newGW(t)

	u, err := g.FetchUserByID(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "Alice", u.DisplayName)
	require.Equal(t, "ENFP", u.MBTI)

	_, err = g.FetchUserByID(context.Background(), "zed")
	require.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestFailNext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := newGW(t)
	p, err := g.AddProduct(model.NewProduct{Title: "Lamp", SellerID: "alice"})
	require.NoError(t, err)
	tok := login(t, g, "bob", "pw-b")

	g.FailNext(OpToggleLike, errs.ErrTransient)
	_, err = g.ToggleLike(ctx, p.ID, tok)
	require.True(t, errors.Is(err, errs.ErrTransient))

	list, err := g.FetchProducts(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, 0, list[0].LikeCount, "a failed call leaves state untouched")

	st, err := g.ToggleLike(ctx, p.ID, tok)
	require.NoError(t, err)
	require.True(t, st.Liked)
	require.Equal(t, 2, g.Calls(OpToggleLike))
}

func TestHold(t *testing.T) {
	t.Parallel()
	g := newGW(t)
	release := g.Hold(OpFetchProducts)

	done := make(chan error, 1)
	go func() {
		_, err := g.FetchProducts(context.Background(), "")
		done <- err
	}()
	select {
	case <-done:
		t.Fatal("held call returned early")
	case <-time.After(20 * time.Millisecond):
	}
	release()
	require.NoError(t, <-done)
	release()

	ctx, cancel := context.WithCancel(context.Background())
	g.Hold(OpFetchMe)
	cancel()
	_, err := g.FetchMe(ctx, "")
	require.True(t, errors.Is(err, errs.ErrTransient))
	require.True(t, errors.Is(err, context.Canceled))
}

func TestSeed(t *testing.T) {
	t.Parallel()
	g := New(WithHashParams(crypto.FastParams))
	require.NoError(t, Seed(g))

	list, err := g.FetchProducts(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, list, 4)
	require.Equal(t, 2, list[0].LikeCount)
	_ = login(t, g, "alice", "password")

	s, err := g.Summarize(context.Background(), list[0].ID)
	require.NoError(t, err)
	require.Contains(t, s, "Vintage camera")
}

func TestFetchProducts_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := New(WithHashParams(crypto.FastParams))
	require.NoError(t, Seed(g))
	tok := login(t, g, "bob", "password")

	first, err := g.FetchProducts(ctx, tok)
	require.NoError(t, err)
	second, err := g.FetchProducts(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
