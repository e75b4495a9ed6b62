package views_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/fleamarket/internal/app"
	"github.com/and161185/fleamarket/internal/crypto"
	"github.com/and161185/fleamarket/internal/errs"
	"github.com/and161185/fleamarket/internal/gateway/memgw"
	"github.com/and161185/fleamarket/internal/loop"
	"github.com/and161185/fleamarket/internal/model"
	"github.com/and161185/fleamarket/internal/mutation"
	"github.com/and161185/fleamarket/internal/navigator"
	"github.com/and161185/fleamarket/internal/screen"
	"github.com/and161185/fleamarket/internal/session"
	"github.com/and161185/fleamarket/internal/views"
)

type harness struct {
	t     *testing.T
	ctx   context.Context
	gw    *memgw.Gateway
	loop  *loop.Loop
	store *session.MemStore
	nav   *navigator.Navigator
	env   *views.Env
	app   *app.App
}

// newHarness boots the client against a seeded in-memory marketplace,
// signed in as user (or signed out when user is empty).
func newHarness(t *testing.T, user string) *harness {
	t.Helper()
	ctx := context.Background()
	gw := memgw.New(memgw.WithHashParams(crypto.FastParams))
	require.NoError(t, memgw.Seed(gw))

	store := session.NewMemStore("", "")
	if user != "" {
		tok, err := gw.Login(ctx, user, "password")
		require.NoError(t, err)
		require.NoError(t, store.Set(tok, user))
	}

	log := zaptest.NewLogger(t)
	l := loop.New()
	h := &harness{t: t, ctx: ctx, gw: gw, loop: l, store: store}
	h.nav = navigator.New(store, navigator.WithLogger(log))
	h.env = &views.Env{
		Loop:       l,
		Gateway:    gw,
		Session:    store,
		Mutations:  mutation.New(l, gw, mutation.WithLogger(log)),
		Log:        log,
		Summarizer: gw,
	}
	h.app = app.New(ctx, h.nav, h.env)
	l.Flush()
	t.Cleanup(func() {
		h.app.Close()
		l.Flush()
	})
	return h
}

func (h *harness) token(user string) string {
	h.t.Helper()
	tok, err := h.gw.Login(h.ctx, user, "password")
	require.NoError(h.t, err)
	return tok
}

// productID finds a seeded listing by title.
func (h *harness) productID(title string) string {
	h.t.Helper()
	list, err := h.gw.FetchProducts(h.ctx, "")
	require.NoError(h.t, err)
	for _, p := range list {
		if p.Title == title {
			return p.ID
		}
	}
	h.t.Fatalf("no product %q", title)
	return ""
}

func (h *harness) product(id string) model.Product {
	h.t.Helper()
	list, err := h.gw.FetchProducts(h.ctx, "")
	require.NoError(h.t, err)
	for _, p := range list {
		if p.ID == id {
			return p
		}
	}
	h.t.Fatalf("no product %s", id)
	return model.Product{}
}

// open navigates to s and waits for the mounted view to settle.
func (h *harness) open(s screen.Screen) views.View {
	h.t.Helper()
	h.app.Navigate(s)
	h.loop.Flush()
	return h.app.View()
}

func view[T views.View](t *testing.T, v views.View) T {
	t.Helper()
	out, ok := v.(T)
	if !ok {
		t.Fatalf("mounted view is %T", v)
	}
	return out
}

func fillForm() views.PaymentForm {
	return views.PaymentForm{
		Name:       "Bob",
		Phone:      "555-0100",
		Address:    "1 Main St",
		CardNumber: "4242424242424242",
		Expiry:     "12/30",
		CVC:        "123",
	}
}

func TestStartScreen(t *testing.T) {
	t.Parallel()
	require.Equal(t, screen.Login{}, newHarness(t, "").app.Screen())
	require.Equal(t, screen.Home{}, newHarness(t, "bob").app.Screen())
}

func TestLogin(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")
	login := view[*views.Login](t, h.app.View())

	login.Submit("alice", "nope")
	require.True(t, login.Busy)
	h.loop.Flush()
	require.False(t, login.Busy)
	require.Equal(t, "wrong user id or password", login.Err)
	require.Equal(t, screen.Login{}, h.app.Screen())

	login.Submit("alice", "password")
	h.loop.Flush()
	require.Equal(t, screen.Home{}, h.app.Screen())
	require.Equal(t, "alice", h.nav.UserID())
	_, ok := h.store.Token()
	require.True(t, ok)
}

func TestLogin_RequiresFields(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")
	login := view[*views.Login](t, h.app.View())
	login.Submit("  ", "password")
	require.NotEmpty(t, login.Err)
	require.Equal(t, 0, h.gw.Calls(memgw.OpLogin))
}

func TestSignup(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "")
	view[*views.Login](t, h.app.View()).Signup()
	su := view[*views.Signup](t, h.app.View())

	su.Submit("dave", "secret", "Dave", "XXXX")
	require.Contains(t, su.Err, "MBTI")
	require.Equal(t, 0, h.gw.Calls(memgw.OpSignup))

	su.Submit("alice", "secret", "", "infj")
	h.loop.Flush()
	require.Equal(t, "that user id is already taken", su.Err)

	su.Submit("dave", "secret", "", "infj")
	h.loop.Flush()
	require.Equal(t, screen.Home{}, h.app.Screen())
	require.Equal(t, "dave", h.nav.UserID())
	require.Equal(t, "INFJ", h.store.MBTI())

	tok, ok := h.store.Token()
	require.True(t, ok)
	me, err := h.gw.FetchMe(h.ctx, tok)
	require.NoError(t, err)
	require.Equal(t, "dave", me.DisplayName)

	again, err := h.gw.Login(h.ctx, "dave", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, again)
}

func TestHome_ToggleLike(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "bob")
	home := view[*views.Home](t, h.app.View())
	camera := h.productID("Vintage camera")

	require.Len(t, home.Products(), 4)
	find := func() model.Product {
		for _, p := range home.Products() {
			if p.ID == camera {
				return p
			}
		}
		t.Fatalf("camera missing")
		return model.Product{}
	}
	require.Equal(t, model.LikeState{Liked: true, Count: 2}, find().Likes())

	home.ToggleLike(camera)
	require.Equal(t, model.LikeState{Liked: false, Count: 1}, find().Likes(), "shown before the server answers")
	require.True(t, home.Liking(camera))

	home.ToggleLike(camera)
	require.NotEmpty(t, home.Err, "second toggle while busy")

	h.loop.Flush()
	require.False(t, home.Liking(camera))
	require.Equal(t, model.LikeState{Liked: false, Count: 1}, find().Likes())
	require.Equal(t, 1, h.gw.Calls(memgw.OpToggleLike))
}

func TestHome_Search(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "bob")
	home := view[*views.Home](t, h.app.View())
	fetches := h.gw.Calls(memgw.OpFetchProducts)

	home.Search("LAMP")
	got := home.Products()
	require.Len(t, got, 1)
	require.Equal(t, "Desk lamp", got[0].Title)

	home.Search("city")
	require.Equal(t, "Bicycle", home.Products()[0].Title, "description matches too")

	home.Search("")
	require.Len(t, home.Products(), 4)
	require.Equal(t, fetches, h.gw.Calls(memgw.OpFetchProducts), "search filters locally")
}

func TestHome_UnauthorizedLandsOnLogin(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "bob")
	home := view[*views.Home](t, h.app.View())
	require.NoError(t, h.store.Clear())

	home.ToggleLike(h.productID("Desk lamp"))
	h.loop.Flush()
	require.Equal(t, screen.Login{}, h.app.Screen())
}

func TestPurchase_EndToEnd(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "bob")
	camera := h.productID("Vintage camera")

	view[*views.Home](t, h.app.View()).Open(camera)
	h.loop.Flush()
	detail := view[*views.ProductDetail](t, h.app.View())
	require.Equal(t, "Alice", detail.SellerName)
	require.False(t, detail.Own())
	require.True(t, detail.CanBuy())

	detail.Buy()
	h.loop.Flush()
	confirm := view[*views.PurchaseConfirm](t, h.app.View())
	require.False(t, confirm.CanSubmit())

	confirm.Form = fillForm()
	require.True(t, confirm.CanSubmit())
	confirm.Submit()
	require.True(t, confirm.Buying())
	h.loop.Flush()

	require.Equal(t, screen.PurchaseDone{ProductID: camera, SellerID: "alice", SellerName: "Alice"}, h.app.Screen())
	require.Equal(t, model.StatusSold, h.product(camera).Status)

	view[*views.PurchaseDone](t, h.app.View()).ContactSeller()
	require.Equal(t, screen.Chat{OtherUserID: "alice", OtherUserName: "Alice", ProductID: camera}, h.app.Screen())
}

func TestPurchase_FailureKeepsForm(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "bob")
	camera := h.productID("Vintage camera")
	confirm := view[*views.PurchaseConfirm](t, h.open(screen.PurchaseConfirm{ProductID: camera}))

	confirm.Form = fillForm()
	h.gw.FailNext(memgw.OpPurchaseProduct, errs.ErrConflict)
	confirm.Submit()
	h.loop.Flush()

	require.Equal(t, screen.PurchaseConfirm{ProductID: camera}, h.app.Screen())
	require.Contains(t, confirm.Err, "can no longer")
	require.Equal(t, fillForm(), confirm.Form)
	require.False(t, confirm.Buying())
	require.Equal(t, model.StatusAvailable, h.product(camera).Status)
}

func TestPurchase_LeavingBeforeConfirmStaysAway(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "bob")
	camera := h.productID("Vintage camera")
	confirm := view[*views.PurchaseConfirm](t, h.open(screen.PurchaseConfirm{ProductID: camera}))

	confirm.Form = fillForm()
	release := h.gw.Hold(memgw.OpPurchaseProduct)
	confirm.Submit()
	confirm.Back()
	release()
	h.loop.Flush()

	require.Equal(t, screen.ProductDetail{ProductID: camera}, h.app.Screen())
	require.Empty(t, confirm.Err)
	require.Equal(t, model.StatusSold, h.product(camera).Status)
}

func TestPurchase_Blocked(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "bob")

	confirm := view[*views.PurchaseConfirm](t, h.open(screen.PurchaseConfirm{ProductID: h.productID("Vintage camera")}))
	confirm.Submit()
	require.Equal(t, "fill in every field", confirm.Err)

	sold := view[*views.PurchaseConfirm](t, h.open(screen.PurchaseConfirm{ProductID: h.productID("Bicycle")}))
	sold.Form = fillForm()
	require.False(t, sold.CanSubmit())
	sold.Submit()
	require.NotEmpty(t, sold.Err)

	missing := view[*views.PurchaseConfirm](t, h.open(screen.PurchaseConfirm{ProductID: "p_missing"}))
	missing.Form = fillForm()
	require.True(t, missing.NotFound())
	missing.Submit()
	require.Equal(t, "listing not found", missing.Err)
	require.Equal(t, 0, h.gw.Calls(memgw.OpPurchaseProduct))
}

func TestDetail_NotFound(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "bob")
	detail := view[*views.ProductDetail](t, h.open(screen.ProductDetail{ProductID: "p_missing"}))

	require.True(t, detail.NotFound())
	require.False(t, detail.CanBuy())
	detail.Buy()
	require.Equal(t, "listing not found", detail.Err)
	require.Equal(t, screen.ProductDetail{ProductID: "p_missing"}, h.app.Screen())
}

func TestDetail_OwnListing(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "alice")
	detail := view[*views.ProductDetail](t, h.open(screen.ProductDetail{ProductID: h.productID("Vintage camera")}))

	require.True(t, detail.Own())
	require.False(t, detail.CanBuy())
	detail.Buy()
	require.Equal(t, "this is your own listing", detail.Err)
}

func TestDetail_Summary(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "bob")
	detail := view[*views.ProductDetail](t, h.open(screen.ProductDetail{ProductID: h.productID("Desk lamp")}))

	detail.Summarize()
	require.True(t, detail.Summarizing)
	h.loop.Flush()
	require.False(t, detail.Summarizing)
	require.Empty(t, detail.SummaryErr)
	require.NotEmpty(t, detail.Summary)
	require.Empty(t, detail.Err)
}

// A like made elsewhere is not pushed into a detail view that already
// fetched; it shows after the detail is mounted again.
func TestDetail_StaleUntilRemount(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "bob")
	lamp := h.productID("Desk lamp")

	home := views.NewHome(h.env)
	home.Mount(h.ctx)
	detail := views.NewProductDetail(h.env, screen.ProductDetail{ProductID: lamp})
	detail.Mount(h.ctx)
	h.loop.Flush()

	home.ToggleLike(lamp)
	h.loop.Flush()
	p, ok := detail.Product()
	require.True(t, ok)
	require.Equal(t, 0, p.LikeCount)

	detail.Unmount()
	again := views.NewProductDetail(h.env, screen.ProductDetail{ProductID: lamp})
	again.Mount(h.ctx)
	h.loop.Flush()
	p, _ = again.Product()
	require.Equal(t, model.LikeState{Liked: true, Count: 1}, p.Likes())

	home.Unmount()
	again.Unmount()
}

func TestCreateListing(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "bob")
	view[*views.Home](t, h.app.View()).Sell()
	create := view[*views.CreateListing](t, h.app.View())

	create.Submit(views.ListingForm{Title: "", Price: 100, Description: "x"})
	require.NotEmpty(t, create.Err)
	create.Submit(views.ListingForm{Title: "Chair", Price: 0, Description: "Wooden"})
	require.Contains(t, create.Err, "price")
	create.Submit(views.ListingForm{Title: "Chair", Price: 100, Description: "Wooden", ImagePath: "/tmp/chair.jpg"})
	require.Equal(t, "image upload is not available", create.Err)
	require.Equal(t, 0, h.gw.Calls(memgw.OpCreateProduct))

	create.Submit(views.ListingForm{Title: " Chair ", Price: 999, Description: "Wooden", Status: model.StatusConsidering})
	h.loop.Flush()
	require.Equal(t, screen.Home{}, h.app.Screen())

	id := h.productID("Chair")
	p := h.product(id)
	require.Equal(t, "bob", p.SellerID)
	require.Equal(t, model.StatusConsidering, p.Status)
	require.Equal(t, 0, p.Price)
}

func TestChat_SendAndReceive(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "bob")
	camera := h.productID("Vintage camera")
	_, err := h.gw.SendMessage(h.ctx, "bob", camera, "still available?", h.token("alice"))
	require.NoError(t, err)

	chat := view[*views.Chat](t, h.open(screen.Chat{OtherUserID: "alice", OtherUserName: "Alice", ProductID: camera}))
	require.Len(t, chat.Messages(), 1)
	require.False(t, chat.Mine(chat.Messages()[0]))

	sends := h.gw.Calls(memgw.OpSendMessage)
	chat.Send("   ")
	require.NotEmpty(t, chat.Err)
	require.Equal(t, sends, h.gw.Calls(memgw.OpSendMessage))

	chat.Send("  yes it is  ")
	require.True(t, chat.Sending())
	require.Len(t, chat.Messages(), 1, "nothing shown before the server stores it")
	h.loop.Flush()
	require.False(t, chat.Sending())
	msgs := chat.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "yes it is", msgs[1].Body)
	require.True(t, chat.Mine(msgs[1]))
}

func TestChat_UnmountDropsPendingFetch(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "bob")
	camera := h.productID("Vintage camera")
	_, err := h.gw.SendMessage(h.ctx, "bob", camera, "hi", h.token("alice"))
	require.NoError(t, err)

	release := h.gw.Hold(memgw.OpFetchMessages)
	h.app.Navigate(screen.Chat{OtherUserID: "alice", OtherUserName: "Alice", ProductID: camera})
	chat := view[*views.Chat](t, h.app.View())
	require.True(t, chat.Loading)

	h.app.Navigate(screen.Home{})
	release()
	h.loop.Flush()

	require.Empty(t, chat.Messages())
	require.True(t, chat.Loading, "late result must not touch the unmounted view")
	require.Equal(t, screen.Home{}, h.app.Screen())
}

func TestInbox(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "alice")
	camera := h.productID("Vintage camera")
	for _, u := range []string{"bob", "carol", "bob"} {
		_, err := h.gw.SendMessage(h.ctx, "alice", camera, "interested", h.token(u))
		require.NoError(t, err)
	}

	detail := view[*views.ProductDetail](t, h.open(screen.ProductDetail{ProductID: camera}))
	detail.Inbox()
	h.loop.Flush()
	inbox := view[*views.Inbox](t, h.app.View())
	require.Equal(t, []model.ChatUser{{UserID: "bob", DisplayName: "Bob"}, {UserID: "carol", DisplayName: "Carol"}}, inbox.Users)

	inbox.Open(5)
	require.NotEmpty(t, inbox.Err)
	inbox.Open(1)
	require.Equal(t, screen.Chat{OtherUserID: "carol", OtherUserName: "Carol", ProductID: camera}, h.app.Screen())
}

func TestInbox_OnlyForSeller(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "bob")
	detail := view[*views.ProductDetail](t, h.open(screen.ProductDetail{ProductID: h.productID("Vintage camera")}))
	detail.Inbox()
	require.NotEmpty(t, detail.Err)
	require.Equal(t, screen.KindProductDetail, h.app.Screen().Kind())
}

func TestMyPage(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "bob")
	my := view[*views.MyPage](t, h.open(screen.MyPage{}))

	require.Equal(t, model.Profile{UserID: "bob", DisplayName: "Bob", MBTI: "ISTJ"}, my.Profile)
	var titles []string
	for _, p := range my.Listings() {
		titles = append(titles, p.Title)
	}
	require.ElementsMatch(t, []string{"Desk lamp", "Bicycle"}, titles)
	require.False(t, my.Liking(my.Listings()[0].ID))

	my.Logout()
	require.Equal(t, screen.Login{}, h.app.Screen())
	_, ok := h.store.Token()
	require.False(t, ok)

	h.app.Navigate(screen.MyPage{})
	require.Equal(t, screen.Login{}, h.app.Screen(), "guard after logout")
}
