// Package memgw is an in-process marketplace implementing gateway.Gateway.
//
// It backs the offline mode of the CLI and the tests of every layer above the
// gateway. Accounts are stored with Argon2id hashes and sessions are HS256
// JWTs, the same shape the REST backend hands out.
package memgw

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/fleamarket/internal/crypto"
	"github.com/and161185/fleamarket/internal/errs"
	"github.com/and161185/fleamarket/internal/gateway"
	"github.com/and161185/fleamarket/internal/model"
)

// Operation names accepted by FailNext, Hold and Calls.
const (
	OpFetchProducts     = "fetch_products"
	OpCreateProduct     = "create_product"
	OpToggleLike        = "toggle_like"
	OpPurchaseProduct   = "purchase_product"
	OpFetchMessages     = "fetch_messages"
	OpSendMessage       = "send_message"
	OpFetchUser         = "fetch_user"
	OpFetchProductChats = "fetch_product_chats"
	OpLogin             = "login"
	OpSignup            = "signup"
	OpFetchMe           = "fetch_me"
	OpSummarize         = "summarize"
)

type account struct {
	profile model.Profile
	hash    string
}

type listing struct {
	p     model.Product // LikeCount and LikedByMe are computed per caller
	likes map[string]bool
}

// Gateway is safe for concurrent use.
type Gateway struct {
	signKey []byte
	ttl     time.Duration
	now     func() time.Time
	params  crypto.Params

	mu       sync.Mutex
	users    map[string]*account
	products []*listing
	messages []model.Message
	faults   map[string][]error
	holds    map[string]chan struct{}
	calls    map[string]int
}

var _ gateway.Gateway = (*Gateway)(nil)

// Option configures a Gateway.
type Option func(*Gateway)

// WithSignKey sets the HS256 key for issued tokens.
func WithSignKey(k []byte) Option { return func(g *Gateway) { g.signKey = k } }

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(d time.Duration) Option { return func(g *Gateway) { g.ttl = d } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(g *Gateway) { g.now = now } }

// WithHashParams sets the Argon2id cost.
func WithHashParams(p crypto.Params) Option { return func(g *Gateway) { g.params = p } }

// New returns an empty marketplace.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		signKey: []byte("fleamarket-offline"),
		ttl:     24 * time.Hour,
		now:     time.Now,
		params:  crypto.DefaultParams,
		users:   map[string]*account{},
		faults:  map[string][]error{},
		holds:   map[string]chan struct{}{},
		calls:   map[string]int{},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// FailNext makes the next call of op return err without touching state.
// Repeated calls queue up.
func (g *Gateway) FailNext(op string, err error) {
	g.mu.Lock()
	g.faults[op] = append(g.faults[op], err)
	g.mu.Unlock()
}

// Hold blocks every call of op until release is called or the caller's
// context ends. The call is counted before it blocks.
func (g *Gateway) Hold(op string) (release func()) {
	ch := make(chan struct{})
	g.mu.Lock()
	g.holds[op] = ch
	g.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			if g.holds[op] == ch {
				delete(g.holds, op)
			}
			g.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many times op has been invoked.
func (g *Gateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

// enter counts the call, waits on a hold and pops an injected fault.
// On nil it returns with g.mu held; the caller must unlock.
func (g *Gateway) enter(ctx context.Context, op string) error {
	g.mu.Lock()
	g.calls[op]++
	ch := g.holds[op]
	g.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return fmt.Errorf("%s: %w: %w", op, errs.ErrTransient, ctx.Err())
		}
	}

	g.mu.Lock()
	if q := g.faults[op]; len(q) > 0 {
		err := q[0]
		g.faults[op] = q[1:]
		g.mu.Unlock()
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// issueToken creates a signed HS256 JWT for the given subject.
func (g *Gateway) issueToken(userID string) (string, error) {
	now := g.now()
	claims := jwt.RegisteredClaims{
		Issuer:    "fleamarket-offline",
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.signKey)
}

// subject verifies token and returns the user id it was issued to.
// Called with g.mu held.
func (g *Gateway) subject(token string) (string, error) {
	if token == "" {
		return "", errs.ErrUnauthorized
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return g.signKey, nil
	}, jwt.WithTimeFunc(g.now))
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrUnauthorized, err)
	}
	if _, ok := g.users[claims.Subject]; !ok {
		return "", errs.ErrUnauthorized
	}
	return claims.Subject, nil
}

func (g *Gateway) find(id string) *listing {
	for _, l := range g.products {
		if l.p.ID == id {
			return l
		}
	}
	return nil
}

func (l *listing) view(userID string) model.Product {
	p := l.p
	p.LikeCount = len(l.likes)
	p.LikedByMe = userID != "" && l.likes[userID]
	return p
}

func (g *Gateway) FetchProducts(ctx context.Context, token string) ([]model.Product, error) {
	if err := g.enter(ctx, OpFetchProducts); err != nil {
		return nil, err
	}
	defer g.mu.Unlock()

	// an invalid token degrades to anonymous, the listing is public
	uid, _ := g.subject(token)
	out := make([]model.Product, 0, len(g.products))
	for _, l := range g.products {
		out = append(out, l.view(uid))
	}
	return out, nil
}

func (g *Gateway) CreateProduct(ctx context.Context, np model.NewProduct) (model.Product, error) {
	if err := g.enter(ctx, OpCreateProduct); err != nil {
		return model.Product{}, err
	}
	defer g.mu.Unlock()
	return g.create(np)
}

func (g *Gateway) create(np model.NewProduct) (model.Product, error) {
	if strings.TrimSpace(np.Title) == "" || np.SellerID == "" {
		return model.Product{}, fmt.Errorf("%w: title and seller are required", errs.ErrValidation)
	}
	if np.Status == "" {
		np.Status = model.StatusAvailable
	}
	if !np.Status.Valid() {
		return model.Product{}, fmt.Errorf("%w: invalid status %q", errs.ErrValidation, np.Status)
	}
	if np.Price < 0 {
		return model.Product{}, fmt.Errorf("%w: negative price", errs.ErrValidation)
	}
	if np.Status == model.StatusConsidering {
		np.Price = 0
	}
	id, err := uuid.NewV4()
	if err != nil {
		return model.Product{}, err
	}
	l := &listing{
		p: model.Product{
			ID:          "p_" + id.String(),
			Title:       np.Title,
			Price:       np.Price,
			Description: np.Description,
			ImageURL:    np.ImageURL,
			SellerID:    np.SellerID,
			Status:      np.Status,
			CreatedAt:   g.now().UTC(),
		},
		likes: map[string]bool{},
	}
	g.products = append(g.products, l)
	return l.view(""), nil
}

func (g *Gateway) ToggleLike(ctx context.Context, productID, token string) (model.LikeState, error) {
	if err := g.enter(ctx, OpToggleLike); err != nil {
		return model.LikeState{}, err
	}
	defer g.mu.Unlock()

	uid, err := g.subject(token)
	if err != nil {
		return model.LikeState{}, err
	}
	l := g.find(productID)
	if l == nil {
		return model.LikeState{}, fmt.Errorf("product %s: %w", productID, errs.ErrNotFound)
	}
	if l.likes[uid] {
		delete(l.likes, uid)
	} else {
		l.likes[uid] = true
	}
	return l.view(uid).Likes(), nil
}

func (g *Gateway) PurchaseProduct(ctx context.Context, productID, token string) (model.Receipt, error) {
	if err := g.enter(ctx, OpPurchaseProduct); err != nil {
		return model.Receipt{}, err
	}
	defer g.mu.Unlock()

	if _, err := g.subject(token); err != nil {
		return model.Receipt{}, err
	}
	l := g.find(productID)
	if l == nil {
		return model.Receipt{}, fmt.Errorf("product %s: %w", productID, errs.ErrNotFound)
	}
	if l.p.Status != model.StatusAvailable {
		return model.Receipt{}, fmt.Errorf("product %s is %s: %w", productID, l.p.Status, errs.ErrConflict)
	}
	l.p.Status = model.StatusSold
	return model.Receipt{ProductID: productID, Status: model.StatusSold}, nil
}

func (g *Gateway) FetchMessages(ctx context.Context, otherUserID, productID, token string) ([]model.Message, error) {
	if err := g.enter(ctx, OpFetchMessages); err != nil {
		return nil, err
	}
	defer g.mu.Unlock()

	uid, err := g.subject(token)
	if err != nil {
		return nil, err
	}
	if otherUserID == "" || productID == "" {
		return nil, fmt.Errorf("%w: otherUserId and productId are required", errs.ErrValidation)
	}
	out := []model.Message{}
	for _, m := range g.messages {
		if m.ProductID != productID {
			continue
		}
		if (m.FromUserID == uid && m.ToUserID == otherUserID) ||
			(m.FromUserID == otherUserID && m.ToUserID == uid) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (g *Gateway) SendMessage(ctx context.Context, toUserID, productID, body, token string) (model.Message, error) {
	if err := g.enter(ctx, OpSendMessage); err != nil {
		return model.Message{}, err
	}
	defer g.mu.Unlock()

	uid, err := g.subject(token)
	if err != nil {
		return model.Message{}, err
	}
	if toUserID == "" || productID == "" || body == "" {
		return model.Message{}, fmt.Errorf("%w: toUserId, productId and body are required", errs.ErrValidation)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return model.Message{}, err
	}
	m := model.Message{
		ID:         "m_" + id.String(),
		ProductID:  productID,
		FromUserID: uid,
		ToUserID:   toUserID,
		Body:       body,
		CreatedAt:  g.now().UTC(),
	}
	g.messages = append(g.messages, m)
	return m, nil
}

func (g *Gateway) FetchUserByID(ctx context.Context, userID string) (model.Profile, error) {
	if err := g.enter(ctx, OpFetchUser); err != nil {
		return model.Profile{}, err
	}
	defer g.mu.Unlock()

	a, ok := g.users[userID]
	if !ok {
		return model.Profile{}, fmt.Errorf("user %s: %w", userID, errs.ErrNotFound)
	}
	return a.profile, nil
}

func (g *Gateway) FetchProductChats(ctx context.Context, productID, token string) ([]model.ChatUser, error) {
	if err := g.enter(ctx, OpFetchProductChats); err != nil {
		return nil, err
	}
	defer g.mu.Unlock()

	uid, err := g.subject(token)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := []model.ChatUser{}
	for _, m := range g.messages {
		if m.ProductID != productID {
			continue
		}
		var other string
		switch uid {
		case m.FromUserID:
			other = m.ToUserID
		case m.ToUserID:
			other = m.FromUserID
		default:
			continue
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		// counterparts whose account vanished are skipped
		if a, ok := g.users[other]; ok {
			out = append(out, model.ChatUser{UserID: other, DisplayName: a.profile.DisplayName})
		}
	}
	return out, nil
}

func (g *Gateway) Login(ctx context.Context, userID, password string) (string, error) {
	if err := g.enter(ctx, OpLogin); err != nil {
		return "", err
	}
	defer g.mu.Unlock()

	a, ok := g.users[userID]
	if !ok {
		// hide existence of the user
		return "", errs.ErrUnauthorized
	}
	if ok, err := crypto.Verify(password, a.hash); err != nil || !ok {
		return "", errs.ErrUnauthorized
	}
	return g.issueToken(userID)
}

func (g *Gateway) Signup(ctx context.Context, userID, password, displayName, mbti string) error {
	if err := g.enter(ctx, OpSignup); err != nil {
		return err
	}
	defer g.mu.Unlock()
	return g.signup(userID, password, displayName, mbti)
}

func (g *Gateway) signup(userID, password, displayName, mbti string) error {
	if userID == "" || password == "" {
		return fmt.Errorf("%w: empty userId/password", errs.ErrValidation)
	}
	if _, exists := g.users[userID]; exists {
		return fmt.Errorf("user %s: %w", userID, errs.ErrConflict)
	}
	hash, err := g.params.Hash(password)
	if err != nil {
		return err
	}
	g.users[userID] = &account{
		profile: model.Profile{UserID: userID, DisplayName: displayName, MBTI: strings.ToUpper(mbti)},
		hash:    hash,
	}
	return nil
}

func (g *Gateway) FetchMe(ctx context.Context, token string) (model.Profile, error) {
	if err := g.enter(ctx, OpFetchMe); err != nil {
		return model.Profile{}, err
	}
	defer g.mu.Unlock()

	uid, err := g.subject(token)
	if err != nil {
		return model.Profile{}, err
	}
	return g.users[uid].profile, nil
}

// Summarize implements views.Summarizer with a canned digest of the listing.
func (g *Gateway) Summarize(ctx context.Context, productID string) (string, error) {
	if err := g.enter(ctx, OpSummarize); err != nil {
		return "", err
	}
	defer g.mu.Unlock()

	l := g.find(productID)
	if l == nil {
		return "", fmt.Errorf("product %s: %w", productID, errs.ErrNotFound)
	}
	desc := strings.TrimSpace(l.p.Description)
	if desc == "" {
		desc = "no description"
	}
	return fmt.Sprintf("%s (%s): %s", l.p.Title, l.p.Status, desc), nil
}
