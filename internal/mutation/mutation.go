// Package mutation applies user actions optimistically and reconciles them
// with the remote gateway.
//
// Every (entity, kind) pair moves through Idle -> Pending -> {Confirmed,
// Failed} -> Idle. At most one mutation per pair is in flight; a second
// request while Pending is rejected with errs.ErrBusy and sends nothing.
// All methods must be called on the loop goroutine.
package mutation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/fleamarket/internal/cache"
	"github.com/and161185/fleamarket/internal/errs"
	"github.com/and161185/fleamarket/internal/gateway"
	"github.com/and161185/fleamarket/internal/loop"
	"github.com/and161185/fleamarket/internal/metrics"
	"github.com/and161185/fleamarket/internal/model"
)

// Kind is the type of a mutating action.
type Kind string

const (
	KindLike     Kind = "like"
	KindPurchase Kind = "purchase"
	KindSend     Kind = "send"
)

// Key identifies the slot a mutation occupies.
type Key struct {
	EntityID string
	Kind     Kind
}

func (k Key) String() string { return string(k.Kind) + ":" + k.EntityID }

// Phase is the state of one (entity, kind) slot.
type Phase int

const (
	Idle Phase = iota
	Pending
	Confirmed
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// PendingMutation is an accepted request awaiting the gateway.
type PendingMutation struct {
	Key         Key
	Speculative any // model.LikeState for likes, nil otherwise
	IssuedAt    time.Time
}

// Observer sees every phase transition of every slot.
type Observer func(Key, Phase)

// Controller owns the registry of in-flight mutations.
type Controller struct {
	loop    *loop.Loop
	gw      gateway.Gateway
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	observe Observer

	pending map[Key]PendingMutation
	phases  map[Key]Phase
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(l *zap.Logger) Option { return func(c *Controller) { c.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(c *Controller) { c.metrics = m } }

func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// WithObserver registers o for phase transitions.
func WithObserver(o Observer) Option { return func(c *Controller) { c.observe = o } }

// New returns a controller issuing gateway calls through l.
func New(l *loop.Loop, gw gateway.Gateway, opts ...Option) *Controller {
	c := &Controller{
		loop:    l,
		gw:      gw,
		log:     zap.NewNop(),
		now:     time.Now,
		pending: map[Key]PendingMutation{},
		phases:  map[Key]Phase{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Phase returns the current phase of k. Confirmed and Failed are only
// observable while the response is being reconciled.
func (c *Controller) Phase(k Key) Phase {
	return c.phases[k]
}

// Pending returns the in-flight mutation for k.
func (c *Controller) Pending(k Key) (PendingMutation, bool) {
	pm, ok := c.pending[k]
	return pm, ok
}

// Speculate returns the like state expected after a toggle. The count never
// drops below zero.
func Speculate(s model.LikeState) model.LikeState {
	if s.Liked {
		return model.LikeState{Liked: false, Count: max(s.Count-1, 0)}
	}
	return model.LikeState{Liked: true, Count: max(s.Count, 0) + 1}
}

func (c *Controller) transition(k Key, p Phase) {
	if p == Idle {
		delete(c.phases, k)
	} else {
		c.phases[k] = p
	}
	if c.observe != nil {
		c.observe(k, p)
	}
}

// begin claims the slot for k or reports ErrBusy.
func (c *Controller) begin(k Key, speculative any) error {
	if _, busy := c.pending[k]; busy {
		c.metrics.Reject(string(k.Kind))
		c.log.Debug("mutation rejected, slot busy", zap.Stringer("key", k))
		return fmt.Errorf("%s: %w", k, errs.ErrBusy)
	}
	c.pending[k] = PendingMutation{Key: k, Speculative: speculative, IssuedAt: c.now()}
	c.transition(k, Pending)
	return nil
}

// settle records the outcome and frees the slot.
func (c *Controller) settle(k Key, err error) {
	outcome := Confirmed
	if err != nil {
		outcome = Failed
	}
	pm := c.pending[k]
	delete(c.pending, k)
	c.transition(k, Idle)

	c.metrics.Mutation(string(k.Kind), outcome.String())
	fields := []zap.Field{
		zap.Stringer("key", k),
		zap.Stringer("outcome", outcome),
		zap.Duration("dur", c.now().Sub(pm.IssuedAt)),
	}
	if err != nil {
		c.log.Info("mutation settled", append(fields, zap.Error(err))...)
		return
	}
	c.log.Debug("mutation settled", fields...)
}

// ToggleLike flips the like on productID. The speculative state is written
// to products before the call is issued; the server's answer then replaces
// it. On failure the product is refetched and overwritten, or removed when
// the server no longer lists it. done, if set, runs once the slot is Idle
// again. Results arriving after scope is closed settle the slot but leave
// products untouched.
func (c *Controller) ToggleLike(
	ctx context.Context,
	scope *cache.Scope,
	products *cache.Cache[string, model.Product],
	productID, token string,
	done func(error),
) error {
	k := Key{EntityID: productID, Kind: KindLike}
	before, ok := products.Get(productID)
	if !ok {
		return fmt.Errorf("product %s: %w", productID, errs.ErrNotFound)
	}
	spec := Speculate(before.Likes())
	if err := c.begin(k, spec); err != nil {
		return err
	}
	products.Put(productID, before.WithLikes(spec))

	loop.Call(c.loop, ctx,
		func(ctx context.Context) (model.LikeState, error) {
			return c.gw.ToggleLike(ctx, productID, token)
		},
		func(st model.LikeState, err error) {
			if err == nil {
				c.transition(k, Confirmed)
				if !scope.Closed() {
					products.Update(productID, func(p model.Product) model.Product { return p.WithLikes(st) })
				}
				c.finish(k, nil, done)
				return
			}
			c.transition(k, Failed)
			if scope.Closed() {
				c.finish(k, err, done)
				return
			}
			c.refetch(ctx, scope, products, before, token, func() { c.finish(k, err, done) })
		},
	)
	return nil
}

// refetch replaces the cached product with the authoritative one. If the
// refetch fails too, the last server-confirmed value is restored.
func (c *Controller) refetch(
	ctx context.Context,
	scope *cache.Scope,
	products *cache.Cache[string, model.Product],
	before model.Product,
	token string,
	then func(),
) {
	loop.Call(c.loop, ctx,
		func(ctx context.Context) ([]model.Product, error) {
			return c.gw.FetchProducts(ctx, token)
		},
		func(list []model.Product, err error) {
			defer then()
			if scope.Closed() {
				return
			}
			if err != nil {
				c.log.Warn("refetch after failed mutation", zap.String("product", before.ID), zap.Error(err))
				products.Put(before.ID, before)
				return
			}
			for _, p := range list {
				if p.ID == before.ID {
					products.Put(p.ID, p)
					return
				}
			}
			products.Delete(before.ID)
		},
	)
}

func (c *Controller) finish(k Key, err error, done func(error)) {
	c.settle(k, err)
	if done != nil {
		done(err)
	}
}

// Purchase buys productID. Nothing is applied before the gateway confirms;
// on success the cached product, if present, is marked sold.
func (c *Controller) Purchase(
	ctx context.Context,
	scope *cache.Scope,
	products *cache.Cache[string, model.Product],
	productID, token string,
	done func(model.Receipt, error),
) error {
	k := Key{EntityID: productID, Kind: KindPurchase}
	if err := c.begin(k, nil); err != nil {
		return err
	}
	loop.Call(c.loop, ctx,
		func(ctx context.Context) (model.Receipt, error) {
			return c.gw.PurchaseProduct(ctx, productID, token)
		},
		func(r model.Receipt, err error) {
			if err != nil {
				c.transition(k, Failed)
			} else {
				c.transition(k, Confirmed)
				if r.Status == "" {
					r.Status = model.StatusSold
				}
				if !scope.Closed() && products != nil {
					products.Update(productID, func(p model.Product) model.Product {
						p.Status = r.Status
						return p
					})
				}
			}
			c.settle(k, err)
			if done != nil {
				done(r, err)
			}
		},
	)
	return nil
}

// ConversationID names the message thread with toUserID about productID.
func ConversationID(toUserID, productID string) string {
	return productID + "/" + toUserID
}

// Send posts body to toUserID. The call is awaited and the server's message
// (with its id and timestamp) is appended to messages; nothing is shown
// before that. body is trimmed and must not be empty.
func (c *Controller) Send(
	ctx context.Context,
	scope *cache.Scope,
	messages *cache.Cache[string, model.Message],
	toUserID, productID, body, token string,
	done func(model.Message, error),
) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return fmt.Errorf("%w: message is empty", errs.ErrValidation)
	}
	k := Key{EntityID: ConversationID(toUserID, productID), Kind: KindSend}
	if err := c.begin(k, nil); err != nil {
		return err
	}
	loop.Call(c.loop, ctx,
		func(ctx context.Context) (model.Message, error) {
			return c.gw.SendMessage(ctx, toUserID, productID, body, token)
		},
		func(m model.Message, err error) {
			if err != nil {
				c.transition(k, Failed)
			} else {
				c.transition(k, Confirmed)
				if !scope.Closed() {
					messages.Put(m.ID, m)
				}
			}
			c.settle(k, err)
			if done != nil {
				done(m, err)
			}
		},
	)
	return nil
}
