package gateway

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/fleamarket/internal/errs"
	"github.com/and161185/fleamarket/internal/metrics"
	"github.com/and161185/fleamarket/internal/model"
)

// Result returns the metric/log label for an outcome of a gateway call.
func Result(err error) string {
	switch errs.Classify(err) {
	case nil:
		return "ok"
	case errs.ErrUnauthorized:
		return "unauthorized"
	case errs.ErrNotFound:
		return "not_found"
	case errs.ErrConflict:
		return "conflict"
	case errs.ErrValidation:
		return "validation"
	case errs.ErrBusy:
		return "busy"
	default:
		return "transient"
	}
}

// WithLogging wraps gw so every call is logged with its duration and error
// class and counted in m. A panic inside gw is recovered and reported as a
// transient error. m may be nil.
func WithLogging(gw Gateway, log *zap.Logger, m *metrics.Metrics) Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &logged{next: gw, log: log, m: m}
}

type logged struct {
	next Gateway
	log  *zap.Logger
	m    *metrics.Metrics
}

// observe runs fn and records it. Only ids go to the log, never tokens,
// passwords or message bodies.
func (g *logged) observe(op string, fields []zap.Field, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("gateway panic",
				zap.String("op", op),
				zap.Any("reason", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("%s: %w", op, errs.ErrTransient)
		}
		res := Result(err)
		g.m.Request(op, res)
		all := append([]zap.Field{
			zap.String("op", op),
			zap.String("result", res),
			zap.Duration("dur", time.Since(start)),
		}, fields...)
		if err != nil {
			g.log.Info("gateway", append(all, zap.Error(err))...)
			return
		}
		g.log.Debug("gateway", all...)
	}()
	return fn()
}

func (g *logged) FetchProducts(ctx context.Context, token string) (out []model.Product, err error) {
	err = g.observe("fetch_products", []zap.Field{zap.Bool("authed", token != "")}, func() error {
		out, err = g.next.FetchProducts(ctx, token)
		return err
	})
	return out, err
}

func (g *logged) CreateProduct(ctx context.Context, p model.NewProduct) (out model.Product, err error) {
	err = g.observe("create_product", []zap.Field{zap.String("seller", p.SellerID)}, func() error {
		out, err = g.next.CreateProduct(ctx, p)
		return err
	})
	return out, err
}

func (g *logged) ToggleLike(ctx context.Context, productID, token string) (out model.LikeState, err error) {
	err = g.observe("toggle_like", []zap.Field{zap.String("product", productID)}, func() error {
		out, err = g.next.ToggleLike(ctx, productID, token)
		return err
	})
	return out, err
}

func (g *logged) PurchaseProduct(ctx context.Context, productID, token string) (out model.Receipt, err error) {
	err = g.observe("purchase_product", []zap.Field{zap.String("product", productID)}, func() error {
		out, err = g.next.PurchaseProduct(ctx, productID, token)
		return err
	})
	return out, err
}

func (g *logged) FetchMessages(ctx context.Context, otherUserID, productID, token string) (out []model.Message, err error) {
	err = g.observe("fetch_messages", []zap.Field{zap.String("other", otherUserID), zap.String("product", productID)}, func() error {
		out, err = g.next.FetchMessages(ctx, otherUserID, productID, token)
		return err
	})
	return out, err
}

func (g *logged) SendMessage(ctx context.Context, toUserID, productID, body, token string) (out model.Message, err error) {
	err = g.observe("send_message", []zap.Field{zap.String("to", toUserID), zap.String("product", productID)}, func() error {
		out, err = g.next.SendMessage(ctx, toUserID, productID, body, token)
		return err
	})
	return out, err
}

func (g *logged) FetchUserByID(ctx context.Context, userID string) (out model.Profile, err error) {
	err = g.observe("fetch_user", []zap.Field{zap.String("user", userID)}, func() error {
		out, err = g.next.FetchUserByID(ctx, userID)
		return err
	})
	return out, err
}

func (g *logged) FetchProductChats(ctx context.Context, productID, token string) (out []model.ChatUser, err error) {
	err = g.observe("fetch_product_chats", []zap.Field{zap.String("product", productID)}, func() error {
		out, err = g.next.FetchProductChats(ctx, productID, token)
		return err
	})
	return out, err
}

func (g *logged) Login(ctx context.Context, userID, password string) (out string, err error) {
	err = g.observe("login", []zap.Field{zap.String("user", userID)}, func() error {
		out, err = g.next.Login(ctx, userID, password)
		return err
	})
	return out, err
}

func (g *logged) Signup(ctx context.Context, userID, password, displayName, mbti string) error {
	return g.observe("signup", []zap.Field{zap.String("user", userID)}, func() error {
		return g.next.Signup(ctx, userID, password, displayName, mbti)
	})
}

func (g *logged) FetchMe(ctx context.Context, token string) (out model.Profile, err error) {
	err = g.observe("fetch_me", nil, func() error {
		out, err = g.next.FetchMe(ctx, token)
		return err
	})
	return out, err
}
