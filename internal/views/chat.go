package views

import (
	"context"

	"github.com/and161185/fleamarket/internal/cache"
	"github.com/and161185/fleamarket/internal/model"
	"github.com/and161185/fleamarket/internal/mutation"
	"github.com/and161185/fleamarket/internal/screen"
)

// Inbox lists the users who messaged the seller about one listing.
type Inbox struct {
	env   *Env
	ctx   context.Context
	scope *cache.Scope

	ProductID string
	Users     []model.ChatUser
	Loading   bool
	Err       string
}

func NewInbox(env *Env, s screen.Inbox) *Inbox { return &Inbox{env: env, ProductID: s.ProductID} }

func (v *Inbox) Screen() screen.Screen { return screen.Inbox{ProductID: v.ProductID} }

func (v *Inbox) Mount(ctx context.Context) {
	v.ctx, v.scope = ctx, cache.NewScope()
	v.Refresh()
}

func (v *Inbox) Unmount() { v.scope.Close() }

func (v *Inbox) Refresh() {
	v.Loading, v.Err = true, ""
	tk := v.scope.Ticket()
	fetch(v.env, v.ctx, tk.Stale,
		func(ctx context.Context) ([]model.ChatUser, error) {
			return v.env.Gateway.FetchProductChats(ctx, v.ProductID, v.env.token())
		},
		func(users []model.ChatUser, err error) {
			v.Loading = false
			if err != nil {
				v.Err = v.env.fail(err)
				return
			}
			v.Users = users
		},
	)
}

// Open starts the chat with the i-th user.
func (v *Inbox) Open(i int) {
	if i < 0 || i >= len(v.Users) {
		v.Err = "no such conversation"
		return
	}
	u := v.Users[i]
	s, err := screen.NewChat(u.UserID, u.DisplayName, v.ProductID)
	if err != nil {
		v.Err = err.Error()
		return
	}
	v.env.navigate(s)
}

func (v *Inbox) Back() { v.env.navigate(screen.ProductDetail{ProductID: v.ProductID}) }

// Chat is the conversation with one user about one listing. Messages are
// append-only; a sent message appears once the server has stored it.
type Chat struct {
	env      *Env
	ctx      context.Context
	scope    *cache.Scope
	messages *cache.Cache[string, model.Message]

	OtherUserID   string
	OtherUserName string
	ProductID     string
	Loading       bool
	Err           string
}

func NewChat(env *Env, s screen.Chat) *Chat {
	return &Chat{env: env, OtherUserID: s.OtherUserID, OtherUserName: s.OtherUserName, ProductID: s.ProductID}
}

func (v *Chat) Screen() screen.Screen {
	return screen.Chat{OtherUserID: v.OtherUserID, OtherUserName: v.OtherUserName, ProductID: v.ProductID}
}

func (v *Chat) Mount(ctx context.Context) {
	v.ctx, v.scope = ctx, cache.NewScope()
	v.messages = cache.New[string, model.Message]()
	v.Refresh()
}

func (v *Chat) Unmount() { v.scope.Close() }

// Refresh refetches the conversation.
func (v *Chat) Refresh() {
	v.Loading, v.Err = true, ""
	tk := v.scope.Ticket()
	fetch(v.env, v.ctx, tk.Stale,
		func(ctx context.Context) ([]model.Message, error) {
			return v.env.Gateway.FetchMessages(ctx, v.OtherUserID, v.ProductID, v.env.token())
		},
		func(msgs []model.Message, err error) {
			v.Loading = false
			if err != nil {
				v.Err = v.env.fail(err)
				return
			}
			v.messages.Replace(msgs, func(m model.Message) string { return m.ID })
		},
	)
}

// Messages returns the conversation, oldest first.
func (v *Chat) Messages() []model.Message { return v.messages.Values() }

// Mine reports whether m was sent by the current user.
func (v *Chat) Mine(m model.Message) bool { return m.FromUserID == v.env.userID() }

// Sending reports whether a send is in flight; the send control is
// disabled meanwhile.
func (v *Chat) Sending() bool {
	k := mutation.Key{EntityID: mutation.ConversationID(v.OtherUserID, v.ProductID), Kind: mutation.KindSend}
	return v.env.Mutations.Phase(k) != mutation.Idle
}

// Send posts body. Blank input is rejected without a request.
func (v *Chat) Send(body string) {
	err := v.env.Mutations.Send(v.ctx, v.scope, v.messages, v.OtherUserID, v.ProductID, body, v.env.token(),
		func(_ model.Message, err error) {
			if v.scope.Closed() {
				return
			}
			if err != nil {
				v.Err = v.env.fail(err)
			}
			v.env.changed()
		})
	if err != nil {
		v.Err = v.env.fail(err)
		return
	}
	v.Err = ""
}

func (v *Chat) Product() { v.env.navigate(screen.ProductDetail{ProductID: v.ProductID}) }
