// Package httpgw implements gateway.Gateway against the marketplace REST API.
package httpgw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/and161185/fleamarket/internal/errs"
	"github.com/and161185/fleamarket/internal/gateway"
	"github.com/and161185/fleamarket/internal/model"
)

// maxErrBody bounds how much of an error response is kept for the message.
const maxErrBody = 512

// Client talks to the REST backend. The http.Client timeout is the only
// timeout on the client side.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

var _ gateway.Gateway = (*Client)(nil)

// New creates a client for baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// StatusError is a non-2xx response.
type StatusError struct {
	Op     string
	Status int
	Body   string
	kind   error
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, msg)
}

// Unwrap exposes the sentinel so errors.Is works against errs.
func (e *StatusError) Unwrap() error { return e.kind }

// classifyStatus maps an HTTP status and body onto the error taxonomy.
func classifyStatus(status int, body string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errs.ErrUnauthorized
	case status == http.StatusNotFound:
		return errs.ErrNotFound
	case status == http.StatusConflict,
		strings.Contains(strings.ToLower(body), "already sold"),
		strings.Contains(strings.ToLower(body), "already exists"):
		return errs.ErrConflict
	default:
		return errs.ErrTransient
	}
}

// do sends a request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, token string, in, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s: %w: %w", op, errs.ErrTransient, context.Canceled)
		}
		return fmt.Errorf("%s: %w: %v", op, errs.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return &StatusError{
			Op:     op,
			Status: resp.StatusCode,
			Body:   string(b),
			kind:   classifyStatus(resp.StatusCode, string(b)),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w: %v", op, errs.ErrTransient, err)
	}
	return nil
}

func (c *Client) FetchProducts(ctx context.Context, token string) ([]model.Product, error) {
	var out []productDTO
	if err := c.do(ctx, "fetch_products", http.MethodGet, "/products", nil, token, nil, &out); err != nil {
		return nil, err
	}
	return fromProductDTOs(out), nil
}

func (c *Client) CreateProduct(ctx context.Context, p model.NewProduct) (model.Product, error) {
	var out productDTO
	if err := c.do(ctx, "create_product", http.MethodPost, "/products", nil, "", toNewProductDTO(p), &out); err != nil {
		return model.Product{}, err
	}
	return fromProductDTO(out), nil
}

func (c *Client) ToggleLike(ctx context.Context, productID, token string) (model.LikeState, error) {
	if token == "" {
		return model.LikeState{}, fmt.Errorf("toggle_like: %w", errs.ErrUnauthorized)
	}
	var out likeDTO
	if err := c.do(ctx, "toggle_like", http.MethodPost, "/likes", nil, token, productRefDTO{ProductID: productID}, &out); err != nil {
		return model.LikeState{}, err
	}
	return model.LikeState{Liked: out.Liked, Count: max(out.LikeCount, 0)}, nil
}

func (c *Client) PurchaseProduct(ctx context.Context, productID, token string) (model.Receipt, error) {
	if token == "" {
		return model.Receipt{}, fmt.Errorf("purchase_product: %w", errs.ErrUnauthorized)
	}
	var out statusDTO
	if err := c.do(ctx, "purchase_product", http.MethodPost, "/purchase", nil, token, productRefDTO{ProductID: productID}, &out); err != nil {
		return model.Receipt{}, err
	}
	st := model.Status(out.Status)
	if st == "" {
		st = model.StatusSold
	}
	return model.Receipt{ProductID: productID, Status: st}, nil
}

func (c *Client) FetchMessages(ctx context.Context, otherUserID, productID, token string) ([]model.Message, error) {
	q := url.Values{}
	q.Set("otherUserId", otherUserID)
	q.Set("productId", productID)
	var out []messageDTO
	if err := c.do(ctx, "fetch_messages", http.MethodGet, "/messages", q, token, nil, &out); err != nil {
		return nil, err
	}
	return fromMessageDTOs(out), nil
}

func (c *Client) SendMessage(ctx context.Context, toUserID, productID, body, token string) (model.Message, error) {
	var out messageDTO
	in := sendDTO{ToUserID: toUserID, ProductID: productID, Body: body}
	if err := c.do(ctx, "send_message", http.MethodPost, "/messages", nil, token, in, &out); err != nil {
		return model.Message{}, err
	}
	return fromMessageDTO(out), nil
}

func (c *Client) FetchUserByID(ctx context.Context, userID string) (model.Profile, error) {
	var out profileDTO
	if err := c.do(ctx, "fetch_user", http.MethodGet, "/users/"+url.PathEscape(userID), nil, "", nil, &out); err != nil {
		return model.Profile{}, err
	}
	return fromProfileDTO(out), nil
}

func (c *Client) FetchProductChats(ctx context.Context, productID, token string) ([]model.ChatUser, error) {
	q := url.Values{}
	q.Set("productId", productID)
	// the backend encodes an empty result as null
	var out []chatUserDTO
	if err := c.do(ctx, "fetch_product_chats", http.MethodGet, "/product-chats", q, token, nil, &out); err != nil {
		return nil, err
	}
	return fromChatUserDTOs(out), nil
}

func (c *Client) Login(ctx context.Context, userID, password string) (string, error) {
	var out tokenDTO
	if err := c.do(ctx, "login", http.MethodPost, "/login", nil, "", credentialsDTO{UserID: userID, Password: password}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("login: empty token: %w", errs.ErrUnauthorized)
	}
	return out.Token, nil
}

func (c *Client) Signup(ctx context.Context, userID, password, displayName, mbti string) error {
	in := credentialsDTO{UserID: userID, Password: password, DisplayName: displayName, MBTI: mbti}
	return c.do(ctx, "signup", http.MethodPost, "/signup", nil, "", in, nil)
}

func (c *Client) FetchMe(ctx context.Context, token string) (model.Profile, error) {
	var out profileDTO
	if err := c.do(ctx, "fetch_me", http.MethodGet, "/me", nil, token, nil, &out); err != nil {
		return model.Profile{}, err
	}
	return fromProfileDTO(out), nil
}

// Summarize implements views.Summarizer via the backend's AI endpoint.
func (c *Client) Summarize(ctx context.Context, productID string) (string, error) {
	var out summaryDTO
	if err := c.do(ctx, "summarize", http.MethodPost, "/ai/product-summary", nil, "", productRefDTO{ProductID: productID}, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}
