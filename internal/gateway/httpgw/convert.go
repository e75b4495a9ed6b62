package httpgw

import (
	"time"

	"github.com/and161185/fleamarket/internal/model"
)

// --- wire types ---

type productDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Price       int    `json:"price"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
	SellerID    string `json:"sellerId"`
	Status      string `json:"status,omitempty"`
	LikeCount   int    `json:"likeCount,omitempty"`
	LikedByMe   bool   `json:"likedByMe,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

type newProductDTO struct {
	Title       string `json:"title"`
	Price       int    `json:"price"`
	Description string `json:"description"`
	SellerID    string `json:"sellerId"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Status      string `json:"status,omitempty"`
}

type likeDTO struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

type messageDTO struct {
	ID         string `json:"id"`
	ProductID  string `json:"productId"`
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
	Body       string `json:"body"`
	CreatedAt  string `json:"createdAt"`
}

type sendDTO struct {
	ToUserID  string `json:"toUserId"`
	ProductID string `json:"productId"`
	Body      string `json:"body"`
}

type profileDTO struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	MBTI        string `json:"mbti"`
}

type chatUserDTO struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type credentialsDTO struct {
	UserID      string `json:"userId"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
	MBTI        string `json:"mbti,omitempty"`
}

type tokenDTO struct {
	Token string `json:"token"`
}

type productRefDTO struct {
	ProductID string `json:"productId"`
}

type statusDTO struct {
	Status string `json:"status"`
}

type summaryDTO struct {
	Text string `json:"text"`
}

// --- helpers ---

// parseTime accepts RFC 3339 with or without fractional seconds; anything
// else yields the zero time rather than failing the whole response.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// --- conversions ---

func fromProductDTO(in productDTO) model.Product {
	st := model.Status(in.Status)
	if st == "" {
		st = model.StatusAvailable
	}
	return model.Product{
		ID:          in.ID,
		Title:       in.Title,
		Price:       in.Price,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		SellerID:    in.SellerID,
		Status:      st,
		LikeCount:   max(in.LikeCount, 0),
		LikedByMe:   in.LikedByMe,
		CreatedAt:   parseTime(in.CreatedAt),
	}
}

func fromProductDTOs(in []productDTO) []model.Product {
	out := make([]model.Product, 0, len(in))
	for _, p := range in {
		out = append(out, fromProductDTO(p))
	}
	return out
}

func toNewProductDTO(in model.NewProduct) newProductDTO {
	return newProductDTO{
		Title:       in.Title,
		Price:       in.Price,
		Description: in.Description,
		SellerID:    in.SellerID,
		ImageURL:    in.ImageURL,
		Status:      string(in.Status),
	}
}

func fromMessageDTO(in messageDTO) model.Message {
	return model.Message{
		ID:         in.ID,
		ProductID:  in.ProductID,
		FromUserID: in.FromUserID,
		ToUserID:   in.ToUserID,
		Body:       in.Body,
		CreatedAt:  parseTime(in.CreatedAt),
	}
}

func fromMessageDTOs(in []messageDTO) []model.Message {
	out := make([]model.Message, 0, len(in))
	for _, m := range in {
		out = append(out, fromMessageDTO(m))
	}
	return out
}

func fromProfileDTO(in profileDTO) model.Profile {
	return model.Profile{UserID: in.UserID, DisplayName: in.DisplayName, MBTI: in.MBTI}
}

func fromChatUserDTOs(in []chatUserDTO) []model.ChatUser {
	out := make([]model.ChatUser, 0, len(in))
	for _, u := range in {
		out = append(out, model.ChatUser{UserID: u.UserID, DisplayName: u.DisplayName})
	}
	return out
}
