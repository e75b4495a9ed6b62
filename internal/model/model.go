// Package model defines domain entities shared by the gateway, caches and views.
package model

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a listing.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusConsidering Status = "considering" // price not decided yet
	StatusSold        Status = "sold"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusConsidering, StatusSold:
		return true
	}
	return false
}

// Product is a listing as last seen by the client. LikeCount and LikedByMe may
// transiently hold a speculative value while a like toggle is in flight.
type Product struct {
	ID          string
	Title       string
	Price       int
	Description string
	ImageURL    string // optional
	SellerID    string
	Status      Status
	LikeCount   int
	LikedByMe   bool // false for anonymous callers
	CreatedAt   time.Time
}

// Likes returns the optimistic pair of the product.
func (p Product) Likes() LikeState {
	return LikeState{Liked: p.LikedByMe, Count: p.LikeCount}
}

// WithLikes returns a copy of p carrying the given like state.
func (p Product) WithLikes(s LikeState) Product {
	p.LikedByMe, p.LikeCount = s.Liked, s.Count
	return p
}

// Matches reports whether the title or description contains q, case-insensitively.
func (p Product) Matches(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Description), q)
}

// LikeState is the server's answer to a like toggle.
type LikeState struct {
	Liked bool
	Count int
}

// NewProduct carries the fields of a listing to create.
type NewProduct struct {
	Title       string
	Price       int
	Description string
	SellerID    string
	ImageURL    string
	Status      Status // empty means available
}

// Message is a direct message about a product; immutable once created.
type Message struct {
	ID         string
	ProductID  string
	FromUserID string
	ToUserID   string
	Body       string
	CreatedAt  time.Time
}

// Profile is the public view of a user.
type Profile struct {
	UserID      string
	DisplayName string
	MBTI        string
}

// Name returns the display name, falling back to the user id.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.UserID
}

// ChatUser is a counterpart who has messaged about a product.
type ChatUser struct {
	UserID      string
	DisplayName string
}

// Receipt confirms a purchase.
type Receipt struct {
	ProductID string
	Status    Status
}

// MBTITypes lists the sixteen accepted personality types offered at signup.
var MBTITypes = []string{
	"INTJ", "INTP", "ENTJ", "ENTP",
	"INFJ", "INFP", "ENFJ", "ENFP",
	"ISTJ", "ISFJ", "ESTJ", "ESFJ",
	"ISTP", "ISFP", "ESTP", "ESFP",
}

// ValidMBTI reports whether s is one of MBTITypes (case-insensitive).
func ValidMBTI(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, m := range MBTITypes {
		if m == s {
			return true
		}
	}
	return false
}
