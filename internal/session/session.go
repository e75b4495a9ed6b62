// Package session keeps the bearer token and current user id across restarts.
package session

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Store is the process-wide session. Reads are side-effect free; Set and
// Clear change token and user id together so no reader ever sees one without
// the other.
type Store interface {
	// Token returns the bearer token and whether one is stored.
	Token() (string, bool)
	// UserID returns the current user id, or "" when signed out.
	UserID() string
	// Set persists token and user id atomically.
	Set(token, userID string) error
	// Clear removes token, user id and cached preferences.
	Clear() error
	// MBTI returns the cached personality type chosen at signup.
	MBTI() string
	// SetMBTI caches the personality type.
	SetMBTI(mbti string) error
}

// Snapshot is the persisted form shared by the file and pebble backends.
type Snapshot struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	MBTI   string `json:"mbti,omitempty"`
}

// ConfigDir returns the directory that holds client state.
func ConfigDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "fleamarket")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "fleamarket")
}

// Expired reports whether token is a JWT whose exp claim is in the past.
// The signature is not verified: the server stays the authority, this only
// lets the client notice a dead session without a round trip.
func Expired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

// MemStore is a Store held in process memory.
type MemStore struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewMemStore returns a MemStore seeded with token and userID (both may be empty).
func NewMemStore(token, userID string) *MemStore {
	return &MemStore{snap: Snapshot{Token: token, UserID: userID}}
}

func (m *MemStore) Token() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Token, m.snap.Token != ""
}

func (m *MemStore) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.UserID
}

func (m *MemStore) Set(token, userID string) error {
	m.mu.Lock()
	m.snap.Token, m.snap.UserID = token, userID
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Clear() error {
	m.mu.Lock()
	m.snap = Snapshot{}
	m.mu.Unlock()
	return nil
}

func (m *MemStore) MBTI() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.MBTI
}

func (m *MemStore) SetMBTI(mbti string) error {
	m.mu.Lock()
	m.snap.MBTI = mbti
	m.mu.Unlock()
	return nil
}
