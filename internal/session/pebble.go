package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

var (
	keyToken  = []byte("session:token")
	keyUserID = []byte("session:user_id")
	keyMBTI   = []byte("session:mbti")
)

// PebbleStore keeps the session in a pebble database. Set and Clear commit a
// single synced batch, which gives the all-or-nothing update Store requires.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) the session database at path.
func OpenPebble(path string, opts *pebble.Options) (*PebbleStore, error) {
	if opts == nil {
		opts = &pebble.Options{}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Close closes the database.
func (p *PebbleStore) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *PebbleStore) get(k []byte) string {
	v, closer, err := p.db.Get(k)
	if err != nil {
		return ""
	}
	defer closer.Close()
	return string(v)
}

func (p *PebbleStore) Token() (string, bool) {
	t := p.get(keyToken)
	return t, t != ""
}

func (p *PebbleStore) UserID() string {
	if _, ok := p.Token(); !ok {
		return ""
	}
	return p.get(keyUserID)
}

func (p *PebbleStore) Set(token, userID string) error {
	b := p.db.NewBatch()
	defer b.Close()
	if err := b.Set(keyToken, []byte(token), nil); err != nil {
		return err
	}
	if err := b.Set(keyUserID, []byte(userID), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

func (p *PebbleStore) Clear() error {
	b := p.db.NewBatch()
	defer b.Close()
	for _, k := range [][]byte{keyToken, keyUserID, keyMBTI} {
		if err := b.Delete(k, nil); err != nil && !errors.Is(err, pebble.ErrNotFound) {
			return err
		}
	}
	return b.Commit(pebble.Sync)
}

func (p *PebbleStore) MBTI() string { return p.get(keyMBTI) }

func (p *PebbleStore) SetMBTI(mbti string) error {
	return p.db.Set(keyMBTI, []byte(mbti), pebble.Sync)
}
