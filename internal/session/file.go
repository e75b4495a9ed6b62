package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the session in a single JSON file. Every read goes to disk,
// so a file removed by another process is noticed at the next check.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by dir/session.json.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, "session.json")}
}

// Path returns the session file location.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) load() Snapshot {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return Snapshot{}
	}
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}
	}
	if s.Token == "" {
		// a user id without a token is not a session
		return Snapshot{MBTI: s.MBTI}
	}
	return s
}

// save writes to a temp file and renames it over the old one, so readers see
// either the previous session or the new one.
func (f *FileStore) save(s Snapshot) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "session-*.tmp")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FileStore) Token() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.load()
	return s.Token, s.Token != ""
}

func (f *FileStore) UserID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load().UserID
}

func (f *FileStore) Set(token, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.load()
	s.Token, s.UserID = token, userID
	return f.save(s)
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FileStore) MBTI() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load().MBTI
}

func (f *FileStore) SetMBTI(mbti string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.load()
	s.MBTI = mbti
	return f.save(s)
}
