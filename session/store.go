package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultKey is the single storage key holding the serialized session.
const DefaultKey = "canteen.session"

// Store persists one session object.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

// FileStore keeps the session as JSON in <dir>/<key>.json. A missing file
// means logged out.
type FileStore struct {
	dir string
	key string
	mu  sync.Mutex
}

func NewFileStore(dir, key string) *FileStore {
	if key == "" {
		key = DefaultKey
	}
	return &FileStore{dir: dir, key: key}
}

func (fs *FileStore) path() string {
	return filepath.Join(fs.dir, fs.key+".json")
}

func (fs *FileStore) Load(_ context.Context) (*Session, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	raw, err := os.ReadFile(fs.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", fs.path(), err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	return &s, nil
}

func (fs *FileStore) Save(_ context.Context, s *Session) error {
	if s == nil {
		return errors.New("session: nil session")
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := os.MkdirAll(fs.dir, 0o700); err != nil {
		return fmt.Errorf("session: create dir: %w", err)
	}
	tmp := fs.path() + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	return os.Rename(tmp, fs.path())
}

func (fs *FileStore) Clear(_ context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := os.Remove(fs.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

// MemoryStore is a Store for tests and short-lived processes.
type MemoryStore struct {
	mu sync.Mutex
	s  *Session
}

func NewMemoryStore(initial *Session) *MemoryStore {
	return &MemoryStore{s: initial}
}

func (ms *MemoryStore) Load(_ context.Context) (*Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.s == nil {
		return nil, ErrNoSession
	}
	cp := *ms.s
	return &cp, nil
}

func (ms *MemoryStore) Save(_ context.Context, s *Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if s == nil {
		ms.s = nil
		return nil
	}
	cp := *s
	ms.s = &cp
	return nil
}

func (ms *MemoryStore) Clear(_ context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.s = nil
	return nil
}
