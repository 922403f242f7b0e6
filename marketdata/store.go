package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store is the durable side of the cache: an opaque document per bucket
// key, with a time-to-live. Implementation and durability are external
// concerns; the loader only relies on Get and Set.
type Store interface {
	// Get returns the document stored under key, or nil when there is
	// none. A failure to reach the store should wrap ErrStoreUnavailable.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores the document under key. The ttl is advisory for stores
	// that expire whole documents; per-entry expiry inside the document is
	// the loader's concern.
	Set(ctx context.Context, key string, doc []byte, ttl time.Duration) error
}

// MemStore is an in-memory Store, used in tests and as a process-local
// cache when no durable store is configured.
type MemStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string][]byte)}
}

// Get implements Store.
func (s *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[key], nil
}

// Set implements Store.
func (s *MemStore) Set(_ context.Context, key string, doc []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = make([]byte, len(doc))
	copy(s.docs[key], doc)
	return nil
}

// DiskStore persists one file per bucket key in a directory, so the cache
// survives across runs. Expiry is carried inside the documents, so files
// are written as-is.
type DiskStore struct {
	Dir string
}

// Get implements Store.
func (s DiskStore) Get(_ context.Context, key string) ([]byte, error) {
	content, err := os.ReadFile(s.file(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read cache bucket %q: %w: %v", key, ErrStoreUnavailable, err)
	}
	return content, nil
}

// Set implements Store.
func (s DiskStore) Set(_ context.Context, key string, doc []byte, _ time.Duration) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("cannot create cache dir %q: %w: %v", s.Dir, ErrStoreUnavailable, err)
	}
	if err := os.WriteFile(s.file(key), doc, 0o644); err != nil {
		return fmt.Errorf("cannot write cache bucket %q: %w: %v", key, ErrStoreUnavailable, err)
	}
	return nil
}

func (s DiskStore) file(key string) string {
	return filepath.Join(s.Dir, key+".json")
}
