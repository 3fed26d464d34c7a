package file

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/c360/filestreams/errors"
	"github.com/c360/filestreams/natsclient"
)

// SeenStore remembers which files a source has already emitted. Only the
// poll loop mutates it.
type SeenStore interface {
	Contains(ctx context.Context, path string) (bool, error)
	Add(ctx context.Context, path string) error
	// Retain forgets every path not in present
	Retain(ctx context.Context, present map[string]struct{}) error
}

// MemorySeenStore keeps the seen-set for the lifetime of the process
type MemorySeenStore struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewMemorySeenStore creates an empty in-process seen-set
func NewMemorySeenStore() *MemorySeenStore {
	return &MemorySeenStore{paths: make(map[string]struct{})}
}

// Contains implements SeenStore
func (s *MemorySeenStore) Contains(_ context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.paths[path]
	return ok, nil
}

// Add implements SeenStore
func (s *MemorySeenStore) Add(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[path] = struct{}{}
	return nil
}

// Retain implements SeenStore
func (s *MemorySeenStore) Retain(_ context.Context, present map[string]struct{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path := range s.paths {
		if _, ok := present[path]; !ok {
			delete(s.paths, path)
		}
	}
	return nil
}

// Len returns the number of remembered paths
func (s *MemorySeenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

// KVSeenStore keeps the seen-set in a NATS KV bucket so it survives
// restarts. Keys are "<root digest>.<path digest>" so several sources can
// share one bucket; the value is the path itself.
type KVSeenStore struct {
	kv     *natsclient.KVStore
	prefix string
}

// NewKVSeenStore creates a seen-set for the directory root inside kv
func NewKVSeenStore(kv *natsclient.KVStore, root string) *KVSeenStore {
	return &KVSeenStore{kv: kv, prefix: digest(root) + "."}
}

func digest(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

func (s *KVSeenStore) key(path string) string {
	return s.prefix + digest(path)
}

// Contains implements SeenStore
func (s *KVSeenStore) Contains(ctx context.Context, path string) (bool, error) {
	_, err := s.kv.Get(ctx, s.key(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, natsclient.ErrKVKeyNotFound) {
		return false, nil
	}
	return false, errors.WrapTransient(err, "KVSeenStore", "Contains", "kv get")
}

// Add implements SeenStore
func (s *KVSeenStore) Add(ctx context.Context, path string) error {
	if _, err := s.kv.Put(ctx, s.key(path), []byte(path)); err != nil {
		return errors.WrapTransient(err, "KVSeenStore", "Add", "kv put")
	}
	return nil
}

// Retain implements SeenStore
func (s *KVSeenStore) Retain(ctx context.Context, present map[string]struct{}) error {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return errors.WrapTransient(err, "KVSeenStore", "Retain", "kv list keys")
	}

	keep := make(map[string]struct{}, len(present))
	for path := range present {
		keep[s.key(path)] = struct{}{}
	}

	for _, key := range keys {
		if !strings.HasPrefix(key, s.prefix) {
			continue
		}
		if _, ok := keep[key]; ok {
			continue
		}
		if err := s.kv.Delete(ctx, key); err != nil {
			return errors.WrapTransient(err, "KVSeenStore", "Retain", "kv delete")
		}
	}
	return nil
}
