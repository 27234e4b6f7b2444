package service

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is a mutex-guarded in-memory Store used in tests and for
// local development without a storage backend.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.data[key]
	if ok {
		delete(s.data, key)
	}
	return ok, nil
}

func (s *MemoryStore) ListPrefix(ctx context.Context, prefix string) ([]Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, Pair{Key: k, Value: append([]byte(nil), s.data[k]...)})
	}
	return pairs, nil
}

func (s *MemoryStore) Apply(ctx context.Context, ops []Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every conditional op before mutating anything so a failed
	// batch leaves no partial writes.
	for _, op := range ops {
		if op.Kind == OpPutIfAbsent {
			if _, ok := s.data[op.Key]; ok {
				return ErrKeyExists
			}
		}
	}

	for _, op := range ops {
		switch op.Kind {
		case OpPut, OpPutIfAbsent:
			s.data[op.Key] = append([]byte(nil), op.Value...)
		case OpDelete:
			delete(s.data, op.Key)
		}
	}
	return nil
}
