package artifact

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (s *MemoryStore) Put(_ context.Context, bundleID, name string, content []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	key, err := objectKey(bundleID, name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, bundleID, name string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	key, err := objectKey(bundleID, name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) List(_ context.Context, bundleID string) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	bundleID = strings.TrimSpace(bundleID)
	if bundleID == "" {
		return nil, fmt.Errorf("bundle_id is required")
	}
	prefix := bundleID + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, 8)
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			out = append(out, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(out)
	return out, nil
}

// GetURL returns "" because memory bundles are only reachable through Get.
func (s *MemoryStore) GetURL(context.Context, string, string) (string, error) {
	return "", nil
}
