package docstore

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"certverify/pkg/platform/sentinel"
)

// InMemory keeps blobs in process memory. Dev and test use only.
type InMemory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{blobs: make(map[string][]byte)}
}

func (s *InMemory) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read blob: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return key, nil
}

func (s *InMemory) PresignGet(_ context.Context, ref string, _ time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.blobs[ref]; !ok {
		return "", sentinel.ErrNotFound
	}
	// No real URL to hand out; a stable fake keeps handler tests meaningful.
	return "memory://" + ref, nil
}

func (s *InMemory) Health(context.Context) error { return nil }

// Get returns the stored blob; used by tests to assert upload contents.
func (s *InMemory) Get(ref string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[ref]
	return data, ok
}
