package secretstore

import (
	"context"
	"maps"
	"sync"

	"github.com/dmitrijs2005/tracekeeper/internal/common"
)

// MemoryBackend keeps documents in process memory. Keys do not survive a
// restart, so tokens issued before it become undecodable.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string]map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: map[string]map[string]string{}}
}

func (m *MemoryBackend) Read(_ context.Context, path string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[path]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return maps.Clone(doc), nil
}

func (m *MemoryBackend) Write(_ context.Context, path string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[path] = maps.Clone(data)
	return nil
}
