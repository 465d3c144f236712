package receipt

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// BlobStore persists receipt images and documents. Put returns an opaque
// reference that Exists accepts back.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Exists(ctx context.Context, ref string) (bool, error)
}

const memoryScheme = "mem://"

type blob struct {
	contentType string
	data        []byte
}

// MemoryStore keeps blobs in process. Used in development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]blob)}
}

func (m *MemoryStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.blobs[key] = blob{contentType: contentType, data: cp}
	m.mu.Unlock()
	return memoryScheme + key, nil
}

func (m *MemoryStore) Exists(_ context.Context, ref string) (bool, error) {
	key, ok := strings.CutPrefix(ref, memoryScheme)
	if !ok {
		return false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, found := m.blobs[key]
	return found, nil
}

// Get returns a stored blob and its content type.
func (m *MemoryStore) Get(ref string) ([]byte, string, error) {
	key, _ := strings.CutPrefix(ref, memoryScheme)
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, "", fmt.Errorf("blob %s not found", ref)
	}
	return b.data, b.contentType, nil
}

// Len reports how many blobs are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// objectKey splits "scheme://bucket/key" refs produced by the cloud stores.
func objectKey(ref, scheme, bucket string) (string, bool) {
	rest, ok := strings.CutPrefix(ref, scheme+bucket+"/")
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}
