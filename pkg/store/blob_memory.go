package store

import (
	"context"
	"sync"
)

// MemoryBlobStore is an in-process BlobStore. It records how many times each
// operation was called, which makes it useful in tests.
type MemoryBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	Gets    int
	Puts    int
	Deletes int

	// Optional error injection, returned instead of performing the operation.
	GetErr    error
	PutErr    error
	DeleteErr error
}

var _ BlobStore = (*MemoryBlobStore)(nil)

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{
		blobs: map[string][]byte{},
	}
}

func (m *MemoryBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	b, ok := m.blobs[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return append([]byte{}, b...), nil
}

func (m *MemoryBlobStore) Put(ctx context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Puts++
	if m.PutErr != nil {
		return m.PutErr
	}
	m.blobs[key] = append([]byte{}, body...)
	return nil
}

func (m *MemoryBlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.blobs, key)
	return nil
}

// Raw returns the stored bytes without counting as a Get.
func (m *MemoryBlobStore) Raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	return b, ok
}

// Seed stores bytes without counting as a Put.
func (m *MemoryBlobStore) Seed(key string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte{}, body...)
}

func (m *MemoryBlobStore) ResetCounters() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets, m.Puts, m.Deletes = 0, 0, 0
}
