package store

import "sync"

// Blob is the underlying key-value persistence substrate. It holds one
// JSON document per key; the app uses a single namespaced key for the
// whole application state, plus a sentinel key for availability probes.
type Blob interface {
	// Read returns the document for key, or ok=false when absent.
	Read(key string) ([]byte, bool, error)
	// Write stores the document for key, replacing any previous value.
	Write(key string, data []byte) error
	// Delete removes the document for key. Deleting an absent key is
	// not an error.
	Delete(key string) error
}

// MemoryBlob is an in-memory substrate. It backs tests and the degraded
// no-persistence mode used when the database is unreachable at startup.
type MemoryBlob struct {
	mu   sync.RWMutex
	data map[string][]byte

	// ReadErr / WriteErr force failures; tests use them to exercise the
	// storage-failure paths.
	ReadErr  error
	WriteErr error
}

func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{data: map[string][]byte{}}
}

func (m *MemoryBlob) Read(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ReadErr != nil {
		return nil, false, m.ReadErr
	}
	d, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), d...), true, nil
}

func (m *MemoryBlob) Write(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBlob) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	delete(m.data, key)
	return nil
}
