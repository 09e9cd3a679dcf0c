package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const memoryURIPrefix = "blob:omnimedia/"

type memoryEntry struct {
	handle Handle
	data   []byte
}

// MemoryStore keeps artifacts in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

func (s *MemoryStore) Put(ctx context.Context, data []byte, mimeType, sourceURI string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("artifact is empty")
	}
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}

	id := uuid.NewString()
	copied := make([]byte, len(data))
	copy(copied, data)

	handle := Handle{
		ID:        id,
		URI:       memoryURIPrefix + id,
		MIMEType:  mimeType,
		Size:      int64(len(copied)),
		SourceURI: sourceURI,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.entries[id] = &memoryEntry{handle: handle, data: copied}
	s.mu.Unlock()

	return &handle, nil
}

func (s *MemoryStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(entry.data)), nil
}

func (s *MemoryStore) Release(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	delete(s.entries, id)
	return nil
}

// Len returns the number of live artifacts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
