package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type memoryEntry struct {
	file    File
	content []byte
}

// MemoryStore keeps uploaded files in process memory. It is the default
// backend for single-instance deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	order   []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Put(ctx context.Context, name string, content []byte) (File, error) {
	id, err := gonanoid.New()
	if err != nil {
		return File{}, fmt.Errorf("generate file id: %w", err)
	}

	file := File{
		ID:         id,
		Name:       name,
		Size:       int64(len(content)),
		UploadedAt: time.Now().UTC(),
	}

	stored := make([]byte, len(content))
	copy(stored, content)

	s.mu.Lock()
	s.entries[id] = memoryEntry{file: file, content: stored}
	s.order = append(s.order, id)
	s.mu.Unlock()

	return file, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return entry.content, nil
}

func (s *MemoryStore) Stat(ctx context.Context, id string) (File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return File{}, ErrNotFound
	}
	return entry.file, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files := make([]File, 0, len(s.order))
	for _, id := range s.order {
		if entry, ok := s.entries[id]; ok {
			files = append(files, entry.file)
		}
	}
	return files, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
