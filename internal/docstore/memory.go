package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of Store. Documents are kept
// as JSON so callers observe the same encoding as the persistent drivers.
type MemoryStore struct {
	collections map[string]map[string][]byte
	mu          sync.RWMutex
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string][]byte),
	}
}

func (s *MemoryStore) Create(_ context.Context, collection, id string, doc any) error {
	if err := ValidatePath(collection, id); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collection(collection)
	if _, ok := docs[id]; ok {
		return fmt.Errorf("%w: %s/%s", ErrAlreadyExists, collection, id)
	}
	docs[id] = data
	return nil
}

func (s *MemoryStore) Set(_ context.Context, collection, id string, doc any) error {
	if err := ValidatePath(collection, id); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.collection(collection)[id] = data
	return nil
}

func (s *MemoryStore) Get(_ context.Context, collection, id string, out any) error {
	if err := ValidatePath(collection, id); err != nil {
		return err
	}

	s.mu.RLock()
	data, ok := s.collections[collection][id]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return json.Unmarshal(data, out)
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	if err := ValidatePath(collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if _, ok := docs[id]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	delete(docs, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context, collection string) ([]json.RawMessage, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, json.RawMessage(append([]byte(nil), docs[id]...)))
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// collection returns the document map for name, creating it. Callers hold mu.
func (s *MemoryStore) collection(name string) map[string][]byte {
	docs, ok := s.collections[name]
	if !ok {
		docs = make(map[string][]byte)
		s.collections[name] = docs
	}
	return docs
}
