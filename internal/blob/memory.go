package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

type memObject struct {
	data        []byte
	contentType string
}

// MemoryStorage keeps blobs in memory. Used in tests and when no storage
// is configured.
type MemoryStorage struct {
	baseURL string
	objects map[string]memObject
	mu      sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory storage whose URLs are
// rooted at baseURL.
func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		baseURL: baseURL,
		objects: make(map[string]memObject),
	}
}

func (s *MemoryStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Object, error) {
	if err := ValidateKey(key); err != nil {
		return Object{}, err
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}
	if err := checkSize(n, size); err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	s.mu.Lock()
	s.objects[key] = memObject{data: buf.Bytes(), contentType: contentType}
	s.mu.Unlock()

	return Object{Key: key, URL: s.URL(key), Size: n, ContentType: contentType}, nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryStorage) URL(key string) string {
	return joinURL(s.baseURL, key)
}

func (s *MemoryStorage) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.contentType, nil
}

// Len returns the number of stored objects.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
